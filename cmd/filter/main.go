// Lọc file CSV đã harvest: giữ repo nằm trong khoảng sao/collaborator cấu
// hình và có emoji chính trị trong readme hoặc description, ghi ra CSV mới
// kèm cột found_emojis.

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/internal/filter"
	"github.com/thep200/readme-crawler/pkg/log"
)

func main() {
	ctx := context.Background()

	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger log.Logger
	logger, err = log.NewZapLogger()
	if err != nil {
		logger, _ = log.NewCslLogger()
	}

	header, rows, err := readCsv(config.Filter.InputCsv)
	if err != nil {
		logger.Error(ctx, "Không đọc được %s: %v", config.Filter.InputCsv, err)
		os.Exit(1)
	}
	logger.Info(ctx, "Đã load %d dòng từ %s", len(rows), config.Filter.InputCsv)

	starsIdx := columnIndex(header, "repo_stars")
	collabIdx := columnIndex(header, "collaborators")
	descIdx := columnIndex(header, "description")
	readmeIdx := columnIndex(header, "readme")
	if readmeIdx < 0 {
		logger.Error(ctx, "Không tìm thấy cột readme trong %s", config.Filter.InputCsv)
		os.Exit(1)
	}

	f := filter.NewFilter(filter.Bounds{
		MinStars:         config.Filter.MinStars,
		MaxStars:         config.Filter.MaxStars,
		MinCollaborators: config.Filter.MinCollaborators,
		MaxCollaborators: config.Filter.MaxCollaborators,
	})
	stats := filter.NewStats()

	kept := make([][]string, 0, len(rows))
	foundPerRow := make([]string, 0, len(rows))
	for _, row := range rows {
		found, ok := f.Evaluate(
			columnInt(row, starsIdx),
			columnInt(row, collabIdx),
			columnValue(row, descIdx),
			columnValue(row, readmeIdx),
		)
		stats.Record(found, ok)
		if ok {
			kept = append(kept, row)
			foundPerRow = append(foundPerRow, strings.Join(found, " "))
		}
	}

	if err := writeCsv(config.Filter.OutputCsv, header, kept, foundPerRow); err != nil {
		logger.Error(ctx, "Không ghi được %s: %v", config.Filter.OutputCsv, err)
		os.Exit(1)
	}

	logger.Info(ctx, "Quét %d repo, giữ lại %d repo có emoji chính trị", stats.Scanned, stats.Kept)
	for _, emoji := range stats.TopEmojis() {
		logger.Info(ctx, "  %s : %d repo", emoji, stats.PerEmoji[emoji])
	}
	logger.Info(ctx, "Đã ghi kết quả ra %s", config.Filter.OutputCsv)
}

func readCsv(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty csv file")
	}
	return records[0], records[1:], nil
}

func writeCsv(path string, header []string, rows [][]string, foundPerRow []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append(append([]string{}, header...), "found_emojis")); err != nil {
		return err
	}
	for i, row := range rows {
		if err := w.Write(append(append([]string{}, row...), foundPerRow[i])); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func columnValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func columnInt(row []string, idx int) int {
	n, err := strconv.Atoi(columnValue(row, idx))
	if err != nil {
		return 0
	}
	return n
}
