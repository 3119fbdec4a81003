// Chạy phân loại affiliation trên file CSV đã harvest: đọc readme và
// description của từng repo, hỏi classifier, ghi ra CSV mới kèm cột
// affiliation.

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/internal/classifier"
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

	clf, _ := classifier.NewClassifier(logger, config)

	header, rows, err := readCsv(config.Classifier.InputCsv)
	if err != nil {
		logger.Error(ctx, "Không đọc được %s: %v", config.Classifier.InputCsv, err)
		os.Exit(1)
	}
	logger.Info(ctx, "Đã load %d dòng từ %s", len(rows), config.Classifier.InputCsv)

	descIdx := columnIndex(header, "description")
	readmeIdx := columnIndex(header, "readme")
	if readmeIdx < 0 {
		logger.Error(ctx, "Không tìm thấy cột readme trong %s", config.Classifier.InputCsv)
		os.Exit(1)
	}

	// Phân loại song song, giữ nguyên thứ tự dòng
	affiliations := make([]string, len(rows))
	workers := make(chan struct{}, config.Crawler.Workers)
	var wg sync.WaitGroup

	for i, row := range rows {
		wg.Add(1)
		workers <- struct{}{}
		go func(idx int, row []string) {
			defer wg.Done()
			defer func() { <-workers }()

			combined := ""
			if descIdx >= 0 && descIdx < len(row) {
				combined = "Description: " + row[descIdx] + "\n"
			}
			if readmeIdx < len(row) {
				combined += "\nREADME:\n" + row[readmeIdx]
			}
			affiliations[idx] = clf.Classify(ctx, combined)

			if (idx+1)%100 == 0 {
				logger.Info(ctx, "Đã phân loại %d/%d dòng", idx+1, len(rows))
			}
		}(i, row)
	}
	wg.Wait()

	if err := writeCsv(config.Classifier.OutputCsv, header, rows, affiliations); err != nil {
		logger.Error(ctx, "Không ghi được %s: %v", config.Classifier.OutputCsv, err)
		os.Exit(1)
	}
	logger.Info(ctx, "Xong: %d dòng đã phân loại, ghi ra %s", len(rows), config.Classifier.OutputCsv)
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

func writeCsv(path string, header []string, rows [][]string, affiliations []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append(append([]string{}, header...), "affiliation")); err != nil {
		return err
	}
	for i, row := range rows {
		if err := w.Write(append(append([]string{}, row...), affiliations[i])); err != nil {
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
