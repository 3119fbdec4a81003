package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/thep200/readme-crawler/internal/model"
)

var csvHeader = []string{
	"repo_owner", "repo_name", "repo_stars", "repo_url",
	"description", "collaborators", "topics", "readme",
}

// CsvSink ghi bản ghi vào file CSV append-mode. Header chỉ được ghi một
// lần khi file còn rỗng, các round sau chỉ append row.
type CsvSink struct {
	Path string
	mu   sync.Mutex
}

func NewCsvSink(path string) *CsvSink {
	return &CsvSink{Path: path}
}

func (s *CsvSink) Append(ctx context.Context, records []model.ReadmeMessage) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat csv file: %w", err)
	}

	w := csv.NewWriter(f)
	if stat.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}

	for _, r := range records {
		row := []string{
			r.Owner,
			r.Name,
			strconv.Itoa(r.Stars),
			r.Url,
			r.Description,
			strconv.Itoa(r.Collaborators),
			r.Topics,
			r.Readme,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
