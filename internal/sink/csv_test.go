package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/thep200/readme-crawler/internal/model"
)

func testRecords(names ...string) []model.ReadmeMessage {
	records := make([]model.ReadmeMessage, 0, len(names))
	for _, name := range names {
		records = append(records, model.ReadmeMessage{
			Owner:         "owner",
			Name:          name,
			Stars:         1234,
			Url:           "https://github.com/owner/" + name,
			Description:   "mô tả có dấu phẩy, và xuống\ndòng",
			Collaborators: 2,
			Topics:        "go, crawler",
			Readme:        "# " + name,
		})
	}
	return records
}

func readAllRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestCsvSinkHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s := NewCsvSink(path)
	ctx := context.Background()

	if err := s.Append(ctx, testRecords("alpha", "beta")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, testRecords("gamma")); err != nil {
		t.Fatal(err)
	}

	rows := readAllRows(t, path)
	if len(rows) != 4 {
		t.Fatalf("csv has %d rows, want header + 3 records", len(rows))
	}
	if rows[0][0] != "repo_owner" || rows[0][len(rows[0])-1] != "readme" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	for i, row := range rows[1:] {
		if row[0] == "repo_owner" {
			t.Fatalf("header repeated at data row %d", i+1)
		}
	}
	if rows[3][1] != "gamma" {
		t.Fatalf("appended record out of order: %v", rows[3])
	}
}

func TestCsvSinkEmptyBatchNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s := NewCsvSink(path)

	if err := s.Append(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("empty batch must not create the csv file")
	}
}

func TestCsvSinkEscapesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s := NewCsvSink(path)

	if err := s.Append(context.Background(), testRecords("alpha")); err != nil {
		t.Fatal(err)
	}

	rows := readAllRows(t, path)
	if got := rows[1][4]; got != "mô tả có dấu phẩy, và xuống\ndòng" {
		t.Fatalf("description not round-tripped through csv escaping: %q", got)
	}
}

type failingSink struct{}

func (failingSink) Append(ctx context.Context, records []model.ReadmeMessage) error {
	return errors.New("sink down")
}

type countingSink struct{ appended int }

func (s *countingSink) Append(ctx context.Context, records []model.ReadmeMessage) error {
	s.appended += len(records)
	return nil
}

func TestMultiSinkFansOutAndReportsFirstError(t *testing.T) {
	counting := &countingSink{}
	multi := NewMultiSink(failingSink{}, counting)

	err := multi.Append(context.Background(), testRecords("alpha", "beta"))
	if err == nil {
		t.Fatal("MultiSink must propagate the first sink error")
	}
	if counting.appended != 2 {
		t.Fatalf("second sink got %d records despite first failing, want 2", counting.appended)
	}
}
