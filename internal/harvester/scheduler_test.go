package harvester

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	githubapi "github.com/thep200/readme-crawler/internal/github_api"
	"github.com/thep200/readme-crawler/internal/model"
	"github.com/thep200/readme-crawler/internal/token"
	"github.com/thep200/readme-crawler/pkg/log"
)

// fakeFetcher trả về chi tiết cố định; nếu exhaustPool bật thì mỗi lần lấy
// README sẽ đốt sạch quota của token vừa dùng để ép pipeline vào nhánh chờ reset
type fakeFetcher struct {
	pool        *token.Pool
	exhaustPool bool
	resetAt     time.Time
}

func (f *fakeFetcher) Readme(ctx context.Context, user, repo string, tok *token.Token) string {
	if f.exhaustPool {
		f.pool.RecordResponse(tok, 0, f.resetAt)
	}
	return "# " + repo
}

func (f *fakeFetcher) Collaborators(ctx context.Context, user, repo string, tok *token.Token) int {
	return 3
}

// fakeSink gom toàn bộ batch đã append để test soi lại
type fakeSink struct {
	mu      sync.Mutex
	batches [][]model.ReadmeMessage
}

func (f *fakeSink) Append(ctx context.Context, records []model.ReadmeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeSink) records() []model.ReadmeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.ReadmeMessage, 0)
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) Send(ctx context.Context, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func makeCandidates(n int) []githubapi.SearchItem {
	items := make([]githubapi.SearchItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, githubapi.SearchItem{
			Name:            fmt.Sprintf("repo-%d", i),
			FullName:        fmt.Sprintf("user-%d/repo-%d", i, i),
			Owner:           githubapi.Owner{Login: fmt.Sprintf("user-%d", i)},
			HtmlUrl:         fmt.Sprintf("https://github.com/user-%d/repo-%d", i, i),
			StargazersCount: 100 + i,
			Topics:          []string{"go", "testing"},
		})
	}
	return items
}

func newTestScheduler(t *testing.T, config *cfg.Config, fetcher DetailFetcher, recordSink *fakeSink, notifier Notifier) (*Scheduler, *token.Pool) {
	t.Helper()
	logger, _ := log.NewCslLogger()
	pool, err := token.NewPool([]string{"t1", "t2"}, config.GithubApi.LowWatermark, config.GithubApi.QuotaCeiling)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewScheduler(logger, config, pool, fetcher, recordSink, notifier)
	if err != nil {
		t.Fatal(err)
	}
	return s, pool
}

func schedulerConfig(workers, roundSize int) *cfg.Config {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.Crawler.Workers = workers
	config.Crawler.ReposPerRound = roundSize
	return config
}

func TestHarvestRoundsAndSinkBatches(t *testing.T) {
	config := schedulerConfig(2, 4)
	recordSink := &fakeSink{}
	notifier := &fakeNotifier{}

	s, pool := newTestScheduler(t, config, nil, recordSink, notifier)
	s.Fetcher = &fakeFetcher{pool: pool}

	sleeps := 0
	s.sleep = func(time.Duration) { sleeps++ }

	candidates := makeCandidates(10)
	written := s.Harvest(context.Background(), candidates)

	if written != 10 {
		t.Fatalf("Harvest() = %d records, want 10", written)
	}
	if len(recordSink.batches) != 3 {
		t.Fatalf("sink got %d batches, want 3 rounds", len(recordSink.batches))
	}
	if sleeps != 2 {
		t.Fatalf("slept %d times, want once between each of 3 rounds", sleeps)
	}

	seen := make(map[string]bool)
	for _, rec := range recordSink.records() {
		if seen[rec.Url] {
			t.Fatalf("record written twice: %s", rec.Url)
		}
		seen[rec.Url] = true
		if rec.Collaborators != 3 || rec.Readme == "" {
			t.Fatalf("record missing detail fields: %+v", rec)
		}
	}

	// Mỗi round một notify cộng một notify tổng kết
	if notifier.calls != 4 {
		t.Fatalf("notifier called %d times, want 4", notifier.calls)
	}
}

func TestHarvestExhaustionSleepsOncePerEpisode(t *testing.T) {
	config := schedulerConfig(2, 100)
	recordSink := &fakeSink{}

	s, pool := newTestScheduler(t, config, nil, recordSink, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.Fetcher = &fakeFetcher{pool: pool, exhaustPool: true, resetAt: base.Add(10 * time.Minute)}

	var sleptFor []time.Duration
	s.sleep = func(d time.Duration) { sleptFor = append(sleptFor, d) }

	// Mỗi worker đốt token của mình sau đúng một repo nên mỗi round tiến
	// được 2 item, giữa hai round phải có đúng một lần ngủ chờ reset
	written := s.Harvest(context.Background(), makeCandidates(4))

	if written != 4 {
		t.Fatalf("Harvest() = %d records, want all 4 after resume", written)
	}
	if len(sleptFor) != 1 {
		t.Fatalf("slept %d times, want exactly 1 exhaustion episode", len(sleptFor))
	}

	margin := time.Duration(config.Crawler.ResetMarginSec) * time.Second
	if want := 10*time.Minute + margin; sleptFor[0] != want {
		t.Fatalf("slept %v, want earliest reset + margin = %v", sleptFor[0], want)
	}
}

func TestHarvestSkipsAlreadyScraped(t *testing.T) {
	config := schedulerConfig(1, 3)
	recordSink := &fakeSink{}

	s, pool := newTestScheduler(t, config, nil, recordSink, nil)
	s.Fetcher = &fakeFetcher{pool: pool}
	s.sleep = func(time.Duration) {}

	candidates := makeCandidates(4)
	// Candidate cuối trùng identity với candidate đầu nhưng nằm ở round sau
	candidates = append(candidates, candidates[0])

	written := s.Harvest(context.Background(), candidates)

	if written != 4 {
		t.Fatalf("Harvest() = %d records, want 4 unique", written)
	}
	records := recordSink.records()
	count := 0
	for _, rec := range records {
		if rec.Url == candidates[0].HtmlUrl {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicate identity written %d times, want 1", count)
	}
}

func TestHarvestEmptyCandidates(t *testing.T) {
	config := schedulerConfig(2, 4)
	recordSink := &fakeSink{}

	s, pool := newTestScheduler(t, config, nil, recordSink, nil)
	s.Fetcher = &fakeFetcher{pool: pool}

	if written := s.Harvest(context.Background(), nil); written != 0 {
		t.Fatalf("Harvest(nil) = %d, want 0", written)
	}
	if len(recordSink.batches) != 0 {
		t.Fatalf("sink received %d batches for empty input, want 0", len(recordSink.batches))
	}
}

func TestExtractUserAndRepo(t *testing.T) {
	user, repo := extractUserAndRepo("golang/go")
	if user != "golang" || repo != "go" {
		t.Fatalf("extractUserAndRepo = %q, %q", user, repo)
	}
	user, repo = extractUserAndRepo("lonely")
	if user != "lonely" || repo != "" {
		t.Fatalf("extractUserAndRepo fallback = %q, %q", user, repo)
	}
}
