package enumerator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/thep200/readme-crawler/cfg"
	githubapi "github.com/thep200/readme-crawler/internal/github_api"
	"github.com/thep200/readme-crawler/internal/token"
	"github.com/thep200/readme-crawler/pkg/log"
)

// fakeSearcher mô phỏng search API trên một population biết trước:
// trả về tối đa ResultCap item có sao trong [low, high], sắp theo sao giảm dần.
type fakeSearcher struct {
	mu         sync.Mutex
	population []githubapi.SearchItem
	calls      int
	accepted   []int // số item trả về của từng call
}

func (f *fakeSearcher) SearchRange(ctx context.Context, low, high int, tok *token.Token) []githubapi.SearchItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	matched := make([]githubapi.SearchItem, 0)
	for _, item := range f.population {
		if item.StargazersCount >= low && item.StargazersCount <= high {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StargazersCount > matched[j].StargazersCount
	})
	if len(matched) > githubapi.ResultCap {
		matched = matched[:githubapi.ResultCap]
	}
	f.accepted = append(f.accepted, len(matched))
	return matched
}

// makePopulation tạo perStar item cho mỗi giá trị sao trong [low, high]
func makePopulation(low, high, perStar int) []githubapi.SearchItem {
	items := make([]githubapi.SearchItem, 0, (high-low+1)*perStar)
	for stars := low; stars <= high; stars++ {
		for i := 0; i < perStar; i++ {
			items = append(items, githubapi.SearchItem{
				Name:            fmt.Sprintf("repo-%d-%d", stars, i),
				FullName:        fmt.Sprintf("user%d/repo-%d-%d", i, stars, i),
				Owner:           githubapi.Owner{Login: fmt.Sprintf("user%d", i)},
				HtmlUrl:         fmt.Sprintf("https://github.com/user%d/repo-%d-%d", i, stars, i),
				StargazersCount: stars,
			})
		}
	}
	return items
}

func testConfig(minStars, maxStars int) *cfg.Config {
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.Crawler.MinStars = minStars
	config.Crawler.MaxStars = maxStars
	config.Crawler.Workers = 2
	config.Crawler.MinStepSize = 1
	return config
}

func newTestEnumerator(t *testing.T, config *cfg.Config, searcher RangeSearcher, cache *Cache) *Enumerator {
	t.Helper()
	logger, _ := log.NewCslLogger()
	pool, err := token.NewPool([]string{"t1", "t2"}, config.GithubApi.LowWatermark, config.GithubApi.QuotaCeiling)
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEnumerator(logger, config, pool, searcher, cache)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestEnumerateCompleteness(t *testing.T) {
	population := makePopulation(1, 500, 5)
	searcher := &fakeSearcher{population: population}
	e := newTestEnumerator(t, testConfig(1, 500), searcher, nil)

	result := e.Enumerate(context.Background())

	if len(result) != len(population) {
		t.Fatalf("Enumerate() = %d repos, want full population %d", len(result), len(population))
	}

	seen := make(map[string]bool, len(result))
	for _, item := range result {
		if seen[item.HtmlUrl] {
			t.Fatalf("duplicate identity in result: %s", item.HtmlUrl)
		}
		seen[item.HtmlUrl] = true
	}
}

func TestEnumerateSaturationRepartition(t *testing.T) {
	// 20 repo mỗi giá trị sao: step 50 đầu tiên phủ đúng 1000 item nên
	// query đầu tiên chạm cap và phải chia nhỏ trước khi nhận bất kỳ batch nào
	population := makePopulation(1, 100, 20)
	searcher := &fakeSearcher{population: population}
	config := testConfig(1, 100)
	config.Crawler.Workers = 1
	e := newTestEnumerator(t, config, searcher, nil)

	result := e.Enumerate(context.Background())

	if len(result) != len(population) {
		t.Fatalf("Enumerate() = %d repos, want true count %d (capped batch must not be accepted)", len(result), len(population))
	}

	sawSaturated := false
	for _, n := range searcher.accepted {
		if n >= githubapi.ResultCap {
			sawSaturated = true
		}
	}
	if !sawSaturated {
		t.Fatal("test population should force at least one saturated query")
	}
}

func TestEnumerateZeroShrinkAttemptsStillRequeries(t *testing.T) {
	// Cấu hình hỏng với số lần shrink <= 0 không được phép bỏ qua slice
	// bão hòa mà không query lại lần nào
	population := makePopulation(1, 100, 20)
	searcher := &fakeSearcher{population: population}
	config := testConfig(1, 100)
	config.Crawler.Workers = 1
	config.Crawler.MaxShrinkAttempts = 0
	e := newTestEnumerator(t, config, searcher, nil)

	result := e.Enumerate(context.Background())

	if len(result) != len(population) {
		t.Fatalf("Enumerate() = %d repos, want %d (saturated slice must not be skipped)", len(result), len(population))
	}
}

func TestMergeIdempotent(t *testing.T) {
	e := newTestEnumerator(t, testConfig(1, 100), &fakeSearcher{}, nil)

	item := githubapi.SearchItem{HtmlUrl: "https://github.com/a/b", StargazersCount: 10}
	e.merge([]githubapi.SearchItem{item})
	e.merge([]githubapi.SearchItem{item})

	if got := len(e.snapshot()); got != 1 {
		t.Fatalf("merge twice = %d items, want 1", got)
	}
}

func TestEnumerateCacheHitSkipsSearch(t *testing.T) {
	config := testConfig(500, 200000)
	config.Cache.Dir = t.TempDir()

	logger, _ := log.NewCslLogger()
	cache := NewCache(logger, config)

	cached := makePopulation(500, 510, 1)
	if err := cache.Save(500, 200000, cached); err != nil {
		t.Fatal(err)
	}

	searcher := &fakeSearcher{population: makePopulation(500, 200000, 0)}
	e := newTestEnumerator(t, config, searcher, cache)

	result := e.Enumerate(context.Background())

	if len(result) != len(cached) {
		t.Fatalf("Enumerate() = %d repos, want cached %d", len(result), len(cached))
	}
	if searcher.calls != 0 {
		t.Fatalf("search API called %d times on exact cache hit, want 0", searcher.calls)
	}
}

func TestEnumerateWiderCacheEntrySkipsSearch(t *testing.T) {
	config := testConfig(700, 1000)
	config.Cache.Dir = t.TempDir()

	logger, _ := log.NewCslLogger()
	cache := NewCache(logger, config)

	if err := cache.Save(500, 1000, makePopulation(500, 1000, 1)); err != nil {
		t.Fatal(err)
	}

	searcher := &fakeSearcher{population: makePopulation(500, 1000, 1)}
	e := newTestEnumerator(t, config, searcher, cache)

	result := e.Enumerate(context.Background())

	if searcher.calls != 0 {
		t.Fatalf("search API called %d times despite a wider fresh entry, want 0", searcher.calls)
	}
	if len(result) != 301 {
		t.Fatalf("Enumerate() = %d repos, want 301 within the configured range", len(result))
	}
}

func TestEnumeratePartialCacheCoverage(t *testing.T) {
	config := testConfig(1, 300)
	config.Cache.Dir = t.TempDir()
	config.Crawler.Workers = 1

	logger, _ := log.NewCslLogger()
	cache := NewCache(logger, config)

	// Cache phủ [200, 300], phần [1, 199] phải được enumerate thật
	cachedPart := makePopulation(200, 300, 2)
	if err := cache.Save(200, 300, cachedPart); err != nil {
		t.Fatal(err)
	}

	population := makePopulation(1, 300, 2)
	searcher := &fakeSearcher{population: population}
	e := newTestEnumerator(t, config, searcher, cache)

	result := e.Enumerate(context.Background())

	if len(result) != len(population) {
		t.Fatalf("Enumerate() = %d repos, want merged %d", len(result), len(population))
	}
	if searcher.calls == 0 {
		t.Fatal("remainder range must still be enumerated on partial coverage")
	}

	// Entry đầy đủ phải được ghi đè cho key gốc
	if items, ok := cache.Load(1, 300); !ok || len(items) != len(population) {
		t.Fatalf("full-range cache entry after merge = %d, %v, want %d", len(items), ok, len(population))
	}
}

func TestPartitionLogCoversRange(t *testing.T) {
	ranges := partitionLog(1000, 160000, 8)

	if ranges[0].Low != 1000 {
		t.Fatalf("first range low = %d, want 1000", ranges[0].Low)
	}
	if ranges[len(ranges)-1].High != 160000 {
		t.Fatalf("last range high = %d, want 160000", ranges[len(ranges)-1].High)
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Low != ranges[i-1].High+1 {
			t.Fatalf("gap between ranges %d and %d: %v %v", i-1, i, ranges[i-1], ranges[i])
		}
	}

	// Thang log: sub-range phía sao cao phải rộng hơn phía sao thấp
	firstWidth := ranges[0].High - ranges[0].Low
	lastWidth := ranges[len(ranges)-1].High - ranges[len(ranges)-1].Low
	if lastWidth <= firstWidth {
		t.Fatalf("log partition widths: first %d, last %d, want widening toward high stars", firstWidth, lastWidth)
	}
}

func TestStepForStarsBands(t *testing.T) {
	if stepForStars(150000) <= stepForStars(5000) {
		t.Fatal("sparse high-star band must use a larger step than dense low-star band")
	}
	if stepForStars(100) != 50 {
		t.Fatalf("stepForStars(100) = %d, want 50", stepForStars(100))
	}
}
