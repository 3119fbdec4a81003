package enumerator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/pkg/log"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	loader, _ := cfg.NewMockLoader()
	config, _ := loader.Load()
	config.Cache.Dir = t.TempDir()

	logger, _ := log.NewCslLogger()
	return NewCache(logger, config)
}

func TestCacheSaveLoadRoundTrip(t *testing.T) {
	c := newTestCache(t)

	items := makePopulation(100, 105, 2)
	if err := c.Save(100, 200, items); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Load(100, 200)
	if !ok {
		t.Fatal("fresh entry must be loadable")
	}
	if len(got) != len(items) {
		t.Fatalf("Load() = %d items, want %d", len(got), len(items))
	}
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c := newTestCache(t)

	if _, ok := c.Load(1, 2); ok {
		t.Fatal("Load() on empty cache must miss")
	}
}

func TestCacheStaleEntryIsMiss(t *testing.T) {
	c := newTestCache(t)

	entry := cacheEntry{
		Timestamp: time.Now().Add(-8 * 24 * time.Hour),
		MinStars:  100,
		MaxStars:  200,
		Items:     makePopulation(100, 105, 1),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(c.Dir, "stars_100_200.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Load(100, 200); ok {
		t.Fatal("entry older than the freshness window must be a miss")
	}
	if _, _, ok := c.LoadCovering(100, 200); ok {
		t.Fatal("LoadCovering must ignore stale entries")
	}
}

func TestCacheLoadCoveringSharesUpperBound(t *testing.T) {
	c := newTestCache(t)

	if err := c.Save(500, 1000, makePopulation(500, 510, 1)); err != nil {
		t.Fatal(err)
	}
	// Cận trên khác với range yêu cầu thì không tái dùng được vì walk đi
	// từ trên xuống, phần đã phủ phải dính với đỉnh range
	if err := c.Save(100, 900, makePopulation(100, 110, 1)); err != nil {
		t.Fatal(err)
	}

	items, coveredLow, ok := c.LoadCovering(100, 1000)
	if !ok {
		t.Fatal("entry sharing the upper bound must cover the request")
	}
	if coveredLow != 500 {
		t.Fatalf("coveredLow = %d, want 500", coveredLow)
	}
	if len(items) != 11 {
		t.Fatalf("LoadCovering() = %d items, want 11", len(items))
	}
}

func TestCacheLoadCoveringWiderEntryIsFullCoverage(t *testing.T) {
	c := newTestCache(t)

	// Entry (500, 1000) rộng hơn range yêu cầu (700, 1000): phủ toàn bộ,
	// item dưới 700 phải được lọc bỏ
	if err := c.Save(500, 1000, makePopulation(500, 1000, 1)); err != nil {
		t.Fatal(err)
	}

	items, coveredLow, ok := c.LoadCovering(700, 1000)
	if !ok {
		t.Fatal("a fresh entry wider than the request must cover it")
	}
	if coveredLow > 700 {
		t.Fatalf("coveredLow = %d, want full coverage (<= 700)", coveredLow)
	}
	if len(items) != 301 {
		t.Fatalf("LoadCovering() = %d items, want 301 within the requested range", len(items))
	}
	for _, item := range items {
		if item.StargazersCount < 700 {
			t.Fatalf("item below the requested range leaked through: %d stars", item.StargazersCount)
		}
	}
}

func TestCacheLoadCoveringPicksWidestEntry(t *testing.T) {
	c := newTestCache(t)

	if err := c.Save(700, 1000, makePopulation(700, 701, 1)); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(300, 1000, makePopulation(300, 305, 1)); err != nil {
		t.Fatal(err)
	}

	_, coveredLow, ok := c.LoadCovering(100, 1000)
	if !ok {
		t.Fatal("expected partial coverage")
	}
	if coveredLow != 300 {
		t.Fatalf("coveredLow = %d, want the widest entry at 300", coveredLow)
	}
}
