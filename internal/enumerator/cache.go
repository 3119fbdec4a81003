package enumerator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	githubapi "github.com/thep200/readme-crawler/internal/github_api"
	"github.com/thep200/readme-crawler/pkg/log"
)

// Cache lưu kết quả enumerate ra file theo key (min, max) để lần chạy sau
// trong ngưỡng freshness không phải quét lại search API.
type Cache struct {
	Logger log.Logger
	Dir    string
	TTL    time.Duration
}

type cacheEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	MinStars   int                    `json:"min_stars"`
	MaxStars   int                    `json:"max_stars"`
	TotalCount int                    `json:"total_count"`
	Items      []githubapi.SearchItem `json:"items"`
}

func NewCache(logger log.Logger, config *cfg.Config) *Cache {
	return &Cache{
		Logger: logger,
		Dir:    config.Cache.Dir,
		TTL:    time.Duration(config.Cache.FreshnessDays) * 24 * time.Hour,
	}
}

func (c *Cache) fileName(low, high int) string {
	return filepath.Join(c.Dir, fmt.Sprintf("stars_%d_%d.json", low, high))
}

// Load trả về entry cho đúng key (low, high) nếu tồn tại và còn fresh
func (c *Cache) Load(low, high int) ([]githubapi.SearchItem, bool) {
	entry, ok := c.read(c.fileName(low, high))
	if !ok {
		return nil, false
	}
	return entry.Items, true
}

// LoadCovering tìm entry fresh phủ được phần trên của range yêu cầu: entry
// phải có cùng cận trên (walk đi từ trên xuống nên chỉ phần trên tái dùng
// được). Entry rộng hơn range yêu cầu vẫn là phủ toàn bộ, item ngoài range
// được lọc bỏ. Trả về các item đã cache cùng cận dưới được phủ;
// coveredLow <= low nghĩa là phủ toàn bộ.
func (c *Cache) LoadCovering(low, high int) ([]githubapi.SearchItem, int, bool) {
	// Key chính xác trước
	if items, ok := c.Load(low, high); ok {
		return items, low, true
	}

	files, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, 0, false
	}

	bestLow := high + 1
	var bestItems []githubapi.SearchItem
	for _, f := range files {
		var entryLow, entryHigh int
		if _, err := fmt.Sscanf(f.Name(), "stars_%d_%d.json", &entryLow, &entryHigh); err != nil {
			continue
		}
		if entryHigh != high || entryLow > high {
			continue
		}
		if entryLow >= bestLow {
			continue
		}
		if entry, ok := c.read(filepath.Join(c.Dir, f.Name())); ok {
			bestLow = entryLow
			bestItems = entry.Items
		}
	}

	if bestItems == nil {
		return nil, 0, false
	}

	// Entry rộng hơn range yêu cầu chứa cả item dưới cận dưới, bỏ chúng đi
	if bestLow < low {
		kept := make([]githubapi.SearchItem, 0, len(bestItems))
		for _, item := range bestItems {
			if item.StargazersCount >= low {
				kept = append(kept, item)
			}
		}
		return kept, low, true
	}
	return bestItems, bestLow, true
}

// Save ghi đè entry cho key (low, high)
func (c *Cache) Save(low, high int, items []githubapi.SearchItem) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}

	entry := cacheEntry{
		Timestamp:  time.Now(),
		MinStars:   low,
		MaxStars:   high,
		TotalCount: len(items),
		Items:      items,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(c.fileName(low, high), data, 0o644)
}

func (c *Cache) read(path string) (*cacheEntry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	entry := &cacheEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, false
	}
	if time.Since(entry.Timestamp) > c.TTL {
		return nil, false
	}
	return entry, true
}
