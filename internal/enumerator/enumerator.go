// Gói enumerator liệt kê toàn bộ repo trong một star range vượt qua giới
// hạn 1000 kết quả của search API. Range tổng được chia theo thang log cho
// các worker chạy song song, mỗi worker đi lùi từ sao cao xuống sao thấp
// với step thích ứng: nở ra ở vùng thưa, co lại ở vùng dày, và khi một
// slice chạm result cap thì không nhận batch đó mà chia nhỏ query lại
// cho đến khi kết quả xuống dưới cap.

package enumerator

import (
	"context"
	"sync"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	githubapi "github.com/thep200/readme-crawler/internal/github_api"
	"github.com/thep200/readme-crawler/internal/token"
	"github.com/thep200/readme-crawler/pkg/log"
)

// RangeSearcher thực hiện một query star range có phân trang.
// Kết quả bằng ResultCap nghĩa là slice có khả năng bị truncate.
type RangeSearcher interface {
	SearchRange(ctx context.Context, low, high int, tok *token.Token) []githubapi.SearchItem
}

type Enumerator struct {
	Logger   log.Logger
	Config   *cfg.Config
	Pool     *token.Pool
	Searcher RangeSearcher
	Cache    *Cache

	mu    sync.Mutex
	seen  map[string]bool
	items []githubapi.SearchItem
}

func NewEnumerator(logger log.Logger, config *cfg.Config, pool *token.Pool, searcher RangeSearcher, cache *Cache) (*Enumerator, error) {
	return &Enumerator{
		Logger:   logger,
		Config:   config,
		Pool:     pool,
		Searcher: searcher,
		Cache:    cache,
		seen:     make(map[string]bool, 10000),
		items:    make([]githubapi.SearchItem, 0, 10000),
	}, nil
}

// Enumerate trả về tập repo đã dedup cho [MinStars, MaxStars].
// Cache fresh che được phần nào của range thì chỉ enumerate phần còn lại.
func (e *Enumerator) Enumerate(ctx context.Context) []githubapi.SearchItem {
	low := e.Config.Crawler.MinStars
	high := e.Config.Crawler.MaxStars
	startTime := time.Now()

	var cached []githubapi.SearchItem
	if e.Cache != nil {
		var coveredLow int
		var ok bool
		cached, coveredLow, ok = e.Cache.LoadCovering(low, high)
		if ok {
			if coveredLow <= low {
				e.Logger.Info(ctx, "Cache hit cho stars:%d..%d, bỏ qua enumerate (%d repos)", low, high, len(cached))
				return cached
			}
			e.Logger.Info(ctx, "Cache phủ stars:%d..%d (%d repos), chỉ enumerate phần còn lại stars:%d..%d",
				coveredLow, high, len(cached), low, coveredLow-1)
			e.merge(cached)
			high = coveredLow - 1
		}
	}

	e.enumerateRange(ctx, low, high)

	result := e.snapshot()
	e.Logger.Info(ctx, "Enumerate xong: %d repos duy nhất trong %v", len(result), time.Since(startTime).Round(time.Second))

	if e.Cache != nil {
		if err := e.Cache.Save(e.Config.Crawler.MinStars, e.Config.Crawler.MaxStars, result); err != nil {
			e.Logger.Warn(ctx, "Không ghi được cache: %v", err)
		}
	}
	return result
}

func (e *Enumerator) enumerateRange(ctx context.Context, low, high int) {
	if high < low {
		return
	}

	workers := e.Config.Crawler.Workers
	if workers > e.Pool.Size() {
		workers = e.Pool.Size()
	}
	if workers < 1 {
		workers = 1
	}

	ranges := partitionLog(low, high, workers)
	e.Logger.Info(ctx, "Chia stars:%d..%d thành %d sub-range cho %d worker", low, high, len(ranges), workers)

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(workerID int, r starRange) {
			defer wg.Done()
			e.walkRange(ctx, workerID, r, e.Pool.Group(workerID, len(ranges)))
		}(i, r)
	}
	wg.Wait()
}

// walkRange đi lùi qua một sub-range. Đây là control loop quyết định tính
// đúng đắn: batch chạm cap không bao giờ được merge khi còn lượt shrink,
// vì nhận batch bị truncate là âm thầm mất dữ liệu.
func (e *Enumerator) walkRange(ctx context.Context, workerID int, r starRange, group []int) {
	crawlerCfg := e.Config.Crawler
	step := clampStep(stepForStars(r.High), crawlerCfg.MinStepSize, crawlerCfg.MaxStepSize)
	curMax := r.High

	for curMax >= r.Low {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tok := e.acquireToken(ctx, group)
		curMin := maxInt(r.Low, curMax-step+1)
		items := e.Searcher.SearchRange(ctx, curMin, curMax, tok)

		if len(items) >= githubapi.ResultCap {
			items, curMin, step = e.shrinkUntilAccepted(ctx, workerID, r.Low, curMax, step, group)
		} else {
			step = e.nextStep(step, len(items))
		}

		e.merge(items)
		e.Logger.Debug(ctx, "Worker %d: stars:%d..%d -> %d repos (step tiếp theo %d)", workerID, curMin, curMax, len(items), step)
		curMax = curMin - 1
	}
}

// shrinkUntilAccepted xử lý slice bão hòa: co step mạnh và query lại cùng
// cận trên cho đến khi kết quả xuống dưới cap. Số lần thử có giới hạn để
// không subdivide vô hạn trên dataset bệnh lý; vượt giới hạn thì nhận
// slice nhỏ nhất đã thấy kèm cảnh báo mất độ phủ.
func (e *Enumerator) shrinkUntilAccepted(ctx context.Context, workerID, low, curMax, step int, group []int) ([]githubapi.SearchItem, int, int) {
	crawlerCfg := e.Config.Crawler
	divisor := crawlerCfg.SaturationDivisor
	if divisor < 2 {
		divisor = 3
	}
	maxAttempts := crawlerCfg.MaxShrinkAttempts
	if maxAttempts < 1 {
		// Không bao giờ bỏ qua slice bão hòa mà không query lại lần nào
		maxAttempts = 1
	}

	var items []githubapi.SearchItem
	curMin := curMax

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		step = clampStep(step/divisor, crawlerCfg.MinStepSize, crawlerCfg.MaxStepSize)
		curMin = maxInt(low, curMax-step+1)

		e.Logger.Warn(ctx, "Worker %d: stars:%d..%d chạm cap %d, thử lại với step %d (lần %d/%d)",
			workerID, curMin, curMax, githubapi.ResultCap, step, attempt, maxAttempts)

		tok := e.acquireToken(ctx, group)
		items = e.Searcher.SearchRange(ctx, curMin, curMax, tok)
		if len(items) < githubapi.ResultCap {
			return items, curMin, step
		}

		if step <= crawlerCfg.MinStepSize && curMin >= curMax {
			// Một giá trị sao duy nhất vẫn vượt cap thì không chia nhỏ hơn được nữa
			break
		}
	}

	e.Logger.Warn(ctx, "Worker %d: stars:%d..%d vẫn bão hòa sau %d lần shrink, chấp nhận slice nhỏ nhất (có thể thiếu kết quả)",
		workerID, curMin, curMax, maxAttempts)
	return items, curMin, step
}

// nextStep áp dụng luật grow-on-sparsity: dưới ngưỡng thưa thì nở mạnh,
// giữa khoảng thì giữ nguyên, gần bão hòa thì co nhẹ.
func (e *Enumerator) nextStep(step, count int) int {
	crawlerCfg := e.Config.Crawler
	switch {
	case count < crawlerCfg.SparseThreshold:
		return clampStep(step*crawlerCfg.GrowFactor, crawlerCfg.MinStepSize, crawlerCfg.MaxStepSize)
	case count <= crawlerCfg.DenseThreshold:
		return step
	default:
		return clampStep(int(float64(step)*crawlerCfg.ShrinkFactor), crawlerCfg.MinStepSize, crawlerCfg.MaxStepSize)
	}
}

// acquireToken lấy token usable trong group, hết thì thử toàn pool, cả pool
// cạn thì chờ đến reset sớm nhất rồi đi tiếp.
func (e *Enumerator) acquireToken(ctx context.Context, group []int) *token.Token {
	for {
		if tok, ok := e.Pool.Acquire(group); ok {
			return tok
		}

		all := make([]int, e.Pool.Size())
		for i := range all {
			all[i] = i
		}
		if tok, ok := e.Pool.Acquire(all); ok {
			return tok
		}

		wait := time.Duration(e.Config.GithubApi.RateLimitResetMin) * time.Minute
		if resetAt, ok := e.Pool.EarliestReset(); ok {
			if until := time.Until(resetAt); until > 0 {
				wait = until + time.Duration(e.Config.Crawler.ResetMarginSec)*time.Second
			}
		}
		e.Logger.Warn(ctx, "Mọi token đều cạn quota khi enumerate, chờ %v", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
			e.Pool.ResetAll()
		}
	}
}

// merge gộp một batch vào tập kết quả, dedup theo repo URL.
// Check-then-insert nằm trọn trong một lock: chèn trùng identity là bug
// đúng đắn chứ không phải race chấp nhận được.
func (e *Enumerator) merge(items []githubapi.SearchItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, item := range items {
		if item.HtmlUrl == "" || e.seen[item.HtmlUrl] {
			continue
		}
		e.seen[item.HtmlUrl] = true
		e.items = append(e.items, item)
	}
}

func (e *Enumerator) snapshot() []githubapi.SearchItem {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]githubapi.SearchItem, len(e.items))
	copy(result, e.items)
	return result
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
