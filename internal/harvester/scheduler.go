// Gói harvester lấy chi tiết (metadata + README) cho tập repo đã enumerate.
// Worker pool cố định, mỗi worker gắn với một nhóm token; khi toàn bộ pool
// cạn quota thì cả pipeline dừng đồng loạt, ghi batch của round hiện tại ra
// sink rồi ngủ đến thời điểm reset sớm nhất. Ghi theo round là ranh giới
// resume: crash giữa chừng chỉ mất round đang chạy.

package harvester

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	githubapi "github.com/thep200/readme-crawler/internal/github_api"
	"github.com/thep200/readme-crawler/internal/model"
	"github.com/thep200/readme-crawler/internal/sink"
	"github.com/thep200/readme-crawler/internal/token"
	"github.com/thep200/readme-crawler/pkg/log"
)

// DetailFetcher lấy payload chi tiết cho một repo. Mọi lỗi đã được nuốt
// bên dưới: README lỗi trả về chuỗi rỗng, collaborators lỗi trả về 0,
// bản ghi vẫn được emit với giá trị degraded.
type DetailFetcher interface {
	Readme(ctx context.Context, user, repo string, tok *token.Token) string
	Collaborators(ctx context.Context, user, repo string, tok *token.Token) int
}

// Notifier bắn thông báo fire-and-forget, lỗi không propagate
type Notifier interface {
	Send(ctx context.Context, content string)
}

// Trạng thái của một worker trong round
const (
	stateReady = iota
	stateFetching
	stateExhausted
)

type Scheduler struct {
	Logger   log.Logger
	Config   *cfg.Config
	Pool     *token.Pool
	Fetcher  DetailFetcher
	Sink     sink.RecordSink
	Notifier Notifier

	scrapedMu sync.Mutex
	scraped   map[string]bool

	// Tách ra để test điều khiển được thời gian
	now   func() time.Time
	sleep func(time.Duration)
}

func NewScheduler(logger log.Logger, config *cfg.Config, pool *token.Pool, fetcher DetailFetcher, recordSink sink.RecordSink, notifier Notifier) (*Scheduler, error) {
	return &Scheduler{
		Logger:   logger,
		Config:   config,
		Pool:     pool,
		Fetcher:  fetcher,
		Sink:     recordSink,
		Notifier: notifier,
		scraped:  make(map[string]bool, 10000),
		now:      time.Now,
		sleep:    time.Sleep,
	}, nil
}

// Harvest chạy vòng lặp driver: mỗi round scrape một chunk, persist batch,
// và nếu còn candidate chưa xử lý thì chờ quota reset rồi đi tiếp.
// Trả về tổng số bản ghi đã ghi ra sink.
func (s *Scheduler) Harvest(ctx context.Context, candidates []githubapi.SearchItem) int {
	total := len(candidates)
	if total == 0 {
		return 0
	}

	roundSize := s.Config.Crawler.ReposPerRound
	if roundSize <= 0 {
		roundSize = total
	}

	written := 0
	cursor := 0
	round := 1

	for cursor < total {
		select {
		case <-ctx.Done():
			return written
		default:
		}

		end := cursor + roundSize
		if end > total {
			end = total
		}
		chunk := candidates[cursor:end]

		s.Logger.Info(ctx, "===== ROUND %d: scrape %d repos (%d/%d đã xử lý) =====", round, len(chunk), cursor, total)
		batch, consumed := s.runRound(ctx, chunk)

		if err := s.Sink.Append(ctx, batch); err != nil {
			s.Logger.Error(ctx, "Ghi batch round %d thất bại: %v", round, err)
		} else {
			written += len(batch)
		}
		cursor += consumed

		s.notify(ctx, fmt.Sprintf("Round %d xong: %d bản ghi, tiến độ %d/%d repos", round, len(batch), cursor, total))

		if cursor < total {
			s.waitForReset(ctx)
			if ctx.Err() != nil {
				return written
			}
		}
		round++
	}

	s.notify(ctx, fmt.Sprintf("Harvest hoàn tất: %d bản ghi từ %d repos", written, total))
	return written
}

// runRound phân phối một chunk cho các worker qua cursor chung có lock.
// Round kết thúc khi chunk cạn hoặc AllExhausted trên toàn pool; phần
// chunk chưa được pull sẽ thuộc về round sau.
func (s *Scheduler) runRound(ctx context.Context, chunk []githubapi.SearchItem) ([]model.ReadmeMessage, int) {
	workers := s.Config.Crawler.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(chunk) {
		workers = len(chunk)
	}

	var cursorMu sync.Mutex
	cursor := 0
	next := func() (githubapi.SearchItem, bool) {
		cursorMu.Lock()
		defer cursorMu.Unlock()
		if cursor >= len(chunk) {
			return githubapi.SearchItem{}, false
		}
		item := chunk[cursor]
		cursor++
		return item, true
	}

	var batchMu sync.Mutex
	batch := make([]model.ReadmeMessage, 0, len(chunk))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			records := s.runWorker(ctx, workerID, workers, next)
			batchMu.Lock()
			batch = append(batch, records...)
			batchMu.Unlock()
		}(i)
	}
	wg.Wait()

	cursorMu.Lock()
	consumed := cursor
	cursorMu.Unlock()
	return batch, consumed
}

func (s *Scheduler) runWorker(ctx context.Context, workerID, workers int, next func() (githubapi.SearchItem, bool)) []model.ReadmeMessage {
	group := s.Pool.Group(workerID, workers)
	records := make([]model.ReadmeMessage, 0)
	state := stateReady
	defer func() {
		s.Logger.Debug(ctx, "Worker %d rời round ở trạng thái %d với %d bản ghi", workerID, state, len(records))
	}()

	for {
		select {
		case <-ctx.Done():
			return records
		default:
		}

		// Stop condition toàn cục: pool cạn thì mọi worker dừng đồng loạt
		// để chờ reset, không chạy cà nhắc trên nhóm token còn sót quota
		if s.Pool.AllExhausted() {
			return records
		}

		tok, ok := s.Pool.Acquire(group)
		if !ok {
			state = stateExhausted
			s.Logger.Info(ctx, "Worker %d hết token usable, dừng round", workerID)
			return records
		}

		item, ok := next()
		if !ok {
			return records
		}

		if s.alreadyScraped(item.HtmlUrl) {
			continue
		}

		state = stateFetching
		user, name := item.Owner.Login, item.Name
		if user == "" {
			user, name = extractUserAndRepo(item.FullName)
		}

		collaborators := s.Fetcher.Collaborators(ctx, user, name, tok)
		// README luôn là call cuối cùng của một repo
		readme := s.Fetcher.Readme(ctx, user, name, tok)

		records = append(records, model.ReadmeMessage{
			Owner:         user,
			Name:          name,
			Stars:         item.StargazersCount,
			Url:           item.HtmlUrl,
			Description:   item.Description,
			Collaborators: collaborators,
			Topics:        strings.Join(item.Topics, ", "),
			Readme:        readme,
		})
		state = stateReady
	}
}

// alreadyScraped check-then-insert trong một lock: mỗi identity chỉ được
// emit ra sink đúng một lần kể cả khi xuất hiện lại ở round sau
func (s *Scheduler) alreadyScraped(url string) bool {
	s.scrapedMu.Lock()
	defer s.scrapedMu.Unlock()
	if s.scraped[url] {
		return true
	}
	s.scraped[url] = true
	return false
}

// waitForReset ngủ đến thời điểm reset sớm nhất cộng safety margin rồi
// khôi phục quota cho toàn pool
func (s *Scheduler) waitForReset(ctx context.Context) {
	wait := time.Duration(s.Config.GithubApi.RateLimitResetMin) * time.Minute
	if resetAt, ok := s.Pool.EarliestReset(); ok {
		if until := resetAt.Sub(s.now()); until > 0 {
			wait = until
		} else {
			wait = 0
		}
	}
	wait += time.Duration(s.Config.Crawler.ResetMarginSec) * time.Second

	s.Logger.Warn(ctx, "Quota cạn, cả pipeline chờ %v đến khi reset", wait.Round(time.Second))
	s.sleep(wait)
	s.Pool.ResetAll()
	s.Logger.Info(ctx, "Đã qua thời điểm reset quota, tiếp tục harvest")
}

func (s *Scheduler) notify(ctx context.Context, content string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Send(ctx, content)
}

// extractUserAndRepo tách full_name dạng "user/repo"
func extractUserAndRepo(fullName string) (string, string) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return fullName, ""
}
