// Package api cung cấp facade public để khởi tạo và chạy readme scraper
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/internal/enumerator"
	githubapi "github.com/thep200/readme-crawler/internal/github_api"
	"github.com/thep200/readme-crawler/internal/harvester"
	"github.com/thep200/readme-crawler/internal/notify"
	"github.com/thep200/readme-crawler/internal/sink"
	"github.com/thep200/readme-crawler/internal/token"
	"github.com/thep200/readme-crawler/pkg/kafka"
	"github.com/thep200/readme-crawler/pkg/log"
)

// RunStats chứa thống kê về một lần chạy scrape
type RunStats struct {
	IsRunning       bool      `json:"isRunning"`
	StartTime       time.Time `json:"startTime"`
	Duration        string    `json:"duration"`
	ReposEnumerated int       `json:"reposEnumerated"`
	RecordsWritten  int       `json:"recordsWritten"`
	LastError       string    `json:"lastError"`
}

// ScraperAPI nối các thành phần enumerate/harvest thành một pipeline
type ScraperAPI struct {
	ctx        context.Context
	config     *cfg.Config
	logger     log.Logger
	pool       *token.Pool
	caller     *githubapi.Caller
	enumerator *enumerator.Enumerator
	scheduler  *harvester.Scheduler
	kafkaSink  *sink.KafkaSink
	statsMu    sync.RWMutex
	stats      *RunStats
}

func NewScraperAPI() *ScraperAPI {
	return &ScraperAPI{
		stats: &RunStats{},
	}
}

// Initialize khởi tạo các thành phần cần thiết cho scraper.
// Không có token nào usable là lỗi fatal: hệ thống từ chối start.
func (a *ScraperAPI) Initialize(ctx context.Context) error {
	a.ctx = ctx

	var err error

	// Load configuration
	loader, _ := cfg.NewViperLoader()
	a.config, err = loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Set up logger
	a.logger, err = log.NewZapLogger()
	if err != nil {
		a.logger, _ = log.NewCslLogger()
	}

	// Token pool: startup check, zero capacity thì dừng ngay
	a.pool, err = token.NewPool(a.config.GithubApi.Tokens, a.config.GithubApi.LowWatermark, a.config.GithubApi.QuotaCeiling)
	if err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}
	a.logger.Info(ctx, "Dùng %d token, tổng quota %d requests/giờ",
		a.pool.Size(), a.pool.Size()*a.config.GithubApi.QuotaCeiling)

	// Caller + enumerator + cache
	a.caller = githubapi.NewCaller(a.logger, a.config, a.pool)
	cache := enumerator.NewCache(a.logger, a.config)
	a.enumerator, err = enumerator.NewEnumerator(a.logger, a.config, a.pool, a.caller, cache)
	if err != nil {
		return fmt.Errorf("failed to create enumerator: %w", err)
	}

	// Sink: CSV luôn bật, kafka tùy config
	sinks := []sink.RecordSink{sink.NewCsvSink(a.config.Csv.Path)}
	if a.config.Kafka.Enabled {
		producer := kafka.NewProducer(a.config, a.logger, a.config.Kafka.Producer.TopicReadme)
		a.kafkaSink = sink.NewKafkaSink(a.logger, producer)
		sinks = append(sinks, a.kafkaSink)
	}

	webhook := notify.NewWebhook(a.logger, a.config)
	a.scheduler, err = harvester.NewScheduler(a.logger, a.config, a.pool, a.caller, sink.NewMultiSink(sinks...), webhook)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	return nil
}

// Run chạy pipeline enumerate -> harvest và cập nhật stats
func (a *ScraperAPI) Run() error {
	startTime := time.Now()
	a.setStats(func(s *RunStats) {
		s.IsRunning = true
		s.StartTime = startTime
		s.LastError = ""
	})

	candidates := a.enumerator.Enumerate(a.ctx)
	a.setStats(func(s *RunStats) { s.ReposEnumerated = len(candidates) })

	written := a.scheduler.Harvest(a.ctx, candidates)

	if a.kafkaSink != nil {
		if err := a.kafkaSink.Close(); err != nil {
			a.logger.Error(a.ctx, "Error closing kafka sink: %v", err)
		}
	}

	a.setStats(func(s *RunStats) {
		s.IsRunning = false
		s.RecordsWritten = written
		s.Duration = time.Since(startTime).Round(time.Second).String()
	})

	a.logger.Info(a.ctx, "==== KẾT QUẢ SCRAPE ====")
	a.logger.Info(a.ctx, "Repos enumerate được: %d", len(candidates))
	a.logger.Info(a.ctx, "Bản ghi đã ghi ra sink: %d", written)
	a.logger.Info(a.ctx, "Tổng thời gian: %v", time.Since(startTime).Round(time.Second))

	if written == 0 && len(candidates) > 0 {
		return fmt.Errorf("no records written for %d candidates", len(candidates))
	}
	return nil
}

// GetStats trả về snapshot thống kê hiện tại
func (a *ScraperAPI) GetStats() RunStats {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()
	return *a.stats
}

func (a *ScraperAPI) setStats(update func(*RunStats)) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	update(a.stats)
}
