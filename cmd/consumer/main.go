package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/internal/model"
	"github.com/thep200/readme-crawler/pkg/db"
	"github.com/thep200/readme-crawler/pkg/kafka"
	"github.com/thep200/readme-crawler/pkg/log"
)

func main() {
	// Load configuration
	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	var logger log.Logger
	logger, err = log.NewZapLogger()
	if err != nil {
		logger, _ = log.NewCslLogger()
	}

	// Setup database
	mysql, _ := db.NewMysql(config)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create model and migrate
	readmeModel, _ := model.NewRepoReadme(config, logger, mysql)
	if err := mysql.Migrate(readmeModel); err != nil {
		logger.Error(ctx, "Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	startReadmeConsumer(ctx, config, logger, readmeModel)

	// Wait for termination signal
	<-sigCh
	logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	cancel()
}

func startReadmeConsumer(ctx context.Context, config *cfg.Config, logger log.Logger, readmeModel *model.RepoReadme) {
	consumer := kafka.NewConsumer(config, logger, config.Kafka.Producer.TopicReadme, "readme-consumer-group")

	// Channel for collecting messages in batches
	batchSize := 100
	batchTimeout := 5 * time.Second

	// Channel to collect messages for batch processing
	messages := make(chan model.ReadmeMessage, batchSize*2)

	// Batch processor
	go processBatchedReadmes(ctx, messages, batchSize, batchTimeout, logger, readmeModel)

	// Register handler for readme messages
	consumer.RegisterHandler("readme", func(data []byte) error {
		var readmeMsg model.ReadmeMessage
		if err := json.Unmarshal(data, &readmeMsg); err != nil {
			return fmt.Errorf("failed to unmarshal readme message: %w", err)
		}

		// Send to batch channel instead of processing individually
		select {
		case messages <- readmeMsg:
			// Message added to batch
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	})

	// Start consumer in a goroutine
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error(ctx, "Readme consumer error: %v", err)
		}
	}()

	logger.Info(ctx, "Readme consumer started successfully")
}

// processBatchedReadmes gom message thành batch rồi ghi một lần vào mysql
func processBatchedReadmes(ctx context.Context, messages <-chan model.ReadmeMessage, batchSize int,
	batchTimeout time.Duration, logger log.Logger, readmeModel *model.RepoReadme) {

	var batch []model.ReadmeMessage
	timer := time.NewTimer(batchTimeout)

	for {
		select {
		case <-ctx.Done():
			// Process remaining messages before exiting
			if len(batch) > 0 {
				processSingleBatch(ctx, batch, logger, readmeModel)
			}
			return

		case msg := <-messages:
			batch = append(batch, msg)

			// Process batch when it reaches the desired size
			if len(batch) >= batchSize {
				processSingleBatch(ctx, batch, logger, readmeModel)
				batch = nil // Reset batch
				timer.Reset(batchTimeout)
			}

		case <-timer.C:
			// Process batch on timeout if there are any messages
			if len(batch) > 0 {
				processSingleBatch(ctx, batch, logger, readmeModel)
				batch = nil // Reset batch
			}
			timer.Reset(batchTimeout)
		}
	}
}

// Process a single batch of readme records
func processSingleBatch(ctx context.Context, batch []model.ReadmeMessage, logger log.Logger, readmeModel *model.RepoReadme) {
	if len(batch) == 0 {
		return
	}

	logger.Info(ctx, "Processing batch of %d readme records", len(batch))

	err := readmeModel.CreateBatch(batch)
	if err != nil {
		logger.Error(ctx, "Failed to save batch of readme records: %v", err)
	} else {
		logger.Info(ctx, "Successfully saved batch of %d readme records", len(batch))
	}
}
