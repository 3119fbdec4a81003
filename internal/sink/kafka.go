package sink

import (
	"context"

	"github.com/thep200/readme-crawler/internal/model"
	"github.com/thep200/readme-crawler/pkg/kafka"
	"github.com/thep200/readme-crawler/pkg/log"
)

// KafkaSink đẩy từng bản ghi vào topic readme để consumer ghi vào mysql
type KafkaSink struct {
	Logger   log.Logger
	producer *kafka.Producer
}

func NewKafkaSink(logger log.Logger, producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{
		Logger:   logger,
		producer: producer,
	}
}

func (s *KafkaSink) Append(ctx context.Context, records []model.ReadmeMessage) error {
	var firstErr error
	for _, r := range records {
		if err := s.producer.Publish(ctx, "readme", r); err != nil {
			s.Logger.Error(ctx, "Publish readme record %s/%s failed: %v", r.Owner, r.Name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
