// Gói sink ghi các bản ghi harvest ra đích bền vững sau mỗi round.
// Ghi theo round chứ không chờ kết thúc để crash chỉ mất tối đa một round.

package sink

import (
	"context"

	"github.com/thep200/readme-crawler/internal/model"
)

// RecordSink nhận một batch bản ghi đã hoàn chỉnh. Append-only, không có
// bảo đảm thứ tự giữa các bản ghi.
type RecordSink interface {
	Append(ctx context.Context, records []model.ReadmeMessage) error
}

// MultiSink fan-out một batch ra nhiều sink. Lỗi của sink này không chặn
// sink khác, lỗi đầu tiên được trả về cho caller log.
type MultiSink struct {
	Sinks []RecordSink
}

func NewMultiSink(sinks ...RecordSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) Append(ctx context.Context, records []model.ReadmeMessage) error {
	var firstErr error
	for _, s := range m.Sinks {
		if err := s.Append(ctx, records); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
