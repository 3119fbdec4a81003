// Gói token quản lý quota của từng GitHub token.
// Mỗi token có trạng thái {remaining, resetAt, limited} riêng, chỉ được
// đọc/ghi qua các method có lock của Pool, không mutate trực tiếp từ worker.

package token

import (
	"errors"
	"sync"
	"time"
)

var ErrNoTokens = errors.New("no github tokens configured")

// Token là một credential kèm trạng thái quota mutable.
// Sống suốt vòng đời process, chỉ được mutate qua Pool.
type Token struct {
	Value     string
	Index     int
	Remaining int
	ResetAt   time.Time
	Limited   bool
}

type Pool struct {
	mu           sync.Mutex
	tokens       []*Token
	lowWatermark int
	quotaCeiling int
}

// NewPool khởi tạo pool từ danh sách token. Không có token nào là lỗi fatal,
// hệ thống từ chối chạy với zero capacity.
func NewPool(values []string, lowWatermark, quotaCeiling int) (*Pool, error) {
	if len(values) == 0 {
		return nil, ErrNoTokens
	}

	tokens := make([]*Token, 0, len(values))
	for i, v := range values {
		tokens = append(tokens, &Token{
			Value:     v,
			Index:     i,
			Remaining: quotaCeiling,
		})
	}

	return &Pool{
		tokens:       tokens,
		lowWatermark: lowWatermark,
		quotaCeiling: quotaCeiling,
	}, nil
}

func (p *Pool) Size() int {
	return len(p.tokens)
}

// Group trả về các index token gán cho một worker theo round-robin.
// Khi số worker ít hơn số token thì một worker giữ nhiều token.
func (p *Pool) Group(workerID, workers int) []int {
	indices := make([]int, 0)
	for i := workerID; i < len(p.tokens); i += workers {
		indices = append(indices, i)
	}
	if len(indices) == 0 {
		// Nhiều worker hơn token thì chia sẻ token theo modulo
		indices = append(indices, workerID%len(p.tokens))
	}
	return indices
}

// Acquire trả về token đầu tiên trong group chưa bị limited.
// Chỉ scan read-only, không có side effect.
func (p *Pool) Acquire(group []int) (*Token, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, idx := range group {
		if idx < 0 || idx >= len(p.tokens) {
			continue
		}
		if !p.tokens[idx].Limited {
			return p.tokens[idx], true
		}
	}
	return nil, false
}

// RecordResponse cập nhật quota từ header của một response.
// Token bị đánh dấu limited khi remaining xuống dưới low watermark.
// Response không có header quota thì không gọi hàm này (optimistic default).
func (p *Pool) RecordResponse(t *Token, remaining int, resetAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t.Remaining = remaining
	if !resetAt.IsZero() {
		t.ResetAt = resetAt
	}
	t.Limited = remaining < p.lowWatermark
}

// AllExhausted trả về true khi mọi token đều đã limited
func (p *Pool) AllExhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.tokens {
		if !t.Limited {
			return false
		}
	}
	return true
}

// EarliestReset trả về thời điểm reset sớm nhất trong số các token limited
func (p *Pool) EarliestReset() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var earliest time.Time
	found := false
	for _, t := range p.tokens {
		if !t.Limited || t.ResetAt.IsZero() {
			continue
		}
		if !found || t.ResetAt.Before(earliest) {
			earliest = t.ResetAt
			found = true
		}
	}
	return earliest, found
}

// ResetAll xóa cờ limited và khôi phục remaining về ceiling.
// Gọi sau khi đã chờ qua thời điểm reset quota.
func (p *Pool) ResetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.tokens {
		t.Limited = false
		t.Remaining = p.quotaCeiling
		t.ResetAt = time.Time{}
	}
}
