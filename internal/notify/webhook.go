// Gói notify bắn thông báo tiến độ lên một webhook (kiểu Discord).
// Fire-and-forget: lỗi chỉ được log, không bao giờ propagate.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/pkg/log"
)

type Webhook struct {
	Logger log.Logger
	Url    string
	client *http.Client
}

func NewWebhook(logger log.Logger, config *cfg.Config) *Webhook {
	return &Webhook{
		Logger: logger,
		Url:    config.Webhook.Url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send POST một payload {"content": ...}. Url rỗng thì no-op.
func (w *Webhook) Send(ctx context.Context, content string) {
	if w.Url == "" {
		return
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		w.Logger.Warn(ctx, "Marshal webhook payload failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Url, bytes.NewReader(body))
	if err != nil {
		w.Logger.Warn(ctx, "Build webhook request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.Logger.Warn(ctx, "Send webhook failed: %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.Logger.Warn(ctx, "Webhook responded with status %s", resp.Status)
	}
}
