// Gói githubapi cung cấp một caller cho GitHub API.
// Caller thực hiện search theo star range, lấy README và số collaborator,
// đồng thời ghi nhận quota từ header của mọi response vào token pool.
// Mọi lỗi network/non-200 đều được nuốt tại chỗ: caller trả về kết quả
// partial (hoặc rỗng), không bao giờ propagate error lên vòng lặp crawl.

package githubapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/internal/limiter"
	"github.com/thep200/readme-crawler/internal/token"
	"github.com/thep200/readme-crawler/pkg/log"
)

// ResultCap là giới hạn cứng của GitHub search API: không bao giờ trả
// quá 1000 item cho một query dù total_count lớn hơn.
const ResultCap = 1000

var lastPageRe = regexp.MustCompile(`page=(\d+)>; rel="last"`)

type Caller struct {
	Logger      log.Logger
	Config      *cfg.Config
	Pool        *token.Pool
	rateLimiter *limiter.RateLimiter
	client      *http.Client
}

func NewCaller(logger log.Logger, config *cfg.Config, pool *token.Pool) *Caller {
	return &Caller{
		Logger:      logger,
		Config:      config,
		Pool:        pool,
		rateLimiter: limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond),
		client: &http.Client{
			Timeout: time.Duration(config.GithubApi.RequestTimeoutSec) * time.Second,
		},
	}
}

// SearchRange thực hiện một query star range, phân trang đến hết hoặc đến
// result cap. Trả về danh sách item tích lũy được; kết quả bằng ResultCap
// nghĩa là range có thể bị truncate và enumerator phải chia nhỏ lại.
func (c *Caller) SearchRange(ctx context.Context, low, high int, tok *token.Token) []SearchItem {
	items := make([]SearchItem, 0, c.Config.GithubApi.PerPage)

	for page := 1; page <= c.Config.GithubApi.MaxPages; page++ {
		c.applyRateLimit()

		url := fmt.Sprintf("%s?q=stars:%d..%d&sort=stars&order=desc&per_page=%d&page=%d",
			c.Config.GithubApi.SearchApiUrl, low, high, c.Config.GithubApi.PerPage, page)

		resp, err := c.doRequest(ctx, url, tok)
		if err != nil {
			c.Logger.Warn(ctx, "Search stars:%d..%d page %d failed: %v", low, high, page, err)
			return items
		}

		rawResponse := &RawResponse{}
		err = json.NewDecoder(resp.Body).Decode(rawResponse)
		resp.Body.Close()
		if err != nil {
			c.Logger.Warn(ctx, "Search stars:%d..%d page %d decode failed: %v", low, high, page, err)
			return items
		}

		if len(rawResponse.Items) == 0 {
			return items
		}
		items = append(items, rawResponse.Items...)

		if len(items) >= rawResponse.TotalCount || len(items) >= ResultCap {
			break
		}
	}

	if len(items) > ResultCap {
		items = items[:ResultCap]
	}
	return items
}

// Readme lấy nội dung README của một repo, decode base64 và cắt ngay tại
// fetch time theo ReadmeCharLimit để chặn memory/storage per record.
// Không có README hoặc decode lỗi thì trả về chuỗi rỗng.
func (c *Caller) Readme(ctx context.Context, user, repo string, tok *token.Token) string {
	url := strings.ReplaceAll(c.Config.GithubApi.ReadmeApiUrl, "{user}", user)
	url = strings.ReplaceAll(url, "{repo}", repo)

	c.applyRateLimit()
	resp, err := c.doRequest(ctx, url, tok)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	readmeResponse := &ReadmeResponse{}
	if err := json.NewDecoder(resp.Body).Decode(readmeResponse); err != nil {
		c.Logger.Warn(ctx, "Decode readme response for %s/%s failed: %v", user, repo, err)
		return ""
	}

	// README được encode base64, có thể kèm newline giữa chừng
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(readmeResponse.Content, "\n", ""))
	if err != nil {
		c.Logger.Warn(ctx, "Decode base64 readme for %s/%s failed: %v", user, repo, err)
		return ""
	}

	return truncateRunes(string(decoded), c.Config.Crawler.ReadmeCharLimit)
}

// Collaborators lấy số collaborator qua Link header: request per_page=1 rồi
// đọc số trang cuối, chính là tổng số collaborator. Lỗi nào cũng trả về 0.
func (c *Caller) Collaborators(ctx context.Context, user, repo string, tok *token.Token) int {
	url := strings.ReplaceAll(c.Config.GithubApi.CollaboratorsUrl, "{user}", user)
	url = strings.ReplaceAll(url, "{repo}", repo)
	url += "?per_page=1"

	c.applyRateLimit()
	resp, err := c.doRequest(ctx, url, tok)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	if link := resp.Header.Get("Link"); link != "" {
		if m := lastPageRe.FindStringSubmatch(link); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}

	var collaborators []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&collaborators); err != nil {
		return 0
	}
	return len(collaborators)
}

// doRequest gửi một request kèm token, ghi nhận quota header và trả về
// response cho status 200. Mọi status khác là error để caller nuốt.
func (c *Caller) doRequest(ctx context.Context, url string, tok *token.Token) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if tok != nil && tok.Value != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tok.Value))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	c.recordQuota(resp, tok)

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected response status: %s", resp.Status)
	}
	return resp, nil
}

// recordQuota đọc X-RateLimit-Remaining/X-RateLimit-Reset và cập nhật pool.
// Header vắng mặt thì giữ nguyên trạng thái token (optimistic default):
// lỗi thật sẽ nổi lên qua error path của chính request, không qua quota.
func (c *Caller) recordQuota(resp *http.Response, tok *token.Token) {
	if tok == nil {
		return
	}

	remainingStr := resp.Header.Get("X-RateLimit-Remaining")
	if remainingStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return
	}

	var resetAt time.Time
	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetUnix, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(resetUnix, 0)
		}
	}

	c.Pool.RecordResponse(tok, remaining, resetAt)
}

// truncateRunes cắt theo ký tự chứ không theo byte: README đầy emoji mà
// cắt giữa một rune nhiều byte sẽ sinh UTF-8 hỏng trong dataset
func truncateRunes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func (c *Caller) applyRateLimit() {
	baseDelay := time.Duration(c.Config.GithubApi.ThrottleDelay) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	for !c.rateLimiter.Allow() {
		time.Sleep(baseDelay)
	}
}
