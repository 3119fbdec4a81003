// Gói classifier gán nhãn affiliation cho README qua một chat-completion
// API. Model được ép trả về đúng một từ trong vocabulary đóng; phản hồi
// được normalize rồi match substring, không match được thì rơi về "none".

package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/thep200/readme-crawler/cfg"
	"github.com/thep200/readme-crawler/pkg/log"
)

// DefaultLabel là nhãn sentinel khi không tìm thấy affiliation rõ ràng
const DefaultLabel = "none"

// Labels là vocabulary đóng, thứ tự match cố định
var Labels = []string{"israel", "palestine", "blm", "ukraine", "climate", "feminism", "lgbtq"}

const systemPrompt = `You are a classification AI. Your ONLY task is to respond with EXACTLY ONE WORD.

Analyze the README and description content to classify the repository's affiliation/activism:

- israel (if mentions: Israel, Israeli support, Israeli tech, pro-Israel, Stand with Israel)
- palestine (if mentions: Palestine, Gaza, Palestinian support, Free Palestine, pro-Palestine)
- blm (if mentions: Black Lives Matter, BLM, racial justice, anti-racism)
- ukraine (if mentions: Ukraine, Ukrainian support, Stand with Ukraine, pro-Ukraine)
- climate (if mentions: Climate change, environmental activism, sustainability, climate action)
- feminism (if mentions: Women's rights, feminism, gender equality, women empowerment)
- lgbtq (if mentions: LGBTQ, LGBT, gay rights, pride, queer, transgender)
- none (if no clear political/social activism affiliation found or neutral content)

RULES:
1. Respond with EXACTLY ONE WORD: israel, palestine, blm, ukraine, climate, feminism, lgbtq, or none
2. Use lowercase only
3. No punctuation, no explanation, no additional text
4. Only classify if there is CLEAR evidence in the README or description
5. If unclear or neutral, respond: none
6. Choose the MOST DOMINANT affiliation if multiple are present`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type Classifier struct {
	Logger log.Logger
	Config *cfg.Config
	client *http.Client
	sleep  func(time.Duration)
}

func NewClassifier(logger log.Logger, config *cfg.Config) (*Classifier, error) {
	return &Classifier{
		Logger: logger,
		Config: config,
		client: &http.Client{
			Timeout: time.Duration(config.Classifier.RequestTimeoutSec) * time.Second,
		},
		sleep: time.Sleep,
	}, nil
}

// Classify trả về một nhãn trong Labels hoặc DefaultLabel. Retry với
// exponential backoff, hết lượt retry thì rơi về DefaultLabel vì phân loại
// thất bại không bao giờ được chặn pipeline.
func (c *Classifier) Classify(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return DefaultLabel
	}

	// Cắt theo rune để không gửi UTF-8 hỏng khi limit rơi giữa một emoji
	if limit := c.Config.Classifier.MaxChars; limit > 0 && len(text) > limit {
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit])
		}
	}

	payload := chatRequest{
		Model: c.Config.Classifier.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("README content:\n\n%s\n\nClassification:", text)},
		},
		Temperature: 0.0,
		MaxTokens:   10,
		Stream:      false,
	}

	maxRetries := c.Config.Classifier.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		answer, err := c.callOnce(ctx, payload)
		if err == nil {
			return MatchLabel(answer)
		}

		c.Logger.Warn(ctx, "Classify attempt %d/%d failed: %v", attempt+1, maxRetries, err)
		if attempt < maxRetries-1 {
			c.sleep(time.Duration(1<<attempt) * time.Second)
		}
	}

	c.Logger.Warn(ctx, "Classify hết lượt retry, trả về nhãn mặc định %q", DefaultLabel)
	return DefaultLabel
}

func (c *Classifier) callOnce(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.Classifier.ApiUrl, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Config.Classifier.ApiKey))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %s", resp.Status)
	}

	chatResp := &chatResponse{}
	if err := json.NewDecoder(resp.Body).Decode(chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// MatchLabel normalize phản hồi (lowercase, bỏ punctuation) rồi tìm nhãn
// hợp lệ đầu tiên xuất hiện như substring; không có thì DefaultLabel.
func MatchLabel(answer string) string {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	normalized = strings.NewReplacer(".", "", "!", "", ",", "", "\"", "", "'", "").Replace(normalized)

	for _, label := range Labels {
		if strings.Contains(normalized, label) {
			return label
		}
	}
	return DefaultLabel
}
