package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iabetor/mathspeech/internal/logger"
)

// OpenAIProvider 调用 OpenAI 兼容的 /chat/completions 接口（非流式）。
type OpenAIProvider struct {
	apiURL      string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

type Option func(*OpenAIProvider)

// WithTimeout 设置单次请求的超时时间。
func WithTimeout(d time.Duration) Option {
	return func(p *OpenAIProvider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithTemperature 设置采样温度，改写任务默认 0.2。
func WithTemperature(t float64) Option {
	return func(p *OpenAIProvider) { p.temperature = t }
}

func NewOpenAIProvider(apiURL, apiKey, model string, opts ...Option) *OpenAIProvider {
	p := &OpenAIProvider{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: 0.2,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat 发送对话并返回第一条候选回复，回复为空视为失败。
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("[llm] 序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("[llm] 创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("[llm] 请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("[llm] 读取响应失败: %w", err)
	}

	var out completionResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return "", fmt.Errorf("[llm] API 返回状态码 %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("[llm] 解析响应失败: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("[llm] 响应中没有候选回复")
	}

	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("[llm] 回复为空")
	}
	if out.Choices[0].FinishReason == "length" {
		logger.Warnf("[llm] 回复被截断 (model=%s)", p.model)
	}
	logger.Debugf("[llm] 回复 %d 字符, 耗时 %s", len([]rune(reply)), time.Since(start).Round(time.Millisecond))
	return reply, nil
}
