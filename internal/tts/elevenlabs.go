package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iabetor/mathspeech/internal/logger"
)

const elevenLabsProvider = "elevenlabs"

// ElevenLabsConfig ElevenLabs 引擎配置。
type ElevenLabsConfig struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
	// SendLanguage 为 true 时在请求中携带 language_code，仅部分模型支持。
	SendLanguage bool
}

// ElevenLabsEngine 通过 ElevenLabs REST 接口合成 MP3。
type ElevenLabsEngine struct {
	apiURL       string
	apiKey       string
	model        string
	sendLanguage bool
	httpClient   *http.Client
}

// NewElevenLabsEngine 创建 ElevenLabs 引擎，API Key 不能为空。
func NewElevenLabsEngine(cfg ElevenLabsConfig) (*ElevenLabsEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("[tts] ElevenLabs API Key 未配置")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	logger.Infof("[tts] ElevenLabs 引擎已初始化 (model=%s, api=%s)", cfg.Model, cfg.APIURL)
	return &ElevenLabsEngine{
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		sendLanguage: cfg.SendLanguage,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	LanguageCode  string        `json:"language_code,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize 调用 POST /v1/text-to-speech/{voice_id}。
func (e *ElevenLabsEngine) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	text := Truncate(req.Text, MaxTextChars)

	body := elevenLabsRequest{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: voiceSettings{
			Stability:       req.Stability,
			SimilarityBoost: req.Clarity,
		},
	}
	if e.sendLanguage {
		body.LanguageCode = req.Language
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[tts] 序列化请求体失败: %w", err)
	}

	logger.Infof("[tts] ElevenLabs: 正在合成 %d 个字符，voice=%s, language=%s",
		len([]rune(text)), req.VoiceID, req.Language)

	endpoint := e.apiURL + "/v1/text-to-speech/" + url.PathEscape(req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建请求失败: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &SynthesisError{Provider: elevenLabsProvider, Message: Redact(err.Error(), e.apiKey), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := Redact(providerMessage(b), e.apiKey)
		logger.Warnf("[tts] ElevenLabs 返回状态码 %d: %s", resp.StatusCode, msg)
		return nil, &SynthesisError{Provider: elevenLabsProvider, Status: resp.StatusCode, Message: msg}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Provider: elevenLabsProvider, Message: "读取音频失败", Err: err}
	}
	if len(data) == 0 {
		return nil, &SynthesisError{Provider: elevenLabsProvider, Status: resp.StatusCode, Message: "未收到音频数据"}
	}

	logger.Infof("[tts] ElevenLabs: 收到 %d 字节 MP3，耗时 %s", len(data), time.Since(start).Round(time.Millisecond))
	return mp3Audio(data), nil
}

// Verify 通过 GET /v1/voices 校验 API Key 是否可用。
func (e *ElevenLabsEngine) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiURL+"/v1/voices", nil)
	if err != nil {
		return fmt.Errorf("[tts] 创建请求失败: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return &SynthesisError{Provider: elevenLabsProvider, Message: Redact(err.Error(), e.apiKey), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &SynthesisError{
			Provider: elevenLabsProvider,
			Status:   resp.StatusCode,
			Message:  "invalid ElevenLabs API key: " + Redact(providerMessage(b), e.apiKey),
		}
	}
	return nil
}

// providerMessage 尽量从 ElevenLabs 的错误体中取出可读信息。
// 错误体可能是 {"detail":{"message":...}}、{"detail":"..."} 或纯文本。
func providerMessage(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		var detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		if json.Unmarshal(parsed.Detail, &detail) == nil && detail.Message != "" {
			if detail.Status != "" {
				return detail.Status + ": " + detail.Message
			}
			return detail.Message
		}
		var s string
		if json.Unmarshal(parsed.Detail, &s) == nil && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty error response"
	}
	return msg
}
