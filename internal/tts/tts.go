// Package tts 封装语音合成服务商：ElevenLabs、Edge TTS 与腾讯云 TTS。
// 所有引擎都返回完整的 MP3 音频字节。
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextChars 是单次合成请求允许的最大字符数，超出部分直接截断。
const MaxTextChars = 5000

var (
	// ErrInvalidRequest 表示请求参数在发送前就不合法。
	ErrInvalidRequest = errors.New("invalid synthesis request")
	// ErrSynthesisFailed 是所有服务商侧失败的统一判定条件，配合 errors.Is 使用。
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// Request 是一次合成请求。Stability 与 Clarity 取值范围为 [0, 1]。
type Request struct {
	Text      string  `json:"text"`
	VoiceID   string  `json:"voiceId"`
	Language  string  `json:"language"`
	Stability float64 `json:"stability"`
	Clarity   float64 `json:"clarity"`
}

// Validate 检查请求参数，越界的 stability/clarity 直接拒绝而不是钳位。
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if r.VoiceID == "" {
		return fmt.Errorf("%w: voiceId is required", ErrInvalidRequest)
	}
	if !validVoiceID(r.VoiceID) {
		return fmt.Errorf("%w: malformed voiceId %q", ErrInvalidRequest, r.VoiceID)
	}
	if _, ok := LookupLanguage(r.Language); !ok {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, r.Language)
	}
	if r.Stability < 0 || r.Stability > 1 {
		return fmt.Errorf("%w: stability %.2f is outside [0, 1]", ErrInvalidRequest, r.Stability)
	}
	if r.Clarity < 0 || r.Clarity > 1 {
		return fmt.Errorf("%w: clarity %.2f is outside [0, 1]", ErrInvalidRequest, r.Clarity)
	}
	return nil
}

// validVoiceID 只接受字母、数字、'-' 和 '_'，音色 ID 会被拼进服务商的 URL。
func validVoiceID(id string) bool {
	if len(id) > 64 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// Audio 是合成得到的音频。
type Audio struct {
	Data        []byte
	Format      string // 如 "mp3"
	ContentType string
}

func mp3Audio(data []byte) *Audio {
	return &Audio{Data: data, Format: "mp3", ContentType: "audio/mpeg"}
}

// Synthesizer 定义语音合成后端接口。
type Synthesizer interface {
	// Synthesize 将文本转换为音频，失败时返回满足 errors.Is(err, ErrSynthesisFailed) 的错误。
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

// SynthesisError 携带服务商返回的诊断信息，Message 已去除密钥。
type SynthesisError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *SynthesisError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("[tts] %s: %s (status %d): %s", e.Provider, ErrSynthesisFailed, e.Status, e.Message)
	}
	return fmt.Sprintf("[tts] %s: %s: %s", e.Provider, ErrSynthesisFailed, e.Message)
}

func (e *SynthesisError) Is(target error) bool { return target == ErrSynthesisFailed }

func (e *SynthesisError) Unwrap() error { return e.Err }

// Redact 把消息中出现的密钥替换为 ***。
func Redact(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "***")
		}
	}
	return msg
}

// Truncate 按字符（rune）截断文本，不考虑句子边界。
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}
