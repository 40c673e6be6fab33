package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/iabetor/mathspeech/internal/extract"
	"github.com/iabetor/mathspeech/internal/tts"
)

// Kind 是面向用户的失败分类，每类对应不同的补救操作。
type Kind int

const (
	// KindUnknown 未预料的错误。
	KindUnknown Kind = iota
	// KindInvalidInput 输入不合法（非 PDF、没有文本、参数越界），请求不会发出。
	KindInvalidInput
	// KindExtraction PDF 无法解析，应重新上传有效文件。
	KindExtraction
	// KindUpload 保存上传文档失败。
	KindUpload
	// KindSynthesis 语音服务商拒绝或不可达，可重试音频请求。
	KindSynthesis
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindExtraction:
		return "extraction"
	case KindUpload:
		return "upload"
	case KindSynthesis:
		return "synthesis"
	default:
		return "unknown"
	}
}

// Error 是流水线任一阶段的终止性失败，携带简短标题和详细描述。
type Error struct {
	Kind   Kind
	Title  string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[pipeline] %s: %s: %v", e.Kind, e.Title, e.Err)
	}
	return fmt.Sprintf("[pipeline] %s: %s: %s", e.Kind, e.Title, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, title, detail string, err error) *Error {
	return &Error{Kind: kind, Title: title, Detail: detail, Err: err}
}

// Classify 把任意错误归入 Kind，已经是 *Error 的原样返回，nil 返回 nil。
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	var exErr *extract.Error
	var synErr *tts.SynthesisError
	switch {
	case errors.Is(err, extract.ErrNotPDF):
		return newError(KindInvalidInput, "Invalid file type", "Please upload a PDF file", err)
	case errors.As(err, &exErr):
		return newError(KindExtraction, "Error processing PDF", fmt.Sprintf("Failed to extract text from PDF: %v", exErr.Err), err)
	case errors.Is(err, tts.ErrInvalidRequest):
		return newError(KindInvalidInput, "Invalid request", err.Error(), err)
	case errors.As(err, &synErr):
		return newError(KindSynthesis, "Failed to generate audio", synErr.Message, err)
	case errors.Is(err, tts.ErrSynthesisFailed):
		return newError(KindSynthesis, "Failed to generate audio", err.Error(), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(KindUnknown, "Request cancelled", err.Error(), err)
	}
	return newError(KindUnknown, "Unexpected error", "An unknown error occurred.", err)
}
