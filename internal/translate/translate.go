// Package translate 在合成前把文本翻译成目标语言（腾讯云机器翻译）。
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"

	"github.com/iabetor/mathspeech/internal/logger"
	"github.com/iabetor/mathspeech/internal/tts"
)

// maxRequestChars 单次 TextTranslate 请求的文本上限（按字符计，留余量）。
const maxRequestChars = 1500

// supportedTargets 腾讯云机器翻译支持的目标语言中与本服务相关的部分。
var supportedTargets = map[string]bool{
	"en": true,
	"es": true,
	"fr": true,
	"de": true,
	"it": true,
}

// Error 是翻译接口返回的失败。Message 已去除密钥，Err 保留 SDK 原始错误供 errors.As 判断。
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return "[translate] 翻译请求失败: " + e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Translator 将文本翻译为目标语言。
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

type textTranslator interface {
	TextTranslateWithContext(ctx context.Context, request *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error)
}

// Tencent 腾讯云机器翻译。
type Tencent struct {
	client    textTranslator
	source    string
	secretKey string
}

// NewTencent 创建翻译客户端，source 为空时自动检测源语言。
func NewTencent(secretID, secretKey, region, source string) (*Tencent, error) {
	if secretID == "" || secretKey == "" {
		return nil, fmt.Errorf("[translate] 需要腾讯云 SecretID 和 SecretKey")
	}
	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tmt.tencentcloudapi.com"

	client, err := tmt.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[translate] 创建翻译客户端失败: %w", err)
	}

	logger.Info("[translate] 翻译客户端已初始化")
	return newTencent(client, source, secretKey), nil
}

func newTencent(client textTranslator, source, secretKey string) *Tencent {
	if source == "" {
		source = "auto"
	}
	return &Tencent{client: client, source: source, secretKey: secretKey}
}

// Translate 翻译文本。目标语言为英语或不受支持时原样返回。
// 长文本按句分段翻译后以空格拼接。
func (t *Tencent) Translate(ctx context.Context, text, target string) (string, error) {
	if target == "" || target == "en" || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if !supportedTargets[target] {
		logger.Warnf("[translate] 不支持的目标语言 %s，跳过翻译", target)
		return text, nil
	}

	chunks := tts.Chunk(text, maxRequestChars)
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		request := tmt.NewTextTranslateRequest()
		request.SourceText = common.StringPtr(chunk)
		request.Source = common.StringPtr(t.source)
		request.Target = common.StringPtr(target)
		request.ProjectId = common.Int64Ptr(0)

		response, err := t.client.TextTranslateWithContext(ctx, request)
		if err != nil {
			return "", &Error{Message: tts.Redact(err.Error(), t.secretKey), Err: err}
		}
		if response.Response == nil || response.Response.TargetText == nil {
			return "", fmt.Errorf("[translate] 翻译响应为空")
		}
		out = append(out, *response.Response.TargetText)
	}

	result := strings.Join(out, " ")
	logger.Debugf("[translate] 翻译完成: %s -> %s, %d 段", t.source, target, len(chunks))
	return result, nil
}
