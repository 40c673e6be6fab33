package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tctts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/mathspeech/internal/logger"
)

const (
	tencentProvider = "tencent"
	// tencentChunkChars 腾讯云单次请求的英文文本上限约 500 字符，这里留余量。
	tencentChunkChars = 400
)

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	VoiceType int64
	Region    string
	Speed     float64
}

// TencentEngine 使用腾讯云 TTS 合成 MP3。
// 长文本按句切块分别合成后拼接，MP3 帧可以直接首尾相接。
type TencentEngine struct {
	client    *tctts.Client
	voiceType int64
	speed     float64
	secretKey string
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS 需要 SecretID 和 SecretKey")
	}
	if cfg.VoiceType == 0 {
		cfg.VoiceType = 101051 // 英文女声
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tctts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建腾讯云 TTS 客户端失败: %w", err)
	}

	logger.Infof("[tts] 腾讯云 TTS 引擎已初始化 (voice=%d, region=%s)", cfg.VoiceType, cfg.Region)
	return &TencentEngine{
		client:    client,
		voiceType: cfg.VoiceType,
		speed:     cfg.Speed,
		secretKey: cfg.SecretKey,
	}, nil
}

// Synthesize 将文本分块合成并拼接为一段 MP3。
func (e *TencentEngine) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	chunks := Chunk(Truncate(req.Text, MaxTextChars), tencentChunkChars)

	var out bytes.Buffer
	for i, chunk := range chunks {
		request := tctts.NewTextToVoiceRequest()
		request.Text = common.StringPtr(chunk)
		request.SessionId = common.StringPtr(uuid.NewString())
		request.VoiceType = common.Int64Ptr(e.voiceType)
		request.Codec = common.StringPtr("mp3")
		request.Speed = common.Float64Ptr(e.speed)
		request.Volume = common.Float64Ptr(5.0)
		request.PrimaryLanguage = common.Int64Ptr(2) // 英文

		response, err := e.client.TextToVoiceWithContext(ctx, request)
		if err != nil {
			return nil, &SynthesisError{Provider: tencentProvider, Message: Redact(err.Error(), e.secretKey), Err: err}
		}
		if response.Response == nil || response.Response.Audio == nil {
			return nil, &SynthesisError{Provider: tencentProvider, Message: "未返回音频数据"}
		}

		data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
		if err != nil {
			return nil, &SynthesisError{Provider: tencentProvider, Message: "Base64 解码失败", Err: err}
		}
		logger.Debugf("[tts] 腾讯云 TTS: 第 %d/%d 段收到 %d 字节", i+1, len(chunks), len(data))
		out.Write(data)
	}

	if out.Len() == 0 {
		return nil, &SynthesisError{Provider: tencentProvider, Message: "未收到音频数据"}
	}
	logger.Infof("[tts] 腾讯云 TTS: %d 段合成完成，共 %d 字节", len(chunks), out.Len())
	return mp3Audio(out.Bytes()), nil
}
