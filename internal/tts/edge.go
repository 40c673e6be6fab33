package tts

import (
	"bytes"
	"context"
	"strings"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/mathspeech/internal/logger"
)

const edgeProvider = "edge"

// defaultEdgeVoices 每种语言默认使用的 Edge 神经网络音色。
var defaultEdgeVoices = map[string]string{
	"en": "en-US-AriaNeural",
	"es": "es-ES-ElviraNeural",
	"fr": "fr-FR-DeniseNeural",
	"de": "de-DE-KatjaNeural",
	"it": "it-IT-ElsaNeural",
	"pl": "pl-PL-ZofiaNeural",
}

// EdgeEngine 使用微软 Edge TTS 合成 MP3，不需要 API Key。
// stability/clarity 对 Edge 无效，仅做校验。
type EdgeEngine struct {
	voices map[string]string
}

// NewEdgeEngine 创建 Edge 引擎，overrides 可按语言覆盖默认音色。
func NewEdgeEngine(overrides map[string]string) *EdgeEngine {
	voices := make(map[string]string, len(defaultEdgeVoices))
	for k, v := range defaultEdgeVoices {
		voices[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			voices[k] = v
		}
	}
	return &EdgeEngine{voices: voices}
}

// voiceFor 请求里的 voiceId 若本身就是 Edge 音色名（xx-XX-NameNeural）则直接使用，
// 否则按语言选择。
func (e *EdgeEngine) voiceFor(req Request) string {
	if strings.HasSuffix(req.VoiceID, "Neural") {
		return req.VoiceID
	}
	return e.voices[req.Language]
}

// Synthesize 将文本合成为 MP3。
func (e *EdgeEngine) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	text := Truncate(req.Text, MaxTextChars)
	voice := e.voiceFor(req)

	logger.Infof("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(voice))
	if err != nil {
		return nil, &SynthesisError{Provider: edgeProvider, Message: "创建实例失败: " + err.Error(), Err: err}
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, &SynthesisError{Provider: edgeProvider, Message: "开始流式合成失败: " + err.Error(), Err: err}
	}

	var mp3Buf bytes.Buffer
	for msg := range ch {
		select {
		case <-ctx.Done():
			return nil, &SynthesisError{Provider: edgeProvider, Message: ctx.Err().Error(), Err: ctx.Err()}
		default:
		}
		// type=="audio" 的条目包含音频数据
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}

	if mp3Buf.Len() == 0 {
		return nil, &SynthesisError{Provider: edgeProvider, Message: "未收到音频数据"}
	}

	logger.Infof("[tts] edge-tts: 收到 %d 字节 MP3 数据", mp3Buf.Len())
	return mp3Audio(mp3Buf.Bytes()), nil
}
