// Package pipeline 把一次"PDF 转语音"请求编排为顺序执行的阶段：
// 提取 → 保存 → 改写 → 合成。每个阶段返回明确的结果或 *Error，不重试，不返回部分结果。
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/mathspeech/internal/audio"
	"github.com/iabetor/mathspeech/internal/config"
	"github.com/iabetor/mathspeech/internal/database"
	"github.com/iabetor/mathspeech/internal/extract"
	"github.com/iabetor/mathspeech/internal/llm"
	"github.com/iabetor/mathspeech/internal/logger"
	"github.com/iabetor/mathspeech/internal/normalizer"
	"github.com/iabetor/mathspeech/internal/translate"
	"github.com/iabetor/mathspeech/internal/tts"
)

// Pipeline 是主编排器，将提取、存储、改写和合成串联在一起。
// 各阶段方法可以单独调用（HTTP 接口），Run 执行完整链路（命令行）。
type Pipeline struct {
	engine     string
	maxChars   int
	normalizer *normalizer.Normalizer

	synth      tts.Synthesizer
	translator translate.Translator
	refiner    *llm.Refiner

	db     *database.DB
	cache  *audio.Cache
	docDir string

	onStep func(from, to Step)
}

// Option 替换或补充 Pipeline 的组件。
type Option func(*Pipeline)

// WithSynthesizer 使用指定的合成后端，不再按配置创建。
func WithSynthesizer(s tts.Synthesizer) Option {
	return func(p *Pipeline) { p.synth = s }
}

// WithTranslator 使用指定的翻译器。
func WithTranslator(t translate.Translator) Option {
	return func(p *Pipeline) { p.translator = t }
}

// WithRefiner 使用指定的大模型润色器。
func WithRefiner(r *llm.Refiner) Option {
	return func(p *Pipeline) { p.refiner = r }
}

// WithDatabase 保存文档和合成记录。为 nil 时不持久化。
func WithDatabase(db *database.DB) Option {
	return func(p *Pipeline) { p.db = db }
}

// WithCache 缓存合成结果。为 nil 时每次都请求服务商。
func WithCache(c *audio.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithDocumentDir 设置上传 PDF 的保存目录。
func WithDocumentDir(dir string) Option {
	return func(p *Pipeline) { p.docDir = dir }
}

// WithProgress 注册阶段变化回调，仅对 Run 生效。
func WithProgress(fn func(from, to Step)) Option {
	return func(p *Pipeline) { p.onStep = fn }
}

// New 根据配置创建 Pipeline。未通过 Option 提供的合成、翻译和润色组件按配置创建。
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		engine:     cfg.TTS.Engine,
		maxChars:   cfg.TTS.MaxChars,
		normalizer: normalizer.New(normalizer.WithMaxSentence(cfg.Normalize.MaxSentence)),
	}
	if p.maxChars <= 0 || p.maxChars > tts.MaxTextChars {
		p.maxChars = tts.MaxTextChars
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.synth == nil {
		p.synth, err = NewSynthesizer(cfg.TTS)
		if err != nil {
			return nil, err
		}
	}

	if p.translator == nil && cfg.Translate.Enabled {
		p.translator, err = translate.NewTencent(
			cfg.TTS.Tencent.SecretID, cfg.TTS.Tencent.SecretKey, cfg.TTS.Tencent.Region, cfg.Translate.Source)
		if err != nil {
			return nil, fmt.Errorf("初始化翻译失败: %w", err)
		}
	}

	if p.refiner == nil && cfg.LLM.Enabled {
		provider := llm.NewOpenAIProvider(cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.LLM.Model,
			llm.WithTimeout(time.Duration(cfg.LLM.Timeout)*time.Second))
		p.refiner = llm.NewRefiner(provider)
		logger.Infof("[pipeline] 已启用大模型润色: %s", cfg.LLM.Model)
	}

	return p, nil
}

// NewSynthesizer 按 tts.engine 创建合成后端。
func NewSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Engine {
	case "elevenlabs", "":
		s, err := tts.NewElevenLabsEngine(tts.ElevenLabsConfig{
			APIURL:       cfg.ElevenLabs.APIURL,
			APIKey:       cfg.ElevenLabs.APIKey,
			Model:        cfg.ElevenLabs.Model,
			Timeout:      time.Duration(cfg.ElevenLabs.Timeout) * time.Second,
			SendLanguage: cfg.ElevenLabs.SendLanguage,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 ElevenLabs 失败: %w", err)
		}
		return s, nil
	case "edge":
		return tts.NewEdgeEngine(cfg.Edge.Voices), nil
	case "tencent":
		s, err := tts.NewTencentEngine(tts.TencentConfig{
			SecretID:  cfg.Tencent.SecretID,
			SecretKey: cfg.Tencent.SecretKey,
			VoiceType: cfg.Tencent.VoiceType,
			Region:    cfg.Tencent.Region,
			Speed:     cfg.Tencent.Speed,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化腾讯云 TTS 失败: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("未知的 TTS 引擎: %s", cfg.Engine)
}

// Verify 校验合成后端的凭据（仅 ElevenLabs 支持）。
func (p *Pipeline) Verify(ctx context.Context) error {
	v, ok := p.synth.(interface{ Verify(context.Context) error })
	if !ok {
		return nil
	}
	if err := v.Verify(ctx); err != nil {
		return Classify(err)
	}
	return nil
}

// Extracted 是提取阶段的结果。
type Extracted struct {
	Text      string
	PageCount int
}

// Extract 从 PDF 字节中提取文本。非 PDF 与没有文本属于输入错误，解析失败属于提取错误。
func (p *Pipeline) Extract(data []byte) (*Extracted, error) {
	doc, err := extract.Text(data)
	if err != nil {
		return nil, Classify(err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, newError(KindInvalidInput, "No text found",
			"The PDF does not contain any extractable text", nil)
	}
	return &Extracted{Text: doc.Text, PageCount: doc.PageCount}, nil
}

// Upload 保存 PDF 原件和提取结果。未配置数据库时只生成内存中的记录。
func (p *Pipeline) Upload(ctx context.Context, fileName string, data []byte, ex *Extracted) (*database.Document, error) {
	doc := &database.Document{
		FileName:  filepath.Base(fileName),
		Size:      int64(len(data)),
		PageCount: ex.PageCount,
		TextChars: len([]rune(ex.Text)),
		Text:      ex.Text,
	}
	if p.db == nil {
		doc.ID = uuid.NewString()
		doc.CreatedAt = time.Now().UTC()
		return doc, nil
	}

	if p.docDir != "" {
		if err := os.MkdirAll(p.docDir, 0755); err != nil {
			return nil, newError(KindUpload, "Failed to upload PDF", err.Error(), err)
		}
		doc.ID = uuid.NewString()
		doc.PDFPath = filepath.Join(p.docDir, doc.ID+".pdf")
		if err := os.WriteFile(doc.PDFPath, data, 0644); err != nil {
			return nil, newError(KindUpload, "Failed to upload PDF", err.Error(), err)
		}
	}

	if err := p.db.InsertDocument(ctx, doc); err != nil {
		if doc.PDFPath != "" {
			os.Remove(doc.PDFPath)
		}
		return nil, newError(KindUpload, "Failed to upload PDF", err.Error(), err)
	}
	logger.Infof("[pipeline] 文档已保存: %s (%s, %d 页)", doc.ID, doc.FileName, doc.PageCount)
	return doc, nil
}

// Normalized 是改写阶段的结果。
type Normalized struct {
	Original string
	Text     string
	Stages   []normalizer.StageOutput
	Refined  bool // 是否经过大模型润色
}

// Normalize 把文本改写为口语。确定性改写不会失败；大模型润色失败时回退到确定性结果。
func (p *Pipeline) Normalize(ctx context.Context, text string) *Normalized {
	stages := p.normalizer.Trace(text)
	out := &Normalized{
		Original: text,
		Text:     stages[len(stages)-1].Text,
		Stages:   stages,
	}
	if p.refiner == nil || strings.TrimSpace(out.Text) == "" {
		return out
	}

	refined, err := p.refiner.Refine(ctx, out.Text)
	if err != nil {
		logger.Warnf("[pipeline] 大模型润色失败，使用规则改写结果: %v", err)
		return out
	}
	out.Text = refined
	out.Refined = true
	return out
}

// Synthesized 是合成阶段的结果。
type Synthesized struct {
	Key      string
	Audio    *tts.Audio
	Duration time.Duration
	Cached   bool
}

// Synthesize 合成语音。相同参数命中缓存时不再请求服务商。
// documentID 非空时记录到该文档下。
func (p *Pipeline) Synthesize(ctx context.Context, req tts.Request, documentID string) (*Synthesized, error) {
	if err := req.Validate(); err != nil {
		return nil, Classify(err)
	}
	req.Text = tts.Truncate(req.Text, p.maxChars)

	key := audio.Key(p.engine, req.VoiceID, req.Language,
		strconv.FormatFloat(req.Stability, 'f', -1, 64),
		strconv.FormatFloat(req.Clarity, 'f', -1, 64),
		req.Text)

	if p.cache != nil {
		if data, err := p.cache.Read(key); err == nil {
			entry, _ := p.cache.Lookup(key)
			logger.Infof("[pipeline] 命中音频缓存: %s", key[:12])
			return &Synthesized{
				Key:      key,
				Audio:    &tts.Audio{Data: data, Format: "mp3", ContentType: "audio/mpeg"},
				Duration: time.Duration(entry.Duration * float64(time.Second)),
				Cached:   true,
			}, nil
		}
	}

	if p.translator != nil {
		translated, err := p.translator.Translate(ctx, req.Text, req.Language)
		if err != nil {
			return nil, newError(KindSynthesis, "Failed to generate audio", "translation failed", err)
		}
		req.Text = tts.Truncate(translated, p.maxChars)
	}

	start := time.Now()
	out, err := p.synth.Synthesize(ctx, req)
	if err != nil {
		return nil, Classify(err)
	}
	logger.Infof("[pipeline] 合成完成: %d 字节, 耗时 %s", len(out.Data), time.Since(start).Round(time.Millisecond))

	duration, err := audio.Duration(out.Data)
	if err != nil {
		logger.Warnf("[pipeline] 无法计算音频时长: %v", err)
	}

	if p.cache != nil {
		entry := audio.CacheEntry{
			VoiceID:   req.VoiceID,
			Language:  req.Language,
			TextChars: len([]rune(req.Text)),
			Duration:  duration.Seconds(),
		}
		if err := p.cache.Store(key, out.Data, entry); err != nil {
			logger.Warnf("[pipeline] 写入音频缓存失败: %v", err)
		}
	}

	if p.db != nil {
		rec := &database.Synthesis{
			DocumentID: documentID,
			VoiceID:    req.VoiceID,
			Language:   req.Language,
			TextChars:  len([]rune(req.Text)),
			CacheKey:   key,
		}
		if err := p.db.InsertSynthesis(ctx, rec); err != nil {
			logger.Warnf("[pipeline] 保存合成记录失败: %v", err)
		}
	}

	return &Synthesized{Key: key, Audio: out, Duration: duration}, nil
}

// Input 是完整流程的输入。Request.Text 会被 PDF 改写结果覆盖。
type Input struct {
	FileName string
	Data     []byte
	Request  tts.Request
}

// Result 是完整流程的输出。
type Result struct {
	Document   *database.Document
	Normalized *Normalized
	Speech     *Synthesized
}

// Run 顺序执行提取、保存、改写、合成，任一阶段失败立即返回该阶段的 *Error。
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	tracker := NewTracker(p.onStep)
	defer tracker.Reset()

	tracker.Transition(StepExtracting)
	ex, err := p.Extract(in.Data)
	if err != nil {
		return nil, err
	}

	tracker.Transition(StepUploading)
	doc, err := p.Upload(ctx, in.FileName, in.Data, ex)
	if err != nil {
		return nil, err
	}

	tracker.Transition(StepNormalizing)
	norm := p.Normalize(ctx, ex.Text)
	doc.ProcessedText = norm.Text
	if p.db != nil {
		if err := p.db.SetProcessedText(ctx, doc.ID, norm.Text); err != nil {
			logger.Warnf("[pipeline] 保存改写结果失败: %v", err)
		}
	}

	tracker.Transition(StepSynthesizing)
	req := in.Request
	req.Text = norm.Text
	speech, err := p.Synthesize(ctx, req, doc.ID)
	if err != nil {
		return nil, err
	}

	return &Result{Document: doc, Normalized: norm, Speech: speech}, nil
}
