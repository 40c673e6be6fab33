// Package normalizer 把 PDF 中提取的原始文本改写成适合语音合成的字符串。
//
// 处理分三步，依次执行：数学标记替换、图表引用增强、句子级润色。
// 整个过程是纯函数，对任意输入（包括空串）都不会失败。
package normalizer

// Stage 标识改写流水线中的一个阶段。
type Stage int

const (
	StageMath Stage = iota + 1
	StageFigures
	StageSentences
)

func (s Stage) String() string {
	switch s {
	case StageMath:
		return "math"
	case StageFigures:
		return "figures"
	case StageSentences:
		return "sentences"
	default:
		return "unknown"
	}
}

// StageOutput 记录某个阶段处理后的文本。
type StageOutput struct {
	Stage Stage  `json:"-"`
	Name  string `json:"stage"`
	Text  string `json:"text"`
}

// Normalizer 保存句子润色的阈值，零值不可用，请使用 New 创建。
type Normalizer struct {
	maxSentence int
}

// Option 配置 Normalizer。
type Option func(*Normalizer)

// WithMaxSentence 设置触发逗号拆分的句子长度，<= 0 时使用默认值。
func WithMaxSentence(n int) Option {
	return func(nz *Normalizer) {
		if n > 0 {
			nz.maxSentence = n
		}
	}
}

// New 创建 Normalizer。
func New(opts ...Option) *Normalizer {
	n := &Normalizer{maxSentence: DefaultMaxSentence}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var std = New()

// Normalize 使用默认配置执行完整改写。
func Normalize(text string) string {
	return std.Normalize(text)
}

// Normalize 依次执行三个阶段并返回最终文本。
func (n *Normalizer) Normalize(text string) string {
	return n.RefineSentences(EnhanceFigures(ApplyMath(text)))
}

// Trace 返回每个阶段的中间结果，最后一项即 Normalize 的输出。
func (n *Normalizer) Trace(text string) []StageOutput {
	math := ApplyMath(text)
	figures := EnhanceFigures(math)
	final := n.RefineSentences(figures)
	return []StageOutput{
		{Stage: StageMath, Name: StageMath.String(), Text: math},
		{Stage: StageFigures, Name: StageFigures.String(), Text: figures},
		{Stage: StageSentences, Name: StageSentences.String(), Text: final},
	}
}
