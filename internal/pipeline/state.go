package pipeline

import (
	"sync"

	"github.com/iabetor/mathspeech/internal/logger"
)

// Step 表示一次处理所在的阶段。
type Step int

const (
	// StepIdle 空闲，没有进行中的处理。
	StepIdle Step = iota
	// StepExtracting 正在从 PDF 提取文本。
	StepExtracting
	// StepUploading 正在保存上传的文档。
	StepUploading
	// StepNormalizing 正在把数学文本改写为口语。
	StepNormalizing
	// StepSynthesizing 正在合成语音。
	StepSynthesizing
)

var stepNames = [...]string{
	"Idle",
	"Extracting",
	"Uploading",
	"Normalizing",
	"Synthesizing",
}

func (s Step) String() string {
	if int(s) >= 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return "Unknown"
}

// Tracker 记录单次处理的阶段推进，线程安全。
type Tracker struct {
	mu       sync.RWMutex
	current  Step
	onChange func(from, to Step)
}

// NewTracker 创建一个初始阶段为 Idle 的跟踪器。
func NewTracker(onChange func(from, to Step)) *Tracker {
	return &Tracker{current: StepIdle, onChange: onChange}
}

// Current 返回当前阶段。
func (t *Tracker) Current() Step {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Transition 尝试推进阶段。只有合法的推进才会生效：
//
//	Idle        → 任意阶段     （完整流程从 Extracting 开始，单独的改写或合成可直接开始）
//	Extracting  → Uploading
//	Uploading   → Normalizing
//	Normalizing → Synthesizing
//
// 任何阶段都可以回到 Idle（完成或失败）。
func (t *Tracker) Transition(to Step) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !validTransition(t.current, to) {
		logger.Warnf("[pipeline] 非法阶段切换 %s → %s", t.current, to)
		return false
	}

	from := t.current
	t.current = to
	logger.Debugf("[pipeline] %s → %s", from, to)

	if t.onChange != nil {
		t.onChange(from, to)
	}
	return true
}

// Reset 无条件回到 Idle。
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.current
	t.current = StepIdle
	if from != StepIdle && t.onChange != nil {
		t.onChange(from, StepIdle)
	}
}

func validTransition(from, to Step) bool {
	if to == StepIdle {
		return from != StepIdle
	}
	switch from {
	case StepIdle:
		return true
	case StepExtracting:
		return to == StepUploading
	case StepUploading:
		return to == StepNormalizing
	case StepNormalizing:
		return to == StepSynthesizing
	}
	return false
}
