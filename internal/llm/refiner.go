package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iabetor/mathspeech/internal/logger"
)

// Step 是润色流水线中的一步：一个角色设定加一条改写指令。
type Step struct {
	Name   string
	System string
	Prompt string
}

// DefaultSteps 依次处理数学表达、图表描述和语言流畅度，上一步的输出是下一步的输入。
var DefaultSteps = []Step{
	{
		Name: "math",
		System: "You are a math processing expert. You convert mathematical formulas into clear, natural speech " +
			"and make complex math easy to understand.",
		Prompt: `Convert this mathematical text into natural speech.
Follow these rules:
1. Replace mathematical symbols with natural language
2. Make vector notations clear and understandable
3. Explain operations in a conversational way
4. Keep the mathematical meaning accurate
Reply with the converted text only.`,
	},
	{
		Name: "figures",
		System: "You are a graph interpretation expert. You translate visual elements into clear verbal descriptions " +
			"and make visual data accessible through words.",
		Prompt: `Enhance any visual or graphical descriptions in the text.
Make sure to:
1. Clarify figure references
2. Explain visual elements naturally
3. Add context to help listeners understand the visuals
Reply with the full enhanced text only.`,
	},
	{
		Name: "language",
		System: "You are a language refinement expert. You make technical content sound natural and engaging " +
			"and easy to listen to.",
		Prompt: `Make the text more natural and easy to listen to.
Focus on:
1. Adding natural transitions
2. Breaking up long sentences
3. Making the flow conversational
4. Ensuring clarity for listeners
Reply with the final, polished text only.`,
	},
}

// Refiner 用大模型按步骤改写文本。
type Refiner struct {
	provider Provider
	steps    []Step
}

// NewRefiner 创建润色器，steps 为空时使用 DefaultSteps。
func NewRefiner(provider Provider, steps ...Step) *Refiner {
	if len(steps) == 0 {
		steps = DefaultSteps
	}
	return &Refiner{provider: provider, steps: steps}
}

// Refine 顺序执行所有步骤，任一步失败即返回错误。
func (r *Refiner) Refine(ctx context.Context, text string) (string, error) {
	current := text
	for _, step := range r.steps {
		start := time.Now()
		messages := []Message{
			{Role: "system", Content: step.System},
			{Role: "user", Content: step.Prompt + "\n\nText:\n" + current},
		}
		out, err := r.provider.Chat(ctx, messages)
		if err != nil {
			return "", fmt.Errorf("[llm] 步骤 %s 失败: %w", step.Name, err)
		}
		logger.Debugf("[llm] 步骤 %s 完成: %d -> %d 字符, 耗时 %s",
			step.Name, len([]rune(current)), len([]rune(out)), time.Since(start).Round(time.Millisecond))
		out = strings.TrimSpace(out)
		if out == "" {
			return "", fmt.Errorf("[llm] 步骤 %s 回复为空", step.Name)
		}
		current = out
	}
	return current, nil
}
