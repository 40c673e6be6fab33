package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedProvider 按调用顺序返回预设回复，并记录收到的消息。
type scriptedProvider struct {
	replies []string
	errAt   int
	got     [][]Message
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	idx := len(p.got)
	p.got = append(p.got, messages)
	if p.errAt > 0 && idx+1 == p.errAt {
		return "", errors.New("upstream unavailable")
	}
	return p.replies[idx], nil
}

func TestRefiner_RunsStepsInOrder(t *testing.T) {
	p := &scriptedProvider{replies: []string{"math done", "figures done", " final text "}}
	r := NewRefiner(p)

	got, err := r.Refine(context.Background(), "x^2")
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if got != "final text" {
		t.Errorf("Refine = %q, want %q", got, "final text")
	}
	if len(p.got) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(p.got))
	}

	// 每一步的输入是上一步的输出
	inputs := []string{"x^2", "math done", "figures done"}
	for i, want := range inputs {
		user := p.got[i][1]
		if user.Role != "user" || !strings.HasSuffix(user.Content, "Text:\n"+want) {
			t.Errorf("step %d input = %q, want suffix %q", i, user.Content, want)
		}
		if p.got[i][0].Role != "system" || p.got[i][0].Content != DefaultSteps[i].System {
			t.Errorf("step %d has wrong system prompt", i)
		}
	}
}

func TestRefiner_StepFailure(t *testing.T) {
	p := &scriptedProvider{replies: []string{"math done", "", ""}, errAt: 2}
	_, err := NewRefiner(p).Refine(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "figures") {
		t.Errorf("error should name the failing step: %v", err)
	}
}

func TestRefiner_EmptyReply(t *testing.T) {
	p := &scriptedProvider{replies: []string{"   "}}
	r := NewRefiner(p, Step{Name: "only", System: "s", Prompt: "p"})
	if _, err := r.Refine(context.Background(), "x"); err == nil {
		t.Error("empty reply should be an error")
	}
}
