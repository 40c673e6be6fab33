package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
)

type fakeClient struct {
	calls   []string
	targets []string
	err     error
}

func (f *fakeClient) TextTranslateWithContext(ctx context.Context, req *tmt.TextTranslateRequest) (*tmt.TextTranslateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, *req.SourceText)
	f.targets = append(f.targets, *req.Target)

	resp := tmt.NewTextTranslateResponse()
	body := fmt.Sprintf(`{"Response":{"TargetText":%q,"Source":"en","Target":%q,"RequestId":"r"}}`,
		"<"+*req.SourceText+">", *req.Target)
	if err := resp.FromJsonString(body); err != nil {
		return nil, err
	}
	return resp, nil
}

func TestTranslate_SkipsEnglishAndUnsupported(t *testing.T) {
	fake := &fakeClient{}
	tr := newTencent(fake, "", "")

	for _, target := range []string{"en", "", "pl"} {
		got, err := tr.Translate(context.Background(), "Hello.", target)
		if err != nil {
			t.Fatalf("Translate(%q) failed: %v", target, err)
		}
		if got != "Hello." {
			t.Errorf("Translate(%q) = %q, want unchanged", target, got)
		}
	}
	if len(fake.calls) != 0 {
		t.Errorf("no request expected, got %d", len(fake.calls))
	}
}

func TestTranslate_Single(t *testing.T) {
	fake := &fakeClient{}
	tr := newTencent(fake, "auto", "")

	got, err := tr.Translate(context.Background(), "x squared.", "es")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "<x squared.>" {
		t.Errorf("Translate = %q", got)
	}
	if fake.targets[0] != "es" {
		t.Errorf("target = %s", fake.targets[0])
	}
}

func TestTranslate_ChunksLongText(t *testing.T) {
	fake := &fakeClient{}
	tr := newTencent(fake, "auto", "")

	text := strings.Repeat(strings.Repeat("a", 99)+". ", 40)
	got, err := tr.Translate(context.Background(), text, "fr")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(fake.calls) < 2 {
		t.Fatalf("expected several requests, got %d", len(fake.calls))
	}
	for i, c := range fake.calls {
		if len([]rune(c)) > maxRequestChars {
			t.Errorf("request %d has %d characters", i, len([]rune(c)))
		}
	}
	if strings.Count(got, "<") != len(fake.calls) {
		t.Errorf("result should join every chunk: %d markers, %d calls", strings.Count(got, "<"), len(fake.calls))
	}
}

func TestTranslate_ErrorRedactsSecret(t *testing.T) {
	cause := errors.New("AuthFailure: signature for key s3cr3t mismatch")
	fake := &fakeClient{err: cause}
	tr := newTencent(fake, "auto", "s3cr3t")

	_, err := tr.Translate(context.Background(), "Hello.", "de")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "s3cr3t") {
		t.Errorf("error leaks secret: %v", err)
	}
	if !strings.Contains(err.Error(), "AuthFailure") {
		t.Errorf("error should keep the provider message: %v", err)
	}
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Error("SDK error should stay reachable through Unwrap")
	}
}

func TestNewTencent_RequiresCredentials(t *testing.T) {
	if _, err := NewTencent("", "", "ap-guangzhou", ""); err == nil {
		t.Error("expected error without credentials")
	}
}
