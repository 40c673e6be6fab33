package tts

import (
	"errors"
	"strings"
	"testing"
)

func validRequest() Request {
	return Request{
		Text:      "Hello world.",
		VoiceID:   "EXAVITQu4vr4xnSDxMaL",
		Language:  "en",
		Stability: 0.5,
		Clarity:   0.75,
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		ok     bool
	}{
		{"valid", func(r *Request) {}, true},
		{"bounds inclusive", func(r *Request) { r.Stability = 0; r.Clarity = 1 }, true},
		{"empty text", func(r *Request) { r.Text = "" }, false},
		{"whitespace text", func(r *Request) { r.Text = "  \n\t" }, false},
		{"missing voice", func(r *Request) { r.VoiceID = "" }, false},
		{"edge voice name", func(r *Request) { r.VoiceID = "en-US-AriaNeural" }, true},
		{"voice with path", func(r *Request) { r.VoiceID = "../../v1/user?x=" }, false},
		{"voice with slash", func(r *Request) { r.VoiceID = "a/b" }, false},
		{"unknown language", func(r *Request) { r.Language = "xx" }, false},
		{"stability too high", func(r *Request) { r.Stability = 1.01 }, false},
		{"stability negative", func(r *Request) { r.Stability = -0.1 }, false},
		{"clarity too high", func(r *Request) { r.Clarity = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)
			err := r.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("error %v should wrap ErrInvalidRequest", err)
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		text string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"数学公式", 2, "数学"},
		{"hello", 0, "hello"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.text, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
		}
	}
}

func TestSynthesisError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := error(&SynthesisError{Provider: "elevenlabs", Status: 401, Message: "bad key", Err: cause})

	if !errors.Is(err, ErrSynthesisFailed) {
		t.Error("SynthesisError should match ErrSynthesisFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("SynthesisError should unwrap to its cause")
	}
	var se *SynthesisError
	if !errors.As(err, &se) || se.Status != 401 {
		t.Errorf("errors.As failed or wrong status: %+v", se)
	}
	if !strings.Contains(err.Error(), "bad key") || !strings.Contains(err.Error(), "401") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRedact(t *testing.T) {
	got := Redact("key sk-123 rejected, sk-123 again", "sk-123", "")
	if strings.Contains(got, "sk-123") {
		t.Errorf("Redact left the secret in place: %q", got)
	}
	if got != "key *** rejected, *** again" {
		t.Errorf("Redact = %q", got)
	}
}

func TestCatalog(t *testing.T) {
	if len(Voices) != 3 || Voices[0].Name != "Bella" {
		t.Errorf("unexpected default voice list: %+v", Voices)
	}
	if _, ok := LookupVoice("21m00Tcm4TlvDq8ikWAM"); !ok {
		t.Error("Rachel should be in the catalog")
	}
	if _, ok := LookupVoice("nope"); ok {
		t.Error("unknown voice should not be found")
	}

	var ids []string
	for _, l := range Languages {
		ids = append(ids, l.ID)
	}
	if got := strings.Join(ids, ","); got != "en,es,fr,de,it,pl" {
		t.Errorf("languages = %s", got)
	}
}

func TestEdgeVoiceFor(t *testing.T) {
	e := NewEdgeEngine(map[string]string{"fr": "fr-FR-HenriNeural", "de": ""})

	tests := []struct {
		voiceID  string
		language string
		want     string
	}{
		{"EXAVITQu4vr4xnSDxMaL", "en", "en-US-AriaNeural"},
		{"EXAVITQu4vr4xnSDxMaL", "fr", "fr-FR-HenriNeural"},
		{"EXAVITQu4vr4xnSDxMaL", "de", "de-DE-KatjaNeural"},
		{"en-GB-SoniaNeural", "en", "en-GB-SoniaNeural"},
	}
	for _, tt := range tests {
		got := e.voiceFor(Request{VoiceID: tt.voiceID, Language: tt.language})
		if got != tt.want {
			t.Errorf("voiceFor(%s, %s) = %s, want %s", tt.voiceID, tt.language, got, tt.want)
		}
	}
}

func TestNewTencentEngine_RequiresCredentials(t *testing.T) {
	if _, err := NewTencentEngine(TencentConfig{SecretID: "id"}); err == nil {
		t.Error("expected error without SecretKey")
	}
}
