package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChat_Reply(t *testing.T) {
	srv := completionServer(t, http.StatusOK,
		`{"choices":[{"message":{"role":"assistant","content":"  x squared  "},"finish_reason":"stop"}]}`,
		func(r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("path = %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
				t.Errorf("Authorization = %q", got)
			}
		})

	p := NewOpenAIProvider(srv.URL+"/", "sk-test", "gpt-test")
	got, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "x^2"}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if got != "x squared" {
		t.Errorf("reply = %q", got)
	}
}

func TestChat_RequestBody(t *testing.T) {
	var got completionRequest
	srv := completionServer(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`,
		func(r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode body: %v", err)
			}
		})

	p := NewOpenAIProvider(srv.URL, "", "gpt-test", WithTemperature(0))
	msgs := []Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}}
	if _, err := p.Chat(context.Background(), msgs); err != nil {
		t.Fatal(err)
	}
	if got.Model != "gpt-test" || got.Temperature != 0 || len(got.Messages) != 2 || got.Messages[1].Content != "u" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestChat_NoKeyNoAuthHeader(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`,
		func(r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Error("Authorization header should be absent without a key")
			}
		})
	if _, err := NewOpenAIProvider(srv.URL, "", "m").Chat(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error message", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`, "Incorrect API key"},
		{"plain error body", http.StatusBadGateway, `upstream down`, "502"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "没有候选回复"},
		{"empty reply", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, "回复为空"},
		{"invalid json", http.StatusOK, `{`, "解析响应失败"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := completionServer(t, tt.status, tt.body, nil)
			_, err := NewOpenAIProvider(srv.URL, "k", "m").Chat(context.Background(), nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "", "m", WithTimeout(50*time.Millisecond))
	if _, err := p.Chat(context.Background(), nil); err == nil {
		t.Error("expected timeout error")
	}
}
