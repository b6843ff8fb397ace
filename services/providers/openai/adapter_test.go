package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/upb/recipe-rag/services/providers"
	"go.uber.org/zap"
)

func newTestAdapter(t *testing.T, baseURL string, timeout time.Duration) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(Config{BaseURL: baseURL, Model: "llama3.1", Timeout: timeout}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	return adapter
}

func TestNewAdapter_Validation(t *testing.T) {
	if _, err := NewAdapter(Config{Model: "llama3.1"}, zap.NewNop()); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewAdapter(Config{BaseURL: "http://x"}, zap.NewNop()); err == nil {
		t.Error("expected error for missing model")
	}

	adapter, err := NewAdapter(Config{BaseURL: "http://x", Model: "m"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adapter.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", adapter.timeout, defaultTimeout)
	}
	if adapter.Name() != "openai" || adapter.Model() != "m" {
		t.Errorf("Name()/Model() = %s/%s", adapter.Name(), adapter.Model())
	}
}

func TestAdapter_ChatCompletion(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "llama3.1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Feijoada leva feijao preto."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48}
		}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, time.Second)
	resp, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "sys"},
			{Role: providers.RoleUser, Content: "O que e feijoada?"},
		},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if resp.Content != "Feijoada leva feijao preto." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 48 {
		t.Errorf("TotalTokens = %d, want 48", resp.Usage.TotalTokens)
	}
	if gotBody["model"] != "llama3.1" {
		t.Errorf("request model = %v, want default llama3.1", gotBody["model"])
	}
	if msgs, ok := gotBody["messages"].([]interface{}); !ok || len(msgs) != 2 {
		t.Errorf("request messages = %v", gotBody["messages"])
	}
}

func TestAdapter_ChatCompletion_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode string
	}{
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth"}}`))
			},
			wantCode: providers.CodeFailure,
		},
		{
			name: "server error without json body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down"))
			},
			wantCode: providers.CodeFailure,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices": [`))
			},
			wantCode: providers.CodeFailure,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
			},
			wantCode: providers.CodeFailure,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			wantCode: providers.CodeUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			adapter := newTestAdapter(t, server.URL, 100*time.Millisecond)
			_, err := adapter.ChatCompletion(context.Background(), &providers.ChatRequest{
				Messages: []providers.Message{{Role: providers.RoleUser, Content: "oi"}},
			})
			provErr, ok := err.(*providers.ProviderError)
			if !ok {
				t.Fatalf("error = %T %v, want *providers.ProviderError", err, err)
			}
			if provErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s (%v)", provErr.Code, tt.wantCode, err)
			}
		})
	}
}

func TestAdapter_ConnectionRefusedIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	adapter := newTestAdapter(t, url, time.Second)
	err := adapter.Ping(context.Background())
	if !providers.IsUnreachable(err) {
		t.Fatalf("Ping() error = %v, want unreachable", err)
	}
	if !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("error message %q should mention unreachable", err.Error())
	}
}

func TestAdapter_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %s, want /models", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": [{"id": "llama3.1", "object": "model"}]}`))
	}))
	defer server.Close()

	if err := newTestAdapter(t, server.URL, time.Second).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
