package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"briefcast/internal/services"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Temperature != 0.1 || req.PresencePenalty != -0.2 {
			t.Errorf("unexpected sampling settings %+v", req)
		}
		payload := map[string]any{
			"model": req.Model,
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func TestCompleteReturnsContentAndUsage(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, " outline "))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/v1/"})
	got, err := client.Complete(context.Background(), "system", "user", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Content != "outline" || got.PromptTokens != 12 || got.CompletionTokens != 5 || got.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected completion %+v", got)
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Complete(context.Background(), "s", "u", "m")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCompleteRejectedKeyIsConfigurationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "s", "u", "m")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		completionHandler(t, "ok").ServeHTTP(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/v1"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	got, err := client.Complete(context.Background(), "s", "u", "m")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if got.Content != "ok" || calls.Load() != 2 || len(slept) != 1 {
		t.Fatalf("unexpected retry behaviour: content=%q calls=%d sleeps=%v", got.Content, calls.Load(), slept)
	}
}

func TestCompleteExhaustedRetriesAreTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var slept int
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithSleeper(func(time.Duration) { slept++ }))
	_, err := client.Complete(context.Background(), "s", "u", "m")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls.Load() != 3 || slept != 2 {
		t.Fatalf("expected 3 calls and 2 sleeps, got calls=%d sleeps=%d", calls.Load(), slept)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("unexpected error text %v", err)
	}
}

func TestTranslatePrompt(t *testing.T) {
	prompt := TranslatePrompt("Chinese")
	if !strings.Contains(prompt, "translate the user input into Chinese") {
		t.Fatalf("unexpected prompt %q", prompt)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("parseRetryAfter(3) = %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("expected invalid header to be rejected")
	}
}
