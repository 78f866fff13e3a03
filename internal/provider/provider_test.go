package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sergiogswv/sentinel/internal/model"
)

func TestAnthropicLikeClient_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("missing x-api-key header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "hello"}},
			"model":   "claude-test",
			"usage":   map[string]int{"input_tokens": 10, "output_tokens": 2},
		})
	}))
	defer srv.Close()

	c, err := New(model.ModelDescriptor{
		Family:   model.FamilyAnthropicLike,
		Endpoint: srv.URL,
		Model:    "claude-test",
		APIKey:   "secret",
	}, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Query(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Text != "hello" {
		t.Errorf("Text = %q, want %q", resp.Text, "hello")
	}
	if resp.PromptTokens != 10 || resp.OutputTokens != 2 {
		t.Errorf("tokens = (%d, %d), want (10, 2)", resp.PromptTokens, resp.OutputTokens)
	}
}

func TestGoogleLikeClient_APIKeyInQuery(t *testing.T) {
	var sawKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawKey = r.URL.Query().Get("key")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "g-hello"}}}},
			},
		})
	}))
	defer srv.Close()

	c, err := New(model.ModelDescriptor{
		Family:   model.FamilyGoogleLike,
		Endpoint: srv.URL,
		Model:    "gemini-test",
		APIKey:   "gkey",
	}, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Query(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if sawKey != "gkey" {
		t.Errorf("api key in query string = %q, want %q", sawKey, "gkey")
	}
	if resp.Text != "g-hello" {
		t.Errorf("Text = %q, want %q", resp.Text, "g-hello")
	}
}

func TestOpenAILocalClient_5xxIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down for maintenance"))
	}))
	defer srv.Close()

	c, err := New(model.ModelDescriptor{
		Family:   model.FamilyOpenAICompatLocal,
		Endpoint: srv.URL,
		Model:    "llama-test",
	}, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Query(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("Query: want error for 503, got nil")
	}
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
	if !httpErr.Retryable() {
		t.Error("5xx should be Retryable()")
	}
}

func TestOpenAILocalClient_4xxNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(model.ModelDescriptor{
		Family:   model.FamilyOpenAICompatLocal,
		Endpoint: srv.URL,
	}, srv.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Query(context.Background(), Request{Prompt: "hi"})
	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("error type = %T, want *HTTPError", err)
	}
	if httpErr.Retryable() {
		t.Error("4xx should not be Retryable()")
	}
}
