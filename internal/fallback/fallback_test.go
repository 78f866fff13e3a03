package fallback

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/cache"
	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/provider"
	"github.com/sergiogswv/sentinel/internal/stats"
)

func newTestExecutor(t *testing.T, primary, fb provider.Client) (*Executor, *cache.Cache, *stats.Store) {
	t.Helper()
	c, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	s, err := stats.Open(t.TempDir()+"/stats.json", nil)
	if err != nil {
		t.Fatalf("stats.Open: %v", err)
	}
	return New(primary, fb, c, s, zap.NewNop()), c, s
}

func TestExecutor_PrimarySuccess_NoFallbackCalled(t *testing.T) {
	primary := provider.NewMockClient(model.ModelDescriptor{Model: "primary-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return &provider.Response{Text: "ok", Model: "primary-model", PromptTokens: 3, OutputTokens: 2}, nil
	})
	fbCalled := false
	fb := provider.NewMockClient(model.ModelDescriptor{Model: "fallback-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		fbCalled = true
		return &provider.Response{Text: "fb", Model: "fallback-model"}, nil
	})

	ex, _, s := newTestExecutor(t, primary, fb)
	resp, err := ex.Run(context.Background(), provider.Request{Prompt: "hi", TaskClass: model.TaskLight})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q, want %q", resp.Text, "ok")
	}
	if fbCalled {
		t.Error("fallback should not be called when primary succeeds")
	}
	snap := s.Snapshot()
	if snap.TokensIn != 1 || snap.TokensOut != 1 {
		t.Errorf("stats tokens = (%d, %d), want (1, 1) [ceil(len/4) of %q -> %q]", snap.TokensIn, snap.TokensOut, "hi", "ok")
	}
}

func TestExecutor_PrimaryFails_FallbackAnswers_StatsOnlyChargeFallback(t *testing.T) {
	primary := provider.NewMockClient(model.ModelDescriptor{Model: "primary-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return nil, errors.New("connection refused")
	})
	fb := provider.NewMockClient(model.ModelDescriptor{Model: "fallback-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return &provider.Response{Text: "fb-answer", Model: "fallback-model", PromptTokens: 7, OutputTokens: 4}, nil
	})

	ex, _, s := newTestExecutor(t, primary, fb)
	resp, err := ex.Run(context.Background(), provider.Request{Prompt: "hi", TaskClass: model.TaskDeep})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Text != "fb-answer" {
		t.Errorf("Text = %q, want %q", resp.Text, "fb-answer")
	}
	snap := s.Snapshot()
	if snap.TokensIn != 1 || snap.TokensOut != 3 {
		t.Errorf("stats should reflect only the fallback call: tokens = (%d, %d), want (1, 3) [ceil(len/4) of %q -> %q]", snap.TokensIn, snap.TokensOut, "hi", "fb-answer")
	}
}

func TestExecutor_BothFail_ReturnsError(t *testing.T) {
	primary := provider.NewMockClient(model.ModelDescriptor{Model: "primary-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return nil, errors.New("primary down")
	})
	fb := provider.NewMockClient(model.ModelDescriptor{Model: "fallback-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return nil, errors.New("fallback down")
	})

	ex, _, _ := newTestExecutor(t, primary, fb)
	_, err := ex.Run(context.Background(), provider.Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("Run: want error when both providers fail, got nil")
	}
}

func TestExecutor_PrimaryNonRetryable4xx_DoesNotCallFallback(t *testing.T) {
	primary := provider.NewMockClient(model.ModelDescriptor{Model: "primary-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return nil, &provider.HTTPError{StatusCode: 401, Body: "invalid api key"}
	})
	fbCalled := false
	fb := provider.NewMockClient(model.ModelDescriptor{Model: "fallback-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		fbCalled = true
		return &provider.Response{Text: "fb", Model: "fallback-model"}, nil
	})

	ex, _, _ := newTestExecutor(t, primary, fb)
	_, err := ex.Run(context.Background(), provider.Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("Run: want error for a non-retryable primary failure, got nil")
	}
	if fbCalled {
		t.Error("fallback should not be called for a non-retryable 4xx from the primary")
	}
}

func TestExecutor_PrimaryRetryable5xx_CallsFallback(t *testing.T) {
	primary := provider.NewMockClient(model.ModelDescriptor{Model: "primary-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return nil, &provider.HTTPError{StatusCode: 503, Body: "overloaded"}
	})
	fb := provider.NewMockClient(model.ModelDescriptor{Model: "fallback-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return &provider.Response{Text: "fb-answer", Model: "fallback-model"}, nil
	})

	ex, _, _ := newTestExecutor(t, primary, fb)
	resp, err := ex.Run(context.Background(), provider.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Text != "fb-answer" {
		t.Errorf("Text = %q, want %q", resp.Text, "fb-answer")
	}
}

func TestExecutor_NoFallbackConfigured_PropagatesPrimaryError(t *testing.T) {
	primary := provider.NewMockClient(model.ModelDescriptor{Model: "primary-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		return nil, errors.New("primary down")
	})

	ex, _, _ := newTestExecutor(t, primary, nil)
	_, err := ex.Run(context.Background(), provider.Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("Run: want error, got nil")
	}
}

func TestExecutor_CacheHit_SkipsProviderCalls(t *testing.T) {
	calls := 0
	primary := provider.NewMockClient(model.ModelDescriptor{Model: "primary-model"}, func(ctx context.Context, req provider.Request) (*provider.Response, error) {
		calls++
		return &provider.Response{Text: "fresh", Model: "primary-model", PromptTokens: 1, OutputTokens: 1}, nil
	})

	ex, c, _ := newTestExecutor(t, primary, nil)
	req := provider.Request{Prompt: "cacheable", TaskClass: model.TaskLight}

	if _, err := ex.Run(context.Background(), req); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := ex.Run(context.Background(), req); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1 (second call should be a cache hit)", calls)
	}

	fp := cache.Fingerprint(req.Prompt, string(req.TaskClass), "primary-model")
	if _, err := c.Get(fp); err != nil {
		t.Errorf("expected cache entry to exist: %v", err)
	}
}
