// Package fallback implements the primary-then-fallback dispatcher: it
// invokes the primary provider with a timeout, and on timeout, network
// error, 5xx, or malformed response falls through to the configured
// fallback provider with the same prompt. Accounting always charges the
// provider that actually produced the response.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sergiogswv/sentinel/internal/cache"
	"github.com/sergiogswv/sentinel/internal/model"
	"github.com/sergiogswv/sentinel/internal/provider"
	"github.com/sergiogswv/sentinel/internal/stats"
)

// FlatRateMicroUSD is the per-token cost used for Stats.cost_micro_usd
// accounting until a provider-specific pricing table is configured.
const FlatRateMicroUSD = 1

// Executor dispatches a query to primary, falling back to fallback on
// classified failure.
type Executor struct {
	primary  provider.Client
	fallback provider.Client // nil if no fallback is configured
	cache    *cache.Cache
	stats    *stats.Store
	log      *zap.Logger
	timeout  time.Duration
}

// New builds an Executor. fallback may be nil.
func New(primary, fallback provider.Client, c *cache.Cache, s *stats.Store, log *zap.Logger) *Executor {
	return &Executor{
		primary:  primary,
		fallback: fallback,
		cache:    c,
		stats:    s,
		log:      log,
		timeout:  60 * time.Second,
	}
}

// WithTimeout overrides the per-call timeout (default 60s).
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// Run probes the cache, then executes primary-then-fallback on a miss,
// charging stats only for the provider that produced the final response.
// It writes a successful response back to the cache before returning.
func (e *Executor) Run(ctx context.Context, req provider.Request) (*provider.Response, error) {
	fp := cache.Fingerprint(req.Prompt, string(req.TaskClass), e.primary.Descriptor().Model)
	if entry, err := e.cache.Get(fp); err == nil {
		e.log.Debug("cache.hit", zap.String("fingerprint", fp))
		return &provider.Response{
			Text:         entry.Response,
			Model:        entry.Model,
			PromptTokens: entry.PromptTokens,
			OutputTokens: entry.OutputTokens,
		}, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		e.log.Warn("cache.read.error", zap.Error(err))
	}

	resp, usedFallback, err := e.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	tokensIn := ceilDiv4(len(req.Prompt))
	tokensOut := ceilDiv4(len(resp.Text))
	e.stats.AddTokens(tokensIn, tokensOut, FlatRateMicroUSD)
	if usedFallback {
		e.log.Info("provider.fallback.success", zap.String("model", resp.Model))
	}

	if putErr := e.cache.Put(fp, model.CacheEntry{
		Prompt:       req.Prompt,
		TaskClass:    string(req.TaskClass),
		Model:        resp.Model,
		Response:     resp.Text,
		PromptTokens: tokensIn,
		OutputTokens: tokensOut,
	}); putErr != nil {
		e.log.Warn("cache.write.error", zap.Error(putErr))
	}

	return resp, nil
}

// ceilDiv4 estimates token count from character length, the fallback used
// when a provider's own usage accounting is unavailable or untrusted.
func ceilDiv4(n int) int {
	return (n + 3) / 4
}

// dispatch runs primary, then fallback on a retryable classified failure.
// It reports whether the fallback provider was the one that answered.
func (e *Executor) dispatch(ctx context.Context, req provider.Request) (*provider.Response, bool, error) {
	primaryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.primary.Query(primaryCtx, req)
	if err == nil {
		return resp, false, nil
	}
	logFailureClass(e.log, err)

	if !isRetryable(err) {
		return nil, false, fmt.Errorf("primary provider failed (non-retryable, not falling back): %w", err)
	}

	if e.fallback == nil {
		return nil, false, fmt.Errorf("primary provider failed, no fallback configured: %w", err)
	}

	fallbackCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, fbErr := e.fallback.Query(fallbackCtx, req)
	if fbErr != nil {
		return nil, false, fmt.Errorf("primary and fallback both failed: primary=%v fallback=%w", err, fbErr)
	}
	return resp, true, nil
}

// isRetryable reports whether the primary's failure is the kind spec.md
// §4.6 scopes fallback triggering to: timeout, network error, or 5xx. A
// classified 4xx (auth, rate-limit) surfaces directly instead of cascading
// to the fallback provider.
func isRetryable(err error) bool {
	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}

// logFailureClass records why the primary failed — timeout, classified HTTP
// status, or a bare network error. It runs for every primary failure;
// dispatch then decides whether to fall through: a non-retryable HTTP status
// (4xx such as auth or rate-limit) is returned without trying the fallback
// provider, and nothing is ever retried against the same provider.
func logFailureClass(log *zap.Logger, err error) {
	var httpErr *provider.HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("provider.fallback.trigger", zap.String("class", "timeout"), zap.Error(err))
	case errors.As(err, &httpErr):
		log.Warn("provider.fallback.trigger",
			zap.String("class", "http"),
			zap.Int("status", httpErr.StatusCode),
			zap.Bool("retryable", httpErr.Retryable()),
		)
	default:
		log.Warn("provider.fallback.trigger", zap.String("class", "network"), zap.Error(err))
	}
}
