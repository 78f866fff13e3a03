// Package provider implements Sentinel's uniform query layer over three
// model-provider families: an Anthropic-like messages API, a Google-like
// generative endpoint with the API key in the query string, and an
// OpenAI-compatible local endpoint (Ollama/LM-Studio style).
//
// Provider selection is a tagged variant: one request-builder and one
// response-parser per family, chosen by the model descriptor's Family
// field. Adding a provider is adding one case, not a plugin system.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sergiogswv/sentinel/internal/model"
)

// Request is a single model query.
type Request struct {
	Prompt    string
	TaskClass model.TaskClass
}

// Response is a completed model query result.
type Response struct {
	Text         string
	Model        string
	PromptTokens int
	OutputTokens int
	Duration     time.Duration
}

// Client queries one model descriptor's family.
type Client interface {
	// Query sends req to the configured endpoint and returns the parsed
	// response. Implementations do not account tokens/cost/cache — that is
	// the Fallback Executor's responsibility.
	Query(ctx context.Context, req Request) (*Response, error)
	// Descriptor returns the model descriptor this client was built from.
	Descriptor() model.ModelDescriptor
}

// New builds a Client for desc's family.
func New(desc model.ModelDescriptor, httpClient *http.Client) (Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	switch desc.Family {
	case model.FamilyAnthropicLike:
		return &anthropicClient{desc: desc, http: httpClient}, nil
	case model.FamilyGoogleLike:
		return &googleClient{desc: desc, http: httpClient}, nil
	case model.FamilyOpenAICompatLocal:
		return &openAILocalClient{desc: desc, http: httpClient}, nil
	default:
		return nil, fmt.Errorf("unknown provider family %q", desc.Family)
	}
}

// =============================================================================
// ANTHROPIC-LIKE: {messages, max_tokens}, API key in a header
// =============================================================================

type anthropicClient struct {
	desc model.ModelDescriptor
	http *http.Client
}

func (c *anthropicClient) Descriptor() model.ModelDescriptor { return c.desc }

func (c *anthropicClient) Query(ctx context.Context, req Request) (*Response, error) {
	payload := map[string]any{
		"model":      c.desc.Model,
		"max_tokens": 4096,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.desc.Endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.desc.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic-like query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, classifiedHTTPError(resp.StatusCode, string(b))
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Model string `json:"model"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("anthropic-like malformed response: %w", err)
	}

	var text strings.Builder
	for _, c := range result.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	return &Response{
		Text:         text.String(),
		Model:        result.Model,
		PromptTokens: result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Duration:     time.Since(start),
	}, nil
}

// =============================================================================
// GOOGLE-LIKE: generative endpoint, API key in query string
// =============================================================================

type googleClient struct {
	desc model.ModelDescriptor
	http *http.Client
}

func (c *googleClient) Descriptor() model.ModelDescriptor { return c.desc }

func (c *googleClient) Query(ctx context.Context, req Request) (*Response, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.Prompt}}},
		},
	}
	body, _ := json.Marshal(payload)

	endpoint := c.desc.Endpoint
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	fullURL := fmt.Sprintf("%s%skey=%s", endpoint, sep, url.QueryEscape(c.desc.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google-like query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, classifiedHTTPError(resp.StatusCode, string(b))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("google-like malformed response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("google-like response contained no candidates")
	}

	return &Response{
		Text:         result.Candidates[0].Content.Parts[0].Text,
		Model:        c.desc.Model,
		PromptTokens: result.UsageMetadata.PromptTokenCount,
		OutputTokens: result.UsageMetadata.CandidatesTokenCount,
		Duration:     time.Since(start),
	}, nil
}

// =============================================================================
// OPENAI-COMPATIBLE LOCAL: Ollama/LM-Studio style, bearer header (may be
// empty for a local unauthenticated endpoint)
// =============================================================================

type openAILocalClient struct {
	desc model.ModelDescriptor
	http *http.Client
}

func (c *openAILocalClient) Descriptor() model.ModelDescriptor { return c.desc }

func (c *openAILocalClient) Query(ctx context.Context, req Request) (*Response, error) {
	payload := map[string]any{
		"model": c.desc.Model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	body, _ := json.Marshal(payload)

	endpoint := strings.TrimSuffix(c.desc.Endpoint, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.desc.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.desc.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai-compatible-local query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, classifiedHTTPError(resp.StatusCode, string(b))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("openai-compatible-local malformed response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("openai-compatible-local response contained no choices")
	}

	return &Response{
		Text:         result.Choices[0].Message.Content,
		Model:        result.Model,
		PromptTokens: result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		Duration:     time.Since(start),
	}, nil
}

// =============================================================================
// FAILURE CLASSIFICATION
// =============================================================================

// HTTPError carries the status code so the Fallback Executor can classify
// it (timeout/5xx trigger fallback; 4xx auth/rate-limit do not retry on the
// same provider).
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the Fallback Executor should treat this as a
// transient failure worth falling back from (5xx) as opposed to an auth or
// rate-limit error that should not be retried on the same provider (4xx).
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500
}

func classifiedHTTPError(status int, body string) error {
	return &HTTPError{StatusCode: status, Body: body}
}

// MockClient is a test double returning predictable responses.
type MockClient struct {
	desc     model.ModelDescriptor
	QueryFn  func(ctx context.Context, req Request) (*Response, error)
}

// NewMockClient builds a MockClient for desc, useful in fallback/cache tests.
func NewMockClient(desc model.ModelDescriptor, fn func(ctx context.Context, req Request) (*Response, error)) *MockClient {
	return &MockClient{desc: desc, QueryFn: fn}
}

func (m *MockClient) Descriptor() model.ModelDescriptor { return m.desc }

func (m *MockClient) Query(ctx context.Context, req Request) (*Response, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, req)
	}
	return &Response{
		Text:         fmt.Sprintf("[mock %s] %.40s", m.desc.Model, req.Prompt),
		Model:        m.desc.Model,
		PromptTokens: len(req.Prompt) / 4,
		OutputTokens: 20,
		Duration:     time.Millisecond,
	}, nil
}
