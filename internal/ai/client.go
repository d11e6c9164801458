// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai invokes a generative model under a strict output contract.
// The transport returns raw model text; Invoke owns JSON extraction,
// validation, and the single re-ask escalation for malformed output.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// apiURL is the Claude API endpoint. Package-level var for test substitution.
var apiURL = "https://api.anthropic.com/v1/messages"

// ErrNoAPIKey indicates missing model credentials. Callers treat it as a
// permanent transport failure for the run and use their fallback paths.
var ErrNoAPIKey = errors.New("anthropic API key not set")

const (
	defaultMaxTokens   = 4096
	defaultHTTPTimeout = 60 * time.Second
)

// CallOptions bound a single model call.
type CallOptions struct {
	// SystemPrompt is an optional system instruction.
	SystemPrompt string

	// MaxTokens is the completion budget (default 4096).
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// Timeout bounds the whole call including transport retries. Zero
	// means no per-call bound beyond the caller's context.
	Timeout time.Duration
}

// Caller is the model transport boundary: one prompt in, raw text out.
// Implementations must be safe for concurrent use.
type Caller interface {
	Call(ctx context.Context, prompt string, opts CallOptions) (string, error)
	Available() bool
}

// Client calls the Claude Messages API, pacing requests through a shared
// rate limiter and retrying rate-limited responses at the transport level.
type Client struct {
	Config    types.AIConfig
	HTTP      *http.Client
	Limiter   *rate.Limiter
	UserAgent string
}

// NewClient builds a Client from config. requestsPerMinute caps the
// aggregate request rate across goroutines; zero disables pacing.
func NewClient(cfg types.AIConfig, httpCfg types.HTTPConfig, requestsPerMinute int) *Client {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	timeout := httpCfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		Config:    cfg,
		HTTP:      &http.Client{Timeout: timeout},
		Limiter:   limiter,
		UserAgent: httpCfg.UserAgent,
	}
}

// Available reports whether the client has credentials to call the API.
func (c *Client) Available() bool {
	return c.Config.APIKey != ""
}

// messagesRequest is the request body for the Claude Messages API.
type messagesRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	System      string         `json:"system,omitempty"`
	Temperature float64        `json:"temperature"`
	Messages    []messageParam `json:"messages"`
}

// messageParam is a single message in the Claude API conversation.
type messageParam struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the response body from the Claude Messages API.
type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

// contentBlock is a content block in the Claude API response.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Call sends one prompt to the Claude API and returns the concatenated text
// content. Timeouts and cancellation surface as errors; no parsing of the
// text happens here.
func (c *Client) Call(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	if c.Config.APIKey == "" {
		return "", ErrNoAPIKey
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.Config.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:       c.Config.Model,
		MaxTokens:   maxTokens,
		System:      opts.SystemPrompt,
		Temperature: opts.Temperature,
		Messages: []messageParam{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.Config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.Config.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var mResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var parts []string
	for _, block := range mResp.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return strings.Join(parts, ""), nil
}
