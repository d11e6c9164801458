// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Request describes one validated model invocation.
type Request struct {
	// Prompt is the user prompt.
	Prompt string

	// System is an optional system instruction.
	System string

	// MaxTokens is the completion budget (default 4096).
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// Timeout bounds each attempt. A timeout surfaces as a transport
	// failure; the re-ask escalation does not apply to it.
	Timeout time.Duration

	// Reask rewrites the original prompt into a stricter instruction for
	// the single retry after malformed output. When nil a standard
	// minified-JSON demand is appended.
	Reask func(original string) string
}

// ValidationError indicates that model output failed JSON extraction,
// parsing, or the caller's predicate even after the re-ask. Callers must
// catch it and apply their deterministic fallback rather than propagate.
type ValidationError struct {
	// Raw is the last raw model output.
	Raw string

	// Err is the underlying extraction, parse, or predicate failure.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model output failed validation after re-ask: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invoke calls the model and decodes its output into T. If the first
// response cannot be parsed as JSON satisfying validate, the prompt is
// reissued exactly once in its stricter re-ask form. Transport failures
// and timeouts surface immediately without a re-ask. A second malformed
// response yields a *ValidationError.
//
// Invoke holds no state between calls and is safe to use concurrently
// for independent prompts.
func Invoke[T any](ctx context.Context, caller Caller, req Request, validate func(T) bool) (T, error) {
	var zero T

	opts := CallOptions{
		SystemPrompt: req.System,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
		Timeout:      req.Timeout,
	}

	raw, err := caller.Call(ctx, req.Prompt, opts)
	if err != nil {
		return zero, err
	}

	v, decodeErr := decodeValidated(raw, validate)
	if decodeErr == nil {
		return v, nil
	}

	reask := req.Reask
	if reask == nil {
		reask = defaultReask
	}

	raw, err = caller.Call(ctx, reask(req.Prompt), opts)
	if err != nil {
		return zero, err
	}

	v, decodeErr = decodeValidated(raw, validate)
	if decodeErr != nil {
		return zero, &ValidationError{Raw: raw, Err: decodeErr}
	}
	return v, nil
}

// defaultReask appends a stricter output instruction to the original prompt.
func defaultReask(original string) string {
	return original + "\n\nYour previous reply was not valid JSON. Respond again with ONLY a minified JSON object conforming exactly to the requested schema. No prose, no markdown, no code fences."
}

// decodeValidated extracts a JSON object from raw model text, parses it
// into T, and applies the caller's predicate.
func decodeValidated[T any](raw string, validate func(T) bool) (T, error) {
	var v T

	payload, ok := extractJSON(raw)
	if !ok {
		return v, errors.New("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return v, fmt.Errorf("parsing model JSON: %w", err)
	}
	if validate != nil && !validate(v) {
		return v, errors.New("model JSON rejected by validator")
	}
	return v, nil
}

// extractJSON locates the JSON object inside raw model text. Models wrap
// JSON in code fences or prose often enough that the whole string, a fenced
// block, and the outermost brace span are each tried in turn.
func extractJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, true
	}

	if fenced, ok := extractFenced(trimmed); ok {
		return fenced, true
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return trimmed[start : end+1], true
}

// extractFenced returns the body of the first ``` code fence, tolerating a
// language tag after the opening backticks.
func extractFenced(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	rest := s[start+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	body := strings.TrimSpace(rest[:end])
	if body == "" {
		return "", false
	}
	return body, true
}
