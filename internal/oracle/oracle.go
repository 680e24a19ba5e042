// Package oracle implements the rate-limited text-in/text-out LLM client
// (C2): a single process-wide caller enforcing the sliding-window RPM
// ceiling, retry-with-backoff, and input guards.
//
// Grounded on the teacher's pkg/llm/client.go for its env-driven
// construction and logging idiom; the transport itself is net/http+JSON
// rather than gRPC, because the teacher's generated protobuf stub package
// is not present in this module's dependency pack.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/ballistic-intel/signalpipe/internal/ratelimit"
	"github.com/ballistic-intel/signalpipe/internal/runctx"
)

const (
	maxPromptCodepoints = 10000
)

var bannedSubstrings = []string{
	"<script>", "</script>",
	"drop table", "delete from",
	"'; --", "' or '1'='1",
	"union select", "insert into",
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	MaxRPM       int
	MaxRetries   int
	HTTPTimeout  time.Duration
}

// Client is the process-wide oracle caller. It must be constructed once
// per process and shared across every fan-out worker, since the rate
// limiter and circuit breaker are both intrinsically process-global
// state (see SPEC_FULL.md §9).
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New constructs a Client. Authentication material is validated here —
// a missing or malformed API key fails construction, never the first
// call.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &runctx.ConfigError{Field: "oracle.api_key", Err: fmt.Errorf("missing oracle API key")}
	}
	if cfg.MaxRPM <= 0 {
		cfg.MaxRPM = 15
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	breakerSettings := gobreaker.Settings{
		Name:    "oracle",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: ratelimit.New(cfg.MaxRPM),
		breaker: gobreaker.NewCircuitBreaker(breakerSettings),
		logger:  logger.With("component", "oracle"),
	}, nil
}

func validatePrompt(prompt string, trusted bool) error {
	if utf8.RuneCountInString(prompt) > maxPromptCodepoints {
		return &runctx.OracleError{Kind: "BadRequest", Err: fmt.Errorf("prompt exceeds %d code points", maxPromptCodepoints)}
	}
	if trusted {
		return nil
	}
	lower := strings.ToLower(prompt)
	for _, pattern := range bannedSubstrings {
		if strings.Contains(lower, pattern) {
			return &runctx.OracleError{Kind: "BadRequest", Err: fmt.Errorf("suspicious content detected: %q", pattern)}
		}
	}
	return nil
}

type askRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Text string `json:"text"`
}

// Ask sends prompt to the oracle and returns the raw text response.
// trusted, when true, skips the banned-substring guard (used for
// internally constructed prompts that embed untrusted content already
// escaped by the caller).
func (c *Client) Ask(ctx context.Context, prompt string, trusted bool) (string, error) {
	if err := validatePrompt(prompt, trusted); err != nil {
		return "", err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	retryPolicy := backoff.WithMaxRetries(bo, uint64(c.cfg.MaxRetries))

	var text string
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		result, err := c.breaker.Execute(func() (any, error) {
			return c.doRequest(ctx, prompt)
		})
		if err != nil {
			c.logger.Warn("oracle request attempt failed", "attempt", attempt, "error", err)
			if errors.Is(err, gobreaker.ErrOpenState) {
				return backoff.Permanent(err)
			}
			return err
		}
		text = result.(string)
		return nil
	}

	if err := backoff.Retry(operation, retryPolicy); err != nil {
		var oe *runctx.OracleError
		if ok := asOracleError(err, &oe); ok {
			return "", oe
		}
		return "", &runctx.OracleError{Kind: "Transport", Err: err}
	}
	return text, nil
}

func asOracleError(err error, target **runctx.OracleError) bool {
	return errors.As(err, target)
}

func (c *Client) doRequest(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(askRequest{Model: c.cfg.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(data))
	}

	var out askResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// stripFences removes a single enclosing ```json or ``` fence, tolerating
// markdown-wrapped JSON responses.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "```json") {
		start := strings.Index(trimmed, "```json") + len("```json")
		end := strings.Index(trimmed[start:], "```")
		if end >= 0 {
			return strings.TrimSpace(trimmed[start : start+end])
		}
	}
	if strings.Contains(trimmed, "```") {
		start := strings.Index(trimmed, "```") + len("```")
		end := strings.Index(trimmed[start:], "```")
		if end >= 0 {
			return strings.TrimSpace(trimmed[start : start+end])
		}
	}
	return trimmed
}

// AskJSON sends prompt and parses the (possibly fence-wrapped) response
// as JSON into v.
func (c *Client) AskJSON(ctx context.Context, prompt string, trusted bool, v any) error {
	text, err := c.Ask(ctx, prompt, trusted)
	if err != nil {
		return err
	}
	clean := stripFences(text)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return &runctx.OracleError{Kind: "MalformedResponse", Err: err}
	}
	return nil
}
