package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/portcall/adapters/internal/rate"
)

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// StatusError is returned for non-2xx responses when no error handler is configured.
type StatusError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s returned %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Config carries the per-upstream settings of an Executor.
type Config struct {
	// BaseURL is prefixed to every path passed to GetJSON/PostJSON. It is used verbatim.
	BaseURL string
	// RetryMax is the number of retries after the first attempt, for idempotent methods only.
	RetryMax int
	// Tag prefixes log event names, e.g. "rfq" -> "rfq.http_failed".
	Tag string
	// Tokens, when set, supplies an Authorization: Bearer header.
	Tokens TokenSource
	// ErrorHandler sees every 4xx (or final 5xx) response and returns the error to surface.
	ErrorHandler func(err *StatusError) error
}

// Executor handles rate-limited, retrying HTTP execution with JSON decoding.
type Executor struct {
	logger  *zap.Logger
	rateMgr *rate.Manager
	http    *http.Client
	cfg     Config
}

// New creates an Executor. rateMgr may be nil to disable rate limiting.
func New(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client, cfg Config) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Tag == "" {
		cfg.Tag = "http"
	}
	return &Executor{
		logger:  logger,
		rateMgr: rateMgr,
		http:    httpClient,
		cfg:     cfg,
	}
}

// BaseURL returns the configured base URL exactly as supplied.
func (e *Executor) BaseURL() string {
	return e.cfg.BaseURL
}

// GetJSON issues GET {BaseURL}{path} and decodes the response into out.
func (e *Executor) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return e.DoJSON(ctx, req, e.cfg.BaseURL, out)
}

// PostJSON issues POST {BaseURL}{path} with body encoded as JSON and decodes the response into out.
func (e *Executor) PostJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return e.DoJSON(ctx, req, e.cfg.BaseURL, out)
}

// DoJSON executes req with rate limiting, then JSON-decodes the response into out.
// Transport errors and 5xx responses are retried only for GET and HEAD.
// rateLimitKey scopes the rate limiter.
func (e *Executor) DoJSON(ctx context.Context, req *http.Request, rateLimitKey string, out any) error {
	if e.rateMgr != nil {
		if err := e.rateMgr.Wait(ctx, rateLimitKey); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if e.cfg.Tokens != nil {
		token, err := e.cfg.Tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("resolve token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	retryMax := 0
	if idempotent(req.Method) {
		retryMax = e.cfg.RetryMax
	}

	var lastErr error
	for attempt := 0; attempt <= retryMax; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, Backoff(attempt-1)); err != nil {
				return err
			}
		}

		start := time.Now()
		status, body, err := e.roundTrip(req)
		elapsed := time.Since(start)

		if err != nil {
			lastErr = err
			e.logger.Warn(e.cfg.Tag+".http_failed",
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.Error(err),
				zap.Int("attempt", attempt))
			continue
		}

		if status >= 500 && attempt < retryMax {
			e.logger.Warn(e.cfg.Tag+".server_error",
				zap.Int("status", status),
				zap.String("url", req.URL.String()),
				zap.Duration("latency", elapsed),
				zap.Int("attempt", attempt))
			lastErr = &StatusError{StatusCode: status, URL: req.URL.String(), Body: body}
			continue
		}

		if status >= 400 {
			serr := &StatusError{StatusCode: status, URL: req.URL.String(), Body: body}
			if e.cfg.ErrorHandler != nil {
				return e.cfg.ErrorHandler(serr)
			}
			return serr
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				e.logger.Warn(e.cfg.Tag+".decode_failed",
					zap.Error(err),
					zap.String("url", req.URL.String()),
					zap.Int("body_bytes", len(body)))
				return fmt.Errorf("decode failed: %w", err)
			}
		}

		e.logger.Debug(e.cfg.Tag+".http_success",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))

		return nil
	}

	return fmt.Errorf("%s request failed after %d attempts: %w", e.cfg.Tag, retryMax+1, lastErr)
}

func (e *Executor) roundTrip(req *http.Request) (int, []byte, error) {
	resp, err := e.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
