// Package queryexec implements the query-execution port over the HTTP API
// of the graph-database backend. All calls run behind a circuit breaker so
// a failing backend sheds load fast instead of stacking timeouts.
package queryexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"graphlens/application/ports"
	apperrors "graphlens/pkg/errors"
)

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests calls have been observed.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the stock breaker tuning.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Options configures the HTTP client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker BreakerConfig
}

// Client calls the backend's /query and /expand endpoints and returns the
// raw response shape; graph validation happens at the model boundary.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

var _ ports.QueryExecutor = (*Client)(nil)

// New builds a query-execution client.
func New(opts Options, logger *zap.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, apperrors.NewStructural("query backend base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Breaker.Name == "" {
		opts.Breaker = DefaultBreakerConfig("query-backend")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Breaker.Name,
		MaxRequests: opts.Breaker.MaxRequests,
		Interval:    opts.Breaker.Interval,
		Timeout:     opts.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.Breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= opts.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    &http.Client{Timeout: opts.Timeout},
		breaker: breaker,
		logger:  logger,
	}, nil
}

type queryRequest struct {
	Query  string            `json:"query"`
	Params map[string]string `json:"params,omitempty"`
}

// ExecuteQuery runs a query against the backend.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]string) (*ports.QueryResponse, error) {
	if query == "" {
		return nil, apperrors.NewValidation("query must not be empty")
	}
	return c.post(ctx, "/query", queryRequest{Query: query, Params: params})
}

// ExpandNode fetches the undiscovered neighborhood of one node.
func (c *Client) ExpandNode(ctx context.Context, q ports.ExpansionQuery) (*ports.QueryResponse, error) {
	return c.post(ctx, "/expand", q)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*ports.QueryResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "encoding request")
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doPost(ctx, path, body)
	})
	if err != nil {
		switch err {
		case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
			c.logger.Warn("query backend circuit open", zap.String("path", path))
			return nil, apperrors.NewExternal("query backend temporarily unavailable", err)
		default:
			return nil, err
		}
	}

	return result.(*ports.QueryResponse), nil
}

func (c *Client) doPost(ctx context.Context, path string, body []byte) (*ports.QueryResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, "calling query backend")
	}
	defer resp.Body.Close()

	c.logger.Debug("query backend call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Wrap(err, "reading response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, backendError(resp.StatusCode, data)
	}

	var out ports.QueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperrors.NewExternal("query backend returned malformed JSON", err)
	}
	return &out, nil
}

// maxResponseBytes caps a backend response at 64 MiB.
const maxResponseBytes = 64 << 20

// backendError maps an HTTP failure to a typed error, preferring the
// backend's own message when the body carries one.
func backendError(status int, body []byte) error {
	message := fmt.Sprintf("query backend returned status %d", status)

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			message = envelope.Error
		} else if envelope.Message != "" {
			message = envelope.Message
		}
	}

	switch {
	case status == http.StatusBadRequest:
		return apperrors.NewValidation(message)
	case status == http.StatusNotFound:
		return apperrors.NewNotFound(message)
	default:
		return apperrors.NewExternal(message, nil)
	}
}
