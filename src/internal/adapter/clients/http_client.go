package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/api-sage/transfer-orchestrator/src/internal/commons"
	"github.com/api-sage/transfer-orchestrator/src/internal/logger"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

const (
	breakerConsecutiveFailures = 5
	breakerOpenTimeout         = 30 * time.Second
	maxResponseBytes           = 1 << 20
	maxRetries                 = 3
)

// retryInitialInterval is the first retry delay; later ones double (2s, 4s, 8s).
var retryInitialInterval = 2 * time.Second

// statusError carries a non-2xx answer so callers can still read the body.
type statusError struct {
	StatusCode int
	Body       []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// jsonClient is the shared transport for collaborator calls. Transient
// failures are retried with exponential backoff inside the breaker, so one
// exhausted retry run counts as a single breaker failure. Server errors and
// transport failures trip the breaker; 4xx answers and caller cancellation do
// not.
type jsonClient struct {
	service string
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newJSONClient(service string, baseURL string, timeout time.Duration) *jsonClient {
	return &jsonClient{
		service: service,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    service,
			Timeout: breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerConsecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				if errors.Is(err, context.Canceled) {
					return true
				}
				var se *statusError
				if errors.As(err, &se) {
					return se.StatusCode < http.StatusInternalServerError
				}
				return err == nil
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("collaborator circuit breaker state changed", logger.Fields{
					"service": name,
					"from":    from.String(),
					"to":      to.String(),
				})
			},
		}),
	}
}

// do sends the request and returns the raw body of a 2xx answer. Non-2xx
// answers come back as *statusError, everything else as a transport error.
func (c *jsonClient) do(ctx context.Context, method string, path string, payload any) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.sendWithRetry(ctx, method, path, payload)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *jsonClient) sendWithRetry(ctx context.Context, method string, path string, payload any) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		raw, err := c.send(ctx, method, path, payload)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return raw, backoff.Permanent(err)
		}
		logger.WarnContext(ctx, "collaborator call failed, retrying", logger.Fields{
			"service": c.service,
			"path":    path,
			"attempt": attempt,
			"reason":  err.Error(),
		})
		return raw, err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}

func (c *jsonClient) send(ctx context.Context, method string, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey := commons.APIKeyFromContext(ctx); apiKey != "" {
		req.Header.Set(commons.APIKeyHeader, apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, &statusError{StatusCode: resp.StatusCode, Body: raw}
	}
	return raw, nil
}

// describe turns a failed call into the short message surfaced to callers.
func describe(service string, err error) string {
	var se *statusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("%s error (%d)", service, se.StatusCode)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Sprintf("%s unavailable", service)
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return fmt.Sprintf("%s timeout", service)
	default:
		return fmt.Sprintf("%s network error: %v", service, err)
	}
}

// isTransient reports whether a failed call is worth repeating: transport
// errors, request timeouts and 5xx answers.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusRequestTimeout || se.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
