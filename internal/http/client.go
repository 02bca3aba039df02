// Package http evaluates flags through Flipt's REST evaluation API.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teracrafts/flagcache-go/errors"
	"github.com/teracrafts/flagcache-go/types"
)

const (
	booleanPath = "/evaluate/v1/boolean"
	variantPath = "/evaluate/v1/variant"

	maxResponseBytes = 1 << 20
)

// UserAgent is sent with every request.
var UserAgent = "flagcache-go"

// ClientConfig contains HTTP evaluator configuration.
type ClientConfig struct {
	BaseURL        string
	AuthToken      string
	Timeout        time.Duration
	Retry          *RetryConfig
	CircuitBreaker *CircuitBreakerConfig
	Logger         types.Logger

	// HTTPClient overrides the underlying client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client evaluates flags over HTTP with retry and a circuit breaker.
type Client struct {
	baseURL        string
	authToken      string
	client         *http.Client
	retry          *RetryConfig
	circuitBreaker *CircuitBreaker
	logger         types.Logger
}

type evaluationRequest struct {
	NamespaceKey string            `json:"namespaceKey"`
	FlagKey      string            `json:"flagKey"`
	EntityID     string            `json:"entityId"`
	Context      map[string]string `json:"context"`
}

type booleanResponse struct {
	FlagKey string `json:"flagKey"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason"`
}

type variantResponse struct {
	FlagKey    string `json:"flagKey"`
	Match      bool   `json:"match"`
	VariantKey string `json:"variantKey"`
	Reason     string `json:"reason"`
}

// NewClient creates a new HTTP evaluator.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	logger := types.OrNull(config.Logger)

	retry := DefaultRetryConfig()
	if config.Retry != nil {
		r := *config.Retry
		retry = &r
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}

	cbConfig := config.CircuitBreaker
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	if cbConfig.Logger == nil {
		cb := *cbConfig
		cb.Logger = logger
		cbConfig = &cb
	}

	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		authToken:      config.AuthToken,
		client:         httpClient,
		retry:          retry,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		logger:         logger,
	}
}

// EvaluateBoolean evaluates a boolean flag.
func (c *Client) EvaluateBoolean(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	var resp booleanResponse
	if err := c.post(ctx, booleanPath, newRequest(namespaceKey, flagKey, entityID, evalCtx), &resp); err != nil {
		return types.EvaluationResult{}, err
	}
	return types.EvaluationResult{
		FlagKey: flagKeyOr(resp.FlagKey, flagKey),
		Enabled: resp.Enabled,
		Reason:  types.EvaluationReason(resp.Reason),
	}, nil
}

// EvaluateVariant evaluates a variant flag. Enabled reports whether a variant matched.
func (c *Client) EvaluateVariant(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	var resp variantResponse
	if err := c.post(ctx, variantPath, newRequest(namespaceKey, flagKey, entityID, evalCtx), &resp); err != nil {
		return types.EvaluationResult{}, err
	}
	return types.EvaluationResult{
		FlagKey:    flagKeyOr(resp.FlagKey, flagKey),
		Enabled:    resp.Match,
		VariantKey: resp.VariantKey,
		Reason:     types.EvaluationReason(resp.Reason),
	}, nil
}

// CircuitState returns the state of the client's circuit breaker.
func (c *Client) CircuitState() CircuitState {
	return c.circuitBreaker.State()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func newRequest(namespaceKey, flagKey, entityID string, evalCtx map[string]string) evaluationRequest {
	if evalCtx == nil {
		evalCtx = map[string]string{}
	}
	return evaluationRequest{
		NamespaceKey: namespaceKey,
		FlagKey:      flagKey,
		EntityID:     entityID,
		Context:      evalCtx,
	}
}

func flagKeyOr(got, want string) string {
	if got != "" {
		return got
	}
	return want
}

// post sends body with retry and circuit breaker protection and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	if !c.circuitBreaker.Allow() {
		return errors.NewError(errors.ErrCircuitOpen, "circuit breaker is open")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.NewErrorWithCause(errors.ErrNetworkError, "failed to marshal request body", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		err := c.doRequest(ctx, path, payload, out)
		if err == nil {
			c.circuitBreaker.RecordSuccess()
			return nil
		}
		lastErr = err

		if !c.isRetryable(ctx, err) {
			c.circuitBreaker.RecordFailure()
			return err
		}
		if attempt >= c.retry.MaxAttempts {
			break
		}

		delay := CalculateBackoff(attempt, c.retry)
		c.logger.Debug("Retrying request",
			"path", path,
			"attempt", attempt,
			"max_attempts", c.retry.MaxAttempts,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.circuitBreaker.RecordFailure()
			return errors.NewErrorWithCause(errors.ErrNetworkTimeout, "request cancelled", ctx.Err())
		case <-timer.C:
		}
	}

	c.circuitBreaker.RecordFailure()
	return errors.NetworkError(errors.ErrNetworkRetryLimit, "max retries exceeded", lastErr)
}

func (c *Client) doRequest(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.NewErrorWithCause(errors.ErrNetworkError, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.NewErrorWithCause(errors.ErrNetworkTimeout, "request cancelled", ctx.Err())
		}
		return errors.NewErrorWithCause(errors.ErrNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.NewErrorWithCause(errors.ErrNetworkError, "failed to read response body", err)
	}

	if resp.StatusCode >= 400 {
		return handleErrorResponse(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewErrorWithCause(errors.ErrEvalFailed, "failed to parse evaluation response", err)
	}
	return nil
}

// handleErrorResponse converts HTTP error responses to errors.
func handleErrorResponse(statusCode int, body []byte) error {
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return errors.NewError(errors.ErrAuthUnauthorized, message)
	case http.StatusForbidden:
		return errors.NewError(errors.ErrAuthInvalidKey, message)
	case http.StatusNotFound:
		return errors.NewError(errors.ErrEvalFlagNotFound, message)
	case http.StatusTooManyRequests:
		return errors.NewError(errors.ErrNetworkRetryLimit, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return errors.NewError(errors.ErrNetworkError, message)
	default:
		if statusCode >= 500 {
			return errors.NewError(errors.ErrNetworkError, fmt.Sprintf("HTTP %d: %s", statusCode, message))
		}
		return errors.NewError(errors.ErrEvalFailed, fmt.Sprintf("HTTP %d: %s", statusCode, message))
	}
}

// isRetryable reports whether err is a transient transport failure worth retrying.
func (c *Client) isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.HasCode(err, errors.ErrNetworkError) || errors.HasCode(err, errors.ErrNetworkTimeout)
}
