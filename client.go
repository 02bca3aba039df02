package flagcache

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/teracrafts/flagcache-go/errors"
	"github.com/teracrafts/flagcache-go/internal/core"
	fgrpc "github.com/teracrafts/flagcache-go/internal/grpc"
	fhttp "github.com/teracrafts/flagcache-go/internal/http"
	"github.com/teracrafts/flagcache-go/middleware"
	"github.com/teracrafts/flagcache-go/security"
)

// Client evaluates flags through a FreshnessCache in front of Flipt.
type Client struct {
	options   *Options
	evaluator Evaluator
	cache     *core.FreshnessCache
	batch     *core.BatchEvaluator
	pii       *security.PIIGuard
	logger    Logger
	closed    bool
	mu        sync.RWMutex
}

// NewClient creates a client that talks to Flipt over the configured transport.
func NewClient(opts ...OptionFunc) (*Client, error) {
	return newClient(nil, opts...)
}

// NewClientWithEvaluator creates a client over a caller-supplied Evaluator.
// Transport, address and auth options are ignored.
func NewClientWithEvaluator(evaluator Evaluator, opts ...OptionFunc) (*Client, error) {
	if evaluator == nil {
		return nil, errors.ConfigError(errors.ErrConfigMissingRequired, "evaluator is required")
	}
	return newClient(evaluator, opts...)
}

func newClient(evaluator Evaluator, opts ...OptionFunc) (*Client, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	var logger Logger
	if options.Logger != nil {
		logger = options.Logger
	} else if options.Debug {
		logger = NewDefaultLogger(true)
	} else {
		logger = &NullLogger{}
	}

	if evaluator == nil {
		var err error
		evaluator, err = newTransport(options, logger)
		if err != nil {
			return nil, err
		}
	}

	cache, err := core.NewFreshnessCache(evaluator, options.CacheTTL, &core.CacheConfig{
		MaxEntries:   options.MaxEntries,
		Deduplicate:  options.Deduplicate,
		Logger:       logger,
		Sanitization: options.ErrorSanitization,
	})
	if err != nil {
		closeEvaluator(evaluator)
		return nil, err
	}

	batch := core.NewBatchEvaluator(cache, &core.BatchConfig{
		NamespaceKey: options.NamespaceKey,
		FlagKeys:     options.Flags,
		Concurrency:  options.BatchConcurrency,
		Logger:       logger,
		Sanitization: options.ErrorSanitization,
	})

	logger.Info("flagcache client created",
		"transport", string(options.Transport),
		"namespace", options.NamespaceKey,
		"ttl", options.CacheTTL,
		"flags", len(options.Flags),
	)

	return &Client{
		options:   options,
		evaluator: evaluator,
		cache:     cache,
		batch:     batch,
		pii:       security.NewPIIGuard(options.StrictPIIMode, logger),
		logger:    logger,
	}, nil
}

func newTransport(options *Options, logger Logger) (Evaluator, error) {
	switch options.Transport {
	case TransportHTTP:
		retry := fhttp.DefaultRetryConfig()
		retry.MaxAttempts = options.Retries
		return fhttp.NewClient(&fhttp.ClientConfig{
			BaseURL:   options.Address,
			AuthToken: options.AuthToken,
			Timeout:   options.Timeout,
			Retry:     retry,
			Logger:    logger,
		}), nil
	default:
		return fgrpc.NewEvaluator(&fgrpc.EvaluatorConfig{
			Address:   options.Address,
			AuthToken: options.AuthToken,
			Timeout:   options.Timeout,
			Logger:    logger,
		})
	}
}

// EvaluateBoolean evaluates flagKey in the configured namespace.
func (c *Client) EvaluateBoolean(ctx context.Context, flagKey, entityID string, evalCtx map[string]string) (EvaluationResult, error) {
	if err := c.checkRequest(evalCtx); err != nil {
		return EvaluationResult{}, err
	}
	return c.cache.EvaluateBoolean(ctx, c.options.NamespaceKey, flagKey, entityID, evalCtx)
}

// EvaluateVariant evaluates a variant flag in the configured namespace.
func (c *Client) EvaluateVariant(ctx context.Context, flagKey, entityID string, evalCtx map[string]string) (EvaluationResult, error) {
	if err := c.checkRequest(evalCtx); err != nil {
		return EvaluationResult{}, err
	}
	return c.cache.EvaluateVariant(ctx, c.options.NamespaceKey, flagKey, entityID, evalCtx)
}

// IsEnabled returns whether flagKey is enabled for entityID, or defaultValue
// when no result is available.
func (c *Client) IsEnabled(ctx context.Context, flagKey, entityID string, evalCtx map[string]string, defaultValue bool) bool {
	result, err := c.EvaluateBoolean(ctx, flagKey, entityID, evalCtx)
	if err != nil {
		c.logger.Warn("Using default value",
			"flag", flagKey,
			"default", defaultValue,
			"error", errors.SanitizeError(err, c.options.ErrorSanitization),
		)
		return defaultValue
	}
	return result.Enabled
}

// EvaluateAll evaluates every configured flag for entityID. The map is empty
// if any flag could not be evaluated.
func (c *Client) EvaluateAll(ctx context.Context, entityID string, evalCtx map[string]string) map[string]bool {
	if err := c.checkRequest(evalCtx); err != nil {
		c.logger.Warn("Batch evaluation rejected",
			"entity_id", entityID,
			"error", errors.SanitizeError(err, c.options.ErrorSanitization),
		)
		return map[string]bool{}
	}
	return c.batch.Evaluate(ctx, entityID, evalCtx)
}

// Middleware returns HTTP middleware that evaluates the configured flags per
// request. In strict PII mode attributes that look like PII, such as the
// X-User-Email header, are dropped from the request context instead of
// failing the whole batch.
func (c *Client) Middleware() *middleware.Features {
	if c.options.StrictPIIMode {
		return middleware.New(c, c.logger, middleware.WithContextFilter(security.StripPII))
	}
	return middleware.New(c, c.logger)
}

// Evaluate satisfies middleware.BatchEvaluator.
func (c *Client) Evaluate(ctx context.Context, entityID string, evalCtx map[string]string) map[string]bool {
	return c.EvaluateAll(ctx, entityID, evalCtx)
}

// Flags returns the flag keys evaluated by EvaluateAll.
func (c *Client) Flags() []string {
	return c.batch.FlagKeys()
}

// TTL returns the cache freshness window.
func (c *Client) TTL() time.Duration {
	return c.cache.TTL()
}

// Stats returns cache statistics.
func (c *Client) Stats() map[string]int {
	return c.cache.Stats()
}

// Close releases the transport. Evaluations after Close fail with INIT_FAILED.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.logger.Info("flagcache client closed")
	return closeEvaluator(c.evaluator)
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.NewError(errors.ErrInitFailed, "client is closed")
	}
	return nil
}

func (c *Client) checkRequest(evalCtx map[string]string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.pii.Check(evalCtx)
}

func closeEvaluator(evaluator Evaluator) error {
	if closer, ok := evaluator.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
