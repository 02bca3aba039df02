package core

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/teracrafts/flagcache-go/errors"
	"github.com/teracrafts/flagcache-go/types"
)

const tracerName = "github.com/teracrafts/flagcache-go/internal/core"

// DefaultFetchTimeout bounds a deduplicated remote call, which outlives the
// cancellation of the caller that started it.
const DefaultFetchTimeout = 30 * time.Second

// Evaluator evaluates boolean flags against a remote service.
type Evaluator interface {
	EvaluateBoolean(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error)
}

// VariantEvaluator is an Evaluator that can also resolve variant flags.
type VariantEvaluator interface {
	Evaluator
	EvaluateVariant(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error)
}

// CacheConfig contains optional cache configuration.
type CacheConfig struct {
	// MaxEntries bounds the store with LRU eviction. Zero means unbounded.
	MaxEntries int

	// Deduplicate collapses concurrent misses on one key into a single remote call.
	Deduplicate bool

	// FetchTimeout bounds a deduplicated remote call. Defaults to DefaultFetchTimeout.
	FetchTimeout time.Duration

	Logger       types.Logger
	Sanitization errors.ErrorSanitizationConfig

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time

	// TracerProvider defaults to the global otel provider.
	TracerProvider trace.TracerProvider
}

// FreshnessCache serves flag evaluations from memory while they are younger
// than the TTL, and falls back to the last known result when the Evaluator fails.
type FreshnessCache struct {
	evaluator    Evaluator
	ttl          time.Duration
	store        store
	deduplicate  bool
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       types.Logger
	sanitization errors.ErrorSanitizationConfig
	now          func() time.Time
	tracer       trace.Tracer

	hits        atomic.Int64
	misses      atomic.Int64
	fetches     atomic.Int64
	fetchErrors atomic.Int64
	staleServed atomic.Int64
}

// NewFreshnessCache creates a cache in front of evaluator. A nil config uses defaults.
func NewFreshnessCache(evaluator Evaluator, ttl time.Duration, config *CacheConfig) (*FreshnessCache, error) {
	if evaluator == nil {
		return nil, errors.ConfigError(errors.ErrConfigMissingRequired, "evaluator is required")
	}
	if ttl < 0 {
		return nil, errors.ConfigError(errors.ErrConfigInvalidTTL, "ttl must not be negative")
	}
	if config == nil {
		config = &CacheConfig{}
	}
	if config.MaxEntries < 0 {
		return nil, errors.ConfigError(errors.ErrConfigInvalidSize, "max entries must not be negative")
	}

	logger := types.OrNull(config.Logger)

	var s store = newMapStore()
	if config.MaxEntries > 0 {
		bounded, err := newLRUStore(config.MaxEntries, logger)
		if err != nil {
			return nil, errors.NewErrorWithCause(errors.ErrInitFailed, "create lru store", err)
		}
		s = bounded
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	fetchTimeout := config.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &FreshnessCache{
		evaluator:    evaluator,
		ttl:          ttl,
		store:        s,
		deduplicate:  config.Deduplicate,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		sanitization: config.Sanitization,
		now:          now,
		tracer:       tp.Tracer(tracerName),
	}, nil
}

// TTL returns the freshness window applied to every entry.
func (c *FreshnessCache) TTL() time.Duration {
	return c.ttl
}

// EvaluateBoolean returns the boolean evaluation for the subject.
//
// A stored result younger than the TTL is returned without a remote call.
// Otherwise the Evaluator is asked; its result replaces the stored one. If the
// Evaluator fails and any earlier result exists for the key, however old, that
// result is returned instead of the error.
func (c *FreshnessCache) EvaluateBoolean(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	key := NewCacheKey(namespaceKey, flagKey, entityID)
	return c.evaluate(ctx, key, func(ctx context.Context) (types.EvaluationResult, error) {
		return c.evaluator.EvaluateBoolean(ctx, namespaceKey, flagKey, entityID, evalCtx)
	})
}

// EvaluateVariant is EvaluateBoolean for variant flags. The Evaluator must
// implement VariantEvaluator.
func (c *FreshnessCache) EvaluateVariant(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	ve, ok := c.evaluator.(VariantEvaluator)
	if !ok {
		return types.EvaluationResult{}, errors.NewError(errors.ErrEvalUnsupported, "evaluator does not support variant flags")
	}

	key := CacheKey{
		Kind:         KindVariant,
		NamespaceKey: namespaceKey,
		FlagKey:      flagKey,
		EntityID:     entityID,
	}
	return c.evaluate(ctx, key, func(ctx context.Context) (types.EvaluationResult, error) {
		return ve.EvaluateVariant(ctx, namespaceKey, flagKey, entityID, evalCtx)
	})
}

type fetchFunc func(ctx context.Context) (types.EvaluationResult, error)

func (c *FreshnessCache) evaluate(ctx context.Context, key CacheKey, fetch fetchFunc) (types.EvaluationResult, error) {
	if err := key.validate(); err != nil {
		return types.EvaluationResult{}, err
	}

	if e, ok := c.store.get(key); ok && c.isFresh(e) {
		c.hits.Add(1)
		c.logger.Debug("Cache hit", "key", key.String())
		return e.value, nil
	}
	c.misses.Add(1)

	value, err := c.fetch(ctx, key, fetch)
	if err == nil {
		return value, nil
	}

	// Looked up again so that a result stored by a concurrent caller still counts.
	if e, ok := c.store.get(key); ok {
		c.staleServed.Add(1)
		c.logger.Warn("Using stale cache due to error",
			"key", key.String(),
			"age", c.now().Sub(e.storedAt),
			"error", errors.SanitizeError(err, c.sanitization),
		)
		return e.value, nil
	}

	return types.EvaluationResult{}, errors.NewErrorWithCause(errors.ErrEvalFailed, "evaluate flag "+key.FlagKey, err)
}

// fetch asks the Evaluator for key. With deduplication the remote call is
// shared and runs detached from any one caller's cancellation; each caller
// stops waiting when its own context is done.
func (c *FreshnessCache) fetch(ctx context.Context, key CacheKey, fetch fetchFunc) (types.EvaluationResult, error) {
	if !c.deduplicate {
		return c.fetchAndStore(ctx, key, fetch)
	}
	if err := ctx.Err(); err != nil {
		return types.EvaluationResult{}, err
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// A caller that missed just before the previous shared call stored.
		if e, ok := c.store.get(key); ok && c.isFresh(e) {
			return e.value, nil
		}
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fetchAndStore(sharedCtx, key, fetch)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("Shared in-flight evaluation", "key", key.String())
		}
		if res.Err != nil {
			return types.EvaluationResult{}, res.Err
		}
		return res.Val.(types.EvaluationResult), nil
	case <-ctx.Done():
		return types.EvaluationResult{}, ctx.Err()
	}
}

func (c *FreshnessCache) fetchAndStore(ctx context.Context, key CacheKey, fetch fetchFunc) (types.EvaluationResult, error) {
	ctx, span := c.tracer.Start(ctx, "flagcache.fetch", trace.WithAttributes(
		attribute.String("flag.namespace", key.NamespaceKey),
		attribute.String("flag.key", key.FlagKey),
		attribute.String("flag.kind", key.Kind.String()),
	))
	defer span.End()

	c.fetches.Add(1)
	value, err := fetch(ctx)
	if err != nil {
		c.fetchErrors.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote evaluation failed")
		return types.EvaluationResult{}, err
	}

	c.store.put(key, cacheEntry{value: value, storedAt: c.now()})
	c.logger.Debug("Cache set", "key", key.String(), "ttl", c.ttl)
	return value, nil
}

func (c *FreshnessCache) isFresh(e cacheEntry) bool {
	return c.now().Sub(e.storedAt) < c.ttl
}

// Size returns the number of stored entries, fresh or stale.
func (c *FreshnessCache) Size() int {
	return c.store.len()
}

// Stats returns cache statistics.
func (c *FreshnessCache) Stats() map[string]int {
	fresh, stale := 0, 0
	for _, e := range c.store.entries() {
		if c.isFresh(e) {
			fresh++
		} else {
			stale++
		}
	}

	return map[string]int{
		"size":         fresh + stale,
		"fresh_count":  fresh,
		"stale_count":  stale,
		"hits":         int(c.hits.Load()),
		"misses":       int(c.misses.Load()),
		"fetches":      int(c.fetches.Load()),
		"fetch_errors": int(c.fetchErrors.Load()),
		"stale_served": int(c.staleServed.Load()),
	}
}
