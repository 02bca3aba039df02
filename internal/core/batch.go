package core

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teracrafts/flagcache-go/errors"
	"github.com/teracrafts/flagcache-go/types"
)

// BatchConfig contains batch evaluator configuration.
type BatchConfig struct {
	NamespaceKey string
	FlagKeys     []string

	// Concurrency limits in-flight evaluations. Values below 2 evaluate sequentially.
	Concurrency int

	Logger       types.Logger
	Sanitization errors.ErrorSanitizationConfig
}

// BatchEvaluator evaluates a fixed set of flags for one subject.
type BatchEvaluator struct {
	source       Evaluator
	namespaceKey string
	flagKeys     []string
	concurrency  int
	logger       types.Logger
	sanitization errors.ErrorSanitizationConfig
}

// NewBatchEvaluator creates a batch evaluator over source, which is usually a
// FreshnessCache but may be any Evaluator.
func NewBatchEvaluator(source Evaluator, config *BatchConfig) *BatchEvaluator {
	if config == nil {
		config = &BatchConfig{}
	}
	namespaceKey := config.NamespaceKey
	if namespaceKey == "" {
		namespaceKey = "default"
	}
	return &BatchEvaluator{
		source:       source,
		namespaceKey: namespaceKey,
		flagKeys:     append([]string(nil), config.FlagKeys...),
		concurrency:  config.Concurrency,
		logger:       types.OrNull(config.Logger),
		sanitization: config.Sanitization,
	}
}

// FlagKeys returns the configured flag keys.
func (b *BatchEvaluator) FlagKeys() []string {
	return append([]string(nil), b.flagKeys...)
}

// Evaluate evaluates the configured flags. See EvaluateFlags.
func (b *BatchEvaluator) Evaluate(ctx context.Context, entityID string, evalCtx map[string]string) map[string]bool {
	return b.EvaluateFlags(ctx, b.flagKeys, entityID, evalCtx)
}

// EvaluateFlags returns the enabled state of every flag in flagKeys. If any
// single evaluation fails the result is an empty map, never a partial one.
func (b *BatchEvaluator) EvaluateFlags(ctx context.Context, flagKeys []string, entityID string, evalCtx map[string]string) map[string]bool {
	var (
		results map[string]bool
		err     error
	)
	if b.concurrency > 1 {
		results, err = b.evaluateConcurrently(ctx, flagKeys, entityID, evalCtx)
	} else {
		results, err = b.evaluateSequentially(ctx, flagKeys, entityID, evalCtx)
	}
	if err != nil {
		var flagKey string
		if fe, ok := err.(*flagError); ok {
			flagKey, err = fe.flagKey, fe.err
		}
		b.logger.Warn("Error loading feature flags",
			"entity_id", entityID,
			"flag_key", flagKey,
			"error", errors.SanitizeError(err, b.sanitization),
		)
		return map[string]bool{}
	}
	return results
}

// flagError carries the key of the flag whose evaluation aborted a batch.
type flagError struct {
	flagKey string
	err     error
}

func (e *flagError) Error() string { return e.err.Error() }

func (e *flagError) Unwrap() error { return e.err }

func (b *BatchEvaluator) evaluateSequentially(ctx context.Context, flagKeys []string, entityID string, evalCtx map[string]string) (map[string]bool, error) {
	results := make(map[string]bool, len(flagKeys))
	for _, flagKey := range flagKeys {
		res, err := b.source.EvaluateBoolean(ctx, b.namespaceKey, flagKey, entityID, evalCtx)
		if err != nil {
			return nil, &flagError{flagKey: flagKey, err: err}
		}
		results[flagKey] = res.Enabled
	}
	return results, nil
}

func (b *BatchEvaluator) evaluateConcurrently(ctx context.Context, flagKeys []string, entityID string, evalCtx map[string]string) (map[string]bool, error) {
	var mu sync.Mutex
	results := make(map[string]bool, len(flagKeys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, flagKey := range flagKeys {
		g.Go(func() error {
			res, err := b.source.EvaluateBoolean(gctx, b.namespaceKey, flagKey, entityID, evalCtx)
			if err != nil {
				return &flagError{flagKey: flagKey, err: err}
			}
			mu.Lock()
			results[flagKey] = res.Enabled
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
