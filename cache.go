package flagcache

import (
	"time"

	"github.com/teracrafts/flagcache-go/internal/core"
)

// Evaluator evaluates boolean flags against a remote service.
type Evaluator = core.Evaluator

// VariantEvaluator is an Evaluator that can also resolve variant flags.
type VariantEvaluator = core.VariantEvaluator

// FreshnessCache reuses results younger than its TTL and serves the last
// known result when the Evaluator fails.
type FreshnessCache = core.FreshnessCache

// CacheConfig contains optional cache configuration.
type CacheConfig = core.CacheConfig

// NewFreshnessCache creates a cache in front of evaluator.
func NewFreshnessCache(evaluator Evaluator, ttl time.Duration, config *CacheConfig) (*FreshnessCache, error) {
	return core.NewFreshnessCache(evaluator, ttl, config)
}

// BatchEvaluator evaluates a set of flags for one subject and fails closed.
type BatchEvaluator = core.BatchEvaluator

// BatchConfig contains batch evaluator configuration.
type BatchConfig = core.BatchConfig

// NewBatchEvaluator creates a batch evaluator over source.
func NewBatchEvaluator(source Evaluator, config *BatchConfig) *BatchEvaluator {
	return core.NewBatchEvaluator(source, config)
}
