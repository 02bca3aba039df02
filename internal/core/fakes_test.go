package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teracrafts/flagcache-go/types"
)

// fakeEvaluator returns configured results per flag key and counts calls.
type fakeEvaluator struct {
	mu       sync.Mutex
	results  map[string]types.EvaluationResult
	variants map[string]string
	errs     map[string]error
	failAll  error
	contexts []map[string]string

	// release, when set, blocks every call until it is closed.
	release chan struct{}

	calls atomic.Int32
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{
		results:  make(map[string]types.EvaluationResult),
		variants: make(map[string]string),
		errs:     make(map[string]error),
	}
}

func (f *fakeEvaluator) setEnabled(flagKey string, enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[flagKey] = types.EvaluationResult{FlagKey: flagKey, Enabled: enabled, Reason: types.ReasonMatch}
}

func (f *fakeEvaluator) setError(flagKey string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[flagKey] = err
}

func (f *fakeEvaluator) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = err
}

func (f *fakeEvaluator) EvaluateBoolean(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return types.EvaluationResult{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return types.EvaluationResult{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.contexts = append(f.contexts, evalCtx)
	if f.failAll != nil {
		return types.EvaluationResult{}, f.failAll
	}
	if err, ok := f.errs[flagKey]; ok && err != nil {
		return types.EvaluationResult{}, err
	}
	return f.results[flagKey], nil
}

// fakeVariantEvaluator adds variant support to fakeEvaluator.
type fakeVariantEvaluator struct {
	*fakeEvaluator
	variantCalls atomic.Int32
}

func (f *fakeVariantEvaluator) EvaluateVariant(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	f.variantCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return types.EvaluationResult{}, f.failAll
	}
	v, ok := f.variants[flagKey]
	return types.EvaluationResult{FlagKey: flagKey, Enabled: ok, VariantKey: v, Reason: types.ReasonMatch}, nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingLogger keeps Warn calls as key/value maps.
type recordingLogger struct {
	types.NullLogger

	mu    sync.Mutex
	warns []map[string]any
}

func (l *recordingLogger) Warn(msg string, keysAndValues ...any) {
	fields := map[string]any{"msg": msg}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			fields[k] = keysAndValues[i+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fields)
}

func (l *recordingLogger) warnings() []map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]map[string]any(nil), l.warns...)
}
