// Package middleware evaluates feature flags once per HTTP request and
// exposes the results to downstream handlers through the request context.
package middleware

import (
	"context"
	"net/http"

	"github.com/teracrafts/flagcache-go/types"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserPlan  = "X-User-Plan"

	// AnonymousUser is the entity ID used when the request carries no user ID.
	AnonymousUser = "anonymous"

	// DefaultPlan is used when the request carries no plan.
	DefaultPlan = "free"
)

// BatchEvaluator evaluates the configured flags for one subject.
type BatchEvaluator interface {
	Evaluate(ctx context.Context, entityID string, evalCtx map[string]string) map[string]bool
}

type contextKey struct{}

var featuresKey contextKey

// WithFeatures returns a copy of ctx carrying features.
func WithFeatures(ctx context.Context, features map[string]bool) context.Context {
	return context.WithValue(ctx, featuresKey, features)
}

// FeaturesFromContext returns the flags evaluated for the request, or an
// empty map when the middleware did not run.
func FeaturesFromContext(ctx context.Context) map[string]bool {
	if features, ok := ctx.Value(featuresKey).(map[string]bool); ok && features != nil {
		return features
	}
	return map[string]bool{}
}

// Features wraps next so each request is evaluated against batch before it is served.
type Features struct {
	batch  BatchEvaluator
	logger types.Logger
	filter func(map[string]string) map[string]string
}

// Option configures Features.
type Option func(*Features)

// WithContextFilter rewrites the attributes built by RequestContext before
// they are evaluated.
func WithContextFilter(filter func(map[string]string) map[string]string) Option {
	return func(m *Features) {
		m.filter = filter
	}
}

// New creates the middleware. A nil logger discards output.
func New(batch BatchEvaluator, logger types.Logger, opts ...Option) *Features {
	m := &Features{
		batch:  batch,
		logger: types.OrNull(logger),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler returns next wrapped with flag evaluation.
func (m *Features) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entityID := r.Header.Get(HeaderUserID)
		if entityID == "" {
			entityID = AnonymousUser
		}

		evalCtx := RequestContext(r)
		if m.filter != nil {
			evalCtx = m.filter(evalCtx)
		}

		features := m.batch.Evaluate(r.Context(), entityID, evalCtx)
		m.logger.Debug("Features evaluated", "entity_id", entityID, "count", len(features))

		next.ServeHTTP(w, r.WithContext(WithFeatures(r.Context(), features)))
	})
}

// RequestContext builds the evaluation context attributes for r.
func RequestContext(r *http.Request) map[string]string {
	plan := r.Header.Get(HeaderUserPlan)
	if plan == "" {
		plan = DefaultPlan
	}
	return map[string]string{
		"email":     r.Header.Get(HeaderUserEmail),
		"plan":      plan,
		"ip":        r.RemoteAddr,
		"userAgent": r.UserAgent(),
	}
}
