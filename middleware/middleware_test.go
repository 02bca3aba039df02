package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBatch struct {
	entityID string
	evalCtx  map[string]string
	result   map[string]bool
}

func (b *recordingBatch) Evaluate(_ context.Context, entityID string, evalCtx map[string]string) map[string]bool {
	b.entityID = entityID
	b.evalCtx = evalCtx
	return b.result
}

func TestHandlerPassesRequestAttributes(t *testing.T) {
	batch := &recordingBatch{result: map[string]bool{"new_dashboard": true}}

	var seen map[string]bool
	handler := New(batch, nil).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FeaturesFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set(HeaderUserID, "user-123")
	req.Header.Set(HeaderUserEmail, "user@example.com")
	req.Header.Set(HeaderUserPlan, "enterprise")
	req.Header.Set("User-Agent", "test-agent")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-123", batch.entityID)
	assert.Equal(t, map[string]string{
		"email":     "user@example.com",
		"plan":      "enterprise",
		"ip":        req.RemoteAddr,
		"userAgent": "test-agent",
	}, batch.evalCtx)
	assert.Equal(t, map[string]bool{"new_dashboard": true}, seen)
}

func TestHandlerDefaults(t *testing.T) {
	batch := &recordingBatch{result: map[string]bool{}}
	handler := New(batch, nil).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, AnonymousUser, batch.entityID)
	assert.Equal(t, DefaultPlan, batch.evalCtx["plan"])
	assert.Empty(t, batch.evalCtx["email"])
}

func TestFeaturesFromContextWithoutMiddleware(t *testing.T) {
	features := FeaturesFromContext(context.Background())
	require.NotNil(t, features)
	assert.Empty(t, features)
	assert.False(t, features["new_dashboard"])
}

func TestWithFeaturesNilMap(t *testing.T) {
	ctx := WithFeatures(context.Background(), nil)
	assert.NotNil(t, FeaturesFromContext(ctx))
}

func TestHandlerContextFilter(t *testing.T) {
	batch := &recordingBatch{result: map[string]bool{}}
	dropEmail := func(evalCtx map[string]string) map[string]string {
		delete(evalCtx, "email")
		return evalCtx
	}
	handler := New(batch, nil, WithContextFilter(dropEmail)).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserEmail, "user@example.com")
	req.Header.Set(HeaderUserPlan, "premium")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, batch.evalCtx, "email")
	assert.Equal(t, "premium", batch.evalCtx["plan"])
}
