package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.flipt.io/flipt/rpc/flipt/evaluation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/teracrafts/flagcache-go/errors"
)

type stubServer struct {
	evaluation.UnimplementedEvaluationServiceServer

	mu       sync.Mutex
	requests []*evaluation.EvaluationRequest
	auth     []string
	err      error
	block    bool
}

func (s *stubServer) record(ctx context.Context, req *evaluation.EvaluationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		s.auth = append(s.auth, md.Get("authorization")...)
	}
	return s.err
}

func (s *stubServer) Boolean(ctx context.Context, req *evaluation.EvaluationRequest) (*evaluation.BooleanEvaluationResponse, error) {
	if err := s.record(ctx, req); err != nil {
		return nil, err
	}
	if s.block {
		<-ctx.Done()
		return nil, status.FromContextError(ctx.Err()).Err()
	}
	return &evaluation.BooleanEvaluationResponse{
		Enabled: req.GetContext()["plan"] == "enterprise",
		Reason:  evaluation.EvaluationReason_MATCH_EVALUATION_REASON,
		FlagKey: req.GetFlagKey(),
	}, nil
}

func (s *stubServer) Variant(ctx context.Context, req *evaluation.EvaluationRequest) (*evaluation.VariantEvaluationResponse, error) {
	if err := s.record(ctx, req); err != nil {
		return nil, err
	}
	return &evaluation.VariantEvaluationResponse{
		Match:      true,
		VariantKey: "variant_b",
		Reason:     evaluation.EvaluationReason_MATCH_EVALUATION_REASON,
		FlagKey:    req.GetFlagKey(),
	}, nil
}

func startEvaluator(t *testing.T, srv *stubServer, config EvaluatorConfig) *Evaluator {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	evaluation.RegisterEvaluationServiceServer(server, srv)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	config.Address = "passthrough:///bufnet"
	config.DialOptions = append(config.DialOptions, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))

	evaluator, err := NewEvaluator(&config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = evaluator.Close() })
	return evaluator
}

func TestNewEvaluatorRequiresAddress(t *testing.T) {
	_, err := NewEvaluator(nil)
	assert.True(t, errors.HasCode(err, errors.ErrConfigMissingRequired))

	_, err = NewEvaluator(&EvaluatorConfig{})
	assert.True(t, errors.HasCode(err, errors.ErrConfigMissingRequired))
}

func TestEvaluatorBoolean(t *testing.T) {
	srv := &stubServer{}
	evaluator := startEvaluator(t, srv, EvaluatorConfig{AuthToken: "secret", Timeout: time.Second})

	result, err := evaluator.EvaluateBoolean(context.Background(), "default", "new_dashboard", "user-123", map[string]string{"plan": "enterprise"})
	require.NoError(t, err)

	assert.True(t, result.Enabled)
	assert.Equal(t, "new_dashboard", result.FlagKey)
	assert.Equal(t, "MATCH_EVALUATION_REASON", string(result.Reason))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.requests, 1)
	req := srv.requests[0]
	assert.Equal(t, "default", req.GetNamespaceKey())
	assert.Equal(t, "user-123", req.GetEntityId())
	assert.Equal(t, []string{"Bearer secret"}, srv.auth)
}

func TestEvaluatorVariant(t *testing.T) {
	evaluator := startEvaluator(t, &stubServer{}, EvaluatorConfig{})

	result, err := evaluator.EvaluateVariant(context.Background(), "default", "checkout_flow", "user-456", nil)
	require.NoError(t, err)
	assert.True(t, result.Enabled)
	assert.Equal(t, "variant_b", result.VariantKey)
	assert.True(t, result.HasVariant())
}

func TestEvaluatorStatusMapping(t *testing.T) {
	tests := []struct {
		code codes.Code
		want errors.ErrorCode
	}{
		{codes.NotFound, errors.ErrEvalFlagNotFound},
		{codes.Unauthenticated, errors.ErrAuthUnauthorized},
		{codes.PermissionDenied, errors.ErrAuthInvalidKey},
		{codes.Unavailable, errors.ErrNetworkError},
		{codes.ResourceExhausted, errors.ErrNetworkRetryLimit},
		{codes.InvalidArgument, errors.ErrEvalFailed},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			srv := &stubServer{err: status.Error(tt.code, "boom")}
			evaluator := startEvaluator(t, srv, EvaluatorConfig{})

			_, err := evaluator.EvaluateBoolean(context.Background(), "default", "flag", "user", nil)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.want), "got %v", err)
		})
	}
}

func TestEvaluatorTimeout(t *testing.T) {
	evaluator := startEvaluator(t, &stubServer{block: true}, EvaluatorConfig{Timeout: 20 * time.Millisecond})

	_, err := evaluator.EvaluateBoolean(context.Background(), "default", "flag", "user", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrNetworkTimeout))
	assert.True(t, errors.IsRecoverable(err))
}
