// Package grpc evaluates flags through Flipt's gRPC evaluation service.
package grpc

import (
	"context"
	"time"

	"go.flipt.io/flipt/rpc/flipt/evaluation"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/teracrafts/flagcache-go/errors"
	"github.com/teracrafts/flagcache-go/types"
)

// EvaluatorConfig contains gRPC evaluator configuration.
type EvaluatorConfig struct {
	Address   string
	AuthToken string

	// Timeout bounds each call. Zero leaves the caller's deadline alone.
	Timeout time.Duration

	Logger types.Logger

	// DialOptions are appended to the defaults (insecure transport, otel stats handler).
	DialOptions []grpc.DialOption
}

// Evaluator calls flipt.evaluation.EvaluationService.
type Evaluator struct {
	conn      *grpc.ClientConn
	client    evaluation.EvaluationServiceClient
	authToken string
	timeout   time.Duration
	logger    types.Logger
}

// NewEvaluator creates a client connection to address. The connection is
// established lazily on the first call.
func NewEvaluator(config *EvaluatorConfig) (*Evaluator, error) {
	if config == nil || config.Address == "" {
		return nil, errors.ConfigError(errors.ErrConfigMissingRequired, "grpc address is required")
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	opts = append(opts, config.DialOptions...)

	conn, err := grpc.NewClient(config.Address, opts...)
	if err != nil {
		return nil, errors.NewErrorWithCause(errors.ErrInitFailed, "failed to connect to Flipt", err)
	}

	logger := types.OrNull(config.Logger)
	logger.Debug("Flipt gRPC client created", "address", config.Address)

	return &Evaluator{
		conn:      conn,
		client:    evaluation.NewEvaluationServiceClient(conn),
		authToken: config.AuthToken,
		timeout:   config.Timeout,
		logger:    logger,
	}, nil
}

// EvaluateBoolean evaluates a boolean flag.
func (e *Evaluator) EvaluateBoolean(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()

	resp, err := e.client.Boolean(ctx, &evaluation.EvaluationRequest{
		NamespaceKey: namespaceKey,
		FlagKey:      flagKey,
		EntityId:     entityID,
		Context:      evalCtx,
	})
	if err != nil {
		return types.EvaluationResult{}, convertError(err, "failed to evaluate flag")
	}

	return types.EvaluationResult{
		FlagKey: flagKeyOr(resp.GetFlagKey(), flagKey),
		Enabled: resp.GetEnabled(),
		Reason:  types.EvaluationReason(resp.GetReason().String()),
	}, nil
}

// EvaluateVariant evaluates a variant flag. Enabled reports whether a variant matched.
func (e *Evaluator) EvaluateVariant(ctx context.Context, namespaceKey, flagKey, entityID string, evalCtx map[string]string) (types.EvaluationResult, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()

	resp, err := e.client.Variant(ctx, &evaluation.EvaluationRequest{
		NamespaceKey: namespaceKey,
		FlagKey:      flagKey,
		EntityId:     entityID,
		Context:      evalCtx,
	})
	if err != nil {
		return types.EvaluationResult{}, convertError(err, "failed to evaluate variant")
	}

	return types.EvaluationResult{
		FlagKey:    flagKeyOr(resp.GetFlagKey(), flagKey),
		Enabled:    resp.GetMatch(),
		VariantKey: resp.GetVariantKey(),
		Reason:     types.EvaluationReason(resp.GetReason().String()),
	}, nil
}

// Close closes the underlying connection.
func (e *Evaluator) Close() error {
	return e.conn.Close()
}

func (e *Evaluator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.authToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+e.authToken)
	}
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return ctx, func() {}
}

func flagKeyOr(got, want string) string {
	if got != "" {
		return got
	}
	return want
}

// convertError maps gRPC status codes onto error codes.
func convertError(err error, message string) error {
	st, ok := status.FromError(err)
	if !ok {
		return errors.NewErrorWithCause(errors.ErrNetworkError, message, err)
	}

	var code errors.ErrorCode
	switch st.Code() {
	case codes.Unauthenticated:
		code = errors.ErrAuthUnauthorized
	case codes.PermissionDenied:
		code = errors.ErrAuthInvalidKey
	case codes.NotFound:
		code = errors.ErrEvalFlagNotFound
	case codes.DeadlineExceeded, codes.Canceled:
		code = errors.ErrNetworkTimeout
	case codes.Unavailable:
		code = errors.ErrNetworkError
	case codes.ResourceExhausted:
		code = errors.ErrNetworkRetryLimit
	default:
		code = errors.ErrEvalFailed
	}
	return errors.NewErrorWithCause(code, message, err)
}
