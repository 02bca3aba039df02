package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/teracrafts/flagcache-go/errors"
	"github.com/teracrafts/flagcache-go/types"
)

// Logger is the logging interface used by the client.
type Logger = types.Logger

// ErrorSanitizationConfig controls redaction of logged error messages.
type ErrorSanitizationConfig = errors.ErrorSanitizationConfig

// Transport selects how flags are evaluated against Flipt.
type Transport string

const (
	TransportGRPC Transport = "grpc"
	TransportHTTP Transport = "http"
)

const (
	// DefaultAddress is the in-cluster Flipt gRPC address.
	DefaultAddress = "flipt.flipt.svc.cluster.local:9000"

	// DefaultNamespace is the Flipt namespace flags are evaluated in.
	DefaultNamespace = "default"

	// DefaultCacheTTL is how long an evaluation result is reused.
	DefaultCacheTTL = time.Minute

	// DefaultTimeout bounds a single remote evaluation.
	DefaultTimeout = 5 * time.Second

	// DefaultRetries is the number of attempts made by the HTTP transport.
	DefaultRetries = 3

	// DefaultListenAddr is the address the demo server listens on.
	DefaultListenAddr = ":8080"

	// Version is reported by the demo server.
	Version = "1.0.0"
)

// DefaultFlags are the flags evaluated per request by the middleware.
func DefaultFlags() []string {
	return []string{"new_dashboard", "dark_mode", "beta_features"}
}

// Options configures the flagcache client.
type Options struct {
	// Transport is either "grpc" or "http".
	Transport Transport `env:"FLIPT_TRANSPORT"`

	// Address is host:port for gRPC or the base URL for HTTP.
	Address string `env:"FLIPT_ADDR"`

	// AuthToken is sent as a bearer token when set.
	AuthToken string `env:"FLIPT_AUTH_TOKEN"`

	NamespaceKey string `env:"FLIPT_NAMESPACE"`

	// CacheTTL is the freshness window. Zero disables reuse but keeps stale fallback.
	CacheTTL time.Duration `env:"FLAGCACHE_TTL"`

	// MaxEntries bounds the cache with LRU eviction. Zero means unbounded.
	MaxEntries int `env:"FLAGCACHE_MAX_ENTRIES"`

	// Deduplicate shares one remote call between concurrent misses on a key.
	Deduplicate bool `env:"FLAGCACHE_DEDUPLICATE"`

	// Flags are the flag keys evaluated by EvaluateAll and the middleware.
	Flags []string `env:"FLAGCACHE_FLAGS" envSeparator:","`

	Timeout time.Duration `env:"FLAGCACHE_TIMEOUT"`

	// Retries is the number of attempts made by the HTTP transport.
	Retries int `env:"FLAGCACHE_RETRIES"`

	// BatchConcurrency is the number of flags evaluated in parallel per batch.
	BatchConcurrency int `env:"FLAGCACHE_BATCH_CONCURRENCY"`

	Debug bool `env:"FLAGCACHE_DEBUG"`

	// StrictPIIMode rejects evaluations whose context looks like it carries
	// personal data instead of logging a warning.
	StrictPIIMode bool `env:"FLAGCACHE_STRICT_PII"`

	ListenAddr string `env:"LISTEN_ADDR"`

	// Logger overrides the default logger.
	Logger Logger

	// ErrorSanitization redacts sensitive details from logged errors.
	ErrorSanitization ErrorSanitizationConfig
}

// DefaultOptions returns options with default values.
func DefaultOptions() *Options {
	return &Options{
		Transport:        TransportGRPC,
		Address:          DefaultAddress,
		NamespaceKey:     DefaultNamespace,
		CacheTTL:         DefaultCacheTTL,
		Flags:            DefaultFlags(),
		Timeout:          DefaultTimeout,
		Retries:          DefaultRetries,
		BatchConcurrency: 1,
		ListenAddr:       DefaultListenAddr,
	}
}

// LoadEnv overrides o with any of its environment variables that are set.
func LoadEnv(o *Options) error {
	if err := env.Parse(o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate validates the options and normalizes values that have safe fallbacks.
func (o *Options) Validate() error {
	if o.Address == "" {
		return errors.ConfigError(errors.ErrConfigMissingRequired, "Flipt address is required")
	}

	switch o.Transport {
	case TransportGRPC:
	case TransportHTTP:
		u, err := url.Parse(o.Address)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.ConfigError(errors.ErrConfigInvalidURL, "HTTP transport requires an http(s) base URL")
		}
	default:
		return errors.ConfigError(errors.ErrConfigInvalidTransport, fmt.Sprintf("unknown transport %q", o.Transport))
	}

	if o.NamespaceKey == "" {
		return errors.ConfigError(errors.ErrConfigMissingRequired, "namespace is required")
	}

	if o.CacheTTL < 0 {
		return errors.ConfigError(errors.ErrConfigInvalidTTL, "cache TTL must not be negative")
	}

	if o.MaxEntries < 0 {
		return errors.ConfigError(errors.ErrConfigInvalidSize, "max entries must not be negative")
	}

	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.Retries < 1 {
		o.Retries = 1
	}

	if o.BatchConcurrency < 1 {
		o.BatchConcurrency = 1
	}

	return nil
}

// OptionFunc is a function that modifies Options.
type OptionFunc func(*Options)

// WithTransport sets the transport.
func WithTransport(t Transport) OptionFunc {
	return func(o *Options) {
		o.Transport = t
	}
}

// WithAddress sets the Flipt address.
func WithAddress(addr string) OptionFunc {
	return func(o *Options) {
		o.Address = addr
	}
}

// WithHTTP selects the HTTP transport with the given base URL.
func WithHTTP(baseURL string) OptionFunc {
	return func(o *Options) {
		o.Transport = TransportHTTP
		o.Address = baseURL
	}
}

// WithAuthToken sets the bearer token.
func WithAuthToken(token string) OptionFunc {
	return func(o *Options) {
		o.AuthToken = token
	}
}

// WithNamespace sets the namespace.
func WithNamespace(ns string) OptionFunc {
	return func(o *Options) {
		o.NamespaceKey = ns
	}
}

// WithCacheTTL sets the cache TTL.
func WithCacheTTL(d time.Duration) OptionFunc {
	return func(o *Options) {
		o.CacheTTL = d
	}
}

// WithMaxEntries bounds the cache.
func WithMaxEntries(n int) OptionFunc {
	return func(o *Options) {
		o.MaxEntries = n
	}
}

// WithDeduplication enables or disables in-flight deduplication.
func WithDeduplication(enabled bool) OptionFunc {
	return func(o *Options) {
		o.Deduplicate = enabled
	}
}

// WithFlags sets the flag keys evaluated per request.
func WithFlags(keys ...string) OptionFunc {
	return func(o *Options) {
		o.Flags = keys
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) OptionFunc {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithRetries sets the number of HTTP attempts.
func WithRetries(n int) OptionFunc {
	return func(o *Options) {
		o.Retries = n
	}
}

// WithBatchConcurrency sets how many flags a batch evaluates in parallel.
func WithBatchConcurrency(n int) OptionFunc {
	return func(o *Options) {
		o.BatchConcurrency = n
	}
}

// WithDebug enables debug logging.
func WithDebug() OptionFunc {
	return func(o *Options) {
		o.Debug = true
	}
}

// WithStrictPIIMode rejects evaluation contexts with potential PII.
func WithStrictPIIMode() OptionFunc {
	return func(o *Options) {
		o.StrictPIIMode = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger Logger) OptionFunc {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithErrorSanitization enables redaction of paths, addresses, tokens and
// emails in logged error messages.
func WithErrorSanitization(enabled bool) OptionFunc {
	return func(o *Options) {
		o.ErrorSanitization.Enabled = enabled
	}
}
