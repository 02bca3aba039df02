package flagcache

import (
	"github.com/teracrafts/flagcache-go/config"
)

// Options configures the client.
type Options = config.Options

// OptionFunc is a function that modifies Options.
type OptionFunc = config.OptionFunc

// Transport selects how flags are evaluated against Flipt.
type Transport = config.Transport

const (
	TransportGRPC = config.TransportGRPC
	TransportHTTP = config.TransportHTTP
)

var (
	DefaultOptions = config.DefaultOptions
	LoadEnv        = config.LoadEnv

	WithTransport         = config.WithTransport
	WithAddress           = config.WithAddress
	WithHTTP              = config.WithHTTP
	WithAuthToken         = config.WithAuthToken
	WithNamespace         = config.WithNamespace
	WithCacheTTL          = config.WithCacheTTL
	WithMaxEntries        = config.WithMaxEntries
	WithDeduplication     = config.WithDeduplication
	WithFlags             = config.WithFlags
	WithTimeout           = config.WithTimeout
	WithRetries           = config.WithRetries
	WithBatchConcurrency  = config.WithBatchConcurrency
	WithDebug             = config.WithDebug
	WithStrictPIIMode     = config.WithStrictPIIMode
	WithLogger            = config.WithLogger
	WithErrorSanitization = config.WithErrorSanitization
)

// WithOptions replaces the options wholesale, typically with values from LoadEnv.
func WithOptions(opts *Options) OptionFunc {
	return func(o *Options) {
		*o = *opts
	}
}
