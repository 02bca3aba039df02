// Package flagcache evaluates Flipt feature flags through an in-memory
// freshness cache that keeps serving the last known result when Flipt is
// unreachable.
//
// Quick Start:
//
//	client, err := flagcache.NewClient(
//	    flagcache.WithAddress("flipt.flipt.svc.cluster.local:9000"),
//	    flagcache.WithCacheTTL(time.Minute),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Single flag
//	if client.IsEnabled(ctx, "new_dashboard", "user-123", nil, false) {
//	    // ...
//	}
//
//	// Every configured flag for a subject; empty on any failure
//	features := client.EvaluateAll(ctx, "user-123", map[string]string{"plan": "enterprise"})
//
//	// Per-request evaluation for HTTP servers
//	http.ListenAndServe(":8080", client.Middleware().Handler(mux))
package flagcache

import (
	"github.com/teracrafts/flagcache-go/middleware"
)

// FeaturesFromContext returns the flags evaluated by the client middleware
// for the current request, or an empty map.
var FeaturesFromContext = middleware.FeaturesFromContext
