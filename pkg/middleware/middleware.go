// Package middleware provides the gin middleware shared by storybook-rag HTTP servers.
//
// This package includes:
//   - RequestID: assigns a ULID request id (X-Request-ID) to each request
//   - Logger: structured access log through kart-io/logger
//   - Recovery: panic recovery with a JSON error response
//   - Metrics: per-route request counters and latency histograms
//
// Usage:
//
//	engine := gin.New()
//	engine.Use(
//	    middleware.RequestID(),
//	    middleware.Logger(middleware.DefaultLoggerConfig),
//	    middleware.Metrics(recorder),
//	    middleware.Recovery(),
//	)
//
// Recovery goes last so that Logger and Metrics observe the 500 it writes.
package middleware
