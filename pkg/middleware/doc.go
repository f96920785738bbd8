// Package middleware provides observability middleware for the lifecycle
// dispatch pipeline.
//
// This package includes:
//   - Prometheus metrics middleware
//   - OpenTelemetry tracing middleware
//
// # Prometheus Metrics
//
// The Metrics middleware counts notifications by stage, kind, and outcome,
// times dispatch, and classifies contained failures:
//
//	disp := custom.NewDispatcher(host, reg)
//	disp.Use(middleware.Metrics())
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// The OTel middleware opens one span per notification and marks it errored
// when the dispatched callback fails:
//
//	disp.Use(middleware.OTel(
//	    middleware.WithTracerName("my-app"),
//	))
//
// Both middlewares observe contained failures through the handler's return
// error; they never alter dispatch behavior.
package middleware
