// Package remote bridges a lifecycle dispatcher to a host engine over a
// WebSocket connection.
//
// An Endpoint accepts one engine connection at a time. The engine streams
// lifecycle and attribute-change frames; the endpoint decodes them and feeds
// a dispatcher on a single goroutine, preserving notification order. In the
// other direction, host operations issued by lifecycle callbacks are encoded
// as op frames and block until the engine's result frame arrives, so a
// callback observes its own DOM writes exactly as it would against a local
// tree.
//
// The socket reader and the dispatch loop are separate goroutines joined by
// a bounded queue. The reader resolves result frames directly, which keeps
// request/reply ops live while a callback holds the dispatch loop.
package remote
