// Package hosttest provides an in-memory document engine for exercising the
// lifecycle bridge without a real host.
//
// Tree is a full dom.Host: a miniature node tree with attributes, template
// fragments, deep cloning, shadow roots, and selector queries. Driver wraps
// a Tree and a custom.Dispatcher and replays host-side operations with the
// same synchronous, reentrant notification pattern a real engine produces:
// a SetAttribute issued from inside a lifecycle callback re-enters the
// dispatcher before it returns.
//
// Everything here runs on the caller's goroutine and is not safe for
// concurrent use, matching the single logical thread the bridge is
// specified against.
package hosttest
