// Package protocol implements the binary wire format spoken between a
// rendering engine and a lifecycle bridge.
//
// The engine owns the element tree. It reports lifecycle transitions and
// attribute mutations to the bridge; the bridge drives the tree back through
// host operations (template creation, shadow roots, attribute writes,
// selector queries). Every message travels inside a frame:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│  Payload (variable length)                                  │
//	└─────────────────────────────────────────────────────────────┘
//
// Payloads are varint-based: unsigned varints for handles and counts,
// length-prefixed UTF-8 for names and markup, a presence byte ahead of
// optional attribute values.
//
// Engine to bridge: Hello (handshake), Lifecycle, Attribute, Result
// (replies to host operations), Control (pong, bye).
//
// Bridge to engine: Welcome (handshake reply), Op (host operations, each
// carrying a call ID answered by a Result), Control (ping, bye), Fault.
//
// Decoding is defensive. Length prefixes are validated against the
// remaining buffer and against allocation ceilings before any allocation
// happens, so a malicious engine cannot force large allocations or panics
// with a short frame.
package protocol
