// Package middleware exposes HTTP middleware adapters for authentication and
// authorization enforcement built on top of eauth.Engine.
//
// # Guards
//
//   - [Guard] — full pipeline: bearer token verification, then permission check.
//   - [Authenticate] — token verification only, no permission check.
//
// Each guard reads the Authorization header, calls the Engine, and injects the
// verified identity into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to the
// Engine.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis or the user store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
