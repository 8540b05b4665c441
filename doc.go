// Package eauth is the authorization core of an authentication/authorization
// microservice: it issues and validates signed session tokens, tracks
// brute-force login-lockout state, and decides whether a caller may invoke a
// given (URL, HTTP method) pair based on cached role→API grants.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build] and [Engine.Start].
//
// # Architecture boundaries
//
// eauth is the public surface. It exposes [Engine], [Builder], [Config], the
// [UserStore] and [RoleApiStore] collaborator contracts, and value types
// (Identity, Api, Role, LockoutDecision). Internal coordination — lockout
// decisions, revocation markers, audit dispatch, metric counters — lives
// under internal/ and is never exported directly.
//
// # What this package must NOT do
//
//   - Own user/role/API CRUD. Those are collaborator concerns reached only
//     through the narrow store interfaces.
//   - Persist audit records. Events are emitted to a pluggable [AuditSink];
//     storage is the sink's problem.
//   - Fail open. Any error while loading permission data resolves to deny,
//     and every token-verification failure collapses into the same opaque
//     invalid outcome.
//
// # Performance contract
//
// VerifyToken and CheckPermission are the hot path. CheckPermission reads an
// immutable permission snapshot behind an atomic pointer and performs at most
// one Redis round-trip (the per-user role cache); a cache miss adds a single
// read-through to the system of record. The periodic snapshot refresh never
// blocks readers.
package eauth
