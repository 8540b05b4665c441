// Package permission answers "may this set of roles invoke (url, method)?"
// from a refreshable in-memory view of the role→api grant table.
//
// # Design
//
// The bulk data — every Api row and every role's api-id set — is compiled
// into an immutable [Snapshot] and published through an atomic pointer:
// readers always see either the old or the new complete snapshot, never a
// partial one. A background task rebuilds the snapshot on a fixed interval;
// a refresh in progress never blocks readers.
//
// Per-user role assignments are deliberately not part of the snapshot: they
// are cached lazily in Redis, one key per user with its own TTL, with a
// synchronous read-through to the system of record on miss. Grants and
// revocations therefore take effect within refresh interval + user TTL;
// callers must expect this staleness window.
//
// # Failure mode
//
// An empty or missing snapshot and any error loading permission data
// resolve to deny, never to allow.
package permission
