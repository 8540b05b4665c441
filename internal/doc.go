// Package internal and its subpackages hold engine coordination code that
// must never become part of the public eauth surface: lockout decisions,
// revocation markers, audit dispatch, and metric counters. The root package
// re-exports the few value types callers need via aliases.
package internal
