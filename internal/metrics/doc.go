// Package metrics provides lock-free counters for eauth observability.
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. The write path is allocation-free.
//
// This package owns metric storage and snapshot creation only. It performs
// no I/O and imports no sibling package; export to an external metrics
// system is the embedding service's concern.
package metrics
