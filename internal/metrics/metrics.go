package metrics

import "sync/atomic"

// MetricID identifies a single counter slot.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLockedOut
	MetricTokenIssued
	MetricTokenInvalid
	MetricSessionRevoked
	MetricPermissionAllowed
	MetricPermissionDenied
	MetricCacheRefresh
	MetricRoleCacheMiss

	MetricIDCount
)

// Config controls counter collection. When Enabled is false all operations
// are no-ops.
type Config struct {
	Enabled bool
}

// paddedCounter occupies a full cache line to avoid false sharing between
// adjacent counters under concurrent increments.
type paddedCounter struct {
	value atomic.Uint64
	_     [56]byte
}

// Metrics holds one padded atomic counter per MetricID.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]paddedCounter
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[MetricID]uint64
}

// New creates a Metrics instance.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Get returns the current value of a single counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// Snapshot deep-copies all counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{Counters: make(map[MetricID]uint64, MetricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = m.counters[id].value.Load()
	}
	return snap
}
