package permission

import (
	"strings"
	"time"
)

// Snapshot is an immutable point-in-time view of the grant table: every Api
// row with its compiled matcher, and every role's api-id set. It is
// read-only after construction; refresh publishes a whole new snapshot
// instead of mutating in place.
type Snapshot struct {
	version     uint64
	builtAt     time.Time
	apiByID     map[int64]Api
	matcherByID map[int64]*Matcher
	apisOfRole  map[int64][]int64
}

// Version returns the snapshot's monotonically increasing version.
func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// BuiltAt returns when the snapshot was constructed.
func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// Empty reports whether the snapshot holds no grant data. Permission checks
// against an empty snapshot must fail closed.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.apiByID) == 0
}

// Apis returns the number of api rows in the snapshot.
func (s *Snapshot) Apis() int {
	if s == nil {
		return 0
	}
	return len(s.apiByID)
}

// Authorize reports whether any of roleIDs holds a grant matching
// (rawURL, method). Api ids are deduplicated across roles so a grant shared
// by several roles is evaluated once, and evaluation short-circuits on the
// first match. An empty role set or empty snapshot denies.
func (s *Snapshot) Authorize(roleIDs []int64, rawURL, method string) bool {
	if s.Empty() || len(roleIDs) == 0 {
		return false
	}

	method = strings.ToUpper(method)

	apiSet := make(map[int64]struct{})
	for _, roleID := range roleIDs {
		for _, apiID := range s.apisOfRole[roleID] {
			apiSet[apiID] = struct{}{}
		}
	}

	for apiID := range apiSet {
		api, ok := s.apiByID[apiID]
		if !ok {
			continue
		}
		if method != strings.ToUpper(api.Method) {
			continue
		}
		if m := s.matcherByID[apiID]; m != nil && m.Match(rawURL) {
			return true
		}
	}
	return false
}
