package eauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/eauth-dev/eauth/password"
	"github.com/eauth-dev/eauth/permission"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// fakeClock is a manually advanced clock shared by engine and test.
type fakeClock struct {
	mu sync.Mutex
	at time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}

// mockStore implements UserStore and RoleApiStore in memory, with error
// injection knobs for degraded-backend scenarios.
type mockStore struct {
	mu         sync.Mutex
	users      map[int64]Identity
	byUsername map[string]int64
	apis       []Api
	roles      []Role
	roleApis   map[int64][]int64
	userRoles  map[int64][]int64

	failCounterWrites bool
	failUserRoleReads bool
	counterWrites     int
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      map[int64]Identity{},
		byUsername: map[string]int64{},
		roleApis:   map[int64][]int64{},
		userRoles:  map[int64][]int64{},
	}
}

func (s *mockStore) putUser(u Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
}

func (s *mockStore) user(id int64) Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *mockStore) grant(api Api, roleID int64, userIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apis = append(s.apis, api)
	found := false
	for _, r := range s.roles {
		if r.ID == roleID {
			found = true
			break
		}
	}
	if !found {
		s.roles = append(s.roles, Role{ID: roleID, Name: "test-role"})
	}
	s.roleApis[roleID] = append(s.roleApis[roleID], api.ID)
	for _, uid := range userIDs {
		s.userRoles[uid] = append(s.userRoles[uid], roleID)
	}
}

func (s *mockStore) GetByID(_ context.Context, id int64) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return Identity{}, ErrUserNotFound
	}
	return u, nil
}

func (s *mockStore) GetByUsername(_ context.Context, username string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUsername[username]
	if !ok {
		return Identity{}, ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *mockStore) UpdateFailureCounter(_ context.Context, id int64, count int, lastFailureAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counterWrites++
	if s.failCounterWrites {
		return errors.New("injected counter write failure")
	}
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.LoginFailureCount = count
	u.LastFailureAt = lastFailureAt
	s.users[id] = u
	return nil
}

func (s *mockStore) SetLocked(_ context.Context, id int64, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Locked = locked
	s.users[id] = u
	return nil
}

func (s *mockStore) AllApis(_ context.Context) ([]Api, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Api(nil), s.apis...), nil
}

func (s *mockStore) AllRoles(_ context.Context) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Role(nil), s.roles...), nil
}

func (s *mockStore) ApisOfRole(_ context.Context, roleID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.roleApis[roleID]...), nil
}

func (s *mockStore) RolesOfUser(_ context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUserRoleReads {
		return nil, errors.New("injected role read failure")
	}
	return append([]int64(nil), s.userRoles[userID]...), nil
}

var _ UserStore = (*mockStore)(nil)
var _ RoleApiStore = (*mockStore)(nil)
var _ permission.Store = (*mockStore)(nil)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, store *mockStore, clock *fakeClock) *Engine {
	t.Helper()

	_, rdb := newTestRedis(t)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithRoleApiStore(store).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return engine
}

// testHash returns an argon2id hash of pw with reduced cost so the test
// suite stays fast.
func testHash(t *testing.T, pw string) string {
	t.Helper()

	hasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := hasher.Hash(pw)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return hash
}
