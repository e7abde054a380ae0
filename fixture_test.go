package storeauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/password"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/jonboulle/clockwork"
)

var fixtureNow = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

const fixturePassword = "correct-horse-battery"

type memUsers struct {
	mu      sync.Mutex
	byID    map[string]User
	failGet error
	updated map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:    make(map[string]User),
		updated: make(map[string]string),
	}
}

func (m *memUsers) put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[u.ID] = u
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	m.byID[userID] = u
	m.updated[userID] = hash
	return nil
}

// flakyStore fails selected operations of a MemoryStore.
type flakyStore struct {
	*session.MemoryStore
	mu         sync.Mutex
	failFind   bool
	failUpdate bool
	failDelete bool
	// deleteOnUpdate removes the record just before an update lands.
	deleteOnUpdate bool
}

func (s *flakyStore) set(fn func(*flakyStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *flakyStore) FindOne(ctx context.Context, q session.Query) (*session.Record, error) {
	s.mu.Lock()
	fail := s.failFind
	s.mu.Unlock()
	if fail {
		return nil, errors.Join(session.ErrUnavailable, errors.New("connection refused"))
	}
	return s.MemoryStore.FindOne(ctx, q)
}

func (s *flakyStore) Update(ctx context.Context, id string, p session.Patch) (*session.Record, error) {
	s.mu.Lock()
	fail, vanish := s.failUpdate, s.deleteOnUpdate
	s.mu.Unlock()
	if fail {
		return nil, session.ErrUnavailable
	}
	if vanish {
		_ = s.MemoryStore.Delete(ctx, id)
	}
	return s.MemoryStore.Update(ctx, id, p)
}

func (s *flakyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	fail := s.failDelete
	s.mu.Unlock()
	if fail {
		return session.ErrUnavailable
	}
	return s.MemoryStore.Delete(ctx, id)
}

func fastPasswordConfig() PasswordConfig {
	return PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Token.CustomerTTL = time.Hour
	cfg.Token.AdminTTL = time.Hour
	cfg.Cookie.Secret = "cookie-secret-for-tests"
	cfg.Password = fastPasswordConfig()
	return cfg
}

type engineFixture struct {
	engine *Engine
	store  *flakyStore
	users  *memUsers
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, mutate ...func(*Config)) *engineFixture {
	t.Helper()
	return newFixtureWithSink(t, nil, mutate...)
}

func newFixtureWithSink(t *testing.T, sink AuditSink, mutate ...func(*Config)) *engineFixture {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	hash, err := hasher.Hash(fixturePassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	users := newMemUsers()
	users.put(User{ID: "u-1", Email: "ada@shop.test", Name: "Ada", Role: RoleCustomer, PasswordHash: hash})
	users.put(User{ID: "u-2", Email: "grace@shop.test", Name: "Grace", Role: RoleCustomer, PasswordHash: hash})
	users.put(User{ID: "a-1", Email: "root@shop.test", Name: "Root", Role: RoleAdmin, PasswordHash: hash})

	store := &flakyStore{MemoryStore: session.NewMemoryStore()}
	clock := clockwork.NewFakeClockAt(fixtureNow)

	engine, err := New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithUserProvider(users).
		WithClock(clock).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, store: store, users: users, clock: clock}
}

func (f *engineFixture) login(t *testing.T, email string) *LoginResult {
	t.Helper()
	ctx := WithUserAgent(WithClientIP(context.Background(), "203.0.113.7"), "Mozilla/5.0 (test)")
	res, err := f.engine.Login(ctx, email, fixturePassword)
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return res
}

func (f *engineFixture) record(t *testing.T, id string) *session.Record {
	t.Helper()
	rec, err := f.store.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%s): %v", id, err)
	}
	return rec
}

func (f *engineFixture) cookieRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: f.engine.cookies.Name(), Value: f.engine.cookies.Sign(token)})
	return r
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// responseCookie returns the auth cookie written to rec, if any.
func (f *engineFixture) responseCookie(rec *httptest.ResponseRecorder) (*http.Cookie, bool) {
	for _, c := range rec.Result().Cookies() {
		if c.Name == f.engine.cookies.Name() {
			return c, true
		}
	}
	return nil, false
}
