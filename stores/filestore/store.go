// Package filestore keeps sessions and users in JSON files under a data
// directory. It is meant for single-node storefronts and local development.
//
// Every mutation rewrites the affected file through a temp file and rename,
// so a crash leaves either the old or the new snapshot on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/session"
)

const (
	SessionsFile = "sessions.json"
	UsersFile    = "users.json"
)

// Store is a session.Store and storeauth.UserProvider backed by two JSON
// files. All reads are served from memory.
type Store struct {
	dir string

	mu       sync.RWMutex
	sessions map[string]session.Record
	users    map[string]storeauth.User
}

// Open loads (or initialises) the files under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	s := &Store{
		dir:      dir,
		sessions: make(map[string]session.Record),
		users:    make(map[string]storeauth.User),
	}

	var recs []session.Record
	if err := readJSON(filepath.Join(dir, SessionsFile), &recs); err != nil {
		return nil, err
	}
	for _, rec := range recs {
		s.sessions[rec.ID] = rec
	}

	var users []storeauth.User
	if err := readJSON(filepath.Join(dir, UsersFile), &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) FindOne(_ context.Context, q session.Query) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.sessions {
		if rec.Token == q.Token && (q.UserID == "" || rec.UserID == q.UserID) {
			out := rec
			return &out, nil
		}
	}
	return nil, session.ErrNotFound
}

func (s *Store) FindByID(_ context.Context, id string) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) Create(_ context.Context, rec session.Record) (*session.Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneSessions(s.sessions)
	next[rec.ID] = rec
	if err := s.writeSessions(next); err != nil {
		return nil, err
	}
	s.sessions = next
	return &rec, nil
}

func (s *Store) Update(_ context.Context, id string, patch session.Patch) (*session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	patch.Apply(&rec)

	next := cloneSessions(s.sessions)
	next[id] = rec
	if err := s.writeSessions(next); err != nil {
		return nil, err
	}
	s.sessions = next
	return &rec, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return nil
	}
	next := cloneSessions(s.sessions)
	delete(next, id)
	if err := s.writeSessions(next); err != nil {
		return err
	}
	s.sessions = next
	return nil
}

func (s *Store) FindAll(_ context.Context) ([]session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSessions(s.sessions), nil
}

// GetUserByEmail matches case-insensitively.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*storeauth.User, error) {
	want := normalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if normalizeEmail(u.Email) == want {
			out := u
			return &out, nil
		}
	}
	return nil, storeauth.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*storeauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storeauth.ErrUserNotFound
	}
	return &u, nil
}

// PutUser inserts or replaces a user keyed by ID.
func (s *Store) PutUser(_ context.Context, u storeauth.User) error {
	if u.ID == "" || u.Email == "" {
		return errors.New("filestore: user id and email are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]storeauth.User, len(s.users)+1)
	for k, v := range s.users {
		next[k] = v
	}
	next[u.ID] = u

	users := make([]storeauth.User, 0, len(next))
	for _, v := range next {
		users = append(users, v)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if err := writeJSON(filepath.Join(s.dir, UsersFile), users); err != nil {
		return err
	}
	s.users = next
	return nil
}

// UpdatePasswordHash replaces the stored hash of one user.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.PutUser(ctx, *u)
}

// caller holds s.mu
func (s *Store) writeSessions(m map[string]session.Record) error {
	return writeJSON(filepath.Join(s.dir, SessionsFile), sortedSessions(m))
}

func cloneSessions(m map[string]session.Record) map[string]session.Record {
	out := make(map[string]session.Record, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedSessions(m map[string]session.Record) []session.Record {
	out := make([]session.Record, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", session.ErrUnavailable, filepath.Base(path), err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", session.ErrUnavailable, filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %v", session.ErrUnavailable, err)
	}
	return nil
}
