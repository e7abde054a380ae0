package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store for single-node development and tests.
// It indexes records by token and by user.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Record
	byToken map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Record),
		byToken: make(map[string]string),
	}
}

func (s *MemoryStore) FindOne(_ context.Context, q Query) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[q.Token]
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := s.byID[id]
	if !ok || (q.UserID != "" && rec.UserID != q.UserID) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Create(_ context.Context, rec Record) (*Record, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[rec.ID]; ok {
		delete(s.byToken, old.Token)
	}
	s.byID[rec.ID] = rec
	s.byToken[rec.Token] = rec.ID
	return &rec, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch Patch) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	oldToken := rec.Token
	patch.Apply(&rec)
	if rec.Token != oldToken {
		delete(s.byToken, oldToken)
		s.byToken[rec.Token] = id
	}
	s.byID[id] = rec
	return &rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byToken, rec.Token)
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) FindAll(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindByUser(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.byID {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
