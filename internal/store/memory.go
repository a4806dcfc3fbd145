package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nvandessel/supplyshock/internal/session"
)

// MemoryStore keeps records in process memory. Records go through the same
// codec as the SQL stores, so a loaded record never aliases a saved one.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	index   map[string]Summary
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		index:   make(map[string]Summary),
	}
}

// Save implements SessionStore.
func (s *MemoryStore) Save(ctx context.Context, rec session.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = payload
	s.index[rec.ID] = summarize(rec)
	return nil
}

// Load implements SessionStore.
func (s *MemoryStore) Load(ctx context.Context, id string) (session.Record, error) {
	s.mu.RLock()
	payload, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return session.Record{}, fmt.Errorf("loading %s: %w", id, ErrNotFound)
	}
	return decodeRecord(payload)
}

// Delete implements SessionStore.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}
	delete(s.records, id)
	delete(s.index, id)
	return nil
}

// List implements SessionStore.
func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.index))
	for _, sum := range s.index {
		out = append(out, sum)
	}
	s.mu.RUnlock()

	sortSummaries(out)
	return out, nil
}

// Close implements SessionStore.
func (s *MemoryStore) Close() error { return nil }

func sortSummaries(out []Summary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
