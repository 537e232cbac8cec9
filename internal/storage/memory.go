package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/anishjha12309/itero/internal/models"
)

// MemoryStore keeps interviews in a process-local map. Records are
// deep-copied through JSON on both paths, so callers can keep mutating
// their copy without racing readers.
type MemoryStore struct {
	mu         sync.RWMutex
	interviews map[string]*models.Interview
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{interviews: make(map[string]*models.Interview)}
}

func (s *MemoryStore) Save(_ context.Context, interview *models.Interview) error {
	clone, err := cloneInterview(interview)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[interview.SessionID] = clone
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*models.Interview, error) {
	s.mu.RLock()
	stored, ok := s.interviews[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInterview(stored)
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Interview, error) {
	s.mu.RLock()
	out := make([]*models.Interview, 0, len(s.interviews))
	for _, stored := range s.interviews {
		clone, err := cloneInterview(stored)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, clone)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

func cloneInterview(in *models.Interview) (*models.Interview, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out models.Interview
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
