package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps dialog state in process. It is used when Redis is
// disabled.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[int64]*UserState
	now    func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		states: make(map[int64]*UserState),
		now:    time.Now,
	}
}

func (s *MemoryStorage) Load(_ context.Context, userID int64) (*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return cloneState(st), nil
}

func (s *MemoryStorage) Save(_ context.Context, st *UserState) error {
	st.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.UserID] = cloneState(st)
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

func (s *MemoryStorage) List(_ context.Context) ([]*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*UserState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, cloneState(st))
	}
	return out, nil
}

func cloneState(st *UserState) *UserState {
	if st == nil {
		return nil
	}
	cp := *st
	if st.Context != nil {
		cp.Context = make(map[string]interface{}, len(st.Context))
		for k, v := range st.Context {
			cp.Context[k] = v
		}
	}
	return &cp
}
