package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/KaramelBytes/autodash/internal/dashboard"
)

// Store keeps sessions in memory, keyed by ID. When full, adding a session
// evicts the oldest one.
type Store struct {
	mu       sync.RWMutex
	max      int
	sessions map[uuid.UUID]*dashboard.Session
	order    []uuid.UUID
}

// NewStore returns a store holding at most max sessions; max <= 0 means unbounded.
func NewStore(max int) *Store {
	return &Store{max: max, sessions: make(map[uuid.UUID]*dashboard.Session)}
}

// Add stores s under a new ID and returns the ID and any evicted IDs.
func (st *Store) Add(s *dashboard.Session) (uuid.UUID, []uuid.UUID) {
	id := uuid.New()
	st.mu.Lock()
	defer st.mu.Unlock()
	var evicted []uuid.UUID
	for st.max > 0 && len(st.order) >= st.max {
		old := st.order[0]
		st.order = st.order[1:]
		delete(st.sessions, old)
		evicted = append(evicted, old)
	}
	st.sessions[id] = s
	st.order = append(st.order, id)
	return id, evicted
}

func (st *Store) Get(id uuid.UUID) (*dashboard.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes a session and reports whether it existed.
func (st *Store) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	for i, o := range st.order {
		if o == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	return true
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
