package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/cheese-ugi/pkg/ugidto"
)

type entry struct {
	info ugidto.SessionInfo
}

// Registry tracks live websocket sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*entry), now: time.Now}
}

// Add registers a new session and returns its id.
func (r *Registry) Add(remote string) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &entry{info: ugidto.SessionInfo{ID: id, Remote: remote, StartedAt: r.now()}}
	r.mu.Unlock()
	return id
}

func (r *Registry) SetDialect(id, dialect string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.info.Dialect = dialect
	}
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns a snapshot ordered by start time.
func (r *Registry) List() []ugidto.SessionInfo {
	r.mu.RLock()
	out := make([]ugidto.SessionInfo, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e.info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
