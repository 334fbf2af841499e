// Package repository provides the session store implementations.
package repository

import (
	"context"
	"sync"
	"time"

	"cinebot-go/internal/model"
	"cinebot-go/pkg/metrics"
)

// SessionRepository stores one Session per user id.
type SessionRepository interface {
	// Get returns the stored session or a fresh default one. It never inserts.
	Get(ctx context.Context, userID string) (model.Session, error)
	Put(ctx context.Context, userID string, session model.Session) error
	Delete(ctx context.Context, userID string) error
}

// Sweeper is implemented by stores that evict idle sessions themselves.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Locker is implemented by stores shared between processes. The returned
// unlock releases the lock of userID.
type Locker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

type memoryEntry struct {
	session  model.Session
	lastSeen time.Time
}

// MemorySessionRepository keeps sessions in process memory. With a zero
// idle timeout sessions live until the process exits.
type MemorySessionRepository struct {
	mu          sync.Mutex
	entries     map[string]*memoryEntry
	idleTimeout time.Duration
	now         func() time.Time
}

// NewMemorySessionRepository creates an empty in-memory store.
func NewMemorySessionRepository(idleTimeout time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		entries:     make(map[string]*memoryEntry),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (r *MemorySessionRepository) Get(_ context.Context, userID string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		return model.NewSession(), nil
	}
	e.lastSeen = r.now()
	return cloneSession(e.session), nil
}

func (r *MemorySessionRepository) Put(_ context.Context, userID string, session model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = &memoryEntry{session: cloneSession(session), lastSeen: r.now()}
	metrics.ActiveSessions.Set(float64(len(r.entries)))
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
	metrics.ActiveSessions.Set(float64(len(r.entries)))
	return nil
}

// Sweep evicts sessions idle for longer than the idle timeout and returns
// how many were removed.
func (r *MemorySessionRepository) Sweep(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.idleTimeout {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.SessionsEvicted.Add(float64(evicted))
		metrics.ActiveSessions.Set(float64(len(r.entries)))
	}
	return evicted
}

// Len returns the number of stored sessions.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func cloneSession(s model.Session) model.Session {
	out := s
	out.LastRecommendations = append([]model.Movie{}, s.LastRecommendations...)
	if s.ShownIDs != nil {
		out.ShownIDs = append([]int64(nil), s.ShownIDs...)
	}
	return out
}
