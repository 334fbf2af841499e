package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cinebot-go/internal/model"
	"cinebot-go/internal/repository"
	"cinebot-go/pkg/log"
)

// SessionManager serializes read-modify-write of a session per user id.
// Turns for different users never wait on each other. When the store is a
// repository.Locker the store lock is taken too, so replicas sharing it
// serialize as well.
type SessionManager struct {
	repo repository.SessionRepository
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionManager wraps repo with per-user locking.
func NewSessionManager(repo repository.SessionRepository) *SessionManager {
	return &SessionManager{
		repo:  repo,
		now:   time.Now,
		locks: make(map[string]*keyLock),
	}
}

func (m *SessionManager) lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &keyLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, userID)
		}
		m.mu.Unlock()
	}
}

// Update loads the session of userID, passes a working copy to fn and stores
// it only when fn returns commit=true and no error. It returns the session as
// persisted after the call.
func (m *SessionManager) Update(ctx context.Context, userID string, fn func(*model.Session) (bool, error)) (model.Session, error) {
	unlock, err := m.acquire(ctx, userID)
	if err != nil {
		return model.NewSession(), err
	}
	defer unlock()

	current, err := m.repo.Get(ctx, userID)
	if err != nil {
		return model.NewSession(), fmt.Errorf("load session: %w", err)
	}
	working := current
	working.LastRecommendations = append([]model.Movie{}, current.LastRecommendations...)
	working.ShownIDs = append([]int64(nil), current.ShownIDs...)

	commit, err := fn(&working)
	if err != nil || !commit {
		return current, err
	}
	working.UpdatedAt = m.now()
	if err := m.repo.Put(ctx, userID, working); err != nil {
		return current, fmt.Errorf("store session: %w", err)
	}
	return working, nil
}

// Reset forgets the session of userID; the next turn greets again.
func (m *SessionManager) Reset(ctx context.Context, userID string) error {
	unlock, err := m.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()
	if err := m.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *SessionManager) acquire(ctx context.Context, userID string) (func(), error) {
	unlock := m.lock(userID)
	locker, ok := m.repo.(repository.Locker)
	if !ok {
		return unlock, nil
	}
	release, err := locker.Lock(ctx, userID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return func() {
		release()
		unlock()
	}, nil
}

// Snapshot returns the current session without modifying it.
func (m *SessionManager) Snapshot(ctx context.Context, userID string) (model.Session, error) {
	unlock := m.lock(userID)
	defer unlock()
	return m.repo.Get(ctx, userID)
}

// StartJanitor sweeps idle sessions every interval until ctx is done. It is a
// no-op for stores that expire sessions on their own.
func (m *SessionManager) StartJanitor(ctx context.Context, interval time.Duration) {
	sweeper, ok := m.repo.(repository.Sweeper)
	if !ok || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sweeper.Sweep(m.now()); n > 0 {
					log.Infof("[SessionManager] evicted %d idle sessions", n)
				}
			}
		}
	}()
}
