// Package presence tracks which sessions are live in which space and the
// ephemeral cursor/typing state attached to them.
package presence

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

var (
	ErrSpaceArchived = errors.New("space is archived")
	ErrNoSuchSession = errors.New("no such session")
)

// SpaceLoader validates join targets. Implemented by the spaces store;
// tests plug in a stub.
type SpaceLoader interface {
	LoadSpace(ctx context.Context, spaceID uuid.UUID) (*models.Space, error)
}

// spaceState holds everything live for one space. All fields are guarded
// by the Registry mutex.
type spaceState struct {
	sessions map[uuid.UUID]*models.Session
	cursors  map[uuid.UUID]models.CursorState
	typing   map[uuid.UUID]bool
}

func newSpaceState() *spaceState {
	return &spaceState{
		sessions: make(map[uuid.UUID]*models.Session),
		cursors:  make(map[uuid.UUID]models.CursorState),
		typing:   make(map[uuid.UUID]bool),
	}
}

func (s *spaceState) userSessionCount(userID uuid.UUID) int {
	count := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			count++
		}
	}
	return count
}

func (s *spaceState) activeUsers() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	users := make([]uuid.UUID, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if !seen[sess.UserID] {
			seen[sess.UserID] = true
			users = append(users, sess.UserID)
		}
	}
	return users
}

// Registry is the authoritative record of who is connected where.
type Registry struct {
	mu     sync.RWMutex
	spaces map[uuid.UUID]*spaceState
	loader SpaceLoader
	now    func() time.Time
}

func NewRegistry(loader SpaceLoader) *Registry {
	return &Registry{
		spaces: make(map[uuid.UUID]*spaceState),
		loader: loader,
		now:    time.Now,
	}
}

// SetNowFunc sets a custom time function for testing.
func (r *Registry) SetNowFunc(fn func() time.Time) {
	r.now = fn
}

// Join adds a session to a space and returns the presence snapshot as of
// after the join, plus whether the user was newly absent before it (the
// trigger for a user:joined broadcast). Idempotent per sessionID:
// re-joining refreshes lastSeenAt without duplicating the entry. Fails
// when the space is missing or archived; the caller must not keep a
// session in that case.
func (r *Registry) Join(ctx context.Context, spaceID, userID, sessionID uuid.UUID) (models.PresenceSnapshot, bool, error) {
	space, err := r.loader.LoadSpace(ctx, spaceID)
	if err != nil {
		return models.PresenceSnapshot{}, false, err
	}
	if space.Archived {
		return models.PresenceSnapshot{}, false, ErrSpaceArchived
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.spaces[spaceID]
	if !ok {
		state = newSpaceState()
		r.spaces[spaceID] = state
	}

	now := r.now()
	userNew := state.userSessionCount(userID) == 0
	if existing, ok := state.sessions[sessionID]; ok {
		existing.LastSeenAt = now
		userNew = false
	} else {
		state.sessions[sessionID] = &models.Session{
			SessionID:   sessionID,
			UserID:      userID,
			SpaceID:     spaceID,
			ConnectedAt: now,
			LastSeenAt:  now,
		}
	}

	users := state.activeUsers()
	return models.PresenceSnapshot{ActiveUserIDs: users, ActiveCount: len(users)}, userNew, nil
}

// Leave removes one session. It reports the remaining active user count
// and, when the removed session was the user's last one in the space,
// which user left (the trigger for a user:left broadcast).
func (r *Registry) Leave(spaceID, sessionID uuid.UUID) (activeCount int, leftUser uuid.UUID, userGone bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.spaces[spaceID]
	if !ok {
		return 0, uuid.Nil, false
	}

	sess, ok := state.sessions[sessionID]
	if !ok {
		return len(state.activeUsers()), uuid.Nil, false
	}

	delete(state.sessions, sessionID)
	if state.userSessionCount(sess.UserID) == 0 {
		delete(state.cursors, sess.UserID)
		delete(state.typing, sess.UserID)
		leftUser = sess.UserID
		userGone = true
	}

	if len(state.sessions) == 0 {
		delete(r.spaces, spaceID)
	}

	return len(state.activeUsers()), leftUser, userGone
}

// Touch refreshes a session's liveness stamp. Called on every inbound
// message so healthy connections never trip the reaper.
func (r *Registry) Touch(spaceID, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.spaces[spaceID]
	if !ok {
		return ErrNoSuchSession
	}
	sess, ok := state.sessions[sessionID]
	if !ok {
		return ErrNoSuchSession
	}
	sess.LastSeenAt = r.now()
	return nil
}

// ListActive returns the deduplicated userIDs with at least one live
// session in the space.
func (r *Registry) ListActive(spaceID uuid.UUID) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.spaces[spaceID]
	if !ok {
		return nil
	}
	return state.activeUsers()
}

// Snapshot returns the presence snapshot for a space.
func (r *Registry) Snapshot(spaceID uuid.UUID) models.PresenceSnapshot {
	users := r.ListActive(spaceID)
	return models.PresenceSnapshot{ActiveUserIDs: users, ActiveCount: len(users)}
}

// SessionCount returns the number of live sessions across all spaces.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, state := range r.spaces {
		total += len(state.sessions)
	}
	return total
}

// SetCursor overwrites the user's cursor entry for the space. Ignored if
// the user has no live session there.
func (r *Registry) SetCursor(spaceID uuid.UUID, cursor models.CursorState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.spaces[spaceID]
	if !ok || state.userSessionCount(cursor.UserID) == 0 {
		return
	}
	state.cursors[cursor.UserID] = cursor
}

// SetTyping overwrites the user's typing flag for the space.
func (r *Registry) SetTyping(spaceID, userID uuid.UUID, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.spaces[spaceID]
	if !ok || state.userSessionCount(userID) == 0 {
		return
	}
	if isTyping {
		state.typing[userID] = true
	} else {
		delete(state.typing, userID)
	}
}

// Cursors returns a copy of the cursor map for a space.
func (r *Registry) Cursors(spaceID uuid.UUID) map[uuid.UUID]models.CursorState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.spaces[spaceID]
	if !ok {
		return nil
	}
	out := make(map[uuid.UUID]models.CursorState, len(state.cursors))
	for k, v := range state.cursors {
		out[k] = v
	}
	return out
}

// StaleSession identifies a reaped session so the caller can announce the
// departure and close the transport.
type StaleSession struct {
	SpaceID     uuid.UUID
	SessionID   uuid.UUID
	UserID      uuid.UUID
	UserGone    bool
	ActiveCount int
}

// ReapStale removes sessions whose lastSeenAt is older than timeout. This
// bounds memory when a client vanishes without a clean disconnect.
func (r *Registry) ReapStale(timeout time.Duration) []StaleSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-timeout)
	var reaped []StaleSession

	for spaceID, state := range r.spaces {
		for sessionID, sess := range state.sessions {
			if sess.LastSeenAt.After(cutoff) {
				continue
			}
			delete(state.sessions, sessionID)
			stale := StaleSession{
				SpaceID:   spaceID,
				SessionID: sessionID,
				UserID:    sess.UserID,
			}
			if state.userSessionCount(sess.UserID) == 0 {
				delete(state.cursors, sess.UserID)
				delete(state.typing, sess.UserID)
				stale.UserGone = true
			}
			stale.ActiveCount = len(state.activeUsers())
			reaped = append(reaped, stale)
		}
		if len(state.sessions) == 0 {
			delete(r.spaces, spaceID)
		}
	}

	return reaped
}

// RunReaper sweeps for stale sessions every interval until ctx is done.
// Each reaped session is handed to onReap outside the registry lock.
func (r *Registry) RunReaper(ctx context.Context, interval, timeout time.Duration, onReap func(StaleSession)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped := r.ReapStale(timeout)
			for _, stale := range reaped {
				log.Printf("Reaped stale session %s (user %s) from space %s", stale.SessionID, stale.UserID, stale.SpaceID)
				if onReap != nil {
					onReap(stale)
				}
			}
		}
	}
}
