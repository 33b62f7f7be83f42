package presence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/content"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

// stubLoader serves a fixed set of spaces.
type stubLoader struct {
	spaces map[uuid.UUID]*models.Space
}

func (l *stubLoader) LoadSpace(ctx context.Context, spaceID uuid.UUID) (*models.Space, error) {
	space, ok := l.spaces[spaceID]
	if !ok {
		return nil, content.ErrSpaceNotFound
	}
	return space, nil
}

func newTestRegistry(t *testing.T) (*Registry, uuid.UUID) {
	t.Helper()
	spaceID := uuid.New()
	loader := &stubLoader{spaces: map[uuid.UUID]*models.Space{
		spaceID: {ID: spaceID, Title: "test space"},
	}}
	return NewRegistry(loader), spaceID
}

func TestJoinAndLeave(t *testing.T) {
	r, spaceID := newTestRegistry(t)
	ctx := context.Background()
	user := uuid.New()
	session := uuid.New()

	snap, userNew, err := r.Join(ctx, spaceID, user, session)
	require.NoError(t, err)
	assert.True(t, userNew)
	assert.Equal(t, 1, snap.ActiveCount)
	assert.Equal(t, []uuid.UUID{user}, snap.ActiveUserIDs)

	count, leftUser, gone := r.Leave(spaceID, session)
	assert.Equal(t, 0, count)
	assert.True(t, gone)
	assert.Equal(t, user, leftUser)
	assert.Empty(t, r.ListActive(spaceID))
}

func TestJoinIdempotentPerSession(t *testing.T) {
	r, spaceID := newTestRegistry(t)
	ctx := context.Background()
	user := uuid.New()
	session := uuid.New()

	_, userNew, err := r.Join(ctx, spaceID, user, session)
	require.NoError(t, err)
	assert.True(t, userNew)

	snap, userNew, err := r.Join(ctx, spaceID, user, session)
	require.NoError(t, err)
	assert.False(t, userNew)
	assert.Equal(t, 1, snap.ActiveCount)
	assert.Equal(t, 1, r.SessionCount())
}

// A user with two tabs stays present until the last session leaves.
func TestMultipleSessionsSameUser(t *testing.T) {
	r, spaceID := newTestRegistry(t)
	ctx := context.Background()
	user := uuid.New()
	tab1 := uuid.New()
	tab2 := uuid.New()

	_, userNew, err := r.Join(ctx, spaceID, user, tab1)
	require.NoError(t, err)
	assert.True(t, userNew)

	snap, userNew, err := r.Join(ctx, spaceID, user, tab2)
	require.NoError(t, err)
	assert.False(t, userNew, "second tab must not re-announce the user")
	assert.Equal(t, 1, snap.ActiveCount, "presence is deduplicated by user")

	count, _, gone := r.Leave(spaceID, tab1)
	assert.False(t, gone, "closing one of two tabs changes nothing observable")
	assert.Equal(t, 1, count)

	count, leftUser, gone := r.Leave(spaceID, tab2)
	assert.True(t, gone)
	assert.Equal(t, user, leftUser)
	assert.Equal(t, 0, count)
}

func TestJoinUnknownSpaceFails(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, _, err := r.Join(context.Background(), uuid.New(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, content.ErrSpaceNotFound)
	assert.Equal(t, 0, r.SessionCount())
}

func TestJoinArchivedSpaceFails(t *testing.T) {
	spaceID := uuid.New()
	loader := &stubLoader{spaces: map[uuid.UUID]*models.Space{
		spaceID: {ID: spaceID, Title: "old space", Archived: true},
	}}
	r := NewRegistry(loader)

	_, _, err := r.Join(context.Background(), spaceID, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrSpaceArchived)
	assert.Equal(t, 0, r.SessionCount())
}

func TestCursorAndTypingEvictedWithLastSession(t *testing.T) {
	r, spaceID := newTestRegistry(t)
	ctx := context.Background()
	user := uuid.New()
	session := uuid.New()

	_, _, err := r.Join(ctx, spaceID, user, session)
	require.NoError(t, err)

	r.SetCursor(spaceID, models.CursorState{UserID: user, X: 10, Y: 20})
	r.SetTyping(spaceID, user, true)
	require.Len(t, r.Cursors(spaceID), 1)

	r.Leave(spaceID, session)
	assert.Empty(t, r.Cursors(spaceID))
}

func TestCursorIgnoredWithoutSession(t *testing.T) {
	r, spaceID := newTestRegistry(t)

	r.SetCursor(spaceID, models.CursorState{UserID: uuid.New(), X: 1})
	assert.Empty(t, r.Cursors(spaceID))
}

func TestCursorOverwritesPriorEntry(t *testing.T) {
	r, spaceID := newTestRegistry(t)
	ctx := context.Background()
	user := uuid.New()

	_, _, err := r.Join(ctx, spaceID, user, uuid.New())
	require.NoError(t, err)

	r.SetCursor(spaceID, models.CursorState{UserID: user, X: 1, Y: 1})
	r.SetCursor(spaceID, models.CursorState{UserID: user, X: 9, Y: 9, Mode: "draw"})

	cursors := r.Cursors(spaceID)
	require.Len(t, cursors, 1)
	assert.Equal(t, 9.0, cursors[user].X)
	assert.Equal(t, "draw", cursors[user].Mode)
}

func TestReapStale(t *testing.T) {
	r, spaceID := newTestRegistry(t)
	ctx := context.Background()

	now := time.Now()
	r.SetNowFunc(func() time.Time { return now })

	staleUser := uuid.New()
	staleSession := uuid.New()
	_, _, err := r.Join(ctx, spaceID, staleUser, staleSession)
	require.NoError(t, err)

	// A second user keeps heartbeating.
	liveUser := uuid.New()
	liveSession := uuid.New()
	_, _, err = r.Join(ctx, spaceID, liveUser, liveSession)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	require.NoError(t, r.Touch(spaceID, liveSession))

	reaped := r.ReapStale(90 * time.Second)
	require.Len(t, reaped, 1)
	assert.Equal(t, staleSession, reaped[0].SessionID)
	assert.Equal(t, staleUser, reaped[0].UserID)
	assert.True(t, reaped[0].UserGone)
	assert.Equal(t, 1, reaped[0].ActiveCount)

	assert.Equal(t, []uuid.UUID{liveUser}, r.ListActive(spaceID))
}

func TestReapStaleKeepsUserWithFreshSecondSession(t *testing.T) {
	r, spaceID := newTestRegistry(t)
	ctx := context.Background()

	now := time.Now()
	r.SetNowFunc(func() time.Time { return now })

	user := uuid.New()
	oldTab := uuid.New()
	_, _, err := r.Join(ctx, spaceID, user, oldTab)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	newTab := uuid.New()
	_, _, err = r.Join(ctx, spaceID, user, newTab)
	require.NoError(t, err)

	reaped := r.ReapStale(90 * time.Second)
	require.Len(t, reaped, 1)
	assert.False(t, reaped[0].UserGone, "user still has a live session")
	assert.Equal(t, []uuid.UUID{user}, r.ListActive(spaceID))
}

func TestTouchUnknownSession(t *testing.T) {
	r, spaceID := newTestRegistry(t)

	assert.ErrorIs(t, r.Touch(spaceID, uuid.New()), ErrNoSuchSession)
}
