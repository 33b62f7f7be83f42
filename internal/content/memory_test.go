package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

func newSpace(t *testing.T, store *MemoryStore) *models.Space {
	t.Helper()
	space := &models.Space{Title: "test", DefaultContentType: models.ContentTypeText, ProjectID: uuid.New()}
	require.NoError(t, store.CreateSpace(context.Background(), space))
	return space
}

func textSnapshot(text string) models.ContentSnapshot {
	return models.ContentSnapshot{ContentType: models.ContentTypeText, TextContent: text}
}

func TestCreateAndLoadSpace(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)

	loaded, err := store.LoadSpace(context.Background(), space.ID)
	require.NoError(t, err)
	assert.Equal(t, space.Title, loaded.Title)
	assert.False(t, loaded.Archived)

	_, err = store.LoadSpace(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSpaceNotFound)
}

func TestArchiveSpace(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)

	require.NoError(t, store.ArchiveSpace(context.Background(), space.ID))

	loaded, err := store.LoadSpace(context.Background(), space.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Archived)

	// Archived, not removed: content and history stay readable.
	_, err = store.GetCurrent(context.Background(), space.ID)
	assert.NoError(t, err)
}

func TestAutosaveOverwritesWithoutHistory(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)
	ctx := context.Background()

	require.NoError(t, store.Autosave(ctx, space.ID, textSnapshot("draft one")))
	require.NoError(t, store.Autosave(ctx, space.ID, textSnapshot("draft two")))

	current, err := store.GetCurrent(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft two", current.TextContent)

	history, err := store.GetHistory(ctx, space.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, history, "autosave must never append history")
}

func TestSaveVersionAppendsNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)
	ctx := context.Background()
	author := uuid.New()

	now := time.Now()
	store.now = func() time.Time { now = now.Add(time.Second); return now }

	_, err := store.SaveVersion(ctx, space.ID, textSnapshot("first"), "initial draft", false, author)
	require.NoError(t, err)
	_, err = store.SaveVersion(ctx, space.ID, textSnapshot("second"), "second draft", true, author)
	require.NoError(t, err)

	history, err := store.GetHistory(ctx, space.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Snapshot.TextContent)
	assert.Equal(t, "first", history[1].Snapshot.TextContent)
	assert.True(t, history[0].IsMajorVersion)
	assert.Equal(t, author, history[0].AuthorID)

	current, err := store.GetCurrent(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", current.TextContent)
}

func TestSaveVersionRequiresSummary(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)

	_, err := store.SaveVersion(context.Background(), space.ID, textSnapshot("x"), "", true, uuid.New())
	assert.ErrorIs(t, err, ErrEmptySummary)

	history, err := store.GetHistory(context.Background(), space.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistoryEntriesAreImmutable(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)
	ctx := context.Background()

	version, err := store.SaveVersion(ctx, space.ID, textSnapshot("original"), "v1", true, uuid.New())
	require.NoError(t, err)

	// Mutate the returned copy and later autosaves; the stored entry
	// must not change.
	version.Snapshot.TextContent = "tampered"
	require.NoError(t, store.Autosave(ctx, space.ID, textSnapshot("newer")))

	history, err := store.GetHistory(ctx, space.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "original", history[0].Snapshot.TextContent)
}

// Two racing explicit saves: the later one owns the current snapshot,
// both land in history.
func TestConcurrentSavesLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			text := "author A"
			if n == 1 {
				text = "author B"
			}
			_, err := store.SaveVersion(ctx, space.ID, textSnapshot(text), "racing save", false, uuid.New())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := store.GetHistory(ctx, space.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2, "both saves must survive in history")

	current, err := store.GetCurrent(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, history[0].Snapshot.TextContent, current.TextContent, "current equals the last completed save")
}

func TestGetHistoryPagination(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c", "d"} {
		_, err := store.SaveVersion(ctx, space.ID, textSnapshot(text), "save "+text, false, uuid.New())
		require.NoError(t, err)
	}

	page, err := store.GetHistory(ctx, space.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].Snapshot.TextContent)

	page, err = store.GetHistory(ctx, space.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Snapshot.TextContent)

	page, err = store.GetHistory(ctx, space.ID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

// A non-positive limit means a default page of 50, matching the SQL
// store's clamp.
func TestGetHistoryDefaultPage(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)
	ctx := context.Background()

	for i := 0; i < 55; i++ {
		_, err := store.SaveVersion(ctx, space.ID, textSnapshot(fmt.Sprintf("rev %d", i)), "save", false, uuid.New())
		require.NoError(t, err)
	}

	page, err := store.GetHistory(ctx, space.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 50)
	assert.Equal(t, "rev 54", page[0].Snapshot.TextContent)

	page, err = store.GetHistory(ctx, space.ID, -1, -3)
	require.NoError(t, err)
	assert.Len(t, page, 50)
}

func TestSnapshotNormalizedOnWrite(t *testing.T) {
	store := NewMemoryStore()
	space := newSpace(t, store)
	ctx := context.Background()

	mixed := models.ContentSnapshot{
		ContentType: models.ContentTypeWhiteboard,
		TextContent: "leftover text",
		DrawingData: json.RawMessage(`{"strokes":[]}`),
		MindmapData: json.RawMessage(`{"nodes":[]}`),
	}
	require.NoError(t, store.Autosave(ctx, space.ID, mixed))

	current, err := store.GetCurrent(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeWhiteboard, current.ContentType)
	assert.Empty(t, current.TextContent)
	assert.Nil(t, current.MindmapData)
	assert.JSONEq(t, `{"strokes":[]}`, string(current.DrawingData))
}

func TestCounts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	spaceA := newSpace(t, store)
	newSpace(t, store)

	_, err := store.SaveVersion(ctx, spaceA.ID, textSnapshot("x"), "save", false, uuid.New())
	require.NoError(t, err)

	spaces, err := store.CountSpaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, spaces)

	versions, err := store.CountVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, versions)
}

func TestWritesToUnknownSpaceFail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Autosave(ctx, uuid.New(), textSnapshot("x")), ErrSpaceNotFound)
	_, err := store.SaveVersion(ctx, uuid.New(), textSnapshot("x"), "s", false, uuid.New())
	assert.ErrorIs(t, err, ErrSpaceNotFound)
	_, err = store.GetHistory(ctx, uuid.New(), 0, 0)
	assert.ErrorIs(t, err, ErrSpaceNotFound)
}
