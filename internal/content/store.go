// Package content owns the current snapshot and the append-only version
// history of every space.
package content

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

var (
	ErrSpaceNotFound = errors.New("space not found")
	// ErrEmptySummary rejects an explicit save without an edit summary.
	ErrEmptySummary = errors.New("edit summary is required")
)

// Store is the persistence surface for spaces and their content.
//
// Autosave overwrites the current snapshot and never touches history.
// SaveVersion atomically replaces the current snapshot and appends an
// immutable version; it is the only path that produces attributable
// history. Both are linearized per space: last write wins at the
// snapshot level, concurrent explicit saves all land in history.
type Store interface {
	CreateSpace(ctx context.Context, space *models.Space) error
	LoadSpace(ctx context.Context, spaceID uuid.UUID) (*models.Space, error)
	ArchiveSpace(ctx context.Context, spaceID uuid.UUID) error

	Autosave(ctx context.Context, spaceID uuid.UUID, snapshot models.ContentSnapshot) error
	SaveVersion(ctx context.Context, spaceID uuid.UUID, snapshot models.ContentSnapshot, editSummary string, isMajor bool, authorID uuid.UUID) (*models.ContentVersion, error)
	GetCurrent(ctx context.Context, spaceID uuid.UUID) (models.ContentSnapshot, error)
	// GetHistory returns saved versions newest first. A limit of zero
	// or below falls back to a page of 50; a negative offset reads
	// from the start.
	GetHistory(ctx context.Context, spaceID uuid.UUID, limit, offset int) ([]models.ContentVersion, error)

	CountSpaces(ctx context.Context) (int, error)
	CountVersions(ctx context.Context) (int, error)
}

// spaceLocks hands out one mutex per spaceID so content writes for the
// same space never interleave while writes to different spaces run in
// parallel.
type spaceLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newSpaceLocks() *spaceLocks {
	return &spaceLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *spaceLocks) lock(spaceID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[spaceID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[spaceID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m
}
