package content

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

// MemoryStore keeps everything in process memory. Used by tests and for
// running the server without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	spaces    map[uuid.UUID]*models.Space
	snapshots map[uuid.UUID]models.ContentSnapshot
	versions  map[uuid.UUID][]models.ContentVersion
	locks     *spaceLocks
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		spaces:    make(map[uuid.UUID]*models.Space),
		snapshots: make(map[uuid.UUID]models.ContentSnapshot),
		versions:  make(map[uuid.UUID][]models.ContentVersion),
		locks:     newSpaceLocks(),
		now:       time.Now,
	}
}

func (s *MemoryStore) CreateSpace(ctx context.Context, space *models.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if space.ID == uuid.Nil {
		space.ID = uuid.New()
	}
	if !space.DefaultContentType.Valid() {
		space.DefaultContentType = models.ContentTypeText
	}
	space.CreatedAt = now
	space.UpdatedAt = now

	copied := *space
	s.spaces[space.ID] = &copied
	s.snapshots[space.ID] = models.ContentSnapshot{ContentType: space.DefaultContentType}
	return nil
}

func (s *MemoryStore) LoadSpace(ctx context.Context, spaceID uuid.UUID) (*models.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	space, ok := s.spaces[spaceID]
	if !ok {
		return nil, ErrSpaceNotFound
	}
	copied := *space
	return &copied, nil
}

func (s *MemoryStore) ArchiveSpace(ctx context.Context, spaceID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	space, ok := s.spaces[spaceID]
	if !ok {
		return ErrSpaceNotFound
	}
	space.Archived = true
	space.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Autosave(ctx context.Context, spaceID uuid.UUID, snapshot models.ContentSnapshot) error {
	lock := s.locks.lock(spaceID)
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	space, ok := s.spaces[spaceID]
	if !ok {
		return ErrSpaceNotFound
	}
	snapshot.Normalize()
	s.snapshots[spaceID] = snapshot
	space.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) SaveVersion(ctx context.Context, spaceID uuid.UUID, snapshot models.ContentSnapshot, editSummary string, isMajor bool, authorID uuid.UUID) (*models.ContentVersion, error) {
	if editSummary == "" {
		return nil, ErrEmptySummary
	}

	lock := s.locks.lock(spaceID)
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	space, ok := s.spaces[spaceID]
	if !ok {
		return nil, ErrSpaceNotFound
	}

	snapshot.Normalize()
	version := models.ContentVersion{
		ID:             uuid.New(),
		SpaceID:        spaceID,
		Snapshot:       snapshot,
		IsMajorVersion: isMajor,
		EditSummary:    editSummary,
		AuthorID:       authorID,
		CreatedAt:      s.now(),
	}

	s.snapshots[spaceID] = snapshot
	s.versions[spaceID] = append(s.versions[spaceID], version)
	space.UpdatedAt = version.CreatedAt

	copied := version
	return &copied, nil
}

func (s *MemoryStore) GetCurrent(ctx context.Context, spaceID uuid.UUID) (models.ContentSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[spaceID]
	if !ok {
		return models.ContentSnapshot{}, ErrSpaceNotFound
	}
	return snapshot, nil
}

func (s *MemoryStore) GetHistory(ctx context.Context, spaceID uuid.UUID, limit, offset int) ([]models.ContentVersion, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.spaces[spaceID]; !ok {
		return nil, ErrSpaceNotFound
	}

	all := s.versions[spaceID]
	// Newest first.
	ordered := make([]models.ContentVersion, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		ordered = append(ordered, all[i])
	}

	if offset >= len(ordered) {
		return []models.ContentVersion{}, nil
	}
	ordered = ordered[offset:]
	if limit < len(ordered) {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

func (s *MemoryStore) CountSpaces(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spaces), nil
}

func (s *MemoryStore) CountVersions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, versions := range s.versions {
		total += len(versions)
	}
	return total, nil
}
