package content

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

// PostgresStore persists spaces and versions in postgres. Content writes
// for the same space are additionally serialized in process so a torn
// snapshot is never observable between the update and the history append.
type PostgresStore struct {
	db    *sql.DB
	locks *spaceLocks
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, locks: newSpaceLocks()}
}

func (s *PostgresStore) CreateSpace(ctx context.Context, space *models.Space) error {
	now := time.Now()
	if space.ID == uuid.Nil {
		space.ID = uuid.New()
	}
	if !space.DefaultContentType.Valid() {
		space.DefaultContentType = models.ContentTypeText
	}
	space.CreatedAt = now
	space.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spaces (id, title, default_content_type, project_id, archived, content_type, text_content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, '', $6, $7)`,
		space.ID, space.Title, space.DefaultContentType, space.ProjectID,
		space.DefaultContentType, space.CreatedAt, space.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create space: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadSpace(ctx context.Context, spaceID uuid.UUID) (*models.Space, error) {
	var space models.Space
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, default_content_type, project_id, archived, created_at, updated_at
		FROM spaces WHERE id = $1`, spaceID,
	).Scan(&space.ID, &space.Title, &space.DefaultContentType, &space.ProjectID,
		&space.Archived, &space.CreatedAt, &space.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSpaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load space: %w", err)
	}
	return &space, nil
}

func (s *PostgresStore) ArchiveSpace(ctx context.Context, spaceID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE spaces SET archived = TRUE, updated_at = $2 WHERE id = $1`,
		spaceID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive space: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrSpaceNotFound
	}
	return nil
}

func (s *PostgresStore) Autosave(ctx context.Context, spaceID uuid.UUID, snapshot models.ContentSnapshot) error {
	lock := s.locks.lock(spaceID)
	defer lock.Unlock()

	snapshot.Normalize()
	result, err := s.db.ExecContext(ctx,
		`UPDATE spaces
		SET content_type = $2, content_json = $3, text_content = $4, drawing_data = $5, mindmap_data = $6, updated_at = $7
		WHERE id = $1`,
		spaceID, snapshot.ContentType, nullable(snapshot.ContentJSON), snapshot.TextContent,
		nullable(snapshot.DrawingData), nullable(snapshot.MindmapData), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to autosave: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ErrSpaceNotFound
	}
	return nil
}

func (s *PostgresStore) SaveVersion(ctx context.Context, spaceID uuid.UUID, snapshot models.ContentSnapshot, editSummary string, isMajor bool, authorID uuid.UUID) (*models.ContentVersion, error) {
	if editSummary == "" {
		return nil, ErrEmptySummary
	}

	lock := s.locks.lock(spaceID)
	defer lock.Unlock()

	snapshot.Normalize()
	version := models.ContentVersion{
		ID:             uuid.New(),
		SpaceID:        spaceID,
		Snapshot:       snapshot,
		IsMajorVersion: isMajor,
		EditSummary:    editSummary,
		AuthorID:       authorID,
		CreatedAt:      time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE spaces
		SET content_type = $2, content_json = $3, text_content = $4, drawing_data = $5, mindmap_data = $6, updated_at = $7
		WHERE id = $1`,
		spaceID, snapshot.ContentType, nullable(snapshot.ContentJSON), snapshot.TextContent,
		nullable(snapshot.DrawingData), nullable(snapshot.MindmapData), version.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update snapshot: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, ErrSpaceNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO space_versions (id, space_id, content_type, content_json, text_content, drawing_data, mindmap_data, is_major_version, edit_summary, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		version.ID, spaceID, snapshot.ContentType, nullable(snapshot.ContentJSON), snapshot.TextContent,
		nullable(snapshot.DrawingData), nullable(snapshot.MindmapData), isMajor, editSummary, authorID, version.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit save: %w", err)
	}
	return &version, nil
}

func (s *PostgresStore) GetCurrent(ctx context.Context, spaceID uuid.UUID) (models.ContentSnapshot, error) {
	var snapshot models.ContentSnapshot
	var contentJSON, drawingData, mindmapData []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, content_json, text_content, drawing_data, mindmap_data
		FROM spaces WHERE id = $1`, spaceID,
	).Scan(&snapshot.ContentType, &contentJSON, &snapshot.TextContent, &drawingData, &mindmapData)
	if err == sql.ErrNoRows {
		return models.ContentSnapshot{}, ErrSpaceNotFound
	}
	if err != nil {
		return models.ContentSnapshot{}, fmt.Errorf("failed to load content: %w", err)
	}

	snapshot.ContentJSON = contentJSON
	snapshot.DrawingData = drawingData
	snapshot.MindmapData = mindmapData
	return snapshot, nil
}

func (s *PostgresStore) GetHistory(ctx context.Context, spaceID uuid.UUID, limit, offset int) ([]models.ContentVersion, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, space_id, content_type, content_json, text_content, drawing_data, mindmap_data, is_major_version, edit_summary, author_id, created_at
		FROM space_versions WHERE space_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		spaceID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	versions := []models.ContentVersion{}
	for rows.Next() {
		var version models.ContentVersion
		var contentJSON, drawingData, mindmapData []byte
		err := rows.Scan(&version.ID, &version.SpaceID, &version.Snapshot.ContentType,
			&contentJSON, &version.Snapshot.TextContent, &drawingData, &mindmapData,
			&version.IsMajorVersion, &version.EditSummary, &version.AuthorID, &version.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		version.Snapshot.ContentJSON = contentJSON
		version.Snapshot.DrawingData = drawingData
		version.Snapshot.MindmapData = mindmapData
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (s *PostgresStore) CountSpaces(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spaces").Scan(&count)
	return count, err
}

func (s *PostgresStore) CountVersions(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM space_versions").Scan(&count)
	return count, err
}

// nullable maps an empty JSON payload to NULL so unused variant columns
// stay empty instead of holding "".
func nullable(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
