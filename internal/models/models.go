package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContentType discriminates which payload field of a ContentSnapshot is live.
type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeWhiteboard ContentType = "whiteboard"
	ContentTypeMindmap    ContentType = "mindmap"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeText, ContentTypeWhiteboard, ContentTypeMindmap:
		return true
	}
	return false
}

type Space struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	Title              string      `json:"title" db:"title"`
	DefaultContentType ContentType `json:"default_content_type" db:"default_content_type"`
	ProjectID          uuid.UUID   `json:"project_id" db:"project_id"`
	Archived           bool        `json:"archived" db:"archived"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// ContentSnapshot is the single current state of a space's content.
// Exactly one payload field is populated, the one matching ContentType;
// Normalize enforces that. The engine never interprets the payloads.
type ContentSnapshot struct {
	ContentType ContentType     `json:"content_type"`
	ContentJSON json.RawMessage `json:"content_json,omitempty"`
	TextContent string          `json:"text_content,omitempty"`
	DrawingData json.RawMessage `json:"drawing_data,omitempty"`
	MindmapData json.RawMessage `json:"mindmap_data,omitempty"`
}

// Normalize zeroes every payload field that does not match the
// discriminator, so a stored snapshot never carries stale cross-type data.
func (s *ContentSnapshot) Normalize() {
	switch s.ContentType {
	case ContentTypeText:
		s.DrawingData = nil
		s.MindmapData = nil
	case ContentTypeWhiteboard:
		s.ContentJSON = nil
		s.TextContent = ""
		s.MindmapData = nil
	case ContentTypeMindmap:
		s.ContentJSON = nil
		s.TextContent = ""
		s.DrawingData = nil
	}
}

type ContentVersion struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	SpaceID        uuid.UUID       `json:"space_id" db:"space_id"`
	Snapshot       ContentSnapshot `json:"snapshot"`
	IsMajorVersion bool            `json:"is_major_version" db:"is_major_version"`
	EditSummary    string          `json:"edit_summary" db:"edit_summary"`
	AuthorID       uuid.UUID       `json:"author_id" db:"author_id"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Session is one live connection's membership in a space. Pure runtime
// state, never persisted; a reconnecting client gets a fresh one.
type Session struct {
	SessionID   uuid.UUID `json:"session_id"`
	UserID      uuid.UUID `json:"user_id"`
	SpaceID     uuid.UUID `json:"space_id"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

type PresenceSnapshot struct {
	ActiveUserIDs []uuid.UUID `json:"active_users"`
	ActiveCount   int         `json:"active_count"`
}

type CursorState struct {
	UserID    uuid.UUID `json:"user_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	ElementID string    `json:"element_id,omitempty"`
	Mode      string    `json:"mode,omitempty"`
}

type TypingState struct {
	UserID   uuid.UUID `json:"user_id"`
	IsTyping bool      `json:"is_typing"`
}
