package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event names carried in Envelope.Type.
const (
	EventSpaceJoin      = "space:join"
	EventSpaceJoined    = "space:joined"
	EventSpaceLeave     = "space:leave"
	EventUserJoined     = "user:joined"
	EventUserLeft       = "user:left"
	EventCursorMove     = "cursor:move"
	EventCursorMoved    = "cursor:moved"
	EventUserTyping     = "user:typing"
	EventContentUpdate  = "content:update"
	EventContentUpdated = "content:updated"
	EventSyncRequest    = "sync:request"
	EventSyncFull       = "sync:full"
	EventError          = "error"
)

// Envelope is the wire frame for every websocket message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(eventType string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: eventType, Data: raw}, nil
}

type JoinRequest struct {
	SpaceID uuid.UUID `json:"space_id"`
	UserID  uuid.UUID `json:"user_id"`
}

type JoinedPayload struct {
	ActiveUsers []uuid.UUID `json:"active_users"`
	ActiveCount int         `json:"active_count"`
}

type UserJoinedPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	ActiveCount int       `json:"active_count"`
}

type UserLeftPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	ActiveCount int       `json:"active_count"`
}

// ContentUpdate carries an edit from a client. IsAutoSave selects the
// overwrite-only path; otherwise a version is appended and EditSummary
// is required when IsMajorVersion is set.
type ContentUpdate struct {
	SpaceID        uuid.UUID       `json:"space_id"`
	UserID         uuid.UUID       `json:"user_id"`
	ContentType    ContentType     `json:"content_type"`
	ContentJSON    json.RawMessage `json:"content_json,omitempty"`
	TextContent    string          `json:"text_content,omitempty"`
	DrawingData    json.RawMessage `json:"drawing_data,omitempty"`
	MindmapData    json.RawMessage `json:"mindmap_data,omitempty"`
	IsAutoSave     bool            `json:"is_auto_save"`
	IsMajorVersion bool            `json:"is_major_version,omitempty"`
	EditSummary    string          `json:"edit_summary,omitempty"`
}

// Snapshot extracts the content fields as a normalized ContentSnapshot.
func (u ContentUpdate) Snapshot() ContentSnapshot {
	snap := ContentSnapshot{
		ContentType: u.ContentType,
		ContentJSON: u.ContentJSON,
		TextContent: u.TextContent,
		DrawingData: u.DrawingData,
		MindmapData: u.MindmapData,
	}
	snap.Normalize()
	return snap
}

type SyncRequest struct {
	SpaceID uuid.UUID `json:"space_id"`
	UserID  uuid.UUID `json:"user_id"`
}

type SyncFullPayload struct {
	Content     ContentSnapshot `json:"content"`
	ActiveUsers []uuid.UUID     `json:"active_users"`
	ActiveCount int             `json:"active_count"`
}

type LeaveRequest struct {
	SpaceID uuid.UUID `json:"space_id"`
	UserID  uuid.UUID `json:"user_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
