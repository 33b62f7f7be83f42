package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/content"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/metrics"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/presence"
)

// Hub routes protocol events between the clients of each space. Rooms
// are keyed by spaceID and membership mirrors the presence registry;
// delivery is best-effort, at-most-once, FIFO per sender and recipient.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]map[uuid.UUID]*Client
	registry *presence.Registry
	store    content.Store
}

func NewHub(registry *presence.Registry, store content.Store) *Hub {
	return &Hub{
		rooms:    make(map[uuid.UUID]map[uuid.UUID]*Client),
		registry: registry,
		store:    store,
	}
}

// Publish fans an event out to every session in a space. When
// excludeSessionID is non-nil the sender is skipped, so ephemeral events
// never echo back. A recipient whose buffer is full misses the event and
// recovers via sync:request.
func (h *Hub) Publish(spaceID uuid.UUID, eventType string, payload interface{}, excludeSessionID uuid.UUID) {
	envelope, err := models.NewEnvelope(eventType, payload)
	if err != nil {
		log.Printf("Failed to encode %s broadcast: %v", eventType, err)
		return
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[spaceID]
	if !ok {
		return
	}

	metrics.BroadcastsTotal.Inc()
	for sessionID, client := range room {
		if sessionID == excludeSessionID {
			continue
		}
		select {
		case client.Send <- raw:
		default:
			// Slow consumer: drop this event for it.
		}
	}
}

// TouchSession refreshes liveness for a joined connection. Wired to the
// transport pong handler so idle-but-healthy clients survive the reaper.
func (h *Hub) TouchSession(c *Client) {
	if c.SpaceID != uuid.Nil {
		h.registry.Touch(c.SpaceID, c.SessionID)
	}
}

// RoomSize returns the number of live sessions in a space's room.
func (h *Hub) RoomSize(spaceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[spaceID])
}

// OnlineCount returns the number of live sessions across all rooms.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

// HandleMessage dispatches one inbound client event. Runs on the
// client's read goroutine, so per-client handling is serial.
func (h *Hub) HandleMessage(c *Client, envelope models.Envelope) {
	switch envelope.Type {
	case models.EventSpaceJoin:
		var req models.JoinRequest
		if err := json.Unmarshal(envelope.Data, &req); err != nil {
			c.sendError("bad_request", "malformed join payload")
			return
		}
		h.handleJoin(c, req.SpaceID)

	case models.EventSpaceLeave:
		h.handleLeave(c)

	case models.EventCursorMove:
		var cursor models.CursorState
		if err := json.Unmarshal(envelope.Data, &cursor); err != nil {
			return
		}
		h.handleCursorMove(c, cursor)

	case models.EventUserTyping:
		var typing models.TypingState
		if err := json.Unmarshal(envelope.Data, &typing); err != nil {
			return
		}
		h.handleTyping(c, typing)

	case models.EventContentUpdate:
		var update models.ContentUpdate
		if err := json.Unmarshal(envelope.Data, &update); err != nil {
			c.sendError("bad_request", "malformed content payload")
			return
		}
		h.handleContentUpdate(c, update)

	case models.EventSyncRequest:
		h.handleSyncRequest(c)

	default:
		log.Printf("Ignoring unknown event %q from session %s", envelope.Type, c.SessionID)
	}
}

func (h *Hub) handleJoin(c *Client, spaceID uuid.UUID) {
	// Joining a new space on a live connection is an implicit leave of
	// the old one, so the old room does not keep a phantom member.
	if c.SpaceID != uuid.Nil && c.SpaceID != spaceID {
		h.removeSession(c.SpaceID, c.SessionID)
		c.SpaceID = uuid.Nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot, userNew, err := h.registry.Join(ctx, spaceID, c.UserID, c.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrSpaceNotFound):
			c.sendError("space_not_found", "space does not exist")
		case errors.Is(err, presence.ErrSpaceArchived):
			c.sendError("space_archived", "space is archived")
		default:
			log.Printf("Join failed for session %s: %v", c.SessionID, err)
			c.sendError("internal_error", "join failed")
		}
		return
	}

	h.mu.Lock()
	room, ok := h.rooms[spaceID]
	if !ok {
		room = make(map[uuid.UUID]*Client)
		h.rooms[spaceID] = room
	}
	room[c.SessionID] = c
	c.SpaceID = spaceID
	h.mu.Unlock()

	c.sendEvent(models.EventSpaceJoined, models.JoinedPayload{
		ActiveUsers: snapshot.ActiveUserIDs,
		ActiveCount: snapshot.ActiveCount,
	})

	if userNew {
		h.Publish(spaceID, models.EventUserJoined, models.UserJoinedPayload{
			UserID:      c.UserID,
			ActiveCount: snapshot.ActiveCount,
		}, c.SessionID)
	}

	log.Printf("User %s joined space %s (session %s, %d active)", c.UserID, spaceID, c.SessionID, snapshot.ActiveCount)
}

func (h *Hub) handleLeave(c *Client) {
	h.removeSession(c.SpaceID, c.SessionID)
	c.SpaceID = uuid.Nil
}

// Disconnect tears down whatever membership a closing connection holds.
// Called from the read pump on every exit path.
func (h *Hub) Disconnect(c *Client) {
	h.removeSession(c.SpaceID, c.SessionID)
	close(c.Send)
	log.Printf("Client %s disconnected (session %s)", c.UserID, c.SessionID)
}

func (h *Hub) removeSession(spaceID, sessionID uuid.UUID) {
	if spaceID == uuid.Nil {
		return
	}

	h.mu.Lock()
	if room, ok := h.rooms[spaceID]; ok {
		delete(room, sessionID)
		if len(room) == 0 {
			delete(h.rooms, spaceID)
		}
	}
	h.mu.Unlock()

	activeCount, leftUser, userGone := h.registry.Leave(spaceID, sessionID)
	if userGone {
		h.Publish(spaceID, models.EventUserLeft, models.UserLeftPayload{
			UserID:      leftUser,
			ActiveCount: activeCount,
		}, uuid.Nil)
	}
}

// DropStale closes the room entry for a session the reaper removed from
// the registry and announces the departure.
func (h *Hub) DropStale(stale presence.StaleSession) {
	h.mu.Lock()
	var client *Client
	if room, ok := h.rooms[stale.SpaceID]; ok {
		client = room[stale.SessionID]
		delete(room, stale.SessionID)
		if len(room) == 0 {
			delete(h.rooms, stale.SpaceID)
		}
	}
	h.mu.Unlock()

	metrics.ReapedSessionsTotal.Inc()
	if client != nil {
		// Closing the transport makes the read pump run its normal
		// disconnect path; the registry entry is already gone.
		client.Conn.Close()
	}
	if stale.UserGone {
		h.Publish(stale.SpaceID, models.EventUserLeft, models.UserLeftPayload{
			UserID:      stale.UserID,
			ActiveCount: stale.ActiveCount,
		}, uuid.Nil)
	}
}

func (h *Hub) handleCursorMove(c *Client, cursor models.CursorState) {
	if c.SpaceID == uuid.Nil {
		return
	}
	h.registry.Touch(c.SpaceID, c.SessionID)

	cursor.UserID = c.UserID
	h.registry.SetCursor(c.SpaceID, cursor)
	h.Publish(c.SpaceID, models.EventCursorMoved, cursor, c.SessionID)
}

func (h *Hub) handleTyping(c *Client, typing models.TypingState) {
	if c.SpaceID == uuid.Nil {
		return
	}
	h.registry.Touch(c.SpaceID, c.SessionID)

	typing.UserID = c.UserID
	h.registry.SetTyping(c.SpaceID, c.UserID, typing.IsTyping)
	h.Publish(c.SpaceID, models.EventUserTyping, typing, c.SessionID)
}

func (h *Hub) handleContentUpdate(c *Client, update models.ContentUpdate) {
	if c.SpaceID == uuid.Nil {
		c.sendError("not_joined", "join a space before sending content")
		return
	}
	h.registry.Touch(c.SpaceID, c.SessionID)

	if !update.ContentType.Valid() {
		c.sendError("validation_error", "unknown content type")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot := update.Snapshot()
	if update.IsAutoSave {
		if err := h.store.Autosave(ctx, c.SpaceID, snapshot); err != nil {
			log.Printf("Autosave failed for space %s: %v", c.SpaceID, err)
			c.sendError("internal_error", "autosave failed")
			return
		}
		metrics.SavesTotal.WithLabelValues("autosave").Inc()
	} else {
		_, err := h.store.SaveVersion(ctx, c.SpaceID, snapshot, update.EditSummary, update.IsMajorVersion, c.UserID)
		if err != nil {
			if errors.Is(err, content.ErrEmptySummary) {
				c.sendError("validation_error", "edit summary is required")
				return
			}
			log.Printf("Save failed for space %s: %v", c.SpaceID, err)
			c.sendError("internal_error", "save failed")
			return
		}
		metrics.SavesTotal.WithLabelValues("version").Inc()
	}

	update.SpaceID = c.SpaceID
	update.UserID = c.UserID
	h.Publish(c.SpaceID, models.EventContentUpdated, update, c.SessionID)
}

func (h *Hub) handleSyncRequest(c *Client) {
	if c.SpaceID == uuid.Nil {
		c.sendError("not_joined", "join a space before requesting sync")
		return
	}
	h.registry.Touch(c.SpaceID, c.SessionID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := h.store.GetCurrent(ctx, c.SpaceID)
	if err != nil {
		log.Printf("Sync failed for space %s: %v", c.SpaceID, err)
		c.sendError("internal_error", "sync failed")
		return
	}

	present := h.registry.Snapshot(c.SpaceID)
	c.sendEvent(models.EventSyncFull, models.SyncFullPayload{
		Content:     snapshot,
		ActiveUsers: present.ActiveUserIDs,
		ActiveCount: present.ActiveCount,
	})
}
