// Package client implements the space client: the per-space state
// machine that owns one websocket connection, merges incoming broadcasts
// into local editor state, reconnects with bounded backoff, and drives
// the autosave/save split.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/backoff"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

// State of the per-space connection machine.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateJoined       State = "joined"
	StateSyncing      State = "syncing"
	// StateOffline is terminal until an explicit Reconnect call: either the
	// bounded retries ran out or the join was rejected outright. Local
	// editing continues, flagged as unsynced.
	StateOffline State = "offline"
	// StateClosed is the terminal state after an explicit Close.
	StateClosed State = "closed"
)

var (
	ErrEmptySummary = errors.New("edit summary is required")
	ErrNotOffline   = errors.New("client is not in the offline state")
)

const (
	DefaultAutosaveInterval     = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
)

type Config struct {
	URL     string
	Token   string
	SpaceID uuid.UUID
	UserID  uuid.UUID

	AutosaveInterval     time.Duration
	MaxReconnectAttempts int
	Backoff              backoff.Policy
	Dialer               *websocket.Dialer

	OnStateChange func(State)
	OnPresence    func(models.PresenceSnapshot)
	OnContent     func(models.ContentSnapshot)
	OnCursor      func(models.CursorState)
	OnTyping      func(models.TypingState)
	OnError       func(models.ErrorPayload)
}

// SpaceClient is the client reconciliation layer for one space.
type SpaceClient struct {
	cfg Config

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	writeMu     sync.Mutex
	activeUsers map[uuid.UUID]bool
	cursors     map[uuid.UUID]models.CursorState
	typing      map[uuid.UUID]bool
	current     models.ContentSnapshot
	dirty       bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// wait is swapped out in tests to observe the backoff schedule.
	wait func(ctx context.Context, d time.Duration) bool
	dial func(ctx context.Context) (*websocket.Conn, error)
}

func New(cfg Config) *SpaceClient {
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.Backoff == (backoff.Policy{}) {
		cfg.Backoff = backoff.ReconnectPolicy()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	c := &SpaceClient{
		cfg:         cfg,
		state:       StateDisconnected,
		activeUsers: make(map[uuid.UUID]bool),
		cursors:     make(map[uuid.UUID]models.CursorState),
		typing:      make(map[uuid.UUID]bool),
	}
	c.wait = sleepCtx
	c.dial = c.dialWebSocket
	return c
}

// Open acquires the connection and starts the state machine. Every exit
// path, including errors and Close, releases the connection.
func (c *SpaceClient) Open(ctx context.Context) {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(false)
	go c.autosaveLoop()
}

// Close leaves the space and tears the connection down. Terminal.
func (c *SpaceClient) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Best-effort explicit leave before the transport goes away.
	c.send(models.EventSpaceLeave, models.LeaveRequest{SpaceID: c.cfg.SpaceID, UserID: c.cfg.UserID})

	c.setState(StateClosed)
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConn()
	if c.done != nil {
		<-c.done
	}
}

// Reconnect restarts the machine after it went terminally offline. This
// is the explicit user action the bounded retry policy requires.
func (c *SpaceClient) Reconnect() error {
	c.mu.Lock()
	if c.state != StateOffline {
		c.mu.Unlock()
		return ErrNotOffline
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	// Events were certainly missed while offline; resync after joining.
	go c.run(true)
	return nil
}

func (c *SpaceClient) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveUsers returns the users the client currently believes are in the
// space.
func (c *SpaceClient) ActiveUsers() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := make([]uuid.UUID, 0, len(c.activeUsers))
	for id := range c.activeUsers {
		users = append(users, id)
	}
	return users
}

// Cursor returns the last known cursor for a user, if any.
func (c *SpaceClient) Cursor(userID uuid.UUID) (models.CursorState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cursor, ok := c.cursors[userID]
	return cursor, ok
}

// IsTyping reports the last known typing flag for a user.
func (c *SpaceClient) IsTyping(userID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing[userID]
}

// Content returns the client's view of the current snapshot and whether
// it holds local changes not yet autosaved.
func (c *SpaceClient) Content() (models.ContentSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.dirty
}

// UpdateContent records a local edit. The autosave timer picks it up;
// nothing goes on the wire immediately.
func (c *SpaceClient) UpdateContent(snapshot models.ContentSnapshot) {
	snapshot.Normalize()
	c.mu.Lock()
	c.current = snapshot
	c.dirty = true
	c.mu.Unlock()
}

// SaveVersion sends an explicit, attributed save. The summary is
// validated locally so a validation failure never costs a round trip.
func (c *SpaceClient) SaveVersion(editSummary string, isMajor bool) error {
	if editSummary == "" {
		return ErrEmptySummary
	}

	c.mu.Lock()
	snapshot := c.current
	c.dirty = false
	c.mu.Unlock()

	return c.send(models.EventContentUpdate, contentUpdateFrom(c.cfg, snapshot, false, isMajor, editSummary))
}

// SendCursor emits an ephemeral cursor position. Rate limiting is the
// caller's business.
func (c *SpaceClient) SendCursor(x, y float64, elementID, mode string) error {
	return c.send(models.EventCursorMove, models.CursorState{
		UserID:    c.cfg.UserID,
		X:         x,
		Y:         y,
		ElementID: elementID,
		Mode:      mode,
	})
}

// SendTyping emits the ephemeral typing flag.
func (c *SpaceClient) SendTyping(isTyping bool) error {
	return c.send(models.EventUserTyping, models.TypingState{
		UserID:   c.cfg.UserID,
		IsTyping: isTyping,
	})
}

// RequestSync asks the server for authoritative full state.
func (c *SpaceClient) RequestSync() error {
	c.setState(StateSyncing)
	return c.send(models.EventSyncRequest, models.SyncRequest{SpaceID: c.cfg.SpaceID, UserID: c.cfg.UserID})
}

// run is the connection loop: connect, join, read until the transport
// fails, then retry with capped backoff until the retries are used
// up. resume is true when this cycle follows a lost connection.
func (c *SpaceClient) run(resume bool) {
	defer close(c.doneCh())

	for {
		if c.ctx.Err() != nil {
			return
		}

		conn, ok := c.connect()
		if !ok {
			return
		}

		fatal := c.session(conn, resume)
		c.closeConn()
		if fatal || c.ctx.Err() != nil {
			return
		}

		c.setState(StateDisconnected)
		resume = true
	}
}

// connect dials once immediately, then retries with the backoff schedule
// (1s, 2s, 4s, 5s, 5s by default). Exhausting the retries parks the
// machine in StateOffline.
func (c *SpaceClient) connect() (*websocket.Conn, bool) {
	c.setState(StateConnecting)
	conn, err := c.dial(c.ctx)
	if err == nil {
		return conn, true
	}
	log.Printf("space client: connect failed: %v", err)

	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		if !c.wait(c.ctx, c.cfg.Backoff.Delay(attempt)) {
			return nil, false
		}
		c.setState(StateConnecting)
		conn, err = c.dial(c.ctx)
		if err == nil {
			return conn, true
		}
		log.Printf("space client: reconnect attempt %d failed: %v", attempt, err)
	}

	c.setState(StateOffline)
	return nil, false
}

func (c *SpaceClient) dialWebSocket(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := c.cfg.URL
	if c.cfg.Token != "" {
		url += "?token=" + c.cfg.Token
	}
	conn, _, err := c.cfg.Dialer.DialContext(dialCtx, url, nil)
	return conn, err
}

// session joins the space and consumes events until the transport drops.
// Returns true when the machine must not retry (rejected join, closed).
func (c *SpaceClient) session(conn *websocket.Conn, resume bool) bool {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.send(models.EventSpaceJoin, models.JoinRequest{SpaceID: c.cfg.SpaceID, UserID: c.cfg.UserID}); err != nil {
		return false
	}

	for {
		var envelope models.Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			return c.State() == StateClosed
		}
		if fatal := c.handleEvent(envelope, resume); fatal {
			return true
		}
	}
}

// handleEvent folds one server event into local state. Returns true for
// events that end the session permanently.
func (c *SpaceClient) handleEvent(envelope models.Envelope, resume bool) bool {
	switch envelope.Type {
	case models.EventSpaceJoined:
		var payload models.JoinedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return false
		}
		// The join ack is authoritative: local caches are reset, never
		// merged, so stale ghosts from before a disconnect cannot survive.
		c.mu.Lock()
		c.activeUsers = make(map[uuid.UUID]bool, len(payload.ActiveUsers))
		for _, id := range payload.ActiveUsers {
			c.activeUsers[id] = true
		}
		c.cursors = make(map[uuid.UUID]models.CursorState)
		c.typing = make(map[uuid.UUID]bool)
		c.mu.Unlock()

		c.setState(StateJoined)
		c.notifyPresence()

		if resume {
			// Events may have been missed while reconnecting; replace
			// content wholesale from the server.
			c.RequestSync()
		}

	case models.EventSyncFull:
		var payload models.SyncFullPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return false
		}
		c.mu.Lock()
		c.current = payload.Content
		c.dirty = false
		c.activeUsers = make(map[uuid.UUID]bool, len(payload.ActiveUsers))
		for _, id := range payload.ActiveUsers {
			c.activeUsers[id] = true
		}
		c.mu.Unlock()

		c.setState(StateJoined)
		c.notifyPresence()
		if c.cfg.OnContent != nil {
			c.cfg.OnContent(payload.Content)
		}

	case models.EventUserJoined:
		var payload models.UserJoinedPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return false
		}
		c.mu.Lock()
		c.activeUsers[payload.UserID] = true
		c.mu.Unlock()
		c.notifyPresence()

	case models.EventUserLeft:
		var payload models.UserLeftPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return false
		}
		c.mu.Lock()
		delete(c.activeUsers, payload.UserID)
		delete(c.cursors, payload.UserID)
		delete(c.typing, payload.UserID)
		c.mu.Unlock()
		c.notifyPresence()

	case models.EventCursorMoved:
		var cursor models.CursorState
		if err := json.Unmarshal(envelope.Data, &cursor); err != nil {
			return false
		}
		c.mu.Lock()
		c.cursors[cursor.UserID] = cursor
		c.mu.Unlock()
		if c.cfg.OnCursor != nil {
			c.cfg.OnCursor(cursor)
		}

	case models.EventUserTyping:
		var typing models.TypingState
		if err := json.Unmarshal(envelope.Data, &typing); err != nil {
			return false
		}
		c.mu.Lock()
		if typing.IsTyping {
			c.typing[typing.UserID] = true
		} else {
			delete(c.typing, typing.UserID)
		}
		c.mu.Unlock()
		if c.cfg.OnTyping != nil {
			c.cfg.OnTyping(typing)
		}

	case models.EventContentUpdated:
		var update models.ContentUpdate
		if err := json.Unmarshal(envelope.Data, &update); err != nil {
			return false
		}
		snapshot := update.Snapshot()
		// Last message wins, no diffing against local unsaved edits. A
		// concurrent local edit in the same window is discarded, matching
		// the server's snapshot-level policy.
		c.mu.Lock()
		c.current = snapshot
		c.dirty = false
		c.mu.Unlock()
		if c.cfg.OnContent != nil {
			c.cfg.OnContent(snapshot)
		}

	case models.EventError:
		var payload models.ErrorPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return false
		}
		if c.cfg.OnError != nil {
			c.cfg.OnError(payload)
		}
		switch payload.Code {
		case "space_not_found", "space_archived", "auth_error":
			// Fatal to the join; retrying cannot help.
			c.setState(StateOffline)
			return true
		}
	}

	return false
}

// autosaveLoop flushes dirty content on a fixed interval while joined.
func (c *SpaceClient) autosaveLoop() {
	ticker := time.NewTicker(c.cfg.AutosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			shouldSave := c.dirty && c.state == StateJoined
			snapshot := c.current
			if shouldSave {
				c.dirty = false
			}
			c.mu.Unlock()

			if shouldSave {
				if err := c.send(models.EventContentUpdate, contentUpdateFrom(c.cfg, snapshot, true, false, "")); err != nil {
					// Flush failed; keep the change pending.
					c.mu.Lock()
					c.dirty = true
					c.mu.Unlock()
				}
			}
		}
	}
}

func (c *SpaceClient) send(eventType string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("not connected")
	}

	envelope, err := models.NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(envelope)
}

func (c *SpaceClient) setState(state State) {
	c.mu.Lock()
	if c.state == state || c.state == StateClosed && state != StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	callback := c.cfg.OnStateChange
	c.mu.Unlock()

	if callback != nil {
		callback(state)
	}
}

func (c *SpaceClient) notifyPresence() {
	if c.cfg.OnPresence == nil {
		return
	}
	c.mu.Lock()
	users := make([]uuid.UUID, 0, len(c.activeUsers))
	for id := range c.activeUsers {
		users = append(users, id)
	}
	c.mu.Unlock()
	c.cfg.OnPresence(models.PresenceSnapshot{ActiveUserIDs: users, ActiveCount: len(users)})
}

func (c *SpaceClient) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *SpaceClient) doneCh() chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func contentUpdateFrom(cfg Config, snapshot models.ContentSnapshot, isAutoSave, isMajor bool, editSummary string) models.ContentUpdate {
	return models.ContentUpdate{
		SpaceID:        cfg.SpaceID,
		UserID:         cfg.UserID,
		ContentType:    snapshot.ContentType,
		ContentJSON:    snapshot.ContentJSON,
		TextContent:    snapshot.TextContent,
		DrawingData:    snapshot.DrawingData,
		MindmapData:    snapshot.MindmapData,
		IsAutoSave:     isAutoSave,
		IsMajorVersion: isMajor,
		EditSummary:    editSummary,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
