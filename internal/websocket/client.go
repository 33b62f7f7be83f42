package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/auth"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/metrics"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	// Content payloads can be large drawing or mindmap blobs.
	maxMessageSize = 1 << 20
)

// Client is one live websocket connection. A connection is idle until
// its space:join is accepted; from then on SpaceID names its room.
type Client struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	SpaceID   uuid.UUID
	// TokenExpiry is when the credentials presented at upgrade stop
	// being honored; messages arriving after it are rejected.
	TokenExpiry time.Time
	Conn        *websocket.Conn
	Send        chan []byte
	Hub         *Hub
}

// HandleWebSocket authenticates and upgrades a connection. A bad token is
// fatal to the connect attempt; no session exists until a join succeeds.
func HandleWebSocket(c *gin.Context, hub *Hub, tokens *auth.TokenService) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}

	userID, tokenExpiry, err := tokens.ValidateTokenWithExpiry(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		SessionID:   uuid.New(),
		UserID:      userID,
		TokenExpiry: tokenExpiry,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Hub:         hub,
	}

	metrics.ActiveConnections.Inc()
	log.Printf("Client %s connected (session %s)", userID, client.SessionID)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Disconnect(c)
		c.Conn.Close()
		metrics.ActiveConnections.Dec()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.Hub.TouchSession(c)
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}

		// Credentials are checked per message, not just at upgrade, so
		// a long-lived connection cannot outlive its token. The client
		// treats auth_error as fatal and closes from its side.
		if !c.TokenExpiry.IsZero() && time.Now().After(c.TokenExpiry) {
			c.sendError("auth_error", "token expired, reconnect with a fresh one")
			c.Conn.SetReadDeadline(time.Now().Add(writeWait))
			continue
		}

		var envelope models.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			continue
		}

		c.Hub.HandleMessage(c, envelope)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEvent queues one event on this client's connection. Best effort: a
// full buffer drops the message rather than blocking the hub.
func (c *Client) sendEvent(eventType string, payload interface{}) {
	envelope, err := models.NewEnvelope(eventType, payload)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", eventType, err)
		return
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	select {
	case c.Send <- raw:
	default:
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(models.EventError, models.ErrorPayload{Code: code, Message: message})
}
