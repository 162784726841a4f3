package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/pkg/response"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one feed connection watching an event.
type Client struct {
	ID      string
	EventID uuid.UUID
	UserID  uuid.UUID
	hub     *Hub
	conn    *websocket.Conn
	send    chan WSMessage
	stats   StatsFunc
	logger  *zap.Logger
}

// Authenticate resolves a token into the caller.
type Authenticate func(token string) (models.Actor, error)

// Authorize decides whether the caller may watch an event's feed.
type Authorize func(ctx context.Context, eventID uuid.UUID, actor models.Actor) error

// StatsFunc loads current counters for a client that asks for them.
type StatsFunc func(ctx context.Context, eventID uuid.UUID, actor models.Actor) (models.CheckInStats, error)

// FeedConfig wires the feed endpoint.
type FeedConfig struct {
	Authenticate   Authenticate
	Authorize      Authorize
	Stats          StatsFunc
	AllowedOrigins []string
}

func newUpgrader(origins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
}

// ServeWs handles GET /ws?event_id=&token= for the live check-in feed.
// The token travels in the query because browsers cannot set headers on WebSocket requests.
func ServeWs(hub *Hub, cfg FeedConfig, logger *zap.Logger) gin.HandlerFunc {
	upgrader := newUpgrader(cfg.AllowedOrigins)
	return func(c *gin.Context) {
		eventIDStr := c.Query("event_id")
		token := c.Query("token")
		if eventIDStr == "" || token == "" {
			response.BadRequest(c, "event_id and token required")
			return
		}
		eventID, err := uuid.Parse(eventIDStr)
		if err != nil {
			response.BadRequest(c, "invalid event_id")
			return
		}
		actor, err := cfg.Authenticate(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		if err := cfg.Authorize(c.Request.Context(), eventID, actor); err != nil {
			response.Error(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{
			ID:      uuid.New().String(),
			EventID: eventID,
			UserID:  actor.ID,
			hub:     hub,
			conn:    conn,
			send:    make(chan WSMessage, 64),
			stats:   cfg.Stats,
			logger:  logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump(actor)
	}
}

// readPump handles client requests until the connection closes.
// Clients may send {"event":"stats"} to receive current counters.
func (c *Client) readPump(actor models.Actor) {
	defer func() {
		c.hub.Unregister(c)
		close(c.send)
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "stats":
			if c.stats == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			stats, err := c.stats(ctx, c.EventID, actor)
			cancel()
			if err != nil {
				c.hub.send(c, "error", map[string]string{"code": string(apperr.KindOf(err)), "error": apperr.Message(err)})
				continue
			}
			c.hub.send(c, "stats", stats)
		case "ping":
			c.hub.send(c, "pong", nil)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
