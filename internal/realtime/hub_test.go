package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/models"
)

func testClient(hub *Hub, eventID uuid.UUID) *Client {
	return &Client{ID: uuid.New().String(), EventID: eventID, hub: hub, send: make(chan WSMessage, 8)}
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return WSMessage{}
	}
}

func TestHubLocalPublish(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()
	watcher := testClient(hub, eventID)
	other := testClient(hub, uuid.New())
	hub.Register(watcher)
	hub.Register(other)
	assert.Equal(t, 1, hub.Watchers(eventID))

	require.NoError(t, hub.Publish(context.Background(), eventID, "checkin", map[string]string{"name": "Ada"}))
	msg := receive(t, watcher)
	assert.Equal(t, "checkin", msg.Event)
	assert.JSONEq(t, `{"name":"Ada"}`, string(msg.Data))
	assert.Empty(t, other.send)

	hub.Unregister(watcher)
	assert.Equal(t, 0, hub.Watchers(eventID))
}

func TestHubRedisFanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ps := NewRedisPubSub(rdb, "checkin:event:", zap.NewNop())
	// Two hubs sharing Redis stand in for two server instances.
	publisherHub := NewHub(zap.NewNop(), ps, ps)
	watcherHub := NewHub(zap.NewNop(), ps, ps)

	eventID := uuid.New()
	watcher := testClient(watcherHub, eventID)
	watcherHub.Register(watcher)
	t.Cleanup(func() { watcherHub.Unregister(watcher) })

	require.NoError(t, publisherHub.Publish(context.Background(), eventID, "stats", models.CheckInStats{EventID: eventID, CheckedIn: 3}))
	msg := receive(t, watcher)
	assert.Equal(t, "stats", msg.Event)
	var stats models.CheckInStats
	require.NoError(t, json.Unmarshal(msg.Data, &stats))
	assert.Equal(t, 3, stats.CheckedIn)
}

func TestServeWs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop(), nil, nil)
	eventID := uuid.New()
	allowed := models.Actor{ID: uuid.New()}

	cfg := FeedConfig{
		Authenticate: func(token string) (models.Actor, error) {
			switch token {
			case "good":
				return allowed, nil
			case "other":
				return models.Actor{ID: uuid.New()}, nil
			}
			return models.Actor{}, errors.New("bad token")
		},
		Authorize: func(_ context.Context, id uuid.UUID, actor models.Actor) error {
			if id == eventID && actor.ID == allowed.ID {
				return nil
			}
			return apperr.E(apperr.Unauthorized, "no access")
		},
		Stats: func(_ context.Context, id uuid.UUID, _ models.Actor) (models.CheckInStats, error) {
			return models.CheckInStats{EventID: id, Registered: 5, CheckedIn: 2}, nil
		},
	}
	r := gin.New()
	r.GET("/ws", ServeWs(hub, cfg, zap.NewNop()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?event_id=" + eventID.String()

	_, resp, err := websocket.DefaultDialer.Dial(base+"&token=bad", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"&token=other", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"&token=good", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "stats"}))
	var msg WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "stats", msg.Event)

	require.Eventually(t, func() bool { return hub.Watchers(eventID) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), eventID, "checkin", map[string]string{"user_id": "u1"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "checkin", msg.Event)
}
