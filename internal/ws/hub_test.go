package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeshare/internal/auth"
	"freeshare/internal/models"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}

	hub.AddClient("c1", conn, ConnInfo{ConnID: "x"})
	assert.Equal(t, 1, hub.ClientCount("c1"))

	hub.RemoveClient("c1", conn)
	assert.Zero(t, hub.ClientCount("c1"))
	assert.Empty(t, hub.rooms)
}

func TestHubBroadcastMessageReachesRoomOnly(t *testing.T) {
	hub := NewHub()
	inRoom := &fakeConn{}
	elsewhere := &fakeConn{}
	hub.AddClient("c1", inRoom, ConnInfo{})
	hub.AddClient("c2", elsewhere, ConnInfo{})

	hub.BroadcastMessage("c1", models.Message{ID: "m1", ConversationID: "c1", Content: "hello"})

	require.Len(t, inRoom.writes, 1)
	assert.Empty(t, elsewhere.writes)

	var event models.ConversationEvent
	require.NoError(t, json.Unmarshal(inRoom.writes[0], &event))
	assert.Equal(t, EventMessage, event.Type)
	assert.Equal(t, "c1", event.ConversationID)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hello", event.Message.Content)
}

func TestHubBroadcastReadAndDropsBrokenClients(t *testing.T) {
	hub := NewHub()
	healthy := &fakeConn{}
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	hub.AddClient("c1", healthy, ConnInfo{})
	hub.AddClient("c1", broken, ConnInfo{})

	hub.BroadcastRead("c1", "u1")

	require.Len(t, healthy.writes, 1)
	assert.Contains(t, string(healthy.writes[0]), `"readerId":"u1"`)
	assert.True(t, broken.closed)
	assert.Equal(t, 1, hub.ClientCount("c1"))
}

func TestNilHubBroadcastIsNoop(t *testing.T) {
	var hub *Hub
	assert.NotPanics(t, func() { hub.BroadcastRead("c1", "u1") })
}

type stubSessions struct{}

func (stubSessions) ValidateSession(_ context.Context, token string) (models.User, error) {
	if token == "db-down" {
		return models.User{}, errors.New("database is locked")
	}
	if token == "good" {
		return models.User{ID: "u1"}, nil
	}
	return models.User{}, auth.ErrInvalidSession
}

type stubParticipants struct{}

func (stubParticipants) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	return conversationID == "c1" && userID == "u1", nil
}

func TestConversationWebSocketHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	handler := NewConversationWebSocketHandler(hub, stubParticipants{}, stubSessions{})
	r := gin.New()
	r.GET("/ws/conversations/:id", handler.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws/conversations/c1?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"/ws/conversations/c1?token=db-down", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"/ws/conversations/other?token=good", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/conversations/c1?token=good", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("c1") == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastMessage("c1", models.Message{ID: "m1", Content: "hi"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.ConversationEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventMessage, event.Type)
	assert.Equal(t, "hi", event.Message.Content)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return hub.ClientCount("c1") == 0 }, time.Second, 10*time.Millisecond)
}
