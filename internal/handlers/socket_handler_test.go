package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepforge/interview/internal/models"
)

func dial(t *testing.T, server *httptest.Server, p models.Principal) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token(t, p)
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, frameType string, data any) {
	t.Helper()
	raw, err := models.EncodeFrame(frameType, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, raw))
}

// readUntil skips frames until one of frameType arrives.
func readUntil(t *testing.T, ws *websocket.Conn, frameType string) models.Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := ws.ReadMessage()
		require.NoError(t, err, "waiting for %s", frameType)
		var f models.Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == frameType {
			return f
		}
	}
}

func TestInterviewSocket_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	iv := env.scheduleAccepted(t)
	for _, p := range []models.Principal{candidate, interviewer} {
		rec := env.do(t, &p, http.MethodPost, "/api/live-interviews/"+iv.ID+"/join", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	c1 := dial(t, server, candidate)
	sendFrame(t, c1, models.FrameJoinRoom, models.JoinRoom{RoomID: iv.RoomID})
	var first models.RoomJoinedEvent
	require.NoError(t, json.Unmarshal(readUntil(t, c1, models.FrameRoomJoined).Data, &first))
	assert.Empty(t, first.Participants)

	c2 := dial(t, server, interviewer)
	sendFrame(t, c2, models.FrameJoinRoom, models.JoinRoom{RoomID: iv.RoomID})
	var second models.RoomJoinedEvent
	require.NoError(t, json.Unmarshal(readUntil(t, c2, models.FrameRoomJoined).Data, &second))
	require.Len(t, second.Participants, 1)
	assert.Equal(t, first.ConnectionID, second.Participants[0].ConnectionID)

	var joined models.UserJoinedEvent
	require.NoError(t, json.Unmarshal(readUntil(t, c1, models.FrameUserJoined).Data, &joined))
	assert.Equal(t, interviewer.UserID, joined.UserID)

	offer := `{"type":"offer","data":{"to":"` + first.ConnectionID + `","offer":{"type":"offer","sdp":"v=0"}}}`
	require.NoError(t, c2.WriteMessage(websocket.TextMessage, []byte(offer)))
	var relayed struct {
		From  string          `json:"from"`
		Offer json.RawMessage `json:"offer"`
	}
	require.NoError(t, json.Unmarshal(readUntil(t, c1, models.FrameOffer).Data, &relayed))
	assert.Equal(t, second.ConnectionID, relayed.From)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(relayed.Offer))

	rec := env.do(t, &interviewer, http.MethodPost, "/api/live-interviews/"+iv.ID+"/complete", map[string]any{"score": 70})
	require.Equal(t, http.StatusOK, rec.Code)
	for _, ws := range []*websocket.Conn{c1, c2} {
		var ended models.InterviewStateEvent
		require.NoError(t, json.Unmarshal(readUntil(t, ws, models.FrameInterviewEnded).Data, &ended))
		assert.Equal(t, iv.ID, ended.InterviewID)
		assert.Equal(t, models.StatusCompleted, ended.Status)
	}

	require.NoError(t, c2.Close())
	var left models.UserLeftEvent
	require.NoError(t, json.Unmarshal(readUntil(t, c1, models.FrameUserLeft).Data, &left))
	assert.Equal(t, interviewer.UserID, left.UserID)
	assert.Equal(t, second.ConnectionID, left.ConnectionID)
}

func TestInterviewSocket_JoinBeforeStartIsRejected(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	iv := env.scheduleAccepted(t)
	ws := dial(t, server, candidate)
	sendFrame(t, ws, models.FrameJoinRoom, models.JoinRoom{RoomID: iv.RoomID})

	var ev models.ErrorEvent
	require.NoError(t, json.Unmarshal(readUntil(t, ws, models.FrameError).Data, &ev))
	assert.Equal(t, "conflict", ev.Code)
	assert.Equal(t, 0, env.hub.Registry().RoomCount())
}

func TestInterviewSocket_RequiresToken(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://app.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
