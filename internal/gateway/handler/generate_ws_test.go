package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialGenerateWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/generate/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandleGenerateWS_StreamsAttemptsThenOutcome(t *testing.T) {
	srv := httptest.NewServer(NewMux(newTestService(t, "DURATION: 4\nCODE:\nconst a = 1;", true), nil, nil))
	defer srv.Close()

	conn := dialGenerateWS(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"instruction": "add a title",
		"history":     []any{},
	}))

	var events []generateWSEvent
	for {
		var ev generateWSEvent
		require.NoError(t, conn.ReadJSON(&ev))
		events = append(events, ev)
		if ev.Type == "outcome" || ev.Type == "error" {
			break
		}
	}

	require.Len(t, events, 3)
	assert.Equal(t, "attempt", events[0].Type)
	assert.Equal(t, 0, events[0].Index)
	assert.Equal(t, "validated", events[1].Type)
	assert.True(t, events[1].Valid)
	assert.Equal(t, "outcome", events[2].Type)
	require.NotNil(t, events[2].Outcome)
	assert.True(t, events[2].Outcome.Success)
	assert.Equal(t, "const a = 1;", events[2].Outcome.CompositionCode)
}

func TestHandleGenerateWS_FailureStreamsEveryAttempt(t *testing.T) {
	srv := httptest.NewServer(NewMux(newTestService(t, "DURATION: 4\nCODE:\nbad", false), nil, nil))
	defer srv.Close()

	conn := dialGenerateWS(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"instruction": "x",
		"history":     []any{},
	}))

	var events []generateWSEvent
	for {
		var ev generateWSEvent
		require.NoError(t, conn.ReadJSON(&ev))
		events = append(events, ev)
		if ev.Type == "outcome" || ev.Type == "error" {
			break
		}
	}

	// MaxRetries=1: two attempt/validated pairs, then the outcome.
	require.Len(t, events, 5)
	assert.Equal(t, "validated", events[1].Type)
	assert.False(t, events[1].Valid)
	assert.Equal(t, "TS0000", events[1].Diagnostic)
	assert.Equal(t, 1, events[2].Index)

	final := events[4]
	require.NotNil(t, final.Outcome)
	assert.False(t, final.Outcome.Success)
	assert.Zero(t, final.Outcome.Duration)
}

func TestHandleGenerateWS_InvalidInputFrame(t *testing.T) {
	srv := httptest.NewServer(NewMux(newTestService(t, "DURATION: 4\nCODE:\nx", true), nil, nil))
	defer srv.Close()

	conn := dialGenerateWS(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var ev generateWSEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "invalid input frame", ev.Message)
}
