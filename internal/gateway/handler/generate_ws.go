package handler

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"reelsmith/internal/compose"
	generation "reelsmith/internal/gateway/service/generation"
)

const generateWSWriteWait = 10 * time.Second

var generateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// generateWSEvent is one outbound progress frame. The final frame carries
// the outcome; everything before it narrates attempts.
type generateWSEvent struct {
	Type       string                     `json:"type"` // "attempt", "validated", "outcome", "error"
	Index      int                        `json:"index,omitempty"`
	Valid      bool                       `json:"valid,omitempty"`
	Diagnostic string                     `json:"diagnostic,omitempty"`
	Outcome    *compose.GenerationOutcome `json:"outcome,omitempty"`
	Message    string                     `json:"message,omitempty"`
}

// HandleGenerateWS upgrades to a websocket, reads one generation input
// frame, and streams per-attempt progress until the terminal outcome.
func (h *GenerateHandler) HandleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := generateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("handler: ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	var in generation.Input
	if err := conn.ReadJSON(&in); err != nil {
		_ = writeWSEvent(conn, nil, generateWSEvent{Type: "error", Message: "invalid input frame"})
		return
	}

	var writeMu sync.Mutex
	hook := &wsAttemptHook{conn: conn, mu: &writeMu}

	outcome, err := h.svc.Generate(r.Context(), in, hook)
	if err != nil {
		_ = writeWSEvent(conn, &writeMu, generateWSEvent{Type: "error", Message: err.Error()})
		return
	}
	_ = writeWSEvent(conn, &writeMu, generateWSEvent{Type: "outcome", Outcome: &outcome})
}

type wsAttemptHook struct {
	conn *websocket.Conn
	mu   *sync.Mutex
}

func (h *wsAttemptHook) BeforeAttempt(index int, _ string) {
	_ = writeWSEvent(h.conn, h.mu, generateWSEvent{Type: "attempt", Index: index})
}

func (h *wsAttemptHook) AfterAttempt(att compose.Attempt) {
	_ = writeWSEvent(h.conn, h.mu, generateWSEvent{
		Type:       "validated",
		Index:      att.Index,
		Valid:      att.Validation.Valid,
		Diagnostic: att.Validation.Diagnostic,
	})
}

func writeWSEvent(conn *websocket.Conn, mu *sync.Mutex, ev generateWSEvent) error {
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	_ = conn.SetWriteDeadline(time.Now().Add(generateWSWriteWait))
	return conn.WriteJSON(ev)
}
