package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/wellness-companion/internal/companion"
	"github.com/ashureev/wellness-companion/internal/identity"
	"github.com/ashureev/wellness-companion/internal/session"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsWriteTimeout = 10 * time.Second

// wsMessage is a client frame on /ws/chat.
type wsMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Intent  string `json:"intent,omitempty"`
}

type wsReply struct {
	Type string `json:"type"`
	companion.Reply
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ServeChatSocket upgrades to a WebSocket and answers chat frames in order.
func (h *Handler) ServeChatSocket(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.conns.Register(userID, sessionID, ws)
	defer h.conns.Unregister(userID, sessionID, ws)

	h.readLoop(r, ws, sess)
	slog.Info("Chat socket ended", "user_id", userID)
}

func (h *Handler) readLoop(r *http.Request, ws *websocket.Conn, sess *session.Session) {
	ctx := r.Context()
	userID := sess.UserID()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if !h.writeFrame(ctx, ws, wsError{Type: "error", Error: "invalid message"}) {
				return
			}
			continue
		}

		var out any
		switch msg.Type {
		case "ping":
			out = map[string]string{"type": "pong"}
		case "chat":
			out = h.chatFrame(r, sess, msg)
		default:
			out = wsError{Type: "error", Error: "unknown message type"}
		}
		if !h.writeFrame(ctx, ws, out) {
			return
		}
	}
}

func (h *Handler) chatFrame(r *http.Request, sess *session.Session, msg wsMessage) any {
	if isBlank(msg.Message) {
		return wsError{Type: "error", Error: "message is required"}
	}
	if !h.limiter.Allow(sess.UserID()) {
		return wsError{Type: "error", Error: "rate limit exceeded"}
	}
	reply, err := h.respond(r, sess, "chat_ws", ChatRequest{Message: msg.Message, Intent: msg.Intent})
	if err != nil {
		return wsError{Type: "error", Error: err.Error()}
	}
	return wsReply{Type: "reply", Reply: reply}
}

func (h *Handler) writeFrame(ctx context.Context, ws *websocket.Conn, v any) bool {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, ws, v); err != nil {
		slog.Debug("WebSocket write error", "error", err)
		return false
	}
	return true
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}
