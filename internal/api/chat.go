package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/wellness-companion/internal/companion"
	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/identity"
	"github.com/ashureev/wellness-companion/internal/session"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const defaultJournalLimit = 50

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
	// Intent optionally skips keyword classification.
	Intent string `json:"intent,omitempty"`
}

type activityRequest struct {
	Topic string `json:"topic"`
}

type journalRequest struct {
	Text string `json:"text"`
}

// respond runs one chat turn for sess, logging both sides of the exchange.
func (h *Handler) respond(r *http.Request, sess *session.Session, channel string, req ChatRequest) (companion.Reply, error) {
	ctx := r.Context()
	userID := sess.UserID()
	sessionID := identity.SessionIDFromContext(ctx)
	reqID := chiMiddleware.GetReqID(ctx)

	h.logEvent(userID, sessionID, channel, "outbound", "chat_user_message", req.Message, map[string]any{
		"request_id": reqID,
		"intent":     req.Intent,
	})

	var (
		reply companion.Reply
		err   error
	)
	if req.Intent != "" {
		reply, err = h.companion.RespondAs(ctx, sess, req.Message, domain.Intent(req.Intent))
		if err != nil {
			return companion.Reply{}, err
		}
	} else {
		reply = h.companion.Respond(ctx, sess, req.Message)
	}

	h.logReply(userID, sessionID, channel, reqID, reply)
	return reply, nil
}

func (h *Handler) logReply(userID, sessionID, channel, reqID string, reply companion.Reply) {
	h.logEvent(userID, sessionID, channel, "inbound", "chat_assistant_message", reply.Text, map[string]any{
		"request_id":       reqID,
		"language":         reply.Language,
		"intent":           reply.Intent,
		"fallback":         reply.Fallback,
		"language_changed": reply.LanguageChanged,
	})
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req ChatRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}
	if isBlank(req.Message) {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	slog.Info("Chat request",
		"user_id", userID,
		"session_id", identity.SessionIDFromContext(r.Context()),
		"message_length", len(req.Message),
		"intent", req.Intent,
	)

	reply, err := h.respond(r, sess, "chat_http", req)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, reply)
}

// Activity handles POST /api/activity/{activity}.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req activityRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	activity := companion.Activity(chi.URLParam(r, "activity"))
	reply, err := h.companion.Perform(r.Context(), sess, activity, req.Topic)
	switch {
	case errors.Is(err, companion.ErrUnknownActivity):
		Error(w, http.StatusNotFound, "unknown activity")
		return
	case errors.Is(err, companion.ErrTopicRequired):
		Error(w, http.StatusBadRequest, "topic is required")
		return
	case err != nil:
		Error(w, http.StatusInternalServerError, "activity failed")
		return
	}

	h.logReply(userID, identity.SessionIDFromContext(r.Context()), "activity", chiMiddleware.GetReqID(r.Context()), reply)
	JSON(w, http.StatusOK, reply)
}

// Tip handles GET /api/tip.
func (h *Handler) Tip(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, h.companion.DailyTip(r.Context(), sess))
}

// SaveJournal handles POST /api/journal.
func (h *Handler) SaveJournal(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req journalRequest
	if !h.decodeJSON(w, r, &req, false) {
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	entry, err := h.companion.SaveJournal(r.Context(), sess, req.Text)
	switch {
	case errors.Is(err, companion.ErrEmptyText):
		Error(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, companion.ErrNoEntryStore):
		Error(w, http.StatusServiceUnavailable, "journal storage unavailable")
		return
	case err != nil:
		slog.Error("Failed to save journal entry", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to save journal entry")
		return
	}

	JSON(w, http.StatusCreated, entry)
}

// ListJournal handles GET /api/journal?type=journal|mood&limit=N.
func (h *Handler) ListJournal(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kind := domain.EntryKind(strings.ToLower(r.URL.Query().Get("type")))
	if kind != "" && kind != domain.EntryJournal && kind != domain.EntryMood {
		Error(w, http.StatusBadRequest, "unknown entry type")
		return
	}

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.repo.ListEntries(r.Context(), userID, kind, limit)
	if err != nil {
		slog.Error("Failed to list entries", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
