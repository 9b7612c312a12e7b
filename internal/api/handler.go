//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/wellness-companion/internal/companion"
	"github.com/ashureev/wellness-companion/internal/convlog"
	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/session"
	"github.com/ashureev/wellness-companion/internal/store"
	"github.com/ashureev/wellness-companion/internal/voice"
	"github.com/go-chi/chi/v5"
)

// defaultMaxRequestBodySize is the default maximum allowed JSON body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// defaultMaxAudioSize bounds uploaded recordings (10MB).
const defaultMaxAudioSize = 10 << 20

// Transcriber turns recorded audio into text. It returns "" when nothing
// could be recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) string
}

// Deps are the collaborators of a Handler. Repo, Sessions and Companion are
// required; the rest may be left nil.
type Deps struct {
	Repo        store.Repository
	Sessions    session.Store
	Companion   *companion.Service
	Transcriber Transcriber
	Clips       *voice.ClipStore
	Limiter     *RateLimiter
	ConvLog     convlog.Logger
	Conns       *ConnManager

	// Defaults seed sessions for users without stored preferences.
	Defaults        domain.Preferences
	VoiceEnabled    bool
	ModelConfigured bool
	AllowedOrigins  []string
	IsDev           bool
}

// Handler serves the companion's HTTP and WebSocket API.
type Handler struct {
	repo        store.Repository
	sessions    session.Store
	companion   *companion.Service
	transcriber Transcriber
	clips       *voice.ClipStore
	limiter     *RateLimiter
	log         convlog.Logger
	conns       *ConnManager

	defaults        domain.Preferences
	voiceEnabled    bool
	modelConfigured bool
	allowedOrigins  []string
	isDev           bool
	maxBodySize     int64
	maxAudioSize    int64
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		repo:            d.Repo,
		sessions:        d.Sessions,
		companion:       d.Companion,
		transcriber:     d.Transcriber,
		clips:           d.Clips,
		limiter:         d.Limiter,
		log:             d.ConvLog,
		conns:           d.Conns,
		defaults:        d.Defaults,
		voiceEnabled:    d.VoiceEnabled,
		modelConfigured: d.ModelConfigured,
		allowedOrigins:  d.AllowedOrigins,
		isDev:           d.IsDev,
		maxBodySize:     defaultMaxRequestBodySize,
		maxAudioSize:    defaultMaxAudioSize,
	}
	if h.log == nil {
		h.log = convlog.Noop{}
	}
	if h.conns == nil {
		h.conns = NewConnManager()
	}
	if h.limiter == nil {
		h.limiter = NewRateLimiter(0, 0)
	}
	if !h.defaults.Language.IsSupported() {
		h.defaults.Language = domain.DefaultLanguage
	}
	return h
}

// RegisterRoutes registers every API route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/config", h.GetConfig)

		r.Post("/session", h.StartSession)
		r.Get("/session", h.GetSession)
		r.Put("/session/settings", h.UpdateSettings)

		r.Post("/chat", h.Chat)
		r.Get("/history", h.History)
		r.Get("/tip", h.Tip)
		r.Post("/activity/{activity}", h.Activity)

		r.Post("/journal", h.SaveJournal)
		r.Get("/journal", h.ListJournal)

		r.Post("/voice/transcribe", h.Transcribe)
		r.Get("/voice/clip", h.Clip)
	})
	r.Get("/ws/chat", h.ServeChatSocket)
}

// sessionFor returns the live session of a user, creating it from the stored
// preferences (or the configured defaults) on first use.
func (h *Handler) sessionFor(ctx context.Context, userID string) (*session.Session, error) {
	if sess, ok := h.sessions.Get(userID); ok {
		return sess, nil
	}

	prefs := h.defaults
	user, err := h.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		prefs = user.Preferences()
	}

	sess, created := h.sessions.GetOrCreate(userID, prefs)
	if created {
		slog.Info("Session created", "user_id", userID, "language", sess.Language())
	}
	return sess, nil
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched when allowEmpty is set.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) logEvent(userID, sessionID, channel, direction, eventType, content string, meta map[string]any) {
	h.log.Log(convlog.Event{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    convlog.Clean(content),
		Meta:       meta,
	})
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
