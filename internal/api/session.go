package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/wellness-companion/internal/companion"
	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/identity"
	"github.com/ashureev/wellness-companion/internal/session"
)

type languageView struct {
	Code domain.Language `json:"code"`
	Name string          `json:"name"`
}

type sessionView struct {
	UserID       string          `json:"user_id"`
	Language     domain.Language `json:"language"`
	LanguageName string          `json:"language_name"`
	AutoDetect   bool            `json:"auto_detect"`
	VoiceEnabled bool            `json:"voice_enabled"`
	Turns        int             `json:"turns"`
}

// settingsRequest carries optional preference changes. Nil fields keep the
// base value.
type settingsRequest struct {
	Language   *string `json:"language"`
	AutoDetect *bool   `json:"auto_detect"`
	Voice      *bool   `json:"voice"`
}

func (req settingsRequest) merge(base domain.Preferences) (domain.Preferences, bool) {
	out := base
	if req.Language != nil {
		lang, ok := domain.ParseLanguage(*req.Language)
		if !ok {
			return base, false
		}
		out.Language = lang
	}
	if req.AutoDetect != nil {
		out.AutoDetect = *req.AutoDetect
	}
	if req.Voice != nil {
		out.VoiceEnabled = *req.Voice
	}
	return out, true
}

func viewOf(sess *session.Session) sessionView {
	prefs := sess.Preferences()
	return sessionView{
		UserID:       sess.UserID(),
		Language:     prefs.Language,
		LanguageName: prefs.Language.DisplayName(),
		AutoDetect:   prefs.AutoDetect,
		VoiceEnabled: prefs.VoiceEnabled,
		Turns:        sess.Memory().Len(),
	}
}

// GetConfig returns what the frontend needs to render its controls.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	languages := make([]languageView, 0, len(domain.SupportedLanguages()))
	for _, lang := range domain.SupportedLanguages() {
		languages = append(languages, languageView{Code: lang, Name: lang.DisplayName()})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"languages":        languages,
		"default_language": h.defaults.Language,
		"intents":          domain.Intents(),
		"activities":       companion.Activities(),
		"voice_enabled":    h.voiceEnabled,
		"model_configured": h.modelConfigured,
	})
}

// StartSession handles the "start journey" form. Missing fields take the
// configured defaults.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	h.applySettings(w, r, func(*session.Session) domain.Preferences { return h.defaults }, http.StatusCreated)
}

// UpdateSettings changes language, auto-detect or voice for the current
// session. Missing fields keep their current value.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	h.applySettings(w, r, (*session.Session).Preferences, http.StatusOK)
}

func (h *Handler) applySettings(w http.ResponseWriter, r *http.Request, base func(*session.Session) domain.Preferences, okStatus int) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req settingsRequest
	if !h.decodeJSON(w, r, &req, true) {
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	prefs, ok := req.merge(base(sess))
	if !ok {
		Error(w, http.StatusBadRequest, "unsupported language")
		return
	}
	if err := sess.Apply(prefs); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.repo.UpdatePreferences(r.Context(), userID, prefs); err != nil {
		// The live session already carries the change; persistence only
		// matters for the next process.
		slog.Warn("Failed to persist preferences", "error", err, "user_id", userID)
	}

	slog.Info("Session settings applied",
		"user_id", userID,
		"language", prefs.Language,
		"auto_detect", prefs.AutoDetect,
		"voice_enabled", prefs.VoiceEnabled,
	)
	JSON(w, okStatus, viewOf(sess))
}

// GetSession returns the current session state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	JSON(w, http.StatusOK, viewOf(sess))
}

// History returns the full transcript of the session.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess, err := h.sessionFor(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"language": sess.Language(),
		"turns":    sess.Memory().Turns(),
	})
}
