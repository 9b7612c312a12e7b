package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/wellness-companion/internal/identity"
	"github.com/ashureev/wellness-companion/internal/voice"
)

// Transcribe handles POST /api/voice/transcribe with a multipart "audio"
// field. Recognition failures answer with an empty text, not an error.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioSize)
	if err := r.ParseMultipartForm(h.maxAudioSize); err != nil {
		Error(w, http.StatusBadRequest, "invalid audio upload")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Debug("Failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("audio")
	if err != nil {
		Error(w, http.StatusBadRequest, "audio is required")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Debug("Failed to close uploaded audio", "error", closeErr)
		}
	}()

	text := ""
	if h.transcriber != nil {
		text = h.transcriber.Transcribe(r.Context(), file, header.Filename)
	}
	slog.Info("Audio transcribed", "user_id", userID, "size", header.Size, "recognized", text != "")

	JSON(w, http.StatusOK, map[string]string{"text": text})
}

// Clip handles GET /api/voice/clip, serving the latest synthesized reply.
func (h *Handler) Clip(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if h.clips == nil {
		Error(w, http.StatusNotFound, "no clip")
		return
	}
	clip, ok := h.clips.Latest(userID)
	if !ok {
		Error(w, http.StatusNotFound, "no clip")
		return
	}

	w.Header().Set("Content-Type", voice.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Audio)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Clip-Language", clip.Language.String())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(clip.Audio); err != nil {
		slog.Debug("Failed to write clip", "error", err, "user_id", userID)
	}
}
