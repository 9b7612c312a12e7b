//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/wellness-companion/internal/companion"
	"github.com/ashureev/wellness-companion/internal/convlog"
	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/identity"
	"github.com/ashureev/wellness-companion/internal/language"
	"github.com/ashureev/wellness-companion/internal/llm"
	"github.com/ashureev/wellness-companion/internal/prompt"
	"github.com/ashureev/wellness-companion/internal/session"
	"github.com/ashureev/wellness-companion/internal/store"
	"github.com/ashureev/wellness-companion/internal/voice"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoModel struct{ text string }

func (m echoModel) Invoke(context.Context, string) (llm.Completion, error) {
	return llm.Completion{Text: m.text}, nil
}

type englishDetector struct{}

func (englishDetector) Detect(string) (domain.Language, error) { return domain.English, nil }

type stubTranscriber struct{ text string }

func (s stubTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string) string {
	if _, err := io.ReadAll(audio); err != nil {
		return ""
	}
	return s.text
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	repo   store.Repository
	svc    *companion.Service
	clips  *voice.ClipStore
}

type envOption func(*Deps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "companion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	composer, err := prompt.NewDefaultComposer()
	require.NoError(t, err)
	svc, err := companion.NewService(
		language.NewResolver(englishDetector{}, nil),
		composer,
		echoModel{text: "Take a deep breath."},
		companion.Options{Entries: repo, Preferences: repo},
	)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	clips := voice.NewClipStore()
	defaults := domain.Preferences{Language: domain.English, AutoDetect: true}
	deps := Deps{
		Repo:            repo,
		Sessions:        session.NewRegistry(),
		Companion:       svc,
		Transcriber:     stubTranscriber{text: "I feel calm"},
		Clips:           clips,
		Limiter:         NewRateLimiter(600, 100),
		Defaults:        defaults,
		VoiceEnabled:    true,
		ModelConfigured: true,
		IsDev:           true,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	r := chi.NewRouter()
	r.Use(identity.Middleware(repo, defaults, true))
	NewHandler(deps).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		srv:    srv,
		client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		repo:   repo,
		svc:    svc,
		clips:  clips,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) userID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == identity.AnonCookieName {
			return c.Value
		}
	}
	t.Fatal("anonymous cookie not set")
	return ""
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, body)
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, "ok", got.Checks["database"])
	assert.Equal(t, "ok", got.Checks["model"])
}

func TestHealthDegradedWithoutModel(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.ModelConfigured = false })
	resp, body := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"degraded"`)
	assert.Contains(t, string(body), `"not_configured"`)
}

func TestGetConfigListsLanguages(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[struct {
		Languages []languageView `json:"languages"`
		Intents   []string       `json:"intents"`
		Voice     bool           `json:"voice_enabled"`
	}](t, body)
	require.Len(t, got.Languages, 6)
	assert.Equal(t, languageView{Code: domain.Marathi, Name: "Marathi"}, got.Languages[2])
	assert.Contains(t, got.Intents, "mood_analysis")
	assert.True(t, got.Voice)
}

func TestStartSessionAndChat(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/session", map[string]any{
		"language":    "French",
		"auto_detect": false,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	view := decode[sessionView](t, body)
	assert.Equal(t, domain.French, view.Language)
	assert.Equal(t, "French", view.LanguageName)
	assert.False(t, view.AutoDetect)

	resp, body = env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "I feel anxious today"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	reply := decode[companion.Reply](t, body)
	assert.Equal(t, "Take a deep breath.", reply.Text)
	assert.Equal(t, domain.French, reply.Language)
	assert.Equal(t, domain.IntentMoodAnalysis, reply.Intent)
	assert.False(t, reply.Fallback)

	resp, body = env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[struct {
		Turns []domain.Turn `json:"turns"`
	}](t, body)
	assert.Equal(t, []domain.Turn{
		{Role: domain.RoleHuman, Text: "I feel anxious today"},
		{Role: domain.RoleAssistant, Text: "Take a deep breath."},
	}, history.Turns)

	// Preferences survive in the store for the next process.
	user, err := env.repo.GetUser(context.Background(), env.userID(t))
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, domain.French, user.Language)
	assert.False(t, user.AutoDetect)
}

func TestSessionSeededFromStoredPreferences(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	err := env.repo.UpdatePreferences(context.Background(), env.userID(t), domain.Preferences{
		Language:     domain.Hindi,
		VoiceEnabled: true,
	})
	require.NoError(t, err)

	resp, body := env.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[sessionView](t, body)
	assert.Equal(t, domain.Hindi, view.Language)
	assert.True(t, view.VoiceEnabled)
	assert.Zero(t, view.Turns)
}

func TestUpdateSettingsKeepsMissingFields(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/api/session", map[string]any{"language": "de", "voice": true})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, http.MethodPut, "/api/session/settings", map[string]any{"auto_detect": false})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	view := decode[sessionView](t, body)
	assert.Equal(t, domain.German, view.Language)
	assert.True(t, view.VoiceEnabled)
	assert.False(t, view.AutoDetect)
}

func TestUpdateSettingsRejectsUnsupportedLanguage(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPut, "/api/session/settings", map[string]any{"language": "ja"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "unsupported language")
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"blank message", ChatRequest{Message: "   "}, "message is required"},
		{"invalid json", "{not json", "invalid request body"},
		{"unknown intent", ChatRequest{Message: "hello", Intent: "astrology"}, "unknown intent"},
	}
	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), tt.want)
		})
	}
}

func TestChatWithExplicitIntent(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hello", Intent: "journal"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, domain.IntentJournal, decode[companion.Reply](t, body).Intent)
}

func TestChatRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Limiter = NewRateLimiter(1, 1) })

	resp, _ := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "hello again"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, string(body), "rate limit exceeded")
}

func TestMoodTurnIsStored(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/api/chat", ChatRequest{Message: "I feel anxious today"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.svc.Wait()

	resp, body := env.do(t, http.MethodGet, "/api/journal?type=mood", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Entries []domain.Entry `json:"entries"`
	}](t, body)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Mood: I feel anxious today", got.Entries[0].Text)
	assert.Equal(t, domain.EntryMood, got.Entries[0].Kind)
}

func TestActivity(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/activity/breathing", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, domain.IntentMindfulness, decode[companion.Reply](t, body).Intent)

	resp, _ = env.do(t, http.MethodPost, "/api/activity/resources", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/activity/resources", map[string]string{"topic": "sleep"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, domain.IntentGeneral, decode[companion.Reply](t, body).Intent)

	resp, _ = env.do(t, http.MethodPost, "/api/activity/karaoke", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTip(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/api/tip", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decode[companion.Reply](t, body)
	assert.Equal(t, domain.IntentMotivation, reply.Intent)
	assert.Equal(t, "Take a deep breath.", reply.Text)

	// Tips never enter the transcript.
	resp, body = env.do(t, http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[sessionView](t, body).Turns)
}

func TestJournal(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/journal", journalRequest{Text: "  Walked by the sea.  "})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	entry := decode[domain.Entry](t, body)
	assert.Equal(t, "Journal: Walked by the sea.", entry.Text)
	assert.NotEmpty(t, entry.ID)

	resp, _ = env.do(t, http.MethodPost, "/api/journal", journalRequest{Text: " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/journal?type=journal&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[struct {
		Entries []domain.Entry `json:"entries"`
	}](t, body)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, entry.ID, got.Entries[0].ID)

	resp, _ = env.do(t, http.MethodGet, "/api/journal?type=dreams", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/journal?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClip(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/voice/clip", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.clips.Put(env.userID(t), voice.Clip{Audio: []byte("ID3"), Language: domain.Spanish, CreatedAt: time.Now()})

	resp, body := env.do(t, http.MethodGet, "/api/voice/clip", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, voice.ContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, "es", resp.Header.Get("X-Clip-Language"))
	assert.Equal(t, []byte("ID3"), body)
}

func TestTranscribe(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake audio"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/voice/transcribe", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "I feel calm", got["text"])
}

func TestTranscribeRequiresAudio(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no audio here"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/voice/transcribe", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatSocket(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPClient: &http.Client{Jar: env.client.Jar}})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.NoError(t, wsjson.Write(ctx, conn, wsMessage{Type: "ping"}))
	var pong map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &pong))
	assert.Equal(t, "pong", pong["type"])

	require.NoError(t, wsjson.Write(ctx, conn, wsMessage{Type: "chat", Message: "I need motivation"}))
	var reply map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	assert.Equal(t, "reply", reply["type"])
	assert.Equal(t, "Take a deep breath.", reply["response"])
	assert.Equal(t, "motivation", reply["intent"])

	require.NoError(t, wsjson.Write(ctx, conn, wsMessage{Type: "chat", Message: " "}))
	var errFrame map[string]any
	require.NoError(t, wsjson.Read(ctx, conn, &errFrame))
	assert.Equal(t, "error", errFrame["type"])
	assert.Equal(t, "message is required", errFrame["error"])

	require.NoError(t, wsjson.Write(ctx, conn, wsMessage{Type: "dance"}))
	require.NoError(t, wsjson.Read(ctx, conn, &errFrame))
	assert.Equal(t, "unknown message type", errFrame["error"])
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(Deps{AllowedOrigins: []string{"https://calm.example"}})

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	assert.True(t, h.checkOrigin(req), "no origin header")

	req.Header.Set("Origin", "https://calm.example")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, h.checkOrigin(req))

	h.isDev = true
	assert.True(t, h.checkOrigin(req))
}

type recordingLog struct {
	mu     sync.Mutex
	events []convlog.Event
}

func (l *recordingLog) Log(e convlog.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingLog) Close() error { return nil }

func TestChatIsLoggedBothWays(t *testing.T) {
	rec := &recordingLog{}
	env := newTestEnv(t, func(d *Deps) { d.ConvLog = rec })

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/chat", strings.NewReader(`{"message":"hello there"}`))
	require.NoError(t, err)
	req.Header.Set(identity.SessionHeaderName, "tab-7")
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, 2)
	assert.Equal(t, "chat_user_message", rec.events[0].EventType)
	assert.Equal(t, "hello there", rec.events[0].ContentRaw)
	assert.Equal(t, "tab-7", rec.events[0].SessionID)
	assert.Equal(t, "chat_assistant_message", rec.events[1].EventType)
	assert.Equal(t, "Take a deep breath.", rec.events[1].Content)
	assert.Equal(t, "chat_http", rec.events[1].Channel)
}
