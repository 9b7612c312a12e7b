package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1/",
		Model:       "test-model",
		Temperature: 0.7,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestInvokeReturnsFirstChoice(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1",
			"model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  Take a deep breath.\n"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`)
	})

	out, err := c.Invoke(context.Background(), "I feel anxious today")
	require.NoError(t, err)

	assert.Equal(t, "Take a deep breath.", out.Text)
	assert.Equal(t, "stop", out.FinishReason)
	assert.Equal(t, 12, out.PromptTokens)
	assert.Equal(t, 5, out.CompletionTokens)

	assert.Equal(t, "test-model", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "I feel anxious today", got.Messages[0].Content)
}

func TestInvokeEmptyCompletion(t *testing.T) {
	for name, body := range map[string]string{
		"no choices":    `{"choices": []}`,
		"blank content": `{"choices": [{"message": {"role": "assistant", "content": "   "}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, body)
			})

			_, err := c.Invoke(context.Background(), "hello")
			require.ErrorIs(t, err, ErrEmptyCompletion)
		})
	}
}

func TestInvokeSurfacesAPIErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "quota exceeded", "type": "rate_limit"}}`)
	})

	_, err := c.Invoke(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestInvokeHonoursContextDeadline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, "hello")
	require.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "clip.webm", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": " I had a long day. "}`)
	})

	text := c.Transcribe(context.Background(), strings.NewReader("fake-audio"), "clip.webm")
	assert.Equal(t, "I had a long day.", text)
}

func TestTranscribeFailureReturnsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Empty(t, c.Transcribe(context.Background(), strings.NewReader("x"), ""))
}
