package convlog

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir, QueueSize: 16}, slog.Default())
	require.NoError(t, err)
	defer func() { _ = logger.Close() }()

	logger.Log(Event{
		UserID:     "user-1",
		SessionID:  "sess-1",
		Channel:    "chat_http",
		Direction:  "inbound",
		EventType:  "chat_user_message",
		ContentRaw: "I feel anxious today",
	})

	line := waitForLogLine(t, filepath.Join(dir, "user-1", "sess-1.ndjson"))
	var got Event
	require.NoError(t, json.Unmarshal([]byte(line), &got))
	assert.Equal(t, "I feel anxious today", got.ContentRaw)
	assert.Equal(t, "I feel anxious today", got.Content)
	assert.NotEmpty(t, got.Timestamp)
}

func TestLoggerWritesGlobalFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "all.ndjson")
	logger, err := New(Config{Enabled: true, Dir: dir, GlobalEnabled: true, GlobalPath: global}, nil)
	require.NoError(t, err)

	logger.Log(Event{UserID: "u", SessionID: "s", EventType: "chat_reply", ContentRaw: "one"})
	logger.Log(Event{UserID: "v", SessionID: "s", EventType: "chat_reply", ContentRaw: "two"})
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(global)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
}

func TestLoggerSanitizesPathSegments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: true, Dir: dir}, nil)
	require.NoError(t, err)

	logger.Log(Event{UserID: "../../etc", SessionID: "", ContentRaw: "x"})
	require.NoError(t, logger.Close())

	_, err = os.Stat(filepath.Join(dir, "______etc", "default.ndjson"))
	require.NoError(t, err)
}

func TestLogAfterCloseIsIgnored(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Enabled: true, Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	assert.NotPanics(t, func() { logger.Log(Event{UserID: "u"}) })
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	logger, err := New(Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, logger)
}

func TestCleanStripsANSI(t *testing.T) {
	t.Parallel()

	clean := Clean("\x1b[31merror\x1b[0m plain\r\n\x07")
	assert.NotContains(t, clean, "\x1b[31m")
	assert.Equal(t, "error plain", clean)
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			return lines[len(lines)-1]
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
