// Package convlog records conversation transcripts as NDJSON, one file per
// user session, written by a background goroutine.
package convlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls conversation logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	// GlobalMaxSizeMB rotates the global file once it grows past this size.
	GlobalMaxSizeMB int
}

// Event is one line in a transcript.
type Event struct {
	Timestamp  string         `json:"timestamp"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Logger accepts transcript events. Log never blocks the caller.
type Logger interface {
	Log(event Event)
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Log(Event)    {}
func (Noop) Close() error { return nil }

// New returns a file-backed logger, or Noop when logging is disabled.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if cfg.Dir == "" {
		return nil, errors.New("conversation log dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileLogger{
		dir:    cfg.Dir,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		files:  make(map[string]*os.File),
	}
	if cfg.GlobalEnabled && cfg.GlobalPath != "" {
		maxSize := cfg.GlobalMaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		l.global = &lumberjack.Logger{
			Filename:   cfg.GlobalPath,
			MaxSize:    maxSize,
			MaxBackups: 5,
			Compress:   true,
		}
	}

	l.wg.Add(1)
	go l.run()
	return l, nil
}

type fileLogger struct {
	dir    string
	logger *slog.Logger
	queue  chan Event
	global io.WriteCloser

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64

	files map[string]*os.File
	wg    sync.WaitGroup
}

func (l *fileLogger) Log(event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" && event.ContentRaw != "" {
		event.Content = Clean(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		if n := l.dropped.Add(1); n == 1 || n%100 == 0 {
			l.logger.Warn("conversation log queue full, dropping events", "dropped", n)
		}
	}
}

func (l *fileLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()

	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	if l.global != nil {
		errs = append(errs, l.global.Close())
	}
	return errors.Join(errs...)
}

func (l *fileLogger) run() {
	defer l.wg.Done()
	for event := range l.queue {
		line, err := json.Marshal(event)
		if err != nil {
			l.logger.Warn("failed to encode conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		if err := l.writeSession(event, line); err != nil {
			l.logger.Warn("failed to write conversation log", "user_id", event.UserID, "error", err)
		}
		if l.global != nil {
			if _, err := l.global.Write(line); err != nil {
				l.logger.Warn("failed to write global conversation log", "error", err)
			}
		}
	}
}

func (l *fileLogger) writeSession(event Event, line []byte) error {
	user := pathSegment(event.UserID, "anonymous")
	sess := pathSegment(event.SessionID, "default")
	key := user + "/" + sess

	f, ok := l.files[key]
	if !ok {
		dir := filepath.Join(l.dir, user)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		var err error
		f, err = os.OpenFile(filepath.Join(dir, sess+".ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		l.files[key] = f
	}
	_, err := f.Write(line)
	return err
}

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9_-]`)

func pathSegment(s, fallback string) string {
	s = unsafeSegment.ReplaceAllString(s, "_")
	if strings.Trim(s, "_") == "" {
		return fallback
	}
	return s
}

var (
	ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Clean strips terminal escapes and control characters so transcripts read
// as plain text.
func Clean(s string) string {
	s = ansiSequence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = controlChars.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
