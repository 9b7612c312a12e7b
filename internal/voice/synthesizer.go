// Package voice fetches spoken versions of replies and keeps the latest clip
// per user for the browser to play.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// DefaultURL is the Google Translate text-to-speech endpoint.
const DefaultURL = "https://translate.google.com/translate_tts"

const (
	maxChunkRunes = 200
	maxClipBytes  = 8 << 20
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

var (
	// ErrNothingToSay is returned for blank text.
	ErrNothingToSay = errors.New("nothing to say")
	// ErrClipTooLarge is returned when the service sends more audio than we keep.
	ErrClipTooLarge = errors.New("audio clip too large")
)

// Config configures a Synthesizer.
type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Synthesizer fetches MP3 audio for text and stores it in a ClipStore.
type Synthesizer struct {
	url    string
	client *http.Client
	clips  *ClipStore
}

// NewSynthesizer creates a synthesizer writing into clips.
func NewSynthesizer(cfg Config, clips *ClipStore) *Synthesizer {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Synthesizer{url: cfg.URL, client: client, clips: clips}
}

// Speak fetches audio for text in lang and stores it as userID's latest
// clip. Languages without a voice fall back to English.
func (s *Synthesizer) Speak(ctx context.Context, userID, text string, lang domain.Language) error {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return ErrNothingToSay
	}
	if !lang.IsSupported() {
		lang = domain.English
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		if err := s.fetch(ctx, &audio, chunk, lang, i, len(chunks)); err != nil {
			return fmt.Errorf("fetch chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	s.clips.Put(userID, Clip{
		Audio:     audio.Bytes(),
		Language:  lang,
		Text:      text,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *Synthesizer) fetch(ctx context.Context, dst *bytes.Buffer, chunk string, lang domain.Language, idx, total int) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", string(lang))
	q.Set("q", chunk)
	q.Set("idx", fmt.Sprint(idx))
	q.Set("total", fmt.Sprint(total))
	q.Set("textlen", fmt.Sprint(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts request failed with status %d", resp.StatusCode)
	}

	remaining := int64(maxClipBytes - dst.Len())
	n, err := io.Copy(dst, io.LimitReader(resp.Body, remaining+1))
	if err != nil {
		return err
	}
	if n > remaining {
		return ErrClipTooLarge
	}
	return nil
}

// splitText breaks text into chunks of at most limit runes, preferring to
// cut after sentence punctuation and then at whitespace.
func splitText(text string, limit int) []string {
	text = strings.Join(strings.Fields(text), " ")
	var chunks []string
	for text != "" {
		runes := []rune(text)
		if len(runes) <= limit {
			chunks = append(chunks, text)
			break
		}

		cut := -1
		for i := limit - 1; i > 0; i-- {
			if strings.ContainsRune(".!?।,;:", runes[i]) {
				cut = i + 1
				break
			}
		}
		if cut < 0 {
			for i := limit; i > 0; i-- {
				if unicode.IsSpace(runes[i]) {
					cut = i
					break
				}
			}
		}
		if cut < 0 {
			cut = limit
		}

		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(string(runes[cut:]))
	}
	return chunks
}
