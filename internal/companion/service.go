// Package companion runs one conversation turn end to end: language,
// intent, prompt, model call, memory, and the best-effort side channels.
package companion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/intent"
	"github.com/ashureev/wellness-companion/internal/language"
	"github.com/ashureev/wellness-companion/internal/llm"
	"github.com/ashureev/wellness-companion/internal/prompt"
	"github.com/ashureev/wellness-companion/internal/session"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"
)

const (
	defaultModelTimeout     = 30 * time.Second
	defaultSideTimeout      = 15 * time.Second
	defaultHistoryExchanges = 3
	defaultSideWorkers      = 16
)

var (
	// ErrEmptyText is returned when there is nothing to save.
	ErrEmptyText = errors.New("text is empty")
	// ErrNoEntryStore is returned by SaveJournal when long-term storage is off.
	ErrNoEntryStore = errors.New("long-term store not configured")
	// ErrUnknownIntent is returned by RespondAs for an intent outside the enumeration.
	ErrUnknownIntent = errors.New("unknown intent")
)

// ModelClient is the hosted model.
type ModelClient interface {
	Invoke(ctx context.Context, prompt string) (llm.Completion, error)
}

// Speaker turns reply text into audio for a user.
type Speaker interface {
	Speak(ctx context.Context, userID, text string, lang domain.Language) error
}

// EntryStore keeps long-term entries.
type EntryStore interface {
	AddEntry(ctx context.Context, entry domain.Entry) error
}

// PreferenceStore persists session settings across restarts.
type PreferenceStore interface {
	UpdatePreferences(ctx context.Context, userID string, prefs domain.Preferences) error
}

// Reply is what the user sees for one turn.
type Reply struct {
	Text            string          `json:"response"`
	Language        domain.Language `json:"language"`
	Intent          domain.Intent   `json:"intent"`
	Fallback        bool            `json:"fallback"`
	LanguageChanged bool            `json:"language_changed,omitempty"`
}

// Options tune a Service. Zero values select defaults; nil collaborators
// disable the matching side channel.
type Options struct {
	ModelTimeout     time.Duration
	SideTimeout      time.Duration
	HistoryExchanges int
	// SideWorkers bounds concurrent detached work (speech, long-term writes).
	SideWorkers int
	Entries     EntryStore
	Speaker     Speaker
	// Preferences receives auto-detected language switches.
	Preferences PreferenceStore
	Logger      *slog.Logger
}

// Service answers user turns.
type Service struct {
	resolver *language.Resolver
	composer *prompt.Composer
	model    ModelClient
	entries  EntryStore
	speaker  Speaker
	prefs    PreferenceStore
	logger   *slog.Logger

	modelTimeout     time.Duration
	sideTimeout      time.Duration
	historyExchanges int

	now      func() time.Time
	pool     *ants.Pool
	detached sync.WaitGroup

	tips    singleflight.Group
	tipMu   sync.Mutex
	tipDay  string
	tipByLn map[domain.Language]string
}

// NewService wires a Service. model may be nil, in which case every turn
// answers with NoModelMessage. Call Close to release the worker pool.
func NewService(resolver *language.Resolver, composer *prompt.Composer, model ModelClient, opts Options) (*Service, error) {
	s := &Service{
		resolver:         resolver,
		composer:         composer,
		model:            model,
		entries:          opts.Entries,
		speaker:          opts.Speaker,
		prefs:            opts.Preferences,
		logger:           opts.Logger,
		modelTimeout:     opts.ModelTimeout,
		sideTimeout:      opts.SideTimeout,
		historyExchanges: opts.HistoryExchanges,
		now:              time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.modelTimeout <= 0 {
		s.modelTimeout = defaultModelTimeout
	}
	if s.sideTimeout <= 0 {
		s.sideTimeout = defaultSideTimeout
	}
	if s.historyExchanges <= 0 {
		s.historyExchanges = defaultHistoryExchanges
	}
	workers := opts.SideWorkers
	if workers <= 0 {
		workers = defaultSideWorkers
	}

	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(r any) {
			s.logger.Error("side channel panicked", "panic", r)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create side channel pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

type turn struct {
	text   string
	intent domain.Intent
	detect bool
	// record controls whether the exchange is appended to memory.
	record bool
}

// Respond answers text for sess. It always produces a reply; model failures
// and timeouts become the fallback message and leave memory untouched.
func (s *Service) Respond(ctx context.Context, sess *session.Session, text string) Reply {
	return s.exclusive(ctx, sess, turn{text: text, detect: true, record: true})
}

// RespondAs is Respond with the intent chosen by the caller instead of the
// keyword classifier.
func (s *Service) RespondAs(ctx context.Context, sess *session.Session, text string, in domain.Intent) (Reply, error) {
	if !in.Valid() {
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownIntent, in)
	}
	return s.exclusive(ctx, sess, turn{text: text, intent: in, detect: true, record: true}), nil
}

// Perform runs a one-click activity in the session's current language.
func (s *Service) Perform(ctx context.Context, sess *session.Session, a Activity, topic string) (Reply, error) {
	def, err := a.request(topic)
	if err != nil {
		return Reply{}, err
	}
	return s.exclusive(ctx, sess, turn{text: def.request, intent: def.intent, record: true}), nil
}

// DailyTip returns today's wellness tip in the session language. It neither
// reads nor writes memory. Successful tips are shared by every session using
// the same language until the date changes.
func (s *Service) DailyTip(ctx context.Context, sess *session.Session) Reply {
	lang := sess.Language()
	day := s.now().Format(time.DateOnly)
	if text, ok := s.cachedTip(day, lang); ok {
		return Reply{Text: text, Language: lang, Intent: domain.IntentMotivation}
	}

	v, _, _ := s.tips.Do(day+"/"+string(lang), func() (any, error) {
		// Shared by every waiting caller; invoke still applies the model timeout.
		reply := s.run(context.WithoutCancel(ctx), sess, turn{text: dailyTipRequest, intent: domain.IntentMotivation})
		if !reply.Fallback {
			s.storeTip(day, lang, reply.Text)
		}
		return reply, nil
	})
	return v.(Reply)
}

func (s *Service) cachedTip(day string, lang domain.Language) (string, bool) {
	s.tipMu.Lock()
	defer s.tipMu.Unlock()
	if s.tipDay != day {
		return "", false
	}
	text, ok := s.tipByLn[lang]
	return text, ok
}

func (s *Service) storeTip(day string, lang domain.Language, text string) {
	s.tipMu.Lock()
	defer s.tipMu.Unlock()
	if s.tipDay != day {
		s.tipDay = day
		s.tipByLn = make(map[domain.Language]string)
	}
	s.tipByLn[lang] = text
}

// SaveJournal writes a journal entry to the long-term store.
func (s *Service) SaveJournal(ctx context.Context, sess *session.Session, text string) (domain.Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Entry{}, ErrEmptyText
	}
	if s.entries == nil {
		return domain.Entry{}, ErrNoEntryStore
	}
	entry := s.newEntry(sess.UserID(), domain.EntryJournal, "Journal: "+text)
	if err := s.entries.AddEntry(ctx, entry); err != nil {
		return domain.Entry{}, fmt.Errorf("save journal entry: %w", err)
	}
	return entry, nil
}

// Wait blocks until detached side-channel work has finished.
func (s *Service) Wait() {
	s.detached.Wait()
}

// Close waits for detached work and releases the worker pool.
func (s *Service) Close() {
	s.Wait()
	s.pool.Release()
}

func (s *Service) exclusive(ctx context.Context, sess *session.Session, t turn) Reply {
	var reply Reply
	sess.Exclusive(func() {
		reply = s.run(ctx, sess, t)
	})
	return reply
}

func (s *Service) run(ctx context.Context, sess *session.Session, t turn) Reply {
	lang := sess.Language()
	t.text = strings.ToValidUTF8(t.text, "\uFFFD")
	if strings.TrimSpace(t.text) == "" {
		return Reply{Text: Fallback(lang), Language: lang, Intent: domain.IntentGeneral, Fallback: true}
	}

	reply := Reply{Language: lang}
	if t.detect {
		res := s.resolver.Resolve(t.text, lang, sess.AutoDetect())
		if res.Changed {
			if err := sess.SetLanguage(res.Language); err != nil {
				s.logger.Warn("failed to update session language", "user_id", sess.UserID(), "language", res.Language, "error", err)
			} else {
				reply.LanguageChanged = true
				s.persistPreferences(ctx, sess)
			}
		}
		reply.Language = res.Language
	}

	reply.Intent = t.intent
	if reply.Intent == "" {
		reply.Intent = intent.Classify(t.text)
	}

	var history []domain.Turn
	if t.record {
		history = sess.Memory().RecentHistory(s.historyExchanges)
	}
	promptText, err := s.composer.Compose(prompt.Context{
		UserText: t.text,
		Language: reply.Language,
		Intent:   reply.Intent,
		History:  history,
	})
	if err != nil {
		s.logger.Error("prompt composition failed", "user_id", sess.UserID(), "intent", reply.Intent, "error", err)
		return s.fallback(reply)
	}

	if s.model == nil {
		reply.Text = NoModelMessage
		reply.Fallback = true
		return reply
	}

	completion, err := s.invoke(ctx, promptText)
	if err != nil {
		s.logger.Warn("model invocation failed, using fallback",
			"user_id", sess.UserID(), "language", reply.Language, "intent", reply.Intent, "error", err)
		return s.fallback(reply)
	}
	text := strings.ToValidUTF8(completion.Text, "\uFFFD")
	if strings.TrimSpace(text) == "" {
		s.logger.Warn("model returned an empty response, using fallback",
			"user_id", sess.UserID(), "language", reply.Language, "intent", reply.Intent)
		return s.fallback(reply)
	}
	reply.Text = text

	if t.record {
		if err := sess.Memory().Append(t.text, text); err != nil {
			s.logger.Warn("failed to record exchange", "user_id", sess.UserID(), "error", err)
		}
	}

	s.sideChannels(ctx, sess, t, reply)
	return reply
}

func (s *Service) invoke(ctx context.Context, promptText string) (llm.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.modelTimeout)
	defer cancel()
	return s.model.Invoke(ctx, promptText)
}

func (s *Service) fallback(reply Reply) Reply {
	reply.Text = Fallback(reply.Language)
	reply.Fallback = true
	return reply
}

func (s *Service) sideChannels(ctx context.Context, sess *session.Session, t turn, reply Reply) {
	userID := sess.UserID()

	if t.record && reply.Intent == domain.IntentMoodAnalysis && s.entries != nil {
		entry := s.newEntry(userID, domain.EntryMood, "Mood: "+t.text)
		s.detach(ctx, func(ctx context.Context) {
			if err := s.entries.AddEntry(ctx, entry); err != nil {
				s.logger.Warn("could not save to long-term memory", "user_id", userID, "error", err)
			}
		})
	}

	if s.speaker != nil && sess.VoiceEnabled() {
		s.detach(ctx, func(ctx context.Context) {
			if err := s.speaker.Speak(ctx, userID, reply.Text, reply.Language); err != nil {
				s.logger.Warn("voice synthesis failed", "user_id", userID, "language", reply.Language, "error", err)
			}
		})
	}
}

func (s *Service) persistPreferences(ctx context.Context, sess *session.Session) {
	if s.prefs == nil {
		return
	}
	userID, prefs := sess.UserID(), sess.Preferences()
	s.detach(ctx, func(ctx context.Context) {
		if err := s.prefs.UpdatePreferences(ctx, userID, prefs); err != nil {
			s.logger.Warn("could not persist detected language", "user_id", userID, "language", prefs.Language, "error", err)
		}
	})
}

// detach runs fn on the worker pool outside the request lifetime. Work is
// dropped with a warning when the pool is saturated.
func (s *Service) detach(parent context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.sideTimeout)
	s.detached.Add(1)
	err := s.pool.Submit(func() {
		defer s.detached.Done()
		defer cancel()
		fn(ctx)
	})
	if err != nil {
		s.detached.Done()
		cancel()
		s.logger.Warn("side channel dropped", "error", err)
	}
}

func (s *Service) newEntry(userID string, kind domain.EntryKind, text string) domain.Entry {
	now := s.now()
	return domain.Entry{
		ID:     uuid.NewString(),
		UserID: userID,
		Kind:   kind,
		Text:   text,
		Metadata: map[string]string{
			"user":      userID,
			"type":      string(kind),
			"timestamp": now.Format(time.RFC3339),
		},
		CreatedAt: now,
	}
}
