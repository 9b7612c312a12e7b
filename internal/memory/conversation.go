// Package memory keeps the short-term conversation transcript of a session.
package memory

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// ErrInvalidTurn is returned when a turn cannot be recorded.
var ErrInvalidTurn = errors.New("invalid turn")

// Conversation is an append-only transcript of human/assistant exchanges.
// Turns are only ever added in pairs, so the transcript always alternates
// Human, Assistant, Human, Assistant.
type Conversation struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

// NewConversation returns an empty transcript.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append records one exchange. Both turns become visible together or, on
// error, neither does.
func (c *Conversation) Append(humanText, assistantText string) error {
	pair := [2]domain.Turn{
		{Role: domain.RoleHuman, Text: humanText},
		{Role: domain.RoleAssistant, Text: assistantText},
	}
	for _, turn := range pair {
		if err := validate(turn); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, pair[0], pair[1])
	return nil
}

// RecentHistory returns up to the last 2*maxExchanges turns, oldest first.
// The returned slice is a copy.
func (c *Conversation) RecentHistory(maxExchanges int) []domain.Turn {
	if maxExchanges <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := 0
	if maxExchanges < len(c.turns)/2 {
		start = len(c.turns) - 2*maxExchanges
	}
	out := make([]domain.Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

// Turns returns a copy of the full transcript.
func (c *Conversation) Turns() []domain.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

func validate(turn domain.Turn) error {
	if !utf8.ValidString(turn.Text) {
		return fmt.Errorf("%w: %s text is not valid UTF-8", ErrInvalidTurn, turn.Role)
	}
	return nil
}
