// Package prompt renders the model input for one conversation turn.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// MaxHistoryTurns bounds the history block to three human/assistant exchanges.
const MaxHistoryTurns = 6

// ErrMissingInstruction means the instruction table cannot serve an intent.
// It is a configuration error and must not be swallowed.
var ErrMissingInstruction = errors.New("missing prompt instruction")

// Context is everything the composer needs for one turn.
type Context struct {
	UserText string
	Language domain.Language
	Intent   domain.Intent
	History  []domain.Turn
}

// Composer builds prompts from a validated instruction table. The output is
// a pure function of its input.
type Composer struct {
	table Table
}

// NewComposer validates table and returns a composer for it.
func NewComposer(table Table) (*Composer, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid prompt table: %w", err)
	}
	return &Composer{table: table}, nil
}

// NewDefaultComposer returns a composer over DefaultTable.
func NewDefaultComposer() (*Composer, error) {
	return NewComposer(DefaultTable())
}

// Compose renders the prompt. Sections appear in a fixed order: persona,
// intent instruction, recent history, the user's message, and the closing
// language directive.
func (c *Composer) Compose(pc Context) (string, error) {
	persona := c.table.persona(pc.Language)
	instruction, err := c.table.intent(pc.Intent, pc.Language)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nContext: ")
	b.WriteString(instruction)
	b.WriteString("\n")
	writeHistory(&b, pc.History)
	b.WriteString("\n\nCurrent user message: ")
	b.WriteString(pc.UserText)
	b.WriteString("\n\nPlease respond in ")
	b.WriteString(pc.Language.DisplayName())
	b.WriteString(" language with appropriate warmth and empathy.")
	return b.String(), nil
}

func writeHistory(b *strings.Builder, history []domain.Turn) {
	if len(history) == 0 {
		return
	}
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	b.WriteString("\n\nPrevious conversation:\n")
	for _, turn := range history {
		b.WriteString(turn.Role.Label())
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
}
