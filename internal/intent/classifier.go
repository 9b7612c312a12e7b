// Package intent maps raw user text to a conversation intent.
package intent

import (
	"strings"

	"github.com/ashureev/wellness-companion/internal/domain"
)

type rule struct {
	intent   domain.Intent
	keywords []string
}

// Rules are evaluated in order and the first match wins, so a message that
// mentions both "mood" and "journal" is a mood analysis.
var rules = []rule{
	{domain.IntentMoodAnalysis, []string{"mood", "feeling", "feel", "emotion", "emotional"}},
	{domain.IntentMindfulness, []string{"mindfulness", "meditation", "exercise", "breathe", "calm", "relax"}},
	{domain.IntentMotivation, []string{"motivation", "quote", "inspire", "encouragement", "positive"}},
	{domain.IntentJournal, []string{"journal", "prompt", "write", "reflect", "reflection"}},
}

// Classify returns the intent of text. Matching is a case-insensitive
// substring test with no stemming; text matching no rule is General.
func Classify(text string) domain.Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.intent
			}
		}
	}
	return domain.IntentGeneral
}
