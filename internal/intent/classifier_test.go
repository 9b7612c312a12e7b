package intent

import (
	"testing"

	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want domain.Intent
	}{
		{"mood keyword", "I feel anxious today", domain.IntentMoodAnalysis},
		{"emotion", "my emotions are all over the place", domain.IntentMoodAnalysis},
		{"mindfulness", "Give me a breathing exercise", domain.IntentMindfulness},
		{"relax", "help me RELAX", domain.IntentMindfulness},
		{"motivation", "I need a quote to get going", domain.IntentMotivation},
		{"journal", "what should I write tonight", domain.IntentJournal},
		{"general", "hello there", domain.IntentGeneral},
		{"empty", "", domain.IntentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.IntentMoodAnalysis, Classify("I need a journal prompt about my mood"))
	assert.Equal(t, domain.IntentMindfulness, Classify("a calm, positive meditation"))
}

func TestClassifyIsSubstringMatch(t *testing.T) {
	t.Parallel()

	// "breathe" is found inside "breather" and "calm" inside "calming".
	assert.Equal(t, domain.IntentMindfulness, Classify("I need a breather"))
	assert.Equal(t, domain.IntentMindfulness, Classify("something calming"))
}
