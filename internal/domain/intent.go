package domain

// Intent is the kind of wellness response a turn asks for.
type Intent string

// Conversation intents. The set is closed.
const (
	IntentMoodAnalysis Intent = "mood_analysis"
	IntentMindfulness  Intent = "mindfulness"
	IntentMotivation   Intent = "motivation"
	IntentJournal      Intent = "journal"
	IntentGeneral      Intent = "general"
)

var allIntents = []Intent{
	IntentMoodAnalysis,
	IntentMindfulness,
	IntentMotivation,
	IntentJournal,
	IntentGeneral,
}

// Intents returns every declared intent.
func Intents() []Intent {
	out := make([]Intent, len(allIntents))
	copy(out, allIntents)
	return out
}

// Valid reports whether i is a declared intent.
func (i Intent) Valid() bool {
	for _, known := range allIntents {
		if i == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (i Intent) String() string {
	return string(i)
}
