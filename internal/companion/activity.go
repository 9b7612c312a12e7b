package companion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// Activity is a one-click request that does not need user text.
type Activity string

const (
	ActivityMindfulness   Activity = "mindfulness"
	ActivityBreathing     Activity = "breathing"
	ActivityJournalPrompt Activity = "journal_prompt"
	ActivityMotivation    Activity = "motivation"
	ActivityResources     Activity = "resources"
)

var (
	// ErrUnknownActivity is returned for an Activity outside the closed set.
	ErrUnknownActivity = errors.New("unknown activity")
	// ErrTopicRequired is returned when ActivityResources has no topic.
	ErrTopicRequired = errors.New("topic is required")
)

type activityDef struct {
	intent  domain.Intent
	request string
}

var activities = map[Activity]activityDef{
	ActivityMindfulness:   {domain.IntentMindfulness, "Provide a personalized mindfulness or meditation exercise"},
	ActivityBreathing:     {domain.IntentMindfulness, "Provide a breathing exercise for deep relaxation and stress relief"},
	ActivityJournalPrompt: {domain.IntentJournal, "Provide an insightful journaling prompt for self-reflection and personal growth"},
	ActivityMotivation:    {domain.IntentMotivation, "Provide personalized motivational encouragement and inspiration"},
	ActivityResources:     {domain.IntentGeneral, "Provide comprehensive mental wellness advice, tips, and resources about: %s"},
}

const dailyTipRequest = "Provide a brief, practical daily wellness tip or self-care reminder that is personalized and actionable"

// Activities lists the supported activities.
func Activities() []Activity {
	return []Activity{
		ActivityMindfulness,
		ActivityBreathing,
		ActivityJournalPrompt,
		ActivityMotivation,
		ActivityResources,
	}
}

func (a Activity) request(topic string) (activityDef, error) {
	def, ok := activities[a]
	if !ok {
		return activityDef{}, fmt.Errorf("%w: %q", ErrUnknownActivity, a)
	}
	if a == ActivityResources {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return activityDef{}, ErrTopicRequired
		}
		def.request = fmt.Sprintf(def.request, topic)
	}
	return def, nil
}
