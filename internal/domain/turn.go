package domain

// Role identifies who produced a turn.
type Role string

const (
	// RoleHuman marks text typed or spoken by the user.
	RoleHuman Role = "human"
	// RoleAssistant marks text produced by the model.
	RoleAssistant Role = "assistant"
)

// Label returns the speaker label used when history is rendered into a prompt.
func (r Role) Label() string {
	if r == RoleHuman {
		return "User"
	}
	return "Assistant"
}

// Turn is one message in a conversation transcript. Turns are never modified
// after they are recorded.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
