package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether the role is one of the known chat roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is a single turn in a completion request.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
