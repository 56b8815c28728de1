package models

// Message is a single entry in the instruction sequence sent to the
// completion service. Role is "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatTurnRequest is the inbound body for one chat turn. History carries
// the client's stored conversation in API form (role-mapped, oldest first).
type ChatTurnRequest struct {
	Message string    `json:"message"`
	History []Message `json:"history"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
