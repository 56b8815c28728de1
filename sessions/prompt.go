package sessions

import (
	"strings"

	models "github.com/moncdev/personachat/models"
)

// DefaultHistoryLimit caps the prior turns included in a prompt to bound
// request size. Older turns are silently dropped, not summarized.
const DefaultHistoryLimit = 20

// BuildPrompt produces the ordered instruction sequence for the
// completion service: one system entry (the persona prompt), at most
// limit recent history turns, then the new user turn. Entries with roles
// other than user/assistant are dropped. No side effects.
func BuildPrompt(systemPrompt string, history []models.Message, userText string, limit int) ([]models.Message, error) {
	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return nil, models.NewChatError(
			models.CodeInvalidMessage,
			"Message content is required",
			"Message must be a non-empty string",
		)
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	prompt := make([]models.Message, 0, len(history)+2)
	prompt = append(prompt, models.Message{Role: models.RoleSystem, Content: systemPrompt})

	recent := history
	if len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}
	for _, entry := range recent {
		switch entry.Role {
		case models.RoleUser, models.RoleAssistant:
			prompt = append(prompt, entry)
		}
	}

	prompt = append(prompt, models.Message{Role: models.RoleUser, Content: trimmed})
	return prompt, nil
}
