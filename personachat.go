package personachat

import (
	"strings"

	models "github.com/moncdev/personachat/models"
	"github.com/moncdev/personachat/models/gemini"
	"github.com/moncdev/personachat/models/openrouter"
	"github.com/moncdev/personachat/personas"
	"github.com/moncdev/personachat/server"
	"github.com/moncdev/personachat/sessions"
)

// Completer is the single-call interface to a completion provider.
type Completer = sessions.Completer

// NewCompleter picks a provider from the model name: "gemini-*" models
// route to the Gemini API, everything else goes through OpenRouter.
func NewCompleter(modelName string) Completer {
	if strings.HasPrefix(modelName, "gemini") {
		return &gemini.Gemini_Model{Model: modelName}
	}
	return &openrouter.OpenRouter_Model{Model: modelName}
}

// NewSession creates a chat session for one persona conversation.
func NewSession(persona personas.Persona, completer Completer) *sessions.ChatSession {
	return sessions.NewChatSession(persona, completer)
}

// NewServer builds the HTTP backend from a configuration.
func NewServer(config *Config) (*server.Server, error) {
	registry, err := personas.LoadRegistry()
	if err != nil {
		return nil, err
	}

	srv := server.NewServer(registry, NewCompleter(config.ModelName))
	srv.Delay = config.Delay
	if config.HistoryLimit > 0 {
		srv.HistoryLimit = config.HistoryLimit
	}
	return srv, nil
}

// SplitReply re-exports reply segmentation for direct use.
func SplitReply(reply string) []models.MessagePart {
	return sessions.SplitReply(reply)
}
