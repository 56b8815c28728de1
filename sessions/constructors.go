package sessions

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/moncdev/personachat/personas"
)

// DefaultTimeout bounds the upstream completion call.
const DefaultTimeout = 60 * time.Second

// NewChatSession creates a chat session for one persona conversation.
func NewChatSession(persona personas.Persona, completer Completer) *ChatSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[CHAT %s] ", persona.ID), log.LstdFlags)

	return &ChatSession{
		Persona:      persona,
		Completer:    completer,
		Delay:        DefaultDelayRange,
		HistoryLimit: DefaultHistoryLimit,
		Timeout:      DefaultTimeout,
		Logger:       logger,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithDelay overrides the inter-part pacing window.
func (s *ChatSession) WithDelay(d DelayRange) *ChatSession {
	s.Delay = d
	return s
}

// WithHistoryLimit overrides how many prior turns are forwarded upstream.
func (s *ChatSession) WithHistoryLimit(n int) *ChatSession {
	s.HistoryLimit = n
	return s
}

// WithTimeout overrides the bound on the completion call.
func (s *ChatSession) WithTimeout(d time.Duration) *ChatSession {
	s.Timeout = d
	return s
}
