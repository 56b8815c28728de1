package stores

import (
	"time"

	"gorm.io/gorm"
)

// ChatMessage is the persistent unit of a conversation: one bubble-to-be,
// created on send (user) or on each received part (assistant). Immutable
// after creation; ordering is by timestamp/insertion, never reordered.
type ChatMessage struct {
	gorm.Model `json:"-"`
	MessageID  string    `gorm:"index;not null" json:"id"`
	PersonaID  string    `gorm:"index;not null" json:"personaId"`
	Sender     string    `gorm:"not null" json:"sender"` // "user", "assistant"
	Content    string    `gorm:"type:text" json:"content"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
	// Provenance of assistant parts within their original reply.
	PartIndex  *int `json:"partIndex,omitempty"`
	TotalParts *int `json:"totalParts,omitempty"`
}

// ChatHistory holds per-persona history metadata. LastUpdated drives
// least-recently-updated eviction.
type ChatHistory struct {
	gorm.Model
	PersonaID    string    `gorm:"uniqueIndex;not null"`
	MessageCount int       `gorm:"default:0"`
	LastUpdated  time.Time `gorm:"index"`
}

// HistoryInfo holds basic history metadata for listing.
type HistoryInfo struct {
	PersonaID    string
	MessageCount int
	LastUpdated  string
}

// StoreStats summarizes storage usage across all personas.
type StoreStats struct {
	Personas      int   `json:"personas"`
	TotalMessages int64 `json:"totalMessages"`
}

// Retention caps bounding local storage: newest-K messages per persona
// (oldest dropped first) and an overall persona cap (least-recently-
// updated history evicted whole).
const (
	DefaultMaxMessagesPerPersona = 1000
	DefaultMaxPersonas           = 10
)

// HistoryStore is the durable per-persona conversation log. It is local
// to one client and accessed sequentially; implementations do not need
// to support concurrent writers.
type HistoryStore interface {
	// GetHistory returns the ordered messages for a persona; empty,
	// never nil-with-error, when the persona has no history.
	GetHistory(personaID string) ([]ChatMessage, error)
	// Append adds to the end and trims the history to the newest K
	// messages. On a write failure it runs one eviction pass and
	// retries once before reporting a STORAGE_WRITE_ERROR.
	Append(personaID string, msg ChatMessage) error
	// Clear removes a persona's history entirely; idempotent.
	Clear(personaID string) error
	// LastMessage returns the newest message, or nil without error when
	// the history is empty. Used for chat-list previews.
	LastMessage(personaID string) (*ChatMessage, error)
	// ListHistories returns metadata for every stored persona history.
	ListHistories() ([]HistoryInfo, error)
	// EvictLRU drops least-recently-updated histories until the persona
	// count is within the cap.
	EvictLRU() error
	// Stats reports storage usage across all personas.
	Stats() (StoreStats, error)

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for history stores.
type StoreConfig struct {
	Type        string            `json:"type"`       // "sqlite", "postgres"
	Connection  string            `json:"connection"` // connection string or file path
	MaxMessages int               `json:"max_messages"`
	MaxPersonas int               `json:"max_personas"`
	Options     map[string]string `json:"options"`
}

// NewStoreConfig creates a store configuration with the default caps.
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:        storeType,
		Connection:  connection,
		MaxMessages: DefaultMaxMessagesPerPersona,
		MaxPersonas: DefaultMaxPersonas,
		Options:     make(map[string]string),
	}
}

// WithCaps overrides the retention caps.
func (c *StoreConfig) WithCaps(maxMessages, maxPersonas int) *StoreConfig {
	c.MaxMessages = maxMessages
	c.MaxPersonas = maxPersonas
	return c
}

// WithOption adds an option to the store configuration.
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
