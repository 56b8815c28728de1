package stores

import (
	"errors"
	"fmt"
	"log"
	"time"

	models "github.com/moncdev/personachat/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements HistoryStore for SQLite databases. This is the
// client-local durable state of the system; there is no server-side
// database.
type SQLiteStore struct {
	db          *gorm.DB
	path        string
	maxMessages int
	maxPersonas int
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	store := &SQLiteStore{
		path:        config.Connection,
		maxMessages: capOrDefault(config.MaxMessages, DefaultMaxMessagesPerPersona),
		maxPersonas: capOrDefault(config.MaxPersonas, DefaultMaxPersonas),
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a file path.
func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStore(NewStoreConfig("sqlite", dbPath))
}

func capOrDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// Connect establishes a connection to the SQLite database.
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s.db = db

	if err := s.db.AutoMigrate(&ChatHistory{}, &ChatMessage{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// GetHistory retrieves messages for a persona in insertion order.
func (s *SQLiteStore) GetHistory(personaID string) ([]ChatMessage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormGetHistory(s.db, personaID)
}

// Append adds a message to the end of the persona's history and trims it
// to the newest maxMessages entries. A failed write triggers one
// eviction pass and one retry before the failure is reported.
func (s *SQLiteStore) Append(personaID string, msg ChatMessage) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if err := gormAppend(s.db, personaID, msg, s.maxMessages); err != nil {
		log.Printf("Append failed for persona %s, running eviction pass: %v", personaID, err)
		if evictErr := s.EvictLRU(); evictErr != nil {
			log.Printf("Eviction pass failed: %v", evictErr)
		}
		if err := gormAppend(s.db, personaID, msg, s.maxMessages); err != nil {
			return models.NewChatError(models.CodeStorageWrite,
				fmt.Sprintf("Failed to save chat history for persona: %s", personaID), err.Error())
		}
	}

	return s.evictIfOverCap()
}

// Clear removes a persona's history entirely. Clearing an already-empty
// history succeeds.
func (s *SQLiteStore) Clear(personaID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if err := gormClear(s.db, personaID); err != nil {
		return models.NewChatError(models.CodeStorageWrite,
			fmt.Sprintf("Failed to clear chat history for persona: %s", personaID), err.Error())
	}
	return nil
}

// LastMessage returns the newest message for a persona, or nil when the
// history is empty.
func (s *SQLiteStore) LastMessage(personaID string) (*ChatMessage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormLastMessage(s.db, personaID)
}

// ListHistories returns metadata for every stored persona history,
// most recently updated first.
func (s *SQLiteStore) ListHistories() ([]HistoryInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormListHistories(s.db)
}

// EvictLRU drops whole histories for the least-recently-updated personas
// until the persona count is within the cap.
func (s *SQLiteStore) EvictLRU() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return gormEvictLRU(s.db, s.maxPersonas)
}

// Stats reports storage usage across all personas.
func (s *SQLiteStore) Stats() (StoreStats, error) {
	if s.db == nil {
		return StoreStats{}, fmt.Errorf("database connection is nil")
	}
	return gormStats(s.db)
}

func (s *SQLiteStore) evictIfOverCap() error {
	var count int64
	if err := s.db.Model(&ChatHistory{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count histories: %w", err)
	}
	if count > int64(s.maxPersonas) {
		return s.EvictLRU()
	}
	return nil
}

// Shared gorm history operations, used by both store backends.

func gormGetHistory(db *gorm.DB, personaID string) ([]ChatMessage, error) {
	msgs := []ChatMessage{}
	err := db.Where("persona_id = ?", personaID).
		Order("timestamp ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

func gormAppend(db *gorm.DB, personaID string, msg ChatMessage, maxMessages int) error {
	msg.PersonaID = personaID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to create message record: %w", err)
		}

		var count int64
		if err := tx.Model(&ChatMessage{}).Where("persona_id = ?", personaID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count messages: %w", err)
		}

		// Keep only the newest maxMessages entries, oldest dropped first.
		if count > int64(maxMessages) {
			var stale []ChatMessage
			excess := int(count) - maxMessages
			if err := tx.Where("persona_id = ?", personaID).
				Order("timestamp ASC, id ASC").
				Limit(excess).
				Find(&stale).Error; err != nil {
				return fmt.Errorf("failed to find stale messages: %w", err)
			}
			if err := tx.Unscoped().Delete(&stale).Error; err != nil {
				return fmt.Errorf("failed to trim history: %w", err)
			}
			count = int64(maxMessages)
		}

		// Upsert the history metadata row.
		var hist ChatHistory
		err := tx.Where("persona_id = ?", personaID).First(&hist).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hist = ChatHistory{PersonaID: personaID, MessageCount: int(count), LastUpdated: msg.Timestamp}
			if err := tx.Create(&hist).Error; err != nil {
				return fmt.Errorf("failed to create history record: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load history record: %w", err)
		default:
			updates := map[string]interface{}{"message_count": int(count), "last_updated": msg.Timestamp}
			if err := tx.Model(&hist).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update history record: %w", err)
			}
		}
		return nil
	})
}

func gormClear(db *gorm.DB, personaID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("persona_id = ?", personaID).Delete(&ChatMessage{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Unscoped().Where("persona_id = ?", personaID).Delete(&ChatHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete history record: %w", err)
		}
		return nil
	})
}

func gormLastMessage(db *gorm.DB, personaID string) (*ChatMessage, error) {
	var msg ChatMessage
	err := db.Where("persona_id = ?", personaID).
		Order("timestamp DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last message: %w", err)
	}
	return &msg, nil
}

func gormListHistories(db *gorm.DB) ([]HistoryInfo, error) {
	var hists []ChatHistory
	if err := db.Order("last_updated DESC").Find(&hists).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch histories: %w", err)
	}

	result := make([]HistoryInfo, len(hists))
	for i, h := range hists {
		result[i] = HistoryInfo{
			PersonaID:    h.PersonaID,
			MessageCount: h.MessageCount,
			LastUpdated:  h.LastUpdated.Format(time.RFC3339),
		}
	}
	return result, nil
}

func gormStats(db *gorm.DB) (StoreStats, error) {
	var personas, messages int64
	if err := db.Model(&ChatHistory{}).Count(&personas).Error; err != nil {
		return StoreStats{}, fmt.Errorf("failed to count histories: %w", err)
	}
	if err := db.Model(&ChatMessage{}).Count(&messages).Error; err != nil {
		return StoreStats{}, fmt.Errorf("failed to count messages: %w", err)
	}
	return StoreStats{Personas: int(personas), TotalMessages: messages}, nil
}

func gormEvictLRU(db *gorm.DB, maxPersonas int) error {
	var hists []ChatHistory
	if err := db.Order("last_updated ASC").Find(&hists).Error; err != nil {
		return fmt.Errorf("failed to fetch histories: %w", err)
	}

	if len(hists) <= maxPersonas {
		return nil
	}

	for _, h := range hists[:len(hists)-maxPersonas] {
		if err := gormClear(db, h.PersonaID); err != nil {
			return fmt.Errorf("failed to evict history for %s: %w", h.PersonaID, err)
		}
		log.Printf("Evicted chat history for persona %s (last updated %s)",
			h.PersonaID, h.LastUpdated.Format(time.RFC3339))
	}
	return nil
}
