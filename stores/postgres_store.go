package stores

import (
	"fmt"
	"log"

	models "github.com/moncdev/personachat/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PostgresStore implements HistoryStore for PostgreSQL databases, for
// deployments where the client state lives on a shared box instead of a
// local file.
type PostgresStore struct {
	db          *gorm.DB
	dsn         string
	maxMessages int
	maxPersonas int
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(config *StoreConfig) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for PostgreSQL store: %s", config.Type)
	}

	store := &PostgresStore{
		dsn:         config.Connection,
		maxMessages: capOrDefault(config.MaxMessages, DefaultMaxMessagesPerPersona),
		maxPersonas: capOrDefault(config.MaxPersonas, DefaultMaxPersonas),
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return store, nil
}

// NewPostgresStoreSimple creates a new PostgreSQL store from a DSN.
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	return NewPostgresStore(NewStoreConfig("postgres", dsn))
}

// NewPostgresStoreDefault creates a PostgreSQL store from connection
// parameters with sslmode disabled.
func NewPostgresStoreDefault(host, user, password, dbname string, port int) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewPostgresStoreSimple(dsn)
}

// Connect establishes a connection to the PostgreSQL database.
func (s *PostgresStore) Connect() error {
	db, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	s.db = db

	if err := s.db.AutoMigrate(&ChatHistory{}, &ChatMessage{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
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
func (s *PostgresStore) Ping() error {
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
func (s *PostgresStore) GetHistory(personaID string) ([]ChatMessage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormGetHistory(s.db, personaID)
}

// Append adds a message to the end of the persona's history; same
// trim-and-retry semantics as the SQLite backend.
func (s *PostgresStore) Append(personaID string, msg ChatMessage) error {
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

	var count int64
	if err := s.db.Model(&ChatHistory{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count histories: %w", err)
	}
	if count > int64(s.maxPersonas) {
		return s.EvictLRU()
	}
	return nil
}

// Clear removes a persona's history entirely; idempotent.
func (s *PostgresStore) Clear(personaID string) error {
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
func (s *PostgresStore) LastMessage(personaID string) (*ChatMessage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormLastMessage(s.db, personaID)
}

// ListHistories returns metadata for every stored persona history.
func (s *PostgresStore) ListHistories() ([]HistoryInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return gormListHistories(s.db)
}

// EvictLRU drops least-recently-updated histories until within the cap.
func (s *PostgresStore) EvictLRU() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return gormEvictLRU(s.db, s.maxPersonas)
}

// Stats reports storage usage across all personas.
func (s *PostgresStore) Stats() (StoreStats, error) {
	if s.db == nil {
		return StoreStats{}, fmt.Errorf("database connection is nil")
	}
	return gormStats(s.db)
}
