package stores

import (
	"fmt"
)

// NewStore creates a HistoryStore based on the configuration.
func NewStore(config *StoreConfig) (HistoryStore, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteStore(config)
	case "postgres":
		return NewPostgresStore(config)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NewSQLiteStoreDefault creates a SQLite store with the default path.
func NewSQLiteStoreDefault() (*SQLiteStore, error) {
	return NewSQLiteStoreSimple("personachat.sqlite")
}
