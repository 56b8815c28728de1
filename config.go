package personachat

import (
	"github.com/moncdev/personachat/sessions"
	"github.com/moncdev/personachat/stores"
)

// Config holds the wiring for a chat backend instance.
type Config struct {
	ModelName    string
	Delay        sessions.DelayRange
	HistoryLimit int
	Store        stores.HistoryStore
}

// NewConfig creates a configuration with default values.
func NewConfig() *Config {
	// Create a default SQLite store
	defaultStore, err := stores.NewSQLiteStoreDefault()
	if err != nil {
		// If we can't create the default store, panic or use a nil store
		// In production, you might want to handle this more gracefully
		panic("Failed to create default SQLite store: " + err.Error())
	}

	return &Config{
		ModelName:    "gemini-2.0-flash",
		Delay:        sessions.DefaultDelayRange,
		HistoryLimit: sessions.DefaultHistoryLimit,
		Store:        defaultStore,
	}
}

// WithModelName sets the model name for the configuration
func (c *Config) WithModelName(modelName string) *Config {
	c.ModelName = modelName
	return c
}

// WithDelay sets the inter-part pacing window
func (c *Config) WithDelay(delay sessions.DelayRange) *Config {
	c.Delay = delay
	return c
}

// WithHistoryLimit sets how many prior turns get forwarded upstream
func (c *Config) WithHistoryLimit(limit int) *Config {
	c.HistoryLimit = limit
	return c
}

// WithStore sets the history store for the configuration
func (c *Config) WithStore(store stores.HistoryStore) *Config {
	c.Store = store
	return c
}

// WithSQLiteStore sets a SQLite store with the specified database path
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the specified connection parameters
func (c *Config) WithPostgresStore(host, user, password, dbname string, port int) *Config {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	c.Store = store
	return c
}
