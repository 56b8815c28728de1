package stores

import (
	"log"
	"os"

	"github.com/robfig/cron/v3"
)

// DefaultJanitorSchedule runs the eviction sweep hourly.
const DefaultJanitorSchedule = "@hourly"

// Janitor periodically evicts stale persona histories in the background
// so the store stays within its persona cap even when no appends happen.
type Janitor struct {
	cron   *cron.Cron
	store  HistoryStore
	logger *log.Logger
}

// NewJanitor creates a janitor running EvictLRU on the cron schedule.
func NewJanitor(store HistoryStore, schedule string) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}

	j := &Janitor{
		cron:   cron.New(),
		store:  store,
		logger: log.New(os.Stdout, "[JANITOR] ", log.LstdFlags),
	}

	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins the background sweeps.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the background sweeps; a running sweep finishes first.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweep() {
	if err := j.store.EvictLRU(); err != nil {
		j.logger.Printf("Eviction sweep failed: %v", err)
	}
}
