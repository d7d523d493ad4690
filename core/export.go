package core

import (
	"time"

	"github.com/meshwatch/meshwatch/report"
	"github.com/meshwatch/meshwatch/state"
	"github.com/meshwatch/meshwatch/store"
)

// Export generates the network report once from the current database
// and exits; the one-shot counterpart of the daily job. With all set,
// the 24-hour recency window is lifted.
func Export(cfg state.Config, all bool) error {
	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now()
	since := now.Add(-24 * time.Hour)
	if all {
		since = time.Time{}
	}
	network, err := report.CollectNetwork(db, since, now)
	if err != nil {
		return err
	}
	return report.WriteJSON(cfg.ReportDir, "network.json", network)
}

// InitDB creates the database file and schema.
func InitDB(cfg state.Config) error {
	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	return db.Close()
}
