package main

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/internal/platform"
	"github.com/shahram8708/PromptX/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Use the shared initializers
	db := platform.NewDBConnection(cfg.DatabaseURL)
	st := store.New(db)

	// Create a new cron scheduler
	c := cron.New()

	// Only run one instance of this service to avoid duplicate sweeps.
	_, err = c.AddFunc(cfg.Pipeline.Cleanup.SweepSpec, func() {
		sweep(st, cfg)
	})
	if err != nil {
		log.Fatal("Failed to schedule retention sweep:", err)
	}

	c.Start()
	defer c.Stop()

	log.Printf("Scheduler started, sweeping %q with %dh retention...",
		cfg.Pipeline.Cleanup.SweepSpec, cfg.Pipeline.Cleanup.RetentionHours)
	// Keep the main thread alive
	select {}
}

// sweep deletes every session whose last activity predates the retention
// window, along with its storage namespace. Stuck sessions count as inactive
// and get reclaimed too.
func sweep(st *store.Store, cfg *config.Config) {
	cutoff := time.Now().Add(-time.Duration(cfg.Pipeline.Cleanup.RetentionHours) * time.Hour)

	sessions, err := st.ExpiredBefore(cutoff)
	if err != nil {
		log.Printf("Error querying expired sessions: %v", err)
		return
	}
	if len(sessions) == 0 {
		return
	}

	log.Printf("Retention sweep: %d sessions expired before %s", len(sessions), cutoff.Format(time.RFC3339))
	for i := range sessions {
		sess := &sessions[i]
		if err := st.Delete(sess, cfg.StorageRoot); err != nil {
			log.Printf("Error deleting session %s: %v", sess.ID, err)
			continue
		}
		log.Printf("Deleted expired session %s (stage %s)", sess.ID, sess.Stage)
	}
}
