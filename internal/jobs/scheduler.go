// Package jobs runs background maintenance on the check history.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TauDuque/api-monitor/internal/store"
)

// resolvedIncidentRetention is how long resolved incidents are kept.
const resolvedIncidentRetention = 365 * 24 * time.Hour

// Scheduler manages background jobs
type Scheduler struct {
	cron               *cron.Cron
	store              *store.Store
	checkRetentionDays int
}

// NewScheduler creates a new job scheduler
func NewScheduler(st *store.Store, checkRetentionDays int) *Scheduler {
	return &Scheduler{
		cron:               cron.New(),
		store:              st,
		checkRetentionDays: checkRetentionDays,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Prune old check results nightly at 3:14 AM
	if _, err := s.cron.AddFunc("14 3 * * *", func() {
		log.Println("Running check retention job...")
		s.pruneOldChecks()
	}); err != nil {
		log.Fatalf("Failed to schedule check retention job: %v", err)
	}

	// Prune old resolved incidents nightly at 3:30 AM
	if _, err := s.cron.AddFunc("30 3 * * *", func() {
		log.Println("Running incident retention job...")
		s.pruneOldIncidents()
	}); err != nil {
		log.Fatalf("Failed to schedule incident retention job: %v", err)
	}

	s.cron.Start()
	log.Println("Job scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Job scheduler stopped")
}

// pruneOldChecks removes check results past the retention window
func (s *Scheduler) pruneOldChecks() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.checkRetentionDays)

	n, err := s.store.PruneChecksBefore(context.Background(), cutoff)
	if err != nil {
		log.Printf("Failed to prune old checks: %v", err)
		return
	}

	log.Printf("Pruned %d old checks", n)
}

// pruneOldIncidents removes resolved incidents past retention. Open
// incidents are kept regardless of age.
func (s *Scheduler) pruneOldIncidents() {
	cutoff := time.Now().UTC().Add(-resolvedIncidentRetention)

	n, err := s.store.PruneResolvedIncidentsBefore(context.Background(), cutoff)
	if err != nil {
		log.Printf("Failed to prune old incidents: %v", err)
		return
	}

	log.Printf("Pruned %d old incidents", n)
}
