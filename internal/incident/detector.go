// Package incident derives downtime incidents from check results.
package incident

import (
	"context"
	"errors"
	"fmt"

	"github.com/TauDuque/api-monitor/internal/models"
	"github.com/TauDuque/api-monitor/internal/store"
)

// Transition describes what a processed check did to the incident state
// of its URL.
type Transition int

const (
	// TransitionNone means the check confirmed the current state.
	TransitionNone Transition = iota
	// TransitionOpened means the check opened a new incident.
	TransitionOpened
	// TransitionResolved means the check resolved the open incident.
	TransitionResolved
)

// Detector runs the per-URL UP/DOWN state machine. State is derived
// from the open-incident row, so it survives process restarts. Checks
// for one URL must be fed in timestamp order; the scheduler guarantees
// this by serializing checks per URL.
type Detector struct {
	store *store.Store
}

// NewDetector creates a new Detector
func NewDetector(st *store.Store) *Detector {
	return &Detector{store: st}
}

// Process applies one check result to the state machine of its URL.
//
// An offline check while no incident is open creates one; an online
// check while an incident is open resolves it; a check matching the
// current state is a no-op. A URL with no prior checks behaves as UP,
// so an offline first check opens an incident immediately.
func (d *Detector) Process(ctx context.Context, check *models.URLCheck, summary string) (Transition, *models.Incident, error) {
	open, err := d.store.OpenIncidentFor(ctx, check.MonitoredURLID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return TransitionNone, nil, fmt.Errorf("failed to load open incident: %w", err)
	}

	down := open != nil

	switch {
	case !check.IsOnline && !down:
		inc := &models.Incident{
			MonitoredURLID: check.MonitoredURLID,
			Type:           models.IncidentTypeDown,
			Description:    summary,
			StartedAt:      check.CheckedAt,
		}
		if err := d.store.OpenIncident(ctx, inc); err != nil {
			return TransitionNone, nil, fmt.Errorf("failed to open incident: %w", err)
		}
		return TransitionOpened, inc, nil

	case check.IsOnline && down:
		if err := d.store.ResolveIncident(ctx, open.ID, check.CheckedAt); err != nil {
			return TransitionNone, nil, fmt.Errorf("failed to resolve incident: %w", err)
		}
		resolvedAt := check.CheckedAt
		open.ResolvedAt = &resolvedAt
		return TransitionResolved, open, nil
	}

	// Repeated same-status check
	return TransitionNone, nil, nil
}
