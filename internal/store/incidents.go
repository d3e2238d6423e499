package store

import (
	"context"
	"time"

	"github.com/TauDuque/api-monitor/internal/models"
)

// OpenIncident inserts a new incident with a null resolved_at
func (s *Store) OpenIncident(ctx context.Context, inc *models.Incident) error {
	return s.db.WithContext(ctx).Create(inc).Error
}

// ResolveIncident sets resolved_at on an open incident
func (s *Store) ResolveIncident(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.Incident{}).
		Where("id = ? AND resolved_at IS NULL", id).
		Update("resolved_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenIncidentFor returns the currently open incident for a URL, or
// ErrNotFound when the URL is up
func (s *Store) OpenIncidentFor(ctx context.Context, urlID string) (*models.Incident, error) {
	var inc models.Incident
	err := s.db.WithContext(ctx).
		Where("monitored_url_id = ? AND resolved_at IS NULL", urlID).
		First(&inc).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &inc, nil
}

// IncidentsFor returns all incidents for a URL ordered by started_at
// descending, the open one first if present
func (s *Store) IncidentsFor(ctx context.Context, urlID string) ([]models.Incident, error) {
	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Where("monitored_url_id = ?", urlID).
		Order("started_at DESC").
		Find(&incidents).Error
	return incidents, err
}

// AllIncidents returns incidents across all URLs, newest first
func (s *Store) AllIncidents(ctx context.Context) ([]models.Incident, error) {
	var incidents []models.Incident
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Find(&incidents).Error
	return incidents, err
}

// PruneResolvedIncidentsBefore deletes resolved incidents that ended
// before cutoff. Open incidents are never pruned.
func (s *Store) PruneResolvedIncidentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("resolved_at IS NOT NULL AND resolved_at < ?", cutoff).
		Delete(&models.Incident{})
	return result.RowsAffected, result.Error
}
