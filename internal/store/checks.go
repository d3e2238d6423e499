package store

import (
	"context"
	"time"

	"github.com/TauDuque/api-monitor/internal/models"
)

// DefaultHistoryLimit caps history queries when the caller does not
// specify one.
const DefaultHistoryLimit = 200

// RecordCheck appends a check result. Records are never updated in
// place; the insert must succeed before the result may be observed by
// the incident detector or pushed to clients.
func (s *Store) RecordCheck(ctx context.Context, c *models.URLCheck) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// CheckHistory returns check results for a URL within [start, end],
// most recent first. A zero start or end leaves that bound open.
func (s *Store) CheckHistory(ctx context.Context, urlID string, start, end time.Time, limit, skip int) ([]models.URLCheck, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := s.db.WithContext(ctx).Where("monitored_url_id = ?", urlID)
	if !start.IsZero() {
		query = query.Where("checked_at >= ?", start)
	}
	if !end.IsZero() {
		query = query.Where("checked_at <= ?", end)
	}

	var checks []models.URLCheck
	err := query.Order("checked_at DESC").
		Limit(limit).
		Offset(skip).
		Find(&checks).Error
	return checks, err
}

// ChecksInRange returns check results for a URL within [start, end] in
// ascending timestamp order. Used by the uptime aggregator.
func (s *Store) ChecksInRange(ctx context.Context, urlID string, start, end time.Time) ([]models.URLCheck, error) {
	var checks []models.URLCheck
	err := s.db.WithContext(ctx).
		Where("monitored_url_id = ? AND checked_at >= ? AND checked_at <= ?", urlID, start, end).
		Order("checked_at ASC").
		Find(&checks).Error
	return checks, err
}

// LatestCheck returns the most recent check result for a URL
func (s *Store) LatestCheck(ctx context.Context, urlID string) (*models.URLCheck, error) {
	var c models.URLCheck
	err := s.db.WithContext(ctx).
		Where("monitored_url_id = ?", urlID).
		Order("checked_at DESC").
		First(&c).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

// LatestChecks returns the most recent check result per monitored URL
func (s *Store) LatestChecks(ctx context.Context) ([]models.URLCheck, error) {
	var checks []models.URLCheck
	err := s.db.WithContext(ctx).Raw(`
		SELECT c.* FROM url_checks c
		INNER JOIN (
			SELECT monitored_url_id, MAX(checked_at) AS last_checked
			FROM url_checks
			GROUP BY monitored_url_id
		) latest ON c.monitored_url_id = latest.monitored_url_id
		       AND c.checked_at = latest.last_checked
	`).Scan(&checks).Error
	return checks, err
}

// PruneChecksBefore deletes check results older than cutoff and returns
// the number of deleted rows
func (s *Store) PruneChecksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("checked_at < ?", cutoff).
		Delete(&models.URLCheck{})
	return result.RowsAffected, result.Error
}
