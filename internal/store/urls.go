package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/TauDuque/api-monitor/internal/models"
)

// CreateURL inserts a new monitored URL
func (s *Store) CreateURL(ctx context.Context, u *models.MonitoredURL) error {
	return s.db.WithContext(ctx).Create(u).Error
}

// GetURL returns a monitored URL by id
func (s *Store) GetURL(ctx context.Context, id string) (*models.MonitoredURL, error) {
	var u models.MonitoredURL
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

// ListURLs returns all monitored URLs, newest first
func (s *Store) ListURLs(ctx context.Context) ([]models.MonitoredURL, error) {
	var urls []models.MonitoredURL
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&urls).Error
	return urls, err
}

// ListActiveURLs returns all monitored URLs with active = true
func (s *Store) ListActiveURLs(ctx context.Context) ([]models.MonitoredURL, error) {
	var urls []models.MonitoredURL
	err := s.db.WithContext(ctx).Where("active = ?", true).Find(&urls).Error
	return urls, err
}

// UpdateURL updates name, url, interval and active flag of a monitored URL
func (s *Store) UpdateURL(ctx context.Context, u *models.MonitoredURL) error {
	result := s.db.WithContext(ctx).Model(&models.MonitoredURL{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"name":       u.Name,
			"url":        u.URL,
			"interval":   u.Interval,
			"active":     u.Active,
			"updated_at": u.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteURL removes a monitored URL together with its checks, incidents
// and alert configuration. The cascade is an explicit transaction so it
// behaves the same on every backend regardless of FK enforcement.
func (s *Store) DeleteURL(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("monitored_url_id = ?", id).Delete(&models.URLCheck{}).Error; err != nil {
			return fmt.Errorf("failed to delete checks: %w", err)
		}
		if err := tx.Where("monitored_url_id = ?", id).Delete(&models.Incident{}).Error; err != nil {
			return fmt.Errorf("failed to delete incidents: %w", err)
		}
		if err := tx.Where("monitored_url_id = ?", id).Delete(&models.AlertConfig{}).Error; err != nil {
			return fmt.Errorf("failed to delete alert config: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.MonitoredURL{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
