package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/TauDuque/api-monitor/internal/models"
)

// UpsertAlertConfig creates or replaces the alert configuration for a
// URL. The upsert is keyed by monitored_url_id; an existing row keeps
// its id.
func (s *Store) UpsertAlertConfig(ctx context.Context, cfg *models.AlertConfig) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.AlertConfig
		err := tx.Where("monitored_url_id = ?", cfg.MonitoredURLID).First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(cfg).Error
			}
			return err
		}

		cfg.ID = existing.ID
		return tx.Model(&models.AlertConfig{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"email_recipient": cfg.EmailRecipient,
				"webhook_url":     cfg.WebhookURL,
				"notify_on_down":  cfg.NotifyOnDown,
				"notify_on_up":    cfg.NotifyOnUp,
			}).Error
	})
}

// GetAlertConfig returns an alert configuration by id
func (s *Store) GetAlertConfig(ctx context.Context, id string) (*models.AlertConfig, error) {
	var cfg models.AlertConfig
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &cfg, nil
}

// AlertConfigForURL returns the alert configuration for a URL, or
// ErrNotFound when the URL has none configured
func (s *Store) AlertConfigForURL(ctx context.Context, urlID string) (*models.AlertConfig, error) {
	var cfg models.AlertConfig
	err := s.db.WithContext(ctx).Where("monitored_url_id = ?", urlID).First(&cfg).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &cfg, nil
}

// ListAlertConfigs returns all alert configurations
func (s *Store) ListAlertConfigs(ctx context.Context) ([]models.AlertConfig, error) {
	var configs []models.AlertConfig
	err := s.db.WithContext(ctx).Find(&configs).Error
	return configs, err
}

// UpdateAlertConfig updates an alert configuration by id
func (s *Store) UpdateAlertConfig(ctx context.Context, cfg *models.AlertConfig) error {
	result := s.db.WithContext(ctx).Model(&models.AlertConfig{}).
		Where("id = ?", cfg.ID).
		Updates(map[string]interface{}{
			"email_recipient": cfg.EmailRecipient,
			"webhook_url":     cfg.WebhookURL,
			"notify_on_down":  cfg.NotifyOnDown,
			"notify_on_up":    cfg.NotifyOnUp,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAlertConfig removes an alert configuration by id
func (s *Store) DeleteAlertConfig(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AlertConfig{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
