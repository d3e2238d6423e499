package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertConfig holds the alert settings for one monitored URL.
// At most one config exists per URL; writes go through an upsert keyed
// by MonitoredURLID.
type AlertConfig struct {
	ID             string `json:"id" gorm:"primaryKey;type:uuid"`
	MonitoredURLID string `json:"monitoredUrlId" gorm:"column:monitored_url_id;not null;uniqueIndex"`
	EmailRecipient string `json:"emailRecipient"`
	WebhookURL     string `json:"webhookUrl"`
	NotifyOnDown   bool   `json:"notifyOnDown" gorm:"default:true"`
	NotifyOnUp     bool   `json:"notifyOnUp" gorm:"default:true"`
}

// TableName specifies the table name for AlertConfig
func (AlertConfig) TableName() string {
	return "alert_configs"
}

// BeforeCreate assigns an id if none is set (GORM hook)
func (a *AlertConfig) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
