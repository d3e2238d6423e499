package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MonitoredURL represents a URL under monitoring
type MonitoredURL struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	URL       string    `json:"url" gorm:"not null"`
	Name      string    `json:"name" gorm:"not null"`
	Interval  int       `json:"interval" gorm:"column:interval;not null;default:60"` // seconds
	Active    bool      `json:"active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for MonitoredURL
func (MonitoredURL) TableName() string {
	return "monitored_urls"
}

// BeforeCreate assigns an id if none is set (GORM hook)
func (m *MonitoredURL) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
