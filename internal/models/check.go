package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// URLCheck represents a single probe result. Records are append-only:
// once written they are never updated.
//
// Status and ResponseTime are nil together when the probe got no HTTP
// response at all (timeout, DNS failure, connection refused).
type URLCheck struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	MonitoredURLID string    `json:"monitoredUrlId" gorm:"column:monitored_url_id;not null;index:idx_check_url_time"`
	Status         *int      `json:"status"`
	ResponseTime   *int      `json:"responseTime"` // milliseconds
	IsOnline       bool      `json:"isOnline" gorm:"not null"`
	CheckedAt      time.Time `json:"checkedAt" gorm:"not null;index:idx_check_url_time,sort:desc"`
}

// TableName specifies the table name for URLCheck
func (URLCheck) TableName() string {
	return "url_checks"
}

// BeforeCreate assigns an id if none is set (GORM hook)
func (c *URLCheck) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// URLStatusUpdate is the payload pushed to websocket clients whenever
// a check is recorded. Field names match the recorded URLCheck.
type URLStatusUpdate struct {
	MonitoredURLID string    `json:"monitoredUrlId"`
	Status         *int      `json:"status"`
	ResponseTime   *int      `json:"responseTime"`
	IsOnline       bool      `json:"isOnline"`
	CheckedAt      time.Time `json:"checkedAt"`
}
