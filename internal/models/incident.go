package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IncidentTypeDown marks a downtime incident. Recovery is modeled by
// resolving the DOWN incident, not by a separate incident row.
const IncidentTypeDown = "DOWN"

// Incident represents a downtime period for a monitored URL.
// ResolvedAt is nil while the incident is still open; at most one open
// incident exists per URL at any time.
type Incident struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid"`
	MonitoredURLID string     `json:"monitoredUrlId" gorm:"column:monitored_url_id;not null;index:idx_incident_url_started"`
	Type           string     `json:"type" gorm:"not null;default:'DOWN'"`
	Description    string     `json:"description"`
	StartedAt      time.Time  `json:"startedAt" gorm:"not null;index:idx_incident_url_started,sort:desc"`
	ResolvedAt     *time.Time `json:"resolvedAt"`
}

// TableName specifies the table name for Incident
func (Incident) TableName() string {
	return "incidents"
}

// BeforeCreate assigns an id if none is set (GORM hook)
func (i *Incident) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
