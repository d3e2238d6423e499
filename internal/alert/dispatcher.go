// Package alert sends alert notifications on incident transitions.
// Delivery is fire-and-forget: failures are logged and never propagate
// back to the incident state machine.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/TauDuque/api-monitor/internal/config"
	"github.com/TauDuque/api-monitor/internal/models"
	"github.com/TauDuque/api-monitor/internal/store"
)

// Message carries the rendered alert content for every transport
type Message struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	URLName string `json:"urlName"`
	Target  string `json:"url"`
	Status  string `json:"status"` // "down" or "up"
	Time    string `json:"time"`
}

// Dispatcher looks up a URL's alert configuration and fires the
// configured notifications
type Dispatcher struct {
	store  *store.Store
	smtp   config.SMTPConfig
	client *http.Client
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(st *store.Store, smtp config.SMTPConfig) *Dispatcher {
	return &Dispatcher{
		store: st,
		smtp:  smtp,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyIncidentOpened fires down-alerts for a newly opened incident
func (d *Dispatcher) NotifyIncidentOpened(ctx context.Context, u *models.MonitoredURL, inc *models.Incident) {
	d.dispatch(ctx, u, &Message{
		Title:   fmt.Sprintf("%s is DOWN", u.Name),
		Body:    inc.Description,
		URLName: u.Name,
		Target:  u.URL,
		Status:  "down",
		Time:    inc.StartedAt.Format(time.RFC3339),
	}, true)
}

// NotifyIncidentResolved fires up-alerts for a resolved incident
func (d *Dispatcher) NotifyIncidentResolved(ctx context.Context, u *models.MonitoredURL, inc *models.Incident) {
	resolvedAt := time.Now().UTC()
	if inc.ResolvedAt != nil {
		resolvedAt = *inc.ResolvedAt
	}
	d.dispatch(ctx, u, &Message{
		Title:   fmt.Sprintf("%s is back UP", u.Name),
		Body:    fmt.Sprintf("down since %s", inc.StartedAt.Format(time.RFC3339)),
		URLName: u.Name,
		Target:  u.URL,
		Status:  "up",
		Time:    resolvedAt.Format(time.RFC3339),
	}, false)
}

func (d *Dispatcher) dispatch(ctx context.Context, u *models.MonitoredURL, msg *Message, down bool) {
	cfg, err := d.store.AlertConfigForURL(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("alert: failed to load config for %s: %v", u.ID, err)
		}
		return
	}

	if down && !cfg.NotifyOnDown {
		return
	}
	if !down && !cfg.NotifyOnUp {
		return
	}

	if cfg.EmailRecipient != "" && d.smtp.Host != "" {
		if err := d.sendEmail(cfg.EmailRecipient, msg); err != nil {
			log.Printf("alert: email to %s failed for %s: %v", cfg.EmailRecipient, u.Name, err)
		}
	}

	if cfg.WebhookURL != "" {
		if err := d.sendWebhook(ctx, cfg.WebhookURL, msg); err != nil {
			log.Printf("alert: webhook %s failed for %s: %v", cfg.WebhookURL, u.Name, err)
		}
	}
}
