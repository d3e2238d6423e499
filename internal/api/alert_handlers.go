package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/TauDuque/api-monitor/internal/models"
	"github.com/TauDuque/api-monitor/internal/store"
)

// alertConfigRequest is the POST/PUT body for alert configurations
type alertConfigRequest struct {
	MonitoredURLID string `json:"monitoredUrlId"`
	EmailRecipient string `json:"emailRecipient"`
	WebhookURL     string `json:"webhookUrl"`
	NotifyOnDown   bool   `json:"notifyOnDown"`
	NotifyOnUp     bool   `json:"notifyOnUp"`
}

func (req *alertConfigRequest) validate() error {
	if req.WebhookURL != "" {
		parsed, err := url.Parse(req.WebhookURL)
		if err != nil || !parsed.IsAbs() || parsed.Host == "" ||
			(parsed.Scheme != "http" && parsed.Scheme != "https") {
			return errors.New("webhookUrl must be a well-formed absolute http(s) URL")
		}
	}
	return nil
}

// HandleListAlertConfigs returns all alert configurations
func HandleListAlertConfigs(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configs, err := st.ListAlertConfigs(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch alert configurations")
			return
		}

		if configs == nil {
			configs = []models.AlertConfig{}
		}
		respondJSON(w, http.StatusOK, configs)
	}
}

// HandleUpsertAlertConfig creates or replaces the alert configuration
// for a URL. The upsert is keyed by monitoredUrlId.
func HandleUpsertAlertConfig(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req alertConfigRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.MonitoredURLID == "" {
			respondError(w, http.StatusBadRequest, "monitoredUrlId is required")
			return
		}
		if err := req.validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		// The config must reference an existing URL
		if _, err := st.GetURL(r.Context(), req.MonitoredURLID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Monitored URL not found")
			} else {
				respondError(w, http.StatusInternalServerError, "Failed to fetch monitored URL")
			}
			return
		}

		cfg := &models.AlertConfig{
			MonitoredURLID: req.MonitoredURLID,
			EmailRecipient: req.EmailRecipient,
			WebhookURL:     req.WebhookURL,
			NotifyOnDown:   req.NotifyOnDown,
			NotifyOnUp:     req.NotifyOnUp,
		}

		if err := st.UpsertAlertConfig(r.Context(), cfg); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to save alert configuration")
			return
		}

		respondJSON(w, http.StatusCreated, cfg)
	}
}

// HandleGetAlertConfigByURL returns the alert configuration for a URL.
// A 404 here means "unconfigured", not a failure.
func HandleGetAlertConfigByURL(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urlID := chi.URLParam(r, "urlId")

		cfg, err := st.AlertConfigForURL(r.Context(), urlID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "No alert configuration for this URL")
			} else {
				respondError(w, http.StatusInternalServerError, "Failed to fetch alert configuration")
			}
			return
		}

		respondJSON(w, http.StatusOK, cfg)
	}
}

// HandleUpdateAlertConfig updates an alert configuration by id
func HandleUpdateAlertConfig(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req alertConfigRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		existing, err := st.GetAlertConfig(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Alert configuration not found")
			} else {
				respondError(w, http.StatusInternalServerError, "Failed to fetch alert configuration")
			}
			return
		}

		existing.EmailRecipient = req.EmailRecipient
		existing.WebhookURL = req.WebhookURL
		existing.NotifyOnDown = req.NotifyOnDown
		existing.NotifyOnUp = req.NotifyOnUp

		if err := st.UpdateAlertConfig(r.Context(), existing); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update alert configuration")
			return
		}

		respondJSON(w, http.StatusOK, existing)
	}
}

// HandleDeleteAlertConfig deletes an alert configuration by id
func HandleDeleteAlertConfig(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := st.DeleteAlertConfig(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Alert configuration not found")
			} else {
				respondError(w, http.StatusInternalServerError, "Failed to delete alert configuration")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
