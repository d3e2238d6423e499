package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TauDuque/api-monitor/internal/models"
	"github.com/TauDuque/api-monitor/internal/store"
)

// MinInterval is the smallest accepted poll interval in seconds
const MinInterval = 10

// URLScheduler is the scheduler surface the handlers drive
type URLScheduler interface {
	StartURL(u *models.MonitoredURL)
	StopURL(urlID string)
	Apply(u *models.MonitoredURL)
}

// urlRequest is the POST/PUT body for monitored URLs
type urlRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Interval int    `json:"interval"`
	Active   *bool  `json:"active,omitempty"`
}

func (req *urlRequest) validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("url must be a well-formed absolute http(s) URL")
	}
	if req.Interval < MinInterval {
		return fmt.Errorf("interval must be at least %d seconds", MinInterval)
	}
	return nil
}

// URLWithStatus includes a monitored URL together with its most recent
// check, matching what the dashboard list view renders.
type URLWithStatus struct {
	models.MonitoredURL
	LastCheckStatus       *int       `json:"lastCheckStatus,omitempty"`
	LastCheckResponseTime *int       `json:"lastCheckResponseTime,omitempty"`
	LastCheckIsOnline     *bool      `json:"lastCheckIsOnline,omitempty"`
	LastCheckedAt         *time.Time `json:"lastCheckedAt,omitempty"`
}

// HandleListURLs returns all monitored URLs with their latest check
func HandleListURLs(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urls, err := st.ListURLs(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch monitored URLs")
			return
		}

		latest, err := st.LatestChecks(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch latest checks")
			return
		}

		latestByURL := make(map[string]models.URLCheck, len(latest))
		for _, c := range latest {
			latestByURL[c.MonitoredURLID] = c
		}

		result := make([]URLWithStatus, len(urls))
		for i, u := range urls {
			result[i] = URLWithStatus{MonitoredURL: u}
			if c, ok := latestByURL[u.ID]; ok {
				online := c.IsOnline
				checkedAt := c.CheckedAt
				result[i].LastCheckStatus = c.Status
				result[i].LastCheckResponseTime = c.ResponseTime
				result[i].LastCheckIsOnline = &online
				result[i].LastCheckedAt = &checkedAt
			}
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// HandleGetURL returns a single monitored URL by id
func HandleGetURL(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		u, err := st.GetURL(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Monitored URL not found")
			} else {
				respondError(w, http.StatusInternalServerError, "Failed to fetch monitored URL")
			}
			return
		}

		respondJSON(w, http.StatusOK, u)
	}
}

// HandleCreateURL creates a monitored URL and starts checking it
func HandleCreateURL(st *store.Store, sched URLScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Interval == 0 {
			req.Interval = 60
		}

		if err := req.validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		now := time.Now().UTC()
		u := &models.MonitoredURL{
			Name:      req.Name,
			URL:       req.URL,
			Interval:  req.Interval,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := st.CreateURL(r.Context(), u); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to create monitored URL")
			return
		}

		if sched != nil {
			sched.StartURL(u)
		}

		respondJSON(w, http.StatusCreated, u)
	}
}

// HandleUpdateURL updates a monitored URL and reconciles its schedule
func HandleUpdateURL(st *store.Store, sched URLScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req urlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		existing, err := st.GetURL(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Monitored URL not found")
			} else {
				respondError(w, http.StatusInternalServerError, "Failed to fetch monitored URL")
			}
			return
		}

		if req.Interval == 0 {
			req.Interval = existing.Interval
		}
		if err := req.validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		existing.Name = req.Name
		existing.URL = req.URL
		existing.Interval = req.Interval
		if req.Active != nil {
			existing.Active = *req.Active
		}
		existing.UpdatedAt = time.Now().UTC()

		if err := st.UpdateURL(r.Context(), existing); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update monitored URL")
			return
		}

		if sched != nil {
			sched.Apply(existing)
		}

		respondJSON(w, http.StatusOK, existing)
	}
}

// HandleDeleteURL deletes a monitored URL, cascading to its checks,
// incidents and alert configuration, and stops its schedule
func HandleDeleteURL(st *store.Store, sched URLScheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if sched != nil {
			sched.StopURL(id)
		}

		if err := st.DeleteURL(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				respondError(w, http.StatusNotFound, "Monitored URL not found")
			} else {
				respondError(w, http.StatusInternalServerError, "Failed to delete monitored URL")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
