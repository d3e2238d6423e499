package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TauDuque/api-monitor/internal/models"
	"github.com/TauDuque/api-monitor/internal/store"
	"github.com/TauDuque/api-monitor/internal/uptime"
)

const maxHistoryTake = 5000

// requireURL loads the referenced monitored URL or writes the 404.
// It distinguishes "unknown URL" from "known URL with no data yet".
func requireURL(w http.ResponseWriter, r *http.Request, st *store.Store) (*models.MonitoredURL, bool) {
	id := chi.URLParam(r, "urlId")
	u, err := st.GetURL(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Monitored URL not found")
		} else {
			respondError(w, http.StatusInternalServerError, "Failed to fetch monitored URL")
		}
		return nil, false
	}
	return u, true
}

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be an ISO-8601 timestamp")
	}
	return t, nil
}

// HandleCheckHistory returns the windowed check history for a URL,
// most recent first
func HandleCheckHistory(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requireURL(w, r, st)
		if !ok {
			return
		}

		start, err := parseDateParam(r, "startDate")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		end, err := parseDateParam(r, "endDate")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		take := store.DefaultHistoryLimit
		if raw := r.URL.Query().Get("take"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxHistoryTake {
				respondError(w, http.StatusBadRequest,
					fmt.Sprintf("take must be an integer between 1 and %d", maxHistoryTake))
				return
			}
			take = n
		}

		skip := 0
		if raw := r.URL.Query().Get("skip"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondError(w, http.StatusBadRequest, "skip must be a non-negative integer")
				return
			}
			skip = n
		}

		checks, err := st.CheckHistory(r.Context(), u.ID, start, end, take, skip)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch check history")
			return
		}

		if checks == nil {
			checks = []models.URLCheck{}
		}
		respondJSON(w, http.StatusOK, checks)
	}
}

// HandleLatestChecks returns the most recent check per monitored URL
func HandleLatestChecks(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks, err := st.LatestChecks(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch latest checks")
			return
		}

		if checks == nil {
			checks = []models.URLCheck{}
		}
		respondJSON(w, http.StatusOK, checks)
	}
}

// HandleUptime returns uptime metrics bucketed by the requested period
func HandleUptime(st *store.Store, calc *uptime.Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requireURL(w, r, st)
		if !ok {
			return
		}

		periodParam := r.URL.Query().Get("period")
		if periodParam == "" {
			periodParam = string(uptime.PeriodHour)
		}
		period, err := uptime.ParsePeriod(periodParam)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		start, err := parseDateParam(r, "startDate")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		end, err := parseDateParam(r, "endDate")
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		if start.IsZero() || end.IsZero() {
			defStart, defEnd := uptime.DefaultRange(period, time.Now().UTC())
			if start.IsZero() {
				start = defStart
			}
			if end.IsZero() {
				end = defEnd
			}
		}

		metrics, err := calc.Uptime(r.Context(), u.ID, period, start, end)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to calculate uptime")
			return
		}

		if metrics == nil {
			metrics = []uptime.Metric{}
		}
		respondJSON(w, http.StatusOK, metrics)
	}
}

// HandleIncidents returns all incidents for a URL, newest first
func HandleIncidents(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := requireURL(w, r, st)
		if !ok {
			return
		}

		incidents, err := st.IncidentsFor(r.Context(), u.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch incidents")
			return
		}

		if incidents == nil {
			incidents = []models.Incident{}
		}
		respondJSON(w, http.StatusOK, incidents)
	}
}

// HandleAllIncidents returns incidents across all monitored URLs
func HandleAllIncidents(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		incidents, err := st.AllIncidents(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to fetch incidents")
			return
		}

		if incidents == nil {
			incidents = []models.Incident{}
		}
		respondJSON(w, http.StatusOK, incidents)
	}
}
