// Package uptime aggregates check results into uptime-percentage time
// buckets.
package uptime

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/TauDuque/api-monitor/internal/store"
)

// Period selects the bucket width for uptime aggregation
type Period string

const (
	PeriodHour  Period = "hour"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period query parameter
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", fmt.Errorf("invalid period %q (want hour, day, week or month)", s)
}

// Metric is the uptime tuple for one bucket. Buckets with zero checks
// are never emitted: "no data" is distinct from "100%% downtime".
type Metric struct {
	PeriodStart      time.Time `json:"period_start"`
	TotalChecks      int       `json:"total_checks"`
	OnlineChecks     int       `json:"online_checks"`
	UptimePercentage int       `json:"uptime_percentage"`
}

// Calculator computes uptime metrics from recorded checks
type Calculator struct {
	store *store.Store
}

// NewCalculator creates a new Calculator
func NewCalculator(st *store.Store) *Calculator {
	return &Calculator{store: st}
}

// Uptime buckets all checks for a URL in [start, end] by the given
// period and returns one metric per non-empty bucket, ordered by
// period start ascending.
//
// Bucketing happens in Go rather than SQL so the math is identical on
// every database backend.
func (c *Calculator) Uptime(ctx context.Context, urlID string, period Period, start, end time.Time) ([]Metric, error) {
	checks, err := c.store.ChecksInRange(ctx, urlID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load checks: %w", err)
	}

	buckets := make(map[time.Time]*Metric)
	for _, check := range checks {
		key := BucketStart(period, check.CheckedAt)
		m, ok := buckets[key]
		if !ok {
			m = &Metric{PeriodStart: key}
			buckets[key] = m
		}
		m.TotalChecks++
		if check.IsOnline {
			m.OnlineChecks++
		}
	}

	metrics := make([]Metric, 0, len(buckets))
	for _, m := range buckets {
		m.UptimePercentage = int(math.Round(float64(m.OnlineChecks) / float64(m.TotalChecks) * 100))
		metrics = append(metrics, *m)
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].PeriodStart.Before(metrics[j].PeriodStart)
	})

	return metrics, nil
}

// BucketStart truncates a timestamp to the start of its bucket in UTC.
// Week buckets start Monday 00:00, month buckets on the 1st.
func BucketStart(period Period, t time.Time) time.Time {
	t = t.UTC()
	switch period {
	case PeriodHour:
		return t.Truncate(time.Hour)
	case PeriodDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// DefaultRange returns a sensible [start, end] window for a period when
// the caller does not supply one.
func DefaultRange(period Period, now time.Time) (time.Time, time.Time) {
	switch period {
	case PeriodHour:
		return now.Add(-24 * time.Hour), now
	case PeriodDay:
		return now.AddDate(0, 0, -30), now
	case PeriodWeek:
		return now.AddDate(0, 0, -12*7), now
	case PeriodMonth:
		return now.AddDate(-1, 0, 0), now
	}
	return now.Add(-24 * time.Hour), now
}
