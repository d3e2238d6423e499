// Package probe performs single HTTP checks against monitored URLs.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a probe when no timeout is configured.
const DefaultTimeout = 5000 * time.Millisecond

// Result is the normalized outcome of one probe.
//
// Status and ResponseTime are nil together when no HTTP response was
// received (timeout, DNS failure, connection refused). IsOnline is true
// iff a response arrived with a 2xx status; everything else, including
// redirect and client-error statuses, counts as offline. This boolean
// is the single authority on online state for the whole pipeline.
type Result struct {
	Status       *int
	ResponseTime *int // milliseconds
	IsOnline     bool
	CheckedAt    time.Time
	Summary      string
}

// Prober issues HTTP probes with a fixed timeout
type Prober struct {
	client *http.Client
}

// New creates a Prober. A non-positive timeout falls back to
// DefaultTimeout.
func New(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Check performs one probe against target. It never returns an error:
// any transport-level failure is folded into the null-status Result.
func (p *Prober) Check(ctx context.Context, target string) Result {
	result := Result{
		CheckedAt: time.Now().UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Summary = fmt.Sprintf("invalid request: %v", err)
		return result
	}
	req.Header.Set("User-Agent", "api-monitor/1.0")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		result.Summary = fmt.Sprintf("no response: %v", err)
		return result
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	elapsed := int(time.Since(start).Milliseconds())
	status := resp.StatusCode

	result.Status = &status
	result.ResponseTime = &elapsed
	result.IsOnline = status >= 200 && status < 300
	result.Summary = fmt.Sprintf("HTTP %d - %dms", status, elapsed)

	return result
}
