package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := New(2 * time.Second)
	result := p.Check(context.Background(), server.URL)

	if !result.IsOnline {
		t.Error("expected isOnline = true for 200")
	}
	if result.Status == nil || *result.Status != 200 {
		t.Errorf("got status %v, want 200", result.Status)
	}
	if result.ResponseTime == nil || *result.ResponseTime < 0 {
		t.Errorf("got responseTime %v, want non-negative value", result.ResponseTime)
	}
	if result.CheckedAt.IsZero() {
		t.Error("expected CheckedAt to be set")
	}
}

func TestCheckStatusPolicy(t *testing.T) {
	tests := []struct {
		status int
		online bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{301, false}, // redirects count as offline
		{404, false},
		{500, false},
		{503, false},
	}

	for _, test := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(test.status)
		}))

		p := New(2 * time.Second)
		result := p.Check(context.Background(), server.URL)
		server.Close()

		if result.IsOnline != test.online {
			t.Errorf("status %d: isOnline = %v, want %v", test.status, result.IsOnline, test.online)
		}
		if result.Status == nil || *result.Status != test.status {
			t.Errorf("status %d: recorded status %v", test.status, result.Status)
		}
	}
}

func TestCheckConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	p := New(2 * time.Second)
	result := p.Check(context.Background(), target)

	if result.IsOnline {
		t.Error("expected isOnline = false for refused connection")
	}
	if result.Status != nil {
		t.Errorf("got status %v, want nil", *result.Status)
	}
	if result.ResponseTime != nil {
		t.Errorf("got responseTime %v, want nil", *result.ResponseTime)
	}
	if result.Summary == "" {
		t.Error("expected a failure summary")
	}
}

func TestCheckTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	p := New(50 * time.Millisecond)
	result := p.Check(context.Background(), server.URL)

	if result.IsOnline {
		t.Error("expected isOnline = false on timeout")
	}
	if result.Status != nil || result.ResponseTime != nil {
		t.Errorf("got status %v responseTime %v, want nil/nil", result.Status, result.ResponseTime)
	}
}

func TestCheckInvalidURL(t *testing.T) {
	p := New(time.Second)
	result := p.Check(context.Background(), "http://bad url with spaces")

	if result.IsOnline || result.Status != nil || result.ResponseTime != nil {
		t.Errorf("expected null failure result, got %+v", result)
	}
}

// Nullability invariant: status and responseTime are always nil
// together or set together.
func TestStatusResponseTimeNullTogether(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ok.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	p := New(time.Second)
	for _, target := range []string{ok.URL, deadURL} {
		result := p.Check(context.Background(), target)
		if (result.Status == nil) != (result.ResponseTime == nil) {
			t.Errorf("%s: status %v and responseTime %v must be nil together",
				target, result.Status, result.ResponseTime)
		}
	}
}
