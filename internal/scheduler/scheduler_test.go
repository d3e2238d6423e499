package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TauDuque/api-monitor/internal/incident"
	"github.com/TauDuque/api-monitor/internal/models"
	"github.com/TauDuque/api-monitor/internal/probe"
	"github.com/TauDuque/api-monitor/internal/store"
)

// fakeProber signals every completed check on a channel so tests can
// observe the cadence without sleeping on real intervals.
type fakeProber struct {
	delay    time.Duration
	online   atomic.Bool
	inFlight atomic.Int32
	overlaps atomic.Int32
	checked  chan time.Time
}

func newFakeProber() *fakeProber {
	p := &fakeProber{checked: make(chan time.Time, 64)}
	p.online.Store(true)
	return p
}

func (p *fakeProber) Check(ctx context.Context, target string) probe.Result {
	if p.inFlight.Add(1) > 1 {
		p.overlaps.Add(1)
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	p.inFlight.Add(-1)

	result := probe.Result{
		IsOnline:  p.online.Load(),
		CheckedAt: time.Now().UTC(),
	}
	if result.IsOnline {
		status, rt := 200, 5
		result.Status = &status
		result.ResponseTime = &rt
		result.Summary = "HTTP 200 - 5ms"
	} else {
		result.Summary = "no response: connection refused"
	}

	select {
	case p.checked <- result.CheckedAt:
	default:
	}
	return result
}

// fakeBroadcaster captures every pushed status update
type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []broadcastMsg
}

type broadcastMsg struct {
	msgType string
	payload models.URLStatusUpdate
}

func (b *fakeBroadcaster) Broadcast(msgType string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	update, _ := payload.(models.URLStatusUpdate)
	b.messages = append(b.messages, broadcastMsg{msgType: msgType, payload: update})
	return nil
}

func (b *fakeBroadcaster) updates() []broadcastMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastMsg, len(b.messages))
	copy(out, b.messages)
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	opened   int
	resolved int
}

func (n *fakeNotifier) NotifyIncidentOpened(ctx context.Context, u *models.MonitoredURL, inc *models.Incident) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened++
}

func (n *fakeNotifier) NotifyIncidentResolved(ctx context.Context, u *models.MonitoredURL, inc *models.Incident) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved++
}

func setupTest(t *testing.T, prober Prober) (*Scheduler, *store.Store, *fakeNotifier, *fakeBroadcaster) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.MonitoredURL{}, &models.URLCheck{}, &models.Incident{}, &models.AlertConfig{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	st := store.New(db)
	notifier := &fakeNotifier{}
	hub := &fakeBroadcaster{}

	s := New(st, prober, hub, incident.NewDetector(st), notifier)
	s.unit = 10 * time.Millisecond
	t.Cleanup(s.Stop)

	return s, st, notifier, hub
}

func createURL(t *testing.T, st *store.Store, interval int) *models.MonitoredURL {
	t.Helper()
	u := &models.MonitoredURL{Name: "svc", URL: "https://svc.test", Interval: interval, Active: true}
	if err := st.CreateURL(context.Background(), u); err != nil {
		t.Fatalf("CreateURL: %v", err)
	}
	return u
}

func waitCheck(t *testing.T, p *fakeProber, timeout time.Duration) time.Time {
	t.Helper()
	select {
	case at := <-p.checked:
		return at
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a check")
		return time.Time{}
	}
}

func TestFirstCheckImmediate(t *testing.T) {
	p := newFakeProber()
	s, st, _, _ := setupTest(t, p)
	u := createURL(t, st, 100)

	start := time.Now()
	s.StartURL(u)
	waitCheck(t, p, time.Second)

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("first check took %v, want immediate", elapsed)
	}
	if !s.Running(u.ID) {
		t.Error("worker should be running")
	}
}

func TestChecksRepeatOnCadence(t *testing.T) {
	p := newFakeProber()
	s, st, _, _ := setupTest(t, p)
	u := createURL(t, st, 3) // 30ms with the test unit

	s.StartURL(u)
	first := waitCheck(t, p, time.Second)
	second := waitCheck(t, p, time.Second)
	third := waitCheck(t, p, time.Second)

	if gap := second.Sub(first); gap < 25*time.Millisecond {
		t.Errorf("second check only %v after first, want >= interval", gap)
	}
	if gap := third.Sub(second); gap < 25*time.Millisecond {
		t.Errorf("third check only %v after second, want >= interval", gap)
	}
}

func TestChecksNeverOverlap(t *testing.T) {
	p := newFakeProber()
	p.delay = 40 * time.Millisecond // probe outlives the interval
	s, st, _, _ := setupTest(t, p)
	u := createURL(t, st, 1) // 10ms with the test unit

	s.StartURL(u)
	for i := 0; i < 4; i++ {
		waitCheck(t, p, time.Second)
	}
	s.StopURL(u.ID)

	if n := p.overlaps.Load(); n != 0 {
		t.Errorf("observed %d overlapping checks, want 0", n)
	}
}

func TestStopURLCancelsWorker(t *testing.T) {
	p := newFakeProber()
	s, st, _, _ := setupTest(t, p)
	u := createURL(t, st, 2)

	s.StartURL(u)
	waitCheck(t, p, time.Second)

	s.StopURL(u.ID)
	if s.Running(u.ID) {
		t.Fatal("worker should be gone after StopURL")
	}

	// Drain anything already in flight, then ensure silence
	drained := true
	for drained {
		select {
		case <-p.checked:
		case <-time.After(100 * time.Millisecond):
			drained = false
		}
	}
	select {
	case <-p.checked:
		t.Error("check fired after StopURL")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIntervalChangeIsNotImmediate(t *testing.T) {
	p := newFakeProber()
	s, st, _, _ := setupTest(t, p)
	u := createURL(t, st, 50) // 500ms with the test unit

	s.StartURL(u)
	waitCheck(t, p, time.Second)

	// Growing the interval must not fire a check now
	u.Interval = 80
	s.Apply(u)
	select {
	case <-p.checked:
		t.Error("interval change triggered an immediate check")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestIntervalShrinkNeverFiresEarly(t *testing.T) {
	p := newFakeProber()
	s, st, _, _ := setupTest(t, p)
	u := createURL(t, st, 30) // 300ms with the test unit

	s.StartURL(u)
	done := waitCheck(t, p, time.Second)

	// Shrink right after the first check. The already-armed fire at
	// lastDone+300ms stays put; the short interval applies afterwards.
	u.Interval = 1
	s.Apply(u)

	next := waitCheck(t, p, time.Second)
	if gap := next.Sub(done); gap < 250*time.Millisecond {
		t.Errorf("check fired %v after shrink, want no earlier than pending fire", gap)
	}
}

func TestApplyStartsAndStops(t *testing.T) {
	p := newFakeProber()
	s, st, _, _ := setupTest(t, p)
	u := createURL(t, st, 100)

	// Inactive URL: Apply must not start a worker
	u.Active = false
	s.Apply(u)
	if s.Running(u.ID) {
		t.Fatal("Apply started a worker for an inactive URL")
	}

	u.Active = true
	s.Apply(u)
	if !s.Running(u.ID) {
		t.Fatal("Apply did not start a worker for an active URL")
	}
	waitCheck(t, p, time.Second)

	u.Active = false
	s.Apply(u)
	if s.Running(u.ID) {
		t.Fatal("Apply did not stop the worker after deactivation")
	}
}

func TestStartLoadsActiveURLsOnly(t *testing.T) {
	p := newFakeProber()
	s, st, _, _ := setupTest(t, p)

	active := createURL(t, st, 100)
	inactive := &models.MonitoredURL{Name: "off", URL: "https://off.test", Interval: 100, Active: false}
	if err := st.CreateURL(context.Background(), inactive); err != nil {
		t.Fatalf("CreateURL: %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running(active.ID) {
		t.Error("active URL should have a worker")
	}
	if s.Running(inactive.ID) {
		t.Error("inactive URL should not have a worker")
	}
}

func TestCheckRecordedAndIncidentOpened(t *testing.T) {
	p := newFakeProber()
	p.online.Store(false)
	s, st, notifier, _ := setupTest(t, p)
	u := createURL(t, st, 100)

	s.StartURL(u)
	waitCheck(t, p, time.Second)

	// The check is durable before anything observes it; poll for the
	// row since runCheck records after signalling the prober.
	deadline := time.Now().Add(time.Second)
	for {
		check, err := st.LatestCheck(context.Background(), u.ID)
		if err == nil {
			if check.IsOnline {
				t.Error("recorded check should be offline")
			}
			if check.Status != nil || check.ResponseTime != nil {
				t.Error("unreachable probe should record null status and responseTime")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("check was never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Detector opened an incident and the dispatcher was told
	if _, err := st.OpenIncidentFor(context.Background(), u.ID); err != nil {
		t.Fatalf("expected open incident, got %v", err)
	}
	deadline = time.Now().Add(time.Second)
	for {
		notifier.mu.Lock()
		opened := notifier.opened
		notifier.mu.Unlock()
		if opened >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("dispatcher was never notified of the opened incident")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Every recorded check is pushed to the hub with the stored row's
// exact field values.
func TestBroadcastMatchesRecordedCheck(t *testing.T) {
	p := newFakeProber()
	s, st, _, hub := setupTest(t, p)
	u := createURL(t, st, 100)

	s.StartURL(u)
	waitCheck(t, p, time.Second)

	var check *models.URLCheck
	deadline := time.Now().Add(time.Second)
	for {
		var err error
		check, err = st.LatestCheck(context.Background(), u.ID)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("check was never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var messages []broadcastMsg
	deadline = time.Now().Add(time.Second)
	for {
		messages = hub.updates()
		if len(messages) >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no status update was broadcast for the recorded check")
		}
		time.Sleep(5 * time.Millisecond)
	}

	msg := messages[0]
	if msg.msgType != "urlStatusUpdate" {
		t.Errorf("got message type %q, want urlStatusUpdate", msg.msgType)
	}
	if msg.payload.MonitoredURLID != check.MonitoredURLID {
		t.Errorf("payload monitoredUrlId = %q, want %q", msg.payload.MonitoredURLID, check.MonitoredURLID)
	}
	if msg.payload.IsOnline != check.IsOnline {
		t.Errorf("payload isOnline = %v, want %v", msg.payload.IsOnline, check.IsOnline)
	}
	if !msg.payload.CheckedAt.Equal(check.CheckedAt) {
		t.Errorf("payload checkedAt = %v, want %v", msg.payload.CheckedAt, check.CheckedAt)
	}
	if check.Status == nil || msg.payload.Status == nil || *msg.payload.Status != *check.Status {
		t.Errorf("payload status = %v, want %v", msg.payload.Status, check.Status)
	}
	if check.ResponseTime == nil || msg.payload.ResponseTime == nil || *msg.payload.ResponseTime != *check.ResponseTime {
		t.Errorf("payload responseTime = %v, want %v", msg.payload.ResponseTime, check.ResponseTime)
	}
}
