// Package scheduler drives the check pipeline: it keeps one worker per
// active monitored URL, probes on cadence, records results, pushes
// status updates and feeds the incident detector.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/TauDuque/api-monitor/internal/incident"
	"github.com/TauDuque/api-monitor/internal/models"
	"github.com/TauDuque/api-monitor/internal/probe"
	"github.com/TauDuque/api-monitor/internal/store"
)

// Prober performs one check against a target URL
type Prober interface {
	Check(ctx context.Context, target string) probe.Result
}

// Broadcaster pushes a status update to connected clients
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Notifier fires alerts for incident transitions
type Notifier interface {
	NotifyIncidentOpened(ctx context.Context, u *models.MonitoredURL, inc *models.Incident)
	NotifyIncidentResolved(ctx context.Context, u *models.MonitoredURL, inc *models.Incident)
}

// Scheduler manages the per-URL check workers
type Scheduler struct {
	store      *store.Store
	prober     Prober
	hub        Broadcaster
	detector   *incident.Detector
	dispatcher Notifier

	mu      sync.Mutex
	workers map[string]*worker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// unit scales MonitoredURL.Interval into a duration. Tests shrink
	// it; production always runs with seconds.
	unit time.Duration
}

// New creates a new Scheduler. hub and dispatcher may be nil.
func New(st *store.Store, prober Prober, hub Broadcaster, detector *incident.Detector, dispatcher Notifier) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:      st,
		prober:     prober,
		hub:        hub,
		detector:   detector,
		dispatcher: dispatcher,
		workers:    make(map[string]*worker),
		ctx:        ctx,
		cancel:     cancel,
		unit:       time.Second,
	}
}

// Start loads all active URLs and begins monitoring them. Missed
// intervals from before a restart are not back-filled: every URL
// simply probes immediately and continues on cadence.
func (s *Scheduler) Start() error {
	urls, err := s.store.ListActiveURLs(s.ctx)
	if err != nil {
		return err
	}

	log.Printf("Starting checks for %d active URLs", len(urls))

	for i := range urls {
		s.StartURL(&urls[i])
	}

	return nil
}

// StartURL arms a worker for a URL. The first check fires immediately,
// subsequent ones no earlier than interval after the previous check
// completed. An existing worker for the same URL is replaced.
func (s *Scheduler) StartURL(u *models.MonitoredURL) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, exists := s.workers[u.ID]; exists {
		w.shutdown()
		delete(s.workers, u.ID)
	}

	w := &worker{
		urlID:     u.ID,
		interval:  time.Duration(u.Interval) * s.unit,
		updates:   make(chan time.Duration, 1),
		stop:      make(chan struct{}),
		scheduler: s,
	}
	s.workers[u.ID] = w

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		w.run(s.ctx)
	}()

	log.Printf("Started monitoring %s (ID: %s, interval: %ds)", u.Name, u.ID, u.Interval)
}

// StopURL cancels the worker for a URL. An in-flight probe finishes
// but its result is discarded.
func (s *Scheduler) StopURL(urlID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, exists := s.workers[urlID]; exists {
		w.shutdown()
		delete(s.workers, urlID)
		log.Printf("Stopped monitoring URL ID: %s", urlID)
	}
}

// Apply reconciles the running state with an updated URL: it starts,
// stops or reschedules the worker as needed. An interval change never
// triggers an immediate check and never pulls an already-armed timer
// earlier.
func (s *Scheduler) Apply(u *models.MonitoredURL) {
	s.mu.Lock()
	w, running := s.workers[u.ID]
	s.mu.Unlock()

	switch {
	case u.Active && !running:
		s.StartURL(u)
	case !u.Active && running:
		s.StopURL(u.ID)
	case u.Active && running:
		w.reschedule(time.Duration(u.Interval) * s.unit)
		log.Printf("Rescheduled %s (ID: %s, interval: %ds)", u.Name, u.ID, u.Interval)
	}
}

// Running reports whether a worker exists for the given URL id
func (s *Scheduler) Running(urlID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[urlID]
	return ok
}

// Stop cancels all workers and waits for in-flight checks to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, w := range s.workers {
		w.shutdown()
		delete(s.workers, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Println("All URL workers stopped")
}

// worker owns the timer and check loop for one URL. Checks for the
// same URL never overlap: the next timer is armed only after the
// previous check has completed.
type worker struct {
	urlID     string
	interval  time.Duration
	updates   chan time.Duration
	stop      chan struct{}
	scheduler *Scheduler

	stopOnce sync.Once
}

func (w *worker) shutdown() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// reschedule hands the worker a new interval. The buffered channel is
// drained first so a rapid series of updates keeps only the latest.
func (w *worker) reschedule(d time.Duration) {
	for {
		select {
		case w.updates <- d:
			return
		default:
			select {
			case <-w.updates:
			default:
			}
		}
	}
}

func (w *worker) run(ctx context.Context) {
	// First check fires immediately
	timer := time.NewTimer(0)
	defer timer.Stop()

	lastDone := time.Now()
	pendingFire := lastDone

	for {
		select {
		case <-timer.C:
			w.runCheck(ctx)
			lastDone = time.Now()
			pendingFire = lastDone.Add(w.interval)
			timer.Reset(w.interval)

		case d := <-w.updates:
			w.interval = d
			// Re-anchor on the last completed check, but never pull
			// the pending fire earlier than already scheduled.
			next := lastDone.Add(d)
			if next.Before(pendingFire) {
				next = pendingFire
			}
			pendingFire = next
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(time.Until(next))

		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCheck performs a single check cycle: probe, record, broadcast,
// detect, dispatch. A probe failure is a normal result; only a storage
// failure aborts the cycle, loudly, before anything observes the check.
func (w *worker) runCheck(ctx context.Context) {
	s := w.scheduler

	u, err := s.store.GetURL(ctx, w.urlID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// URL deleted while the timer was pending
			return
		}
		log.Printf("Failed to load URL %s before check: %v", w.urlID, err)
		return
	}
	if !u.Active {
		return
	}

	result := s.prober.Check(ctx, u.URL)

	// The URL may have been deleted or deactivated during the probe;
	// discard the result instead of applying it to dead state.
	select {
	case <-w.stop:
		return
	default:
	}

	check := &models.URLCheck{
		MonitoredURLID: u.ID,
		Status:         result.Status,
		ResponseTime:   result.ResponseTime,
		IsOnline:       result.IsOnline,
		CheckedAt:      result.CheckedAt,
	}

	if err := s.store.RecordCheck(ctx, check); err != nil {
		// Silently dropping checks corrupts uptime math, so this is
		// the one failure that must reach operators.
		log.Printf("ERROR: failed to record check for %s (%s): %v", u.Name, u.ID, err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast("urlStatusUpdate", models.URLStatusUpdate{
			MonitoredURLID: check.MonitoredURLID,
			Status:         check.Status,
			ResponseTime:   check.ResponseTime,
			IsOnline:       check.IsOnline,
			CheckedAt:      check.CheckedAt,
		})
	}

	transition, inc, err := s.detector.Process(ctx, check, result.Summary)
	if err != nil {
		log.Printf("Incident detection failed for %s (%s): %v", u.Name, u.ID, err)
		return
	}

	if s.dispatcher != nil {
		switch transition {
		case incident.TransitionOpened:
			go s.dispatcher.NotifyIncidentOpened(context.WithoutCancel(ctx), u, inc)
		case incident.TransitionResolved:
			go s.dispatcher.NotifyIncidentResolved(context.WithoutCancel(ctx), u, inc)
		}
	}

	log.Printf("Check %s (%s): %s", u.Name, u.ID, result.Summary)
}
