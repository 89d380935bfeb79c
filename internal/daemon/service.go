// Package daemon provides the long-running background service that keeps the
// tracker fresh and exposes it over HTTP and SSE.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
	"github.com/lacag-app/lacag/internal/tracker"
)

// Tracker is the subset of the tracker the daemon serves.
type Tracker interface {
	Refresh(ctx context.Context) error
	IsAuthenticated() bool
	Status(now time.Time) tracker.Status
	Transactions() []model.Transaction
	AddExpense(ctx context.Context, amount float64, category string) (model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	Progress(v challenge.Variant, now time.Time) pipeline.ChallengeProgress
	Challenge() challenge.Board
}

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Log          logrus.FieldLogger
	Clock        func() time.Time
}

// Snapshot is a compact tracker state for status/event payloads.
type Snapshot struct {
	At            time.Time `json:"at"`
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	Transactions  int       `json:"transactions"`
	SpentToday    float64   `json:"spent_today"`
	DailyLimit    *float64  `json:"daily_limit,omitempty"`
	Challenge     string    `json:"challenge"`
	Currency      string    `json:"currency"`
}

// Delta captures snapshot deltas between observations.
type Delta struct {
	Transactions int     `json:"transactions"`
	SpentToday   float64 `json:"spent_today"`
}

func (d Delta) isZero() bool {
	return d.Transactions == 0 && d.SpentToday == 0
}

// Event is emitted whenever the snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventSession  = "session"
	EventSpend    = "spend_delta"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time      `json:"started_at"`
	LastPollAt      time.Time      `json:"last_poll_at"`
	PollIntervalSec int            `json:"poll_interval_sec"`
	PollCount       int64          `json:"poll_count"`
	Summary         Snapshot       `json:"summary"`
	Tracker         tracker.Status `json:"tracker"`
	LastError       string         `json:"last_error,omitempty"`
	EventCount      int            `json:"event_count"`
	SubscriberCount int            `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	tracker Tracker
	log     logrus.FieldLogger
	now     func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service over t.
func New(t Tracker, cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Service{
		cfg:       cfg,
		tracker:   t,
		log:       cfg.Log.WithField("component", "daemon"),
		now:       cfg.Clock,
		startedAt: cfg.Clock(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and the refresh loop until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed an initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce refreshes remote data when signed in and publishes any change.
func (s *Service) pollOnce(ctx context.Context) {
	var refreshErr error
	if s.tracker.IsAuthenticated() {
		start := time.Now()
		refreshErr = s.tracker.Refresh(ctx)
		refreshDuration.Observe(time.Since(start).Seconds())
		if refreshErr != nil {
			refreshes.WithLabelValues("error").Inc()
			s.log.WithError(refreshErr).Warn("refresh failed")
		} else {
			refreshes.WithLabelValues("ok").Inc()
		}
	} else {
		refreshes.WithLabelValues("guest").Inc()
	}

	s.mu.Lock()
	s.lastPollAt = s.now()
	s.pollCount++
	s.lastError = ""
	if refreshErr != nil {
		s.lastError = refreshErr.Error()
	}
	s.mu.Unlock()

	s.observe()
}

// observe takes a snapshot of the tracker and publishes an event if it moved.
func (s *Service) observe() {
	now := s.now()
	snap := snapshotFromStatus(s.tracker.Status(now), now)
	spentToday.Set(snap.SpentToday)
	activeTransactions.Set(float64(snap.Transactions))

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot
	s.hasSnapshot = true
	s.snapshot = snap

	switch {
	case !prevExists:
		ev = Event{Type: EventSnapshot}
		publish = true
	case prev.Authenticated != snap.Authenticated || prev.UserID != snap.UserID:
		ev = Event{Type: EventSession}
		publish = true
	default:
		if delta := diffSnapshots(prev, snap); !delta.isZero() {
			ev = Event{Type: EventSpend, Delta: delta}
			publish = true
		}
	}
	if publish {
		s.nextEventID++
		ev.ID = s.nextEventID
		ev.Timestamp = now
		ev.Snapshot = snap
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func snapshotFromStatus(st tracker.Status, at time.Time) Snapshot {
	return Snapshot{
		At:            at,
		Authenticated: st.Authenticated,
		UserID:        st.UserID,
		Transactions:  st.Transactions,
		SpentToday:    st.SpentToday,
		DailyLimit:    st.DailyLimit,
		Challenge:     st.Challenge,
		Currency:      st.Currency,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Transactions: curr.Transactions - prev.Transactions,
		SpentToday:   curr.SpentToday - prev.SpentToday,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
	eventsPublished.WithLabelValues(ev.Type).Inc()
}

func (s *Service) snapshotStatus() Status {
	st := s.tracker.Status(s.now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Summary:         s.snapshot,
		Tracker:         st,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) recentEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	return events
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// Router builds the HTTP API.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(metricsHandler()))

	v1 := r.Group("/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/transactions", s.handleTransactions)
	v1.POST("/expenses", s.handleAddExpense)
	v1.DELETE("/transactions/:id", s.handleDeleteTransaction)
	v1.GET("/daily", s.handleDaily)
	v1.GET("/challenge/:variant", s.handleChallenge)
	v1.GET("/events", s.handleEvents)
	v1.GET("/stream", s.handleStream)
	return r
}
