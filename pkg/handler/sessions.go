package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/checkoutkit/pkg/checkout"
	"github.com/dmitrymomot/checkoutkit/pkg/logger"
)

// CookieRelay carries the user's upstream credentials: cookies from the
// browser go in, cookies refreshed upstream come back out.
type CookieRelay interface {
	SetCookies(cookies []*http.Cookie)
	TakeUpdated() []*http.Cookie
}

// Factory builds the orchestrator for a new wizard session.
type Factory func(sessionID string, r *http.Request) (*checkout.Orchestrator, CookieRelay, error)

// Session is one browser's checkout wizard.
type Session struct {
	ID           string
	Orchestrator *checkout.Orchestrator
	Cookies      CookieRelay

	lastSeen time.Time
}

// Registry holds live wizard sessions and evicts idle ones.
type Registry struct {
	factory Factory
	idle    time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry.
func NewRegistry(factory Factory, idle time.Duration, log *slog.Logger) *Registry {
	if factory == nil {
		panic(ErrNilFactory)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		log:      log.With(logger.Component("sessions")),
		sessions: make(map[string]*Session),
	}
}

// Get returns a live session and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = r.now()
	}
	return s, ok
}

// Create starts a new session with a random ID.
func (r *Registry) Create(req *http.Request) (*Session, error) {
	id := uuid.NewString()
	orch, relay, err := r.factory(id, req)
	if err != nil {
		return nil, err
	}

	s := &Session{ID: id, Orchestrator: orch, Cookies: relay, lastSeen: r.now()}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.log.DebugContext(req.Context(), "session created", logger.SessionID(id))
	return s, nil
}

// Remove closes and forgets a session. Unknown IDs are ignored.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Orchestrator.Close(ctx)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout and returns
// how many were evicted.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		if err := s.Orchestrator.Close(ctx); err != nil {
			r.log.WarnContext(ctx, "failed to close idle session", logger.SessionID(s.ID), logger.Error(err))
		}
	}
	if len(stale) > 0 {
		r.log.InfoContext(ctx, "idle sessions evicted", slog.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is done, then closes all sessions.
func (r *Registry) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return r.closeAll()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry) closeAll() error {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	clear(r.sessions)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, s := range all {
		if err := s.Orchestrator.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
