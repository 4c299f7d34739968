package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/foodtracker/internal/apperror"
	"github.com/sakif/foodtracker/internal/form"
	"github.com/sakif/foodtracker/internal/metrics"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/rating"
)

// Session is one open entry form, addressed by an xid. Its star toggles
// are arranged in a Stack of its own.
type Session struct {
	ID     string
	Opened time.Time

	mu       sync.Mutex
	form     *form.Controller
	stars    *rating.Stack
	lastUsed time.Time
}

// SessionManager keeps the entry forms that clients are currently editing.
//
// CONCURRENCY:
// The manager map is guarded by one mutex; each session has its own, so
// two clients editing two different forms never block each other while a
// single form only ever sees one call at a time.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	book     *MealBook
	formOpts []form.Option
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionManager returns a manager whose forms commit into book.
// formOpts are applied to every form it opens (star count, star size, ...).
func NewSessionManager(book *MealBook, logger *slog.Logger, formOpts ...form.Option) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		book:     book,
		formOpts: append([]form.Option{form.WithLogger(logger)}, formOpts...),
		logger:   logger,
		now:      time.Now,
	}
}

// OpenNew opens a blank form that adds a meal.
func (m *SessionManager) OpenNew() (*Session, error) {
	return m.open(nil, m.book.NewEntry())
}

// OpenEdit opens a form on the meal at index.
func (m *SessionManager) OpenEdit(index int) (*Session, error) {
	meal, dest, err := m.book.EditAt(index)
	if err != nil {
		return nil, err
	}
	return m.open(meal, dest)
}

func (m *SessionManager) open(existing *model.Meal, dest form.Destination) (*Session, error) {
	stars := rating.NewStack()
	opts := make([]form.Option, 0, len(m.formOpts)+1)
	opts = append(opts, m.formOpts...)
	opts = append(opts, form.WithHost(stars))

	c, err := form.New(existing, dest, opts...)
	if err != nil {
		return nil, err
	}
	return m.register(c, stars), nil
}

// Do runs fn on the form of session id while holding the session lock and
// returns the form's view afterwards. A form that is closed by fn (saved
// or cancelled) is forgotten.
func (m *SessionManager) Do(id string, fn func(c *form.Controller) error) (form.View, error) {
	return m.with(id, func(s *Session) error { return fn(s.form) })
}

// Tap activates the star toggle at index as the session currently
// arranges it.
func (m *SessionManager) Tap(id string, index int) (form.View, error) {
	return m.with(id, func(s *Session) error {
		arranged := s.stars.Arranged()
		if index < 0 || index >= len(arranged) {
			return apperror.NotFound("star", index)
		}
		return arranged[index].Activate()
	})
}

func (m *SessionManager) with(id string, fn func(s *Session) error) (form.View, error) {
	s, err := m.get(id)
	if err != nil {
		return form.View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.form.Closed() {
		return form.View{}, apperror.NotFound("form", id)
	}

	fnErr := fn(s)
	s.lastUsed = m.now()
	view := s.form.State()

	if s.form.Closed() {
		m.forget(id)
	}
	return view, fnErr
}

// View returns the current view of session id.
func (m *SessionManager) View(id string) (form.View, error) {
	return m.Do(id, func(*form.Controller) error { return nil })
}

// Len is the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Expire cancels every session idle for longer than ttl and returns how
// many were dropped.
func (m *SessionManager) Expire(ctx context.Context, ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	// Lock order is always session → manager (see Do), so collect the
	// sessions first and inspect each one without holding m.mu.
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	expired := 0
	for _, s := range all {
		s.mu.Lock()
		if s.form.Closed() || !s.lastUsed.Before(cutoff) {
			s.mu.Unlock()
			continue
		}
		s.form.Cancel(ctx)
		m.forget(s.ID)
		s.mu.Unlock()

		expired++
		m.logger.Info("form session expired", slog.String("id", s.ID))
	}
	return expired
}

func (m *SessionManager) register(c *form.Controller, stars *rating.Stack) *Session {
	now := m.now()
	s := &Session{
		ID:       xid.New().String(),
		Opened:   now,
		form:     c,
		stars:    stars,
		lastUsed: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.FormSessionsOpen.Inc()

	m.logger.Info("form session opened",
		slog.String("id", s.ID),
		slog.Bool("edit", c.EditMode()),
	)
	return s
}

func (m *SessionManager) get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("form", id)
	}
	return s, nil
}

func (m *SessionManager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		metrics.FormSessionsOpen.Dec()
	}
}
