// Package session tracks an authenticated principal and its inactivity
// window. The session is an explicit object handed to callers; nothing here
// is process-global.
package session

import (
	"errors"
	"sync"
	"time"
)

const DefaultTimeout = 10 * time.Minute

var ErrExpired = errors.New("session expired")

type Role string

const (
	// RoleSyndic may record and delete ledger entries.
	RoleSyndic Role = "syndic"
	// RoleViewer reads projections only.
	RoleViewer Role = "viewer"
)

// Session is one authenticated principal with an inactivity deadline.
// Touch on every authenticated request keeps it alive; once the window
// elapses the session is dead and every later Touch fails. In-flight work is
// not cancelled on expiry; writes fail at the repository once their caller
// re-checks the session.
type Session struct {
	mu        sync.Mutex
	principal string
	role      Role
	timeout   time.Duration
	timer     *time.Timer
	active    bool
	lastSeen  time.Time
	onExpire  func()
	now       func() time.Time
}

type Option func(*Session)

func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithExpiryCallback registers fn to run once when the inactivity window
// elapses. It does not fire on Stop.
func WithExpiryCallback(fn func()) Option {
	return func(s *Session) { s.onExpire = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func New(principal string, role Role, opts ...Option) *Session {
	s := &Session{
		principal: principal,
		role:      role,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Principal() string { return s.principal }
func (s *Session) Role() Role        { return s.role }

func (s *Session) CanWrite() bool { return s.role == RoleSyndic }

// Start arms the inactivity timer. Starting an already-started session just
// refreshes the deadline.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.lastSeen = s.now()
	s.arm()
}

// Touch refreshes the deadline. It fails once the session expired or was
// stopped; callers treat that as a signal to re-authenticate.
func (s *Session) Touch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ErrExpired
	}
	s.lastSeen = s.now()
	s.arm()
	return nil
}

// Stop ends the session without firing the expiry callback.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// LastSeen reports the last Start or successful Touch.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// arm resets the timer; callers hold s.mu.
func (s *Session) arm() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.timeout, s.expire)
}

func (s *Session) expire() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.timer = nil
	cb := s.onExpire
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}
