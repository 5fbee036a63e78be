package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/urcuisine/urcuisine/internal/metrics"
	"github.com/urcuisine/urcuisine/token"
)

// Authenticator is the remote side of the session lifecycle. Each successful
// call except Logout returns the raw session token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, name, email, password string) (string, error)
	Logout(ctx context.Context) error
	Validate(ctx context.Context) (string, error)
}

// Decoder turns a raw token into claims.
type Decoder func(raw string) (token.Claims, error)

// Observer is notified after every state transition.
type Observer func(State, Session)

// Event names used in session log entries.
const (
	EventValidateSkipped = "validate_skipped"
	EventValidated       = "validated"
	EventValidateFailure = "validate_failure"
	EventLoginSuccess    = "login_success"
	EventLoginFailure    = "login_failure"
	EventSignupSuccess   = "signup_success"
	EventSignupFailure   = "signup_failure"
	EventLogout          = "logout"
)

// Manager orchestrates login, signup, logout and startup re-validation.
// All reads and writes of the Session go through its methods.
type Manager struct {
	store     *Store
	auth      Authenticator
	decode    Decoder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	horizon   time.Duration
	now       func() time.Time
	observers []Observer

	// opMu serialises Start, Login, Signup and Logout.
	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	session Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithDecoder replaces token.Decode.
func WithDecoder(d Decoder) ManagerOption {
	return func(m *Manager) {
		m.decode = d
	}
}

// WithHorizon sets the local validity horizon written on login and signup.
// Default: DefaultHorizon.
func WithHorizon(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.horizon = d
	}
}

// WithClock sets the time source used for Session.ValidUntil.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithObserver registers fn to be called after every transition.
func WithObserver(fn Observer) ManagerOption {
	return func(m *Manager) {
		m.observers = append(m.observers, fn)
	}
}

// NewManager returns a Manager in the Validating state. Call Start to
// resolve it.
func NewManager(store *Store, auth Authenticator, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		auth:    auth,
		decode:  token.Decode,
		horizon: DefaultHorizon,
		now:     time.Now,
		state:   Validating,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "session")
	return m
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.clone()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Loading reports whether the startup check is still in progress.
func (m *Manager) Loading() bool {
	return m.State() == Validating
}

// Start resolves the Validating state. When the local validity record is
// missing, invalidated or expired the manager goes straight to LoggedOut
// without contacting the API. Otherwise the API's validate endpoint decides.
func (m *Manager) Start(ctx context.Context) State {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.State() != Validating {
		m.transition(Validating, Session{})
	}

	if !m.store.IsCurrentlyValid() {
		m.logEvent(ctx, slog.LevelDebug, EventValidateSkipped)
		m.transition(LoggedOut, Session{})
		return LoggedOut
	}

	raw, err := m.auth.Validate(ctx)
	if err == nil {
		var id *Identity
		if id, err = m.identity(raw); err == nil {
			m.logEvent(ctx, slog.LevelInfo, EventValidated, slog.String("user_id", id.ID))
			m.transition(LoggedIn, Session{User: id})
			return LoggedIn
		}
	}

	m.logEvent(ctx, slog.LevelInfo, EventValidateFailure, slog.String("reason", err.Error()))
	m.invalidate(ctx)
	m.transition(LoggedOut, Session{})
	return LoggedOut
}

// Login authenticates with email and password. On failure the validity record
// is left untouched, a manager that was never started becomes LoggedOut, and
// the API's error is returned wrapped so callers can errors.As it for
// field-level details.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	return m.authenticate(ctx, "login", EventLoginSuccess, EventLoginFailure, func(ctx context.Context) (string, error) {
		return m.auth.Login(ctx, email, password)
	})
}

// Signup registers a new account and signs it in. Same contract as Login.
func (m *Manager) Signup(ctx context.Context, name, email, password string) error {
	return m.authenticate(ctx, "signup", EventSignupSuccess, EventSignupFailure, func(ctx context.Context) (string, error) {
		return m.auth.Signup(ctx, name, email, password)
	})
}

func (m *Manager) authenticate(ctx context.Context, op, successEvent, failureEvent string, call func(context.Context) (string, error)) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	raw, err := call(ctx)
	if err != nil {
		m.logEvent(ctx, slog.LevelInfo, failureEvent, slog.String("reason", err.Error()))
		m.leaveValidating()
		return fmt.Errorf("%s: %w", op, err)
	}
	id, err := m.identity(raw)
	if err != nil {
		m.logEvent(ctx, slog.LevelWarn, failureEvent, slog.String("reason", err.Error()))
		m.leaveValidating()
		return fmt.Errorf("%s: %w: %w", op, ErrNoIdentity, err)
	}

	if err := m.store.WriteValidity(true, m.horizon); err != nil {
		// The user is still signed in for this process; only the restart
		// shortcut is lost.
		m.logger.Warn("failed to persist session validity", "error", err)
	}
	m.logEvent(ctx, slog.LevelInfo, successEvent, slog.String("user_id", id.ID))
	m.transition(LoggedIn, Session{User: id, ValidUntil: m.now().Add(m.horizon)})
	return nil
}

// Logout notifies the API on a best-effort basis and then unconditionally
// clears the session and invalidates the validity record.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.auth.Logout(ctx); err != nil {
		m.logger.Warn("remote logout failed", "error", err)
	}
	m.invalidate(ctx)
	m.logEvent(ctx, slog.LevelInfo, EventLogout)
	m.transition(LoggedOut, Session{})
}

// leaveValidating settles a manager that was never started: a failed login
// or signup means nobody is signed in. Other states are left as they are.
func (m *Manager) leaveValidating() {
	if m.State() == Validating {
		m.transition(LoggedOut, Session{})
	}
}

func (m *Manager) identity(raw string) (*Identity, error) {
	claims, err := m.decode(raw)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: claims.UserID, Name: claims.Name}, nil
}

func (m *Manager) invalidate(ctx context.Context) {
	if err := m.store.WriteValidity(false, 0); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to invalidate session validity", slog.String("error", err.Error()))
	}
}

func (m *Manager) transition(to State, s Session) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.session = s
	m.mu.Unlock()

	if from != to {
		m.metrics.SessionTransition(from.String(), to.String())
	}
	for _, fn := range m.observers {
		fn(to, s.clone())
	}
}

func (m *Manager) logEvent(ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) {
	base := []slog.Attr{slog.String("event", event)}
	m.logger.LogAttrs(ctx, level, "session", append(base, attrs...)...)
}
