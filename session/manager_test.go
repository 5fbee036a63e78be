package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urcuisine/urcuisine/storage/memory"
	"github.com/urcuisine/urcuisine/token"
)

var errRemote = errors.New("remote said no")

type fakeAuth struct {
	mu sync.Mutex

	token     string
	err       error
	logoutErr error

	loginCalls, signupCalls, logoutCalls, validateCalls int
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.token, f.err
}

func (f *fakeAuth) Signup(_ context.Context, name, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signupCalls++
	return f.token, f.err
}

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) Validate(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	return f.token, f.err
}

func signedToken(t *testing.T, userID, name string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"name":    name,
		"exp":     time.Now().Add(72 * time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

type harness struct {
	clock *fakeClock
	store *Store
	auth  *fakeAuth
	mgr   *Manager
	seen  []State
}

func newHarness(t *testing.T, auth *fakeAuth) *harness {
	t.Helper()
	h := &harness{clock: newClock(), auth: auth}
	h.store = NewStore(memory.NewRepository(), WithStoreClock(h.clock.Now))
	h.mgr = NewManager(h.store, auth,
		WithClock(h.clock.Now),
		WithObserver(func(s State, _ Session) { h.seen = append(h.seen, s) }),
	)
	return h
}

func TestManagerInitialState(t *testing.T) {
	h := newHarness(t, &fakeAuth{})
	assert.Equal(t, Validating, h.mgr.State())
	assert.True(t, h.mgr.Loading())
	assert.False(t, h.mgr.Session().Authenticated())
}

func TestStartFreshDevice(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: signedToken(t, "u1", "Ava")})

	state := h.mgr.Start(t.Context())

	assert.Equal(t, LoggedOut, state)
	assert.False(t, h.mgr.Loading())
	assert.Nil(t, h.mgr.Session().User)
	assert.Equal(t, 0, h.auth.validateCalls, "no network call on a fresh device")
}

func TestStartValidCache(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: signedToken(t, "u1", "Ava")})
	require.NoError(t, h.store.WriteValidity(true, DefaultHorizon))

	state := h.mgr.Start(t.Context())

	require.Equal(t, LoggedIn, state)
	assert.False(t, h.mgr.Loading())
	assert.Equal(t, &Identity{ID: "u1", Name: "Ava"}, h.mgr.Session().User)
	assert.True(t, h.mgr.Session().ValidUntil.IsZero())
	assert.Equal(t, 1, h.auth.validateCalls)
	assert.Equal(t, []State{LoggedIn}, h.seen)
}

func TestStartExpiredCacheSkipsValidate(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: signedToken(t, "u1", "Ava")})
	require.NoError(t, h.store.WriteValidity(true, DefaultHorizon))
	h.clock.Advance(DefaultHorizon + time.Minute)

	assert.Equal(t, LoggedOut, h.mgr.Start(t.Context()))
	assert.Equal(t, 0, h.auth.validateCalls)
}

func TestStartInvalidatedCacheSkipsValidate(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: signedToken(t, "u1", "Ava")})
	require.NoError(t, h.store.WriteValidity(false, DefaultHorizon))

	assert.Equal(t, LoggedOut, h.mgr.Start(t.Context()))
	assert.Equal(t, 0, h.auth.validateCalls)
}

func TestStartValidateFailureInvalidatesCache(t *testing.T) {
	cases := map[string]*fakeAuth{
		"remote error":    {err: errRemote},
		"empty token":     {token: ""},
		"malformed token": {token: "garbage"},
	}
	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, auth)
			require.NoError(t, h.store.WriteValidity(true, DefaultHorizon))

			assert.Equal(t, LoggedOut, h.mgr.Start(t.Context()))
			assert.Nil(t, h.mgr.Session().User)
			assert.Equal(t, 1, auth.validateCalls)
			assert.False(t, h.store.IsCurrentlyValid())

			v, ok, err := h.store.ReadValidity()
			require.NoError(t, err)
			require.True(t, ok)
			assert.False(t, v.Valid)
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: signedToken(t, "u7", "Bo")})
	h.mgr.Start(t.Context())

	require.NoError(t, h.mgr.Login(t.Context(), "bo@example.com", "hunter2!"))

	s := h.mgr.Session()
	assert.Equal(t, LoggedIn, h.mgr.State())
	assert.Equal(t, &Identity{ID: "u7", Name: "Bo"}, s.User)
	assert.True(t, h.clock.Now().Add(DefaultHorizon).Equal(s.ValidUntil))
	assert.True(t, h.store.IsCurrentlyValid())
	assert.Equal(t, []State{LoggedOut, LoggedIn}, h.seen)
}

func TestSignupSuccess(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: signedToken(t, "u8", "Cy")})
	h.mgr.Start(t.Context())

	require.NoError(t, h.mgr.Signup(t.Context(), "Cy", "cy@example.com", "hunter2!"))

	assert.Equal(t, LoggedIn, h.mgr.State())
	assert.Equal(t, "Cy", h.mgr.Session().User.Name)
	assert.Equal(t, 1, h.auth.signupCalls)
	assert.Equal(t, 0, h.auth.loginCalls)
	assert.True(t, h.store.IsCurrentlyValid())
}

type fieldError struct{ fields map[string]string }

func (e *fieldError) Error() string { return "validation failed" }

func TestLoginFailureLeavesStoreUntouched(t *testing.T) {
	verr := &fieldError{fields: map[string]string{"email": "Invalid email format."}}
	h := newHarness(t, &fakeAuth{err: verr})
	h.mgr.Start(t.Context())

	err := h.mgr.Login(t.Context(), "nope", "x")
	require.Error(t, err)

	var got *fieldError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "Invalid email format.", got.fields["email"])

	assert.Equal(t, LoggedOut, h.mgr.State())
	assert.Nil(t, h.mgr.Session().User)
	_, ok, err := h.store.ReadValidity()
	require.NoError(t, err)
	assert.False(t, ok, "failed login must not write the validity record")
}

func TestLoginUndecodableToken(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: "not-a-token"})
	h.mgr.Start(t.Context())

	err := h.mgr.Login(t.Context(), "a@example.com", "x")
	require.ErrorIs(t, err, ErrNoIdentity)
	require.ErrorIs(t, err, token.ErrMalformed)
	assert.Equal(t, LoggedOut, h.mgr.State())
	_, ok, _ := h.store.ReadValidity()
	assert.False(t, ok)
}

func TestAuthenticateFailureBeforeStart(t *testing.T) {
	tests := []struct {
		name string
		auth *fakeAuth
		call func(m *Manager) error
	}{
		{
			name: "login rejected",
			auth: &fakeAuth{err: errRemote},
			call: func(m *Manager) error { return m.Login(context.Background(), "a@example.com", "x") },
		},
		{
			name: "signup rejected",
			auth: &fakeAuth{err: errRemote},
			call: func(m *Manager) error { return m.Signup(context.Background(), "Ava", "a@example.com", "x") },
		},
		{
			name: "login with undecodable token",
			auth: &fakeAuth{token: "not-a-token"},
			call: func(m *Manager) error { return m.Login(context.Background(), "a@example.com", "x") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.auth)
			require.True(t, h.mgr.Loading())

			require.Error(t, tt.call(h.mgr))

			assert.Equal(t, LoggedOut, h.mgr.State())
			assert.False(t, h.mgr.Loading())
			assert.Equal(t, []State{LoggedOut}, h.seen)
			_, ok, err := h.store.ReadValidity()
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLoginFailureKeepsSignedInUser(t *testing.T) {
	auth := &fakeAuth{token: signedToken(t, "u1", "Ava")}
	h := newHarness(t, auth)
	h.mgr.Start(t.Context())
	require.NoError(t, h.mgr.Login(t.Context(), "ava@example.com", "pw"))

	auth.err = errRemote
	require.Error(t, h.mgr.Login(t.Context(), "ava@example.com", "wrong"))

	assert.Equal(t, LoggedIn, h.mgr.State())
	require.NotNil(t, h.mgr.Session().User)
	assert.Equal(t, "u1", h.mgr.Session().User.ID)
}

func TestLogout(t *testing.T) {
	for name, logoutErr := range map[string]error{"remote ok": nil, "remote fails": errRemote} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, &fakeAuth{token: signedToken(t, "u1", "Ava"), logoutErr: logoutErr})
			h.mgr.Start(t.Context())
			require.NoError(t, h.mgr.Login(t.Context(), "ava@example.com", "pw"))

			h.mgr.Logout(t.Context())

			assert.Equal(t, LoggedOut, h.mgr.State())
			assert.Nil(t, h.mgr.Session().User)
			assert.True(t, h.mgr.Session().ValidUntil.IsZero())
			assert.Equal(t, 1, h.auth.logoutCalls)
			assert.False(t, h.store.IsCurrentlyValid())
		})
	}
}

func TestRestartAfterLogin(t *testing.T) {
	repo := memory.NewRepository()
	clock := newClock()
	auth := &fakeAuth{token: signedToken(t, "u1", "Ava")}

	first := NewManager(NewStore(repo, WithStoreClock(clock.Now)), auth, WithClock(clock.Now))
	first.Start(t.Context())
	require.NoError(t, first.Login(t.Context(), "ava@example.com", "pw"))

	// A new process sharing the same durable repository.
	clock.Advance(24 * time.Hour)
	second := NewManager(NewStore(repo, WithStoreClock(clock.Now)), auth, WithClock(clock.Now))
	assert.Equal(t, LoggedIn, second.Start(t.Context()))
	assert.Equal(t, 1, auth.validateCalls)

	// Past the horizon the next process never asks the API.
	clock.Advance(72 * time.Hour)
	third := NewManager(NewStore(repo, WithStoreClock(clock.Now)), auth, WithClock(clock.Now))
	assert.Equal(t, LoggedOut, third.Start(t.Context()))
	assert.Equal(t, 1, auth.validateCalls)
}

func TestSessionReturnsCopy(t *testing.T) {
	h := newHarness(t, &fakeAuth{token: signedToken(t, "u1", "Ava")})
	h.mgr.Start(t.Context())
	require.NoError(t, h.mgr.Login(t.Context(), "ava@example.com", "pw"))

	s := h.mgr.Session()
	s.User.Name = "Mallory"
	assert.Equal(t, "Ava", h.mgr.Session().User.Name)
}
