// Package session owns the client authentication lifecycle: token exchange,
// durable persistence, profile loading and cross-process consistency.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bobmcallan/b3notifier/internal/clients/backend"
	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/interfaces"
	"github.com/bobmcallan/b3notifier/internal/models"
)

// Compile-time interface check
var _ interfaces.SessionManager = (*Manager)(nil)

var errSuperseded = errors.New("login superseded by a later session change")

// Manager implements SessionManager.
//
// Transitions are serialized by emitMu and delivered to observers in order
// before the call that caused them returns. Observers must not call Login,
// Logout or FetchProfile from inside the callback.
type Manager struct {
	client interfaces.BackendClient
	store  interfaces.TokenStore
	logger *common.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	emitMu sync.Mutex

	mu        sync.Mutex
	state     models.SessionState
	user      *models.Profile
	access    string
	expiry    time.Time
	lastErr   error
	gen       uint64
	changed   chan struct{}
	observers map[uint64]func(models.SessionSnapshot)
	nextObs   uint64
}

// NewManager creates an anonymous session manager. Call Start to hydrate it
// from the token store.
func NewManager(client interfaces.BackendClient, store interfaces.TokenStore, logger *common.Logger) *Manager {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		client:    client,
		store:     store,
		logger:    logger,
		baseCtx:   ctx,
		cancel:    cancel,
		state:     models.StateAnonymous,
		changed:   make(chan struct{}),
		observers: make(map[uint64]func(models.SessionSnapshot)),
	}
}

// Start derives the initial state from the token store and begins watching
// it for writes made by other processes.
//
// The watch baseline is taken before the first Sync so a write landing
// between the two is still seen.
func (m *Manager) Start(ctx context.Context) error {
	events, err := m.store.Watch(m.baseCtx)
	if err != nil {
		return fmt.Errorf("watch token store: %w", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for range events {
			if err := m.Sync(m.baseCtx); err != nil && m.baseCtx.Err() == nil {
				m.logger.Warn().Err(err).Msg("Session sync failed")
			}
		}
	}()

	return m.Sync(ctx)
}

// Close stops the store watcher and any in-flight profile fetch.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// Login exchanges creds for a token pair, persists it and starts loading the
// profile in the background. On failure the stored session is left untouched.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) error {
	m.emitMu.Lock()
	m.mu.Lock()
	prev := m.state
	gen := m.gen
	var snap *models.SessionSnapshot
	if prev == models.StateAnonymous {
		m.state = models.StateAuthenticating
		m.lastErr = nil
		s := m.snapshotLocked()
		snap = &s
		m.signalLocked()
	}
	m.mu.Unlock()
	if snap != nil {
		m.deliver(*snap)
	}
	m.emitMu.Unlock()

	tokens, err := m.client.IssueToken(ctx, creds)
	if err == nil && !tokens.Complete() {
		err = models.NewAuthError(models.AuthInvalidCredentials, errors.New("token response is missing the access or refresh token"))
	}
	if err != nil {
		authErr := classifyLoginError(err)
		m.logger.Info().Str("username", creds.Username).Err(err).Msg("Login failed")
		m.restore(gen, prev, authErr)
		return authErr
	}

	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	if m.currentGen() != gen {
		return models.NewAuthError(models.AuthNotAuthenticated, errSuperseded)
	}

	if err := m.store.SaveTokens(ctx, tokens); err != nil {
		m.restoreLocked(prev, err)
		return fmt.Errorf("persist tokens: %w", err)
	}

	m.mu.Lock()
	m.gen++
	gen = m.gen
	m.access = tokens.Access
	m.expiry = tokenExpiry(tokens.Access)
	m.user = nil
	m.lastErr = nil
	m.state = models.StateAuthenticated
	authenticated := m.snapshotLocked()
	m.state = models.StateProfileLoading
	loading := m.snapshotLocked()
	m.signalLocked()
	m.mu.Unlock()

	m.logger.Info().Str("username", creds.Username).Msg("Login succeeded")
	m.deliver(authenticated)
	m.deliver(loading)

	m.startProfileFetch(gen)
	return nil
}

// restore reverts an in-progress login to prev, unless something else
// changed the session meanwhile.
func (m *Manager) restore(gen uint64, prev models.SessionState, cause error) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	if m.currentGen() != gen {
		return
	}
	m.restoreLocked(prev, cause)
}

func (m *Manager) restoreLocked(prev models.SessionState, cause error) {
	m.mu.Lock()
	if m.state == prev {
		m.mu.Unlock()
		return
	}
	m.state = prev
	m.lastErr = cause
	snap := m.snapshotLocked()
	m.signalLocked()
	m.mu.Unlock()
	m.deliver(snap)
}

// Logout clears the stored tokens, drops transport credentials and forgets
// the user. Calling it while anonymous is harmless.
func (m *Manager) Logout(ctx context.Context) error {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	err := m.store.ClearTokens(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to clear stored tokens")
	}
	m.client.ClearAuthorization()
	m.becomeAnonymous(nil)
	m.logger.Info().Msg("Logged out")

	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// becomeAnonymous resets in-memory state. Already anonymous is a no-op.
// Caller holds emitMu.
func (m *Manager) becomeAnonymous(cause error) {
	m.mu.Lock()
	if m.state == models.StateAnonymous {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.state = models.StateAnonymous
	m.user = nil
	m.access = ""
	m.expiry = time.Time{}
	m.lastErr = cause
	snap := m.snapshotLocked()
	m.signalLocked()
	m.mu.Unlock()
	m.deliver(snap)
}

// FetchProfile reloads the profile now. A failure forces a logout.
func (m *Manager) FetchProfile(ctx context.Context) (*models.Profile, error) {
	m.emitMu.Lock()
	m.mu.Lock()
	if !m.state.Authenticated() {
		m.mu.Unlock()
		m.emitMu.Unlock()
		return nil, models.ErrNotAuthenticated
	}
	m.gen++
	gen := m.gen
	m.state = models.StateProfileLoading
	snap := m.snapshotLocked()
	m.signalLocked()
	m.mu.Unlock()
	m.deliver(snap)
	m.emitMu.Unlock()

	profile, err := m.client.GetProfile(ctx)
	return m.applyProfile(gen, profile, err)
}

func (m *Manager) startProfileFetch(gen uint64) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		profile, err := m.client.GetProfile(m.baseCtx)
		if m.baseCtx.Err() != nil {
			return
		}
		_, _ = m.applyProfile(gen, profile, err)
	}()
}

// applyProfile settles a profile fetch. Results for a superseded generation
// are dropped.
func (m *Manager) applyProfile(gen uint64, profile *models.Profile, fetchErr error) (*models.Profile, error) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	if m.currentGen() != gen {
		m.logger.Debug().Msg("Discarding stale profile result")
		if fetchErr != nil {
			return nil, models.NewAuthError(models.AuthProfileFetchFailed, fetchErr)
		}
		return profile, nil
	}

	if fetchErr != nil {
		authErr := models.NewAuthError(models.AuthProfileFetchFailed, fetchErr)
		m.logger.Warn().Err(fetchErr).Msg("Profile fetch failed, logging out")
		if err := m.store.ClearTokens(m.baseCtx); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to clear stored tokens")
		}
		m.client.ClearAuthorization()
		m.becomeAnonymous(authErr)
		return nil, authErr
	}

	m.mu.Lock()
	m.user = profile
	m.state = models.StateReady
	snap := m.snapshotLocked()
	m.signalLocked()
	m.mu.Unlock()

	m.logger.Debug().Str("username", profile.Username).Msg("Profile loaded")
	m.deliver(snap)
	return profile, nil
}

// Sync re-derives the session from the token store. It runs at start and
// whenever the store reports a write, including writes by other processes.
func (m *Manager) Sync(ctx context.Context) error {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	tokens, err := m.store.LoadTokens(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}

	m.mu.Lock()
	current := m.access
	m.mu.Unlock()

	switch {
	case tokens.Access == current:
		return nil
	case tokens.Access == "":
		m.logger.Info().Msg("Session ended elsewhere")
		m.client.ClearAuthorization()
		m.becomeAnonymous(nil)
		return nil
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.access = tokens.Access
	m.expiry = tokenExpiry(tokens.Access)
	m.user = nil
	m.lastErr = nil
	m.state = models.StateAuthenticated
	authenticated := m.snapshotLocked()
	m.state = models.StateProfileLoading
	loading := m.snapshotLocked()
	m.signalLocked()
	m.mu.Unlock()

	m.logger.Info().Msg("Session picked up from token store")
	m.deliver(authenticated)
	m.deliver(loading)
	m.startProfileFetch(gen)
	return nil
}

// IsAuthenticated reports whether an access token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Authenticated()
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() models.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn for every transition.
func (m *Manager) Subscribe(fn func(models.SessionSnapshot)) func() {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// AwaitReady blocks until the profile is loaded or the session is anonymous.
func (m *Manager) AwaitReady(ctx context.Context) (*models.Profile, error) {
	for {
		m.mu.Lock()
		state, user, lastErr, changed := m.state, m.user, m.lastErr, m.changed
		m.mu.Unlock()

		switch state {
		case models.StateReady:
			return user, nil
		case models.StateAnonymous:
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, models.ErrNotAuthenticated
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Manager) snapshotLocked() models.SessionSnapshot {
	snap := models.SessionSnapshot{
		State:         m.state,
		Authenticated: m.state.Authenticated(),
		LastError:     m.lastErr,
	}
	if snap.Authenticated {
		snap.TokenExpiry = m.expiry
		if m.user != nil {
			u := *m.user
			snap.User = &u
		}
	}
	return snap
}

// signalLocked wakes AwaitReady callers.
func (m *Manager) signalLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Manager) deliver(snap models.SessionSnapshot) {
	m.mu.Lock()
	fns := make([]func(models.SessionSnapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// classifyLoginError maps a token exchange failure to an AuthError. Any
// backend rejection below 500 counts as invalid credentials.
func classifyLoginError(err error) error {
	var authErr *models.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return models.NewAuthError(models.AuthInvalidCredentials, err)
	}
	return models.NewAuthError(models.AuthNetworkFailure, err)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func tokenExpiry(access string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
