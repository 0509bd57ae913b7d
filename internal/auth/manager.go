// Package auth implements the E*TRADE three-legged OAuth flow and the
// credential lifecycle around it: acquiring a grant, persisting it, judging
// staleness, and renewing it without user interaction.
package auth

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/etrade-mcp/internal/credentials"
)

// Manager drives the token lifecycle for a single profile. All operations
// for one profile are serialized by its mutex: a concurrent EnsureAuthorized
// waits for the in-flight attempt instead of spawning a second flow (and
// therefore never a second callback listener). Different profiles hold
// independent managers and may authorize concurrently.
type Manager struct {
	mu sync.Mutex

	profileID   string
	environment string
	transport   *Transport
	store       *credentials.Store
	verifier    VerifierSource
	logger      zerolog.Logger

	// strictRenewPersist controls whether a renewal whose expiry cannot be
	// persisted fails loudly (default) or degrades to a logged warning.
	strictRenewPersist bool

	now func() time.Time

	authorized       bool
	oauthToken       string
	oauthTokenSecret string
	expiresAt        time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithStrictRenewPersist selects between failing a renewal when the new
// expiry cannot be written to the store (strict) and keeping the renewed
// in-memory session with a warning (best-effort).
func WithStrictRenewPersist(strict bool) Option {
	return func(m *Manager) { m.strictRenewPersist = strict }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(profileID, environment string, transport *Transport, store *credentials.Store, verifier VerifierSource, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		profileID:          profileID,
		environment:        environment,
		transport:          transport,
		store:              store,
		verifier:           verifier,
		logger:             logger.With().Str("profile", profileID).Logger(),
		strictRenewPersist: true,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) ProfileID() string { return m.profileID }

// EnsureAuthorized guarantees a usable session: adopt a fresh persisted
// grant, run the full flow when nothing usable exists, or renew an aging
// grant. A failed renewal surfaces as *RenewalError without falling back to
// an interactive flow; the caller must invoke Authorize explicitly.
func (m *Manager) EnsureAuthorized() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if !m.authorized {
		rec, err := m.store.Load(m.profileID, m.environment)
		if err != nil {
			// Corrupt store contents count as no usable record.
			m.logger.Warn().Err(err).Msg("Could not read persisted tokens, starting fresh authorization")
		}
		if rec != nil && !isStale(now, rec.ExpiresAt) {
			m.adopt(rec.OAuthToken, rec.OAuthTokenSecret, rec.ExpiresAt)
			m.logger.Info().Time("expires_at", rec.ExpiresAt).Msg("Using persisted tokens (still valid)")
			return nil
		}
		if rec != nil && now.Before(rec.ExpiresAt) {
			// Inside the staleness window but not hard-expired: the grant
			// is still renewable, so adopt it and extend it instead of
			// running a fresh interactive flow.
			m.adopt(rec.OAuthToken, rec.OAuthTokenSecret, rec.ExpiresAt)
			m.logger.Info().Msg("Persisted tokens expiring soon, renewing")
			return m.renewLocked()
		}
		if rec != nil {
			m.logger.Info().Msg("Persisted tokens expired, starting interactive authorization")
		}
		return m.authorizeLocked()
	}

	if isStale(now, m.expiresAt) {
		return m.renewLocked()
	}
	return nil
}

// Authorize runs the full three-legged flow unconditionally and persists the
// result.
func (m *Manager) Authorize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authorizeLocked()
}

func (m *Manager) authorizeLocked() error {
	m.logger.Info().Msg("Starting E*TRADE OAuth authorization flow")

	// The request-token pair lives only for this attempt and is discarded
	// on any outcome.
	resourceOwnerKey, resourceOwnerSecret, err := m.transport.RequestToken()
	if err != nil {
		m.reset()
		return err
	}
	m.logger.Info().Msg("Received request token")

	authorizationURL := m.transport.AuthorizationURL(resourceOwnerKey)

	verifier, err := m.verifier.Verifier(authorizationURL)
	if err != nil {
		m.reset()
		return err
	}

	oauthToken, oauthTokenSecret, err := m.transport.AccessToken(resourceOwnerKey, resourceOwnerSecret, verifier)
	if err != nil {
		m.reset()
		return err
	}

	expiresAt := calculateExpiry(m.now())
	if err := m.persist(oauthToken, oauthTokenSecret, expiresAt); err != nil {
		m.reset()
		return err
	}

	m.adopt(oauthToken, oauthTokenSecret, expiresAt)
	m.logger.Info().Time("expires_at", expiresAt).Msg("✅ Authorization successful")
	return nil
}

func (m *Manager) renewLocked() error {
	if !m.authorized {
		return ErrNotAuthorized
	}

	m.logger.Info().Msg("🔄 Renewing tokens")

	if err := m.transport.Renew(m.oauthToken, m.oauthTokenSecret); err != nil {
		m.logger.Error().Err(err).Msg("❌ Token renewal failed")
		return &RenewalError{ProfileID: m.profileID, Err: err}
	}

	// Renewal extends validity without issuing new token strings; only the
	// expiry changes.
	m.expiresAt = calculateExpiry(m.now())

	if err := m.persist(m.oauthToken, m.oauthTokenSecret, m.expiresAt); err != nil {
		if m.strictRenewPersist {
			return fmt.Errorf("renewed tokens but failed to persist new expiry: %w", err)
		}
		m.logger.Warn().Err(err).Msg("Renewed tokens but could not persist new expiry")
	}

	m.logger.Info().Time("expires_at", m.expiresAt).Msg("✅ Tokens renewed")
	return nil
}

func (m *Manager) persist(oauthToken, oauthTokenSecret string, expiresAt time.Time) error {
	return m.store.Save(m.profileID, credentials.Record{
		OAuthToken:       oauthToken,
		OAuthTokenSecret: oauthTokenSecret,
		ExpiresAt:        expiresAt,
		Environment:      m.environment,
	})
}

func (m *Manager) adopt(oauthToken, oauthTokenSecret string, expiresAt time.Time) {
	m.authorized = true
	m.oauthToken = oauthToken
	m.oauthTokenSecret = oauthTokenSecret
	m.expiresAt = expiresAt
}

func (m *Manager) reset() {
	m.authorized = false
	m.oauthToken = ""
	m.oauthTokenSecret = ""
	m.expiresAt = time.Time{}
}

// SignedClient returns an HTTP client signing requests with the current
// grant. Calling it before a session exists is a usage error.
func (m *Manager) SignedClient() (*http.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authorized {
		return nil, ErrNotAuthorized
	}
	return m.transport.SignedClient(m.oauthToken, m.oauthTokenSecret), nil
}

// ExpiresAt reports the current grant's expiry, zero when no session exists.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiresAt
}
