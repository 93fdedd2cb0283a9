// Package session owns the pairing of bearer token and verified profile, the
// stores that persist it, and the bootstrap/verification policy.
package session

import (
	"context"
	"fmt"
	"time"

	"paras/internal/domain"
	"paras/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthState is the three-valued authentication state. A token without a
// verified profile is Bootstrapping, which route guards must treat as neither
// authenticated nor anonymous.
type AuthState int

const (
	StateAnonymous AuthState = iota
	StateBootstrapping
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateBootstrapping:
		return "bootstrapping"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is a resolved, usable session.
type Session struct {
	ID      string
	Token   string
	Profile *models.Profile
}

// IsAuthenticated requires token and profile simultaneously.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != "" && s.Profile != nil
}

// HasRole matches case-insensitively; false when no profile is loaded.
func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}
	return s.Profile.HasRole(role)
}

func (s *Session) IsAdmin() bool {
	return s.HasRole(models.RoleAdmin)
}

// NRP returns the campus id of the session owner, empty when anonymous.
func (s *Session) NRP() string {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.NRP
}

// Manager applies the session lifecycle policy over a store and the remote
// auth endpoints.
type Manager struct {
	store  domain.SessionStore
	bind   domain.APIBinder
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time
}

func NewManager(store domain.SessionStore, bind domain.APIBinder, ttl time.Duration, logger *zerolog.Logger) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		bind:   bind,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Login authenticates against the remote API and persists a fresh session.
// An empty id lets the manager pick one (gateway); the CLI passes its fixed
// local id.
func (m *Manager) Login(ctx context.Context, id string, req models.LoginRequest) (*Session, error) {
	res, err := m.bind("").Login(ctx, req)
	if err != nil {
		return nil, err
	}

	if id == "" {
		id = uuid.NewString()
	}
	profile := res.Profile()

	now := m.now()
	expiry := now.Add(m.ttl)
	if res.ExpiresInMinutes > 0 {
		expiry = now.Add(time.Duration(res.ExpiresInMinutes) * time.Minute)
	}

	record := &models.SessionRecord{
		ID:        id,
		Token:     res.AccessToken,
		Profile:   &profile,
		CreatedAt: now,
		ExpiresAt: expiry,
	}
	if err := m.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.logger.Info().Str("nrp", profile.NRP).Msg("session established")
	return &Session{ID: id, Token: record.Token, Profile: record.Profile}, nil
}

// Resolve loads a session and applies the verification policy: a cached
// profile is trusted as-is (no re-verification, so a degraded /auth/me does
// not force logouts); a bare token gets exactly one verification attempt, and
// on its failure token and profile are cleared together.
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, AuthState, error) {
	if id == "" {
		return nil, StateAnonymous, nil
	}

	record, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, StateAnonymous, fmt.Errorf("load session: %w", err)
	}
	if record == nil || record.Token == "" {
		return nil, StateAnonymous, nil
	}
	if record.Expired(m.now()) {
		_ = m.store.Delete(ctx, id)
		return nil, StateAnonymous, nil
	}

	if record.Profile != nil {
		return &Session{ID: id, Token: record.Token, Profile: record.Profile}, StateAuthenticated, nil
	}

	profile, err := m.bind(record.Token).Me(ctx)
	if err != nil {
		// A cancelled or superseded verification must not tear the session
		// down; only a real rejection clears it.
		if ctx.Err() != nil {
			return nil, StateBootstrapping, ctx.Err()
		}
		m.logger.Warn().Err(err).Msg("session verification failed, clearing session")
		_ = m.store.Delete(ctx, id)
		return nil, StateAnonymous, nil
	}

	record.Profile = profile
	if err := m.store.Put(ctx, record); err != nil {
		m.logger.Warn().Err(err).Msg("persist verified profile failed")
	}
	return &Session{ID: id, Token: record.Token, Profile: profile}, StateAuthenticated, nil
}

// Logout clears the session record; token and profile are removed together.
func (m *Manager) Logout(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}
