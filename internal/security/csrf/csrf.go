// Package csrf issues single use, time boxed tokens bound to a client and a form id.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	// DefaultLifetime is how long an issued token stays valid.
	DefaultLifetime = 30 * time.Minute

	tokenBytes = 32

	HeaderToken  = "X-CSRF-Token"
	HeaderFormID = "X-Form-Id"

	// ClientCookie carries the random id that scopes a caller's tokens.
	ClientCookie = "cw_csrf_client"
)

// Token is an issued CSRF token.
type Token struct {
	FormID    string    `json:"formId"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager stores one live token per client and form id.
type Manager struct {
	// mu makes validate and delete a single step
	mu       sync.Mutex
	tokens   *cache.Cache
	lifetime time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lifetime = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for rejected validations.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Manager whose expired entries are swept every cleanupInterval.
func NewManager(cleanupInterval time.Duration, opts ...Option) *Manager {
	m := &Manager{
		lifetime: DefaultLifetime,
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.tokens = cache.New(m.lifetime, cleanupInterval)
	return m
}

func key(clientID, formID string) string {
	return clientID + "/" + formID
}

// Generate issues a new token for formID, replacing any previous one the same client holds.
func (m *Manager) Generate(clientID, formID string) (Token, error) {
	value, err := randomHex(tokenBytes)
	if err != nil {
		return Token{}, fmt.Errorf("generate csrf token: %w", err)
	}

	now := m.now()
	t := Token{
		FormID:    formID,
		Token:     value,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.lifetime),
	}

	m.mu.Lock()
	m.tokens.Set(key(clientID, formID), t, m.lifetime)
	m.mu.Unlock()
	return t, nil
}

// Validate accepts a matching token once. Expired tokens are purged, mismatches leave the token in place.
func (m *Manager) Validate(clientID, formID, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(clientID, formID)
	raw, found := m.tokens.Get(k)
	if !found {
		m.logger.Warn().Str("event", "csrf_violation").Str("formId", formID).Msg("No CSRF token issued for form")
		return false
	}
	stored := raw.(Token)

	if m.now().After(stored.ExpiresAt) {
		m.tokens.Delete(k)
		m.logger.Warn().Str("event", "csrf_violation").Str("formId", formID).Msg("Expired CSRF token")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(stored.Token), []byte(token)) != 1 {
		m.logger.Warn().Str("event", "csrf_violation").Str("formId", formID).Msg("CSRF token mismatch")
		return false
	}

	m.tokens.Delete(k)
	return true
}

// Cleanup removes expired tokens immediately.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, item := range m.tokens.Items() {
		if t, ok := item.Object.(Token); ok && now.After(t.ExpiresAt) {
			m.tokens.Delete(k)
		}
	}
	m.tokens.DeleteExpired()
}

// Count returns the number of live tokens.
func (m *Manager) Count() int {
	return m.tokens.ItemCount()
}

// SecurityHeaders returns the headers a client should send with a protected request.
// A token is issued when formID is not empty.
func (m *Manager) SecurityHeaders(clientID, formID string) (map[string]string, error) {
	headers := map[string]string{
		"Content-Type":     "application/json",
		"X-Requested-With": "XMLHttpRequest",
	}
	if formID == "" {
		return headers, nil
	}

	t, err := m.Generate(clientID, formID)
	if err != nil {
		return nil, err
	}
	headers[HeaderToken] = t.Token
	headers[HeaderFormID] = formID
	return headers, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
