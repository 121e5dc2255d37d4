// Package auth manages bearer-token sessions and credential storage.
package auth

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/studioline/shootplan/internal/output"
)

// TokenEnv overrides stored credentials when set.
const TokenEnv = "SHOOTPLAN_TOKEN"

// Manager resolves and persists the token for one API origin.
type Manager struct {
	origin string
	store  *Store
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a manager for origin backed by store.
func NewManager(origin string, store *Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{origin: origin, store: store, logger: logger, now: time.Now}
}

// Origin returns the API origin credentials are keyed by.
func (m *Manager) Origin() string { return m.origin }

// Store returns the underlying credential store.
func (m *Manager) Store() *Store { return m.store }

// Token returns the active bearer token. SHOOTPLAN_TOKEN wins over stored
// credentials. A stored JWT past its expiry is reported as a session
// expiry without a network round trip.
func (m *Manager) Token() (string, error) {
	if token := os.Getenv(TokenEnv); token != "" {
		return token, nil
	}
	creds, err := m.store.Load(m.origin)
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return "", output.ErrAuth("Not logged in")
		}
		return "", output.ErrAuth("Could not read stored credentials: " + err.Error())
	}
	if creds.ExpiresAt > 0 && !m.now().Before(time.Unix(creds.ExpiresAt, 0)) {
		return "", output.ErrSessionExpired()
	}
	return creds.Token, nil
}

// Session builds a Session for the current token whose expiry clears the
// stored credentials.
func (m *Manager) Session() (*Session, error) {
	token, err := m.Token()
	if err != nil {
		return nil, err
	}
	s := NewSession(token)
	s.OnLogout(func(reason LogoutReason) {
		if os.Getenv(TokenEnv) != "" {
			return
		}
		if err := m.store.Delete(m.origin); err != nil {
			m.logger.Warn("clearing credentials failed", "origin", m.origin, "error", err)
			return
		}
		m.logger.Debug("credentials cleared", "origin", m.origin, "reason", string(reason))
	})
	return s, nil
}

// Login stores token for the origin.
func (m *Manager) Login(token string) (*Credentials, error) {
	info, err := Inspect(token)
	if err != nil {
		return nil, output.ErrUsageHint("Token could not be read", err.Error())
	}
	if info.Expired(m.now()) {
		return nil, output.ErrUsageHint("Token has already expired", "Request a new token and try again")
	}
	creds := &Credentials{Token: token, Subject: info.Subject, SavedAt: m.now().UTC()}
	if !info.ExpiresAt.IsZero() {
		creds.ExpiresAt = info.ExpiresAt.Unix()
	}
	if err := m.store.Save(m.origin, creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// Logout removes stored credentials for the origin.
func (m *Manager) Logout() error {
	return m.store.Delete(m.origin)
}

// Status describes the stored login for `auth status`.
type Status struct {
	Origin        string     `json:"origin"`
	Authenticated bool       `json:"authenticated"`
	Source        string     `json:"source,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
	Keyring       bool       `json:"keyring"`
}

// Status reports where the token comes from and whether it is still valid.
func (m *Manager) Status() Status {
	st := Status{Origin: m.origin, Keyring: m.store.UsingKeyring()}
	token := os.Getenv(TokenEnv)
	if token != "" {
		st.Source = "env"
	} else if creds, err := m.store.Load(m.origin); err == nil {
		token = creds.Token
		st.Source = "store"
	}
	if token == "" {
		return st
	}
	st.Authenticated = true
	if info, err := Inspect(token); err == nil && info.JWT {
		st.Subject = info.Subject
		if !info.ExpiresAt.IsZero() {
			exp := info.ExpiresAt
			st.ExpiresAt = &exp
			st.Expired = info.Expired(m.now())
			st.Authenticated = !st.Expired
		}
	}
	return st
}
