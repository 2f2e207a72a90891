// Package sessionx manages the browser session that carries login state.
//
// Besides the authenticated identity, the session holds at most ONE pending
// second-factor state at a time: either the user ID of someone who passed
// password verification and still owes a one-time code, or a generated TOTP
// secret awaiting enrollment confirmation. Setting one pending state always
// clears the other, and neither is ever written to durable storage.
package sessionx

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	isAuthKey           = "is_authenticated"
	userIDKey           = "user_id"
	userRoleKey         = "user_role"
	pendingChallengeKey = "pending_2fa_user_id"
	pendingSecretKey    = "pending_2fa_secret"
)

// minKeyLength is the minimum signing key size accepted in secure mode.
const minKeyLength = 32

// ErrWeakSessionKey is returned when the signing key is too short for
// production use.
var ErrWeakSessionKey = errors.New("sessionx: session key must be at least 32 bytes")

// ErrNoSessionKey is returned when no key was configured and a random one
// could not be generated.
var ErrNoSessionKey = errors.New("sessionx: failed to generate a session key")

// Manager wraps a cookie store with typed accessors for the login flow.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

// NewManager builds a session manager. An empty key gets a random one, which
// is only acceptable for dev since sessions won't survive a restart.
func NewManager(key, name string, maxAge time.Duration, secure bool) (*Manager, error) {
	if key == "" {
		if secure {
			return nil, ErrWeakSessionKey
		}
		// GenerateRandomKey returns nil when the entropy source fails; an
		// empty signing key must never reach the cookie store.
		raw := securecookie.GenerateRandomKey(minKeyLength)
		if raw == nil {
			return nil, ErrNoSessionKey
		}
		key = string(raw)
	}
	if secure && len(key) < minKeyLength {
		return nil, ErrWeakSessionKey
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{store: store, name: name}, nil
}

func (m *Manager) get(r *http.Request) *sessions.Session {
	// Get never fails fatally for cookie stores: a bad cookie yields a
	// fresh session, which is exactly the restart-from-login behavior
	// the flow wants.
	s, _ := m.store.Get(r, m.name)
	return s
}

// Actor returns the authenticated identity held by the session.
func (m *Manager) Actor(r *http.Request) (userID, role string, ok bool) {
	s := m.get(r)
	if auth, _ := s.Values[isAuthKey].(bool); !auth {
		return "", "", false
	}
	userID, _ = s.Values[userIDKey].(string)
	role, _ = s.Values[userRoleKey].(string)
	return userID, role, userID != ""
}

// Authenticate marks the session as fully logged in and destroys any pending
// second-factor state.
func (m *Manager) Authenticate(w http.ResponseWriter, r *http.Request, userID, role string) error {
	s := m.get(r)
	s.Values[isAuthKey] = true
	s.Values[userIDKey] = userID
	s.Values[userRoleKey] = role
	delete(s.Values, pendingChallengeKey)
	delete(s.Values, pendingSecretKey)
	return m.save(w, r, s)
}

// Clear logs the session out and expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	for k := range s.Values {
		delete(s.Values, k)
	}
	s.Options.MaxAge = -1
	return m.save(w, r, s)
}

// SetPendingChallenge records that userID passed password verification and
// owes a one-time code. Replaces any pending enrollment.
func (m *Manager) SetPendingChallenge(w http.ResponseWriter, r *http.Request, userID string) error {
	s := m.get(r)
	s.Values[pendingChallengeKey] = userID
	delete(s.Values, pendingSecretKey)
	return m.save(w, r, s)
}

// PendingChallenge returns the user ID awaiting a one-time code, if any.
func (m *Manager) PendingChallenge(r *http.Request) (string, bool) {
	id, _ := m.get(r).Values[pendingChallengeKey].(string)
	return id, id != ""
}

// SetPendingEnrollment stores a generated TOTP secret awaiting confirmation.
// Replaces any pending challenge.
func (m *Manager) SetPendingEnrollment(w http.ResponseWriter, r *http.Request, secret string) error {
	s := m.get(r)
	s.Values[pendingSecretKey] = secret
	delete(s.Values, pendingChallengeKey)
	return m.save(w, r, s)
}

// PendingEnrollment returns the TOTP secret awaiting confirmation, if any.
func (m *Manager) PendingEnrollment(r *http.Request) (string, bool) {
	secret, _ := m.get(r).Values[pendingSecretKey].(string)
	return secret, secret != ""
}

// ClearPending drops any pending second-factor state without touching the
// authenticated identity.
func (m *Manager) ClearPending(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	delete(s.Values, pendingChallengeKey)
	delete(s.Values, pendingSecretKey)
	return m.save(w, r, s)
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) error {
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("sessionx: save session: %w", err)
	}
	return nil
}
