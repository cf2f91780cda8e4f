// internal/app/system/auth/auth.go

// Package auth manages the per-command-session context: which organization
// the caller belongs to, which local user they authenticated as, and which
// network they are currently working against. The session is constructed at
// login and discarded at logout; nothing here is ambient process state
// beyond the cookie store itself.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	SessionName = "felehub-session"

	isAuthKey  = "is_authenticated"
	orgKey     = "organization"
	userKey    = "username"
	roleKey    = "role"
	networkKey = "active_network"
)

// Store is initialised once via InitSessionStore.
var Store *sessions.CookieStore

// SessionUser is what we cache in the session and inject into r.Context().
type SessionUser struct {
	Organization string
	Username     string
	Role         string
	// Network is the fele network the session is currently using; empty
	// until the caller selects one.
	Network string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the session user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// SignIn writes an authenticated session for the given user.
func SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Values[isAuthKey] = true
	sess.Values[orgKey] = u.Organization
	sess.Values[userKey] = u.Username
	sess.Values[roleKey] = u.Role
	sess.Values[networkKey] = u.Network
	return sess.Save(r, w)
}

// SignOut clears the session.
func SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SetActiveNetwork records the network the session works against.
func SetActiveNetwork(w http.ResponseWriter, r *http.Request, network string) error {
	sess, _ := Store.Get(r, SessionName)
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return fmt.Errorf("no authenticated session")
	}
	sess.Values[networkKey] = network
	return sess.Save(r, w)
}

// LoadSessionUser injects the session user into context if signed in.
// If the session store has not been initialized yet, it is a no-op.
func LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Store == nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, _ := Store.Get(r, SessionName)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				Organization: getString(sess, orgKey),
				Username:     getString(sess, userKey),
				Role:         getString(sess, roleKey),
				Network:      getString(sess, networkKey),
			}
			r = WithUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without a session user. This is a JSON
// API, so the response is a plain 401 rather than a login redirect.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOrganization ensures the session user belongs to the organization
// named in the route. Cross-organization access is a 403, signed-out is 401.
func RequireOrganization(orgFromRequest func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if u.Organization != orgFromRequest(r) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// InitSessionStore initializes the global session Store. The secure flag
// controls Secure cookies and the SameSite mode: None for cross-site HTTPS
// use in production, Lax for local development over http.
func InitSessionStore(sessionKey, domain string, secure bool, logger *zap.Logger) error {
	if sessionKey == "" {
		return fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	Store = store

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))
	return nil
}

// WithUser returns a shallow copy of r whose context carries u as the
// session user. Handlers read it back through CurrentUser.
func WithUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func getString(s *sessions.Session, key string) string {
	v, _ := s.Values[key].(string)
	return v
}
