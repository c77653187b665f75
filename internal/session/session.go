// Package session decodes and validates the locally held access token and
// turns it into navigation decisions for protected views.
//
// The token is decoded without signature verification: the guard gates
// client-side navigation only, and the server re-validates the bearer
// token on every request it receives.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload the client cares about.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrMalformedToken = errors.New("session: malformed token")

var parser = jwt.NewParser()

// Decode parses the token's payload segment. It fails on malformed
// structure and never panics past this boundary.
func Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformedToken
	}
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// Decision is the outcome of a route access check.
type Decision int

const (
	// Allow lets the protected view render.
	Allow Decision = iota
	// RedirectLogin sends the caller to the login entry point (no
	// session, or an invalid/expired one).
	RedirectLogin
	// RedirectHome sends an authenticated caller with insufficient
	// privilege to the default landing surface.
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	}
	return "unknown"
}

// Guard validates the stored token on each access check. Expiry is
// detected lazily at check time; there is no background timer. Any
// invalid or expired token is evicted from the store immediately so the
// next check sees a consistent no-session state.
type Guard struct {
	store Store
	now   func() time.Time
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

// Claims decodes the stored token. The second return is false when no
// usable session exists; eviction side effects match Valid.
func (g *Guard) Claims() (*Claims, bool) {
	token := g.store.Token()
	if token == "" {
		return nil, false
	}
	claims, err := Decode(token)
	if err != nil {
		_ = g.store.Clear()
		return nil, false
	}
	if g.expired(claims) {
		_ = g.store.Clear()
		return nil, false
	}
	return claims, true
}

// Valid reports whether a parsable, unexpired session is present.
func (g *Guard) Valid() bool {
	_, ok := g.Claims()
	return ok
}

// Expired reports whether the stored token decodes but is past its exp.
// Like Valid it evicts the expired token.
func (g *Guard) Expired() bool {
	token := g.store.Token()
	if token == "" {
		return false
	}
	claims, err := Decode(token)
	if err != nil {
		_ = g.store.Clear()
		return false
	}
	if g.expired(claims) {
		_ = g.store.Clear()
		return true
	}
	return false
}

// Role returns the session's role, or "" without a valid session.
func (g *Guard) Role() string {
	claims, ok := g.Claims()
	if !ok {
		return ""
	}
	return claims.Role
}

// RequireRole reports whether a valid session with the given role exists.
func (g *Guard) RequireRole(role string) bool {
	return g.Role() == role && role != ""
}

// Authorize composes the two route gates. The authenticated gate runs
// first: no session and expired session both redirect to login. The role
// gate only applies when requiredRole is non-empty; a non-matching role
// redirects to the landing surface, distinguishing "not logged in" from
// "logged in but insufficient privilege".
func (g *Guard) Authorize(requiredRole string) Decision {
	claims, ok := g.Claims()
	if !ok {
		return RedirectLogin
	}
	if requiredRole != "" && claims.Role != requiredRole {
		return RedirectHome
	}
	return Allow
}

// Logout destroys the session.
func (g *Guard) Logout() error {
	return g.store.Clear()
}

func (g *Guard) expired(claims *Claims) bool {
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(g.now())
}
