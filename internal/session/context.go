package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity fields the engine cares about. They are decoded
// without signature verification: the backend is the verifying party, the
// client only needs subject and expiry for display and re-auth hints.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Context carries the bearer token through every component instead of the
// ambient shared-storage access the engine replaces. Init is load-or-absent;
// Teardown clears it on logout; Invalidate marks it dead when the backend
// answers with a 401-class status.
type Context struct {
	mu      sync.RWMutex
	token   string
	claims  *Claims
	invalid bool
}

// Load builds a session context from a stored token. An empty token yields
// an absent (inactive) session.
func Load(token string) *Context {
	c := &Context{}
	if token != "" {
		c.SetToken(token)
	}
	return c
}

func (c *Context) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.invalid = false
	c.claims = decodeClaims(token)
}

func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Active reports whether the session holds a token that has not been
// invalidated by the backend.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != "" && !c.invalid
}

func (c *Context) Claims() (Claims, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.claims == nil {
		return Claims{}, false
	}
	return *c.claims, true
}

// Invalidate marks the session dead after an AuthError. The token is kept so
// the caller can tell "expired" from "never logged in".
func (c *Context) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalid = true
}

// Teardown is the logout transition.
func (c *Context) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.claims = nil
	c.invalid = false
}

func decodeClaims(token string) *Claims {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims := &Claims{}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims
}
