// Package authstate answers "is this user signed in" for a checkout session.
//
// The local probe only checks for the session cookie. The server is asked
// when the caller needs the authoritative answer, and a rejected cookie is
// remembered until it changes.
package authstate

import (
	"context"
	"net/http"
	"sync"
)

// Config names the cookie that carries the user's session.
type Config struct {
	CookieName string `env:"AUTH_COOKIE_NAME" envDefault:"access_token"`
}

// CookieSource exposes the cookies currently held for the user.
type CookieSource interface {
	Cookies() []*http.Cookie
}

// Verifier asks the server whether the session is valid.
type Verifier interface {
	Me(ctx context.Context) (bool, error)
}

// Checker implements checkout.AuthChecker.
type Checker struct {
	cookieName string
	cookies    CookieSource
	verifier   Verifier

	mu       sync.Mutex
	rejected string
}

// New creates a Checker. It panics if cookies or verifier is nil.
func New(cfg Config, cookies CookieSource, verifier Verifier) *Checker {
	if cookies == nil {
		panic("authstate: cookie source cannot be nil")
	}
	if verifier == nil {
		panic("authstate: verifier cannot be nil")
	}
	name := cfg.CookieName
	if name == "" {
		name = "access_token"
	}
	return &Checker{cookieName: name, cookies: cookies, verifier: verifier}
}

// Authenticated reports whether a session cookie is present and was not
// rejected by the last revalidation.
func (c *Checker) Authenticated(_ context.Context) bool {
	token := c.token()
	if token == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return token != c.rejected
}

// Revalidate asks the server. Transport errors leave the cached state alone.
func (c *Checker) Revalidate(ctx context.Context) (bool, error) {
	ok, err := c.verifier.Me(ctx)
	if err != nil {
		return c.Authenticated(ctx), err
	}

	c.mu.Lock()
	if ok {
		c.rejected = ""
	} else {
		c.rejected = c.token()
	}
	c.mu.Unlock()

	return ok && c.token() != "", nil
}

func (c *Checker) token() string {
	for _, ck := range c.cookies.Cookies() {
		if ck.Name == c.cookieName {
			return ck.Value
		}
	}
	return ""
}
