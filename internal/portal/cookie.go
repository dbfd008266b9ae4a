// Package portal holds the per-browser plumbing of the web gateway: the signed
// sid cookie, the registry of per-sid service stacks, and the websocket hub
// that pushes notices to open tabs.
package portal

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ctf-portal/internal/config"
)

const tokenType = "portal_sid"

// ErrNoSid means the request carried no usable sid cookie.
var ErrNoSid = stderrors.New("no portal session cookie")

type sidClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// CookieCodec issues and verifies the browser's sid cookie. The cookie value
// is an HS256 JWT whose subject is the sid.
type CookieCodec struct {
	secret []byte
	name   string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCookieCodec(cfg config.ServerConfig) *CookieCodec {
	return &CookieCodec{
		secret: []byte(cfg.JWTSecret),
		name:   cfg.CookieName,
		ttl:    cfg.SessionTTL,
		secure: cfg.SecureCookies,
		now:    time.Now,
	}
}

// NewSid returns a fresh random session id.
func NewSid() string {
	return uuid.NewString()
}

// Issue signs sid into a cookie valid for the configured TTL.
func (c *CookieCodec) Issue(sid string) (*http.Cookie, error) {
	now := c.now()
	claims := sidClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("sign sid cookie: %w", err)
	}
	return &http.Cookie{
		Name:     c.name,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Parse returns the sid carried by r. Missing, tampered and expired cookies
// all yield ErrNoSid wrapped with the cause.
func (c *CookieCodec) Parse(r *http.Request) (string, error) {
	ck, err := r.Cookie(c.name)
	if err != nil {
		return "", ErrNoSid
	}
	var claims sidClaims
	_, err = jwt.ParseWithClaims(ck.Value, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSid, err)
	}
	if claims.Type != tokenType || claims.Subject == "" {
		return "", ErrNoSid
	}
	return claims.Subject, nil
}

// Clear returns a cookie that removes the sid from the browser.
func (c *CookieCodec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
