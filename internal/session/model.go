package session

import (
	"net/http"
	"strings"
	"time"

	"ctf-portal/internal/normalize"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole maps the upstream role strings onto Role. Anything other than
// ADMIN, in any case, is an ordinary user.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// Principal is the authenticated identity.
type Principal struct {
	ID    normalize.ID `json:"id"`
	Name  string       `json:"name"`
	Role  Role         `json:"role"`
	Email string       `json:"email,omitempty"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Credentials are what the user types on the login form.
type Credentials struct {
	Account  string `json:"account" validate:"required,notblank,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// Grant is the outcome of a successful remote login.
type Grant struct {
	Principal Principal
	// Token is the bearer credential, empty when the upstream relies on its
	// session cookie alone.
	Token string
}

// Cookie is a persisted upstream cookie.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is what a Store persists: one authenticated principal.
type Record struct {
	Principal *Principal `json:"principal"`
	Token     string     `json:"token,omitempty"`
	Cookies   []Cookie   `json:"cookies,omitempty"`
	SavedAt   time.Time  `json:"savedAt"`
}

func toCookies(in []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(in))
	for _, c := range in {
		out = append(out, Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

func fromCookies(in []Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}
