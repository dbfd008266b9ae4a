// internal/domain/auth/model.go
package auth

import (
	"encoding/json"

	"ctf-portal/internal/normalize"
	"ctf-portal/internal/session"
)

type User struct {
	ID             normalize.ID   `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Gender         string         `json:"gender,omitempty"`
	SchoolWorkunit string         `json:"schoolWorkunit,omitempty"`
	Role           session.Role   `json:"role"`
	Active         bool           `json:"active"`
	CreatedAt      normalize.Time `json:"createdAt"`
	// Token is set only when the upstream issues a bearer credential.
	Token string `json:"-"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	var wire struct{}
	rec, id, err := normalize.DecodeEntity(b, normalize.User, &wire)
	if err != nil {
		return err
	}
	active, ok := rec.Bool("userStatus", "active", "enabled")
	if !ok {
		active = true
	}
	*u = User{
		ID:             id,
		Name:           rec.Name(normalize.User),
		Email:          rec.String("userEmail", "email"),
		Phone:          rec.String("phoneNumber", "phone"),
		Gender:         rec.String("gender"),
		SchoolWorkunit: rec.String("schoolWorkunit"),
		Role:           session.ParseRole(rec.Text("userRole", "userType", "role")),
		Active:         active,
		CreatedAt:      rec.Time("createTime", "registerTime", "createdAt"),
		Token:          rec.String("token", "accessToken"),
	}
	return nil
}

// Principal is the session identity of u.
func (u *User) Principal() session.Principal {
	return session.Principal{ID: u.ID, Name: u.Name, Role: u.Role, Email: u.Email}
}

// RegisterRequest carries the fields the platform's register endpoint
// expects.
type RegisterRequest struct {
	UserName       string `json:"userName" validate:"required,notblank,min=2,max=32"`
	Password       string `json:"userPassword" validate:"required,min=6,max=64"`
	Phone          string `json:"phoneNumber" validate:"required,cnphone"`
	Email          string `json:"userEmail" validate:"required,email"`
	Gender         string `json:"gender,omitempty" validate:"omitempty,max=8"`
	SchoolWorkunit string `json:"schoolWorkunit,omitempty" validate:"omitempty,max=128"`
}

// checkResponse is the payload of /users/check.
type checkResponse struct {
	LoggedIn bool
	User     *User
}

func (c *checkResponse) UnmarshalJSON(b []byte) error {
	rec := normalize.ParseRecord(b)
	c.LoggedIn, _ = rec.Bool("isLoggedIn", "loggedIn")
	if !c.LoggedIn {
		return nil
	}
	src := b
	if nested, ok := rec["user"]; ok {
		src = nested
	}
	var u User
	if err := json.Unmarshal(src, &u); err == nil {
		c.User = &u
	}
	return nil
}
