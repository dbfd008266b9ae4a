// internal/domain/auth/service.go
package auth

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/session"
	"ctf-portal/internal/validate"
	"ctf-portal/pkg/errors"
)

type AuthService struct {
	api       domain.Sender
	validator validate.Validator
	logger    *zap.Logger
}

func NewAuthService(api domain.Sender, v validate.Validator, logger *zap.Logger) *AuthService {
	return &AuthService{
		api:       api,
		validator: v,
		logger:    logger,
	}
}

// Login checks the credentials against the platform. The platform reads
// them from the query string.
func (s *AuthService) Login(ctx context.Context, creds session.Credentials) (*session.Grant, error) {
	if err := s.validator.Validate(&creds); err != nil {
		return nil, err
	}

	q := url.Values{"account": {creds.Account}, "password": {creds.Password}}
	var user User
	err := domain.Fetch(ctx, s.api, http.MethodPost, "/users/login", client.Options{Query: q}, &user, "login failed")
	if err != nil {
		return nil, err
	}
	return &session.Grant{Principal: user.Principal(), Token: user.Token}, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	return domain.Do(ctx, s.api, http.MethodPost, "/users/logout", client.Options{}, "logout failed")
}

// Register creates an account. The platform may or may not echo the new
// user back; nil is returned when it does not.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	env, err := s.api.Send(ctx, http.MethodPost, "/users/register", client.Options{Body: req})
	if err != nil {
		return nil, err
	}
	if _, err := normalize.Unwrap(env); err != nil {
		return nil, errors.WithFallback(err, "registration failed")
	}
	if !env.HasData() {
		return nil, nil
	}
	var user User
	if err := normalize.UnwrapInto(env, &user); err != nil {
		s.logger.Debug("register response carried no user", zap.Error(err))
		return nil, nil
	}
	return &user, nil
}

// Check asks the platform whether the current session is live. Any failure
// reads as "not logged in".
func (s *AuthService) Check(ctx context.Context) *User {
	var resp checkResponse
	if err := domain.Get(ctx, s.api, "/users/check", nil, &resp, "check failed"); err != nil {
		s.logger.Debug("session check failed", zap.Error(err))
		return nil
	}
	if !resp.LoggedIn {
		return nil
	}
	return resp.User
}

func (s *AuthService) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := domain.Get(ctx, s.api, "/users/profile", nil, &user, "failed to load profile"); err != nil {
		return nil, err
	}
	return &user, nil
}
