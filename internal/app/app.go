// Package app wires one user agent's stack: an HTTP client adapter, the
// session manager persisting through a Store, and every domain module bound
// to that client. The CLI builds one; the portal builds one per browser.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/config"
	"ctf-portal/internal/domain/admin"
	"ctf-portal/internal/domain/auth"
	"ctf-portal/internal/domain/challenge"
	"ctf-portal/internal/domain/competition"
	"ctf-portal/internal/domain/flag"
	"ctf-portal/internal/domain/notification"
	"ctf-portal/internal/domain/team"
	"ctf-portal/internal/domain/writeup"
	"ctf-portal/internal/guard"
	"ctf-portal/internal/session"
	"ctf-portal/internal/validate"
)

type Services struct {
	Client        *client.Client
	Session       *session.Manager
	Auth          *auth.AuthService
	Competitions  *competition.Service
	Challenges    *challenge.Service
	Teams         *team.Service
	Flags         *flag.Service
	WriteUps      *writeup.Service
	Notifications *notification.Service
	Admin         *admin.Service
}

// New builds the stack for one user agent. Extra client options (notifier,
// unauthorized handler, transport) are applied after the logger.
func New(cfg config.APIConfig, store session.Store, v validate.Validator, logger *zap.Logger, opts ...client.Option) (*Services, error) {
	c, err := client.New(cfg, append([]client.Option{client.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	mgr := session.NewManager(store, session.WithCookies(c), session.WithLogger(logger))
	c.SetSession(mgr)

	authSvc := auth.NewAuthService(c, v, logger)
	mgr.SetAuthenticator(authSvc)

	teams := team.NewService(c, v, logger)
	flags := flag.NewService(c)
	return &Services{
		Client:        c,
		Session:       mgr,
		Auth:          authSvc,
		Competitions:  competition.NewService(c, v),
		Challenges:    challenge.NewService(c, v, logger),
		Teams:         teams,
		Flags:         flags,
		WriteUps:      writeup.NewService(c, v, logger),
		Notifications: notification.NewService(flags, teams, logger),
		Admin:         admin.NewService(c, v, logger),
	}, nil
}

// State is the guard view of the current session.
func (s *Services) State() guard.State {
	return guard.StateOf(s.Session)
}
