// internal/server/server.go
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ctf-portal/internal/api/client"
	"ctf-portal/internal/api/handler"
	"ctf-portal/internal/config"
	"ctf-portal/internal/guard"
	"ctf-portal/internal/portal"
	"ctf-portal/internal/session"
	"ctf-portal/internal/validate"
)

const (
	shutdownTimeout = 10 * time.Second
	readTimeout     = 15 * time.Second
)

type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	logger   *zap.Logger
	table    *guard.Table
	codec    *portal.CookieCodec
	registry *portal.Registry
	hub      *portal.Hub
	poller   *portal.Poller

	auth    *handler.AuthHandler
	views   *handler.ViewHandler
	actions *handler.ActionHandler
	ws      *handler.WebSocketHandler
}

// New builds the portal. Every browser sid gets its own agent whose session
// lives in provider. opts reach every agent's API client.
func New(cfg *config.Config, provider session.Provider, logger *zap.Logger, opts ...client.Option) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	hub := portal.NewHub(logger)
	codec := portal.NewCookieCodec(cfg.Server)
	registry := portal.NewRegistry(cfg.API, provider, validate.New(), hub, logger, opts...)

	s := &Server{
		cfg:      cfg,
		router:   r,
		logger:   logger,
		table:    guard.DefaultTable(),
		codec:    codec,
		registry: registry,
		hub:      hub,
		poller:   portal.NewPoller(registry, hub, cfg.Server.NotificationInterval, cfg.Server.SessionTTL, logger),
		auth:     handler.NewAuthHandler(codec, registry, logger),
		views:    handler.NewViewHandler(logger),
		actions:  handler.NewActionHandler(logger),
		ws:       handler.NewWebSocketHandler(hub, logger),
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests and
// disconnects websocket tabs.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: readTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("portal listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.poller.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("portal shutting down")
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) setupRoutes() {
	s.router.Group(func(r chi.Router) {
		r.Use(s.sessions)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.auth.Login)
			r.Post("/register", s.auth.Register)
			r.Post("/logout", s.auth.Logout)
			r.Get("/me", s.auth.Me)
		})
		r.Get("/ws", s.ws.HandleConnection)

		r.Group(func(r chi.Router) {
			r.Use(s.guardPage)

			// the guard always redirects "/" to the landing page
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, guard.LandingPath, http.StatusFound)
			})
			r.Get(guard.LoginPath, s.views.Login)
			r.Get("/register", s.views.Register)
			r.Get(guard.LandingPath, s.views.Dashboard)
			r.Get("/competitions", s.views.Competitions)
			r.Get("/competitions/{id}", s.views.Competition)
			r.Get("/teams", s.views.Teams)
			r.Get("/problems", s.views.Problems)
			r.Get("/leaderboard", s.views.Leaderboard)
			r.Get("/notifications", s.views.Notifications)
			r.Get("/profile", s.views.Profile)
			r.Get("/admin", s.views.Admin)
			r.Get("/admin/users", s.views.AdminUsers)
			r.Get("/admin/teams", s.views.AdminTeams)
			r.Get("/admin/competitions", s.views.AdminCompetitions)
			r.Get("/admin/flag-submissions", s.views.AdminFlagSubmissions)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/challenges/{id}/submit", s.actions.SubmitFlag)
			r.Post("/teams", s.actions.CreateTeam)
			r.Post("/teams/{id}/apply", s.actions.ApplyTeam)
			r.Post("/teams/{id}/leave", s.actions.LeaveTeam)
			r.Get("/writeups/{id}/download", s.actions.DownloadWriteUp)
		})
	})
}
