package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"ctf-portal/internal/api/handler"
	"ctf-portal/internal/guard"
	"ctf-portal/internal/portal"
)

// sessions attaches the caller's agent, minting a sid cookie for new or
// tampered browsers.
func (s *Server) sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, err := s.codec.Parse(r)
		if err != nil {
			sid = portal.NewSid()
			ck, err := s.codec.Issue(sid)
			if err != nil {
				handler.WriteError(w, r, s.logger, err)
				return
			}
			http.SetCookie(w, ck)
		}

		a, err := s.registry.Get(r.Context(), sid)
		if err != nil {
			handler.WriteError(w, r, s.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(portal.WithAgent(r.Context(), a)))
	})
}

// guardPage runs the route guard against the declared route table.
func (s *Server) guardPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := portal.AgentFrom(r.Context())
		d := s.table.Check(a.State(), r.URL.Path)
		if !d.Allow {
			s.deny(w, r, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth guards actions, which are not navigation targets.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := portal.AgentFrom(r.Context())
		d := guard.Decide(a.State(), guard.Route{Path: r.URL.Path, RequiresAuth: true})
		if !d.Allow {
			s.deny(w, r, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type denial struct {
	Redirect string `json:"redirect"`
}

// deny redirects navigations and answers XHR with a failed envelope: 401
// when the guard sends the user to log in, 403 otherwise.
func (s *Server) deny(w http.ResponseWriter, r *http.Request, d guard.Decision) {
	s.logger.Debug("navigation denied",
		zap.String("path", r.URL.Path),
		zap.String("redirect", d.Redirect),
		zap.String("reason", d.Reason),
	)
	if !wantsJSON(r) {
		http.Redirect(w, r, d.Redirect, http.StatusFound)
		return
	}
	status := http.StatusForbidden
	if d.Redirect == guard.LoginPath {
		status = http.StatusUnauthorized
	}
	render.Status(r, status)
	render.JSON(w, r, handler.Response{Success: false, Message: d.Reason, Data: denial{Redirect: d.Redirect}})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
