// internal/api/handler/auth.go
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"ctf-portal/internal/domain/auth"
	"ctf-portal/internal/portal"
	"ctf-portal/internal/session"
	"ctf-portal/pkg/errors"
)

type AuthHandler struct {
	codec    *portal.CookieCodec
	registry *portal.Registry
	logger   *zap.Logger
}

func NewAuthHandler(codec *portal.CookieCodec, registry *portal.Registry, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		codec:    codec,
		registry: registry,
		logger:   logger,
	}
}

type loginResponse struct {
	Principal *session.Principal `json:"principal"`
	Redirect  string             `json:"redirect"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if err := decode(r, &creds); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	p, err := agent(r).Session.Login(r.Context(), creds)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, loginResponse{Principal: p, Redirect: landingFor(p)}, http.StatusOK)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	user, err := agent(r).Auth.Register(r.Context(), &req)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, user, http.StatusCreated)
}

// Logout always succeeds locally. The sid is rotated so the browser starts
// over with a clean agent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	a := agent(r)
	a.Session.Logout(r.Context())
	h.registry.Forget(a.Sid)
	http.SetCookie(w, h.codec.Clear())
	WriteMessage(w, r, "logged out")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := agent(r).Session.Principal()
	if p == nil {
		WriteError(w, r, h.logger, errors.NewAuthenticationError("not logged in"))
		return
	}
	WriteJSON(w, r, p, http.StatusOK)
}

func landingFor(p *session.Principal) string {
	if p.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}
