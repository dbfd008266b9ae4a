// internal/api/handler/response.go
package handler

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"ctf-portal/internal/normalize"
	"ctf-portal/internal/portal"
	"ctf-portal/pkg/errors"
)

// Response is the portal's JSON envelope. It mirrors the upstream's so the
// browser code reads both the same way.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON sends a successful envelope around data.
func WriteJSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	render.Status(r, status)
	render.JSON(w, r, Response{Success: true, Data: data})
}

// WriteMessage sends a successful envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, r *http.Request, msg string) {
	render.JSON(w, r, Response{Success: true, Message: msg})
}

// WriteError maps err onto a status and sends a failed envelope. Unknown
// errors are logged and reported as internal.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	render.Status(r, status)
	render.JSON(w, r, Response{Success: false, Message: msg})
}

func classify(err error) (int, string) {
	var (
		validation *errors.ValidationError
		badRequest *errors.BadRequestError
		authErr    *errors.AuthenticationError
		apiErr     *errors.ApiError
		httpErr    *errors.HttpError
		timeout    *errors.TimeoutError
		network    *errors.NetworkError
		missingID  *errors.MissingIdentifierError
	)
	switch {
	case stderrors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case stderrors.As(err, &badRequest):
		return http.StatusBadRequest, badRequest.Message
	case stderrors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Message
	case stderrors.As(err, &apiErr):
		// the platform refused; its wording goes to the user verbatim
		return http.StatusUnprocessableEntity, apiErr.Error()
	case stderrors.As(err, &timeout):
		return http.StatusGatewayTimeout, "the platform took too long to answer"
	case stderrors.As(err, &httpErr), stderrors.As(err, &network), stderrors.As(err, &missingID):
		return http.StatusBadGateway, "the platform is unavailable, please try again later"
	default:
		return http.StatusInternalServerError, errors.NewInternalError().Error()
	}
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return errors.NewBadRequestError("invalid request payload")
	}
	return nil
}

// agent returns the request's agent. The session middleware guarantees one
// on every portal route.
func agent(r *http.Request) *portal.Agent {
	return portal.AgentFrom(r.Context())
}

func pathID(r *http.Request, key string) (normalize.ID, error) {
	id, err := normalize.ParseID(chi.URLParam(r, key))
	if err != nil {
		return 0, errors.NewBadRequestError("invalid " + key)
	}
	return id, nil
}

func queryID(r *http.Request, key string) (normalize.ID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	id, err := normalize.ParseID(raw)
	if err != nil {
		return 0, errors.NewBadRequestError("invalid " + key)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
