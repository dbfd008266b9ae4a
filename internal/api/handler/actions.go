package handler

import (
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"ctf-portal/internal/domain/challenge"
	"ctf-portal/internal/domain/team"
	"ctf-portal/pkg/errors"
)

// ActionHandler serves the state-changing endpoints.
type ActionHandler struct {
	logger *zap.Logger
}

func NewActionHandler(logger *zap.Logger) *ActionHandler {
	return &ActionHandler{logger: logger}
}

func (h *ActionHandler) SubmitFlag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	var req challenge.SubmitRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	res, err := agent(r).Challenges.Submit(r.Context(), id, req.Flag)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, res, http.StatusOK)
}

func (h *ActionHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req team.CreateRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	t, err := agent(r).Teams.Create(r.Context(), &req)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, t, http.StatusCreated)
}

type applyRequest struct {
	Remark string `json:"remark"`
}

// ApplyTeam accepts an empty body; the remark is optional.
func (h *ActionHandler) ApplyTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	var req applyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !stderrors.Is(err, io.EOF) {
		WriteError(w, r, h.logger, errors.NewBadRequestError("invalid request payload"))
		return
	}

	app, err := agent(r).Teams.Apply(r.Context(), id, req.Remark)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, app, http.StatusOK)
}

func (h *ActionHandler) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	if err := agent(r).Teams.Leave(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteMessage(w, r, "left team")
}

// DownloadWriteUp relays the attachment under the name the platform gave it.
func (h *ActionHandler) DownloadWriteUp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	att, err := agent(r).WriteUps.Download(r.Context(), id)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(att.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(att.Data); err != nil {
		h.logger.Debug("write-up download interrupted", zap.Error(err))
	}
}
