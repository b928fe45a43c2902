package handlers

import (
	"net/http"

	"github.com/wemeetoffline/server/internal/api/problem"
	"github.com/wemeetoffline/server/internal/audit"
)

type LogsHandler struct {
	Recorder *audit.Recorder
	Env      string
}

func NewLogsHandler(recorder *audit.Recorder, env string) *LogsHandler {
	return &LogsHandler{Recorder: recorder, Env: env}
}

type logRequest struct {
	Origin  string `json:"origin" validate:"required"`
	Type    string `json:"type"`
	Message string `json:"message" validate:"required"`
}

func (h *LogsHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	entry, err := h.Recorder.Record(r.Context(), req.Origin, req.Type, req.Message)
	if err != nil {
		problem.Internal(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
