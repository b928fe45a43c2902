package problem

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const (
	TypeValidation   = "https://wemeetoffline.app/problems/validation-error"
	TypeUnauthorized = "https://wemeetoffline.app/problems/unauthorized"
	TypeForbidden    = "https://wemeetoffline.app/problems/forbidden"
	TypeNotFound     = "https://wemeetoffline.app/problems/not-found"
	TypeConflict     = "https://wemeetoffline.app/problems/conflict"
	TypeServerError  = "https://wemeetoffline.app/problems/server-error"
)

type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Write maps an error to a problem+json response. Detail is only exposed to
// clients outside production for 5xx; 4xx details always pass through since
// they describe the client's own request.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string) {
	p := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}

	if err != nil {
		if status < http.StatusInternalServerError || env == "development" || env == "test" {
			p.Detail = err.Error()
		} else {
			p.Detail = http.StatusText(status)
		}
	}

	if r != nil {
		p.Instance = r.URL.Path

		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.Err(err).
			Int("status", status).
			Str("type", typ).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	}

	writeProblem(w, p)
}

func Validation(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusBadRequest, TypeValidation, "Invalid request", err, env)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusUnauthorized, TypeUnauthorized, "Unauthorized", err, env)
}

func Forbidden(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusForbidden, TypeForbidden, "Forbidden", err, env)
}

func NotFound(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusNotFound, TypeNotFound, "Not found", err, env)
}

func Conflict(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusConflict, TypeConflict, "Conflict", err, env)
}

func Internal(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusInternalServerError, TypeServerError, "Server error", err, env)
}

func writeProblem(w http.ResponseWriter, p ProblemDetails) {
	payload, err := json.Marshal(p)
	if err != nil {
		fallback := fmt.Sprintf("{\"type\":\"about:blank\",\"title\":\"%s\",\"status\":500}", http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
