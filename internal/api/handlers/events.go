package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/wemeetoffline/server/internal/api/middleware"
	"github.com/wemeetoffline/server/internal/api/problem"
	"github.com/wemeetoffline/server/internal/domain/events"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type addEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	BeginsAt    time.Time `json:"beginsAt" validate:"required"`
	EndsAt      time.Time `json:"endsAt" validate:"required"`
	IsVirtual   bool      `json:"isVirtual"`
	Address     string    `json:"address"`
	Tags        []string  `json:"tags"`
	Picture     string    `json:"picture"`
}

func (h *EventsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addEventRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	_, err := h.Service.Create(r.Context(), middleware.UserID(r.Context()), events.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		BeginsAt:    req.BeginsAt,
		EndsAt:      req.EndsAt,
		IsVirtual:   req.IsVirtual,
		Address:     req.Address,
		Tags:        req.Tags,
		Picture:     req.Picture,
	})
	if err != nil {
		// a taken title is a bad request, not a conflict, to match the
		// client's form validation
		if errors.Is(err, events.ErrConflict) {
			problem.Validation(w, r, err, h.Env)
			return
		}
		h.mapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "event created"})
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Service.List(r.Context())
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": summaries})
}

type listPageRequest struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit" validate:"required,min=1"`
}

func (h *EventsHandler) ListPage(w http.ResponseWriter, r *http.Request) {
	var req listPageRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	result, err := h.Service.ListPage(r.Context(), req.Page, req.Limit)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type titleRequest struct {
	Title string `json:"title" validate:"required"`
}

func (h *EventsHandler) GetByTitle(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	summary, err := h.Service.GetByTitle(r.Context(), req.Title)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
	Page  int64  `json:"page"`
	Limit int64  `json:"limit" validate:"required,min=1"`
}

func (h *EventsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	result, err := h.Service.Search(r.Context(), req.Query, req.Page, req.Limit)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type updateEventRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description"`
	BeginsAt    *time.Time `json:"beginsAt"`
	EndsAt      *time.Time `json:"endsAt"`
	IsVirtual   *bool      `json:"isVirtual"`
	Address     *string    `json:"address"`
	Tags        []string   `json:"tags"`
	Picture     *string    `json:"picture"`
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	err := h.Service.Update(r.Context(), middleware.UserID(r.Context()), req.Title, events.UpdateParams{
		Description: req.Description,
		BeginsAt:    req.BeginsAt,
		EndsAt:      req.EndsAt,
		IsVirtual:   req.IsVirtual,
		Address:     req.Address,
		Tags:        req.Tags,
		Picture:     req.Picture,
	})
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "event updated"})
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	if err := h.Service.Delete(r.Context(), middleware.UserID(r.Context()), req.Title); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "event deleted"})
}

func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	if err := h.Service.Register(r.Context(), middleware.UserID(r.Context()), req.Title); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "registration requested"})
}

func (h *EventsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	outcome, err := h.Service.Unregister(r.Context(), middleware.UserID(r.Context()), req.Title)
	if err != nil {
		h.mapError(w, r, err)
		return
	}

	message := "unregistered from event"
	if outcome == events.OutcomeRequestCancelled {
		message = "registration request cancelled"
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

type attendeeRequest struct {
	Title      string `json:"title" validate:"required"`
	AttendeeID string `json:"attendeeId" validate:"required"`
}

func (h *EventsHandler) ApproveAttendee(w http.ResponseWriter, r *http.Request) {
	var req attendeeRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	if err := h.Service.Approve(r.Context(), middleware.UserID(r.Context()), req.Title, req.AttendeeID); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "attendee approved"})
}

func (h *EventsHandler) RemoveAttendee(w http.ResponseWriter, r *http.Request) {
	var req attendeeRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	outcome, err := h.Service.Remove(r.Context(), middleware.UserID(r.Context()), req.Title, req.AttendeeID)
	if err != nil {
		h.mapError(w, r, err)
		return
	}

	message := "attendee removed"
	if outcome == events.OutcomeRejected {
		message = "registration request rejected"
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

func (h *EventsHandler) UserStatus(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	status, err := h.Service.StatusFor(r.Context(), middleware.UserID(r.Context()), req.Title)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *EventsHandler) AddressAndAttendees(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	disclosure, err := h.Service.AddressAndAttendees(r.Context(), middleware.UserID(r.Context()), req.Title)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, disclosure)
}

func (h *EventsHandler) mapError(w http.ResponseWriter, r *http.Request, err error) {
	var verr events.ValidationError
	switch {
	case errors.As(err, &verr):
		problem.Validation(w, r, err, h.Env)
	case errors.Is(err, events.ErrNotFound),
		errors.Is(err, events.ErrCommentNotFound),
		errors.Is(err, events.ErrReplyNotFound),
		errors.Is(err, events.ErrNotRegistered):
		problem.NotFound(w, r, err, h.Env)
	case errors.Is(err, events.ErrForbidden):
		problem.Forbidden(w, r, err, h.Env)
	case errors.Is(err, events.ErrConflict):
		problem.Conflict(w, r, err, h.Env)
	default:
		problem.Internal(w, r, err, h.Env)
	}
}
