package handlers

import (
	"net/http"

	"github.com/wemeetoffline/server/internal/api/middleware"
	"github.com/wemeetoffline/server/internal/api/problem"
)

// Comment endpoints hang off the events handler; comments only exist inside
// an event. Every mutation responds with the re-populated tree.

type commentsResponse struct {
	Comments any `json:"comments"`
}

func (h *EventsHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	comments, err := h.Service.Comments(r.Context(), req.Title)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

type addCommentRequest struct {
	Title   string `json:"title" validate:"required"`
	Comment string `json:"comment" validate:"required"`
}

func (h *EventsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	comments, err := h.Service.AddComment(r.Context(), middleware.UserID(r.Context()), req.Title, req.Comment)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

type addReplyRequest struct {
	Title     string `json:"title" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
	Reply     string `json:"reply" validate:"required"`
}

func (h *EventsHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	var req addReplyRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	comments, err := h.Service.AddReply(r.Context(), middleware.UserID(r.Context()), req.Title, req.CommentID, req.Reply)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

type editCommentRequest struct {
	Title     string `json:"title" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
	Comment   string `json:"comment" validate:"required"`
}

func (h *EventsHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	var req editCommentRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	comments, err := h.Service.EditComment(r.Context(), middleware.UserID(r.Context()), req.Title, req.CommentID, req.Comment)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

type editReplyRequest struct {
	Title     string `json:"title" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
	ReplyID   string `json:"replyId" validate:"required"`
	Reply     string `json:"reply" validate:"required"`
}

func (h *EventsHandler) EditReply(w http.ResponseWriter, r *http.Request) {
	var req editReplyRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	comments, err := h.Service.EditReply(r.Context(), middleware.UserID(r.Context()), req.Title, req.CommentID, req.ReplyID, req.Reply)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

type deleteCommentRequest struct {
	Title     string `json:"title" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
}

func (h *EventsHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	var req deleteCommentRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	comments, err := h.Service.DeleteComment(r.Context(), middleware.UserID(r.Context()), req.Title, req.CommentID)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}

type deleteReplyRequest struct {
	Title     string `json:"title" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
	ReplyID   string `json:"replyId" validate:"required"`
}

func (h *EventsHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	var req deleteReplyRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	comments, err := h.Service.DeleteReply(r.Context(), middleware.UserID(r.Context()), req.Title, req.CommentID, req.ReplyID)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commentsResponse{Comments: comments})
}
