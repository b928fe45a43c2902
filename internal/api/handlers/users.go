package handlers

import (
	"errors"
	"net/http"

	"github.com/wemeetoffline/server/internal/api/middleware"
	"github.com/wemeetoffline/server/internal/api/problem"
	"github.com/wemeetoffline/server/internal/auth"
	"github.com/wemeetoffline/server/internal/domain/users"
)

type UsersHandler struct {
	Service *users.Service
	Env     string
}

func NewUsersHandler(service *users.Service, env string) *UsersHandler {
	return &UsersHandler{Service: service, Env: env}
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Picture  string `json:"pfp"`
	Phone    string `json:"phone"`
}

func (h *UsersHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	err := h.Service.Signup(r.Context(), users.SignupParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Picture:  req.Picture,
		Phone:    req.Phone,
	})
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "account created, check your email to verify"})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	token, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type googleLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

func (h *UsersHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	token, err := h.Service.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type codeRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *UsersHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	if err := h.Service.VerifyEmail(r.Context(), req.Code); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "email verified"})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *UsersHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	if err := h.Service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password reset email sent"})
}

type resetPasswordRequest struct {
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	if err := h.Service.ResetPassword(r.Context(), req.Code, req.Password); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "password updated"})
}

func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Service.Profile(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	Name    *string `json:"name"`
	Picture *string `json:"pfp"`
	Phone   *string `json:"phone"`
}

func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	err := h.Service.UpdateProfile(r.Context(), middleware.UserID(r.Context()), users.UpdateProfileParams{
		Name:    req.Name,
		Picture: req.Picture,
		Phone:   req.Phone,
	})
	if err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "profile updated"})
}

func (h *UsersHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RequestOTP(r.Context(), middleware.UserID(r.Context())); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "verification code sent"})
}

type verifyOTPRequest struct {
	OTP string `json:"otp" validate:"required"`
}

func (h *UsersHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decode(r, &req); err != nil {
		problem.Validation(w, r, err, h.Env)
		return
	}

	if err := h.Service.VerifyOTP(r.Context(), middleware.UserID(r.Context()), req.OTP); err != nil {
		h.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "phone verified"})
}

func (h *UsersHandler) GetUserID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"userId": middleware.UserID(r.Context())})
}

func (h *UsersHandler) mapError(w http.ResponseWriter, r *http.Request, err error) {
	var verr users.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, auth.ErrInvalidAuthCode), errors.Is(err, users.ErrAlreadyVerified):
		problem.Validation(w, r, err, h.Env)
	case errors.Is(err, users.ErrInvalidCredentials),
		errors.Is(err, users.ErrCodeMismatch),
		errors.Is(err, users.ErrOTPMismatch):
		problem.Unauthorized(w, r, err, h.Env)
	case errors.Is(err, users.ErrNotVerified):
		problem.Forbidden(w, r, err, h.Env)
	case errors.Is(err, users.ErrNotFound):
		problem.NotFound(w, r, err, h.Env)
	case errors.Is(err, users.ErrEmailTaken), errors.Is(err, users.ErrPhoneVerified):
		problem.Conflict(w, r, err, h.Env)
	default:
		problem.Internal(w, r, err, h.Env)
	}
}
