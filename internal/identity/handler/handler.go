package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"authbroker/internal/identity/models"
	"authbroker/internal/identity/service"
	"authbroker/pkg/platform/httputil"
	"authbroker/pkg/platform/middleware/auth"
	"authbroker/pkg/requestcontext"
)

// Service defines the identity operations the HTTP layer depends on.
type Service interface {
	SignUp(ctx context.Context, req service.SignUpRequest) (*service.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*service.AuthResult, error)
	UpdateProfile(ctx context.Context, userID string, req service.UpdateProfileRequest) (*service.AuthResult, error)
}

// Handler exposes password registration, sign-in, and profile management.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// Register mounts the identity routes. requireAuth guards the profile route.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/auth/signup", h.HandleSignUp)
	r.Post("/auth/signin", h.HandleSignIn)
	r.With(requireAuth).Put("/auth/profile", h.HandleUpdateProfile)
}

type authResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	User    models.Summary `json:"user"`
	Token   string         `json:"token"`
}

func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[service.SignUpRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.SignUp(r.Context(), *req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "sign-up rejected",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "Account created",
		User:    result.User,
		Token:   result.Credential.Token,
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[signInRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "sign-in rejected",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Signed in",
		User:    result.User,
		Token:   result.Credential.Token,
	})
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[service.UpdateProfileRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.UpdateProfile(r.Context(), auth.GetUserID(r.Context()), *req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "profile update rejected",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: "Profile updated",
		User:    result.User,
		Token:   result.Credential.Token,
	})
}
