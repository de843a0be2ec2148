package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"authbroker/internal/handshake/service"
	identitymodels "authbroker/internal/identity/models"
	"authbroker/internal/provider"
	dErrors "authbroker/pkg/domain-errors"
	"authbroker/pkg/platform/httputil"
	"authbroker/pkg/requestcontext"
)

// Service defines the handshake operations the HTTP layer depends on.
type Service interface {
	Initiate(ctx context.Context) (*service.InitiateResult, error)
	CompleteCallback(ctx context.Context, handleID string, profile provider.Profile) (*service.CallbackResult, error)
	FailCallback(ctx context.Context, handleID string)
	Poll(ctx context.Context, handleID string) *service.PollResult
}

// Handler exposes the three client-facing legs of the OAuth handshake plus
// the provider redirect and callback.
type Handler struct {
	service  Service
	provider provider.OAuthProvider
	logger   *slog.Logger
}

// New creates a Handler. The provider may be nil when no OAuth provider is
// configured; the redirect and callback routes then answer 503.
func New(svc Service, oauthProvider provider.OAuthProvider, logger *slog.Logger) *Handler {
	return &Handler{
		service:  svc,
		provider: oauthProvider,
		logger:   logger,
	}
}

// Register mounts the handshake routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/oauth/initiate", h.HandleInitiate)
	r.Get("/auth/oauth/google", h.HandleProviderRedirect)
	r.Get("/auth/oauth/google/callback", h.HandleProviderCallback)
	r.Get("/auth/oauth/status/{sessionId}", h.HandleStatus)
}

type initiateResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	OAuthURL  string `json:"oauthUrl"`
	Message   string `json:"message"`
}

// HandleInitiate registers a new handshake and hands the client its session
// handle plus the URL that starts the provider leg.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Initiate(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to initiate handshake",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, initiateResponse{
		Success:   true,
		SessionID: result.Handle,
		OAuthURL:  result.OAuthURL,
		Message:   "OAuth session initiated",
	})
}

// HandleProviderRedirect bounces the user agent to the provider consent page,
// threading the session handle through as OAuth state.
func (h *Handler) HandleProviderRedirect(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "no oauth provider configured"))
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing sessionId parameter"))
		return
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(sessionID), http.StatusFound)
}

type callbackResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	User    *identitymodels.Summary `json:"user,omitempty"`
	Token   string                  `json:"token,omitempty"`
}

// HandleProviderCallback receives the provider redirect. Its JSON body is
// informational only; the browser tab running the consent flow is not the
// channel credentials are delivered on.
func (h *Handler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := r.URL.Query().Get("state")
	if state == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing state parameter"))
		return
	}

	if h.provider == nil {
		h.service.FailCallback(ctx, state)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "no oauth provider configured"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" || r.URL.Query().Get("error") != "" {
		h.service.FailCallback(ctx, state)
		httputil.WriteJSON(w, http.StatusUnauthorized, callbackResponse{
			Success: false,
			Message: "Google authentication failed",
		})
		return
	}

	profile, err := h.provider.Exchange(ctx, code)
	if err != nil {
		h.logger.WarnContext(ctx, "provider code exchange failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		h.service.FailCallback(ctx, state)
		httputil.WriteJSON(w, http.StatusUnauthorized, callbackResponse{
			Success: false,
			Message: "Google authentication failed",
		})
		return
	}

	result, err := h.service.CompleteCallback(ctx, state, *profile)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to complete handshake",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, httputil.ToHTTPStatus(dErrors.CodeOf(err)), callbackResponse{
			Success: false,
			Message: "Google authentication failed",
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, callbackResponse{
		Success: true,
		Message: "Google authentication successful",
		User:    &result.User,
		Token:   result.Credential.Token,
	})
}

type statusResponse struct {
	Success bool                    `json:"success"`
	Status  string                  `json:"status"`
	Message string                  `json:"message"`
	User    *identitymodels.Summary `json:"user,omitempty"`
	Token   string                  `json:"token,omitempty"`
}

// HandleStatus is the poll leg. A completed handshake is consumed on its
// first observation; subsequent polls for the same handle see not_found.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	result := h.service.Poll(r.Context(), sessionID)
	switch result.Status {
	case service.PollCompleted:
		httputil.WriteJSON(w, http.StatusOK, statusResponse{
			Success: true,
			Status:  string(service.PollCompleted),
			Message: "OAuth completed successfully",
			User:    result.User,
			Token:   result.Credential.Token,
		})
	case service.PollFailed:
		httputil.WriteJSON(w, http.StatusUnauthorized, statusResponse{
			Success: false,
			Status:  string(service.PollFailed),
			Message: "OAuth authentication failed",
		})
	case service.PollPending:
		httputil.WriteJSON(w, http.StatusOK, statusResponse{
			Success: false,
			Status:  string(service.PollPending),
			Message: "OAuth authentication still pending",
		})
	default:
		httputil.WriteJSON(w, http.StatusNotFound, statusResponse{
			Success: false,
			Status:  string(service.PollNotFound),
			Message: "OAuth session not found or expired",
		})
	}
}
