package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authbroker/internal/handshake/service"
	identitymodels "authbroker/internal/identity/models"
	jwttoken "authbroker/internal/jwt_token"
	"authbroker/internal/provider"
	dErrors "authbroker/pkg/domain-errors"
	"authbroker/pkg/testutil"
)

type fakeService struct {
	initiateResult *service.InitiateResult
	initiateErr    error

	callbackResult *service.CallbackResult
	callbackErr    error
	failedHandles  []string

	pollResult *service.PollResult
}

func (f *fakeService) Initiate(_ context.Context) (*service.InitiateResult, error) {
	return f.initiateResult, f.initiateErr
}

func (f *fakeService) CompleteCallback(_ context.Context, _ string, _ provider.Profile) (*service.CallbackResult, error) {
	return f.callbackResult, f.callbackErr
}

func (f *fakeService) FailCallback(_ context.Context, handleID string) {
	f.failedHandles = append(f.failedHandles, handleID)
}

func (f *fakeService) Poll(_ context.Context, _ string) *service.PollResult {
	return f.pollResult
}

type fakeProvider struct {
	profile     *provider.Profile
	exchangeErr error
}

func (f *fakeProvider) Name() string { return "google" }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/consent?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, _ string) (*provider.Profile, error) {
	return f.profile, f.exchangeErr
}

func newRouter(svc Service, p provider.OAuthProvider) http.Handler {
	r := chi.NewRouter()
	New(svc, p, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestHandleInitiate_ReturnsSessionEnvelope(t *testing.T) {
	svc := &fakeService{
		initiateResult: &service.InitiateResult{
			Handle:   "handle-1",
			OAuthURL: "http://localhost:8080/auth/oauth/google?sessionId=handle-1",
		},
	}
	router := newRouter(svc, &fakeProvider{})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/auth/oauth/initiate"))

	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "success", true)

	resp := testutil.UnmarshalResponse[initiateResponse](t, rr)
	assert.Equal(t, "handle-1", resp.SessionID)
	assert.Contains(t, resp.OAuthURL, "sessionId=handle-1")
}

func TestHandleInitiate_ServiceErrorBecomesJSONError(t *testing.T) {
	svc := &fakeService{initiateErr: dErrors.New(dErrors.CodeInternal, "store down")}
	router := newRouter(svc, &fakeProvider{})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/auth/oauth/initiate"))

	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	testutil.AssertJSONContains(t, rr, "error", "internal_error")
}

func TestHandleProviderRedirect_BouncesToConsentPage(t *testing.T) {
	router := newRouter(&fakeService{}, &fakeProvider{})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/google?sessionId=handle-1"))

	testutil.AssertStatus(t, rr, http.StatusFound)
	assert.Equal(t, "https://accounts.example.com/consent?state=handle-1", rr.Header().Get("Location"))
}

func TestHandleProviderRedirect_MissingSessionID(t *testing.T) {
	router := newRouter(&fakeService{}, &fakeProvider{})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/google"))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestHandleProviderRedirect_NoProviderConfigured(t *testing.T) {
	router := newRouter(&fakeService{}, nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/google?sessionId=handle-1"))

	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}

func TestHandleProviderCallback_SuccessReturnsInformationalBody(t *testing.T) {
	svc := &fakeService{
		callbackResult: &service.CallbackResult{
			User: identitymodels.Summary{
				ID:    "user-1",
				Name:  "Ada Lovelace",
				Email: "ada@example.com",
			},
			Credential: jwttoken.Credential{Token: "signed"},
		},
	}
	fp := &fakeProvider{profile: &provider.Profile{
		Subject:       "sub-1",
		Email:         "ada@example.com",
		EmailVerified: true,
		DisplayName:   "Ada Lovelace",
	}}
	router := newRouter(svc, fp)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/google/callback?state=handle-1&code=abc"))

	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[callbackResponse](t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, "signed", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "user-1", resp.User.ID)
}

func TestHandleProviderCallback_MissingStateIsBadRequest(t *testing.T) {
	router := newRouter(&fakeService{}, &fakeProvider{})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/google/callback?code=abc"))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestHandleProviderCallback_DenialFailsTheHandshake(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc, &fakeProvider{})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/google/callback?state=handle-1&error=access_denied"))

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	assert.Equal(t, []string{"handle-1"}, svc.failedHandles)
}

func TestHandleProviderCallback_ExchangeFailureFailsTheHandshake(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc, &fakeProvider{exchangeErr: assert.AnError})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/google/callback?state=handle-1&code=abc"))

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	assert.Equal(t, []string{"handle-1"}, svc.failedHandles)
}

func TestHandleStatus_StatusEnvelopes(t *testing.T) {
	tests := []struct {
		name       string
		result     *service.PollResult
		wantStatus int
		wantBody   string
	}{
		{
			name: "completed",
			result: &service.PollResult{
				Status:     service.PollCompleted,
				User:       &identitymodels.Summary{ID: "user-1"},
				Credential: &jwttoken.Credential{Token: "signed"},
			},
			wantStatus: http.StatusOK,
			wantBody:   "completed",
		},
		{
			name:       "failed",
			result:     &service.PollResult{Status: service.PollFailed},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "failed",
		},
		{
			name:       "pending",
			result:     &service.PollResult{Status: service.PollPending},
			wantStatus: http.StatusOK,
			wantBody:   "pending",
		},
		{
			name:       "not found",
			result:     &service.PollResult{Status: service.PollNotFound},
			wantStatus: http.StatusNotFound,
			wantBody:   "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&fakeService{pollResult: tt.result}, &fakeProvider{})

			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/oauth/status/handle-1"))

			testutil.AssertStatus(t, rr, tt.wantStatus)
			testutil.AssertJSONContains(t, rr, "status", tt.wantBody)
		})
	}
}
