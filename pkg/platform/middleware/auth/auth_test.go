package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s *stubValidator) ValidateToken(_ string) (*JWTClaims, error) {
	return s.claims, s.err
}

func protected(validator JWTValidator) (http.Handler, *string) {
	var seenUserID string
	handler := RequireAuth(validator, slog.New(slog.DiscardHandler))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenUserID = GetUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)
	return handler, &seenUserID
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handler, _ := protected(&stubValidator{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	handler, _ := protected(&stubValidator{err: errors.New("bad signature")})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireAuth_ValidTokenExposesClaims(t *testing.T) {
	handler, seenUserID := protected(&stubValidator{claims: &JWTClaims{UserID: "user-1", Email: "ada@example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer signed")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-1", *seenUserID)
}
