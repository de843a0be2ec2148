// Package request assigns every inbound request a unique ID for log
// correlation.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"authbroker/pkg/requestcontext"
)

const headerRequestID = "X-Request-Id"

// ID middleware honors an incoming X-Request-Id header when present and
// generates one otherwise, echoing it back on the response.
func ID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
