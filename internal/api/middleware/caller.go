package middleware

import (
	"net/http"

	"github.com/tessellary/casework-api/internal/api/shared"
)

// CallerIDHeader carries the caller identity on inbound API requests.
const CallerIDHeader = "X-Caller-ID"

// CallerMiddleware extracts the caller identity header and stores it in
// the request context. Requests without an identity are rejected before
// they reach a handler.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callerID := r.Header.Get(CallerIDHeader)
		if callerID == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing caller identity")
			return
		}

		ctx := shared.SetCallerID(r.Context(), callerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
