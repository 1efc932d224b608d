package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"sessiongate/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a correlation ID. An inbound X-Request-ID
// is trusted if present (the gateway usually sits behind a load balancer that
// sets one); otherwise a fresh UUID is generated. The ID is stored in the
// context and echoed on the response so clients can report it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
