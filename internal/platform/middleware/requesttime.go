package middleware

import (
	"net/http"
	"time"

	"sessiongate/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and
// stores it in the context. All expiry checks and audit timestamps within a
// single request then share the same "now", so a session cannot be judged
// valid by one component and expired by another in the same pass.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
