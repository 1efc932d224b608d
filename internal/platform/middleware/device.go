package middleware

import (
	"net/http"

	"sessiongate/internal/device"
	"sessiongate/pkg/requestcontext"
)

// Device parses the User-Agent into a display name ("Chrome on macOS") plus
// a fingerprint and stores both in the context. Parsing happens once per
// request here rather than in every consumer. It reads the header and the
// client address directly from the request, so ordering relative to
// ClientMetadata does not matter.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.Header.Get("User-Agent")
		ctx := requestcontext.WithDevice(r.Context(), device.Describe(rawUA))
		ctx = requestcontext.WithDeviceFingerprint(ctx, device.Fingerprint(rawUA, ClientIPFromRequest(r)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
