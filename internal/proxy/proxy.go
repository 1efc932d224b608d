// Package proxy forwards allowed requests to the upstream application.
//
// The gateway owns no business routes: everything the gate lets through, and
// everything outside the protected set, is handed to the app server behind
// UPSTREAM_URL. The proxy adds the standard X-Forwarded-* headers and carries
// the gateway's request ID so upstream logs correlate with gate decisions.
package proxy

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sessiongate/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// Handler is the pass-through reverse proxy. Construct with New.
type Handler struct {
	rp     *httputil.ReverseProxy
	tracer trace.Tracer
}

// New builds a proxy for the given upstream base URL.
func New(upstream *url.URL, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
			if id := requestcontext.RequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(requestIDHeader, id)
			}
		},
		// Flush as bytes arrive so streamed upstream responses (SSE,
		// chunked HTML) are not held back by buffering.
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "upstream request failed",
				"request_id", requestcontext.RequestID(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
	return &Handler{
		rp:     rp,
		tracer: otel.Tracer("sessiongate/internal/proxy"),
	}
}

// ServeHTTP forwards the request inside a span. The response writer is passed
// through untouched so upgrades and hijacks keep working.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "proxy.forward",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		),
	)
	defer span.End()
	h.rp.ServeHTTP(w, r.WithContext(ctx))
}
