package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for a proxying gateway.
// Read/write timeouts stay unset so slow upstream responses are not cut
// off mid-proxy; ReadHeaderTimeout still bounds header slowloris.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
