// Package gate decides, per request, whether a protected path may proceed.
//
// The gate wraps any http.Handler. Paths outside the protected prefix set
// pass through untouched with zero I/O. Protected paths get an identity
// check against the auth backend, scoped to an invocation-local cookie jar:
// cookies the backend sets mid-check (token refresh) are mirrored onto the
// request, accumulated, and applied to the response exactly once when the
// request is allowed through. Requests without a valid session are redirected
// to the login page with their query string intact.
//
// Every invocation is independent. All mutation is confined to the request,
// the response, and the jar owned by that invocation, so the gate is safe
// under any request concurrency the server provides.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sessiongate/internal/audit"
	"sessiongate/internal/authclient"
	"sessiongate/internal/platform/metrics"
	"sessiongate/pkg/requestcontext"
)

// Decisions and the reasons behind them, as recorded in metrics, audit events
// and trace attributes.
const (
	DecisionAllow    = "allow"
	DecisionRedirect = "redirect"

	ReasonAuthenticated   = "authenticated"
	ReasonNoSession       = "no_session"
	ReasonBackendError    = "backend_error"
	ReasonRevoked         = "revoked"
	ReasonRevocationError = "revocation_error"
	ReasonMissingTokenID  = "missing_token_id"
)

// IdentityChecker is the slice of the auth backend client the gate consumes:
// one call that validates or refreshes the session carried by the jar and
// reports the identity, or nil when there is none. Errors mean the backend
// could not be consulted; the gate fails closed on them.
type IdentityChecker interface {
	GetUser(ctx context.Context, jar authclient.CookieJar) (*authclient.Identity, error)
}

// RevocationChecker reports whether an access token has been denylisted
// since it was issued. Optional; when absent the gate trusts the backend's
// verdict alone.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuditPublisher receives one event per protected-path decision. Emit must
// never block the request path.
type AuditPublisher interface {
	Emit(event audit.Event)
}

// Config carries the gate's route semantics.
type Config struct {
	// ProtectedPrefixes is the path prefix set requiring a session. Matching
	// is purely textual and case-sensitive.
	ProtectedPrefixes []string
	// LoginPath is where unauthenticated requests are sent. Defaults to "/login".
	LoginPath string
}

// Gate is the session gate middleware. Construct with New; the zero value is
// not usable.
type Gate struct {
	prefixes  []string
	loginPath string

	checker  IdentityChecker
	denylist RevocationChecker
	audit    AuditPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New builds a Gate. denylist, auditor and m may be nil, disabling the
// revocation check, the audit trail and metrics respectively.
func New(cfg Config, checker IdentityChecker, denylist RevocationChecker, auditor AuditPublisher, m *metrics.Metrics, logger *slog.Logger) *Gate {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		prefixes:  cfg.ProtectedPrefixes,
		loginPath: cfg.LoginPath,
		checker:   checker,
		denylist:  denylist,
		audit:     auditor,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("sessiongate/internal/gate"),
	}
}

// Protected reports whether a path falls under the gate's protected set.
// This textual check is the authoritative decision; any coarse route-level
// filtering in front of the gate only saves invocations, it never widens or
// narrows the protected set.
func (g *Gate) Protected(path string) bool {
	for _, prefix := range g.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware wraps next with the session gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fast path: the prefix check runs before any collaborator, metric
		// or span is touched, so unprotected traffic costs one string scan.
		if !g.Protected(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		g.check(w, r, next)
	})
}

// check runs the full protected-path flow: identity check, optional
// revocation check, then exactly one response, either the forwarded request
// with all accumulated cookies applied or a redirect to the login page.
func (g *Gate) check(w http.ResponseWriter, r *http.Request, next http.Handler) {
	start := time.Now()
	ctx, span := g.tracer.Start(r.Context(), "gate.check",
		trace.WithAttributes(attribute.String("http.path", r.URL.Path)),
	)
	defer span.End()
	r = r.WithContext(ctx)

	jar := newCookieJar(r)
	identity, err := g.checker.GetUser(ctx, jar)

	var decision, reason string
	switch {
	case err != nil:
		// Backend unreachable. Fail closed: the browser sees the same
		// redirect as a missing session, only telemetry tells them apart.
		g.logger.ErrorContext(ctx, "identity check failed",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
		decision, reason = DecisionRedirect, ReasonBackendError
	case identity == nil:
		decision, reason = DecisionRedirect, ReasonNoSession
	default:
		decision, reason = g.checkRevocation(ctx, identity)
	}

	span.SetAttributes(
		attribute.String("gate.decision", decision),
		attribute.String("gate.reason", reason),
	)
	g.metrics.IncrementDecision(decision, reason)
	g.metrics.ObserveCheckLatency(time.Since(start))

	var subject string
	if identity != nil {
		subject = identity.Subject
	}
	g.emitAudit(ctx, r.URL.Path, decision, reason, subject)

	if decision == DecisionRedirect {
		// Cookies accumulated during the check are dropped here on purpose:
		// the login redirect always wins over cookie propagation.
		g.redirectToLogin(w, r)
		return
	}

	jar.apply(w)
	next.ServeHTTP(w, r.WithContext(requestcontext.WithSubject(ctx, identity.Subject)))
}

// checkRevocation maps the denylist verdict onto a decision. Any failure to
// get a verdict fails closed; the gate never surfaces errors to browsers.
func (g *Gate) checkRevocation(ctx context.Context, identity *authclient.Identity) (decision, reason string) {
	if g.denylist == nil {
		return DecisionAllow, ReasonAuthenticated
	}

	if identity.TokenID == "" {
		g.logger.WarnContext(ctx, "access token carries no ID, failing closed",
			"request_id", requestcontext.RequestID(ctx),
			"subject", identity.Subject,
		)
		return DecisionRedirect, ReasonMissingTokenID
	}

	revoked, err := g.denylist.IsRevoked(ctx, identity.TokenID)
	if err != nil {
		g.logger.ErrorContext(ctx, "revocation check failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return DecisionRedirect, ReasonRevocationError
	}
	if revoked {
		g.metrics.IncrementDenylistHit()
		g.logger.WarnContext(ctx, "denylisted token presented",
			"request_id", requestcontext.RequestID(ctx),
			"subject", identity.Subject,
			"token_id", identity.TokenID,
		)
		return DecisionRedirect, ReasonRevoked
	}
	return DecisionAllow, ReasonAuthenticated
}

// redirectToLogin sends the browser to the login page on the same origin,
// swapping only the path so the query string survives the round trip.
func (g *Gate) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := *r.URL
	target.Path = g.loginPath
	target.RawPath = ""
	// 307 keeps method and body intact should a non-GET hit a protected path.
	http.Redirect(w, r, target.String(), http.StatusTemporaryRedirect)
}

func (g *Gate) emitAudit(ctx context.Context, path, decision, reason, subject string) {
	if g.audit == nil {
		return
	}
	g.audit.Emit(audit.Event{
		Time:      requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Path:      path,
		Decision:  decision,
		Reason:    reason,
		Subject:   subject,
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
		DeviceFP:  requestcontext.DeviceFingerprint(ctx),
	})
}
