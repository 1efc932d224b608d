// Package authclient is the thin HTTP client for the hosted auth backend.
// It validates and refreshes browser sessions on behalf of the gate: session
// state travels exclusively in cookies, so every identity check is bound to a
// CookieJar whose reads observe the inbound request and whose writes must
// reach the final response.
//
// The client never verifies token signatures itself. Verification, issuance
// and storage belong to the backend; the gateway only asks "who is this?" and
// relays whatever cookies the backend wants set.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sessiongate/internal/platform/metrics"
	"sessiongate/pkg/platform/sentinel"
	"sessiongate/pkg/requestcontext"
)

const (
	// DefaultAccessCookie and DefaultRefreshCookie are the session cookie
	// names the hosted provider issues unless renamed in config.
	DefaultAccessCookie  = "sb-access-token"
	DefaultRefreshCookie = "sb-refresh-token"

	defaultRefreshSkew = 30 * time.Second

	// Fallback lifetime for the access cookie when the backend omits
	// expires_in from a refresh response.
	defaultAccessTTL = time.Hour

	// The refresh token outlives the access token so a returning browser can
	// re-establish a session days later.
	refreshCookieTTL = 30 * 24 * time.Hour
)

// CookieJar is the pair of cookie callbacks an identity check is bound to.
// The jar is scoped to a single gate invocation: reads reflect the inbound
// request plus any writes already made during the same check, and written
// batches must end up on the outgoing response in application order.
type CookieJar interface {
	// ReadCookies returns all cookies currently visible on the request.
	ReadCookies() []*http.Cookie

	// WriteCookies applies a batch of Set-Cookie entries. A batch is written
	// at most a handful of times per check (typically once, on token refresh).
	WriteCookies(batch []*http.Cookie)
}

// Identity is the authenticated principal the backend reported. Gate
// decisions branch on its presence only; Subject and Email enrich the audit
// trail and TokenID feeds the denylist check.
type Identity struct {
	Subject string
	Email   string
	TokenID string
}

// Config describes the hosted auth backend and how session cookies are issued.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://auth.example.com".
	BaseURL string
	// AnonKey is the publishable API key sent with every backend call.
	AnonKey string

	// AccessCookie and RefreshCookie name the session cookies. Empty values
	// fall back to the provider defaults.
	AccessCookie  string
	RefreshCookie string

	// RefreshSkew refreshes access tokens that expire within this window so
	// the upstream never receives an about-to-lapse token.
	RefreshSkew time.Duration

	// CookieDomain and CookieSecure shape the cookies written on refresh.
	CookieDomain string
	CookieSecure bool
}

// Client talks to the auth backend. It is safe for concurrent use; all
// per-request state lives in the CookieJar passed to GetUser.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a Client. httpClient may be nil, in which case a plain client
// with no timeout of its own is used: backend calls are bounded by the
// inbound request's context, not by the gateway.
func New(cfg Config, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if cfg.AccessCookie == "" {
		cfg.AccessCookie = DefaultAccessCookie
	}
	if cfg.RefreshCookie == "" {
		cfg.RefreshCookie = DefaultRefreshCookie
	}
	if cfg.RefreshSkew <= 0 {
		cfg.RefreshSkew = defaultRefreshSkew
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: httpClient, metrics: m, logger: logger}
}

// GetUser validates or refreshes the session carried by the jar's cookies.
// It returns the authenticated identity, or nil when the backend reports no
// session. An error means the backend could not be consulted at all; callers
// decide the failure policy (the gate fails closed).
//
// A refresh triggered here invokes jar.WriteCookies once with the full
// replacement cookie batch before the identity is returned.
func (c *Client) GetUser(ctx context.Context, jar CookieJar) (*Identity, error) {
	cookies := jar.ReadCookies()
	access := cookieValue(cookies, c.cfg.AccessCookie)
	refresh := cookieValue(cookies, c.cfg.RefreshCookie)

	if access == "" && refresh == "" {
		// No session material at all. Not worth a network round trip.
		return nil, nil
	}

	now := requestcontext.Now(ctx)

	if access != "" {
		info, err := peekToken(access)
		if err != nil {
			c.logger.DebugContext(ctx, "unreadable access token, attempting refresh", "error", err)
		} else if info.freshAt(now.Add(c.cfg.RefreshSkew)) {
			identity, err := c.fetchUser(ctx, access)
			if err != nil {
				return nil, err
			}
			if identity != nil {
				return identity, nil
			}
			// The backend rejected a token that looked fresh locally, e.g.
			// after a server-side sign-out. Fall through to the refresh path.
		}
	}

	if refresh == "" {
		return nil, nil
	}
	return c.refreshSession(ctx, refresh, jar)
}

// Health probes the backend's health endpoint. Used by the gateway's
// readiness reporting, never by the per-request decision path.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/auth/v1/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth backend health: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth backend health: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return nil
}

// userPayload is the slice of the backend's user object the gateway reads.
type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is the backend's refresh-grant response.
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         *userPayload `json:"user"`
}

// fetchUser asks the backend who the access token belongs to. A nil identity
// with nil error means the backend rejected the token (no session).
func (c *Client) fetchUser(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveBackendLatency("user", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("fetch user: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var user userPayload
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, fmt.Errorf("decode user response: %w", err)
		}
		return c.identityFrom(&user, accessToken), nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil

	default:
		return nil, fmt.Errorf("fetch user: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}

// refreshSession exchanges the refresh token for a new session, writes the
// replacement cookies through the jar, and returns the refreshed identity.
// A rejected refresh token means no session (nil, nil) and writes nothing.
func (c *Client) refreshSession(ctx context.Context, refreshToken string, jar CookieJar) (*Identity, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("marshal refresh request: %w", err)
	}

	url := c.cfg.BaseURL + "/auth/v1/token?grant_type=refresh_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveBackendLatency("refresh", time.Since(start))
	if err != nil {
		c.metrics.IncrementRefresh("failed")
		return nil, fmt.Errorf("refresh session: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var tokens tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
			c.metrics.IncrementRefresh("failed")
			return nil, fmt.Errorf("decode refresh response: %w", err)
		}
		if tokens.AccessToken == "" || tokens.RefreshToken == "" {
			c.metrics.IncrementRefresh("failed")
			return nil, fmt.Errorf("refresh response missing tokens: %w", sentinel.ErrUnavailable)
		}

		jar.WriteCookies(c.sessionCookies(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn))
		c.metrics.IncrementRefresh("ok")
		c.logger.DebugContext(ctx, "session refreshed",
			"request_id", requestcontext.RequestID(ctx),
		)

		if tokens.User != nil {
			return c.identityFrom(tokens.User, tokens.AccessToken), nil
		}
		// Unusual, but the grant succeeded: resolve the user explicitly.
		return c.fetchUser(ctx, tokens.AccessToken)

	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		// The refresh token is spent, revoked, or bogus. That is a fact about
		// the session, not an infrastructure failure.
		c.metrics.IncrementRefresh("failed")
		return nil, nil

	default:
		c.metrics.IncrementRefresh("failed")
		return nil, fmt.Errorf("refresh session: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}

// identityFrom combines the backend's user object with the token it rode in
// on. The token ID is best effort: a token the backend accepted but that
// carries no jti claim simply yields an identity without one.
func (c *Client) identityFrom(user *userPayload, accessToken string) *Identity {
	identity := &Identity{Subject: user.ID, Email: user.Email}
	if info, err := peekToken(accessToken); err == nil {
		identity.TokenID = info.TokenID
	}
	return identity
}

// sessionCookies builds the Set-Cookie batch for a refreshed session: the
// access token bounded by the backend's expires_in, and the longer-lived
// refresh token. Both stay out of script reach.
func (c *Client) sessionCookies(access, refresh string, expiresIn int) []*http.Cookie {
	if expiresIn <= 0 {
		expiresIn = int(defaultAccessTTL / time.Second)
	}
	return []*http.Cookie{
		{
			Name:     c.cfg.AccessCookie,
			Value:    access,
			Path:     "/",
			Domain:   c.cfg.CookieDomain,
			MaxAge:   expiresIn,
			HttpOnly: true,
			Secure:   c.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		},
		{
			Name:     c.cfg.RefreshCookie,
			Value:    refresh,
			Path:     "/",
			Domain:   c.cfg.CookieDomain,
			MaxAge:   int(refreshCookieTTL / time.Second),
			HttpOnly: true,
			Secure:   c.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

func cookieValue(cookies []*http.Cookie, name string) string {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
