package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the gateway needs from the environment.
// Required values are validated by FromEnv so a misconfigured deployment
// fails at startup, never at first request.
type Config struct {
	// Addr is the listen address of the gateway HTTP server.
	Addr string

	// AuthBaseURL is the base URL of the auth backend, e.g. "https://auth.example.com".
	// The client appends "/auth/v1/..." paths to it. Required.
	AuthBaseURL string
	// AuthAnonKey is the publishable API key sent alongside every auth
	// backend call. Required.
	AuthAnonKey string

	// UpstreamURL is the origin the gateway proxies allowed requests to. Required.
	UpstreamURL string

	// LoginPath is where unauthenticated requests get redirected.
	LoginPath string
	// ProtectedPrefixes are the path prefixes that require a session.
	// Matching is case-sensitive and purely textual.
	ProtectedPrefixes []string
	// RefreshSkew refreshes sessions that expire within this window instead
	// of letting them lapse mid-request.
	RefreshSkew time.Duration

	// AccessCookie and RefreshCookie are the session cookie names the auth
	// backend issues. The defaults match the hosted provider's convention.
	AccessCookie  string
	RefreshCookie string
	// CookieDomain scopes session cookies written by the gateway ("" = host-only).
	CookieDomain string
	// CookieSecure marks session cookies Secure. Defaults to true; disable
	// only for plain-HTTP development setups.
	CookieSecure bool

	// RedisAddr enables the token denylist when non-empty.
	RedisAddr     string
	RedisPassword string

	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
	// AuditDSN enables the Postgres audit sink when non-empty.
	AuditDSN string
	// AuditBuffer is the capacity of the in-memory audit ring buffer.
	AuditBuffer int
}

// FromEnv builds a Config from environment variables so main stays lean.
// It returns an error naming every missing required variable.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr: getenv("GATE_ADDR", ":8080"),

		AuthBaseURL: strings.TrimRight(os.Getenv("AUTH_BASE_URL"), "/"),
		AuthAnonKey: os.Getenv("AUTH_ANON_KEY"),

		UpstreamURL: os.Getenv("UPSTREAM_URL"),

		LoginPath:         getenv("LOGIN_PATH", "/login"),
		ProtectedPrefixes: getenvList("PROTECTED_PREFIXES", []string{"/discover", "/qa", "/claim"}),
		RefreshSkew:       getenvDuration("REFRESH_SKEW", 30*time.Second),

		AccessCookie:  getenv("ACCESS_COOKIE", "sb-access-token"),
		RefreshCookie: getenv("REFRESH_COOKIE", "sb-refresh-token"),
		CookieDomain:  os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:  getenvBool("COOKIE_SECURE", true),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: getenvList("KAFKA_BROKERS", nil),
		KafkaTopic:   getenv("KAFKA_AUDIT_TOPIC", "gateway.audit"),
		AuditDSN:     os.Getenv("AUDIT_POSTGRES_DSN"),
		AuditBuffer:  getenvInt("AUDIT_BUFFER_SIZE", 1024),
	}

	var missing []string
	if cfg.AuthBaseURL == "" {
		missing = append(missing, "AUTH_BASE_URL")
	}
	if cfg.AuthAnonKey == "" {
		missing = append(missing, "AUTH_ANON_KEY")
	}
	if cfg.UpstreamURL == "" {
		missing = append(missing, "UPSTREAM_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvList splits a comma-separated variable, trimming whitespace and
// dropping empty and duplicate entries while preserving order. Returns def
// when the variable is unset.
func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
