package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// setRequired sets the three variables without which the gateway refuses to boot.
func (s *ConfigSuite) setRequired() {
	s.T().Setenv("AUTH_BASE_URL", "https://auth.example.com")
	s.T().Setenv("AUTH_ANON_KEY", "anon-key")
	s.T().Setenv("UPSTREAM_URL", "http://app:3000")
}

func (s *ConfigSuite) TestRequiredVariables() {
	s.Run("all missing lists every variable", func() {
		s.T().Setenv("AUTH_BASE_URL", "")
		s.T().Setenv("AUTH_ANON_KEY", "")
		s.T().Setenv("UPSTREAM_URL", "")

		_, err := FromEnv()
		s.Require().Error(err)
		s.Contains(err.Error(), "AUTH_BASE_URL")
		s.Contains(err.Error(), "AUTH_ANON_KEY")
		s.Contains(err.Error(), "UPSTREAM_URL")
	})

	s.Run("one missing names only that one", func() {
		s.T().Setenv("AUTH_BASE_URL", "https://auth.example.com")
		s.T().Setenv("AUTH_ANON_KEY", "anon-key")
		s.T().Setenv("UPSTREAM_URL", "")

		_, err := FromEnv()
		s.Require().Error(err)
		s.Contains(err.Error(), "UPSTREAM_URL")
		s.NotContains(err.Error(), "AUTH_BASE_URL")
	})

	s.Run("all present succeeds", func() {
		s.setRequired()

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal("https://auth.example.com", cfg.AuthBaseURL)
		s.Equal("anon-key", cfg.AuthAnonKey)
		s.Equal("http://app:3000", cfg.UpstreamURL)
	})
}

func (s *ConfigSuite) TestDefaults() {
	s.setRequired()

	cfg, err := FromEnv()
	s.Require().NoError(err)

	s.Equal(":8080", cfg.Addr)
	s.Equal("/login", cfg.LoginPath)
	s.Equal([]string{"/discover", "/qa", "/claim"}, cfg.ProtectedPrefixes)
	s.Equal(30*time.Second, cfg.RefreshSkew)
	s.Equal("sb-access-token", cfg.AccessCookie)
	s.Equal("sb-refresh-token", cfg.RefreshCookie)
	s.True(cfg.CookieSecure)
	s.Empty(cfg.RedisAddr)
	s.Empty(cfg.KafkaBrokers)
	s.Equal("gateway.audit", cfg.KafkaTopic)
	s.Equal(1024, cfg.AuditBuffer)
}

func (s *ConfigSuite) TestOverrides() {
	s.setRequired()

	s.Run("prefix list splits and trims", func() {
		s.T().Setenv("PROTECTED_PREFIXES", "/api, /admin ,,/reports")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal([]string{"/api", "/admin", "/reports"}, cfg.ProtectedPrefixes)
	})

	s.Run("prefix list drops duplicates, keeping first position", func() {
		s.T().Setenv("PROTECTED_PREFIXES", "/api,/admin,/api, /admin")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal([]string{"/api", "/admin"}, cfg.ProtectedPrefixes)
	})

	s.Run("kafka brokers split on commas", func() {
		s.T().Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal([]string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	})

	s.Run("durations parse", func() {
		s.T().Setenv("REFRESH_SKEW", "1m")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal(time.Minute, cfg.RefreshSkew)
	})

	s.Run("cookie names can be renamed", func() {
		s.T().Setenv("ACCESS_COOKIE", "app-at")
		s.T().Setenv("REFRESH_COOKIE", "app-rt")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal("app-at", cfg.AccessCookie)
		s.Equal("app-rt", cfg.RefreshCookie)
	})

	s.Run("malformed duration falls back to default", func() {
		s.T().Setenv("REFRESH_SKEW", "soon")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal(30*time.Second, cfg.RefreshSkew)
	})

	s.Run("cookie secure can be disabled", func() {
		s.T().Setenv("COOKIE_SECURE", "false")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.False(cfg.CookieSecure)
	})

	s.Run("trailing slash stripped from auth base", func() {
		s.T().Setenv("AUTH_BASE_URL", "https://auth.example.com/")

		cfg, err := FromEnv()
		s.Require().NoError(err)
		s.Equal("https://auth.example.com", cfg.AuthBaseURL)
	})
}
