package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DeviceSuite tests user-agent parsing for device display names.
type DeviceSuite struct {
	suite.Suite
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) TestDescribe() {
	s.Run("empty user agent returns unknown device", func() {
		result := Describe("")
		s.Equal("Unknown Device", result)
	})

	s.Run("chrome on desktop includes browser and OS", func() {
		userAgent := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		result := Describe(userAgent)
		s.Contains(result, "Chrome")
		s.Contains(result, "on")
		s.NotContains(result, "  ")
	})

	s.Run("safari on iphone includes platform", func() {
		userAgent := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		result := Describe(userAgent)
		s.Contains(result, "on")
		s.Contains(result, "iPhone")
	})

	s.Run("firefox on linux includes browser and OS", func() {
		userAgent := "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
		result := Describe(userAgent)
		s.Contains(result, "Firefox")
		s.Contains(result, "on")
	})

	s.Run("unparseable user agent returns formatted string", func() {
		result := Describe("Unknown/1.0")
		s.Contains(result, "on")
		s.NotEmpty(result)
	})

	s.Run("result has no leading or trailing whitespace", func() {
		userAgent := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
		result := Describe(userAgent)
		s.Equal(result, strings.TrimSpace(result))
	})
}

func (s *DeviceSuite) TestFingerprint() {
	const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	s.Run("deterministic sha256 hex", func() {
		fp1 := Fingerprint(chromeMac, "203.0.113.9")
		fp2 := Fingerprint(chromeMac, "203.0.113.9")

		s.Equal(fp1, fp2)
		s.Len(fp1, 64)
		s.Equal(strings.ToLower(fp1), fp1)
	})

	s.Run("minor version changes do not affect fingerprint", func() {
		ua1 := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
		ua2 := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.224 Safari/537.36"

		s.Equal(Fingerprint(ua1, "203.0.113.9"), Fingerprint(ua2, "203.0.113.9"))
	})

	s.Run("major version changes affect fingerprint", func() {
		ua1 := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		ua2 := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

		s.NotEqual(Fingerprint(ua1, "203.0.113.9"), Fingerprint(ua2, "203.0.113.9"))
	})

	s.Run("different client addresses differ", func() {
		s.NotEqual(Fingerprint(chromeMac, "203.0.113.9"), Fingerprint(chromeMac, "203.0.113.10"))
	})

	s.Run("empty user agent still binds the address", func() {
		fp := Fingerprint("", "203.0.113.9")
		s.Len(fp, 64)
		s.NotEqual(fp, Fingerprint("", "203.0.113.10"))
	})
}
