// Package device derives device metadata from User-Agent strings for audit
// enrichment: a human-readable description so operators can tell "Chrome on
// macOS" from "Safari on iPhone OS" when reviewing gate decisions, and a
// stable fingerprint binding browser family to client address. Neither is
// ever used for access decisions, and the raw User-Agent never leaves the
// process through audit sinks.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Describe parses a raw User-Agent header into a "Browser on OS" label.
// An empty User-Agent yields "Unknown Device".
func Describe(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	osName := ua.OSInfo().Name
	if osName == "" {
		osName = ua.Platform()
	}
	if osName == "" {
		osName = "Unknown OS"
	}

	// Fields collapses any doubled whitespace the parser lets through.
	return strings.Join(strings.Fields(browser+" on "+osName), " ")
}

// Fingerprint hashes the stable parts of a client's presentation: browser
// family (name plus major version), OS, and client IP. Minor browser updates
// leave it unchanged; switching browser, OS or address produces a new value.
// Returns lowercase hex SHA-256.
func Fingerprint(rawUA, clientIP string) string {
	ua := useragent.New(rawUA)

	browser, version := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	// "120.0.6099.109" and "120.0.6099.224" are the same family.
	if idx := strings.IndexByte(version, '.'); idx != -1 {
		version = version[:idx]
	}

	osName := ua.OSInfo().Name
	if osName == "" {
		osName = ua.Platform()
	}

	sum := sha256.Sum256([]byte(browser + "/" + version + "|" + osName + "|" + clientIP))
	return hex.EncodeToString(sum[:])
}
