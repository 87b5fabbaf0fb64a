// Package security provides sanitization helpers for log output and
// credential masking.
package security

import (
	"net/url"
	"strings"
	"unicode"
)

// maxLogValueLength caps user-supplied strings before they reach the log.
const maxLogValueLength = 256

// SanitizeForLog strips control characters from a string and truncates it
// so untrusted input (dataset names, request paths) cannot inject log
// lines or flood the output.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, maxLogValueLength)
}

// SanitizeForLogWithLength sanitizes with a custom length cap.
func SanitizeForLogWithLength(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}

	out := b.String()
	if maxLen > 0 && len(out) > maxLen {
		return out[:maxLen] + "..."
	}
	return out
}

// MaskURLCredentials removes the password from a connection URL so it can
// be logged. Unparseable input is masked entirely.
func MaskURLCredentials(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}

	masked := u.String()
	// url.UserPassword encodes the stars, put them back
	return strings.Replace(masked, "%2A%2A%2A", "***", 1)
}
