// Package redact scrubs credential-like substrings from text before it is
// logged, persisted or returned to a caller.
package redact

import (
	"regexp"
)

var (
	assignment = regexp.MustCompile(`(?i)\b(secret_key|secret|api_key|key|password|passwd|token)\s*[:=]\s*[^\s,;)]+`)
	accessKey  = regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`)
	bearer     = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)
)

// String replaces the value of every key=value or key: value pair whose key
// looks like a credential, plus bare AWS access key ids and bearer tokens.
func String(s string) string {
	if s == "" {
		return s
	}
	s = assignment.ReplaceAllString(s, "$1=[REDACTED]")
	s = accessKey.ReplaceAllString(s, "[REDACTED]")
	s = bearer.ReplaceAllString(s, "Bearer [REDACTED]")
	return s
}

// Error is String applied to err.Error(); nil yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
