package respond

import (
	"regexp"
)

// Patterns for secrets that can leak through error messages: bearer tokens
// from the outbound transport chain and passwords embedded in connection DSNs.
var (
	bearerTokenPattern = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/-]+=*`)
	dsnPasswordPattern = regexp.MustCompile(`://([^:/]+):([^@]+)@`)
)

// SanitizeError returns the error message with credentials masked. Errors
// wrapping HTTP failures can carry full request URLs or header values, so
// anything that looks like a token or a DSN password is replaced before the
// message reaches a log line.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = bearerTokenPattern.ReplaceAllString(msg, "Bearer ****")
	msg = dsnPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
