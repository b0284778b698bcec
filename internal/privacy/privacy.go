// Package privacy removes credentials and tokens from text that leaves the
// process: telemetry events, log lines and error messages.
package privacy

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	redacted       = "[REDACTED]"
	apiKeyRedacted = "[API_KEY_REDACTED]"
)

// Pre-compiled patterns
var (
	urlQueryPattern    = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	queryParamPattern  = regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`)
	dsnPasswordPattern = regexp.MustCompile(`^([^:@/\s]+):([^@]*)@`)
	apiKeyPatterns     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)api[_-]?key[=:]\S+`),
		regexp.MustCompile(`(?i)x-ebirdapitoken[=:]\s*\S+`),
		regexp.MustCompile(`(?i)token[=:]\S+`),
		regexp.MustCompile(`(?i)auth[=:]\S+`),
		regexp.MustCompile(`(?i)password[=:]\S+`),
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
)

// ScrubMessage strips query strings, credentials and token-like values. URL
// paths are kept since region codes and location IDs are public.
func ScrubMessage(message string) string {
	scrubbed := urlQueryPattern.ReplaceAllString(message, "$1?"+redacted)
	scrubbed = queryParamPattern.ReplaceAllString(scrubbed, "?"+redacted)
	for _, re := range apiKeyPatterns {
		scrubbed = re.ReplaceAllString(scrubbed, apiKeyRedacted)
	}
	return scrubbed
}

// RedactDSN masks the password of a go-sql-driver DSN or URL-style connection
// string. A plain SQLite path is returned unchanged.
func RedactDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return redacted
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
		u.RawQuery = ""
		return strings.Replace(u.String(), "xxxxx", redacted, 1)
	}
	return dsnPasswordPattern.ReplaceAllString(dsn, "$1:"+redacted+"@")
}
