package utils

import "regexp"

// RedactedMarker replaces every credential-shaped substring before it is persisted or logged.
const RedactedMarker = "***REDACTED***"

var (
	apiKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{8,128}$`)
	hexRunPattern = regexp.MustCompile(`[0-9a-fA-F]{8,}`)
)

// ValidateAPIKey reports whether key is 8 to 128 hexadecimal characters (case-insensitive)
func ValidateAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// RedactAPIKey replaces every maximal run of at least 8 hex characters with RedactedMarker.
// Shorter runs are left intact.
func RedactAPIKey(text string) string {
	if text == "" {
		return text
	}
	return hexRunPattern.ReplaceAllString(text, RedactedMarker)
}

// RedactValue applies RedactAPIKey to strings and returns any other value unchanged
func RedactValue(v interface{}) interface{} {
	switch s := v.(type) {
	case string:
		return RedactAPIKey(s)
	case *string:
		if s == nil {
			return s
		}
		redacted := RedactAPIKey(*s)
		return &redacted
	default:
		return v
	}
}
