package indexnow

import (
	"encoding/json"
	"fmt"
	"strings"

	"indexnow-go/pkg/utils"
)

const maxErrorBodyLength = 200

// Severity tells a caller what to do with a failed batch
type Severity int

const (
	SeverityNone      Severity = iota
	SeverityRetryable          // transient; a later attempt may succeed
	SeverityFatal              // resubmitting the same request will fail again
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityRetryable:
		return "retryable"
	case SeverityFatal:
		return "fatal"
	default:
		return "invalid"
	}
}

// Classification is the taxonomy view of a SubmissionResult
type Classification struct {
	Category utils.ErrorCategory
	Severity Severity
}

// Retryable reports whether the caller may resubmit the batch later
func (c Classification) Retryable() bool {
	return c.Severity == SeverityRetryable
}

// Classify maps a result onto the transport/protocol taxonomy. Retrying is left to the caller.
func Classify(result SubmissionResult) Classification {
	switch {
	case result.Success:
		return Classification{Category: utils.CategoryNone, Severity: SeverityNone}
	case result.StatusCode == 0:
		return Classification{Category: utils.CategoryTransport, Severity: SeverityRetryable}
	case result.StatusCode == 429 || result.StatusCode >= 500:
		return Classification{Category: utils.CategoryProtocol, Severity: SeverityRetryable}
	default:
		return Classification{Category: utils.CategoryProtocol, Severity: SeverityFatal}
	}
}

// isSuccessStatus reports the only statuses IndexNow uses for accepted submissions
func isSuccessStatus(status int) bool {
	return status == 200 || status == 202
}

// describeStatus renders the error message for a non-success HTTP response.
// The 403 message never includes the body, which may echo the key.
func describeStatus(status int, body []byte) string {
	switch {
	case status == 400:
		return withDetail("Bad request", extractMessage(body))
	case status == 403:
		return "Forbidden: invalid API key"
	case status == 422:
		return withDetail("Unprocessable entity", extractMessage(body))
	case status == 429:
		return "Rate limit exceeded"
	case status >= 500:
		return withDetail("Server error", truncate(extractMessage(body), maxErrorBodyLength))
	default:
		return withDetail(fmt.Sprintf("Unexpected status %d", status), truncate(extractMessage(body), maxErrorBodyLength))
	}
}

// extractMessage prefers the "message" field of a JSON error body, falling back to the raw body
func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return trimmed
}

func withDetail(prefix, detail string) string {
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
