package indexnow

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the shared IndexNow endpoint that fans out to participating engines
	DefaultEndpoint = "https://api.indexnow.org/indexnow"

	// MaxBatchSize is the largest urlList the IndexNow API accepts in one request
	MaxBatchSize = 10000

	DefaultTimeout = 30 * time.Second

	// TimestampFormat is ISO-8601 in UTC with millisecond precision
	TimestampFormat = "2006-01-02T15:04:05.000Z"
)

// SubmissionRequest is the input of one SubmitURLs call. DeploymentID is
// copied onto the result and never sent to the API.
type SubmissionRequest struct {
	Host         string
	Key          string
	KeyLocation  string
	URLList      []string
	Timeout      time.Duration
	DeploymentID string
}

// SubmissionResult is the outcome of exactly one HTTPS attempt. StatusCode 0
// means the request never produced a response (timeout or transport error).
type SubmissionResult struct {
	Success      bool   `json:"success"`
	StatusCode   int    `json:"statusCode"`
	URLCount     int    `json:"urlCount"`
	DurationMs   int64  `json:"durationMs"`
	Timestamp    string `json:"timestamp"`
	Error        string `json:"error,omitempty"`
	DeploymentID string `json:"deploymentId,omitempty"`
}

// payload is the wire body of an IndexNow submission
type payload struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation"`
	URLList     []string `json:"urlList"`
}

// Config holds submission client configuration
type Config struct {
	Endpoint string        `json:"endpoint"`
	Timeout  time.Duration `json:"timeout"`
}

// KeyLocationURL returns where the key file is expected: https://<domain>/<key>.txt
func KeyLocationURL(domain, key string) string {
	return fmt.Sprintf("https://%s/%s.txt", strings.ToLower(strings.TrimSpace(domain)), key)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
