package audit

import (
	"time"

	"indexnow-go/pkg/indexnow"
	"indexnow-go/pkg/logger"
)

const (
	DefaultDir           = "logs"
	DefaultFileName      = "indexnow-submissions.json"
	DefaultMaxFileSize   = 10 * 1024 * 1024
	DefaultStatsWindow   = 10
	DefaultWarnThreshold = 0.90
	DefaultMinWarnSample = 10
)

// Config locates the audit log and sets its rotation and alerting thresholds
type Config struct {
	Dir         string
	FileName    string
	MaxFileSize int64

	// StatsWindow is the default sample size of GetStatistics
	StatsWindow int

	// WarnThreshold and MinWarnSample control the low success rate warning
	WarnThreshold float64
	MinWarnSample int

	// Log receives console notices; nil selects the global logger
	Log *logger.Logger

	// Now is the clock used for rotated file names; nil selects time.Now
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Dir == "" {
		c.Dir = DefaultDir
	}
	if c.FileName == "" {
		c.FileName = DefaultFileName
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = DefaultStatsWindow
	}
	if c.WarnThreshold <= 0 {
		c.WarnThreshold = DefaultWarnThreshold
	}
	if c.MinWarnSample <= 0 {
		c.MinWarnSample = DefaultMinWarnSample
	}
	if c.Log == nil {
		c.Log = logger.GetLogger()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Entry is one line of the audit log
type Entry struct {
	Timestamp    string `json:"timestamp"`
	DeploymentID string `json:"deploymentId,omitempty"`
	URLCount     int    `json:"urlCount"`
	Success      bool   `json:"success"`
	StatusCode   int    `json:"statusCode"`
	Error        string `json:"error,omitempty"`
	Duration     int64  `json:"duration"`
}

// EntryFromResult converts a submission result into its on-disk form
func EntryFromResult(r indexnow.SubmissionResult) Entry {
	return Entry{
		Timestamp:    r.Timestamp,
		DeploymentID: r.DeploymentID,
		URLCount:     r.URLCount,
		Success:      r.Success,
		StatusCode:   r.StatusCode,
		Error:        r.Error,
		Duration:     r.DurationMs,
	}
}

// Statistics summarizes the newest entries of the audit log
type Statistics struct {
	TotalSubmissions         int     `json:"totalSubmissions"`
	SuccessfulSubmissions    int     `json:"successfulSubmissions"`
	FailedSubmissions        int     `json:"failedSubmissions"`
	SuccessRate              float64 `json:"successRate"`
	AverageURLCount          float64 `json:"averageUrlCount"`
	LastSuccessfulSubmission *string `json:"lastSuccessfulSubmission"`
	LowSuccessRate           bool    `json:"lowSuccessRate"`
}

// ComputeStatistics aggregates entries, which must be ordered oldest first
func ComputeStatistics(entries []Entry) Statistics {
	stats := Statistics{TotalSubmissions: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	totalURLs := 0
	for _, e := range entries {
		totalURLs += e.URLCount
		if e.Success {
			stats.SuccessfulSubmissions++
			ts := e.Timestamp
			stats.LastSuccessfulSubmission = &ts
		}
	}

	stats.FailedSubmissions = stats.TotalSubmissions - stats.SuccessfulSubmissions
	stats.SuccessRate = float64(stats.SuccessfulSubmissions) / float64(stats.TotalSubmissions)
	stats.AverageURLCount = float64(totalURLs) / float64(stats.TotalSubmissions)
	return stats
}
