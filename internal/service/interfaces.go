package service

import (
	"context"

	"indexnow-go/pkg/audit"
)

// AuditService is the read and maintenance surface of the audit log
type AuditService interface {
	GetStatistics(limit int) audit.Statistics
	RecentEntries(limit int) ([]audit.Entry, error)
	RotateLogFile() (string, error)
	Path() string
}

// TrackerService reports how many URLs are remembered as submitted
type TrackerService interface {
	Count(ctx context.Context) (int, error)
}
