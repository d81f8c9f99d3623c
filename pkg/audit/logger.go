package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"indexnow-go/pkg/indexnow"
	"indexnow-go/pkg/logger"
	"indexnow-go/pkg/utils"
)

// Logger appends one JSON line per submission attempt and rotates the file
// once it grows past MaxFileSize. Appends are serialized within the process;
// separate processes writing the same file may interleave lines.
type Logger struct {
	mu     sync.Mutex
	config Config
	log    *logger.Logger
}

// New creates an audit logger. Nothing touches the filesystem until the first write.
func New(config Config) *Logger {
	config = config.withDefaults()
	return &Logger{
		config: config,
		log:    config.Log.WithField("component", "audit_logger"),
	}
}

// Path returns the location of the active log file
func (l *Logger) Path() string {
	return filepath.Join(l.config.Dir, l.config.FileName)
}

// RedactAPIKey replaces credential-shaped hex runs in text
func (l *Logger) RedactAPIKey(text string) string {
	return utils.RedactAPIKey(text)
}

// RecordResult persists a submission result
func (l *Logger) RecordResult(result indexnow.SubmissionResult) {
	l.LogSubmission(EntryFromResult(result))
}

// LogSubmission appends entry to the audit log. It never fails the caller:
// any error is reported on the console logger and the entry is dropped.
func (l *Logger) LogSubmission(entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithField("panic", fmt.Sprint(r)).Error("Failed to write audit log entry")
		}
	}()

	if err := l.append(entry); err != nil {
		l.log.WithError(err).WithField("path", l.Path()).Error("Failed to write audit log entry")
	}
}

func (l *Logger) append(entry Entry) error {
	entry.Error = utils.RedactAPIKey(entry.Error)

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.config.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	if info, err := os.Stat(l.Path()); err == nil && info.Size() > l.config.MaxFileSize {
		if _, err := l.rotateLocked(); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}

	if _, err := file.Write(line); err != nil {
		file.Close()
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return file.Close()
}

// RotateLogFile renames the active file to <name>-<unixMillis>.json and returns
// the new path. It returns an empty path when there is no file to rotate.
func (l *Logger) RotateLogFile() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotateLocked()
}

func (l *Logger) rotateLocked() (string, error) {
	info, err := os.Stat(l.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat audit log: %w", err)
	}

	ext := filepath.Ext(l.config.FileName)
	base := strings.TrimSuffix(l.config.FileName, ext)
	if ext == "" {
		ext = ".json"
	}
	rotated, err := l.rotationTarget(base, ext)
	if err != nil {
		return "", err
	}

	if err := os.Rename(l.Path(), rotated); err != nil {
		return "", fmt.Errorf("failed to rotate audit log: %w", err)
	}

	l.log.WithFields(map[string]interface{}{
		"rotated_file": rotated,
		"size_mb":      fmt.Sprintf("%.2f", float64(info.Size())/(1024*1024)),
	}).Info(fmt.Sprintf("Rotated audit log to %s (%.2f MiB)", filepath.Base(rotated), float64(info.Size())/(1024*1024)))

	return rotated, nil
}

// rotationTarget picks <base>-<unixMillis><ext>, moving to the next free
// millisecond when an earlier rotation already took the name
func (l *Logger) rotationTarget(base, ext string) (string, error) {
	for stamp := l.config.Now().UnixMilli(); ; stamp++ {
		candidate := filepath.Join(l.config.Dir, fmt.Sprintf("%s-%d%s", base, stamp, ext))
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat rotation target: %w", err)
		}
	}
}

// RecentEntries returns up to limit of the newest well-formed entries, oldest
// first. Only the last limit lines are considered; malformed lines among them
// are skipped with a warning. A missing log file yields no entries.
func (l *Logger) RecentEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = l.config.StatsWindow
	}

	lines, err := l.tail(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			l.log.WithError(err).Warn("Skipping malformed audit log line")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// tail keeps the last n non-empty lines of the active log file
func (l *Logger) tail(n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	ring := make([]string, 0, n)
	reader := bufio.NewReader(file)
	for {
		line, readErr := reader.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if len(ring) == n {
				ring = append(ring[:0], ring[1:]...)
			}
			ring = append(ring, trimmed)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read audit log: %w", readErr)
		}
	}
	return ring, nil
}

// GetStatistics summarizes the newest limit entries (StatsWindow when limit <= 0)
// and warns when a large enough sample falls below the success threshold.
// Read failures are logged and reported as an empty snapshot.
func (l *Logger) GetStatistics(limit int) Statistics {
	entries, err := l.RecentEntries(limit)
	if err != nil {
		l.log.WithError(err).Error("Failed to read audit log statistics")
		return Statistics{}
	}

	stats := ComputeStatistics(entries)
	if stats.TotalSubmissions >= l.config.MinWarnSample && stats.SuccessRate < l.config.WarnThreshold {
		stats.LowSuccessRate = true
		l.log.WithFields(map[string]interface{}{
			"success_rate": stats.SuccessRate,
			"sample_size":  stats.TotalSubmissions,
			"failed":       stats.FailedSubmissions,
		}).Warn(fmt.Sprintf("IndexNow success rate %.1f%% is below %.0f%% over the last %d submissions",
			stats.SuccessRate*100, l.config.WarnThreshold*100, stats.TotalSubmissions))
	}
	return stats
}
