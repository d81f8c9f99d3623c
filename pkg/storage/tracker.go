package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"indexnow-go/pkg/indexnow"
	"indexnow-go/pkg/logger"
	"indexnow-go/pkg/utils"
)

const (
	submittedURLsKey = "submitted_urls"

	// DefaultMaxTracked bounds the submitted set; the oldest hashes are evicted first
	DefaultMaxTracked = 100000
)

// SubmittedURLSet maps a URL hash to the time it was last accepted by the API
type SubmittedURLSet map[string]time.Time

// SubmissionTracker remembers which URLs were already accepted so a default
// run only submits new ones. Only hashes are stored, never the URLs themselves.
type SubmissionTracker struct {
	storage    Storage
	log        *logger.Logger
	mu         sync.Mutex
	maxTracked int
	now        func() time.Time
}

func NewSubmissionTracker(storage Storage) *SubmissionTracker {
	return &SubmissionTracker{
		storage:    storage,
		log:        logger.GetLogger().WithField("component", "submission_tracker"),
		maxTracked: DefaultMaxTracked,
		now:        time.Now,
	}
}

// SetMaxTracked changes the eviction bound; values <= 0 are ignored
func (st *SubmissionTracker) SetMaxTracked(n int) {
	if n > 0 {
		st.maxTracked = n
	}
}

func (st *SubmissionTracker) load(ctx context.Context) (SubmittedURLSet, error) {
	var set SubmittedURLSet
	err := st.storage.Load(ctx, submittedURLsKey, &set)
	if errors.Is(err, ErrNotFound) {
		return make(SubmittedURLSet), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submitted URLs: %w", err)
	}
	if set == nil {
		set = make(SubmittedURLSet)
	}
	return set, nil
}

// FilterNew returns the URLs that were never accepted, preserving input order
func (st *SubmissionTracker) FilterNew(ctx context.Context, urls []string) ([]string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	set, err := st.load(ctx)
	if err != nil {
		return nil, err
	}

	fresh := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, seen := set[utils.CalculateURLHash(u)]; !seen {
			fresh = append(fresh, u)
		}
	}

	st.log.WithFields(map[string]interface{}{
		"total_urls":   len(urls),
		"new_urls":     len(fresh),
		"already_sent": len(urls) - len(fresh),
	}).Debug("Filtered previously submitted URLs")
	return fresh, nil
}

// IsSubmitted reports whether url was accepted before
func (st *SubmissionTracker) IsSubmitted(ctx context.Context, url string) (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	set, err := st.load(ctx)
	if err != nil {
		return false, err
	}
	_, seen := set[utils.CalculateURLHash(url)]
	return seen, nil
}

// MarkSubmitted records urls as accepted
func (st *SubmissionTracker) MarkSubmitted(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	set, err := st.load(ctx)
	if err != nil {
		return err
	}

	now := st.now().UTC()
	for _, u := range urls {
		set[utils.CalculateURLHash(u)] = now
	}

	if len(set) > st.maxTracked {
		st.evictOldest(set, len(set)-st.maxTracked)
	}

	st.log.WithFields(map[string]interface{}{
		"marked":      len(urls),
		"total_saved": len(set),
	}).Debug("Saved submitted URLs (hash-only)")

	return st.storage.Save(ctx, submittedURLsKey, set)
}

// RecordOutcomes marks the URLs of every successful batch
func (st *SubmissionTracker) RecordOutcomes(ctx context.Context, outcomes []indexnow.BatchOutcome) error {
	var accepted []string
	for _, o := range outcomes {
		if o.Result.Success {
			accepted = append(accepted, o.URLs...)
		}
	}
	return st.MarkSubmitted(ctx, accepted)
}

// Count returns the number of tracked URL hashes
func (st *SubmissionTracker) Count(ctx context.Context) (int, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	set, err := st.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

// Reset forgets every submitted URL
func (st *SubmissionTracker) Reset(ctx context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.storage.Delete(ctx, submittedURLsKey)
}

func (st *SubmissionTracker) evictOldest(set SubmittedURLSet, n int) {
	hashes := make([]string, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		ti, tj := set[hashes[i]], set[hashes[j]]
		if ti.Equal(tj) {
			return hashes[i] < hashes[j]
		}
		return ti.Before(tj)
	})
	for _, h := range hashes[:n] {
		delete(set, h)
	}
	st.log.WithField("evicted", n).Debug("Evicted oldest submitted URL hashes")
}
