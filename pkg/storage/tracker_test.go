package storage

import (
	"context"
	"testing"
	"time"

	"indexnow-go/pkg/indexnow"
)

func TestSubmissionTracker_FilterNew(t *testing.T) {
	tracker := NewSubmissionTracker(NewMemoryStorage())
	ctx := context.Background()

	urls := []string{"https://example.com/", "https://example.com/a/", "https://example.com/b/"}

	fresh, err := tracker.FilterNew(ctx, urls)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(fresh) != 3 {
		t.Fatalf("Expected all URLs to be new initially, got %d", len(fresh))
	}

	if err := tracker.MarkSubmitted(ctx, urls[1:2]); err != nil {
		t.Fatalf("Expected no error marking URLs, got: %v", err)
	}

	fresh, err = tracker.FilterNew(ctx, urls)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := []string{"https://example.com/", "https://example.com/b/"}
	if len(fresh) != len(want) {
		t.Fatalf("Expected %v, got %v", want, fresh)
	}
	for i := range want {
		if fresh[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, fresh[i])
		}
	}

	submitted, err := tracker.IsSubmitted(ctx, "https://example.com/a/")
	if err != nil || !submitted {
		t.Errorf("Expected /a/ to be submitted, got %v (err %v)", submitted, err)
	}
}

func TestSubmissionTracker_RecordOutcomesOnlyMarksSuccess(t *testing.T) {
	tracker := NewSubmissionTracker(NewMemoryStorage())
	ctx := context.Background()

	outcomes := []indexnow.BatchOutcome{
		{Number: 1, URLs: []string{"https://example.com/ok/"}, Result: indexnow.SubmissionResult{Success: true, StatusCode: 200}},
		{Number: 2, URLs: []string{"https://example.com/failed/"}, Result: indexnow.SubmissionResult{StatusCode: 500}},
	}
	if err := tracker.RecordOutcomes(ctx, outcomes); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if ok, _ := tracker.IsSubmitted(ctx, "https://example.com/ok/"); !ok {
		t.Error("Expected accepted batch to be tracked")
	}
	if ok, _ := tracker.IsSubmitted(ctx, "https://example.com/failed/"); ok {
		t.Error("Expected failed batch to stay untracked so it is retried next run")
	}
}

func TestSubmissionTracker_EvictsOldest(t *testing.T) {
	tracker := NewSubmissionTracker(NewMemoryStorage())
	tracker.SetMaxTracked(2)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return clock }

	for _, u := range []string{"https://example.com/1/", "https://example.com/2/", "https://example.com/3/"} {
		if err := tracker.MarkSubmitted(ctx, []string{u}); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		clock = clock.Add(time.Minute)
	}

	count, err := tracker.Count(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 tracked hashes, got %d", count)
	}
	if ok, _ := tracker.IsSubmitted(ctx, "https://example.com/1/"); ok {
		t.Error("Expected the oldest URL to be evicted")
	}
	if ok, _ := tracker.IsSubmitted(ctx, "https://example.com/3/"); !ok {
		t.Error("Expected the newest URL to be kept")
	}
}

func TestSubmissionTracker_ResetAndPersistence(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(StorageConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := NewSubmissionTracker(fs).MarkSubmitted(ctx, []string{"https://example.com/"}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	reopened := NewSubmissionTracker(fs)
	if ok, _ := reopened.IsSubmitted(ctx, "https://example.com/"); !ok {
		t.Fatal("Expected submitted URL to survive a new tracker instance")
	}

	if err := reopened.Reset(ctx); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count, _ := reopened.Count(ctx); count != 0 {
		t.Errorf("Expected empty tracker after reset, got %d", count)
	}
}
