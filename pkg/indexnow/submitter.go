package indexnow

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"indexnow-go/pkg/logger"
)

// ResultRecorder receives every batch result in submission order
type ResultRecorder interface {
	RecordResult(result SubmissionResult)
}

// ResultRecorderFunc adapts a function to ResultRecorder
type ResultRecorderFunc func(SubmissionResult)

func (f ResultRecorderFunc) RecordResult(result SubmissionResult) {
	f(result)
}

// SubmitterConfig describes one run over a URL list
type SubmitterConfig struct {
	Host         string
	Key          string
	KeyLocation  string
	BatchSize    int
	Timeout      time.Duration
	DeploymentID string

	// BatchesPerSecond paces consecutive batches; zero or negative disables pacing
	BatchesPerSecond float64

	// StopOnFatal aborts the remaining batches after a non-retryable protocol failure
	StopOnFatal bool
}

// BatchOutcome pairs a batch with the result of submitting it
type BatchOutcome struct {
	Number int
	URLs   []string
	Result SubmissionResult
}

// Submitter partitions a URL list and submits the batches strictly one after
// another, so recorders observe results in submission order
type Submitter struct {
	client    *Client
	config    SubmitterConfig
	limiter   *rate.Limiter
	recorders []ResultRecorder
	log       *logger.Logger
}

// NewSubmitter creates a submitter; BatchSize defaults to MaxBatchSize
func NewSubmitter(client *Client, config SubmitterConfig, recorders ...ResultRecorder) *Submitter {
	if config.BatchSize <= 0 || config.BatchSize > MaxBatchSize {
		config.BatchSize = MaxBatchSize
	}

	limit := rate.Inf
	if config.BatchesPerSecond > 0 {
		limit = rate.Limit(config.BatchesPerSecond)
	}

	return &Submitter{
		client:    client,
		config:    config,
		limiter:   rate.NewLimiter(limit, 1),
		recorders: recorders,
		log:       logger.GetLogger().WithField("component", "submitter"),
	}
}

// SubmitAll submits every batch of urls and returns one outcome per attempted batch.
// Failed batches do not stop the loop unless StopOnFatal is set. An error is
// returned for invalid input, request validation failures or context cancellation,
// together with the outcomes gathered so far.
func (s *Submitter) SubmitAll(ctx context.Context, urls []string) ([]BatchOutcome, error) {
	batches, err := BatchURLs(urls, s.config.BatchSize)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		s.log.Info("No URLs to submit")
		return nil, nil
	}

	s.log.WithFields(map[string]interface{}{
		"total_urls":    len(urls),
		"batch_size":    s.config.BatchSize,
		"total_batches": len(batches),
	}).Info("Starting batch submission")

	progress := logger.NewProgressReporter(s.log, len(batches), "Submitting batches")
	outcomes := make([]BatchOutcome, 0, len(batches))

	for i, batch := range batches {
		if err := s.limiter.Wait(ctx); err != nil {
			return outcomes, fmt.Errorf("submission interrupted before batch %d: %w", i+1, err)
		}

		result, err := s.client.SubmitURLs(ctx, SubmissionRequest{
			Host:         s.config.Host,
			Key:          s.config.Key,
			KeyLocation:  s.config.KeyLocation,
			URLList:      batch,
			Timeout:      s.config.Timeout,
			DeploymentID: s.config.DeploymentID,
		})
		if err != nil {
			return outcomes, err
		}

		for _, recorder := range s.recorders {
			recorder.RecordResult(result)
		}
		outcomes = append(outcomes, BatchOutcome{Number: i + 1, URLs: batch, Result: result})
		progress.Update(1)

		if !result.Success {
			classification := Classify(result)
			s.log.WithFields(map[string]interface{}{
				"batch_number": i + 1,
				"status_code":  result.StatusCode,
				"category":     classification.Category.String(),
				"severity":     classification.Severity.String(),
			}).Warn("Batch submission failed")

			if s.config.StopOnFatal && classification.Severity == SeverityFatal {
				s.log.Warn("Stopping after non-retryable failure")
				break
			}
		}
	}

	successCount := 0
	for _, o := range outcomes {
		if o.Result.Success {
			successCount++
		}
	}
	s.log.WithFields(map[string]interface{}{
		"total_batches":      len(batches),
		"attempted_batches":  len(outcomes),
		"successful_batches": successCount,
		"failed_batches":     len(outcomes) - successCount,
	}).Info("Batch submission completed")

	return outcomes, nil
}
