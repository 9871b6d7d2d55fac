// Package replay drives a running inkflow service with synthetic strokes
// and checks that every one of them is archived as finished.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/inkflow/internal/domain/model"
	"github.com/okian/inkflow/internal/domain/types"
	"github.com/okian/inkflow/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrVerification is returned when the archive does not match what was drawn.
var ErrVerification = errors.New("replay verification failed")

// Run executes the complete replay.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("replay")
	stats := &Stats{StartTime: time.Now()}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Info(ctx, "starting inkflow replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("surfaces", cfg.Surfaces),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("moves", cfg.Moves),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", int64(seed)),
	)

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plan := NewGenerator(seed).Generate(cfg)
	for _, sessions := range plan {
		stats.SessionsGenerated += len(sessions)
		for _, s := range sessions {
			stats.BatchesGenerated += len(s.Batches)
		}
	}

	if cfg.OutputFile != "" {
		if err := savePlan(cfg.OutputFile, plan); err != nil {
			log.Warn(ctx, "failed to save generated batches", logger.Error(err))
		}
	}

	if err := submit(ctx, cfg, client, plan, stats); err != nil {
		return stats, err
	}

	if err := verify(ctx, cfg, client, plan, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// submit replays each surface in order. Surfaces run concurrently, bounded
// by cfg.Workers.
func submit(ctx context.Context, cfg *Config, client *HTTPClient, plan map[string][]Session, stats *Stats) error {
	var accepted, duplicate, retried, failed atomic.Int64
	var firstErr error
	var errOnce sync.Once

	workers := max(cfg.Workers, 1)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, surface := range surfaceIDs(plan) {
		sessions := plan[surface]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			for _, sess := range sessions {
				for _, b := range sess.Batches {
					outcome, attempts, err := postWithRetry(ctx, client, b)
					retried.Add(int64(attempts - 1))
					switch {
					case err != nil:
						failed.Add(1)
						errOnce.Do(func() { firstErr = err })
						return
					case outcome == OutcomeDuplicate:
						duplicate.Add(1)
					default:
						accepted.Add(1)
					}
				}
			}
		}()
	}
	wg.Wait()

	stats.BatchesAccepted = int(accepted.Load())
	stats.BatchesDuplicate = int(duplicate.Load())
	stats.BatchesRetried = int(retried.Load())
	stats.BatchesFailed = int(failed.Load())
	if firstErr != nil {
		return fmt.Errorf("batch submission failed: %w", firstErr)
	}
	return nil
}

// postWithRetry resubmits a batch while the service reports backpressure.
// A surface's batches must arrive in order, so the caller waits here.
func postWithRetry(ctx context.Context, client *HTTPClient, b *model.Batch) (Outcome, int, error) {
	backoff := retryBackoff
	for attempt := 1; ; attempt++ {
		outcome, err := client.PostBatch(ctx, b)
		if err != nil {
			return outcome, attempt, err
		}
		if outcome != OutcomeBackpressure {
			return outcome, attempt, nil
		}
		if attempt == maxSubmitAttempts {
			return outcome, attempt, fmt.Errorf("batch %s still rejected after %d attempts", b.BatchID, attempt)
		}
		select {
		case <-ctx.Done():
			return outcome, attempt, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// verify polls the archive until every surface shows its strokes finished
// or the settle timeout passes.
func verify(ctx context.Context, cfg *Config, client *HTTPClient, plan map[string][]Session, stats *Stats) error {
	deadline := time.Now().Add(cfg.SettleTimeout)
	for _, surface := range surfaceIDs(plan) {
		sessions := plan[surface]
		for {
			finished, err := client.ListStrokes(ctx, surface, types.StatusFinished, len(sessions)+1)
			if err != nil {
				return err
			}
			err = Verify(sessions, finished)
			if err == nil {
				stats.StrokesVerified += len(finished)
				break
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("%w: surface %s: %w", ErrVerification, surface, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
	}
	return nil
}

func surfaceIDs(plan map[string][]Session) []string {
	ids := make([]string, 0, len(plan))
	for id := range plan {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// savePlan writes the generated sessions as JSON.
func savePlan(filename string, plan map[string][]Session) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var batchesPerSecond float64
	if stats.Duration > 0 {
		batchesPerSecond = float64(stats.BatchesAccepted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sessionsGenerated", stats.SessionsGenerated),
		logger.Int("batchesGenerated", stats.BatchesGenerated),
		logger.Int("batchesAccepted", stats.BatchesAccepted),
		logger.Int("batchesDuplicate", stats.BatchesDuplicate),
		logger.Int("batchesRetried", stats.BatchesRetried),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("strokesVerified", stats.StrokesVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("batchesPerSecond", batchesPerSecond),
	)
}
