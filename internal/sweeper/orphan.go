package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/agritrace/agritrace/internal/adapter"
	"github.com/agritrace/agritrace/internal/logger"
	"github.com/agritrace/agritrace/internal/providers/blob"
	"github.com/agritrace/agritrace/internal/store"
)

const (
	SWEEP_CYCLE_INTERVAL = 1 * time.Hour // Time to sleep between sweep cycles
)

// BlobStore is the slice of blob storage the orphan sweeper needs.
type BlobStore interface {
	List(ctx context.Context) ([]blob.ObjectInfo, error)
	Remove(ctx context.Context, key string) error
	URLFor(key string) string
}

// OrphanSweeperConfig holds configuration for the orphan blob sweeper
type OrphanSweeperConfig struct {
	Interval       time.Duration // Time between sweep cycles
	GracePeriod    time.Duration // Skip objects younger than this; an upload may still be awaiting its database row
	WorkerPoolSize int           // Concurrent workers
	DryRun         bool          // Log orphans without deleting them
}

// orphanSweeper reconciles blob storage against the media table. A photo
// uploaded for a registration whose database write failed has no media row;
// such blobs are deleted once they outlive the grace period.
type orphanSweeper struct {
	config    *OrphanSweeperConfig
	store     store.Store
	blobs     BlobStore
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewOrphanSweeper creates a new orphan blob sweeper
func NewOrphanSweeper(config *OrphanSweeperConfig, st store.Store, blobs BlobStore, clock adapter.Clock) Sweeper {
	return &orphanSweeper{
		config:    config,
		store:     st,
		blobs:     blobs,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *orphanSweeper) Name() string {
	return "orphan-blob-sweeper"
}

// Start begins the sweeper's main loop
func (s *orphanSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh) // Signal that we've stopped
	}()

	interval := s.config.Interval
	if interval == 0 {
		interval = SWEEP_CYCLE_INTERVAL
	}

	logger.InfoCtx(ctx, "Starting orphan blob sweeper",
		zap.Duration("interval", interval),
		zap.Duration("grace_period", s.config.GracePeriod),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
		zap.Bool("dry_run", s.config.DryRun),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Orphan blob sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Orphan blob sweeper stop requested")
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
			if !s.sleep(ctx, interval) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *orphanSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping orphan blob sweeper")

	// Signal stop to the main loop
	close(s.stopChan)

	// Wait for main loop to exit, but respect context cancellation
	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Orphan blob sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Orphan blob sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle runs a single reconciliation cycle
func (s *orphanSweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()
	logger.InfoCtx(ctx, "Starting sweep cycle")

	objects, err := s.blobs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blobs: %w", err)
	}

	if len(objects) == 0 {
		logger.InfoCtx(ctx, "No blobs in storage, nothing to reconcile")
		return nil
	}

	cutoff := s.clock.Now().Add(-s.config.GracePeriod)

	var checked, skipped, orphans, removed, failures atomic.Int32

	// The pool is per-cycle; StopAndWait below terminates it
	pool := pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithQueueSize(len(objects)),
		pond.WithContext(ctx),
	)

	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			skipped.Add(1)
			continue
		}

		pool.Submit(func() {
			checked.Add(1)

			referenced, err := s.store.MediaExistsForURL(ctx, s.blobs.URLFor(obj.Key))
			if err != nil {
				failures.Add(1)
				logger.ErrorCtx(ctx, err, zap.String("key", obj.Key))
				return
			}
			if referenced {
				return
			}

			orphans.Add(1)
			if s.config.DryRun {
				logger.InfoCtx(ctx, "Orphan blob found (dry run)",
					zap.String("key", obj.Key),
					zap.Int64("size", obj.Size),
					zap.Time("last_modified", obj.LastModified))
				return
			}

			if err := s.removeWithRetry(ctx, obj.Key); err != nil {
				failures.Add(1)
				logger.ErrorCtx(ctx, err, zap.String("key", obj.Key))
				return
			}
			removed.Add(1)
			logger.InfoCtx(ctx, "Removed orphan blob", zap.String("key", obj.Key))
		})
	}

	// Wait for all checks to complete
	pool.StopAndWait()

	logger.InfoCtx(ctx, "Sweep cycle complete",
		zap.Int32("checked", checked.Load()),
		zap.Int32("skipped_in_grace", skipped.Load()),
		zap.Int32("orphans", orphans.Load()),
		zap.Int32("removed", removed.Load()),
		zap.Int32("failures", failures.Load()),
		zap.Duration("duration", s.clock.Since(startTime)),
	)

	return nil
}

// removeWithRetry deletes one blob with exponential backoff
func (s *orphanSweeper) removeWithRetry(ctx context.Context, key string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	operation := func() error {
		return s.blobs.Remove(ctx, key)
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("failed to remove blob %s after retries: %w", key, err)
	}
	return nil
}

// sleep waits for the given duration, returning false if interrupted by
// context cancellation or a stop request
func (s *orphanSweeper) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
