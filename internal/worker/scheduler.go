package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bobibobi02/whistle-connect-sub001/internal/domain"
	"github.com/bobibobi02/whistle-connect-sub001/internal/processor"
)

// Scheduler drives the delivery processor on a fixed interval.
//
// A single-flight guard keeps at most one run in flight per process: a tick
// that fires while the previous run is still working is skipped. Overlap
// would be *correct* — the atomic claim partitions work between racing
// runs — but back-to-back runs in one process only burn provider quota.
type Scheduler struct {
	proc     *processor.Processor
	interval time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	running     bool
	lastSummary domain.RunSummary
	lastRunAt   time.Time
	hasRun      bool

	wg sync.WaitGroup
}

func NewScheduler(proc *processor.Processor, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{proc: proc, interval: interval, logger: logger}
}

// Start launches the tick loop in a goroutine. Cancelling ctx stops it;
// call Wait afterwards to let an in-flight run finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Wait blocks until the tick loop has returned after ctx cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("delivery scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("delivery scheduler stopping")
			return
		case <-ticker.C:
			if _, err := s.RunNow(ctx, 0); err != nil && err != domain.ErrRunInProgress {
				s.logger.Error("scheduled delivery run failed", zap.Error(err))
			}
		}
	}
}

// RunNow executes one delivery run immediately, sharing the single-flight
// guard with scheduled ticks. batchSize <= 0 uses the configured default.
// Returns domain.ErrRunInProgress if a run is already active.
func (s *Scheduler) RunNow(ctx context.Context, batchSize int) (domain.RunSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return domain.RunSummary{}, domain.ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	summary, err := s.proc.Run(ctx, batchSize)

	s.mu.Lock()
	s.running = false
	if err == nil {
		s.lastSummary = summary
		s.lastRunAt = time.Now().UTC()
		s.hasRun = true
	}
	s.mu.Unlock()

	return summary, err
}

// Latest returns the most recent successful run summary and when it
// completed. ok is false until the first run finishes.
func (s *Scheduler) Latest() (summary domain.RunSummary, at time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary, s.lastRunAt, s.hasRun
}
