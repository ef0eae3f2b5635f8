package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"containerCracker/internal/config"
	"containerCracker/internal/core/algorithm"
	"containerCracker/internal/core/domain"
	"containerCracker/internal/logging"
	"containerCracker/internal/pkg/concurrency"
	"containerCracker/internal/pkg/metrics"
	"containerCracker/internal/port"
	"containerCracker/internal/utils/random"
)

type AttackService struct {
	store    port.SessionStore
	registry port.PredicateRegistry
	cfg      *config.Config
	logger   *zap.Logger

	clock    algorithm.Clock
	sampler  metrics.Sampler
	reporter *metrics.Reporter
	newRunID func() string
}

type Option func(*AttackService)

func WithClock(clock algorithm.Clock) Option {
	return func(s *AttackService) { s.clock = clock }
}

func WithSampler(sampler metrics.Sampler) Option {
	return func(s *AttackService) { s.sampler = sampler }
}

// WithReporter appends a history record for every finished attack.
func WithReporter(reporter *metrics.Reporter) Option {
	return func(s *AttackService) { s.reporter = reporter }
}

func WithRunIDs(newRunID func() string) Option {
	return func(s *AttackService) { s.newRunID = newRunID }
}

func NewAttackService(
	store port.SessionStore,
	registry port.PredicateRegistry,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *AttackService {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &AttackService{
		store:    store,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		clock:    time.Now,
		newRunID: random.NewRunID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChunkSize is the number of consecutive candidates handed to a worker at
// once. Brute-force spaces use a fixed size; wordlist spaces are split into
// roughly ChunksPerWorker chunks per worker, or single candidates when small.
func ChunkSize(mode domain.AttackMode, total int64, workers int, cfg *config.Config) int {
	if mode == domain.ModeBruteForce {
		return cfg.BruteForceChunkSize
	}
	if total > int64(cfg.SmallSpaceThreshold) {
		return int(max(1, total/int64(max(1, workers)*cfg.ChunksPerWorker)))
	}
	return 1
}

// Launch runs one attack to a match, exhaustion, interruption or the loss
// of every worker. Configuration and capacity errors are returned before
// the session is persisted or any password is tried.
func (s *AttackService) Launch(ctx context.Context, session *domain.AttackSession, observer port.Observer) (*domain.AttackResult, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: no session", domain.ErrInvalidSettings)
	}
	if observer == nil {
		observer = nopObserver{}
	}

	runID := s.newRunID()
	logger := logging.ForRun(s.logger, runID)

	if err := session.Validate(); err != nil {
		return nil, err
	}
	predicate, err := s.registry.Validate(session.FileType, session.FilePath)
	if err != nil {
		return nil, err
	}

	gen, err := algorithm.New(session.Mode, logger, s.clock)
	if err != nil {
		return nil, err
	}
	if err := gen.SetSettings(session.Settings()); err != nil {
		return nil, err
	}
	total := gen.Total()
	chunkSize := ChunkSize(session.Mode, total, session.Workers, s.cfg)

	if err := s.store.Save(session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	summary := domain.AttackSummary{
		RunID:     runID,
		Mode:      session.Mode,
		Kind:      session.FileType,
		Target:    session.FilePath,
		Total:     total,
		Workers:   session.Workers,
		ChunkSize: chunkSize,
		Resumed:   session.ResumeFrom != "",
	}
	if b, ok := gen.(*algorithm.BruteForce); ok {
		summary.Charset = b.Charset()
	}
	if r, ok := gen.(interface {
		ResumeMissed() bool
		Skipped() int
	}); ok {
		summary.ResumeMissed = r.ResumeMissed()
		summary.Skipped = r.Skipped()
	}

	logger.Info("attack started",
		zap.String("mode", string(session.Mode)),
		zap.String("kind", string(session.FileType)),
		zap.String("target", session.FilePath),
		zap.Int64("total", total),
		zap.Int("workers", session.Workers),
		zap.Int("chunk_size", chunkSize))
	observer.AttackStarted(summary)

	collector := metrics.NewCollector(s.cfg.GetMetricsInterval(), s.sampler)
	collector.StartCollection(runID)
	throughput := metrics.NewThroughput(nil)

	cp := &checkpointer{
		store:    s.store,
		session:  *session,
		gen:      gen,
		interval: s.cfg.CheckpointInterval,
		next:     s.cfg.CheckpointInterval,
		logger:   logger,
	}

	pool := concurrency.NewWorkerPool(session.Workers, concurrency.WorkerContext{
		FilePath:  session.FilePath,
		Kind:      session.FileType,
		Predicate: predicate,
		Stop:      concurrency.NewStopSignal(),
	}, logger)

	genCtx, cancelGen := context.WithCancel(ctx)
	passwords, genErrs := gen.Start(genCtx)

	var (
		outcome concurrency.Outcome
		runErr  error
	)
	stats := metrics.CapturePerformance(func() {
		outcome, runErr = pool.Run(ctx, passwords, chunkSize, func(p concurrency.Progress) {
			observer.Progress(p.Tried, total)
			cp.progress(p.Completed)
		})
	})

	cancelGen()
	gen.Stop()
	select {
	case genErr, ok := <-genErrs:
		if ok && genErr != nil && runErr == nil && !outcome.Found {
			runErr = fmt.Errorf("candidate generation: %w", genErr)
		}
	default:
	}

	result := &domain.AttackResult{
		RunID:       runID,
		Mode:        session.Mode,
		Target:      session.FilePath,
		Tried:       outcome.Tried,
		Total:       total,
		Elapsed:     throughput.Elapsed(),
		Rate:        throughput.Rate(outcome.Tried),
		Resources:   collector.StopCollection(runID),
		WorkerFault: outcome.Faults,
	}

	var retErr error
	switch {
	case outcome.Found:
		result.Status = domain.StatusFound
		result.Password = outcome.Password
		if err := s.store.Clear(); err != nil {
			logger.Warn("failed to clear session after success", zap.Error(err))
		}
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		result.Status = domain.StatusInterrupted
		cp.flush(outcome.Completed)
		retErr = domain.ErrInterrupted
	case runErr != nil:
		result.Status = domain.StatusFailed
		retErr = runErr
	default:
		result.Status = domain.StatusExhausted
	}

	poolStats := pool.GetMetrics()
	logger.Info("attack finished",
		zap.String("status", string(result.Status)),
		zap.Int64("tried", result.Tried),
		zap.Int64("verified", poolStats.Tried),
		zap.Duration("elapsed", result.Elapsed),
		zap.Float64("rate", result.Rate),
		zap.Int("worker_faults", result.WorkerFault))

	s.recordHistory(logger, result, stats)
	observer.AttackFinished(result)
	return result, retErr
}

// Resume launches the stored session.
func (s *AttackService) Resume(ctx context.Context, observer port.Observer) (*domain.AttackResult, error) {
	session, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNoSession
	}
	return s.Launch(ctx, session, observer)
}

func (s *AttackService) PendingSession() (*domain.AttackSession, error) {
	return s.store.Load()
}

func (s *AttackService) DiscardSession() error {
	return s.store.Clear()
}

func (s *AttackService) recordHistory(logger *zap.Logger, result *domain.AttackResult, stats metrics.RunStats) {
	if s.reporter == nil {
		return
	}
	s.reporter.Record(metrics.NewHistoryRecord(result, stats))
	if err := s.reporter.Flush(); err != nil {
		logger.Warn("failed to write history record", zap.Error(err))
	}
}

// checkpointer re-saves the session with a later resume marker as the
// completed watermark advances. An interval of zero disables it.
type checkpointer struct {
	store    port.SessionStore
	session  domain.AttackSession
	gen      algorithm.Algorithm
	interval int64
	next     int64
	last     string
	logger   *zap.Logger
}

func (c *checkpointer) progress(completed int64) {
	if c.interval <= 0 || completed < c.next {
		return
	}
	c.save(completed)
	c.next = completed + c.interval
}

func (c *checkpointer) flush(completed int64) {
	if c.interval <= 0 {
		return
	}
	c.save(completed)
}

func (c *checkpointer) save(completed int64) {
	marker, ok := c.gen.Checkpoint(completed)
	if !ok || marker == c.last {
		return
	}

	s := c.session
	s.ResumeFrom = marker
	if err := c.store.Save(&s); err != nil {
		c.logger.Warn("checkpoint failed", zap.Error(err))
		return
	}
	c.last = marker
	c.logger.Debug("checkpoint saved",
		zap.Int64("completed", completed),
		zap.String("resume_from", marker))
}

type nopObserver struct{}

func (nopObserver) AttackStarted(domain.AttackSummary)  {}
func (nopObserver) Progress(int64, int64)               {}
func (nopObserver) AttackFinished(*domain.AttackResult) {}
