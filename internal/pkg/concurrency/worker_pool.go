package concurrency

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/port"
)

// WorkerContext is handed to every worker at spawn time and never changes
// afterwards. Stop is the only state shared between workers.
type WorkerContext struct {
	FilePath  string
	Kind      domain.ContainerKind
	Predicate port.Predicate
	Stop      *StopSignal
}

// WorkerPool verifies candidates in parallel. Workers check Stop before each
// candidate, so at most one in-flight chunk per worker runs past a match.
type WorkerPool struct {
	numWorkers int
	wctx       WorkerContext
	logger     *zap.Logger
	metrics    *PoolMetrics
}

type Chunk struct {
	Seq       int64
	Passwords []string
}

type Result struct {
	Seq      int64
	WorkerID int
	Tried    int
	Complete bool
	Found    bool
	Password string
	Err      error
}

// Progress is reported after every chunk result. Completed is the number of
// candidates from the start of the sequence that are all fully processed.
type Progress struct {
	Tried     int64
	Completed int64
}

type Outcome struct {
	Found     bool
	Password  string
	Tried     int64
	Completed int64
	Faults    int
}

type PoolMetrics struct {
	Tried  atomic.Int64
	Faults atomic.Int64
	Active atomic.Int64
}

type PoolStats struct {
	Tried         int64
	Faults        int64
	ActiveWorkers int64
}

func NewWorkerPool(numWorkers int, wctx WorkerContext, logger *zap.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if wctx.Stop == nil {
		wctx.Stop = NewStopSignal()
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		wctx:       wctx,
		logger:     logger,
		metrics:    &PoolMetrics{},
	}
}

// Run partitions candidates into chunks of chunkSize and verifies them until
// the first match, exhaustion, cancellation of ctx or the loss of every
// worker. Results are consumed in completion order.
func (p *WorkerPool) Run(ctx context.Context, candidates <-chan string, chunkSize int, onProgress func(Progress)) (Outcome, error) {
	if chunkSize < 1 {
		chunkSize = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	chunks := make(chan Chunk, p.numWorkers)
	results := make(chan Result, p.numWorkers)

	g.Go(func() error {
		defer close(chunks)
		return p.dispatch(gctx, candidates, chunkSize, chunks)
	})

	for i := 0; i < p.numWorkers; i++ {
		w := &worker{id: i, wctx: p.wctx, metrics: p.metrics, logger: p.logger}
		g.Go(func() error {
			w.start(gctx, chunks, results)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	var (
		out     Outcome
		runErr  error
		pending = make(map[int64]int)
		nextSeq int64
	)

	for res := range results {
		out.Tried += int64(res.Tried)

		if res.Complete {
			pending[res.Seq] = res.Tried
			for {
				n, ok := pending[nextSeq]
				if !ok {
					break
				}
				out.Completed += int64(n)
				delete(pending, nextSeq)
				nextSeq++
			}
		}

		if onProgress != nil {
			onProgress(Progress{Tried: out.Tried, Completed: out.Completed})
		}

		if res.Found {
			out.Found = true
			out.Password = res.Password
			p.logger.Debug("match reported",
				zap.Int("worker_id", res.WorkerID),
				zap.Int64("chunk", res.Seq))
			break
		}

		if res.Err != nil {
			out.Faults++
			if out.Faults == p.numWorkers {
				runErr = domain.ErrWorkersFailed
				break
			}
		}
	}

	// abandon outstanding work and let every goroutine exit
	cancel()
	for res := range results {
		out.Tried += int64(res.Tried)
	}

	if runErr == nil && !out.Found && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return out, runErr
}

func (p *WorkerPool) dispatch(ctx context.Context, candidates <-chan string, chunkSize int, chunks chan<- Chunk) error {
	var seq int64
	buf := make([]string, 0, chunkSize)

	send := func() bool {
		select {
		case chunks <- Chunk{Seq: seq, Passwords: buf}:
			seq++
			buf = make([]string, 0, chunkSize)
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case password, ok := <-candidates:
			if !ok {
				if len(buf) > 0 && !p.wctx.Stop.IsSet() {
					send()
				}
				return nil
			}
			if p.wctx.Stop.IsSet() {
				return nil
			}
			buf = append(buf, password)
			if len(buf) == chunkSize && !send() {
				return nil
			}
		}
	}
}

// Stop returns the pool's stop signal.
func (p *WorkerPool) Stop() *StopSignal {
	return p.wctx.Stop
}

func (p *WorkerPool) GetMetrics() PoolStats {
	return PoolStats{
		Tried:         p.metrics.Tried.Load(),
		Faults:        p.metrics.Faults.Load(),
		ActiveWorkers: p.metrics.Active.Load(),
	}
}

type worker struct {
	id      int
	wctx    WorkerContext
	metrics *PoolMetrics
	logger  *zap.Logger
}

func (w *worker) start(ctx context.Context, chunks <-chan Chunk, results chan<- Result) {
	w.metrics.Active.Add(1)
	defer w.metrics.Active.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-chunks:
			if !ok {
				return
			}

			res := w.process(ctx, c)

			select {
			case results <- res:
			case <-ctx.Done():
				return
			}

			if res.Err != nil {
				w.metrics.Faults.Add(1)
				w.logger.Error("worker stopped after verification fault",
					zap.Int("worker_id", w.id),
					zap.String("target", w.wctx.FilePath),
					zap.Error(res.Err))
				return
			}
		}
	}
}

func (w *worker) process(ctx context.Context, c Chunk) Result {
	res := Result{Seq: c.Seq, WorkerID: w.id}

	for _, password := range c.Passwords {
		if w.wctx.Stop.IsSet() || ctx.Err() != nil {
			return res
		}

		ok, err := w.wctx.Predicate.Verify(w.wctx.FilePath, password)
		res.Tried++
		w.metrics.Tried.Add(1)
		if err != nil {
			res.Err = err
			return res
		}
		if ok {
			w.wctx.Stop.Set()
			res.Found = true
			res.Password = password
			return res
		}
	}

	res.Complete = true
	return res
}
