package metrics

import (
	"runtime"
	"time"
)

// Throughput measures elapsed time and candidate rate for one run.
type Throughput struct {
	start time.Time
	now   func() time.Time
}

func NewThroughput(now func() time.Time) *Throughput {
	if now == nil {
		now = time.Now
	}
	return &Throughput{start: now(), now: now}
}

func (t *Throughput) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// Rate is the number of candidates per second since the start.
func (t *Throughput) Rate(tried int64) float64 {
	return Rate(tried, t.Elapsed())
}

func Rate(tried int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(tried) / elapsed.Seconds()
}

// RunStats are the Go runtime allocation figures of one measured call.
type RunStats struct {
	Duration   time.Duration
	AllocBytes uint64
	GCCycles   uint32
}

func CapturePerformance(fn func()) RunStats {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	startAlloc := stats.TotalAlloc
	startGC := stats.NumGC
	start := time.Now()

	fn()

	runtime.ReadMemStats(&stats)
	return RunStats{
		Duration:   time.Since(start),
		AllocBytes: stats.TotalAlloc - startAlloc,
		GCCycles:   stats.NumGC - startGC,
	}
}
