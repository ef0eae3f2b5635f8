package concurrency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/mocks"
)

func feed(ctx context.Context, passwords []string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for _, p := range passwords {
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func candidates(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("pw%05d", i)
	}
	return out
}

func newPool(workers int, predicate *mocks.PasswordPredicate) *WorkerPool {
	return NewWorkerPool(workers, WorkerContext{
		FilePath:  "target.zip",
		Kind:      domain.KindZIP,
		Predicate: predicate,
		Stop:      NewStopSignal(),
	}, nil)
}

func TestStopSignal_FirstWriterWins(t *testing.T) {
	s := NewStopSignal()
	assert.False(t, s.IsSet())

	var wg sync.WaitGroup
	var winners sync.Map
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if s.Set() {
				winners.Store(id, true)
			}
		}(i)
	}
	wg.Wait()

	count := 0
	winners.Range(func(_, _ any) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count)
	assert.True(t, s.IsSet())
	assert.False(t, s.Set(), "later writers are no-ops")
	assert.True(t, s.IsSet())
}

func TestWorkerPool_FindsSinglePassword(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name      string
		workers   int
		chunkSize int
		total     int
		match     int
	}{
		{"single worker", 1, 1, 50, 37},
		{"many workers small chunks", 8, 1, 500, 499},
		{"chunked", 4, 25, 2000, 1234},
		{"first candidate", 3, 10, 100, 0},
		{"partial last chunk", 2, 64, 1000, 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			all := candidates(tt.total)
			predicate := &mocks.PasswordPredicate{Password: all[tt.match]}
			pool := newPool(tt.workers, predicate)

			out, err := pool.Run(ctx, feed(ctx, all), tt.chunkSize, nil)
			require.NoError(t, err)
			assert.True(t, out.Found)
			assert.Equal(t, all[tt.match], out.Password)
			assert.True(t, pool.Stop().IsSet())
			assert.LessOrEqual(t, out.Tried, int64(tt.total))
		})
	}
}

func TestWorkerPool_Exhaustion(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	all := candidates(1003)
	predicate := &mocks.PasswordPredicate{Password: "not-there"}
	pool := newPool(4, predicate)

	var lastProgress Progress
	out, err := pool.Run(ctx, feed(ctx, all), 10, func(p Progress) {
		lastProgress = p
	})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, int64(1003), out.Tried)
	assert.Equal(t, int64(1003), out.Completed)
	assert.Equal(t, int64(1003), lastProgress.Completed)
	assert.Equal(t, int64(1003), predicate.Calls())
	assert.False(t, pool.Stop().IsSet())
	assert.Equal(t, int64(1003), pool.GetMetrics().Tried)
}

func TestWorkerPool_EmptySequence(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := newPool(3, &mocks.PasswordPredicate{Password: "x"})
	out, err := pool.Run(context.Background(), feed(context.Background(), nil), 5, nil)
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Zero(t, out.Tried)
}

func TestWorkerPool_StopsDispatchingAfterMatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const total = 100_000
	all := candidates(total)
	predicate := &mocks.PasswordPredicate{Password: all[5]}
	pool := newPool(2, predicate)

	out, err := pool.Run(ctx, feed(ctx, all), 10, nil)
	require.NoError(t, err)
	require.True(t, out.Found)

	// Two workers with chunks of 10 plus the buffered chunks can only
	// account for a handful of chunks past the match, never the whole space.
	assert.Less(t, predicate.Calls(), int64(total/10))
}

func TestWorkerPool_WrongPasswordIsNotAFault(t *testing.T) {
	defer goleak.VerifyNone(t)

	predicate := mocks.NewMockPredicate()
	predicate.On("Verify", "target.zip", "right").Return(true, nil)
	predicate.On("Verify", "target.zip", mock.Anything).Return(false, nil)

	pool := NewWorkerPool(2, WorkerContext{
		FilePath:  "target.zip",
		Kind:      domain.KindZIP,
		Predicate: predicate,
		Stop:      NewStopSignal(),
	}, nil)

	ctx := context.Background()
	out, err := pool.Run(ctx, feed(ctx, []string{"a", "b", "right", "c"}), 1, nil)
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "right", out.Password)
	assert.Zero(t, out.Faults)
}

func TestWorkerPool_FaultTerminatesOnlyThatWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	all := candidates(200)
	predicate := &mocks.PasswordPredicate{
		Password: all[150],
		Faults:   map[string]error{all[3]: errors.New("read: input/output error")},
	}
	pool := newPool(4, predicate)

	out, err := pool.Run(ctx, feed(ctx, all), 1, nil)
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, all[150], out.Password)
	assert.LessOrEqual(t, out.Faults, 1)
	assert.Contains(t, predicate.Seen(), all[3])
}

func TestWorkerPool_AllWorkersFaulted(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	all := candidates(100)
	faults := map[string]error{}
	for _, p := range all {
		faults[p] = errors.New("disk gone")
	}
	pool := newPool(3, &mocks.PasswordPredicate{Faults: faults})

	out, err := pool.Run(ctx, feed(ctx, all), 1, nil)
	assert.ErrorIs(t, err, domain.ErrWorkersFailed)
	assert.False(t, out.Found)
	assert.Equal(t, 3, out.Faults)
}

func TestWorkerPool_Cancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	// an endless source that only stops with ctx
	source := make(chan string)
	go func() {
		defer close(source)
		for i := 0; ; i++ {
			select {
			case source <- fmt.Sprint(i):
			case <-ctx.Done():
				return
			}
		}
	}()

	pool := newPool(4, &mocks.PasswordPredicate{Password: "never"})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	var out Outcome
	var err error
	go func() {
		out, err = pool.Run(ctx, source, 100, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, out.Found)
	assert.False(t, pool.Stop().IsSet())
}

func TestWorkerPool_CompletedWatermark(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	all := candidates(500)
	pool := newPool(4, &mocks.PasswordPredicate{Password: "none"})

	var mu sync.Mutex
	var last int64
	monotonic := true
	_, err := pool.Run(ctx, feed(ctx, all), 7, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Completed < last || p.Completed > p.Tried {
			monotonic = false
		}
		last = p.Completed
	})
	require.NoError(t, err)
	assert.True(t, monotonic)
	assert.Equal(t, int64(500), last)
}
