package algorithm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"containerCracker/internal/core/domain"
)

// Algorithm produces the candidate sequence for one attack mode. The
// sequence is restartable by calling Start again with the same settings.
type Algorithm interface {
	SetSettings(settings domain.AttackSettings) error
	Start(ctx context.Context) (<-chan string, <-chan error)
	Stop()
	Total() int64
	Name() domain.AttackMode
	// Checkpoint maps the number of candidates fully processed from the
	// start of the sequence to the last base word whose candidates are all
	// covered. ok is false when no such word exists or the mode has none.
	Checkpoint(completed int64) (marker string, ok bool)
}

// Clock returns the current time. Hybrid suffixes depend on the year.
type Clock func() time.Time

// New returns the generator for mode.
func New(mode domain.AttackMode, logger *zap.Logger, clock Clock) (Algorithm, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}

	switch mode {
	case domain.ModeDictionary:
		return NewDictionary(logger), nil
	case domain.ModeHybrid:
		return NewHybrid(logger, clock), nil
	case domain.ModeBruteForce:
		return NewBruteForce(), nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidSettings, mode)
	}
}

// emitAll streams words in order until ctx is cancelled or stop closes.
func emitAll(ctx context.Context, stop <-chan struct{}, words []string) (<-chan string, <-chan error) {
	passwords := make(chan string, 100)
	errors := make(chan error, 1)

	go func() {
		defer close(errors)
		defer close(passwords)

		for _, word := range words {
			select {
			case passwords <- word:
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return passwords, errors
}

// stopper hands every Start its own stop channel so a stopped generator can
// be started again.
type stopper struct {
	mu sync.Mutex
	ch chan struct{}
}

func (s *stopper) arm() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch = make(chan struct{})
	return s.ch
}

func (s *stopper) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		close(s.ch)
		s.ch = nil
	}
}
