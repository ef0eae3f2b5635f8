package algorithm

import (
	"context"
	"fmt"
	"math/bits"

	"containerCracker/internal/core/domain"
)

type BruteForce struct {
	settings domain.AttackSettings
	charset  string
	total    int64
	stopper  stopper
}

func NewBruteForce() *BruteForce {
	return &BruteForce{}
}

// SetSettings resolves the charset and sizes the space. Spaces above
// domain.MaxCandidates are refused before anything is generated.
func (b *BruteForce) SetSettings(settings domain.AttackSettings) error {
	if settings.MinLength < 1 || settings.MaxLength < settings.MinLength {
		return fmt.Errorf("%w: invalid length range [%d,%d]", domain.ErrInvalidSettings, settings.MinLength, settings.MaxLength)
	}

	charset := ResolveCharset(settings.CharsetSpec)
	total, err := BruteForceTotal(len(charset), settings.MinLength, settings.MaxLength)
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("%w: charset %q resolves to no characters", domain.ErrNoCandidates, settings.CharsetSpec)
	}

	b.settings = settings
	b.charset = charset
	b.total = total
	return nil
}

func (b *BruteForce) Start(ctx context.Context) (<-chan string, <-chan error) {
	passwords := make(chan string, 1024)
	errors := make(chan error, 1)
	stop := b.stopper.arm()

	go func() {
		defer close(errors)
		defer close(passwords)

		for length := b.settings.MinLength; length <= b.settings.MaxLength; length++ {
			if !b.generatePasswords(ctx, stop, length, passwords) {
				return
			}
		}
	}()

	return passwords, errors
}

// generatePasswords walks every string of the given length in lexicographic
// order of the charset, like an odometer. It returns false when cancelled.
func (b *BruteForce) generatePasswords(ctx context.Context, stop <-chan struct{}, length int, passwords chan<- string) bool {
	charset := b.charset
	indices := make([]int, length)
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = charset[0]
	}

	for {
		select {
		case passwords <- string(buf):
		case <-ctx.Done():
			return false
		case <-stop:
			return false
		}

		pos := length - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(charset) {
				buf[pos] = charset[indices[pos]]
				break
			}
			indices[pos] = 0
			buf[pos] = charset[0]
			pos--
		}
		if pos < 0 {
			return true
		}
	}
}

func (b *BruteForce) Stop() {
	b.stopper.stop()
}

func (b *BruteForce) Total() int64 {
	return b.total
}

func (b *BruteForce) Name() domain.AttackMode {
	return domain.ModeBruteForce
}

// Charset is the resolved alphabet.
func (b *BruteForce) Charset() string {
	return b.charset
}

// Checkpoint is not supported: brute-force sessions always restart.
func (b *BruteForce) Checkpoint(int64) (string, bool) {
	return "", false
}

// BruteForceTotal computes the sum of size^length over [minLen, maxLen]. It
// returns domain.ErrCapacityExceeded as soon as the sum passes
// domain.MaxCandidates, so it never overflows.
func BruteForceTotal(size, minLen, maxLen int) (int64, error) {
	if size <= 0 {
		return 0, nil
	}

	var total uint64
	limit := uint64(domain.MaxCandidates)
	for length := minLen; length <= maxLen; length++ {
		count, ok := pow(uint64(size), length, limit)
		if !ok || total+count > limit {
			return 0, fmt.Errorf("%w: more than %d candidates for charset size %d and lengths %d-%d",
				domain.ErrCapacityExceeded, domain.MaxCandidates, size, minLen, maxLen)
		}
		total += count
	}
	return int64(total), nil
}

// pow returns base^exp, or ok=false once the product passes limit.
func pow(base uint64, exp int, limit uint64) (uint64, bool) {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		hi, lo := bits.Mul64(result, base)
		if hi != 0 || lo > limit {
			return 0, false
		}
		result = lo
	}
	return result, true
}
