package domain

import "errors"

type AttackMode string
type ContainerKind string
type AttackStatus string

const (
	// Attack modes
	ModeDictionary AttackMode = "dictionary"
	ModeBruteForce AttackMode = "bruteforce"
	ModeHybrid     AttackMode = "hybrid"

	// Container kinds
	KindZIP ContainerKind = "zip"
	KindPDF ContainerKind = "pdf"

	// Attack status
	StatusRunning     AttackStatus = "RUNNING"
	StatusFound       AttackStatus = "FOUND"
	StatusExhausted   AttackStatus = "EXHAUSTED"
	StatusInterrupted AttackStatus = "INTERRUPTED"
	StatusFailed      AttackStatus = "FAILED"
)

// MaxCandidates is the practical ceiling for a brute-force space.
const MaxCandidates int64 = 100_000_000_000

var (
	CharsetLower       = "abcdefghijklmnopqrstuvwxyz"
	CharsetUpper       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits      = "0123456789"
	CharsetPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	CharsetSymbols     = CharsetPunctuation + " "
	CharsetHexLower    = "0123456789abcdef"
	CharsetHexUpper    = "0123456789ABCDEF"
)

func (m AttackMode) Valid() bool {
	switch m {
	case ModeDictionary, ModeBruteForce, ModeHybrid:
		return true
	}
	return false
}

// UsesWordlist reports whether the mode reads its base words from a wordlist.
func (m AttackMode) UsesWordlist() bool {
	return m == ModeDictionary || m == ModeHybrid
}

func (k ContainerKind) Valid() bool {
	return k == KindZIP || k == KindPDF
}

type CrackingError string

const (
	ErrWordlistNotFound CrackingError = "WORDLIST_NOT_FOUND"
	ErrTargetNotFound   CrackingError = "TARGET_NOT_FOUND"
	ErrInvalidTarget    CrackingError = "INVALID_TARGET"
	ErrNotEncrypted     CrackingError = "NOT_ENCRYPTED"
	ErrUnsupportedKind  CrackingError = "UNSUPPORTED_CONTAINER"
	ErrInvalidSettings  CrackingError = "INVALID_SETTINGS"
	ErrCapacityExceeded CrackingError = "CAPACITY_EXCEEDED"
	ErrNoCandidates     CrackingError = "NO_CANDIDATES"
	ErrWorkersFailed    CrackingError = "WORKERS_FAILED"
	ErrInterrupted      CrackingError = "INTERRUPTED"
	ErrNoSession        CrackingError = "NO_SESSION"
)

func (e CrackingError) Error() string {
	return string(e)
}

// IsConfigurationError reports whether err prevents an attack from starting
// because of operator supplied parameters.
func IsConfigurationError(err error) bool {
	for _, target := range []error{
		ErrWordlistNotFound,
		ErrTargetNotFound,
		ErrInvalidTarget,
		ErrNotEncrypted,
		ErrUnsupportedKind,
		ErrInvalidSettings,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
