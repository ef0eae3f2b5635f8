package domain

import (
	"fmt"
	"time"
)

// AttackSession is the complete, re-creatable description of one attack.
// It is also the persisted session record.
type AttackSession struct {
	Mode       AttackMode    `json:"mode"`
	FilePath   string        `json:"file_path"`
	FileType   ContainerKind `json:"file_type"`
	Wordlist   string        `json:"wordlist,omitempty"`
	Charset    string        `json:"charset,omitempty"`
	MinLength  int           `json:"min_len,omitempty"`
	MaxLength  int           `json:"max_len,omitempty"`
	Workers    int           `json:"workers"`
	ResumeFrom string        `json:"resume_from,omitempty"`
}

// Validate checks the mode invariant: dictionary and hybrid sessions carry a
// wordlist, brute-force sessions carry a charset and length range.
func (s *AttackSession) Validate() error {
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, s.Mode)
	}
	if !s.FileType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, s.FileType)
	}
	if s.FilePath == "" {
		return fmt.Errorf("%w: empty target path", ErrInvalidSettings)
	}
	if s.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidSettings, s.Workers)
	}

	if s.Mode.UsesWordlist() {
		if s.Wordlist == "" {
			return fmt.Errorf("%w: %s mode needs a wordlist", ErrInvalidSettings, s.Mode)
		}
		if s.Charset != "" || s.MinLength != 0 || s.MaxLength != 0 {
			return fmt.Errorf("%w: %s mode takes no charset or length range", ErrInvalidSettings, s.Mode)
		}
		return nil
	}

	if s.Wordlist != "" || s.ResumeFrom != "" {
		return fmt.Errorf("%w: brute-force mode takes no wordlist or resume marker", ErrInvalidSettings)
	}
	if s.Charset == "" {
		return fmt.Errorf("%w: brute-force mode needs a charset", ErrInvalidSettings)
	}
	if s.MinLength < 1 || s.MaxLength < s.MinLength {
		return fmt.Errorf("%w: invalid length range [%d,%d]", ErrInvalidSettings, s.MinLength, s.MaxLength)
	}
	return nil
}

// Settings derives the generator settings for this session.
func (s *AttackSession) Settings() AttackSettings {
	return AttackSettings{
		Mode:         s.Mode,
		WordlistPath: s.Wordlist,
		CharsetSpec:  s.Charset,
		MinLength:    s.MinLength,
		MaxLength:    s.MaxLength,
		ResumeFrom:   s.ResumeFrom,
	}
}

// AttackSettings is the subset of a session the candidate generators need.
type AttackSettings struct {
	Mode         AttackMode
	WordlistPath string
	CharsetSpec  string
	MinLength    int
	MaxLength    int
	ResumeFrom   string
}

// AttackSummary is shown to the operator before verification starts.
type AttackSummary struct {
	RunID     string
	Mode      AttackMode
	Kind      ContainerKind
	Target    string
	Total     int64
	Workers   int
	ChunkSize int
	Charset   string
	Resumed   bool
	// ResumeMissed is set when the resume marker was not in the wordlist
	// and generation restarted from the beginning.
	ResumeMissed bool
	Skipped      int
}

type ResourceMetrics struct {
	CPUPeak       float64
	CPUAverage    float64
	MemoryUsedPct float64
	HeapAllocMB   int64
	Samples       int
	LastUpdated   time.Time
}

type AttackResult struct {
	RunID       string
	Status      AttackStatus
	Password    string
	Mode        AttackMode
	Target      string
	Tried       int64
	Total       int64
	Elapsed     time.Duration
	Rate        float64
	Resources   ResourceMetrics
	WorkerFault int
}

func (r *AttackResult) Found() bool {
	return r.Status == StatusFound
}
