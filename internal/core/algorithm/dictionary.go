package algorithm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/utils/wordlist"
)

type Dictionary struct {
	settings     domain.AttackSettings
	logger       *zap.Logger
	words        []string
	skipped      int
	resumeMissed bool
	stopper      stopper
}

func NewDictionary(logger *zap.Logger) *Dictionary {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dictionary{logger: logger}
}

// SetSettings loads the wordlist and applies the resume marker. A marker
// that is not in the list only produces a warning.
func (d *Dictionary) SetSettings(settings domain.AttackSettings) error {
	words, skipped, missed, err := loadBaseWords(settings, d.logger)
	if err != nil {
		return err
	}
	d.settings = settings
	d.words = words
	d.skipped = skipped
	d.resumeMissed = missed
	if len(d.words) == 0 {
		return fmt.Errorf("%w: wordlist %s has no entries left", domain.ErrNoCandidates, settings.WordlistPath)
	}
	return nil
}

func (d *Dictionary) Start(ctx context.Context) (<-chan string, <-chan error) {
	return emitAll(ctx, d.stopper.arm(), d.words)
}

func (d *Dictionary) Stop() {
	d.stopper.stop()
}

func (d *Dictionary) Total() int64 {
	return int64(len(d.words))
}

func (d *Dictionary) Name() domain.AttackMode {
	return domain.ModeDictionary
}

// Checkpoint returns the base word at position completed-1.
func (d *Dictionary) Checkpoint(completed int64) (string, bool) {
	if completed <= 0 || len(d.words) == 0 {
		return "", false
	}
	if completed > int64(len(d.words)) {
		completed = int64(len(d.words))
	}
	return d.words[completed-1], true
}

// Skipped is the number of wordlist entries skipped by the resume marker.
func (d *Dictionary) Skipped() int {
	return d.skipped
}

// ResumeMissed reports whether the resume marker was absent from the wordlist.
func (d *Dictionary) ResumeMissed() bool {
	return d.resumeMissed
}

func loadBaseWords(settings domain.AttackSettings, logger *zap.Logger) (words []string, skipped int, missed bool, err error) {
	if !settings.Mode.UsesWordlist() {
		return nil, 0, false, fmt.Errorf("%w: %s mode has no wordlist", domain.ErrInvalidSettings, settings.Mode)
	}
	if settings.WordlistPath == "" {
		return nil, 0, false, fmt.Errorf("%w: empty wordlist path", domain.ErrWordlistNotFound)
	}

	all, err := wordlist.LoadWordlist(settings.WordlistPath)
	if err != nil {
		return nil, 0, false, err
	}

	rest, skipped, found := wordlist.ResumeAfter(all, settings.ResumeFrom)
	if !found {
		logger.Warn("resume marker not found in wordlist, starting from the beginning",
			zap.String("marker", settings.ResumeFrom),
			zap.String("wordlist", settings.WordlistPath))
		return rest, 0, true, nil
	}
	if skipped > 0 {
		logger.Info("resuming session",
			zap.Int("skipped_words", skipped),
			zap.String("marker", settings.ResumeFrom))
	}
	return rest, skipped, false, nil
}
