package algorithm

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"containerCracker/internal/core/domain"
)

var (
	hybridSymbols = []string{"!", "@", "#", "_", "$"}
	leetRules     = []struct{ from, to rune }{
		{'a', '@'},
		{'o', '0'},
		{'e', '3'},
		{'i', '1'},
		{'s', '$'},
	}
)

// Hybrid expands every base word of a wordlist into rule-based mutations.
// The merged candidate list is deduplicated globally, first occurrence wins.
type Hybrid struct {
	settings     domain.AttackSettings
	logger       *zap.Logger
	clock        Clock
	baseWords    []string
	candidates   []string
	wordEnds     []int64
	skipped      int
	resumeMissed bool
	stopper      stopper
}

func NewHybrid(logger *zap.Logger, clock Clock) *Hybrid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hybrid{
		logger: logger,
		clock:  clock,
	}
}

func (h *Hybrid) SetSettings(settings domain.AttackSettings) error {
	words, skipped, missed, err := loadBaseWords(settings, h.logger)
	if err != nil {
		return err
	}

	year := h.clock().Year()
	seen := mapset.NewThreadUnsafeSet[string]()
	candidates := make([]string, 0, len(words)*64)
	wordEnds := make([]int64, len(words))

	for i, word := range words {
		for _, mutation := range Mutations(word, year) {
			if seen.Add(mutation) {
				candidates = append(candidates, mutation)
			}
		}
		wordEnds[i] = int64(len(candidates))
	}

	h.settings = settings
	h.baseWords = words
	h.candidates = candidates
	h.wordEnds = wordEnds
	h.skipped = skipped
	h.resumeMissed = missed

	if len(h.candidates) == 0 {
		return fmt.Errorf("%w: wordlist %s has no entries left", domain.ErrNoCandidates, settings.WordlistPath)
	}
	h.logger.Debug("hybrid candidates prepared",
		zap.Int("base_words", len(words)),
		zap.Int("candidates", len(candidates)))
	return nil
}

func (h *Hybrid) Start(ctx context.Context) (<-chan string, <-chan error) {
	return emitAll(ctx, h.stopper.arm(), h.candidates)
}

func (h *Hybrid) Stop() {
	h.stopper.stop()
}

func (h *Hybrid) Total() int64 {
	return int64(len(h.candidates))
}

func (h *Hybrid) Name() domain.AttackMode {
	return domain.ModeHybrid
}

// Checkpoint returns the last base word all of whose new candidates lie
// within the first completed candidates.
func (h *Hybrid) Checkpoint(completed int64) (string, bool) {
	// first base word that is not fully covered
	idx := sort.Search(len(h.wordEnds), func(i int) bool {
		return h.wordEnds[i] > completed
	})
	if idx == 0 {
		return "", false
	}
	return h.baseWords[idx-1], true
}

func (h *Hybrid) Skipped() int {
	return h.skipped
}

func (h *Hybrid) ResumeMissed() bool {
	return h.resumeMissed
}

// Mutations derives the candidate set of one base word for the given year.
// The result is duplicate free and its order is deterministic.
func Mutations(word string, year int) []string {
	forms := newOrderedSet()
	forms.add(word)
	forms.add(strings.ToLower(word))
	forms.add(strings.ToUpper(word))
	forms.add(capitalize(word))

	for _, leet := range leetForms(word) {
		if leet == word {
			continue
		}
		forms.add(leet)
		forms.add(capitalize(leet))
	}

	suffixes := []string{
		strconv.Itoa(year),
		strconv.Itoa(year - 1),
		"123",
		"1",
		"12345",
	}

	out := newOrderedSet()
	for _, form := range forms.items {
		out.add(form)
	}
	for _, form := range forms.items {
		for _, sym := range hybridSymbols {
			out.add(form + sym)
		}
		for _, sym := range hybridSymbols {
			out.add(sym + form)
		}
		for _, suf := range suffixes {
			out.add(form + suf)
		}
		for _, sym := range hybridSymbols {
			for _, suf := range suffixes {
				out.add(form + sym + suf)
			}
		}
	}
	return out.items
}

// leetForms returns the full substitution first, then every single-rule
// substitution.
func leetForms(word string) []string {
	forms := []string{leetSubstitute(word, leetRules...)}
	for _, rule := range leetRules {
		forms = append(forms, leetSubstitute(word, rule))
	}
	return forms
}

func leetSubstitute(word string, rules ...struct{ from, to rune }) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		replaced := false
		lower := unicode.ToLower(r)
		for _, rule := range rules {
			if lower == rule.from {
				b.WriteRune(rule.to)
				replaced = true
				break
			}
		}
		if !replaced {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

type orderedSet struct {
	seen  mapset.Set[string]
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: mapset.NewThreadUnsafeSet[string]()}
}

func (s *orderedSet) add(item string) {
	if s.seen.Add(item) {
		s.items = append(s.items, item)
	}
}
