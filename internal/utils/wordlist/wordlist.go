package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"containerCracker/internal/core/domain"
)

const maxLineSize = 1 << 20

// LoadWordlist reads path line by line, trims whitespace and drops empty
// lines. File order is preserved. Invalid UTF-8 is kept byte for byte.
func LoadWordlist(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrWordlistNotFound, path)
		}
		return nil, fmt.Errorf("open wordlist: %w", err)
	}
	defer file.Close()

	words, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("read wordlist %s: %w", path, err)
	}
	return words, nil
}

func Read(r io.Reader) ([]string, error) {
	var words []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	return words, scanner.Err()
}

// ResumeAfter returns the words following the first exact occurrence of
// marker. found is false when the marker is absent, in which case the full
// list is returned.
func ResumeAfter(words []string, marker string) (rest []string, skipped int, found bool) {
	if marker == "" {
		return words, 0, true
	}
	for i, word := range words {
		if word == marker {
			return words[i+1:], i + 1, true
		}
	}
	return words, 0, false
}
