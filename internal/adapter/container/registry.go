package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/port"
)

const sniffLimit = 1024

// Registry maps container kinds to their verification predicates.
type Registry struct {
	predicates map[domain.ContainerKind]port.Predicate
}

// NewRegistry returns a registry with the ZIP and PDF predicates.
func NewRegistry(logger *zap.Logger) *Registry {
	return NewRegistryWith(NewZipPredicate(logger), NewPDFPredicate(logger))
}

func NewRegistryWith(predicates ...port.Predicate) *Registry {
	r := &Registry{predicates: make(map[domain.ContainerKind]port.Predicate, len(predicates))}
	for _, p := range predicates {
		r.predicates[p.Kind()] = p
	}
	return r
}

func (r *Registry) Get(kind domain.ContainerKind) (port.Predicate, error) {
	p, ok := r.predicates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	return p, nil
}

// Validate checks that path exists, looks like a container of kind and is
// encrypted. A path whose extension differs from the kind is accepted only
// when its content identifies it as that kind.
func (r *Registry) Validate(kind domain.ContainerKind, path string) (port.Predicate, error) {
	p, err := r.Get(kind)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTargetNotFound, path)
		}
		return nil, fmt.Errorf("stat target: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidTarget, path)
	}

	if !strings.EqualFold(filepath.Ext(path), "."+string(kind)) {
		detected, err := Detect(path)
		if err != nil {
			return nil, err
		}
		if detected != kind {
			return nil, fmt.Errorf("%w: %s is not a %s file", domain.ErrInvalidTarget, path, kind)
		}
	}

	if err := p.Inspect(path); err != nil {
		return nil, err
	}
	return p, nil
}

// Detect identifies a container by its leading bytes. It returns an empty
// kind for unrecognised content.
func Detect(path string) (domain.ContainerKind, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrTargetNotFound, path)
		}
		return "", fmt.Errorf("open target: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read target: %w", err)
	}
	return sniff(head[:n]), nil
}

func sniff(data []byte) domain.ContainerKind {
	if bytes.HasPrefix(data, []byte{'P', 'K', 0x03, 0x04}) {
		return domain.KindZIP
	}
	limit := min(len(data), sniffLimit)
	for i := 0; i+5 <= limit; i++ {
		if data[i] == '%' && bytes.HasPrefix(data[i:], []byte("%PDF-")) {
			return domain.KindPDF
		}
		if data[i] > 0x20 {
			break
		}
	}
	return ""
}
