package container

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yeka/zip"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"containerCracker/internal/core/domain"
)

// ZipPredicate checks passwords against ZipCrypto and WinZip AES archives.
// The archive is read once per path; each Verify call decodes it through its
// own reader, so concurrent workers share only immutable bytes.
type ZipPredicate struct {
	logger *zap.Logger
	cache  *archiveCache
}

func NewZipPredicate(logger *zap.Logger) *ZipPredicate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZipPredicate{logger: logger, cache: newArchiveCache()}
}

func (z *ZipPredicate) Kind() domain.ContainerKind {
	return domain.KindZIP
}

// Inspect rejects files that are not ZIP archives or hold no encrypted entry.
func (z *ZipPredicate) Inspect(path string) error {
	data, err := z.cache.load(path)
	if err != nil {
		return err
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %s is not a readable zip archive: %v", domain.ErrInvalidTarget, path, err)
	}

	encrypted := 0
	for _, f := range r.File {
		if isDir(f) {
			continue
		}
		if f.IsEncrypted() {
			encrypted++
		}
	}
	if encrypted == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotEncrypted, path)
	}

	z.logger.Debug("zip target inspected",
		zap.String("path", path),
		zap.Int("entries", len(r.File)),
		zap.Int("encrypted", encrypted))
	return nil
}

// Verify extracts every encrypted entry with password. Any decryption,
// authentication, checksum or inflate failure means the password is wrong.
func (z *ZipPredicate) Verify(path, password string) (bool, error) {
	data, err := z.cache.load(path)
	if err != nil {
		return false, err
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrInvalidTarget, err)
	}

	tried := false
	for _, f := range r.File {
		if isDir(f) || !f.IsEncrypted() {
			continue
		}
		tried = true

		f.SetPassword(password)
		rc, err := f.Open()
		if err != nil {
			return false, nil
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return false, nil
		}
	}
	return tried, nil
}

func isDir(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/")
}

// archiveCache holds whole container files in memory, keyed by path. The
// first caller reads the file; concurrent callers wait for that read.
type archiveCache struct {
	group singleflight.Group
	files syncMap[string, []byte]
}

func newArchiveCache() *archiveCache {
	return &archiveCache{}
}

func (c *archiveCache) load(path string) ([]byte, error) {
	if data, ok := c.files.Load(path); ok {
		return data, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		if data, ok := c.files.Load(path); ok {
			return data, nil
		}
		data, err := readTarget(path)
		if err != nil {
			return nil, err
		}
		c.files.Store(path, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func readTarget(path string) ([]byte, error) {
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

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target: %w", err)
	}
	return data, nil
}
