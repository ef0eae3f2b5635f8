package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"containerCracker/internal/core/domain"
)

func newStore(t *testing.T) (string, *fileStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	return path, NewFileStore(path, nil).(*fileStore)
}

func TestFileStore_SaveLoadDictionary(t *testing.T) {
	_, store := newStore(t)

	in := &domain.AttackSession{
		Mode:       domain.ModeDictionary,
		FilePath:   "/data/a.zip",
		FileType:   domain.KindZIP,
		Wordlist:   "/data/w.txt",
		Workers:    4,
		ResumeFrom: "dragon",
	}
	require.NoError(t, store.Save(in))

	out, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, out)
}

func TestFileStore_FieldNames(t *testing.T) {
	path, store := newStore(t)

	require.NoError(t, store.Save(&domain.AttackSession{
		Mode:      domain.ModeBruteForce,
		FilePath:  "doc.pdf",
		FileType:  domain.KindPDF,
		Charset:   "ld",
		MinLength: 1,
		MaxLength: 3,
		Workers:   2,
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, field := range []string{`"mode"`, `"file_path"`, `"file_type"`, `"charset"`, `"min_len"`, `"max_len"`, `"workers"`} {
		assert.Contains(t, string(raw), field)
	}
	assert.NotContains(t, string(raw), `"wordlist"`)
	assert.NotContains(t, string(raw), `"resume_from"`)
}

func TestFileStore_LoadAbsentOrUnusable(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{"missing file", nil},
		{"not json", ptr("{{{ nope")},
		{"truncated", ptr(`{"mode": "dictionary", "file_pa`)},
		{"unknown mode", ptr(`{"mode":"rainbow","file_path":"a.zip","file_type":"zip","workers":1}`)},
		{"dictionary without wordlist", ptr(`{"mode":"dictionary","file_path":"a.zip","file_type":"zip","workers":1}`)},
		{"bruteforce with wordlist", ptr(`{"mode":"bruteforce","file_path":"a.zip","file_type":"zip","wordlist":"w","charset":"l","min_len":1,"max_len":2,"workers":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, store := newStore(t)
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}
			session, err := store.Load()
			assert.NoError(t, err)
			assert.Nil(t, session)
		})
	}
}

func TestFileStore_MalformedIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, zap.New(core))

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	session, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Equal(t, 1, logs.FilterMessage("ignoring malformed session file").Len())
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	path, store := newStore(t)

	s := &domain.AttackSession{
		Mode:     domain.ModeHybrid,
		FilePath: "a.zip",
		FileType: domain.KindZIP,
		Wordlist: "w.txt",
		Workers:  1,
	}
	require.NoError(t, store.Save(s))
	s.ResumeFrom = "monkey"
	require.NoError(t, store.Save(s))

	out, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "monkey", out.ResumeFrom)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_Clear(t *testing.T) {
	path, store := newStore(t)

	assert.NoError(t, store.Clear(), "clearing a missing session is fine")

	require.NoError(t, store.Save(&domain.AttackSession{
		Mode:     domain.ModeDictionary,
		FilePath: "a.zip",
		FileType: domain.KindZIP,
		Wordlist: "w.txt",
		Workers:  1,
	}))
	require.NoError(t, store.Clear())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	session, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestFileStore_SaveNil(t *testing.T) {
	_, store := newStore(t)
	assert.ErrorIs(t, store.Save(nil), domain.ErrInvalidSettings)
}

func TestPath(t *testing.T) {
	path, store := newStore(t)
	assert.Equal(t, path, Path(store))
}

func ptr(s string) *string { return &s }
