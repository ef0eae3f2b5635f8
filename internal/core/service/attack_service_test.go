package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"containerCracker/internal/adapter/session"
	"containerCracker/internal/config"
	"containerCracker/internal/core/domain"
	"containerCracker/internal/mocks"
	"containerCracker/internal/pkg/metrics"
)

func quietSampler() (float64, float64, error) {
	return 12.5, 50, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newService(store *mocks.MockSessionStore, predicate *mocks.PasswordPredicate, cfg *config.Config) *AttackService {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ids := 0
	return NewAttackService(store, &mocks.StaticRegistry{Predicate: predicate}, cfg, nil,
		WithClock(fixedClock),
		WithSampler(quietSampler),
		WithRunIDs(func() string {
			ids++
			return fmt.Sprintf("run-%d", ids)
		}))
}

func writeWordlist(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o644))
	return path
}

type recordingObserver struct {
	mu       sync.Mutex
	summary  *domain.AttackSummary
	progress int
	result   *domain.AttackResult
	events   []string
}

func (o *recordingObserver) AttackStarted(s domain.AttackSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summary = &s
	o.events = append(o.events, "started")
}

func (o *recordingObserver) Progress(tried, total int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress++
}

func (o *recordingObserver) AttackFinished(r *domain.AttackResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.result = r
	o.events = append(o.events, "finished")
}

func dictionarySession(wordlist string) *domain.AttackSession {
	return &domain.AttackSession{
		Mode:     domain.ModeDictionary,
		FilePath: "target.zip",
		FileType: domain.KindZIP,
		Wordlist: wordlist,
		Workers:  2,
	}
}

func TestChunkSize(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name    string
		mode    domain.AttackMode
		total   int64
		workers int
		want    int
	}{
		{"bruteforce is fixed", domain.ModeBruteForce, 14, 4, 10000},
		{"bruteforce large", domain.ModeBruteForce, 1 << 40, 4, 10000},
		{"small dictionary", domain.ModeDictionary, 1000, 4, 1},
		{"tiny hybrid", domain.ModeHybrid, 3, 8, 1},
		{"large dictionary", domain.ModeDictionary, 100_000, 4, 2500},
		{"just above threshold", domain.ModeDictionary, 1001, 8, 12},
		{"many workers", domain.ModeHybrid, 1500, 200, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkSize(tt.mode, tt.total, tt.workers, cfg))
		})
	}
}

func TestLaunch_DictionaryFound(t *testing.T) {
	defer goleak.VerifyNone(t)

	wordlist := writeWordlist(t, "alpha", "bravo", "charlie", "delta")
	sess := dictionarySession(wordlist)

	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(nil).Once()
	store.On("Clear").Return(nil).Once()

	obs := &recordingObserver{}
	svc := newService(store, &mocks.PasswordPredicate{Password: "charlie"}, nil)

	result, err := svc.Launch(context.Background(), sess, obs)
	require.NoError(t, err)
	assert.True(t, result.Found())
	assert.Equal(t, domain.StatusFound, result.Status)
	assert.Equal(t, "charlie", result.Password)
	assert.Equal(t, int64(4), result.Total)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 12.5, result.Resources.CPUPeak)

	store.AssertExpectations(t)
	assert.Equal(t, []string{"started", "finished"}, obs.events)
	require.NotNil(t, obs.summary)
	assert.Equal(t, int64(4), obs.summary.Total)
	assert.Equal(t, 1, obs.summary.ChunkSize)
	assert.Equal(t, 2, obs.summary.Workers)
	assert.Positive(t, obs.progress)
}

func TestLaunch_HybridFound(t *testing.T) {
	defer goleak.VerifyNone(t)

	sess := &domain.AttackSession{
		Mode:     domain.ModeHybrid,
		FilePath: "doc.pdf",
		FileType: domain.KindPDF,
		Wordlist: writeWordlist(t, "winter", "summer"),
		Workers:  3,
	}

	store := mocks.NewMockSessionStore()
	store.On("Save", mock.Anything).Return(nil)
	store.On("Clear").Return(nil)

	svc := newService(store, &mocks.PasswordPredicate{KindValue: domain.KindPDF, Password: "Summer!2026"}, nil)
	result, err := svc.Launch(context.Background(), sess, nil)
	require.NoError(t, err)
	assert.Equal(t, "Summer!2026", result.Password)
	store.AssertCalled(t, "Clear")
}

func TestLaunch_BruteForceFound(t *testing.T) {
	defer goleak.VerifyNone(t)

	sess := &domain.AttackSession{
		Mode:      domain.ModeBruteForce,
		FilePath:  "target.zip",
		FileType:  domain.KindZIP,
		Charset:   "d",
		MinLength: 1,
		MaxLength: 4,
		Workers:   4,
	}

	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(nil)
	store.On("Clear").Return(nil)

	obs := &recordingObserver{}
	svc := newService(store, &mocks.PasswordPredicate{Password: "4821"}, nil)
	result, err := svc.Launch(context.Background(), sess, obs)
	require.NoError(t, err)
	assert.Equal(t, "4821", result.Password)
	assert.Equal(t, int64(11110), result.Total)
	assert.Equal(t, "0123456789", obs.summary.Charset)
	assert.Equal(t, 10000, obs.summary.ChunkSize)
}

func TestLaunch_Exhaustion(t *testing.T) {
	defer goleak.VerifyNone(t)

	sess := dictionarySession(writeWordlist(t, "one", "two", "three"))

	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(nil).Once()

	svc := newService(store, &mocks.PasswordPredicate{Password: "four"}, nil)
	result, err := svc.Launch(context.Background(), sess, nil)
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Equal(t, domain.StatusExhausted, result.Status)
	assert.Equal(t, int64(3), result.Tried)
	assert.Empty(t, result.Password)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Clear")
}

func TestLaunch_ConfigurationErrorsPersistNothing(t *testing.T) {
	defer goleak.VerifyNone(t)

	wordlist := writeWordlist(t, "a")

	tests := []struct {
		name     string
		session  *domain.AttackSession
		registry *mocks.StaticRegistry
		want     error
	}{
		{
			name:     "missing target",
			session:  dictionarySession(wordlist),
			registry: &mocks.StaticRegistry{Err: domain.ErrTargetNotFound},
			want:     domain.ErrTargetNotFound,
		},
		{
			name:     "unencrypted target",
			session:  dictionarySession(wordlist),
			registry: &mocks.StaticRegistry{Err: domain.ErrNotEncrypted},
			want:     domain.ErrNotEncrypted,
		},
		{
			name:     "missing wordlist",
			session:  dictionarySession(filepath.Join(t.TempDir(), "none.txt")),
			registry: &mocks.StaticRegistry{Predicate: &mocks.PasswordPredicate{}},
			want:     domain.ErrWordlistNotFound,
		},
		{
			name: "capacity exceeded",
			session: &domain.AttackSession{
				Mode: domain.ModeBruteForce, FilePath: "t.zip", FileType: domain.KindZIP,
				Charset: "luds", MinLength: 1, MaxLength: 8, Workers: 1,
			},
			registry: &mocks.StaticRegistry{Predicate: &mocks.PasswordPredicate{}},
			want:     domain.ErrCapacityExceeded,
		},
		{
			name: "mode invariant",
			session: &domain.AttackSession{
				Mode: domain.ModeBruteForce, FilePath: "t.zip", FileType: domain.KindZIP,
				Wordlist: wordlist, Charset: "l", MinLength: 1, MaxLength: 2, Workers: 1,
			},
			registry: &mocks.StaticRegistry{Predicate: &mocks.PasswordPredicate{}},
			want:     domain.ErrInvalidSettings,
		},
		{
			name:     "empty wordlist",
			session:  dictionarySession(writeWordlist(t, "", "   ")),
			registry: &mocks.StaticRegistry{Predicate: &mocks.PasswordPredicate{}},
			want:     domain.ErrNoCandidates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockSessionStore()
			svc := NewAttackService(store, tt.registry, nil, nil, WithSampler(quietSampler))

			result, err := svc.Launch(context.Background(), tt.session, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, result)
			store.AssertNotCalled(t, "Save", mock.Anything)
		})
	}
}

func TestLaunch_SaveFailure(t *testing.T) {
	sess := dictionarySession(writeWordlist(t, "a"))
	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(errors.New("read-only file system"))

	svc := newService(store, &mocks.PasswordPredicate{Password: "a"}, nil)
	_, err := svc.Launch(context.Background(), sess, nil)
	assert.ErrorContains(t, err, "persist session")
}

func TestLaunch_Interrupted(t *testing.T) {
	defer goleak.VerifyNone(t)

	sess := &domain.AttackSession{
		Mode:      domain.ModeBruteForce,
		FilePath:  "target.zip",
		FileType:  domain.KindZIP,
		Charset:   "l",
		MinLength: 1,
		MaxLength: 6,
		Workers:   2,
	}

	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	obs := &recordingObserver{}
	svc := newService(store, &mocks.PasswordPredicate{Password: "never!"}, nil)
	result, err := svc.Launch(ctx, sess, obs)

	assert.ErrorIs(t, err, domain.ErrInterrupted)
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusInterrupted, result.Status)
	assert.Less(t, result.Tried, result.Total)
	store.AssertNotCalled(t, "Clear")
	assert.Equal(t, []string{"started", "finished"}, obs.events)
}

func TestLaunch_AllWorkersFaulted(t *testing.T) {
	defer goleak.VerifyNone(t)

	words := []string{"a", "b", "c", "d", "e"}
	faults := map[string]error{}
	for _, w := range words {
		faults[w] = errors.New("input/output error")
	}

	sess := dictionarySession(writeWordlist(t, words...))
	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(nil)

	svc := newService(store, &mocks.PasswordPredicate{Faults: faults}, nil)
	result, err := svc.Launch(context.Background(), sess, nil)
	assert.ErrorIs(t, err, domain.ErrWorkersFailed)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, 2, result.WorkerFault)
	store.AssertNotCalled(t, "Clear")
}

// cancellingPredicate cancels the attack when it sees trigger.
type cancellingPredicate struct {
	mocks.PasswordPredicate
	trigger string
	cancel  context.CancelFunc
}

func (p *cancellingPredicate) Verify(path, password string) (bool, error) {
	if password == p.trigger {
		p.cancel()
		return false, nil
	}
	return p.PasswordPredicate.Verify(path, password)
}

func TestLaunch_CheckpointsResumeMarker(t *testing.T) {
	defer goleak.VerifyNone(t)

	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i)
	}
	sess := &domain.AttackSession{
		Mode:     domain.ModeDictionary,
		FilePath: "target.zip",
		FileType: domain.KindZIP,
		Wordlist: writeWordlist(t, words...),
		Workers:  1,
	}

	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"), nil)
	cfg := config.DefaultConfig()
	cfg.CheckpointInterval = 10

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	predicate := &cancellingPredicate{trigger: words[60], cancel: cancel}

	svc := NewAttackService(store, &mocks.StaticRegistry{Predicate: predicate}, cfg, nil, WithSampler(quietSampler))
	result, err := svc.Launch(ctx, sess, nil)
	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Equal(t, domain.StatusInterrupted, result.Status)

	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Contains(t, []string{words[59], words[60]}, saved.ResumeFrom)
	assert.Equal(t, sess.Wordlist, saved.Wordlist)
	assert.Empty(t, sess.ResumeFrom, "the caller's session is not modified")

	// resuming continues after the marker and finds a later password
	resumePredicate := &mocks.PasswordPredicate{Password: words[80]}
	svc = NewAttackService(store, &mocks.StaticRegistry{Predicate: resumePredicate}, cfg, nil, WithSampler(quietSampler))
	result, err = svc.Resume(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, words[80], result.Password)
	assert.NotContains(t, resumePredicate.Seen(), words[10])

	pending, err := svc.PendingSession()
	require.NoError(t, err)
	assert.Nil(t, pending, "success clears the session")
}

func TestLaunch_DefaultSavesOnlyAtStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	words := make([]string, 50)
	for i := range words {
		words[i] = fmt.Sprintf("w%02d", i)
	}
	sess := dictionarySession(writeWordlist(t, words...))
	sess.Workers = 1

	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	predicate := &cancellingPredicate{trigger: words[30], cancel: cancel}

	svc := NewAttackService(store, &mocks.StaticRegistry{Predicate: predicate}, nil, nil, WithSampler(quietSampler))
	_, err := svc.Launch(ctx, sess, nil)
	assert.ErrorIs(t, err, domain.ErrInterrupted)
	store.AssertNumberOfCalls(t, "Save", 1)
}

func TestResume_NoSession(t *testing.T) {
	store := mocks.NewMockSessionStore()
	store.On("Load").Return(nil, nil)

	svc := newService(store, &mocks.PasswordPredicate{}, nil)
	_, err := svc.Resume(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestResume_ResumeMarkerMissing(t *testing.T) {
	defer goleak.VerifyNone(t)

	sess := dictionarySession(writeWordlist(t, "a", "b", "c"))
	sess.ResumeFrom = "zzz"

	store := mocks.NewMockSessionStore()
	store.On("Load").Return(sess, nil)
	store.On("Save", sess).Return(nil)

	obs := &recordingObserver{}
	svc := newService(store, &mocks.PasswordPredicate{Password: "nope"}, nil)
	result, err := svc.Resume(context.Background(), obs)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Tried, "a missing marker restarts from the beginning")
	assert.True(t, obs.summary.Resumed)
	assert.True(t, obs.summary.ResumeMissed)
}

func TestDiscardSession(t *testing.T) {
	store := mocks.NewMockSessionStore()
	store.On("Clear").Return(nil).Once()

	svc := newService(store, &mocks.PasswordPredicate{}, nil)
	require.NoError(t, svc.DiscardSession())
	store.AssertExpectations(t)
}

func TestLaunch_WritesHistory(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "history.jsonl")
	reporter, err := metrics.NewReporter(path)
	require.NoError(t, err)

	sess := dictionarySession(writeWordlist(t, "x", "y"))
	store := mocks.NewMockSessionStore()
	store.On("Save", sess).Return(nil)
	store.On("Clear").Return(nil)

	svc := NewAttackService(store, &mocks.StaticRegistry{Predicate: &mocks.PasswordPredicate{Password: "y"}}, nil, nil,
		WithSampler(quietSampler), WithReporter(reporter))
	_, err = svc.Launch(context.Background(), sess, nil)
	require.NoError(t, err)
	require.NoError(t, reporter.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"FOUND"`)
	assert.NotContains(t, string(data), `"y"`)
}
