package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/port"
)

type MockPredicate struct {
	mock.Mock
}

func NewMockPredicate() *MockPredicate {
	return &MockPredicate{}
}

func (m *MockPredicate) Kind() domain.ContainerKind {
	args := m.Called()
	return args.Get(0).(domain.ContainerKind)
}

func (m *MockPredicate) Inspect(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockPredicate) Verify(path, password string) (bool, error) {
	args := m.Called(path, password)
	return args.Bool(0), args.Error(1)
}

type MockSessionStore struct {
	mock.Mock
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (m *MockSessionStore) Save(session *domain.AttackSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockSessionStore) Load() (*domain.AttackSession, error) {
	args := m.Called()
	session, _ := args.Get(0).(*domain.AttackSession)
	return session, args.Error(1)
}

func (m *MockSessionStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

// PasswordPredicate accepts exactly one password. It counts calls and is
// safe for concurrent use, which testify mocks are too slow for in large
// candidate spaces.
type PasswordPredicate struct {
	KindValue domain.ContainerKind
	Password  string
	Faults    map[string]error

	mu    sync.Mutex
	calls int64
	seen  []string
}

func (p *PasswordPredicate) Kind() domain.ContainerKind {
	if p.KindValue == "" {
		return domain.KindZIP
	}
	return p.KindValue
}

func (p *PasswordPredicate) Inspect(string) error {
	return nil
}

func (p *PasswordPredicate) Verify(_, password string) (bool, error) {
	p.mu.Lock()
	p.calls++
	p.seen = append(p.seen, password)
	p.mu.Unlock()

	if err, ok := p.Faults[password]; ok {
		return false, err
	}
	return password == p.Password, nil
}

func (p *PasswordPredicate) Calls() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *PasswordPredicate) Seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

// StaticRegistry validates every target with the same outcome.
type StaticRegistry struct {
	Predicate port.Predicate
	Err       error
}

func (r *StaticRegistry) Validate(domain.ContainerKind, string) (port.Predicate, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Predicate, nil
}
