package port

import (
	"containerCracker/internal/core/domain"
)

// Predicate decides whether a password opens a container. Implementations
// must be safe for concurrent use against the same path and must report a
// wrong password as (false, nil). An error means the check itself failed.
type Predicate interface {
	Kind() domain.ContainerKind
	Inspect(path string) error
	Verify(path, password string) (bool, error)
}

// PredicateRegistry resolves the predicate for a container kind after
// checking that the target exists, has the right type and is encrypted.
type PredicateRegistry interface {
	Validate(kind domain.ContainerKind, path string) (Predicate, error)
}

// SessionStore persists the single resumable attack session.
type SessionStore interface {
	Save(session *domain.AttackSession) error
	// Load returns nil without error when no usable session exists.
	Load() (*domain.AttackSession, error)
	Clear() error
}

// Observer receives attack lifecycle events, e.g. to render progress.
type Observer interface {
	AttackStarted(summary domain.AttackSummary)
	Progress(tried, total int64)
	AttackFinished(result *domain.AttackResult)
}
