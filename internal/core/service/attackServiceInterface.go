package service

import (
	"context"

	"containerCracker/internal/core/domain"
	"containerCracker/internal/port"
)

type AttackServiceInterface interface {
	Launch(ctx context.Context, session *domain.AttackSession, observer port.Observer) (*domain.AttackResult, error)
	Resume(ctx context.Context, observer port.Observer) (*domain.AttackResult, error)
	PendingSession() (*domain.AttackSession, error)
	DiscardSession() error
}
