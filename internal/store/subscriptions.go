package store

import (
	"context"

	"github.com/google/uuid"

	"terminwatch/internal/domain"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	ListActive(ctx context.Context) ([]domain.Subscription, error)
	SetStatus(ctx context.Context, userID string, id uuid.UUID, status domain.SubscriptionStatus) error
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}
