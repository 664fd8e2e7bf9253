package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"terminwatch/internal/domain"
	"terminwatch/internal/store"
)

type SubscriptionRepo struct {
	db *bun.DB
}

func NewSubscriptionRepo(db *bun.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

func (r *SubscriptionRepo) Create(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	if err := domain.ValidatePreferences(sub.Preferences); err != nil {
		return domain.Subscription{}, err
	}

	m := sub
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Subscription{}, store.ErrConflict
		}
		return domain.Subscription{}, err
	}
	return m, nil
}

func (r *SubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	var m domain.Subscription
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subscription{}, store.ErrNotFound
		}
		return domain.Subscription{}, err
	}
	return m, nil
}

func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	var rows []domain.Subscription
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SubscriptionRepo) ListActive(ctx context.Context) ([]domain.Subscription, error) {
	var rows []domain.Subscription
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", domain.SubscriptionStatusActive).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SubscriptionRepo) SetStatus(ctx context.Context, userID string, id uuid.UUID, status domain.SubscriptionStatus) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Subscription)(nil)).
		Set("status = ?", status).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepo) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Subscription)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
