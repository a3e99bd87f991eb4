package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// PostgresStore persists subscriptions in the subscriptions table. The
// one-per-user invariant is a unique constraint on user_id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const subColumns = `id, user_id, plan, status, monthly_price, currency, gateway,
	provider_ref, started_at, current_period_end, cancelled_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, sub *models.Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, uuid.UUID(sub.ID), uuid.UUID(sub.UserID), string(sub.Plan), string(sub.Status),
		sub.MonthlyPrice, sub.Currency, sub.Gateway, nilIfEmpty(sub.ProviderRef),
		sub.StartedAt, sub.CurrentPeriodEnd, sub.CancelledAt, sub.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, subID id.SubscriptionID) (*models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+subColumns+` FROM subscriptions WHERE id = $1`, uuid.UUID(subID))
	return scanSub(row)
}

func (s *PostgresStore) FindByUser(ctx context.Context, userID id.UserID) (*models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+subColumns+` FROM subscriptions WHERE user_id = $1`, uuid.UUID(userID))
	return scanSub(row)
}

func (s *PostgresStore) FindByProviderRef(ctx context.Context, gateway, providerRef string) (*models.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subColumns+` FROM subscriptions
		WHERE gateway = $1 AND provider_ref = $2
	`, gateway, providerRef)
	return scanSub(row)
}

func (s *PostgresStore) Execute(ctx context.Context, subID id.SubscriptionID, validate func(*models.Subscription) error, mutate func(*models.Subscription)) (*models.Subscription, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin subscription tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+subColumns+` FROM subscriptions WHERE id = $1 FOR UPDATE`, uuid.UUID(subID))
	sub, err := scanSub(row)
	if err != nil {
		return nil, err
	}

	if err := validate(sub); err != nil {
		return nil, err
	}
	mutate(sub)

	_, err = tx.Exec(ctx, `
		UPDATE subscriptions
		SET plan = $2, status = $3, monthly_price = $4, provider_ref = $5,
			started_at = $6, current_period_end = $7, cancelled_at = $8, updated_at = $9
		WHERE id = $1
	`, uuid.UUID(sub.ID), string(sub.Plan), string(sub.Status), sub.MonthlyPrice,
		nilIfEmpty(sub.ProviderRef), sub.StartedAt, sub.CurrentPeriodEnd,
		sub.CancelledAt, sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit subscription tx: %w", err)
	}
	return sub, nil
}

func scanSub(row pgx.Row) (*models.Subscription, error) {
	var (
		sub         models.Subscription
		subID       uuid.UUID
		userID      uuid.UUID
		providerRef *string
	)
	err := row.Scan(&subID, &userID, &sub.Plan, &sub.Status, &sub.MonthlyPrice,
		&sub.Currency, &sub.Gateway, &providerRef, &sub.StartedAt,
		&sub.CurrentPeriodEnd, &sub.CancelledAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	sub.ID = id.SubscriptionID(subID)
	sub.UserID = id.UserID(userID)
	if providerRef != nil {
		sub.ProviderRef = *providerRef
	}
	return &sub, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
