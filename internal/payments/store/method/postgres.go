package method

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/payments/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// PostgresStore persists methods in the payment_methods table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const methodColumns = `id, user_id, type, is_default, active, card_last4, card_brand,
	exp_month, exp_year, gateway, provider_ref, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, method *models.PaymentMethod) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_methods (`+methodColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, uuid.UUID(method.ID), uuid.UUID(method.UserID), string(method.Type),
		method.Default, method.Active, nilIfEmpty(method.CardLast4), nilIfEmpty(method.CardBrand),
		method.ExpMonth, method.ExpYear, method.Gateway, method.ProviderRef,
		method.CreatedAt, method.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, methodID id.MethodID) (*models.PaymentMethod, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+methodColumns+` FROM payment_methods WHERE id = $1`, uuid.UUID(methodID))
	return scanMethod(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.PaymentMethod, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+methodColumns+` FROM payment_methods
		WHERE user_id = $1 ORDER BY created_at DESC
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*models.PaymentMethod
	for rows.Next() {
		method, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, method)
	}
	return methods, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, methodID id.MethodID, validate func(*models.PaymentMethod) error, mutate func(*models.PaymentMethod)) (*models.PaymentMethod, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin payment method tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+methodColumns+` FROM payment_methods WHERE id = $1 FOR UPDATE`, uuid.UUID(methodID))
	method, err := scanMethod(row)
	if err != nil {
		return nil, err
	}

	if err := validate(method); err != nil {
		return nil, err
	}
	mutate(method)

	_, err = tx.Exec(ctx, `
		UPDATE payment_methods
		SET is_default = $2, active = $3, updated_at = $4
		WHERE id = $1
	`, uuid.UUID(method.ID), method.Default, method.Active, method.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update payment method: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment method tx: %w", err)
	}
	return method, nil
}

func (s *PostgresStore) ClearDefault(ctx context.Context, userID id.UserID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE payment_methods SET is_default = false WHERE user_id = $1 AND is_default
	`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("clear default payment method: %w", err)
	}
	return nil
}

func scanMethod(row pgx.Row) (*models.PaymentMethod, error) {
	var (
		method    models.PaymentMethod
		methodID  uuid.UUID
		userID    uuid.UUID
		cardLast4 *string
		cardBrand *string
	)
	err := row.Scan(&methodID, &userID, &method.Type, &method.Default, &method.Active,
		&cardLast4, &cardBrand, &method.ExpMonth, &method.ExpYear,
		&method.Gateway, &method.ProviderRef, &method.CreatedAt, &method.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment method: %w", err)
	}
	method.ID = id.MethodID(methodID)
	method.UserID = id.UserID(userID)
	if cardLast4 != nil {
		method.CardLast4 = *cardLast4
	}
	if cardBrand != nil {
		method.CardBrand = *cardBrand
	}
	return &method, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
