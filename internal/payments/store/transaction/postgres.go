package transaction

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

// PostgresStore persists transactions in the payment_transactions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const txColumns = `id, user_id, method_id, type, status, amount, currency, description,
	gateway, provider_ref, ip, user_agent, created_at, completed_at`

func (s *PostgresStore) Create(ctx context.Context, tx *models.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_transactions (`+txColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, uuid.UUID(tx.ID), uuid.UUID(tx.UserID), nilMethodID(tx.MethodID),
		string(tx.Type), string(tx.Status), tx.Amount, tx.Currency,
		nilIfEmpty(tx.Description), tx.Gateway, nilIfEmpty(tx.ProviderRef),
		nilIfEmpty(tx.IP), nilIfEmpty(tx.UserAgent), tx.CreatedAt, tx.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM payment_transactions WHERE id = $1`, uuid.UUID(txID))
	return scanTx(row)
}

func (s *PostgresStore) FindByProviderRef(ctx context.Context, gateway, providerRef string) (*models.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+txColumns+` FROM payment_transactions
		WHERE gateway = $1 AND provider_ref = $2
	`, gateway, providerRef)
	return scanTx(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, limit, offset int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+txColumns+` FROM payment_transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, uuid.UUID(userID), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, txID id.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error) {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	row := dbTx.QueryRow(ctx, `SELECT `+txColumns+` FROM payment_transactions WHERE id = $1 FOR UPDATE`, uuid.UUID(txID))
	tx, err := scanTx(row)
	if err != nil {
		return nil, err
	}

	if err := validate(tx); err != nil {
		return nil, err
	}
	mutate(tx)

	_, err = dbTx.Exec(ctx, `
		UPDATE payment_transactions
		SET status = $2, provider_ref = $3, completed_at = $4
		WHERE id = $1
	`, uuid.UUID(tx.ID), string(tx.Status), nilIfEmpty(tx.ProviderRef), tx.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction tx: %w", err)
	}
	return tx, nil
}

func scanTx(row pgx.Row) (*models.Transaction, error) {
	var (
		tx          models.Transaction
		txID        uuid.UUID
		userID      uuid.UUID
		methodID    *uuid.UUID
		description *string
		providerRef *string
		ip          *string
		userAgent   *string
	)
	err := row.Scan(&txID, &userID, &methodID, &tx.Type, &tx.Status,
		&tx.Amount, &tx.Currency, &description, &tx.Gateway, &providerRef,
		&ip, &userAgent, &tx.CreatedAt, &tx.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	tx.ID = id.TransactionID(txID)
	tx.UserID = id.UserID(userID)
	if methodID != nil {
		m := id.MethodID(*methodID)
		tx.MethodID = &m
	}
	if description != nil {
		tx.Description = *description
	}
	if providerRef != nil {
		tx.ProviderRef = *providerRef
	}
	if ip != nil {
		tx.IP = *ip
	}
	if userAgent != nil {
		tx.UserAgent = *userAgent
	}
	return &tx, nil
}

func nilMethodID(methodID *id.MethodID) *uuid.UUID {
	if methodID == nil {
		return nil
	}
	u := uuid.UUID(*methodID)
	return &u
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
