package request

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/verification/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// PostgresStore persists requests in the verification_requests table. The
// one-open-request invariant is backed by a partial unique index on
// (user_id) WHERE status IN ('pending', 'under_review').
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const requestColumns = `id, user_id, requested_role, document_path, status, note,
	handled_by, created_at, handled_at`

func (s *PostgresStore) CreateIfNoneOpen(ctx context.Context, request *models.Request) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verification_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(request.ID), uuid.UUID(request.UserID), request.RequestedRole,
		request.DocumentPath, string(request.Status), nilIfEmpty(request.Note),
		nilUserID(request.HandledBy), request.CreatedAt, request.HandledAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM verification_requests WHERE id = $1`, uuid.UUID(requestID))
	return scanRequest(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM verification_requests
		WHERE user_id = $1 ORDER BY created_at DESC
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list verification requests by user: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *PostgresStore) List(ctx context.Context, status models.RequestStatus, limit, offset int) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_requests`
	args := []any{}
	if status != "" {
		args = append(args, string(status))
		query += ` WHERE status = $` + strconv.Itoa(len(args))
	}
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verification requests: %w", err)
	}
	defer rows.Close()
	return collectRequests(rows)
}

func (s *PostgresStore) Execute(ctx context.Context, requestID id.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin verification request tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM verification_requests WHERE id = $1 FOR UPDATE`, uuid.UUID(requestID))
	request, err := scanRequest(row)
	if err != nil {
		return nil, err
	}

	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)

	_, err = tx.Exec(ctx, `
		UPDATE verification_requests
		SET status = $2, note = $3, handled_by = $4, handled_at = $5
		WHERE id = $1
	`, uuid.UUID(request.ID), string(request.Status), nilIfEmpty(request.Note),
		nilUserID(request.HandledBy), request.HandledAt)
	if err != nil {
		return nil, fmt.Errorf("update verification request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit verification request tx: %w", err)
	}
	return request, nil
}

func collectRequests(rows pgx.Rows) ([]*models.Request, error) {
	var requests []*models.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var (
		request   models.Request
		requestID uuid.UUID
		userID    uuid.UUID
		note      *string
		handledBy *uuid.UUID
	)
	err := row.Scan(&requestID, &userID, &request.RequestedRole, &request.DocumentPath,
		&request.Status, &note, &handledBy, &request.CreatedAt, &request.HandledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification request: %w", err)
	}
	request.ID = id.RequestID(requestID)
	request.UserID = id.UserID(userID)
	if note != nil {
		request.Note = *note
	}
	if handledBy != nil {
		reviewer := id.UserID(*handledBy)
		request.HandledBy = &reviewer
	}
	return &request, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilUserID(userID *id.UserID) *uuid.UUID {
	if userID == nil {
		return nil
	}
	u := uuid.UUID(*userID)
	return &u
}
