package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/identity/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists users in the users table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, bio, intended_role, uid_document_path,
	identity_confirmed, banned, ban_reason, banned_at, banned_by, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, uuid.UUID(user.ID), user.Username, nilIfEmpty(user.Email), user.PasswordHash,
		string(user.Role), nilIfEmpty(user.Bio), nilIfEmpty(string(user.IntendedRole)),
		nilIfEmpty(user.UIDDocumentPath), user.IdentityConfirmed, user.Banned,
		nilIfEmpty(user.BanReason), user.BannedAt, bannedByValue(user.BannedBy),
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row)
}

// Execute loads the row FOR UPDATE, validates, mutates, and writes back in
// one transaction.
func (s *PostgresStore) Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin user tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, uuid.UUID(userID))
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	if err := validate(user); err != nil {
		return nil, err
	}
	mutate(user)

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, role = $4, bio = $5, intended_role = $6,
			uid_document_path = $7, identity_confirmed = $8, banned = $9,
			ban_reason = $10, banned_at = $11, banned_by = $12, updated_at = $13
		WHERE id = $1
	`, uuid.UUID(user.ID), nilIfEmpty(user.Email), user.PasswordHash, string(user.Role),
		nilIfEmpty(user.Bio), nilIfEmpty(string(user.IntendedRole)),
		nilIfEmpty(user.UIDDocumentPath), user.IdentityConfirmed, user.Banned,
		nilIfEmpty(user.BanReason), user.BannedAt, bannedByValue(user.BannedBy),
		user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit user tx: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var (
		clauses []string
		args    []any
	)
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Banned != nil {
		args = append(args, *filter.Banned)
		clauses = append(clauses, fmt.Sprintf("banned = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user         models.User
		userID       uuid.UUID
		email        *string
		bio          *string
		intendedRole *string
		documentPath *string
		banReason    *string
		bannedBy     *uuid.UUID
	)
	err := row.Scan(&userID, &user.Username, &email, &user.PasswordHash, &user.Role,
		&bio, &intendedRole, &documentPath, &user.IdentityConfirmed, &user.Banned,
		&banReason, &user.BannedAt, &bannedBy, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.UserID(userID)
	if email != nil {
		user.Email = *email
	}
	if bio != nil {
		user.Bio = *bio
	}
	if bannedBy != nil {
		by := id.UserID(*bannedBy)
		user.BannedBy = &by
	}
	if intendedRole != nil {
		user.IntendedRole = models.Role(*intendedRole)
	}
	if documentPath != nil {
		user.UIDDocumentPath = *documentPath
	}
	if banReason != nil {
		user.BanReason = *banReason
	}
	return &user, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func bannedByValue(by *id.UserID) *uuid.UUID {
	if by == nil {
		return nil
	}
	u := uuid.UUID(*by)
	return &u
}
