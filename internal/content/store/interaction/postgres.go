package interaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists interactions in the post_likes, post_trusts, and
// post_confirmations tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ToggleLike(ctx context.Context, postID id.PostID, userID id.UserID) (bool, int, error) {
	return s.toggle(ctx, "post_likes", postID, userID)
}

func (s *PostgresStore) ToggleTrust(ctx context.Context, postID id.PostID, userID id.UserID) (bool, int, error) {
	return s.toggle(ctx, "post_trusts", postID, userID)
}

// toggle deletes the row if present, inserts it otherwise, and returns the
// resulting state and count. Runs in a transaction so concurrent toggles of
// the same pair resolve to one row at most.
func (s *PostgresStore) toggle(ctx context.Context, table string, postID id.PostID, userID id.UserID) (bool, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin toggle tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`DELETE FROM `+table+` WHERE post_id = $1 AND user_id = $2`,
		uuid.UUID(postID), uuid.UUID(userID))
	if err != nil {
		return false, 0, fmt.Errorf("toggle delete: %w", err)
	}

	active := false
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO `+table+` (post_id, user_id, created_at) VALUES ($1, $2, NOW())`,
			uuid.UUID(postID), uuid.UUID(userID))
		if err != nil {
			return false, 0, fmt.Errorf("toggle insert: %w", err)
		}
		active = true
	}

	var count int
	err = tx.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE post_id = $1`, uuid.UUID(postID)).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("toggle count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit toggle tx: %w", err)
	}
	return active, count, nil
}

func (s *PostgresStore) AddConfirmation(ctx context.Context, confirmation models.Confirmation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO post_confirmations (post_id, user_id, confirmation_type, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.UUID(confirmation.PostID), uuid.UUID(confirmation.UserID),
		string(confirmation.Type), confirmation.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert confirmation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListConfirmations(ctx context.Context, postID id.PostID) ([]models.Confirmation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT post_id, user_id, confirmation_type, created_at
		FROM post_confirmations
		WHERE post_id = $1
		ORDER BY created_at
	`, uuid.UUID(postID))
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()

	var out []models.Confirmation
	for rows.Next() {
		var (
			c      models.Confirmation
			postID uuid.UUID
			userID uuid.UUID
		)
		if err := rows.Scan(&postID, &userID, &c.Type, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		c.PostID = id.PostID(postID)
		c.UserID = id.UserID(userID)
		out = append(out, c)
	}
	return out, rows.Err()
}
