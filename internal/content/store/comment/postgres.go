package comment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// PostgresStore persists comments in the post_comments table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, comment *models.Comment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO post_comments (id, post_id, author_id, body, attachment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(comment.ID), uuid.UUID(comment.PostID), uuid.UUID(comment.AuthorID),
		comment.Body, nilIfEmpty(comment.Attachment), comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, commentID id.CommentID) (*models.Comment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, post_id, author_id, body, attachment, created_at, updated_at
		FROM post_comments WHERE id = $1
	`, uuid.UUID(commentID))
	return scanComment(row)
}

func (s *PostgresStore) ListByPost(ctx context.Context, postID id.PostID, limit, offset int) ([]*models.Comment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, author_id, body, attachment, created_at, updated_at
		FROM post_comments
		WHERE post_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, uuid.UUID(postID), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, comment *models.Comment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE post_comments SET body = $2, updated_at = $3 WHERE id = $1
	`, uuid.UUID(comment.ID), comment.Body, comment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, commentID id.CommentID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM post_comments WHERE id = $1`, uuid.UUID(commentID))
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByPost(ctx context.Context, postID id.PostID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM post_comments WHERE post_id = $1`, uuid.UUID(postID))
	if err != nil {
		return fmt.Errorf("delete post comments: %w", err)
	}
	return nil
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	var (
		comment    models.Comment
		commentID  uuid.UUID
		postID     uuid.UUID
		authorID   uuid.UUID
		attachment *string
	)
	err := row.Scan(&commentID, &postID, &authorID, &comment.Body, &attachment,
		&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	comment.ID = id.CommentID(commentID)
	comment.PostID = id.PostID(postID)
	comment.AuthorID = id.UserID(authorID)
	if attachment != nil {
		comment.Attachment = *attachment
	}
	return &comment, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
