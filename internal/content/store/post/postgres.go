package post

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// PostgresStore persists posts in the posts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postColumns = `id, author_id, event_id, title, body, attachment, language, status,
	verified, flagged, like_count, trust_count, report_count, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, post *models.Post) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin post tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, uuid.UUID(post.ID), uuid.UUID(post.AuthorID), nilEventID(post.EventID),
		post.Title, post.Body, nilIfEmpty(post.Attachment), post.Language,
		string(post.Status), post.Verified, post.Flagged,
		post.LikeCount, post.TrustCount, post.ReportCount, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	for _, personID := range post.PeopleIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO post_people (post_id, person_id) VALUES ($1, $2)
		`, uuid.UUID(post.ID), uuid.UUID(personID)); err != nil {
			return fmt.Errorf("insert post person: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit post tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, postID id.PostID) (*models.Post, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, uuid.UUID(postID))
	post, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadPeople(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	args := []any{}
	where := ""
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = ` WHERE status = $` + strconv.Itoa(len(args))
	}
	if filter.AuthorID != nil {
		args = append(args, uuid.UUID(*filter.AuthorID))
		if where == "" {
			where = ` WHERE`
		} else {
			where += ` AND`
		}
		where += ` author_id = $` + strconv.Itoa(len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, post := range posts {
		if err := s.loadPeople(ctx, post); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *PostgresStore) Execute(ctx context.Context, postID id.PostID, validate func(*models.Post) error, mutate func(*models.Post)) (*models.Post, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin post tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 FOR UPDATE`, uuid.UUID(postID))
	post, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `SELECT person_id FROM post_people WHERE post_id = $1`, uuid.UUID(postID))
	if err != nil {
		return nil, fmt.Errorf("load post people: %w", err)
	}
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan post person: %w", err)
		}
		post.PeopleIDs = append(post.PeopleIDs, id.PersonID(u))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := validate(post); err != nil {
		return nil, err
	}
	mutate(post)

	_, err = tx.Exec(ctx, `
		UPDATE posts
		SET title = $2, body = $3, attachment = $4, language = $5, status = $6,
			verified = $7, flagged = $8, like_count = $9, trust_count = $10,
			report_count = $11, updated_at = $12
		WHERE id = $1
	`, uuid.UUID(post.ID), post.Title, post.Body, nilIfEmpty(post.Attachment),
		post.Language, string(post.Status), post.Verified, post.Flagged,
		post.LikeCount, post.TrustCount, post.ReportCount, post.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit post tx: %w", err)
	}
	return post, nil
}

func (s *PostgresStore) Delete(ctx context.Context, postID id.PostID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, uuid.UUID(postID))
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, status models.PostStatus) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM posts WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) loadPeople(ctx context.Context, post *models.Post) error {
	rows, err := s.pool.Query(ctx, `SELECT person_id FROM post_people WHERE post_id = $1`, uuid.UUID(post.ID))
	if err != nil {
		return fmt.Errorf("load post people: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return fmt.Errorf("scan post person: %w", err)
		}
		post.PeopleIDs = append(post.PeopleIDs, id.PersonID(u))
	}
	return rows.Err()
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var (
		post       models.Post
		postID     uuid.UUID
		authorID   uuid.UUID
		eventID    *uuid.UUID
		attachment *string
	)
	err := row.Scan(&postID, &authorID, &eventID, &post.Title, &post.Body,
		&attachment, &post.Language, &post.Status, &post.Verified, &post.Flagged,
		&post.LikeCount, &post.TrustCount, &post.ReportCount, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.ID = id.PostID(postID)
	post.AuthorID = id.UserID(authorID)
	if eventID != nil {
		e := id.EventID(*eventID)
		post.EventID = &e
	}
	if attachment != nil {
		post.Attachment = *attachment
	}
	return &post, nil
}

func nilEventID(eventID *id.EventID) *uuid.UUID {
	if eventID == nil {
		return nil
	}
	u := uuid.UUID(*eventID)
	return &u
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
