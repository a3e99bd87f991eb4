package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/content/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists reports in the post_reports table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const reportColumns = `id, post_id, reporter_id, reason, detail, status, created_at, handled_by, handled_at`

func (s *PostgresStore) Create(ctx context.Context, report *models.Report) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO post_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(report.ID), uuid.UUID(report.PostID), uuid.UUID(report.ReporterID),
		string(report.Reason), report.Detail, string(report.Status),
		report.CreatedAt, nilUserID(report.HandledBy), report.HandledAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reportID id.ReportID) (*models.Report, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM post_reports WHERE id = $1`, uuid.UUID(reportID))
	return scanReport(row)
}

func (s *PostgresStore) CountByPost(ctx context.Context, postID id.PostID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM post_reports WHERE post_id = $1`, uuid.UUID(postID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT `+reportColumns+` FROM post_reports
			ORDER BY created_at DESC LIMIT $1 OFFSET $2
		`, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+reportColumns+` FROM post_reports
			WHERE status = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, string(status), limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, reportID id.ReportID, validate func(*models.Report) error, mutate func(*models.Report)) (*models.Report, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin report tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+reportColumns+` FROM post_reports WHERE id = $1 FOR UPDATE`, uuid.UUID(reportID))
	report, err := scanReport(row)
	if err != nil {
		return nil, err
	}

	if err := validate(report); err != nil {
		return nil, err
	}
	mutate(report)

	_, err = tx.Exec(ctx, `
		UPDATE post_reports SET status = $2, handled_by = $3, handled_at = $4 WHERE id = $1
	`, uuid.UUID(report.ID), string(report.Status), nilUserID(report.HandledBy), report.HandledAt)
	if err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit report tx: %w", err)
	}
	return report, nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var (
		report     models.Report
		reportID   uuid.UUID
		postID     uuid.UUID
		reporterID uuid.UUID
		handledBy  *uuid.UUID
	)
	err := row.Scan(&reportID, &postID, &reporterID, &report.Reason, &report.Detail,
		&report.Status, &report.CreatedAt, &handledBy, &report.HandledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	report.ID = id.ReportID(reportID)
	report.PostID = id.PostID(postID)
	report.ReporterID = id.UserID(reporterID)
	if handledBy != nil {
		handler := id.UserID(*handledBy)
		report.HandledBy = &handler
	}
	return &report, nil
}

func nilUserID(userID *id.UserID) *uuid.UUID {
	if userID == nil {
		return nil
	}
	u := uuid.UUID(*userID)
	return &u
}
