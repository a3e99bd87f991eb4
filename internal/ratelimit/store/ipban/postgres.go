package ipban

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/ratelimit/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// PostgresStore persists bans in the ip_bans table, keyed by address.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const banColumns = `ip, reason, banned_by, created_at`

func (s *PostgresStore) Create(ctx context.Context, ban *models.IPBan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ip_bans (`+banColumns+`) VALUES ($1, $2, $3, $4)
	`, ban.IP, ban.Reason, uuid.UUID(ban.BannedBy), ban.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ip ban: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIP(ctx context.Context, ip string) (*models.IPBan, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+banColumns+` FROM ip_bans WHERE ip = $1`, ip)
	return scanBan(row)
}

func (s *PostgresStore) Delete(ctx context.Context, ip string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ip_bans WHERE ip = $1`, ip)
	if err != nil {
		return fmt.Errorf("delete ip ban: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.IPBan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+banColumns+` FROM ip_bans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list ip bans: %w", err)
	}
	defer rows.Close()

	var bans []*models.IPBan
	for rows.Next() {
		ban, err := scanBan(rows)
		if err != nil {
			return nil, err
		}
		bans = append(bans, ban)
	}
	return bans, rows.Err()
}

func scanBan(row pgx.Row) (*models.IPBan, error) {
	var (
		ban      models.IPBan
		bannedBy uuid.UUID
	)
	err := row.Scan(&ban.IP, &ban.Reason, &bannedBy, &ban.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan ip ban: %w", err)
	}
	ban.BannedBy = id.UserID(bannedBy)
	return &ban, nil
}
