package event

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shahid/internal/directory/models"
	id "shahid/pkg/domain"
	"shahid/pkg/platform/sentinel"
)

// PostgresStore persists events in the events table. Participants and
// journalists live in join tables and are loaded alongside the event.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const eventColumns = `id, title, description, date, created_by, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, event *models.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin event tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(event.ID), event.Title, event.Description, event.Date,
		uuid.UUID(event.CreatedBy), string(event.Status), event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := replaceLinks(ctx, tx, event); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit event tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, uuid.UUID(eventID))
	event, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadLinks(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += ` WHERE status = $` + strconv.Itoa(len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY date DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, event := range events {
		if err := s.loadLinks(ctx, event); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (s *PostgresStore) Execute(ctx context.Context, eventID id.EventID, validate func(*models.Event) error, mutate func(*models.Event)) (*models.Event, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin event tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, uuid.UUID(eventID))
	event, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	if err := loadLinksTx(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := validate(event); err != nil {
		return nil, err
	}
	mutate(event)

	_, err = tx.Exec(ctx, `
		UPDATE events
		SET title = $2, description = $3, date = $4, status = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(event.ID), event.Title, event.Description, event.Date,
		string(event.Status), event.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := replaceLinks(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit event tx: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) Delete(ctx context.Context, eventID id.EventID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, uuid.UUID(eventID))
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func replaceLinks(ctx context.Context, tx pgx.Tx, event *models.Event) error {
	if _, err := tx.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1`, uuid.UUID(event.ID)); err != nil {
		return fmt.Errorf("clear event participants: %w", err)
	}
	for _, personID := range event.ParticipantIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_participants (event_id, person_id) VALUES ($1, $2)
		`, uuid.UUID(event.ID), uuid.UUID(personID)); err != nil {
			return fmt.Errorf("insert event participant: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM event_journalists WHERE event_id = $1`, uuid.UUID(event.ID)); err != nil {
		return fmt.Errorf("clear event journalists: %w", err)
	}
	for _, userID := range event.JournalistIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_journalists (event_id, user_id) VALUES ($1, $2)
		`, uuid.UUID(event.ID), uuid.UUID(userID)); err != nil {
			return fmt.Errorf("insert event journalist: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) loadLinks(ctx context.Context, event *models.Event) error {
	rows, err := s.pool.Query(ctx, `SELECT person_id FROM event_participants WHERE event_id = $1`, uuid.UUID(event.ID))
	if err != nil {
		return fmt.Errorf("load event participants: %w", err)
	}
	event.ParticipantIDs, err = collectPersonIDs(rows)
	if err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx, `SELECT user_id FROM event_journalists WHERE event_id = $1`, uuid.UUID(event.ID))
	if err != nil {
		return fmt.Errorf("load event journalists: %w", err)
	}
	event.JournalistIDs, err = collectUserIDs(rows)
	return err
}

func loadLinksTx(ctx context.Context, tx pgx.Tx, event *models.Event) error {
	rows, err := tx.Query(ctx, `SELECT person_id FROM event_participants WHERE event_id = $1`, uuid.UUID(event.ID))
	if err != nil {
		return fmt.Errorf("load event participants: %w", err)
	}
	event.ParticipantIDs, err = collectPersonIDs(rows)
	if err != nil {
		return err
	}

	rows, err = tx.Query(ctx, `SELECT user_id FROM event_journalists WHERE event_id = $1`, uuid.UUID(event.ID))
	if err != nil {
		return fmt.Errorf("load event journalists: %w", err)
	}
	event.JournalistIDs, err = collectUserIDs(rows)
	return err
}

func collectPersonIDs(rows pgx.Rows) ([]id.PersonID, error) {
	defer rows.Close()
	var ids []id.PersonID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan person id: %w", err)
		}
		ids = append(ids, id.PersonID(u))
	}
	return ids, rows.Err()
}

func collectUserIDs(rows pgx.Rows) ([]id.UserID, error) {
	defer rows.Close()
	var ids []id.UserID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id.UserID(u))
	}
	return ids, rows.Err()
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		event     models.Event
		eventID   uuid.UUID
		createdBy uuid.UUID
	)
	err := row.Scan(&eventID, &event.Title, &event.Description, &event.Date,
		&createdBy, &event.Status, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	event.ID = id.EventID(eventID)
	event.CreatedBy = id.UserID(createdBy)
	return &event, nil
}
