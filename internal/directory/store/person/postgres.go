package person

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

// PostgresStore persists people in the people table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const personColumns = `id, name, role, image, added_by, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, person *models.Person) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO people (`+personColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(person.ID), person.Name, string(person.Role), nilIfEmpty(person.Image),
		uuid.UUID(person.AddedBy), string(person.Status), person.CreatedAt, person.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, personID id.PersonID) (*models.Person, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1`, uuid.UUID(personID))
	return scanPerson(row)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people`
	args := []any{}
	where := ""
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = ` WHERE status = $` + strconv.Itoa(len(args))
	}
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		if where == "" {
			where = ` WHERE`
		} else {
			where += ` AND`
		}
		where += ` role = $` + strconv.Itoa(len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += where + fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []*models.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	return people, rows.Err()
}

func (s *PostgresStore) Execute(ctx context.Context, personID id.PersonID, validate func(*models.Person) error, mutate func(*models.Person)) (*models.Person, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin person tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1 FOR UPDATE`, uuid.UUID(personID))
	person, err := scanPerson(row)
	if err != nil {
		return nil, err
	}

	if err := validate(person); err != nil {
		return nil, err
	}
	mutate(person)

	_, err = tx.Exec(ctx, `
		UPDATE people
		SET name = $2, role = $3, image = $4, status = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(person.ID), person.Name, string(person.Role), nilIfEmpty(person.Image),
		string(person.Status), person.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit person tx: %w", err)
	}
	return person, nil
}

func (s *PostgresStore) Delete(ctx context.Context, personID id.PersonID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM people WHERE id = $1`, uuid.UUID(personID))
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanPerson(row pgx.Row) (*models.Person, error) {
	var (
		person   models.Person
		personID uuid.UUID
		addedBy  uuid.UUID
		image    *string
	)
	err := row.Scan(&personID, &person.Name, &person.Role, &image, &addedBy,
		&person.Status, &person.CreatedAt, &person.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan person: %w", err)
	}
	person.ID = id.PersonID(personID)
	person.AddedBy = id.UserID(addedBy)
	if image != nil {
		person.Image = *image
	}
	return &person, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
