// Package postgres implements audit.Store using the transactional outbox
// pattern. Events are written to the outbox table in the caller's transaction
// when one is present in context; the relay publishes rows to Kafka and marks
// them published. Kafka is the source of truth for downstream consumers; the
// audit_events table keeps a queryable copy for the admin API.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shahid/internal/audit"
	id "shahid/pkg/domain"
	txcontext "shahid/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for deserialization by consumers.
type outboxPayload struct {
	ID           string            `json:"ID"`
	Category     string            `json:"Category"`
	Timestamp    string            `json:"Timestamp"`
	ActorID      string            `json:"ActorID,omitempty"`
	TargetUserID string            `json:"TargetUserID,omitempty"`
	TargetPostID string            `json:"TargetPostID,omitempty"`
	Action       string            `json:"Action"`
	Reason       string            `json:"Reason,omitempty"`
	RequestID    string            `json:"RequestID,omitempty"`
	IP           string            `json:"IP,omitempty"`
	Metadata     map[string]string `json:"Metadata,omitempty"`
}

// Append writes the event to audit_events and enqueues an outbox row in the
// same statement batch (same transaction when the caller supplied one).
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	category := event.Action.Category()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		Reason:    event.Reason,
		RequestID: event.RequestID,
		IP:        event.IP,
		Metadata:  event.Metadata,
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}
	if !event.TargetUserID.IsNil() {
		payload.TargetUserID = event.TargetUserID.String()
	}
	if !event.TargetPostID.IsNil() {
		payload.TargetPostID = event.TargetPostID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	exec := s.execer(ctx)

	_, err = exec.ExecContext(ctx, `
		INSERT INTO audit_events (id, category, action, actor_id, target_user_id, target_post_id, reason, request_id, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, eventID, string(category), event.Action,
		nullUUID(uuid.UUID(event.ActorID)), nullUUID(uuid.UUID(event.TargetUserID)), nullUUID(uuid.UUID(event.TargetPostID)),
		nullString(event.Reason), nullString(event.RequestID), nullString(event.IP),
		payloadMetadata(event.Metadata), event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), aggregateType(event), aggregateID(eventID, event), event.Action, payloadBytes, event.Timestamp)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, action, actor_id, target_user_id, target_post_id, reason, request_id, ip, metadata, created_at
		FROM audit_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) ListByActor(ctx context.Context, actorID id.UserID, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, action, actor_id, target_user_id, target_post_id, reason, request_id, ip, metadata, created_at
		FROM audit_events
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, uuid.UUID(actorID), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events by actor: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			e            audit.Event
			category     string
			actorID      sql.Null[uuid.UUID]
			targetUserID sql.Null[uuid.UUID]
			targetPostID sql.Null[uuid.UUID]
			reason       sql.NullString
			requestID    sql.NullString
			ip           sql.NullString
			metadata     []byte
		)
		if err := rows.Scan(&category, &e.Action, &actorID, &targetUserID, &targetPostID,
			&reason, &requestID, &ip, &metadata, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if actorID.Valid {
			e.ActorID = id.UserID(actorID.V)
		}
		if targetUserID.Valid {
			e.TargetUserID = id.UserID(targetUserID.V)
		}
		if targetPostID.Valid {
			e.TargetPostID = id.PostID(targetPostID.V)
		}
		e.Reason = reason.String
		e.RequestID = requestID.String
		e.IP = ip.String
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &e.Metadata)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func aggregateType(event audit.Event) string {
	switch {
	case !event.TargetPostID.IsNil():
		return "post"
	case !event.TargetUserID.IsNil():
		return "user"
	default:
		return "audit"
	}
}

func aggregateID(eventID uuid.UUID, event audit.Event) string {
	switch {
	case !event.TargetPostID.IsNil():
		return event.TargetPostID.String()
	case !event.TargetUserID.IsNil():
		return event.TargetUserID.String()
	default:
		return eventID.String()
	}
}

func nullUUID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func payloadMetadata(m map[string]string) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}
