package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "marketplace/pkg/domain"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the audit_outbox table and shipped to Kafka by the
// relay; Kafka is the durable home of audit events.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// outboxPayload is the JSON structure published to Kafka.
type outboxPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Subject   string `json:"subject,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New()
	payload := outboxPayload{
		ID:        eventID.String(),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Subject:   event.Subject,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, eventID, event.Action, payloadBytes, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM audit_outbox
		WHERE payload->>'user_id' = $1
		ORDER BY created_at
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var payload outboxPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		event := Event{
			Action:    payload.Action,
			Subject:   payload.Subject,
			Reason:    payload.Reason,
			RequestID: payload.RequestID,
			UserID:    userID,
		}
		if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
			event.Timestamp = ts
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// FetchUnpublished returns up to limit outbox rows not yet shipped to Kafka.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.EventType, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps outbox rows as shipped.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $2 WHERE id = ANY($1::uuid[])
	`, pq.Array(idsToParam(ids)), now)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// OutboxRow is one pending audit record awaiting publication.
type OutboxRow struct {
	ID        uuid.UUID
	EventType string
	Payload   []byte
}

func idsToParam(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, rowID := range ids {
		out[i] = rowID.String()
	}
	return out
}
