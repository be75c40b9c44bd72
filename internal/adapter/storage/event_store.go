// internal/adapter/storage/event_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgconn"

	"campusevents/internal/domain/event"
)

const uniqueViolation = "23505"

// EventStore implements the event backend on Postgres
type EventStore struct {
	db DB
}

// NewEventStore creates a new event store
func NewEventStore(db DB) *EventStore {
	return &EventStore{
		db: db,
	}
}

// Select runs a read query. Rows are returned as decoded jsonb objects.
func (s *EventStore) Select(ctx context.Context, q event.Query) ([]event.Row, error) {
	query, args, err := Compile(q)
	if err != nil {
		return nil, fmt.Errorf("error compiling query on %s: %w", q.Collection, err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", q.Collection, err)
	}
	defer rows.Close()

	result := []event.Row{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", q.Collection, err)
		}
		row := event.Row{}
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("error decoding %s row: %w", q.Collection, err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", q.Collection, err)
	}

	return result, nil
}

// Insert stores a new event and returns the stored row
func (s *EventStore) Insert(ctx context.Context, row event.Row) (event.Row, error) {
	if len(row) == 0 {
		return nil, fmt.Errorf("%w: empty event", event.ErrValidation)
	}

	columns := make([]string, 0, len(row))
	for col := range row {
		if _, err := quoteIdent(col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[col]
	}

	query := fmt.Sprintf(
		"INSERT INTO %s AS t (%s) VALUES (%s) RETURNING to_jsonb(t)",
		event.CollectionEvents,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	var raw []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("error inserting event: %w", err)
	}

	stored := event.Row{}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("error decoding inserted event: %w", err)
	}
	return stored, nil
}

// Register records a user joining an event
func (s *EventStore) Register(ctx context.Context, reg event.Registration) error {
	query := `
		INSERT INTO registrations (event_id, user_id, created_at)
		VALUES ($1::uuid, $2, COALESCE($3, now()))
	`

	var createdAt interface{}
	if !reg.CreatedAt.IsZero() {
		createdAt = reg.CreatedAt
	}

	_, err := s.db.Exec(ctx, query, reg.EventID, reg.UserID, createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return event.ErrAlreadyExist
		}
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}
