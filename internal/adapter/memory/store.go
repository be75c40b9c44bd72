package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/realtime"
)

// Store keeps events, registrations and discussion items in memory
type Store struct {
	mu            sync.RWMutex
	events        []event.Row
	registrations []event.Registration
	items         []discussion.Item
	failures      map[string]error
	broker        realtime.Broker
	now           func() time.Time
}

// NewStore creates an empty store. Mutations are announced on broker when it is non-nil.
func NewStore(broker realtime.Broker) *Store {
	return &Store{
		failures: make(map[string]error),
		broker:   broker,
		now:      time.Now,
	}
}

// WithClock replaces the clock used by the trending view and timestamps
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Fail makes every select on collection return err. A nil err clears it.
func (s *Store) Fail(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failures, collection)
		return
	}
	s.failures[collection] = err
}

// Seed loads event rows without announcing them
func (s *Store) Seed(rows ...event.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		s.events = append(s.events, project(r, nil))
	}
}

// SeedRegistrations loads registrations without announcing them
func (s *Store) SeedRegistrations(regs ...event.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registrations = append(s.registrations, regs...)
}

// Select runs a query against the in-memory collections
func (s *Store) Select(ctx context.Context, q event.Query) ([]event.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.failures[q.Collection]; ok {
		return nil, err
	}

	var source []event.Row
	switch q.Collection {
	case event.CollectionEvents:
		source = s.events
	case event.CollectionRegistrations:
		source = s.registrationRows()
	case event.CollectionTrending:
		source = s.trendingRows()
	case discussion.Collection:
		source = s.itemRows()
	default:
		return nil, fmt.Errorf("relation %q does not exist", q.Collection)
	}

	var rows []event.Row
	for _, r := range source {
		ok, err := matchAll(r, q.Where)
		if err != nil {
			return nil, fmt.Errorf("error evaluating query: %w", err)
		}
		if ok {
			rows = append(rows, r)
		}
	}

	sortRows(rows, q.OrderBy)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	out := make([]event.Row, len(rows))
	for i, r := range rows {
		out[i] = project(r, q.Columns)
	}
	return out, nil
}

// Insert stores a new event row
func (s *Store) Insert(ctx context.Context, row event.Row) (event.Row, error) {
	stored := project(row, nil)
	if id, _ := stored[event.ColumnID].(string); id == "" {
		stored[event.ColumnID] = uuid.New().String()
	}
	if _, ok := stored[event.ColumnCreatedAt]; !ok {
		stored[event.ColumnCreatedAt] = s.now()
	}
	if _, ok := stored[event.ColumnStatus]; !ok {
		stored[event.ColumnStatus] = string(event.StatusPending)
	}

	s.mu.Lock()
	s.events = append(s.events, stored)
	s.mu.Unlock()

	s.announce(ctx, realtime.Change{Table: event.CollectionEvents, Type: realtime.EventInsert, New: stored})
	return project(stored, nil), nil
}

// Register records a user joining an event
func (s *Store) Register(ctx context.Context, reg event.Registration) error {
	s.mu.Lock()
	for _, r := range s.registrations {
		if r.EventID == reg.EventID && r.UserID == reg.UserID {
			s.mu.Unlock()
			return event.ErrAlreadyExist
		}
	}
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = s.now()
	}
	s.registrations = append(s.registrations, reg)
	s.mu.Unlock()

	s.announce(ctx, realtime.Change{
		Table: event.CollectionRegistrations,
		Type:  realtime.EventInsert,
		New:   registrationRow(reg),
	})
	return nil
}

// Recent returns up to limit items for an event, newest first
func (s *Store) Recent(ctx context.Context, eventID string, limit int) ([]discussion.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.failures[discussion.Collection]; ok {
		return nil, err
	}

	var items []discussion.Item
	for _, it := range s.items {
		if it.EventID == eventID {
			items = append(items, it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Upsert stores an item keyed by (event_id, external id)
func (s *Store) Upsert(ctx context.Context, item discussion.Item) error {
	s.mu.Lock()
	changeType := realtime.EventInsert
	replaced := false
	for i, it := range s.items {
		if it.EventID == item.EventID && it.ExternalID == item.ExternalID {
			item.ID = it.ID
			s.items[i] = item
			replaced = true
			changeType = realtime.EventUpdate
			break
		}
	}
	if !replaced {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		s.items = append(s.items, item)
	}
	s.mu.Unlock()

	s.announce(ctx, realtime.Change{Table: discussion.Collection, Type: changeType, New: item.Row()})
	return nil
}

func (s *Store) announce(ctx context.Context, change realtime.Change) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, change); err != nil {
		log.Printf("[memory] failed to publish %s on %s: %v", change.Type, change.Table, err)
	}
}

func (s *Store) registrationRows() []event.Row {
	rows := make([]event.Row, len(s.registrations))
	for i, r := range s.registrations {
		rows[i] = registrationRow(r)
	}
	return rows
}

func registrationRow(r event.Registration) event.Row {
	return event.Row{
		event.ColumnID:        r.ID,
		event.ColumnEventID:   r.EventID,
		event.ColumnUserID:    r.UserID,
		event.ColumnCreatedAt: r.CreatedAt,
	}
}

func (s *Store) itemRows() []event.Row {
	rows := make([]event.Row, len(s.items))
	for i, it := range s.items {
		rows[i] = it.Row()
	}
	return rows
}

// trendingRows mirrors the event_trending view: visible future events
// with their registration count
func (s *Store) trendingRows() []event.Row {
	counts := make(map[string]int)
	for _, r := range s.registrations {
		counts[r.EventID]++
	}

	now := s.now()
	var rows []event.Row
	for _, e := range s.events {
		status := text(e[event.ColumnStatus])
		if status != string(event.StatusApproved) && status != string(event.StatusPending) {
			continue
		}
		if start, ok := event.ParseTime(e[event.ColumnStartTime]); !ok || start.Before(now) {
			continue
		}
		row := project(e, nil)
		row[event.ColumnRegistrationCount] = counts[text(e[event.ColumnID])]
		rows = append(rows, row)
	}
	return rows
}
