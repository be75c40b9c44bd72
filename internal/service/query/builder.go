package query

import (
	"strings"
	"time"

	"campusevents/internal/domain/event"
)

// Builder composes event queries
type Builder struct {
	loc *time.Location
	now func() time.Time
}

// NewBuilder creates a builder that resolves time windows in loc
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{
		loc: loc,
		now: time.Now,
	}
}

// WithClock replaces the wall clock, mostly for tests
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Now returns the builder's current time in its location
func (b *Builder) Now() time.Time {
	return b.now().In(b.loc)
}

// Build composes the discovery query for a filter state
func (b *Builder) Build(state event.FilterState) event.Query {
	now := b.Now()

	q := event.Query{
		Collection: event.CollectionEvents,
		Where:      []event.Predicate{statusPredicate()},
		OrderBy:    []event.Order{{Column: event.ColumnStartTime}},
	}

	if start, end, ok := Window(state.Key, now); ok {
		q.Where = append(q.Where,
			event.Gte(event.ColumnStartTime, start),
			event.Lte(event.ColumnStartTime, end),
		)
	} else {
		q.Where = append(q.Where, event.Gte(event.ColumnStartTime, now))
	}

	if state.Key.IsCategory() {
		q.Where = append(q.Where, event.Contains(event.ColumnTags, []string{string(state.Key)}))
	}

	if term := strings.TrimSpace(state.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q.Where = append(q.Where, event.Or(
			event.ILike(event.ColumnTitle, pattern),
			event.ILike(event.ColumnLocation, pattern),
		))
	}

	return q
}

// Upcoming is the open-ended future query, capped at limit rows
func (b *Builder) Upcoming(limit int) event.Query {
	q := b.Build(event.FilterState{Key: event.FilterAll})
	q.Limit = limit
	return q
}

// ByID looks up a single visible event
func (b *Builder) ByID(id string) event.Query {
	return event.Query{
		Collection: event.CollectionEvents,
		Where: []event.Predicate{
			event.Eq(event.ColumnID, id),
			statusPredicate(),
		},
		Limit: 1,
	}
}

// Trending reads the precomputed ranking view
func (b *Builder) Trending(view string, limit int) event.Query {
	if view == "" {
		view = event.CollectionTrending
	}
	return event.Query{
		Collection: view,
		OrderBy:    []event.Order{{Column: event.ColumnRegistrationCount, Desc: true}},
		Limit:      limit,
	}
}

// Registrations reads the event id of every registration
func (b *Builder) Registrations() event.Query {
	return event.Query{
		Collection: event.CollectionRegistrations,
		Columns:    []string{event.ColumnEventID},
	}
}

// Visible selects every approved or pending event regardless of time
func (b *Builder) Visible() event.Query {
	return event.Query{
		Collection: event.CollectionEvents,
		Where:      []event.Predicate{statusPredicate()},
		OrderBy:    []event.Order{{Column: event.ColumnStartTime}},
	}
}

func statusPredicate() event.Predicate {
	statuses := make([]string, len(event.VisibleStatuses))
	for i, s := range event.VisibleStatuses {
		statuses[i] = string(s)
	}
	return event.In(event.ColumnStatus, statuses)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
