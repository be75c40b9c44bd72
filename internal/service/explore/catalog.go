package explore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campusevents/internal/domain/event"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/query"
)

// Catalog runs one-shot event reads and user mutations
type Catalog struct {
	store      event.Store
	builder    *query.Builder
	normalizer *normalize.Normalizer
}

// NewCatalog creates a catalog over store
func NewCatalog(store event.Store, builder *query.Builder, normalizer *normalize.Normalizer) *Catalog {
	return &Catalog{
		store:      store,
		builder:    builder,
		normalizer: normalizer,
	}
}

// List returns the events matching a filter state, earliest first
func (c *Catalog) List(ctx context.Context, state event.FilterState) ([]normalize.View, error) {
	rows, err := c.store.Select(ctx, c.builder.Build(state))
	if err != nil {
		return nil, fmt.Errorf("error listing events: %w", err)
	}
	return c.normalizer.Events(rows), nil
}

// Upcoming returns the next limit visible events
func (c *Catalog) Upcoming(ctx context.Context, limit int) ([]normalize.View, error) {
	rows, err := c.store.Select(ctx, c.builder.Upcoming(limit))
	if err != nil {
		return nil, fmt.Errorf("error listing upcoming events: %w", err)
	}
	return c.normalizer.Events(rows), nil
}

// Get returns one visible event
func (c *Catalog) Get(ctx context.Context, id string) (*normalize.View, error) {
	if strings.TrimSpace(id) == "" {
		return nil, event.ErrNotFound
	}
	rows, err := c.store.Select(ctx, c.builder.ByID(id))
	if err != nil {
		return nil, fmt.Errorf("error getting event: %w", err)
	}
	if len(rows) == 0 {
		return nil, event.ErrNotFound
	}
	v := c.normalizer.Event(rows[0])
	return &v, nil
}

// Submit validates and stores a new event as pending
func (c *Catalog) Submit(ctx context.Context, sub event.Submission) (*normalize.View, error) {
	row, err := c.submissionRow(sub)
	if err != nil {
		return nil, err
	}

	stored, err := c.store.Insert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("error creating event: %w", err)
	}
	v := c.normalizer.Event(stored)
	return &v, nil
}

// Join registers a user for an event
func (c *Catalog) Join(ctx context.Context, eventID, userID string) error {
	if strings.TrimSpace(eventID) == "" || strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: event and user are required", event.ErrValidation)
	}
	reg := event.Registration{
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: c.builder.Now(),
	}
	if err := c.store.Register(ctx, reg); err != nil {
		return fmt.Errorf("error joining event: %w", err)
	}
	return nil
}

// submissionRow checks a submission before any backend call
func (c *Catalog) submissionRow(sub event.Submission) (event.Row, error) {
	var missing []string
	title := strings.TrimSpace(sub.Title)
	if title == "" {
		missing = append(missing, "title")
	}
	location := strings.TrimSpace(sub.Location)
	if location == "" {
		missing = append(missing, "location")
	}
	if sub.StartTime == nil || sub.StartTime.IsZero() {
		missing = append(missing, "start_time")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", event.ErrValidation, strings.Join(missing, ", "))
	}

	start := *sub.StartTime
	end := start.Add(event.DefaultDuration)
	if sub.EndTime != nil && !sub.EndTime.IsZero() {
		end = *sub.EndTime
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", event.ErrInvalidDate,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	tags := make([]string, 0, len(sub.Tags))
	for _, t := range sub.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}

	row := event.Row{
		event.ColumnTitle:     title,
		event.ColumnStartTime: start,
		event.ColumnEndTime:   end,
		event.ColumnLocation:  location,
		event.ColumnTags:      tags,
		event.ColumnStatus:    string(event.StatusPending),
	}
	if d := strings.TrimSpace(sub.Description); d != "" {
		row[event.ColumnDescription] = d
	}
	if sub.PosterURL != "" {
		row[event.ColumnPosterURL] = sub.PosterURL
	}
	if len(sub.Subreddits) > 0 {
		row[event.ColumnSubreddits] = sub.Subreddits
	}
	return row, nil
}
