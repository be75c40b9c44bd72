package trending

import (
	"context"
	"log"
	"sort"

	"campusevents/internal/domain/event"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/query"
)

// Config contains configuration for the aggregator
type Config struct {
	Limit int
	View  string
}

// DefaultConfig returns the default aggregator configuration
func DefaultConfig() Config {
	return Config{
		Limit: 8,
		View:  event.CollectionTrending,
	}
}

// Aggregator produces the top events by registration count
type Aggregator struct {
	store      event.Store
	builder    *query.Builder
	normalizer *normalize.Normalizer
	config     Config
}

// NewAggregator creates a new aggregator
func NewAggregator(store event.Store, builder *query.Builder, normalizer *normalize.Normalizer, config Config) *Aggregator {
	if config.Limit <= 0 {
		config.Limit = DefaultConfig().Limit
	}
	if config.View == "" {
		config.View = DefaultConfig().View
	}
	return &Aggregator{
		store:      store,
		builder:    builder,
		normalizer: normalizer,
		config:     config,
	}
}

// Top returns the ranking. It reads the precomputed view and falls back
// to counting registrations itself; it never fails.
func (a *Aggregator) Top(ctx context.Context) []normalize.View {
	rows, err := a.store.Select(ctx, a.builder.Trending(a.config.View, a.config.Limit))
	if err == nil && len(rows) > 0 {
		return a.normalizer.Events(rows)
	}
	if err != nil {
		log.Printf("[trending] view %s unavailable, aggregating locally: %v", a.config.View, err)
	}

	return a.fallback(ctx)
}

func (a *Aggregator) fallback(ctx context.Context) []normalize.View {
	events, err := a.store.Select(ctx, a.builder.Upcoming(0))
	if err != nil {
		log.Printf("[trending] error fetching events: %v", err)
		events = nil
	}

	registrations, err := a.store.Select(ctx, a.builder.Registrations())
	if err != nil {
		log.Printf("[trending] error fetching registrations: %v", err)
		registrations = nil
	}

	return a.normalizer.Events(Rank(events, registrations, a.config.Limit))
}

// Rank joins registration counts onto events, orders them by count
// descending and keeps the first limit. Events keep their relative
// order on ties; registrations for unknown events are ignored.
func Rank(events, registrations []event.Row, limit int) []event.Row {
	counts := make(map[string]int)
	for _, r := range registrations {
		if id := normalize.ID(r[event.ColumnEventID]); id != "" {
			counts[id]++
		}
	}

	joined := make([]event.Row, 0, len(events))
	for _, e := range events {
		row := make(event.Row, len(e)+1)
		for k, v := range e {
			row[k] = v
		}
		row[event.ColumnRegistrationCount] = counts[normalize.ID(e[event.ColumnID])]
		joined = append(joined, row)
	}

	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i][event.ColumnRegistrationCount].(int) > joined[j][event.ColumnRegistrationCount].(int)
	})

	if limit > 0 && len(joined) > limit {
		joined = joined[:limit]
	}
	return joined
}
