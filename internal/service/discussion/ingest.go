package discussion

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/event"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/query"
)

// MaxKeywords caps the search terms derived from an event
const MaxKeywords = 8

// IngesterConfig contains configuration for the ingester
type IngesterConfig struct {
	Schedule          string
	RunOnStart        bool
	DefaultSubreddits []string
	CycleTimeout      time.Duration
}

// DefaultIngesterConfig returns the default ingester configuration
func DefaultIngesterConfig() IngesterConfig {
	return IngesterConfig{
		Schedule:          "@every 5m",
		RunOnStart:        true,
		DefaultSubreddits: []string{"college", "university", "technology", "CampusLife"},
		CycleTimeout:      4 * time.Minute,
	}
}

// Stats summarises one ingestion cycle
type Stats struct {
	Events int
	Items  int
	Errors int
}

// Ingester periodically searches external platforms for discussion
// about visible events and upserts what it finds.
type Ingester struct {
	events     event.Store
	items      discussion.Store
	sources    []discussion.Source
	builder    *query.Builder
	normalizer *normalize.Normalizer
	scorer     Scorer
	config     IngesterConfig

	cron    *cron.Cron
	running sync.Mutex
}

// NewIngester creates a new ingester
func NewIngester(events event.Store, items discussion.Store, builder *query.Builder, normalizer *normalize.Normalizer, config IngesterConfig, sources ...discussion.Source) *Ingester {
	def := DefaultIngesterConfig()
	if config.Schedule == "" {
		config.Schedule = def.Schedule
	}
	if len(config.DefaultSubreddits) == 0 {
		config.DefaultSubreddits = def.DefaultSubreddits
	}
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = def.CycleTimeout
	}
	return &Ingester{
		events:     events,
		items:      items,
		sources:    sources,
		builder:    builder,
		normalizer: normalizer,
		scorer:     NewVaderScorer(),
		config:     config,
	}
}

// WithScorer replaces the sentiment scorer
func (g *Ingester) WithScorer(scorer Scorer) *Ingester {
	g.scorer = scorer
	return g
}

// Start runs cycles on the configured schedule, and once right away
// when RunOnStart is set
func (g *Ingester) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(g.config.Schedule, func() { g.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("error scheduling ingestion %q: %w", g.config.Schedule, err)
	}
	g.cron = c

	if g.config.RunOnStart {
		go g.runScheduled(ctx)
	}
	c.Start()

	log.Printf("[worker] started with %d sources on schedule %s", len(g.sources), g.config.Schedule)
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish
func (g *Ingester) Stop() {
	if g.cron == nil {
		return
	}
	<-g.cron.Stop().Done()
	g.running.Lock()
	g.running.Unlock()
	log.Println("[worker] stopped")
}

func (g *Ingester) runScheduled(ctx context.Context) {
	if !g.running.TryLock() {
		log.Println("[worker] previous cycle still running, skipping")
		return
	}
	defer g.running.Unlock()

	if ctx.Err() != nil {
		return
	}
	cycleCtx, cancel := context.WithTimeout(ctx, g.config.CycleTimeout)
	defer cancel()

	stats, err := g.RunCycle(cycleCtx)
	if err != nil {
		log.Printf("[worker] cycle failed: %v", err)
		return
	}
	log.Printf("[worker] cycle done: %d events, %d items, %d errors", stats.Events, stats.Items, stats.Errors)
}

// RunCycle searches every source for every visible event once
func (g *Ingester) RunCycle(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, err := g.events.Select(ctx, g.builder.Visible())
	if err != nil {
		return stats, fmt.Errorf("error fetching events: %w", err)
	}

	for _, v := range g.normalizer.Events(rows) {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		target := g.Target(v)
		if len(target.Keywords) == 0 {
			continue
		}
		stats.Events++

		for _, src := range g.sources {
			found, err := src.Search(ctx, target)
			if err != nil {
				log.Printf("[worker] %s search failed for event %s: %v", src.Name(), v.ID, err)
				stats.Errors++
				continue
			}
			for _, item := range found {
				item.EventID = v.ID
				item.Sentiment = g.scorer.Score(SentimentText(item))
				if err := g.items.Upsert(ctx, item); err != nil {
					log.Printf("[worker] error storing %s item %s: %v", src.Name(), item.ExternalID, err)
					stats.Errors++
					continue
				}
				stats.Items++
			}
		}
	}

	return stats, nil
}

// Target derives the search parameters for an event
func (g *Ingester) Target(v normalize.View) discussion.Target {
	keywords := Keywords(v.Tags, v.Title)
	subreddits := v.Subreddits
	if len(subreddits) == 0 {
		subreddits = g.config.DefaultSubreddits
	}
	return discussion.Target{
		EventID:    v.ID,
		Keywords:   keywords,
		Query:      strings.Join(keywords, " OR "),
		Subreddits: subreddits,
	}
}

// Keywords returns the tags followed by the lowercased title words,
// de-duplicated in order and capped at MaxKeywords.
func Keywords(tags []string, title string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(w string) {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] || len(out) >= MaxKeywords {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, t := range tags {
		add(t)
	}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		add(w)
	}
	return out
}
