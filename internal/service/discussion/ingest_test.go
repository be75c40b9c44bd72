package discussion

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"campusevents/internal/adapter/memory"
	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/event"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/query"
)

type fakeSource struct {
	name string
	err  error

	mu      sync.Mutex
	targets []discussion.Target
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Search(ctx context.Context, target discussion.Target) ([]discussion.Item, error) {
	s.mu.Lock()
	s.targets = append(s.targets, target)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return []discussion.Item{
		{ExternalID: s.name + "-1", Source: s.name, Kind: discussion.KindPost, Body: target.Query, CreatedAt: base},
	}, nil
}

func newIngester(store *memory.Store, sources ...discussion.Source) *Ingester {
	builder := query.NewBuilder(time.UTC).WithClock(func() time.Time { return base })
	return NewIngester(store, store, builder, normalize.New(time.UTC), IngesterConfig{}, sources...)
}

func TestKeywords(t *testing.T) {
	cases := []struct {
		name  string
		tags  []string
		title string
		want  []string
	}{
		{"tags then title words", []string{"tech"}, "Robotics Demo Day", []string{"tech", "robotics", "demo", "day"}},
		{"dedup keeps first", []string{"music", "jazz"}, "Jazz Night music", []string{"music", "jazz", "night"}},
		{"capped", nil, "a b c d e f g h i j", []string{"a", "b", "c", "d", "e", "f", "g", "h"}},
		{"empty", nil, "   ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Keywords(tc.tags, tc.title); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Keywords = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTargetFallsBackToDefaultSubreddits(t *testing.T) {
	g := newIngester(memory.NewStore(nil))

	target := g.Target(normalize.View{ID: "e", Title: "Hack Night", Tags: []string{"tech"}})
	if target.Query != "tech OR hack OR night" {
		t.Errorf("query = %q", target.Query)
	}
	if !reflect.DeepEqual(target.Subreddits, DefaultIngesterConfig().DefaultSubreddits) {
		t.Errorf("subreddits = %v", target.Subreddits)
	}

	target = g.Target(normalize.View{ID: "e", Title: "Hack Night", Subreddits: []string{"uwaterloo"}})
	if !reflect.DeepEqual(target.Subreddits, []string{"uwaterloo"}) {
		t.Errorf("subreddits = %v", target.Subreddits)
	}
}

func TestRunCycleUpsertsPerVisibleEvent(t *testing.T) {
	store := memory.NewStore(nil)
	store.Seed(
		event.Row{"id": "a", "title": "Chess Club", "start_time": base.Add(time.Hour), "status": "approved"},
		event.Row{"id": "r", "title": "Nope", "start_time": base.Add(time.Hour), "status": "rejected"},
	)
	reddit := &fakeSource{name: "reddit"}
	failing := &fakeSource{name: "twitter", err: errors.New("rate limited")}
	g := newIngester(store, reddit, failing)

	stats, err := g.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if stats != (Stats{Events: 1, Items: 1, Errors: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	items, _ := store.Recent(context.Background(), "a", 10)
	if len(items) != 1 || items[0].ExternalID != "reddit-1" || items[0].EventID != "a" {
		t.Fatalf("stored = %+v", items)
	}
	if items[0].Body != "chess OR club" {
		t.Errorf("source saw query %q", items[0].Body)
	}

	// a second cycle updates in place
	if _, err := g.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if items, _ := store.Recent(context.Background(), "a", 10); len(items) != 1 {
		t.Fatalf("items after second cycle = %d, want 1", len(items))
	}
}

func TestRunCycleFailsWhenEventsUnavailable(t *testing.T) {
	store := memory.NewStore(nil)
	store.Fail(event.CollectionEvents, errors.New("down"))

	if _, err := newIngester(store).RunCycle(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	builder := query.NewBuilder(time.UTC)
	store := memory.NewStore(nil)
	g := NewIngester(store, store, builder, normalize.New(time.UTC), IngesterConfig{Schedule: "every so often"})

	if err := g.Start(context.Background()); err == nil {
		g.Stop()
		t.Fatal("expected schedule error")
	}
}

func TestStartRunsImmediately(t *testing.T) {
	store := memory.NewStore(nil)
	store.Seed(event.Row{"id": "a", "title": "Chess", "start_time": time.Now().Add(time.Hour), "status": "approved"})
	src := &fakeSource{name: "reddit"}
	g := NewIngester(store, store, query.NewBuilder(time.UTC), normalize.New(time.UTC), IngesterConfig{Schedule: "@every 1h", RunOnStart: true}, src)

	if err := g.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer g.Stop()

	waitFor(t, func() bool {
		items, _ := store.Recent(context.Background(), "a", 1)
		return len(items) == 1
	})
}

type fixedSource struct {
	items []discussion.Item
}

func (s fixedSource) Name() string { return "fixed" }

func (s fixedSource) Search(ctx context.Context, target discussion.Target) ([]discussion.Item, error) {
	return s.items, nil
}

func TestRunCycleScoresSentiment(t *testing.T) {
	store := memory.NewStore(nil)
	store.Seed(event.Row{"id": "a", "title": "Chess Club", "start_time": base.Add(time.Hour), "status": "approved"})
	src := fixedSource{items: []discussion.Item{
		{ExternalID: "p", Kind: discussion.KindPost, Title: "Great night", Body: "I love this club, it is wonderful and amazing!", CreatedAt: base},
		{ExternalID: "c", Kind: discussion.KindComment, Body: "This was terrible, awful and boring.", CreatedAt: base.Add(-time.Minute)},
		{ExternalID: "e", Kind: discussion.KindComment, Body: "", CreatedAt: base.Add(-time.Hour)},
	}}

	if _, err := newIngester(store, src).RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	items, _ := store.Recent(context.Background(), "a", 10)
	if len(items) != 3 {
		t.Fatalf("items = %d", len(items))
	}
	scores := map[string]float64{}
	for _, it := range items {
		scores[it.ExternalID] = it.Sentiment
	}
	if scores["p"] <= 0.5 {
		t.Errorf("positive post scored %v", scores["p"])
	}
	if scores["c"] >= 0 {
		t.Errorf("negative comment scored %v", scores["c"])
	}
	if scores["e"] != 0 {
		t.Errorf("empty comment scored %v", scores["e"])
	}
}

type constantScorer float64

func (s constantScorer) Score(string) float64 { return float64(s) }

func TestSentimentTextAndScorerOverride(t *testing.T) {
	post := discussion.Item{Kind: discussion.KindPost, Title: "Title", Body: "body"}
	comment := discussion.Item{Kind: discussion.KindComment, Title: "ignored", Body: "body"}
	if got := SentimentText(post); got != "Title body" {
		t.Errorf("post text = %q", got)
	}
	if got := SentimentText(comment); got != "body" {
		t.Errorf("comment text = %q", got)
	}

	store := memory.NewStore(nil)
	store.Seed(event.Row{"id": "a", "title": "Chess", "start_time": base.Add(time.Hour), "status": "approved"})
	g := newIngester(store, &fakeSource{name: "reddit"}).WithScorer(constantScorer(0.25))
	if _, err := g.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if items, _ := store.Recent(context.Background(), "a", 1); len(items) != 1 || items[0].Sentiment != 0.25 {
		t.Fatalf("items = %+v", items)
	}
}
