package explore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusevents/internal/adapter/memory"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/realtime"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/query"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

// countingStore records every query and can hold selected calls
type countingStore struct {
	event.Store

	mu      sync.Mutex
	queries []event.Query
	hook    func(n int, q event.Query)
	err     error
}

func (s *countingStore) Select(ctx context.Context, q event.Query) ([]event.Row, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	n := len(s.queries)
	hook := s.hook
	err := s.err
	s.mu.Unlock()

	if hook != nil {
		hook(n, q)
	}
	if err != nil {
		return nil, err
	}
	return s.Store.Select(ctx, q)
}

func (s *countingStore) calls() []event.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Query(nil), s.queries...)
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func setup(t *testing.T, debounce time.Duration) (*Controller, *countingStore, *memory.Store, *memory.Broker) {
	t.Helper()

	broker := memory.NewBroker(8)
	mem := memory.NewStore(broker).WithClock(func() time.Time { return testNow })
	mem.Seed(
		event.Row{"id": "p", "title": "Pending talk", "start_time": testNow.Add(3 * time.Hour), "status": "pending", "tags": []string{"academic"}},
		event.Row{"id": "a", "title": "Approved match", "start_time": testNow.Add(time.Hour), "status": "approved", "tags": []string{"sports"}},
		event.Row{"id": "r", "title": "Rejected party", "start_time": testNow.Add(2 * time.Hour), "status": "rejected", "tags": []string{"social"}},
		event.Row{"id": "old", "title": "Yesterday", "start_time": testNow.Add(-24 * time.Hour), "status": "approved"},
	)
	store := &countingStore{Store: mem}

	builder := query.NewBuilder(time.UTC).WithClock(func() time.Time { return testNow })
	catalog := NewCatalog(store, builder, normalize.New(time.UTC))
	cfg := DefaultControllerConfig()
	cfg.Debounce = debounce

	c := NewController(catalog, broker, cfg)
	t.Cleanup(c.Deactivate)
	return c, store, mem, broker
}

func ids(views []normalize.View) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestActivateFetchesVisibleEventsInStartOrder(t *testing.T) {
	c, store, _, _ := setup(t, 50*time.Millisecond)

	if err := c.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}

	snap := c.Snapshot()
	got := ids(snap.Events)
	if len(got) != 2 || got[0] != "a" || got[1] != "p" {
		t.Fatalf("events = %v, want [a p]", got)
	}
	if snap.Loading {
		t.Error("loading still set after fetch")
	}
	if n := len(store.calls()); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestSearchIsDebounced(t *testing.T) {
	debounce := 80 * time.Millisecond
	c, store, _, _ := setup(t, debounce)
	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.SetSearch("m")
	c.SetSearch("ma")
	last := time.Now()
	c.SetSearch("match")

	waitFor(t, func() bool { return len(store.calls()) == 2 })
	fired := time.Now()
	time.Sleep(3 * debounce)

	calls := store.calls()
	if len(calls) != 2 {
		t.Fatalf("fetches = %d, want initial + 1", len(calls))
	}
	if fired.Sub(last) < debounce {
		t.Errorf("fetch fired %v after last change, want >= %v", fired.Sub(last), debounce)
	}

	or, ok := calls[1].Find("", event.OpOr)
	if !ok || or.Any[0].Value != "%match%" {
		t.Fatalf("debounced query used %+v, want final search term", or)
	}

	got := ids(c.Snapshot().Events)
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("events = %v, want [a]", got)
	}
}

func TestFilterChangeFetchesImmediatelyAndCancelsDebounce(t *testing.T) {
	c, store, _, _ := setup(t, 100*time.Millisecond)
	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}

	c.SetSearch("talk")
	c.SetFilter("academic")

	if n := len(store.calls()); n != 2 {
		t.Fatalf("fetches right after filter change = %d, want 2", n)
	}
	time.Sleep(250 * time.Millisecond)
	if n := len(store.calls()); n != 2 {
		t.Fatalf("fetches after debounce window = %d, want 2", n)
	}

	snap := c.Snapshot()
	if got := ids(snap.Events); len(got) != 1 || got[0] != "p" {
		t.Errorf("events = %v, want [p]", got)
	}
	if snap.Filter.Key != "academic" || snap.Filter.Search != "talk" {
		t.Errorf("filter = %+v", snap.Filter)
	}
}

func TestRealtimeInsertTriggersOneBackgroundRefetch(t *testing.T) {
	c, store, _, broker := setup(t, 50*time.Millisecond)
	rec := &recorder{}
	c.RegisterUpdateHandler(rec.record)
	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := len(rec.all())

	err := broker.Publish(context.Background(), realtime.Change{
		Table: event.CollectionEvents,
		Type:  realtime.EventInsert,
		New:   map[string]interface{}{"id": "new"},
	})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(store.calls()) == 2 })
	time.Sleep(50 * time.Millisecond)

	if n := len(store.calls()); n != 2 {
		t.Fatalf("fetches = %d, want 2", n)
	}
	after := rec.all()[before:]
	if len(after) != 1 {
		t.Fatalf("snapshots after notification = %d, want 1", len(after))
	}
	if after[0].Loading {
		t.Error("background refetch raised the loading flag")
	}
}

func TestMutationThroughStoreRefreshesList(t *testing.T) {
	c, _, mem, _ := setup(t, 50*time.Millisecond)
	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := mem.Insert(context.Background(), event.Row{
		"title":      "Fresh",
		"start_time": testNow.Add(30 * time.Minute),
		"status":     "approved",
	})
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(c.Snapshot().Events) == 3 })
	if c.Snapshot().Events[0].Title != "Fresh" {
		t.Errorf("first event = %q", c.Snapshot().Events[0].Title)
	}
}

func TestLastIssuedFetchWins(t *testing.T) {
	c, store, _, _ := setup(t, 20*time.Millisecond)
	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	store.mu.Lock()
	store.hook = func(n int, q event.Query) {
		if n == 2 {
			<-release
		}
	}
	store.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.SetFilter("academic")
		close(done)
	}()
	waitFor(t, func() bool { return len(store.calls()) == 2 })

	c.SetFilter("sports")
	close(release)
	<-done

	snap := c.Snapshot()
	if got := ids(snap.Events); len(got) != 1 || got[0] != "a" {
		t.Fatalf("events = %v, want the sports result [a]", got)
	}
	if snap.Loading {
		t.Error("loading left set")
	}
}

func TestFetchErrorDegradesToEmptyList(t *testing.T) {
	c, store, _, _ := setup(t, 20*time.Millisecond)
	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	store.err = errors.New("connection reset")
	store.mu.Unlock()

	c.SetFilter(event.FilterToday)

	snap := c.Snapshot()
	if snap.Events == nil || len(snap.Events) != 0 {
		t.Fatalf("events = %#v, want empty list", snap.Events)
	}
	if snap.Loading {
		t.Error("loading left set after error")
	}
}

func TestDeactivateUnsubscribesAndReactivateRefetches(t *testing.T) {
	c, store, _, broker := setup(t, 20*time.Millisecond)
	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if broker.Subscribers() != 2 {
		t.Fatalf("subscribers = %d, want 2", broker.Subscribers())
	}

	c.Deactivate()
	if broker.Subscribers() != 0 {
		t.Fatalf("subscribers after deactivate = %d", broker.Subscribers())
	}

	_ = broker.Publish(context.Background(), realtime.Change{Table: event.CollectionEvents, Type: realtime.EventInsert})
	c.SetSearch("talk")
	time.Sleep(60 * time.Millisecond)
	if n := len(store.calls()); n != 1 {
		t.Fatalf("fetches while inactive = %d, want 1", n)
	}

	if err := c.Activate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(store.calls()); n != 2 {
		t.Fatalf("fetches after reactivation = %d, want 2", n)
	}
}
