package query

import (
	"testing"
	"time"

	"campusevents/internal/domain/event"
)

func fixedBuilder(now time.Time) *Builder {
	return NewBuilder(time.UTC).WithClock(func() time.Time { return now })
}

func TestWindowBoundaries(t *testing.T) {
	friday := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	sunday := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC)

	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	eod := func(d int) time.Time { return time.Date(2024, 5, d, 23, 59, 59, 999000000, time.UTC) }

	tests := []struct {
		name      string
		key       event.FilterKey
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"today", event.FilterToday, friday, day(10), eod(10)},
		{"tomorrow", event.FilterTomorrow, friday, day(11), eod(11)},
		{"this week from friday", event.FilterThisWeek, friday, day(10), eod(12)},
		{"this week from sunday", event.FilterThisWeek, sunday, day(12), eod(19)},
		{"next week from friday", event.FilterNextWeek, friday, day(13), eod(19)},
		{"next week from sunday", event.FilterNextWeek, sunday, day(13), eod(19)},
		{"next week from monday", event.FilterNextWeek, monday, day(20), eod(26)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := Window(tt.key, tt.now)
			if !ok {
				t.Fatalf("Window(%s) not ok", tt.key)
			}
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !end.Equal(tt.wantEnd) {
				t.Errorf("end = %v, want %v", end, tt.wantEnd)
			}
			if start.After(end) {
				t.Errorf("start %v after end %v", start, end)
			}
		})
	}
}

func TestWindowStartNeverAfterEnd(t *testing.T) {
	keys := []event.FilterKey{event.FilterToday, event.FilterTomorrow, event.FilterThisWeek, event.FilterNextWeek}
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 366; i++ {
		now := base.AddDate(0, 0, i)
		for _, k := range keys {
			start, end, _ := Window(k, now)
			if start.After(end) {
				t.Fatalf("%s on %s: start %v after end %v", k, now.Format("2006-01-02"), start, end)
			}
		}
	}
}

func TestWindowRejectsNonTimeKeys(t *testing.T) {
	for _, k := range []event.FilterKey{event.FilterAll, "sports", ""} {
		if _, _, ok := Window(k, time.Now()); ok {
			t.Errorf("Window(%q) ok = true", k)
		}
	}
}

func TestBuildWithoutSearchHasNoTextPredicate(t *testing.T) {
	b := fixedBuilder(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	for _, search := range []string{"", "   ", "\t\n"} {
		q := b.Build(event.FilterState{Search: search, Key: event.FilterAll})
		for _, p := range q.Where {
			if p.Op == event.OpOr || p.Op == event.OpILike {
				t.Fatalf("search %q produced text predicate %+v", search, p)
			}
		}
	}
}

func TestBuildWithSearchOrsTitleAndLocation(t *testing.T) {
	b := fixedBuilder(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))

	q := b.Build(event.FilterState{Search: "  Hack 50%_night ", Key: event.FilterAll})

	or, ok := q.Find("", event.OpOr)
	if !ok {
		t.Fatal("missing OR predicate")
	}
	if len(or.Any) != 2 {
		t.Fatalf("OR has %d alternatives, want 2", len(or.Any))
	}

	want := `%Hack 50\%\_night%`
	cols := map[string]bool{}
	for _, p := range or.Any {
		if p.Op != event.OpILike {
			t.Errorf("alternative op = %s, want ilike", p.Op)
		}
		if p.Value != want {
			t.Errorf("pattern = %v, want %v", p.Value, want)
		}
		cols[p.Column] = true
	}
	if !cols[event.ColumnTitle] || !cols[event.ColumnLocation] {
		t.Errorf("OR columns = %v, want title and location", cols)
	}
}

func TestBuildDefaultIsFutureWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	q := fixedBuilder(now).Build(event.FilterState{Key: event.FilterAll})

	if q.Collection != event.CollectionEvents {
		t.Errorf("collection = %s", q.Collection)
	}
	gte, ok := q.Find(event.ColumnStartTime, event.OpGte)
	if !ok || !gte.Value.(time.Time).Equal(now) {
		t.Errorf("gte predicate = %+v, want start_time >= now", gte)
	}
	if _, ok := q.Find(event.ColumnStartTime, event.OpLte); ok {
		t.Error("default query should be open ended")
	}
	status, ok := q.Find(event.ColumnStatus, event.OpIn)
	if !ok {
		t.Fatal("missing status predicate")
	}
	statuses := status.Value.([]string)
	if len(statuses) != 2 || statuses[0] != "approved" || statuses[1] != "pending" {
		t.Errorf("statuses = %v", statuses)
	}
	if len(q.OrderBy) != 1 || q.OrderBy[0].Column != event.ColumnStartTime || q.OrderBy[0].Desc {
		t.Errorf("order = %+v, want start_time asc", q.OrderBy)
	}
}

func TestBuildCategoryAndTimeAreIndependent(t *testing.T) {
	q := fixedBuilder(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)).
		Build(event.FilterState{Key: "sports"})

	tags, ok := q.Find(event.ColumnTags, event.OpContains)
	if !ok {
		t.Fatal("missing tags predicate")
	}
	if v := tags.Value.([]string); len(v) != 1 || v[0] != "sports" {
		t.Errorf("tags = %v", v)
	}

	q = fixedBuilder(time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)).
		Build(event.FilterState{Key: event.FilterToday})
	if _, ok := q.Find(event.ColumnTags, event.OpContains); ok {
		t.Error("time key should not add a tags predicate")
	}
	if _, ok := q.Find(event.ColumnStartTime, event.OpLte); !ok {
		t.Error("time key should bound start_time")
	}
}

func TestParseFilterKey(t *testing.T) {
	cases := map[string]event.FilterKey{
		"today":    event.FilterToday,
		"thisWeek": event.FilterThisWeek,
		"music":    "music",
		"Music":    event.FilterAll,
		"":         event.FilterAll,
		"bogus":    event.FilterAll,
	}
	for in, want := range cases {
		if got := event.ParseFilterKey(in); got != want {
			t.Errorf("ParseFilterKey(%q) = %q, want %q", in, got, want)
		}
	}
}
