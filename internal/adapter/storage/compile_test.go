package storage

import (
	"reflect"
	"testing"
	"time"

	"campusevents/internal/domain/event"
)

func TestCompileFullQuery(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	q := event.Query{
		Collection: event.CollectionEvents,
		Where: []event.Predicate{
			event.In(event.ColumnStatus, []string{"approved", "pending"}),
			event.Gte(event.ColumnStartTime, now),
			event.Contains(event.ColumnTags, []string{"music"}),
			event.Or(
				event.ILike(event.ColumnTitle, "%jazz%"),
				event.ILike(event.ColumnLocation, "%jazz%"),
			),
		},
		OrderBy: []event.Order{{Column: event.ColumnStartTime}},
		Limit:   5,
	}

	sql, args, err := Compile(q)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	want := "SELECT to_jsonb(t) FROM event_submissions t" +
		" WHERE t.status::text = ANY($1::text[])" +
		" AND t.start_time >= $2" +
		" AND t.tags @> $3::text[]" +
		" AND (t.title ILIKE $4 OR t.location ILIKE $5)" +
		" ORDER BY t.start_time ASC LIMIT $6"
	if sql != want {
		t.Fatalf("sql =\n%s\nwant\n%s", sql, want)
	}

	wantArgs := []interface{}{[]string{"approved", "pending"}, now, []string{"music"}, "%jazz%", "%jazz%", 5}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %#v", args)
	}
}

func TestCompileProjectionAndDescendingOrder(t *testing.T) {
	sql, args, err := Compile(event.Query{
		Collection: event.CollectionTrending,
		Columns:    []string{"id", "registration_count"},
		Where:      []event.Predicate{event.Eq("id", 42)},
		OrderBy:    []event.Order{{Column: event.ColumnRegistrationCount, Desc: true}},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "SELECT jsonb_build_object('id', t.id, 'registration_count', t.registration_count)" +
		" FROM event_trending t WHERE t.id::text = $1 ORDER BY t.registration_count DESC"
	if sql != want {
		t.Fatalf("sql =\n%s\nwant\n%s", sql, want)
	}
	if len(args) != 1 || args[0] != "42" {
		t.Fatalf("args = %#v", args)
	}
}

func TestCompileRejectsUnsafeIdentifiers(t *testing.T) {
	cases := []event.Query{
		{Collection: "events; DROP TABLE users"},
		{Collection: event.CollectionEvents, Columns: []string{"id, password"}},
		{Collection: event.CollectionEvents, Where: []event.Predicate{event.Eq("Title", "x")}},
		{Collection: event.CollectionEvents, OrderBy: []event.Order{{Column: "1"}}},
		{Collection: event.CollectionEvents, Where: []event.Predicate{event.Or()}},
		{Collection: event.CollectionEvents, Where: []event.Predicate{{Op: "regex", Column: "title"}}},
	}
	for i, q := range cases {
		if _, _, err := Compile(q); err == nil {
			t.Errorf("case %d compiled without error", i)
		}
	}
}
