package realtime

import (
	"context"
)

// EventType is the kind of row change a notification carries
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// Change is a row change notification on a table
type Change struct {
	Table string                 `json:"table"`
	Type  EventType              `json:"type"`
	New   map[string]interface{} `json:"new,omitempty"`
	Old   map[string]interface{} `json:"old,omitempty"`
}

// Filter restricts a channel to rows where Column equals Value
type Filter struct {
	Column string
	Value  string
}

// Channel names a subscription scoped to a table
type Channel struct {
	Name   string
	Table  string
	Type   EventType
	Filter *Filter
}

// Matches reports whether a change belongs to the channel
func (c Channel) Matches(ch Change) bool {
	if ch.Table != c.Table {
		return false
	}
	if c.Type != "" && c.Type != EventAll && c.Type != ch.Type {
		return false
	}
	if c.Filter == nil {
		return true
	}

	row := ch.New
	if ch.Type == EventDelete {
		row = ch.Old
	}
	v, ok := row[c.Filter.Column]
	if !ok || v == nil {
		return false
	}
	return stringify(v) == c.Filter.Value
}

// Subscription delivers notifications for one channel
type Subscription interface {
	// C returns the bounded queue of matching changes
	C() <-chan Change

	// Unsubscribe stops delivery and closes C
	Unsubscribe() error
}

// Broker carries change notifications
type Broker interface {
	// Subscribe opens a subscription on a channel
	Subscribe(ctx context.Context, ch Channel) (Subscription, error)

	// Publish broadcasts a change to matching subscriptions
	Publish(ctx context.Context, change Change) error
}
