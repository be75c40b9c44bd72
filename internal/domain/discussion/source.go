package discussion

import (
	"context"
)

// Target describes what to search for on behalf of one event
type Target struct {
	EventID    string
	Keywords   []string
	Query      string
	Subreddits []string
}

// Source finds external discussion about an event
type Source interface {
	// Name returns the platform name
	Name() string

	// Search returns items matching the target. EventID is set by the caller.
	Search(ctx context.Context, target Target) ([]Item, error)
}
