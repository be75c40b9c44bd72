package discussion

import (
	"context"
	"time"
)

// Kind identifies what an item was on the external platform
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
	KindTweet   Kind = "tweet"
)

// Collection and columns of discussion items in the remote store
const (
	Collection = "reddit_comments"

	ColumnEventID    = "event_id"
	ColumnCreatedUTC = "created_utc"
)

// Item is an externally sourced post or comment about an event
type Item struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	ExternalID string    `json:"reddit_id"`
	Source     string    `json:"source"`
	Channel    string    `json:"subreddit"`
	Kind       Kind      `json:"type"`
	Title      string    `json:"title,omitempty"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	URL        string    `json:"url,omitempty"`
	Sentiment  float64   `json:"sentiment"`
	CreatedAt  time.Time `json:"created_utc"`

	// Payload keeps platform specific references such as permalink or link_id
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Store persists discussion items
type Store interface {
	// Recent returns up to limit items for an event, newest first
	Recent(ctx context.Context, eventID string, limit int) ([]Item, error)

	// Upsert stores an item keyed by (event_id, external id)
	Upsert(ctx context.Context, item Item) error
}

// Row renders the item in backend shape for change notifications
func (i Item) Row() map[string]interface{} {
	row := map[string]interface{}{
		"id":          i.ID,
		"event_id":    i.EventID,
		"reddit_id":   i.ExternalID,
		"source":      i.Source,
		"subreddit":   i.Channel,
		"type":        string(i.Kind),
		"author":      i.Author,
		"body":        i.Body,
		"url":         i.URL,
		"sentiment":   i.Sentiment,
		"created_utc": i.CreatedAt,
	}
	if i.Title != "" {
		row["title"] = i.Title
	}
	if len(i.Payload) > 0 {
		row["payload"] = i.Payload
	}
	return row
}
