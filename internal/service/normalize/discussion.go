package normalize

import (
	"strings"

	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/event"
)

const (
	defaultAuthor = "[deleted]"
	defaultSource = "reddit"
	redditHost    = "https://www.reddit.com"
)

// Discussion normalizes a discussion row
func (n *Normalizer) Discussion(row event.Row) discussion.Item {
	item := discussion.Item{
		ID:         ID(row["id"]),
		EventID:    ID(row[discussion.ColumnEventID]),
		ExternalID: ID(row["reddit_id"]),
		Source:     stringOr(row["source"], defaultSource),
		Channel:    stringOr(row["subreddit"], ""),
		Kind:       discussion.Kind(stringOr(row["type"], string(discussion.KindPost))),
		Title:      stringOr(row["title"], ""),
		Author:     stringOr(row["author"], defaultAuthor),
		Body:       stringOr(row["body"], ""),
		URL:        itemURL(row),
		CreatedAt:  Time(row[discussion.ColumnCreatedUTC]),
	}
	if s, ok := row["sentiment"].(float64); ok {
		item.Sentiment = s
	}
	if payload, ok := row["payload"].(map[string]interface{}); ok && len(payload) > 0 {
		item.Payload = payload
	}
	return item
}

func itemURL(row event.Row) string {
	if u := stringOr(row["url"], ""); u != "" {
		return u
	}
	payload, _ := row["payload"].(map[string]interface{})
	if payload == nil {
		return ""
	}
	if p := stringOr(payload["permalink"], ""); p != "" {
		if strings.HasPrefix(p, "/") {
			return redditHost + p
		}
		return p
	}
	return stringOr(payload["url"], "")
}
