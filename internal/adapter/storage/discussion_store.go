// internal/adapter/storage/discussion_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"campusevents/internal/domain/discussion"
)

// DiscussionStore implements storage for discussion items
type DiscussionStore struct {
	db DB
}

// NewDiscussionStore creates a new discussion store
func NewDiscussionStore(db DB) *DiscussionStore {
	return &DiscussionStore{
		db: db,
	}
}

// Recent returns up to limit items for an event, newest first
func (s *DiscussionStore) Recent(ctx context.Context, eventID string, limit int) ([]discussion.Item, error) {
	query := `
		SELECT
			id::text, event_id::text, reddit_id,
			COALESCE(source, 'reddit'), COALESCE(subreddit, ''), COALESCE(type, 'post'),
			COALESCE(title, ''), COALESCE(author, '[deleted]'), COALESCE(body, ''),
			COALESCE(url, ''), COALESCE(sentiment, 0), created_utc, payload
		FROM reddit_comments
		WHERE event_id::text = $1
		ORDER BY created_utc DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying discussion: %w", err)
	}
	defer rows.Close()

	items := []discussion.Item{}
	for rows.Next() {
		var it discussion.Item
		var kind string
		var payload []byte
		err := rows.Scan(
			&it.ID,
			&it.EventID,
			&it.ExternalID,
			&it.Source,
			&it.Channel,
			&kind,
			&it.Title,
			&it.Author,
			&it.Body,
			&it.URL,
			&it.Sentiment,
			&it.CreatedAt,
			&payload,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning discussion row: %w", err)
		}
		it.Kind = discussion.Kind(kind)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &it.Payload); err != nil {
				return nil, fmt.Errorf("error decoding payload of %s: %w", it.ExternalID, err)
			}
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating discussion rows: %w", err)
	}

	return items, nil
}

// Upsert stores an item keyed by (event_id, reddit_id). Unchanged items
// are left alone so re-ingesting does not raise change notifications.
func (s *DiscussionStore) Upsert(ctx context.Context, it discussion.Item) error {
	query := `
		INSERT INTO reddit_comments AS c (
			event_id, reddit_id, source, subreddit, type,
			title, author, body, url, sentiment, created_utc, payload
		) VALUES (
			$1::uuid, $2, $3, $4, $5,
			NULLIF($6, ''), $7, $8, NULLIF($9, ''), $10, $11, $12::jsonb
		)
		ON CONFLICT (event_id, reddit_id) DO UPDATE
		SET
			source = EXCLUDED.source,
			subreddit = EXCLUDED.subreddit,
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			body = EXCLUDED.body,
			url = EXCLUDED.url,
			sentiment = EXCLUDED.sentiment,
			payload = EXCLUDED.payload
		WHERE (c.source, c.subreddit, c.type, c.title, c.author, c.body, c.url, c.sentiment, c.payload)
			IS DISTINCT FROM
			(EXCLUDED.source, EXCLUDED.subreddit, EXCLUDED.type, EXCLUDED.title, EXCLUDED.author,
			 EXCLUDED.body, EXCLUDED.url, EXCLUDED.sentiment, EXCLUDED.payload)
	`

	var payload interface{}
	if len(it.Payload) > 0 {
		data, err := json.Marshal(it.Payload)
		if err != nil {
			return fmt.Errorf("error encoding payload of %s: %w", it.ExternalID, err)
		}
		payload = string(data)
	}

	_, err := s.db.Exec(
		ctx,
		query,
		it.EventID,
		it.ExternalID,
		it.Source,
		it.Channel,
		string(it.Kind),
		it.Title,
		it.Author,
		it.Body,
		it.URL,
		it.Sentiment,
		it.CreatedAt,
		payload,
	)

	if err != nil {
		return fmt.Errorf("error upserting discussion item %s: %w", it.ExternalID, err)
	}

	return nil
}
