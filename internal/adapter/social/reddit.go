// internal/adapter/social/reddit.go

package social

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"campusevents/internal/domain/discussion"
)

// Reddit endpoints
const (
	RedditPublicURL = "https://www.reddit.com"
	RedditOAuthURL  = "https://oauth.reddit.com"
	RedditTokenURL  = "https://www.reddit.com/api/v1/access_token"
)

// RedditClient handles interactions with the Reddit API
type RedditClient struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

// RedditPost represents a post from Reddit
type RedditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Created     float64 `json:"created_utc"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
}

// RedditComment represents a comment from Reddit
type RedditComment struct {
	ID        string          `json:"id"`
	Author    string          `json:"author"`
	Body      string          `json:"body"`
	Permalink string          `json:"permalink"`
	Subreddit string          `json:"subreddit"`
	LinkID    string          `json:"link_id"`
	Created   float64         `json:"created_utc"`
	Replies   json.RawMessage `json:"replies"`
}

// listing is the envelope Reddit wraps every collection in
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// RedditConfig contains configuration for the Reddit client
type RedditConfig struct {
	UserAgent    string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// userAgentTransport stamps every request, token requests included
type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

// NewRedditClient creates a new Reddit API client. With client
// credentials it authenticates app-only over OAuth and talks to
// oauth.reddit.com; without them it falls back to the public JSON API.
func NewRedditClient(cfg RedditConfig) *RedditClient {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "campusevents/1.0"
	}

	base := &http.Client{
		Timeout:   time.Second * 10,
		Transport: &userAgentTransport{agent: cfg.UserAgent, base: http.DefaultTransport},
	}

	client := &RedditClient{
		HTTPClient: base,
		BaseURL:    RedditPublicURL,
		UserAgent:  cfg.UserAgent,
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		if cfg.TokenURL == "" {
			cfg.TokenURL = RedditTokenURL
		}
		credentials := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client.HTTPClient = credentials.Client(ctx)
		client.HTTPClient.Timeout = base.Timeout
		client.BaseURL = RedditOAuthURL
	}

	return client
}

// Search finds posts in a subreddit matching query
func (c *RedditClient) Search(ctx context.Context, subreddit, query, sort string, limit int) ([]RedditPost, error) {
	if limit <= 0 {
		limit = 25
	}
	if sort == "" {
		sort = "new"
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", sort)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var resp listing
	endpoint := fmt.Sprintf("%s/r/%s/search.json?%s", c.BaseURL, url.PathEscape(subreddit), params.Encode())
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	posts := make([]RedditPost, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		var post RedditPost
		if err := json.Unmarshal(child.Data, &post); err != nil {
			return nil, fmt.Errorf("failed to decode Reddit post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Comments returns up to limit comments of a post, replies flattened
// depth first after their parent
func (c *RedditClient) Comments(ctx context.Context, postID string, limit int) ([]RedditComment, error) {
	if limit <= 0 {
		limit = 50
	}

	var resp []listing
	endpoint := fmt.Sprintf("%s/comments/%s.json?limit=%d&sort=new", c.BaseURL, url.PathEscape(postID), limit)
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return []RedditComment{}, nil
	}

	comments := []RedditComment{}
	flatten(resp[1], &comments, limit)
	return comments, nil
}

func flatten(l listing, out *[]RedditComment, limit int) {
	for _, child := range l.Data.Children {
		if len(*out) >= limit {
			return
		}
		// "more" placeholders carry no comment body
		if child.Kind != "t1" {
			continue
		}

		var comment RedditComment
		if err := json.Unmarshal(child.Data, &comment); err != nil {
			continue
		}
		*out = append(*out, comment)

		var replies listing
		if len(comment.Replies) > 0 && comment.Replies[0] == '{' {
			if err := json.Unmarshal(comment.Replies, &replies); err == nil {
				flatten(replies, out, limit)
			}
		}
	}
}

func (c *RedditClient) get(ctx context.Context, endpoint string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Reddit throttles requests without a descriptive User-Agent
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Reddit API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Reddit API returned status code %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode Reddit API response: %w", err)
	}
	return nil
}

// RedditSourceConfig contains configuration for the Reddit source
type RedditSourceConfig struct {
	PostLimit    int
	CommentLimit int
}

// RedditSource turns subreddit searches into discussion items
type RedditSource struct {
	client *RedditClient
	config RedditSourceConfig
}

// NewRedditSource creates a new Reddit source
func NewRedditSource(client *RedditClient, config RedditSourceConfig) *RedditSource {
	if config.PostLimit <= 0 {
		config.PostLimit = 20
	}
	if config.CommentLimit <= 0 {
		config.CommentLimit = 50
	}
	return &RedditSource{
		client: client,
		config: config,
	}
}

// Name returns the platform name
func (s *RedditSource) Name() string {
	return "reddit"
}

// Search collects new posts and their comments from every target
// subreddit. A failing subreddit is skipped; the search fails only when
// all of them do.
func (s *RedditSource) Search(ctx context.Context, target discussion.Target) ([]discussion.Item, error) {
	var items []discussion.Item
	var lastErr error
	failed := 0

	for _, sub := range target.Subreddits {
		posts, err := s.client.Search(ctx, sub, target.Query, "new", s.config.PostLimit)
		if err != nil {
			log.Printf("[reddit] search in r/%s failed: %v", sub, err)
			lastErr = err
			failed++
			continue
		}

		for _, p := range posts {
			items = append(items, discussion.Item{
				ExternalID: p.ID,
				Source:     s.Name(),
				Channel:    p.Subreddit,
				Kind:       discussion.KindPost,
				Title:      p.Title,
				Author:     p.Author,
				Body:       p.SelfText,
				URL:        s.permalink(p.Permalink),
				CreatedAt:  unix(p.Created),
				Payload: map[string]interface{}{
					"permalink": p.Permalink,
					"url":       p.URL,
				},
			})

			comments, err := s.client.Comments(ctx, p.ID, s.config.CommentLimit)
			if err != nil {
				log.Printf("[reddit] comments for %s failed: %v", p.ID, err)
				continue
			}
			for _, c := range comments {
				items = append(items, discussion.Item{
					ExternalID: c.ID,
					Source:     s.Name(),
					Channel:    c.Subreddit,
					Kind:       discussion.KindComment,
					Author:     c.Author,
					Body:       c.Body,
					URL:        s.permalink(c.Permalink),
					CreatedAt:  unix(c.Created),
					Payload: map[string]interface{}{
						"link_id": c.LinkID,
					},
				})
			}
		}
	}

	if failed > 0 && failed == len(target.Subreddits) {
		return nil, fmt.Errorf("all %d subreddit searches failed: %w", failed, lastErr)
	}
	return items, nil
}

func (s *RedditSource) permalink(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") {
		return p
	}
	return RedditPublicURL + p
}

func unix(sec float64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}
