// internal/adapter/social/twitter.go

package social

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	twitter "github.com/g8rswimmer/go-twitter/v2"

	"campusevents/internal/domain/discussion"
)

// maxQueryLength is the longest query the recent search endpoint accepts
const maxQueryLength = 512

type bearer struct {
	token string
}

func (b bearer) Add(req *http.Request) {
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", b.token))
}

// TwitterSource searches recent tweets about an event
type TwitterSource struct {
	client     *twitter.Client
	maxResults int
}

// NewTwitterSource creates a new Twitter source. host is the API base URL.
func NewTwitterSource(token, host string, maxResults int) *TwitterSource {
	if host == "" {
		host = "https://api.twitter.com"
	}
	if maxResults < 10 {
		maxResults = 10
	}
	return &TwitterSource{
		client: &twitter.Client{
			Authorizer: bearer{token: token},
			Client: &http.Client{
				Timeout: time.Second * 10,
			},
			Host: host,
		},
		maxResults: maxResults,
	}
}

// Name returns the platform name
func (s *TwitterSource) Name() string {
	return "twitter"
}

// Search returns recent tweets matching the target keywords
func (s *TwitterSource) Search(ctx context.Context, target discussion.Target) ([]discussion.Item, error) {
	query := searchQuery(target)
	if query == "" {
		return nil, nil
	}

	opts := twitter.TweetRecentSearchOpts{
		Expansions:  []twitter.Expansion{twitter.ExpansionAuthorID},
		TweetFields: []twitter.TweetField{twitter.TweetFieldCreatedAt, twitter.TweetFieldAuthorID},
		UserFields:  []twitter.UserField{twitter.UserFieldUserName},
		MaxResults:  s.maxResults,
	}

	resp, err := s.client.TweetRecentSearch(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("Twitter recent search failed: %w", err)
	}
	if resp.Raw == nil {
		return []discussion.Item{}, nil
	}

	users := make(map[string]string)
	if resp.Raw.Includes != nil {
		for _, u := range resp.Raw.Includes.Users {
			if u != nil {
				users[u.ID] = u.UserName
			}
		}
	}

	items := make([]discussion.Item, 0, len(resp.Raw.Tweets))
	for _, t := range resp.Raw.Tweets {
		if t == nil {
			continue
		}
		author := users[t.AuthorID]
		created, _ := time.Parse(time.RFC3339, t.CreatedAt)

		item := discussion.Item{
			ExternalID: t.ID,
			Source:     s.Name(),
			Kind:       discussion.KindTweet,
			Author:     author,
			Body:       t.Text,
			CreatedAt:  created.UTC(),
		}
		if author != "" {
			item.URL = fmt.Sprintf("https://twitter.com/%s/status/%s", author, t.ID)
		}
		items = append(items, item)
	}
	return items, nil
}

// searchQuery ORs the target keywords, dropping trailing keywords that
// would push the query past maxQueryLength characters.
func searchQuery(target discussion.Target) string {
	var terms []string
	length := 0
	for _, kw := range target.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		n := utf8.RuneCountInString(kw)
		if len(terms) > 0 {
			n += len(" OR ")
		}
		if length+n > maxQueryLength {
			break
		}
		terms = append(terms, kw)
		length += n
	}
	if len(terms) > 0 {
		return strings.Join(terms, " OR ")
	}
	return truncateRunes(strings.TrimSpace(target.Query), maxQueryLength)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
