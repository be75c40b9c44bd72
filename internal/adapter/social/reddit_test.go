package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"campusevents/internal/domain/discussion"
)

const searchBody = `{"kind":"Listing","data":{"children":[
	{"kind":"t3","data":{"id":"p1","title":"Hack night tonight","selftext":"who's going?","author":"alice","subreddit":"college","permalink":"/r/college/comments/p1/hack/","created_utc":1715338800}}
]}}`

const commentsBody = `[
	{"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"p1"}}]}},
	{"kind":"Listing","data":{"children":[
		{"kind":"t1","data":{"id":"c1","link_id":"t3_p1","author":"bob","body":"me","subreddit":"college","permalink":"/r/college/comments/p1/hack/c1/","created_utc":1715339000,
			"replies":{"kind":"Listing","data":{"children":[
				{"kind":"t1","data":{"id":"c2","author":"carol","body":"same","subreddit":"college","created_utc":1715339100,"replies":""}}
			]}}}},
		{"kind":"more","data":{"id":"m1"}},
		{"kind":"t1","data":{"id":"c3","author":"dan","body":"later","subreddit":"college","created_utc":1715339200,"replies":""}}
	]}}
]`

func newRedditServer(t *testing.T, failing map[string]bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/search.json"):
			sub := strings.Split(r.URL.Path, "/")[2]
			if failing[sub] {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			if r.URL.Query().Get("sort") != "new" || r.URL.Query().Get("restrict_sr") != "1" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(searchBody))
		case strings.HasPrefix(r.URL.Path, "/comments/"):
			_, _ = w.Write([]byte(commentsBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *RedditClient {
	c := NewRedditClient(RedditConfig{UserAgent: "test-agent"})
	c.BaseURL = srv.URL
	return c
}

func TestCommentsFlattenRepliesAndSkipMore(t *testing.T) {
	c := newClient(newRedditServer(t, nil))

	comments, err := c.Comments(context.Background(), "p1", 50)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, cm := range comments {
		ids = append(ids, cm.ID)
	}
	if strings.Join(ids, ",") != "c1,c2,c3" {
		t.Fatalf("comments = %v", ids)
	}

	comments, err = c.Comments(context.Background(), "p1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 {
		t.Fatalf("limited comments = %d, want 2", len(comments))
	}
}

func TestRedditSourceBuildsItems(t *testing.T) {
	src := NewRedditSource(newClient(newRedditServer(t, map[string]bool{"university": true})), RedditSourceConfig{})

	items, err := src.Search(context.Background(), discussion.Target{
		Query:      "hack OR night",
		Subreddits: []string{"college", "university"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("items = %d, want post + 3 comments", len(items))
	}

	post := items[0]
	if post.Kind != discussion.KindPost || post.ExternalID != "p1" || post.Title != "Hack night tonight" {
		t.Errorf("post = %+v", post)
	}
	if post.URL != "https://www.reddit.com/r/college/comments/p1/hack/" {
		t.Errorf("url = %q", post.URL)
	}
	if post.CreatedAt.Unix() != 1715338800 {
		t.Errorf("created = %v", post.CreatedAt)
	}
	if post.Payload["permalink"] != "/r/college/comments/p1/hack/" {
		t.Errorf("post payload = %v", post.Payload)
	}
	if items[1].Kind != discussion.KindComment || items[1].Author != "bob" || items[1].Channel != "college" {
		t.Errorf("comment = %+v", items[1])
	}
	if items[1].Payload["link_id"] != "t3_p1" {
		t.Errorf("comment payload = %v", items[1].Payload)
	}
}

func TestRedditClientAuthenticatesWithClientCredentials(t *testing.T) {
	var tokenRequests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent on %s = %q", r.URL.Path, r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/api/v1/access_token":
			atomic.AddInt32(&tokenRequests, 1)
			id, secret, ok := r.BasicAuth()
			if !ok || id != "app" || secret != "shh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
				t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
		case "/r/college/search.json":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(searchBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewRedditClient(RedditConfig{
		UserAgent:    "test-agent",
		ClientID:     "app",
		ClientSecret: "shh",
		TokenURL:     srv.URL + "/api/v1/access_token",
	})
	if c.BaseURL != RedditOAuthURL {
		t.Fatalf("base url = %q", c.BaseURL)
	}
	c.BaseURL = srv.URL

	for i := 0; i < 2; i++ {
		posts, err := c.Search(context.Background(), "college", "hack", "new", 5)
		if err != nil {
			t.Fatal(err)
		}
		if len(posts) != 1 {
			t.Fatalf("posts = %d", len(posts))
		}
	}
	if n := atomic.LoadInt32(&tokenRequests); n != 1 {
		t.Errorf("token requests = %d, want 1", n)
	}
}

func TestRedditSourceFailsWhenEverySubredditFails(t *testing.T) {
	src := NewRedditSource(newClient(newRedditServer(t, map[string]bool{"college": true})), RedditSourceConfig{})

	if _, err := src.Search(context.Background(), discussion.Target{Query: "x", Subreddits: []string{"college"}}); err == nil {
		t.Fatal("expected error")
	}
}
