// Package redditclient is the Reddit Client Facade (C2): one method per
// verb, each attaching the bot's user-agent and bearer token and returning
// the raw HTTP status and body without interpreting them.
package redditclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riverglen/reddit-broker/internal/cache"
	"github.com/riverglen/reddit-broker/internal/circuitbreaker"
	"github.com/riverglen/reddit-broker/internal/config"
	"github.com/riverglen/reddit-broker/internal/httpx"
	"github.com/riverglen/reddit-broker/internal/token"
)

const oauthBase = "https://oauth.reddit.com"

// Result is a raw, uninterpreted Reddit HTTP response: a status code and
// its JSON body. Non-2xx statuses are returned here, never as an error —
// only transport and decode failures become errors.
type Result struct {
	Status int
	Body   json.RawMessage
}

// Client is the Reddit Client Facade.
type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	cache      cache.Cache
	userAgent  string
	cacheTTL   time.Duration
	baseURL    string
}

// New builds a Client. cache may be nil to disable the relationship-listing cache.
func New(cfg *config.Config, c cache.Cache) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name: "reddit_client",
		}),
		cache:     c,
		userAgent: cfg.UserAgent,
		cacheTTL:  cfg.CacheTTL,
		baseURL:   oauthBase,
	}
}

// NewWithBaseURL builds a Client against a caller-supplied API root instead
// of oauth.reddit.com, for tests and local Reddit-compatible mocks.
func NewWithBaseURL(cfg *config.Config, c cache.Cache, baseURL string) *Client {
	client := New(cfg, c)
	client.baseURL = baseURL
	return client
}

func (c *Client) authHeader(auth *token.Token) string {
	return "bearer " + auth.AccessToken
}

func (c *Client) do(ctx context.Context, method, rawURL string, form url.Values, auth *token.Token) (Result, error) {
	build := func() (*http.Request, error) {
		var body io.Reader
		if form != nil && method != http.MethodGet {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Authorization", c.authHeader(auth))
		if body != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return req, nil
	}

	var resp *http.Response
	err := c.breaker.Call(func() error {
		var callErr error
		resp, callErr = httpx.DoWithRetryFactory(c.httpClient, build, nil)
		return callErr
	})
	if err != nil {
		if err == circuitbreaker.ErrCircuitOpen {
			return Result{}, fmt.Errorf("reddit client circuit open: %w", err)
		}
		return Result{}, fmt.Errorf("reddit request %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading reddit response body: %w", err)
	}

	return Result{Status: resp.StatusCode, Body: raw}, nil
}

func withQuery(base string, q url.Values) string {
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

func joinSubreddits(subs []string) string {
	return strings.Join(subs, "+")
}

// ShowUser fetches a user's about page (karma, account age).
func (c *Client) ShowUser(ctx context.Context, auth *token.Token, username string) (Result, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("%s/user/%s/about", c.baseURL, url.PathEscape(username)), nil, auth)
}

// relationshipListing is shared by the three "is the user X" checks, each of
// which queries a different subreddit relationship listing and is cached
// briefly since the same listing is often queried for many usernames.
func (c *Client) relationshipListing(ctx context.Context, auth *token.Token, subreddit, listing string) (Result, error) {
	key := fmt.Sprintf("relisting:%s:%s", subreddit, listing)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return Result{Status: http.StatusOK, Body: cached}, nil
		}
	}

	res, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/r/%s/about/%s", c.baseURL, url.PathEscape(subreddit), listing), nil, auth)
	if err == nil && res.Status == http.StatusOK && c.cache != nil {
		c.cache.Set(key, res.Body, c.cacheTTL)
	}
	return res, err
}

// UserIsModerator checks subreddit moderator status.
func (c *Client) UserIsModerator(ctx context.Context, auth *token.Token, subreddit string) (Result, error) {
	return c.relationshipListing(ctx, auth, subreddit, "moderators")
}

// UserIsApproved checks approved-submitter (contributor) status.
func (c *Client) UserIsApproved(ctx context.Context, auth *token.Token, subreddit string) (Result, error) {
	return c.relationshipListing(ctx, auth, subreddit, "contributors")
}

// UserIsBanned checks ban status.
func (c *Client) UserIsBanned(ctx context.Context, auth *token.Token, subreddit string) (Result, error) {
	return c.relationshipListing(ctx, auth, subreddit, "banned")
}

// SubredditComments fetches the newest comments across one or more subreddits.
func (c *Client) SubredditComments(ctx context.Context, auth *token.Token, subreddits []string, limit int, after string) (Result, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if after != "" {
		q.Set("after", after)
	}
	u := withQuery(fmt.Sprintf("%s/r/%s/comments", c.baseURL, joinSubreddits(subreddits)), q)
	return c.do(ctx, http.MethodGet, u, nil, auth)
}

// PostComment replies to a fullname with markdown text, the genuine Reddit
// comment-reply endpoint (as opposed to /api/compose, which sends private
// messages and is exposed separately as the compose verb).
func (c *Client) PostComment(ctx context.Context, auth *token.Token, parent, text string) (Result, error) {
	form := url.Values{"thing_id": {parent}, "text": {text}, "api_type": {"json"}}
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/comment", form, auth)
}

// LookupComment fetches a single comment in the context of its link, the
// two-listing response Reddit returns for /comments/{linkID}?comment={id}.
func (c *Client) LookupComment(ctx context.Context, auth *token.Token, linkFullname, commentFullname string) (Result, error) {
	linkID := stripFullnamePrefix(linkFullname)
	commentID := stripFullnamePrefix(commentFullname)
	q := url.Values{"comment": {commentID}, "context": {"0"}}
	u := withQuery(fmt.Sprintf("%s/comments/%s", c.baseURL, linkID), q)
	return c.do(ctx, http.MethodGet, u, nil, auth)
}

func stripFullnamePrefix(id string) string {
	if strings.HasPrefix(id, "t1_") || strings.HasPrefix(id, "t3_") {
		return id[3:]
	}
	return id
}

// SubredditFriend forms a relationship (ban, contributor) between a user and a subreddit.
func (c *Client) SubredditFriend(ctx context.Context, auth *token.Token, subreddit, username, relationship string, banMessage, banNote string) (Result, error) {
	form := url.Values{"name": {username}, "type": {relationship}, "api_type": {"json"}}
	if relationship == "banned" {
		form.Set("ban_message", banMessage)
		form.Set("ban_reason", "other")
		form.Set("note", banNote)
	}
	u := c.baseURL + "/r/" + url.PathEscape(subreddit) + "/api/friend?api_type=json"
	return c.do(ctx, http.MethodPost, u, form, auth)
}

// SubredditUnfriend removes a relationship between a user and a subreddit.
func (c *Client) SubredditUnfriend(ctx context.Context, auth *token.Token, subreddit, username, relationship string) (Result, error) {
	form := url.Values{"name": {username}, "type": {relationship}}
	u := fmt.Sprintf("%s/r/%s/api/unfriend", c.baseURL, url.PathEscape(subreddit))
	return c.do(ctx, http.MethodPost, u, form, auth)
}

// SubredditLinks fetches the newest links across one or more subreddits.
func (c *Client) SubredditLinks(ctx context.Context, auth *token.Token, subreddits []string, limit int, after string) (Result, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if after != "" {
		q.Set("after", after)
	}
	u := withQuery(fmt.Sprintf("%s/r/%s/new", c.baseURL, joinSubreddits(subreddits)), q)
	return c.do(ctx, http.MethodGet, u, nil, auth)
}

// FlairLink applies a CSS-class flair to a link.
func (c *Client) FlairLink(ctx context.Context, auth *token.Token, subreddit, linkFullname, cssClass, text string) (Result, error) {
	form := url.Values{
		"api_type":  {"json"},
		"link":      {linkFullname},
		"css_class": {cssClass},
		"text":      {text},
	}
	u := fmt.Sprintf("%s/r/%s/api/flair", c.baseURL, url.PathEscape(subreddit))
	return c.do(ctx, http.MethodPost, u, form, auth)
}

// Unread fetches unread inbox items.
func (c *Client) Unread(ctx context.Context, auth *token.Token, limit int, after, before string) (Result, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if after != "" {
		q.Set("after", after)
	}
	if before != "" {
		q.Set("before", before)
	}
	u := withQuery(c.baseURL+"/message/unread", q)
	return c.do(ctx, http.MethodGet, u, nil, auth)
}

// Compose sends a private message.
func (c *Client) Compose(ctx context.Context, auth *token.Token, recipient, subject, body string) (Result, error) {
	form := url.Values{"api_type": {"json"}, "subject": {subject}, "text": {body}, "to": {recipient}}
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/compose", form, auth)
}

// MarkAllRead marks the entire inbox as read.
func (c *Client) MarkAllRead(ctx context.Context, auth *token.Token) (Result, error) {
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/read_all_messages", url.Values{}, auth)
}

// ModLog fetches the moderator action log for one or more subreddits.
func (c *Client) ModLog(ctx context.Context, auth *token.Token, subreddits []string, limit int, after, before string) (Result, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if after != "" {
		q.Set("after", after)
	}
	if before != "" {
		q.Set("before", before)
	}
	u := withQuery(fmt.Sprintf("%s/r/%s/about/log", c.baseURL, joinSubreddits(subreddits)), q)
	return c.do(ctx, http.MethodGet, u, nil, auth)
}

// SubredditModerators lists a subreddit's moderators and their permissions.
func (c *Client) SubredditModerators(ctx context.Context, auth *token.Token, subreddit string) (Result, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("%s/r/%s/about/moderators", c.baseURL, url.PathEscape(subreddit)), nil, auth)
}
