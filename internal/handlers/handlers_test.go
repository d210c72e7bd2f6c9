package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riverglen/reddit-broker/internal/cache"
	"github.com/riverglen/reddit-broker/internal/config"
	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

func testClient(t *testing.T, handler http.HandlerFunc) *redditclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := &config.Config{HTTPTimeout: time.Second, UserAgent: "test/1.0", CacheTTL: time.Minute}
	return redditclient.NewWithBaseURL(cfg, cache.NewMockCache(), server.URL)
}

func testAuth() *token.Token {
	return &token.Token{AccessToken: "tok"}
}

func TestRegistryLooksUpEveryVerb(t *testing.T) {
	r := NewRegistry()
	for _, verb := range []string{
		"_ping", "show_user", "user_is_moderator", "user_is_approved", "user_is_banned",
		"subreddit_comments", "post_comment", "lookup_comment",
		"subreddit_links", "flair_link", "modlog", "subreddit_moderators",
		"inbox", "compose", "mark_all_read",
		"ban_user", "unban_user", "approve_user", "disapprove_user",
	} {
		if _, ok := r.Lookup(verb); !ok {
			t.Errorf("expected verb %q to be registered", verb)
		}
	}
	if _, ok := r.Lookup("not_a_verb"); ok {
		t.Error("expected unknown verb to miss")
	}
}

func TestPingShortCircuitsSuccess(t *testing.T) {
	h := pingHandler()
	status, info, err := h.Invoke(context.Background(), nil, nil, nil)
	if err != nil || status != packet.SuccessStatus() || info != nil {
		t.Fatalf("expected bare success, got status=%v info=%v err=%v", status, info, err)
	}
}

func TestShowUserComputesCumulativeKarma(t *testing.T) {
	rc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"link_karma":10,"comment_karma":5,"created_utc":1000.5}}`))
	})
	h := showUserHandler()
	status, info, err := h.Invoke(context.Background(), rc, testAuth(), map[string]interface{}{"username": "spez"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != packet.HTTPStatus(200) {
		t.Fatalf("expected 200, got %v", status)
	}
	m := info.(map[string]interface{})
	if m["cumulative_karma"] != 15 {
		t.Fatalf("expected cumulative_karma=15, got %v", m["cumulative_karma"])
	}
}

func TestUserIsModeratorCaseInsensitiveMatch(t *testing.T) {
	rc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"children":[{"name":"SomeMod"}]}}`))
	})
	h := userIsModeratorHandler()
	_, info, err := h.Invoke(context.Background(), rc, testAuth(), map[string]interface{}{
		"subreddit": "golang", "username": "somemod",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.(map[string]interface{})["moderator"] != true {
		t.Fatal("expected case-insensitive username match to report moderator=true")
	}
}

func TestPostCommentReturnsSuccessSentinel(t *testing.T) {
	rc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/comment" {
			t.Errorf("expected /api/comment, got %s", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	})
	h := postCommentHandler()
	status, info, err := h.Invoke(context.Background(), rc, testAuth(), map[string]interface{}{
		"parent": "t3_x", "text": "hi",
	})
	if err != nil || status != packet.SuccessStatus() || info != nil {
		t.Fatalf("expected bare success sentinel, got status=%v info=%v err=%v", status, info, err)
	}
}

func TestLookupCommentReturns404OnEmptyChildren(t *testing.T) {
	rc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"data":{"dist":1,"children":[{"kind":"t3","data":{"name":"t3_x","author":"a"}}]}},{"data":{"dist":null,"children":[]}}]`))
	})
	h := lookupCommentHandler()
	status, info, err := h.Invoke(context.Background(), rc, testAuth(), map[string]interface{}{
		"link_fullname": "t3_x", "comment_fullname": "t1_y",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != packet.HTTPStatus(404) || info != nil {
		t.Fatalf("expected 404 with no info on empty comment listing, got status=%v info=%v", status, info)
	}
}

func TestLookupCommentAssemblesRecord(t *testing.T) {
	rc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"data":{"dist":1,"children":[{"kind":"t3","data":{"name":"t3_link","author":"linkauthor"}}]}},
			{"data":{"dist":null,"children":[{"kind":"t1","data":{"name":"t1_c","body":"hello","author":"commenter","subreddit":"golang","created_utc":500}}]}}
		]`))
	})
	h := lookupCommentHandler()
	status, info, err := h.Invoke(context.Background(), rc, testAuth(), map[string]interface{}{
		"link_fullname": "t3_link", "comment_fullname": "t1_c",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != packet.HTTPStatus(200) {
		t.Fatalf("expected 200, got %v", status)
	}
	m := info.(map[string]interface{})
	if m["fullname"] != "t1_c" || m["link_fullname"] != "t3_link" || m["link_author"] != "linkauthor" {
		t.Fatalf("unexpected assembled record: %+v", m)
	}
}

func TestSubredditLinksSplitsAndExcludesBannedOrRemoved(t *testing.T) {
	rc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"after":null,"children":[
			{"data":{"name":"t3_1","title":"a self post","author":"u1","subreddit":"golang","created_utc":200,"is_self":true,"selftext":"body"}},
			{"data":{"name":"t3_2","title":"a link post","author":"u2","subreddit":"golang","created_utc":300,"is_self":false,"url":"http://x"}},
			{"data":{"name":"t3_3","title":"banned","author":"u3","subreddit":"golang","created_utc":400,"is_self":false,"url":"http://y","banned_at_utc":123}},
			{"data":{"name":"t3_4","title":"removed","author":"u4","subreddit":"golang","created_utc":500,"is_self":false,"url":"http://z","removed":true}}
		]}}`))
	})
	h := subredditLinksHandler()
	_, info, err := h.Invoke(context.Background(), rc, testAuth(), map[string]interface{}{"subreddit": "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := info.(map[string]interface{})
	self := m["self"].([]map[string]interface{})
	urls := m["url"].([]map[string]interface{})
	if len(self) != 1 || len(urls) != 1 {
		t.Fatalf("expected banned/removed entries excluded, got self=%d url=%d", len(self), len(urls))
	}
}

func TestBanUserSendsBannedRelationship(t *testing.T) {
	var gotForm string
	rc := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm.Get("type")
		w.Write([]byte(`{}`))
	})
	h := banUserHandler()
	status, _, err := h.Invoke(context.Background(), rc, testAuth(), map[string]interface{}{
		"subreddit": "golang", "username": "spammer", "message": "bye", "note": "spam",
	})
	if err != nil || status != packet.SuccessStatus() {
		t.Fatalf("expected success, got status=%v err=%v", status, err)
	}
	if gotForm != "banned" {
		t.Fatalf("expected banned relationship, got %q", gotForm)
	}
}
