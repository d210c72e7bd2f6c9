// Package token manages the bot account's bearer token: issuing it,
// caching it, and refreshing it on expiry or forced invalidation.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/riverglen/reddit-broker/internal/config"
	"github.com/riverglen/reddit-broker/internal/httpx"
	"github.com/riverglen/reddit-broker/internal/logger"
	"github.com/riverglen/reddit-broker/internal/metrics"
	"github.com/riverglen/reddit-broker/internal/secrets"
)

const (
	loginURL  = "https://www.reddit.com/api/v1/access_token"
	revokeURL = "https://www.reddit.com/api/v1/revoke_token"

	// FreshnessWindow is how far from expiry a cached token is still
	// considered usable (§4.3, §8 P4).
	FreshnessWindow = 15 * time.Minute
)

// Token is the bearer token record described in §3.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Scope       string
}

// IsFresh reports whether this token has at least FreshnessWindow left.
func (t *Token) IsFresh(now time.Time) bool {
	return t != nil && t.ExpiresAt.Sub(now) >= FreshnessWindow
}

// RateWaiter lets the Manager honor the rate clock before a login attempt
// without importing the rate pacer directly (§4.3: "waits for the rate clock").
type RateWaiter interface {
	Wait(ctx context.Context)
	Done()
}

// Manager is the Auth Manager (C3): current_auth()/invalidate(), with a
// Refresh method the dispatch loop calls when it decides refresh is due.
type Manager struct {
	mu     sync.Mutex
	cached *Token

	httpClient *http.Client
	pacer      RateWaiter

	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string

	loginURL  string
	revokeURL string
}

// New builds a Manager from process configuration.
func New(cfg *config.Config, pacer RateWaiter) *Manager {
	return &Manager{
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		pacer:        pacer,
		clientID:     cfg.RedditClientID,
		clientSecret: cfg.RedditClientSecret,
		username:     cfg.RedditUsername,
		password:     cfg.RedditPassword,
		userAgent:    cfg.UserAgent,
		loginURL:     loginURL,
		revokeURL:    revokeURL,
	}
}

// NewWithURLs builds a Manager against caller-supplied login/revoke
// endpoints instead of reddit.com, for tests and local Reddit-compatible
// mocks (mirrors redditclient.NewWithBaseURL).
func NewWithURLs(cfg *config.Config, pacer RateWaiter, loginURL, revokeURL string) *Manager {
	m := New(cfg, pacer)
	m.loginURL = loginURL
	m.revokeURL = revokeURL
	return m
}

// CurrentAuth returns the cached token, or nil if none is cached. It does
// not refresh; the dispatch loop decides when refresh is warranted.
func (m *Manager) CurrentAuth() *Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached
}

// SetCachedToken seeds the cache directly, bypassing the login flow. Used
// by dispatch loop tests to exercise token-freshness and 401-invalidation
// behavior without a live Reddit login endpoint.
func (m *Manager) SetCachedToken(tok *Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = tok
}

// Refresh executes the login flow and caches the result. A nil token with a
// nil error means the login endpoint responded with a non-2xx status; a nil
// token with a non-nil error means a transport or decode fault. Either way
// the dispatch loop treats "no token" as refresh failure.
func (m *Manager) Refresh(ctx context.Context) (*Token, error) {
	if m.pacer != nil {
		m.pacer.Wait(ctx)
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", m.username)
	form.Set("password", m.password)

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loginURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", m.userAgent)
		req.SetBasicAuth(m.clientID, m.clientSecret)
		return req, nil
	}

	resp, err := httpx.DoWithRetryFactory(m.httpClient, build, nil)
	if m.pacer != nil {
		m.pacer.Done()
	}
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("token refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		logger.Warn("token refresh rejected by reddit", "status", resp.StatusCode)
		return nil, nil
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("token refresh decode: %w", err)
	}

	tok := &Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		ExpiresAt:   time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
		Scope:       body.Scope,
	}

	m.mu.Lock()
	m.cached = tok
	m.mu.Unlock()

	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	logger.Info("token refreshed", "expires_at", tok.ExpiresAt, "access_token", secrets.Mask(tok.AccessToken))
	return tok, nil
}

// Invalidate purges the cached token (§4.3 case 3, triggered by an upstream
// 401) and makes a best-effort revoke call against Reddit before discarding
// it, mirroring the original client's revoke endpoint. The revoke call runs
// synchronously: the dispatch loop is single-threaded (§5) and must treat
// this as a suspension point like any other outbound Reddit call, never let
// it run concurrently with the next delivery's call (§8 P2).
func (m *Manager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	stale := m.cached
	m.cached = nil
	m.mu.Unlock()

	if stale == nil || stale.AccessToken == "" {
		return
	}
	m.bestEffortRevoke(ctx, stale.AccessToken)
}

func (m *Manager) bestEffortRevoke(ctx context.Context, accessToken string) {
	form := url.Values{}
	form.Set("token", accessToken)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", m.userAgent)
	req.SetBasicAuth(m.clientID, m.clientSecret)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "best-effort token revoke failed", "err", err)
		return
	}
	resp.Body.Close()
}
