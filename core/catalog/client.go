package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"melodex/apperr"
	"melodex/logger"
)

// TrackSummary is the provider's description of a track.
type TrackSummary struct {
	ExternalID string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	CoverURL   string `json:"coverUrl"`
	Duration   string `json:"duration"` // "M:SS"
	Genre      string `json:"genre"`
}

// Searcher is the contract the rest of the system consumes.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]TrackSummary, error)
	FetchByIDs(ctx context.Context, ids []string) ([]TrackSummary, error)
}

// tokenCache holds the provider access token. It is injected into the
// Client rather than living as process-global state, and refreshes
// either on demand (ensureFresh) or from its timer, which Stop cancels.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	refresh func(ctx context.Context) (string, time.Duration, error)
	stop    chan struct{}
	once    sync.Once
}

func newTokenCache(refresh func(ctx context.Context) (string, time.Duration, error)) *tokenCache {
	return &tokenCache{
		refresh: refresh,
		stop:    make(chan struct{}),
	}
}

// ensureFresh returns a valid token, refreshing it if missing or
// within a minute of expiry.
func (c *tokenCache) ensureFresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.expiresAt) > time.Minute {
		return c.token, nil
	}

	token, ttl, err := c.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh catalog token: %w", err)
	}
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
	logger.Debug("Catalog token refreshed", logger.Duration("ttl", ttl))
	return c.token, nil
}

// startTimer refreshes the token in the background at the given
// interval until Stop is called.
func (c *tokenCache) startTimer(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				c.mu.Lock()
				c.token = "" // force re-fetch on next ensureFresh
				c.mu.Unlock()
				if _, err := c.ensureFresh(ctx); err != nil {
					logger.Warn("Scheduled catalog token refresh failed", logger.ErrorField(err))
				}
				cancel()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop cancels the refresh timer. Safe to call more than once.
func (c *tokenCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Client talks to the external music-catalog provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *tokenCache
}

// NewClient creates a catalog client. clientID/clientSecret are the
// provider credentials used to obtain access tokens.
func NewClient(baseURL, clientID, clientSecret string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	c.tokens = newTokenCache(func(ctx context.Context) (string, time.Duration, error) {
		return c.fetchToken(ctx, clientID, clientSecret)
	})
	c.tokens.startTimer(30 * time.Minute)
	return c
}

// Close stops the background token refresh.
func (c *Client) Close() {
	c.tokens.Stop()
}

func (c *Client) fetchToken(ctx context.Context, clientID, clientSecret string) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned empty token")
	}
	ttl := time.Duration(result.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return result.AccessToken, ttl, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	token, err := c.tokens.ensureFresh(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "catalog provider unavailable", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "catalog request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Wrap(apperr.KindUpstream, "catalog provider error",
			fmt.Errorf("status %d from %s", resp.StatusCode, path))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "invalid catalog response", err)
	}
	return nil
}

// Search queries the provider's track index.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]TrackSummary, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var result struct {
		Tracks []TrackSummary `json:"tracks"`
	}
	if err := c.get(ctx, "/v1/search", q, &result); err != nil {
		return nil, err
	}
	return result.Tracks, nil
}

// FetchByIDs retrieves track summaries for the given provider ids.
func (c *Client) FetchByIDs(ctx context.Context, ids []string) ([]TrackSummary, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))

	var result struct {
		Tracks []TrackSummary `json:"tracks"`
	}
	if err := c.get(ctx, "/v1/tracks", q, &result); err != nil {
		return nil, err
	}
	return result.Tracks, nil
}
