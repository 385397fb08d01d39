// Package reddit wraps the read-only Reddit API: site-wide and
// per-subreddit search, top posts, and shallow comment context. All
// calls use the app-only OAuth2 grant and a caller-injected HTTP
// client so proxy routing stays a startup concern.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/snoonote/internal/fault"
)

const (
	defaultAuthURL = "https://www.reddit.com"
	defaultAPIURL  = "https://oauth.reddit.com"

	// Refresh the token slightly before Reddit expires it.
	tokenExpiryMargin = 30 * time.Second
)

// Client communicates with the Reddit read API.
type Client struct {
	clientID     string
	clientSecret string
	userAgent    string
	authURL      string
	apiURL       string
	httpClient   *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Reddit client with script-app credentials.
// httpClient may be nil, in which case a default client is used.
func NewClient(clientID, clientSecret, userAgent string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		authURL:      defaultAuthURL,
		apiURL:       defaultAPIURL,
		httpClient:   httpClient,
	}
}

// NewClientWithBaseURL creates a client with both the auth and API
// endpoints pointed at a custom base URL (for testing).
func NewClientWithBaseURL(clientID, clientSecret, userAgent, baseURL string, httpClient *http.Client) *Client {
	c := NewClient(clientID, clientSecret, userAgent, httpClient)
	c.authURL = strings.TrimRight(baseURL, "/")
	c.apiURL = c.authURL
	return c
}

// tokenResponse mirrors POST /api/v1/access_token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ensureToken returns a valid bearer token, fetching a fresh one via
// the client_credentials grant when the cached token is missing or
// near expiry.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fault.Upstream("reddit token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fault.UpstreamStatus("reddit token", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fault.Upstream("reddit token", fmt.Errorf("decoding response: %w", err))
	}
	if tok.AccessToken == "" {
		return "", fault.Upstream("reddit token", fmt.Errorf("empty access token in response"))
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// getListing performs an authenticated GET against the API host and
// decodes a single listing envelope.
func (c *Client) getListing(ctx context.Context, path string, query url.Values) (listing, error) {
	var l listing
	if err := c.getJSON(ctx, path, query, &l); err != nil {
		return listing{}, err
	}
	return l, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	query.Set("raw_json", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)

	op := "reddit GET " + path
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Upstream(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fault.UpstreamStatus(op, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Upstream(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
