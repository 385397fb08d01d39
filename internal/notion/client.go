// Package notion writes finished Q&A exchanges into a fixed-schema
// Notion database. The target database must carry the properties
// Question (title), Answer, Search Query, Reddit Sources (rich text),
// and Created (date); this package performs no schema management.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/kalambet/snoonote/internal/fault"
)

const (
	defaultBaseURL = "https://api.notion.com"
	notionVersion  = "2022-06-28"
)

// Database ids are 32 hex characters, with or without UUID dashes.
var databaseIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{4}-?[0-9a-fA-F]{12}$`)

// Client communicates with the Notion API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client

	// now is swappable in tests; SaveQA stamps Created from it.
	now func() time.Time
}

// NewClient creates a Notion client with the given integration token.
// httpClient may be nil, in which case a default client is used.
func NewClient(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL
// (for testing).
func NewClientWithBaseURL(token, baseURL string, httpClient *http.Client) *Client {
	c := NewClient(token, httpClient)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// SaveQA maps the record onto the database's fixed property set and
// creates one page, returning its id. The write is not retried and not
// idempotent: re-invoking creates a duplicate page.
func (c *Client) SaveQA(ctx context.Context, databaseID string, rec QARecord) (string, error) {
	if strings.TrimSpace(rec.Question) == "" {
		return "", fault.Validationf("question must not be empty")
	}
	if strings.TrimSpace(rec.Answer) == "" {
		return "", fault.Validationf("answer must not be empty")
	}
	if !databaseIDPattern.MatchString(databaseID) {
		return "", fault.Validationf("malformed Notion database id %q", databaseID)
	}

	// Empty optional fields render as empty text, never omitted, so
	// the database's property schema stays stable across records.
	payload := createPageRequest{
		Parent: parent{DatabaseID: databaseID},
		Properties: map[string]property{
			"Question":       titleProp(rec.Question),
			"Answer":         richTextProp(rec.Answer),
			"Search Query":   richTextProp(rec.SearchQuery),
			"Reddit Sources": richTextProp(renderSources(rec.Sources)),
			"Created":        dateProp(c.now().UTC().Format(time.RFC3339)),
		},
	}

	page, err := c.createPage(ctx, payload)
	if err != nil {
		return "", err
	}
	return page.ID, nil
}

func (c *Client) createPage(ctx context.Context, payload createPageRequest) (createPageResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return createPageResponse{}, fmt.Errorf("marshaling page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/pages", bytes.NewReader(body))
	if err != nil {
		return createPageResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	const op = "notion create page"
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return createPageResponse{}, fault.Upstream(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return createPageResponse{}, fault.UpstreamStatus(op, resp.StatusCode, string(respBody))
	}

	var page createPageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return createPageResponse{}, fault.Upstream(op, fmt.Errorf("decoding response: %w", err))
	}
	return page, nil
}

// renderSources joins sources into a numbered list, one per line. A
// source of the form "title|url" renders as a markdown link; anything
// else is kept verbatim.
func renderSources(sources []string) string {
	var b strings.Builder
	for i, src := range sources {
		if i > 0 {
			b.WriteString("\n")
		}
		if title, url, ok := strings.Cut(src, "|"); ok && title != "" && url != "" {
			fmt.Fprintf(&b, "%d. [%s](%s)", i+1, strings.TrimSpace(title), strings.TrimSpace(url))
		} else {
			fmt.Fprintf(&b, "%d. %s", i+1, src)
		}
	}
	return b.String()
}
