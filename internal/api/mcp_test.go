package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/snoonote/internal/fault"
	"github.com/kalambet/snoonote/internal/notion"
	"github.com/kalambet/snoonote/internal/reddit"
)

// --- mocks ---

type mockReddit struct {
	posts []reddit.Post
	err   error

	lastQuery      string
	lastSubreddits []string
	lastSearchOpts reddit.SearchOptions
	lastTopOpts    reddit.TopOptions
	calls          int
}

func (m *mockReddit) SearchAll(_ context.Context, query string, opts reddit.SearchOptions) ([]reddit.Post, error) {
	m.calls++
	m.lastQuery = query
	m.lastSearchOpts = opts
	return m.posts, m.err
}

func (m *mockReddit) SearchSubreddits(_ context.Context, subreddits []string, query string, opts reddit.SearchOptions) ([]reddit.Post, error) {
	m.calls++
	m.lastSubreddits = subreddits
	m.lastQuery = query
	m.lastSearchOpts = opts
	return m.posts, m.err
}

func (m *mockReddit) TopPosts(_ context.Context, subreddits []string, opts reddit.TopOptions) ([]reddit.Post, error) {
	m.calls++
	m.lastSubreddits = subreddits
	m.lastTopOpts = opts
	return m.posts, m.err
}

type mockNotion struct {
	pageID string
	err    error

	calls      int
	lastDB     string
	lastRecord notion.QARecord
}

func (m *mockNotion) SaveQA(_ context.Context, databaseID string, rec notion.QARecord) (string, error) {
	m.calls++
	m.lastDB = databaseID
	m.lastRecord = rec
	return m.pageID, m.err
}

// --- helpers ---

func newTestDeps() (MCPDeps, *mockReddit, *mockNotion) {
	r := &mockReddit{posts: []reddit.Post{
		{ID: "p1", Title: "First", URL: "https://example.com/1", Subreddit: "golang"},
		{ID: "p2", Title: "Second", URL: "https://example.com/2", Subreddit: "golang"},
	}}
	n := &mockNotion{pageID: "page-xyz"}
	return MCPDeps{Reddit: r, Notion: n, DatabaseID: "0123456789abcdef0123456789abcdef"}, r, n
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

// errorBody decodes the structured {kind, message} error payload.
func errorBody(t *testing.T, result *mcp.CallToolResult) toolErrorBody {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	var body toolErrorBody
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("error payload is not structured JSON: %v", err)
	}
	return body
}

// --- search_reddit ---

func TestSearchReddit_Success(t *testing.T) {
	deps, r, _ := newTestDeps()
	handler := mcpSearchReddit(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_reddit", map[string]interface{}{
		"query": "  best go router  ",
		"limit": 10,
		"sort":  "top",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var posts []reddit.Post
	if err := json.Unmarshal([]byte(toolText(t, result)), &posts); err != nil {
		t.Fatalf("result is not a JSON post list: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if r.lastQuery != "best go router" {
		t.Errorf("query not trimmed: %q", r.lastQuery)
	}
	if r.lastSearchOpts != (reddit.SearchOptions{Limit: 10, Sort: "top"}) {
		t.Errorf("unexpected options: %+v", r.lastSearchOpts)
	}
}

func TestSearchReddit_MissingQuery(t *testing.T) {
	deps, r, _ := newTestDeps()
	handler := mcpSearchReddit(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_reddit", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler must not fault: %v", err)
	}
	body := errorBody(t, result)
	if body.Kind != "validation_error" {
		t.Errorf("kind = %q, want validation_error", body.Kind)
	}
	if r.calls != 0 {
		t.Errorf("adapter called despite invalid arguments")
	}

	// Process survival: the same handler serves a subsequent valid call.
	result, err = handler(context.Background(), makeCallToolRequest("search_reddit", map[string]interface{}{
		"query": "still alive",
	}))
	if err != nil || result.IsError {
		t.Fatalf("subsequent valid call failed: err=%v result=%v", err, result)
	}
}

func TestSearchReddit_LimitClampedAndDefaulted(t *testing.T) {
	deps, r, _ := newTestDeps()
	handler := mcpSearchReddit(deps)
	ctx := context.Background()

	cases := []struct {
		name  string
		args  map[string]interface{}
		limit int
		sort  string
	}{
		{"defaults", map[string]interface{}{"query": "q"}, defaultSearchLimit, "relevance"},
		{"clamped to cap", map[string]interface{}{"query": "q", "limit": 500}, maxSearchLimit, "relevance"},
		{"non-positive falls back", map[string]interface{}{"query": "q", "limit": -3}, defaultSearchLimit, "relevance"},
		{"sort normalized", map[string]interface{}{"query": "q", "sort": " TOP "}, defaultSearchLimit, "top"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := handler(ctx, makeCallToolRequest("search_reddit", tc.args)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.lastSearchOpts.Limit != tc.limit {
				t.Errorf("limit = %d, want %d", r.lastSearchOpts.Limit, tc.limit)
			}
			if r.lastSearchOpts.Sort != tc.sort {
				t.Errorf("sort = %q, want %q", r.lastSearchOpts.Sort, tc.sort)
			}
		})
	}
}

func TestSearchReddit_UpstreamErrorShape(t *testing.T) {
	deps, r, _ := newTestDeps()
	r.err = fault.UpstreamStatus("reddit GET /search", 429, "rate limited")
	r.posts = nil
	handler := mcpSearchReddit(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_reddit", map[string]interface{}{
		"query": "q",
	}))
	if err != nil {
		t.Fatalf("adapter failures must become tool errors, not faults: %v", err)
	}
	body := errorBody(t, result)
	if body.Kind != "upstream_error" {
		t.Errorf("kind = %q, want upstream_error", body.Kind)
	}
}

func TestSearchReddit_UnknownErrorIsInternal(t *testing.T) {
	deps, r, _ := newTestDeps()
	r.err = errors.New("boom")
	r.posts = nil
	handler := mcpSearchReddit(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("search_reddit", map[string]interface{}{
		"query": "q",
	}))
	if body := errorBody(t, result); body.Kind != "internal_error" {
		t.Errorf("kind = %q, want internal_error", body.Kind)
	}
}

// --- search_posts ---

func TestSearchPosts_SubredditNormalization(t *testing.T) {
	deps, r, _ := newTestDeps()
	handler := mcpSearchPosts(deps)
	ctx := context.Background()

	cases := []struct {
		name string
		arg  interface{}
		want []string
	}{
		{"plus separated", "redditdev+learnpython", []string{"redditdev", "learnpython"}},
		{"comma separated", "golang, rust", []string{"golang", "rust"}},
		{"array", []interface{}{"golang", "rust"}, []string{"golang", "rust"}},
		{"dedup preserves first-seen order", "golang+rust+golang", []string{"golang", "rust"}},
		{"r/ prefix stripped", "r/golang", []string{"golang"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := handler(ctx, makeCallToolRequest("search_posts", map[string]interface{}{
				"subreddits": tc.arg,
				"query":      "q",
			}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError {
				t.Fatalf("unexpected tool error: %s", toolText(t, result))
			}
			if len(r.lastSubreddits) != len(tc.want) {
				t.Fatalf("subreddits = %v, want %v", r.lastSubreddits, tc.want)
			}
			for i := range tc.want {
				if r.lastSubreddits[i] != tc.want[i] {
					t.Fatalf("subreddits = %v, want %v", r.lastSubreddits, tc.want)
				}
			}
		})
	}
}

func TestSearchPosts_InvalidSubreddits(t *testing.T) {
	deps, r, _ := newTestDeps()
	handler := mcpSearchPosts(deps)
	ctx := context.Background()

	for name, arg := range map[string]interface{}{
		"missing":      nil,
		"empty string": "  ",
		"bad name":     "not a subreddit!",
		"non-strings":  []interface{}{42},
	} {
		t.Run(name, func(t *testing.T) {
			args := map[string]interface{}{"query": "q"}
			if arg != nil {
				args["subreddits"] = arg
			}
			result, err := handler(ctx, makeCallToolRequest("search_posts", args))
			if err != nil {
				t.Fatalf("handler must not fault: %v", err)
			}
			if body := errorBody(t, result); body.Kind != "validation_error" {
				t.Errorf("kind = %q, want validation_error", body.Kind)
			}
		})
	}
	if r.calls != 0 {
		t.Errorf("adapter called despite invalid arguments")
	}
}

// --- get_top_subreddit_posts ---

func TestTopPosts_DefaultsAndCommentInclusion(t *testing.T) {
	deps, r, _ := newTestDeps()
	handler := mcpTopPosts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_top_subreddit_posts", map[string]interface{}{
		"subreddits": "golang",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	want := reddit.TopOptions{Limit: defaultTopLimit, TimeFilter: "week", IncludeComments: true}
	if r.lastTopOpts != want {
		t.Errorf("options = %+v, want %+v", r.lastTopOpts, want)
	}
}

func TestTopPosts_LimitCap(t *testing.T) {
	deps, r, _ := newTestDeps()
	handler := mcpTopPosts(deps)

	if _, err := handler(context.Background(), makeCallToolRequest("get_top_subreddit_posts", map[string]interface{}{
		"subreddits": "golang",
		"limit":      50,
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.lastTopOpts.Limit != maxTopLimit {
		t.Errorf("limit = %d, want cap %d", r.lastTopOpts.Limit, maxTopLimit)
	}
}

// --- save_reddit_qa_to_notion ---

func TestSaveQA_Success(t *testing.T) {
	deps, _, n := newTestDeps()
	handler := mcpSaveQA(deps)

	result, err := handler(context.Background(), makeCallToolRequest("save_reddit_qa_to_notion", map[string]interface{}{
		"question":     "How do I test HTTP handlers in Go?",
		"answer":       "Use net/http/httptest.",
		"search_query": "go httptest",
		"reddit_sources": []interface{}{
			"https://reddit.com/r/golang/comments/abc",
			map[string]interface{}{"title": "Testing in Go", "url": "https://reddit.com/r/golang/comments/def"},
		},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var res saveResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatalf("result is not a JSON object: %v", err)
	}
	if res.PageID != "page-xyz" {
		t.Errorf("page_id = %q, want %q", res.PageID, "page-xyz")
	}

	if n.calls != 1 {
		t.Fatalf("expected exactly 1 SaveQA call, got %d", n.calls)
	}
	if n.lastDB != deps.DatabaseID {
		t.Errorf("database id = %q, want %q", n.lastDB, deps.DatabaseID)
	}
	rec := n.lastRecord
	if rec.Question != "How do I test HTTP handlers in Go?" || rec.Answer != "Use net/http/httptest." {
		t.Errorf("record mismatch: %+v", rec)
	}
	if rec.SearchQuery != "go httptest" {
		t.Errorf("search query = %q", rec.SearchQuery)
	}
	if len(rec.Sources) != 2 {
		t.Fatalf("sources = %v", rec.Sources)
	}
	if rec.Sources[1] != "Testing in Go|https://reddit.com/r/golang/comments/def" {
		t.Errorf("object source not normalized: %q", rec.Sources[1])
	}
}

func TestSaveQA_EmptyQuestionNoOutboundCall(t *testing.T) {
	deps, _, n := newTestDeps()
	handler := mcpSaveQA(deps)

	result, err := handler(context.Background(), makeCallToolRequest("save_reddit_qa_to_notion", map[string]interface{}{
		"question": "",
		"answer":   "x",
	}))
	if err != nil {
		t.Fatalf("handler must not fault: %v", err)
	}
	if body := errorBody(t, result); body.Kind != "validation_error" {
		t.Errorf("kind = %q, want validation_error", body.Kind)
	}
	if n.calls != 0 {
		t.Fatalf("expected no Notion call, got %d", n.calls)
	}
}

func TestSaveQA_LongQuestionPreviewTruncated(t *testing.T) {
	deps, _, _ := newTestDeps()
	handler := mcpSaveQA(deps)

	long := "How do I structure a very large Go monorepo with many services and shared libraries?"
	result, err := handler(context.Background(), makeCallToolRequest("save_reddit_qa_to_notion", map[string]interface{}{
		"question": long,
		"answer":   "carefully",
	}))
	if err != nil || result.IsError {
		t.Fatalf("unexpected failure: err=%v", err)
	}

	var res saveResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &res); err != nil {
		t.Fatal(err)
	}
	if len([]rune(res.Question)) != 53 {
		t.Errorf("question preview = %q (len %d), want 50 runes plus ellipsis", res.Question, len([]rune(res.Question)))
	}
}

func TestSaveQA_UpstreamErrorShape(t *testing.T) {
	deps, _, n := newTestDeps()
	n.err = fault.UpstreamStatus("notion create page", 404, "database not found")
	n.pageID = ""
	handler := mcpSaveQA(deps)

	result, err := handler(context.Background(), makeCallToolRequest("save_reddit_qa_to_notion", map[string]interface{}{
		"question": "Q",
		"answer":   "A",
	}))
	if err != nil {
		t.Fatalf("adapter failures must become tool errors, not faults: %v", err)
	}
	body := errorBody(t, result)
	if body.Kind != "upstream_error" {
		t.Errorf("kind = %q, want upstream_error", body.Kind)
	}
}

// --- server wiring ---

func TestNewMCPServer_RegistersAllTools(t *testing.T) {
	deps, _, _ := newTestDeps()
	s := NewMCPServer(deps)
	if s == nil {
		t.Fatal("expected a server")
	}
}
