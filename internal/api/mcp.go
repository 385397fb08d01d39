package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/snoonote/internal/notion"
	"github.com/kalambet/snoonote/internal/reddit"
)

// RedditSearcher abstracts the Reddit query adapter for the MCP layer.
type RedditSearcher interface {
	SearchAll(ctx context.Context, query string, opts reddit.SearchOptions) ([]reddit.Post, error)
	SearchSubreddits(ctx context.Context, subreddits []string, query string, opts reddit.SearchOptions) ([]reddit.Post, error)
	TopPosts(ctx context.Context, subreddits []string, opts reddit.TopOptions) ([]reddit.Post, error)
}

// QAWriter abstracts the Notion record writer for the MCP layer.
type QAWriter interface {
	SaveQA(ctx context.Context, databaseID string, rec notion.QARecord) (string, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Reddit     RedditSearcher
	Notion     QAWriter
	DatabaseID string
}

// Per-tool defaults and ceilings. Out-of-range limits are clamped, not
// rejected; non-positive limits fall back to the default.
const (
	defaultSearchLimit = 5
	maxSearchLimit     = 25
	defaultTopLimit    = 5
	maxTopLimit        = 10

	defaultSort       = "relevance"
	defaultTimeFilter = "week"
)

// NewMCPServer creates an MCP server with all snoonote tools
// registered. Each tool call is a stateless, independent
// request-response cycle.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"snoonote",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("snoonote — search Reddit for discussion context and save finished Q&A exchanges to Notion."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_reddit",
			mcp.WithDescription("Search for posts across all of Reddit (site-wide search)."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Number of posts to retrieve (default 5, max 25)")),
			mcp.WithString("sort", mcp.Description("One of: relevance, hot, top, new, comments (default relevance)")),
		),
		mcpSearchReddit(deps),
	)

	s.AddTool(
		mcp.NewTool("search_posts",
			mcp.WithDescription("Search for posts in specific subreddits."),
			mcp.WithString("subreddits", mcp.Description("Subreddit name(s): a single name, a '+'/comma separated list (e.g. \"redditdev+learnpython\"), or a JSON array"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Number of posts to retrieve per subreddit (default 5, max 25)")),
			mcp.WithString("sort", mcp.Description("One of: relevance, hot, top, new, comments (default relevance)")),
		),
		mcpSearchPosts(deps),
	)

	s.AddTool(
		mcp.NewTool("get_top_subreddit_posts",
			mcp.WithDescription("Get top posts from specified subreddits, each with up to five top-level comments for context."),
			mcp.WithString("subreddits", mcp.Description("Subreddit name(s): a single name, a '+'/comma separated list, or a JSON array"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Number of posts to retrieve (default 5, max 10)")),
			mcp.WithString("time_filter", mcp.Description("One of: hour, day, week, month, year, all (default week)")),
		),
		mcpTopPosts(deps),
	)

	s.AddTool(
		mcp.NewTool("save_reddit_qa_to_notion",
			mcp.WithDescription("Save a finished Q&A exchange, with its Reddit provenance, as a page in the configured Notion database."),
			mcp.WithString("question", mcp.Description("The original question asked"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("The generated answer"), mcp.Required()),
			mcp.WithString("search_query", mcp.Description("The Reddit search query that informed the answer")),
			mcp.WithArray("reddit_sources", mcp.Description("Source posts: URLs/permalinks as strings, or objects with 'title' and 'url'")),
		),
		mcpSaveQA(deps),
	)

	return s
}

func mcpSearchReddit(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := callLogger("search_reddit")
		query := strings.TrimSpace(req.GetString("query", ""))
		if query == "" {
			return validationError("query is required"), nil
		}
		opts := reddit.SearchOptions{
			Limit: clampLimit(req.GetInt("limit", defaultSearchLimit), defaultSearchLimit, maxSearchLimit),
			Sort:  normalizeSort(req.GetString("sort", defaultSort)),
		}

		start := time.Now()
		posts, err := deps.Reddit.SearchAll(ctx, query, opts)
		if err != nil {
			log.Warn("search failed", "error", err)
			return toolError(err), nil
		}
		log.Info("search completed", "query", query, "posts", len(posts), "duration_ms", time.Since(start).Milliseconds())
		return mcpJSON(posts), nil
	}
}

func mcpSearchPosts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := callLogger("search_posts")
		query := strings.TrimSpace(req.GetString("query", ""))
		if query == "" {
			return validationError("query is required"), nil
		}
		subreddits, err := subredditsArg(req)
		if err != nil {
			return validationError("%v", err), nil
		}
		opts := reddit.SearchOptions{
			Limit: clampLimit(req.GetInt("limit", defaultSearchLimit), defaultSearchLimit, maxSearchLimit),
			Sort:  normalizeSort(req.GetString("sort", defaultSort)),
		}

		start := time.Now()
		posts, err := deps.Reddit.SearchSubreddits(ctx, subreddits, query, opts)
		if err != nil {
			log.Warn("subreddit search failed", "subreddits", subreddits, "error", err)
			return toolError(err), nil
		}
		log.Info("subreddit search completed", "subreddits", subreddits, "posts", len(posts), "duration_ms", time.Since(start).Milliseconds())
		return mcpJSON(posts), nil
	}
}

func mcpTopPosts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := callLogger("get_top_subreddit_posts")
		subreddits, err := subredditsArg(req)
		if err != nil {
			return validationError("%v", err), nil
		}
		opts := reddit.TopOptions{
			Limit:           clampLimit(req.GetInt("limit", defaultTopLimit), defaultTopLimit, maxTopLimit),
			TimeFilter:      strings.ToLower(strings.TrimSpace(req.GetString("time_filter", defaultTimeFilter))),
			IncludeComments: true,
		}

		start := time.Now()
		posts, err := deps.Reddit.TopPosts(ctx, subreddits, opts)
		if err != nil {
			log.Warn("top posts failed", "subreddits", subreddits, "error", err)
			return toolError(err), nil
		}
		log.Info("top posts completed", "subreddits", subreddits, "posts", len(posts), "duration_ms", time.Since(start).Milliseconds())
		return mcpJSON(posts), nil
	}
}

// saveResult is the success payload of save_reddit_qa_to_notion.
type saveResult struct {
	PageID   string `json:"page_id"`
	Message  string `json:"message"`
	Question string `json:"question"`
}

func mcpSaveQA(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := callLogger("save_reddit_qa_to_notion")
		question := strings.TrimSpace(req.GetString("question", ""))
		if question == "" {
			return validationError("question is required"), nil
		}
		answer := strings.TrimSpace(req.GetString("answer", ""))
		if answer == "" {
			return validationError("answer is required"), nil
		}

		rec := notion.QARecord{
			Question:    question,
			Answer:      answer,
			SearchQuery: strings.TrimSpace(req.GetString("search_query", "")),
			Sources:     sourcesArg(req),
		}

		start := time.Now()
		pageID, err := deps.Notion.SaveQA(ctx, deps.DatabaseID, rec)
		if err != nil {
			log.Warn("save failed", "error", err)
			return toolError(err), nil
		}
		log.Info("qa saved", "page_id", pageID, "duration_ms", time.Since(start).Milliseconds())

		return mcpJSON(saveResult{
			PageID:   pageID,
			Message:  "Successfully saved Q&A exchange to Notion",
			Question: previewText(question, 50),
		}), nil
	}
}

// callLogger tags every log line of one invocation with a correlation
// id, so concurrent calls stay distinguishable.
func callLogger(tool string) *slog.Logger {
	return slog.With("tool", tool, "call_id", uuid.NewString())
}

// subredditsArg normalizes the subreddits argument: a string (single
// name, or '+'/comma separated in the praw style) or an array, deduped
// preserving first-seen order.
func subredditsArg(req mcp.CallToolRequest) ([]string, error) {
	raw, ok := req.GetArguments()["subreddits"]
	if !ok {
		return nil, fmt.Errorf("subreddits is required")
	}

	var names []string
	switch v := raw.(type) {
	case string:
		names = strings.FieldsFunc(v, func(r rune) bool {
			return r == '+' || r == ','
		})
	case []string:
		names = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("subreddits must contain only strings")
			}
			names = append(names, s)
		}
	default:
		return nil, fmt.Errorf("subreddits must be a string or an array of strings")
	}

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "r/"))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("subreddits must name at least one subreddit")
	}
	if err := reddit.ValidateSubreddits(out); err != nil {
		return nil, err
	}
	return out, nil
}

// sourcesArg accepts reddit_sources entries as plain strings or as
// {title, url} objects, the latter rendered as "title|url" for the
// Notion writer's link formatting.
func sourcesArg(req mcp.CallToolRequest) []string {
	raw, ok := req.GetArguments()["reddit_sources"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	sources := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				sources = append(sources, s)
			}
		case map[string]any:
			title, _ := v["title"].(string)
			url, _ := v["url"].(string)
			switch {
			case title != "" && url != "":
				sources = append(sources, title+"|"+url)
			case url != "":
				sources = append(sources, url)
			}
		}
	}
	return sources
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func normalizeSort(sort string) string {
	sort = strings.ToLower(strings.TrimSpace(sort))
	if sort == "" {
		return defaultSort
	}
	return sort
}

func previewText(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
