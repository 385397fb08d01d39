package reddit

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/snoonote/internal/fault"
)

// SearchOptions controls search calls.
type SearchOptions struct {
	Limit int
	Sort  string
}

// TopOptions controls top-posts calls.
type TopOptions struct {
	Limit           int
	TimeFilter      string
	IncludeComments bool
}

const (
	MinLimit = 1
	MaxLimit = 100

	// Concurrent per-post comment fetches within one TopPosts call.
	commentFetchConcurrency = 4
)

var validSorts = map[string]bool{
	"relevance": true, "hot": true, "top": true, "new": true, "comments": true,
}

var validTimeFilters = map[string]bool{
	"hour": true, "day": true, "week": true, "month": true, "year": true, "all": true,
}

var subredditName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_]{1,20}$`)

// SearchAll searches across the entire platform.
func (c *Client) SearchAll(ctx context.Context, query string, opts SearchOptions) ([]Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fault.Validationf("query must not be empty")
	}
	if err := validateSearchOptions(opts); err != nil {
		return nil, err
	}

	l, err := c.getListing(ctx, "/search", searchQuery(query, opts, false))
	if err != nil {
		return nil, err
	}
	return clampPosts(postsFromListing(l), opts.Limit), nil
}

// SearchSubreddits searches each named subreddit in turn and
// concatenates results in caller order; no global re-ranking happens
// across subreddits. A subreddit whose underlying call fails is
// skipped with a warning; the call fails only when every subreddit
// fails.
func (c *Client) SearchSubreddits(ctx context.Context, subreddits []string, query string, opts SearchOptions) ([]Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fault.Validationf("query must not be empty")
	}
	if err := ValidateSubreddits(subreddits); err != nil {
		return nil, err
	}
	if err := validateSearchOptions(opts); err != nil {
		return nil, err
	}

	var (
		posts   []Post
		lastErr error
		failed  int
	)
	for _, sub := range subreddits {
		l, err := c.getListing(ctx, "/r/"+sub+"/search", searchQuery(query, opts, true))
		if err != nil {
			slog.Warn("subreddit search failed, skipping", "subreddit", sub, "error", err)
			lastErr = err
			failed++
			continue
		}
		posts = append(posts, clampPosts(postsFromListing(l), opts.Limit)...)
	}
	if failed == len(subreddits) {
		return nil, lastErr
	}
	return posts, nil
}

// TopPosts returns the top posts of the given subreddits within the
// time filter, Reddit-merged across subreddits in a single listing.
// When IncludeComments is set, each post additionally carries up to
// five top-level comments; a failed comment fetch degrades that post
// to an empty comment list without failing the call.
func (c *Client) TopPosts(ctx context.Context, subreddits []string, opts TopOptions) ([]Post, error) {
	if err := ValidateSubreddits(subreddits); err != nil {
		return nil, err
	}
	if opts.Limit < MinLimit || opts.Limit > MaxLimit {
		return nil, fault.Validationf("limit must be between %d and %d, got %d", MinLimit, MaxLimit, opts.Limit)
	}
	if !validTimeFilters[opts.TimeFilter] {
		return nil, fault.Validationf("invalid time filter %q", opts.TimeFilter)
	}

	q := url.Values{
		"t":     {opts.TimeFilter},
		"limit": {strconv.Itoa(opts.Limit)},
	}
	l, err := c.getListing(ctx, "/r/"+strings.Join(subreddits, "+")+"/top", q)
	if err != nil {
		return nil, err
	}
	posts := clampPosts(postsFromListing(l), opts.Limit)

	if opts.IncludeComments {
		c.attachComments(ctx, posts)
	}
	return posts, nil
}

// attachComments fetches top-level comments for each post
// concurrently, preserving post order in the output.
func (c *Client) attachComments(ctx context.Context, posts []Post) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commentFetchConcurrency)

	for i := range posts {
		g.Go(func() error {
			comments, err := c.topLevelComments(gctx, posts[i].ID)
			if err != nil {
				slog.Warn("comment fetch failed, post degrades to empty comments",
					"post_id", posts[i].ID, "error", err)
				comments = []Comment{}
			}
			posts[i].Comments = comments
			return nil
		})
	}
	// Workers never return errors; failures degrade per post.
	_ = g.Wait()
}

// topLevelComments fetches the shallow comment context of one post.
// The endpoint returns a two-element array: the post listing followed
// by the comment listing.
func (c *Client) topLevelComments(ctx context.Context, postID string) ([]Comment, error) {
	q := url.Values{
		"sort":  {"top"},
		"depth": {"1"},
		"limit": {strconv.Itoa(maxCommentsPerPost)},
	}
	var listings []listing
	if err := c.getJSON(ctx, "/comments/"+postID, q, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return []Comment{}, nil
	}
	return commentsFromListing(listings[1]), nil
}

// ValidateSubreddits rejects an empty set or any name outside Reddit's
// subreddit-name syntax.
func ValidateSubreddits(subreddits []string) error {
	if len(subreddits) == 0 {
		return fault.Validationf("at least one subreddit is required")
	}
	for _, sub := range subreddits {
		if !subredditName.MatchString(sub) {
			return fault.Validationf("invalid subreddit name %q", sub)
		}
	}
	return nil
}

func validateSearchOptions(opts SearchOptions) error {
	if opts.Limit < MinLimit || opts.Limit > MaxLimit {
		return fault.Validationf("limit must be between %d and %d, got %d", MinLimit, MaxLimit, opts.Limit)
	}
	if !validSorts[opts.Sort] {
		return fault.Validationf("invalid sort %q", opts.Sort)
	}
	return nil
}

func searchQuery(query string, opts SearchOptions, restrictSubreddit bool) url.Values {
	q := url.Values{
		"q":     {query},
		"sort":  {opts.Sort},
		"limit": {strconv.Itoa(opts.Limit)},
		"type":  {"link"},
	}
	if restrictSubreddit {
		q.Set("restrict_sr", "1")
	}
	return q
}

// clampPosts enforces the caller's limit even when Reddit over-returns.
func clampPosts(posts []Post, limit int) []Post {
	if len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
