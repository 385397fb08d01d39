package reddit

// Post is one normalized Reddit post returned to callers. It is
// constructed once from an upstream listing and never mutated.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subreddit   string    `json:"subreddit"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	URL         string    `json:"url"`
	Permalink   string    `json:"permalink"`
	CreatedUTC  int64     `json:"created_utc"`
	Selftext    string    `json:"selftext,omitempty"`
	Author      string    `json:"author,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
}

// Comment is a shallow top-level comment attached to a Post for
// context. Ordering follows the upstream "top" ranking.
type Comment struct {
	Author string `json:"author,omitempty"`
	Body   string `json:"body"`
	Score  int    `json:"score"`
}

// listing mirrors the Reddit listing envelope. All knowledge of
// upstream field names stays in this file.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string    `json:"kind"`
			Data childData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type childData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Body        string  `json:"body"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}

const (
	maxSelftextRunes    = 2000
	maxCommentBodyRunes = 500
	maxCommentsPerPost  = 5
)

func (d childData) toPost() Post {
	url := d.URL
	permalink := d.Permalink
	if permalink != "" {
		permalink = "https://reddit.com" + permalink
	}
	if url == "" {
		url = permalink
	}
	return Post{
		ID:          d.ID,
		Title:       d.Title,
		Subreddit:   d.Subreddit,
		Score:       d.Score,
		NumComments: d.NumComments,
		URL:         url,
		Permalink:   permalink,
		CreatedUTC:  int64(d.CreatedUTC),
		Selftext:    truncateRunes(d.Selftext, maxSelftextRunes),
		Author:      d.Author,
	}
}

// postsFromListing maps a listing to Posts, dropping entries that
// violate the non-empty id/url invariant (deleted or promoted items).
func postsFromListing(l listing) []Post {
	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		p := child.Data.toPost()
		if p.ID == "" || p.URL == "" {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

// commentsFromListing flattens top-level comments, skipping deleted
// bodies and "more" stubs, capped at maxCommentsPerPost.
func commentsFromListing(l listing) []Comment {
	comments := make([]Comment, 0, maxCommentsPerPost)
	for _, child := range l.Data.Children {
		if child.Kind != "" && child.Kind != "t1" {
			continue
		}
		body := child.Data.Body
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		comments = append(comments, Comment{
			Author: child.Data.Author,
			Body:   truncateRunes(body, maxCommentBodyRunes),
			Score:  child.Data.Score,
		})
		if len(comments) == maxCommentsPerPost {
			break
		}
	}
	return comments
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
