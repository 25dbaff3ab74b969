package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API is the operation surface the simulator needs from the content/graph
// service. The HTTP client implements it against the real service; tests
// use the in-memory Mock.
type API interface {
	// Accounts and graph.
	Register(ctx context.Context, req *RegisterRequest) (int64, error)
	Follow(ctx context.Context, followerID, followeeID, slot int64) error
	Unfollow(ctx context.Context, followerID, followeeID, slot int64) error
	FollowSuggestions(ctx context.Context, userID int64, p FollowSuggestParams) (map[int64]float64, error)

	// Content.
	Post(ctx context.Context, req *PostRequest) error
	Comment(ctx context.Context, req *CommentRequest) error
	React(ctx context.Context, userID, postID int64, reaction string, slot int64) error
	Share(ctx context.Context, userID, postID, slot int64) error
	Cast(ctx context.Context, userID, postID int64, vote string, slot int64) error
	Read(ctx context.Context, userID int64, p ReadParams) ([]PostRef, error)
	Search(ctx context.Context, userID int64) ([]PostRef, error)
	Mentions(ctx context.Context, userID int64) ([]PostRef, error)
	Thread(ctx context.Context, postID int64, maxPosts int) ([]string, error)
	NextArticle(ctx context.Context, category string) (*Article, error)

	// Experiment lifecycle.
	Churn(ctx context.Context, userIDs []int64, slot int64) error
	SetInterests(ctx context.Context, interests []string) error
	CurrentTime(ctx context.Context) (*TimeState, error)
	UpdateTime(ctx context.Context, day, slot int64) error
	Reset(ctx context.Context) error
}

// Client talks JSON-over-HTTP to the content/graph service.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a client for the service at baseURL. The timeout is a
// transport-level cap; callers additionally bound each call via ctx.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// post sends a JSON body to path and decodes the JSON response into out
// (out may be nil when the response body is irrelevant).
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, req *RegisterRequest) (int64, error) {
	if err := c.post(ctx, "/register", req, nil); err != nil {
		return 0, err
	}
	var user User
	lookup := map[string]string{"username": req.Name, "email": req.Email}
	if err := c.post(ctx, "/get_user", lookup, &user); err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (c *Client) Follow(ctx context.Context, followerID, followeeID, slot int64) error {
	req := map[string]int64{"user_id": followerID, "target": followeeID, "tid": slot}
	return c.post(ctx, "/follow", req, nil)
}

func (c *Client) Unfollow(ctx context.Context, followerID, followeeID, slot int64) error {
	req := map[string]int64{"user_id": followerID, "target": followeeID, "tid": slot}
	return c.post(ctx, "/unfollow", req, nil)
}

func (c *Client) FollowSuggestions(ctx context.Context, userID int64, p FollowSuggestParams) (map[int64]float64, error) {
	req := struct {
		FollowSuggestParams
		UserID int64 `json:"user_id"`
	}{p, userID}
	// the service keys candidate ids as strings
	var raw map[string]float64
	if err := c.post(ctx, "/follow_suggestions", req, &raw); err != nil {
		return nil, err
	}
	out := make(map[int64]float64, len(raw))
	for key, score := range raw {
		var id int64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			return nil, fmt.Errorf("follow_suggestions key %q is not a user id", key)
		}
		out[id] = score
	}
	return out, nil
}

func (c *Client) Post(ctx context.Context, req *PostRequest) error {
	path := "/post"
	if req.Article != nil {
		path = "/news"
	}
	return c.post(ctx, path, req, nil)
}

func (c *Client) Comment(ctx context.Context, req *CommentRequest) error {
	return c.post(ctx, "/comment", req, nil)
}

func (c *Client) React(ctx context.Context, userID, postID int64, reaction string, slot int64) error {
	req := map[string]interface{}{
		"user_id": userID, "post_id": postID, "type": reaction, "tid": slot,
	}
	return c.post(ctx, "/reaction", req, nil)
}

func (c *Client) Share(ctx context.Context, userID, postID, slot int64) error {
	req := map[string]int64{"user_id": userID, "post_id": postID, "tid": slot}
	return c.post(ctx, "/share", req, nil)
}

func (c *Client) Cast(ctx context.Context, userID, postID int64, vote string, slot int64) error {
	req := map[string]interface{}{
		"user_id": userID, "post_id": postID, "vote": vote, "tid": slot,
	}
	return c.post(ctx, "/cast_preference", req, nil)
}

func (c *Client) Read(ctx context.Context, userID int64, p ReadParams) ([]PostRef, error) {
	req := struct {
		ReadParams
		UserID int64 `json:"user_id"`
	}{p, userID}
	var posts []PostRef
	if err := c.post(ctx, "/read", req, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Search(ctx context.Context, userID int64) ([]PostRef, error) {
	var posts []PostRef
	if err := c.post(ctx, "/search", map[string]int64{"user_id": userID}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Mentions(ctx context.Context, userID int64) ([]PostRef, error) {
	var posts []PostRef
	if err := c.post(ctx, "/read_mentions", map[string]int64{"user_id": userID}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) Thread(ctx context.Context, postID int64, maxPosts int) ([]string, error) {
	var posts []string
	if err := c.post(ctx, "/post_thread", map[string]int64{"post_id": postID}, &posts); err != nil {
		return nil, err
	}
	if maxPosts > 0 && len(posts) > maxPosts {
		posts = posts[len(posts)-maxPosts:] // most recent context wins
	}
	return posts, nil
}

func (c *Client) NextArticle(ctx context.Context, category string) (*Article, error) {
	var article Article
	if err := c.post(ctx, "/next_article", map[string]string{"category": category}, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (c *Client) Churn(ctx context.Context, userIDs []int64, slot int64) error {
	req := map[string]interface{}{"user_ids": userIDs, "left_on": slot}
	return c.post(ctx, "/churn", req, nil)
}

func (c *Client) SetInterests(ctx context.Context, interests []string) error {
	return c.post(ctx, "/set_interests", interests, nil)
}

func (c *Client) CurrentTime(ctx context.Context) (*TimeState, error) {
	var ts TimeState
	if err := c.post(ctx, "/current_time", nil, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (c *Client) UpdateTime(ctx context.Context, day, slot int64) error {
	return c.post(ctx, "/update_time", map[string]int64{"day": day, "round": slot}, nil)
}

func (c *Client) Reset(ctx context.Context) error {
	return c.post(ctx, "/reset", nil, nil)
}
