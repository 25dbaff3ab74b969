package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Mock is an in-memory API implementation for tests and dry runs. Response
// content is deterministic per call so that parallel and sequential
// dispatch observe identical collaborator behavior.
type Mock struct {
	mu sync.Mutex

	nextUserID int64
	users      map[int64]*User
	edges      map[[2]int64]bool

	// Feed is what Read/Search/Mentions return; tests pre-load it.
	Feed        []PostRef
	MentionFeed []PostRef
	Suggestions map[int64]float64
	ArticleStub *Article

	// Fail, when non-nil, makes the named methods return the error.
	Fail map[string]error

	// Calls counts invocations per method name.
	calls map[string]*atomic.Int64
}

// NewMock creates an empty mock service.
func NewMock() *Mock {
	return &Mock{
		nextUserID: 1,
		users:      make(map[int64]*User),
		edges:      make(map[[2]int64]bool),
		Fail:       make(map[string]error),
		calls:      make(map[string]*atomic.Int64),
	}
}

func (m *Mock) note(method string) error {
	m.mu.Lock()
	counter, ok := m.calls[method]
	if !ok {
		counter = &atomic.Int64{}
		m.calls[method] = counter
	}
	err := m.Fail[method]
	m.mu.Unlock()
	counter.Add(1)
	return err
}

// Calls returns how many times the named method ran.
func (m *Mock) Calls(method string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.calls[method]; ok {
		return c.Load()
	}
	return 0
}

func (m *Mock) Register(ctx context.Context, req *RegisterRequest) (int64, error) {
	if err := m.note("Register"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextUserID
	m.nextUserID++
	m.users[id] = &User{ID: id, Name: req.Name, Email: req.Email, UserType: req.UserType, JoinedOn: req.JoinedOn}
	return id, nil
}

func (m *Mock) Follow(ctx context.Context, followerID, followeeID, slot int64) error {
	if err := m.note("Follow"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[[2]int64{followerID, followeeID}] = true
	return nil
}

func (m *Mock) Unfollow(ctx context.Context, followerID, followeeID, slot int64) error {
	if err := m.note("Unfollow"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.edges, [2]int64{followerID, followeeID})
	return nil
}

// HasEdge reports whether the mock recorded follower -> followee.
func (m *Mock) HasEdge(followerID, followeeID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges[[2]int64{followerID, followeeID}]
}

func (m *Mock) FollowSuggestions(ctx context.Context, userID int64, p FollowSuggestParams) (map[int64]float64, error) {
	if err := m.note("FollowSuggestions"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]float64, len(m.Suggestions))
	for id, score := range m.Suggestions {
		if id != userID {
			out[id] = score
		}
	}
	return out, nil
}

func (m *Mock) Post(ctx context.Context, req *PostRequest) error {
	return m.note("Post")
}

func (m *Mock) Comment(ctx context.Context, req *CommentRequest) error {
	return m.note("Comment")
}

func (m *Mock) React(ctx context.Context, userID, postID int64, reaction string, slot int64) error {
	return m.note("React")
}

func (m *Mock) Share(ctx context.Context, userID, postID, slot int64) error {
	return m.note("Share")
}

func (m *Mock) Cast(ctx context.Context, userID, postID int64, vote string, slot int64) error {
	return m.note("Cast")
}

func (m *Mock) Read(ctx context.Context, userID int64, p ReadParams) ([]PostRef, error) {
	if err := m.note("Read"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PostRef(nil), m.Feed...), nil
}

func (m *Mock) Search(ctx context.Context, userID int64) ([]PostRef, error) {
	if err := m.note("Search"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PostRef(nil), m.Feed...), nil
}

func (m *Mock) Mentions(ctx context.Context, userID int64) ([]PostRef, error) {
	if err := m.note("Mentions"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PostRef(nil), m.MentionFeed...), nil
}

func (m *Mock) Thread(ctx context.Context, postID int64, maxPosts int) ([]string, error) {
	if err := m.note("Thread"); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("thread for post %d", postID)}, nil
}

func (m *Mock) NextArticle(ctx context.Context, category string) (*Article, error) {
	if err := m.note("NextArticle"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ArticleStub != nil {
		return m.ArticleStub, nil
	}
	return &Article{Title: "stub article", Category: category}, nil
}

func (m *Mock) Churn(ctx context.Context, userIDs []int64, slot int64) error {
	return m.note("Churn")
}

func (m *Mock) SetInterests(ctx context.Context, interests []string) error {
	return m.note("SetInterests")
}

func (m *Mock) CurrentTime(ctx context.Context) (*TimeState, error) {
	if err := m.note("CurrentTime"); err != nil {
		return nil, err
	}
	return &TimeState{}, nil
}

func (m *Mock) UpdateTime(ctx context.Context, day, slot int64) error {
	return m.note("UpdateTime")
}

func (m *Mock) Reset(ctx context.Context) error {
	return m.note("Reset")
}
