// Package service is the client for the content/graph web service: the
// external system that stores users, posts, follow edges and recommendation
// results. All simulator actions ultimately write through this service.
package service

// User is the service-side record of a registered actor.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	JoinedOn int64  `json:"joined_on"`
}

// RegisterRequest creates a user or page account.
type RegisterRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	UserType     string   `json:"user_type"`
	Age          int      `json:"age"`
	Leaning      string   `json:"leaning"`
	Interests    []string `json:"interests"`
	OE           float64  `json:"oe"`
	CO           float64  `json:"co"`
	EX           float64  `json:"ex"`
	AG           float64  `json:"ag"`
	NE           float64  `json:"ne"`
	Language     string   `json:"language"`
	Owner        string   `json:"owner"`
	Education    string   `json:"education_level"`
	RoundActions int      `json:"round_actions"`
	Gender       string   `json:"gender"`
	Nationality  string   `json:"nationality"`
	JoinedOn     int64    `json:"joined_on"`
}

// PostRequest publishes an original post.
type PostRequest struct {
	UserID   int64    `json:"user_id"`
	Text     string   `json:"tweet"`
	Emotions []string `json:"emotions"`
	Hashtags []string `json:"hashtags"`
	Mentions []string `json:"mentions"`
	Slot     int64    `json:"tid"`
	// Article fields, set only for page news publishing.
	Article *Article `json:"article,omitempty"`
}

// CommentRequest attaches a comment to a post.
type CommentRequest struct {
	UserID   int64    `json:"user_id"`
	PostID   int64    `json:"post_id"`
	Text     string   `json:"text"`
	Emotions []string `json:"emotions"`
	Hashtags []string `json:"hashtags"`
	Mentions []string `json:"mentions"`
	Slot     int64    `json:"tid"`
}

// Article is a news item a page turns into a post.
type Article struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Link      string `json:"link"`
	Publisher string `json:"publisher"`
	Category  string `json:"category"`
	Leaning   string `json:"leaning"`
}

// PostRef is a lightweight handle on a service-side post.
type PostRef struct {
	ID       int64 `json:"id"`
	AuthorID int64 `json:"user_id"`
}

// ReadParams parameterizes feed reads; Mode names the content
// recommendation strategy evaluated server-side.
type ReadParams struct {
	Mode             string  `json:"mode"`
	Limit            int     `json:"limit"`
	ArticlesOnly     bool    `json:"articles_only"`
	FollowerRatio    float64 `json:"follower_ratio"`
	VisibilityRounds int     `json:"visibility_rounds"`
}

// FollowSuggestParams parameterizes follow suggestions; Mode names the
// graph heuristic evaluated server-side.
type FollowSuggestParams struct {
	Mode        string  `json:"mode"`
	NNeighbors  int     `json:"n_neighbors"`
	LeaningBias float64 `json:"leaning_biased"`
}

// TimeState is the service's notion of the simulation clock.
type TimeState struct {
	ID   int64 `json:"id"`
	Day  int64 `json:"day"`
	Slot int64 `json:"round"`
}
