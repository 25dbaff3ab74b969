// Package recsys selects the recommendation strategies the platform ranks
// feeds and follow suggestions with. The ranking itself runs server side;
// the gateways here translate a strategy name into request parameters.
package recsys

import (
	"context"
	"fmt"

	"github.com/ysocial-sim/ysocial-sim/service"
)

// Content feed strategies.
const (
	ContentReverseChrono                    = "ReverseChrono"
	ContentReverseChronoPopularity          = "ReverseChronoPopularity"
	ContentReverseChronoFollowers           = "ReverseChronoFollowers"
	ContentReverseChronoFollowersPopularity = "ReverseChronoFollowersPopularity"
)

// Follow suggestion strategies.
const (
	FollowPreferentialAttachment = "PreferentialAttachment"
	FollowAdamicAdar             = "AdamicAdar"
	FollowJaccard                = "Jaccard"
	FollowCommonNeighbors        = "CommonNeighbors"
	FollowRandom                 = "Random"
)

// ContentOptions tunes feed requests independently of the strategy.
type ContentOptions struct {
	// Limit caps how many posts a single read pulls.
	Limit int
	// FollowerRatio is the share of the feed drawn from followed users,
	// for the follower-aware strategies.
	FollowerRatio float64
	// VisibilityRounds is how many slots back a post stays rankable.
	VisibilityRounds int
	// ArticlesOnly restricts the feed to news posts.
	ArticlesOnly bool
}

// ContentRecommender fetches a ranked feed for one user.
type ContentRecommender interface {
	Name() string
	Fetch(ctx context.Context, api service.API, userID int64) ([]service.PostRef, error)
}

// FollowOptions tunes follow suggestion requests.
type FollowOptions struct {
	// NNeighbors is how many candidates the server returns.
	NNeighbors int
	// LeaningBias skews candidate scores toward the user's leaning.
	LeaningBias float64
}

// FollowRecommender fetches scored follow candidates for one user.
type FollowRecommender interface {
	Name() string
	Suggest(ctx context.Context, api service.API, userID int64) (map[int64]float64, error)
}

// NewContentRecommender resolves a strategy name to a gateway. Unknown
// names are an error so config typos fail at startup.
func NewContentRecommender(name string, opts ContentOptions) (ContentRecommender, error) {
	switch name {
	case ContentReverseChrono, ContentReverseChronoPopularity,
		ContentReverseChronoFollowers, ContentReverseChronoFollowersPopularity:
		return &contentGateway{name: name, opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown content recommender %q", name)
	}
}

// NewFollowRecommender resolves a follow strategy name to a gateway.
func NewFollowRecommender(name string, opts FollowOptions) (FollowRecommender, error) {
	switch name {
	case FollowPreferentialAttachment, FollowAdamicAdar, FollowJaccard,
		FollowCommonNeighbors, FollowRandom:
		return &followGateway{name: name, opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown follow recommender %q", name)
	}
}

type contentGateway struct {
	name string
	opts ContentOptions
}

func (g *contentGateway) Name() string { return g.name }

func (g *contentGateway) Fetch(ctx context.Context, api service.API, userID int64) ([]service.PostRef, error) {
	params := service.ReadParams{
		Mode:             g.name,
		Limit:            g.opts.Limit,
		ArticlesOnly:     g.opts.ArticlesOnly,
		VisibilityRounds: g.opts.VisibilityRounds,
	}
	// Only the follower-aware modes blend in the follow graph.
	if g.name == ContentReverseChronoFollowers || g.name == ContentReverseChronoFollowersPopularity {
		params.FollowerRatio = g.opts.FollowerRatio
	}
	return api.Read(ctx, userID, params)
}

type followGateway struct {
	name string
	opts FollowOptions
}

func (g *followGateway) Name() string { return g.name }

func (g *followGateway) Suggest(ctx context.Context, api service.API, userID int64) (map[int64]float64, error) {
	params := service.FollowSuggestParams{
		Mode:       g.name,
		NNeighbors: g.opts.NNeighbors,
	}
	if g.name != FollowRandom {
		params.LeaningBias = g.opts.LeaningBias
	}
	return api.FollowSuggestions(ctx, userID, params)
}
