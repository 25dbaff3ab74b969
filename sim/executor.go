// Executes action intents against the content service and the language
// backend. Each handler draws randomness only from the per-intent RNG it is
// handed, so results are identical whether the dispatcher runs intents in
// parallel or sequentially.

package sim

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"sort"

	"github.com/ysocial-sim/ysocial-sim/llm"
	"github.com/ysocial-sim/ysocial-sim/service"
	"github.com/ysocial-sim/ysocial-sim/sim/recsys"
)

// castChoices are the preference options an actor may vote for on a post.
var castChoices = []string{"left", "right", "none"}

// Effects are the actor-state consequences of a completed action. They are
// applied by the orchestration loop after dispatch, never by the worker
// goroutines, so actor mutation stays single-threaded.
type Effects struct {
	// CastDone marks the actor's one cast per day as spent.
	CastDone bool
	// MentionsFound is how many pending mentions a read surfaced.
	MentionsFound int
	// MentionsCleared resets the actor's pending-mention count.
	MentionsCleared bool
	// FollowedID is the actor newly followed, 0 when none.
	FollowedID int64
}

type handlerFunc func(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error)

// Executor runs a single intent end to end: prompt the language backend
// where the action needs generated content, then write through the service.
type Executor struct {
	svc     service.API
	chat    llm.Client
	content recsys.ContentRecommender
	follow  recsys.FollowRecommender

	emotions        []string
	maxThreadLength int

	handlers map[ActionKind]handlerFunc
}

// NewExecutor wires the executor's collaborators and builds the handler
// table. Every selectable ActionKind must have a handler.
func NewExecutor(svc service.API, chat llm.Client, content recsys.ContentRecommender, follow recsys.FollowRecommender, emotions []string, maxThreadLength int) *Executor {
	e := &Executor{
		svc:             svc,
		chat:            chat,
		content:         content,
		follow:          follow,
		emotions:        emotions,
		maxThreadLength: maxThreadLength,
	}
	e.handlers = map[ActionKind]handlerFunc{
		ActionNone:    e.doNone,
		ActionPost:    e.doPost,
		ActionComment: e.doComment,
		ActionRead:    e.doRead,
		ActionReact:   e.doReact,
		ActionShare:   e.doShare,
		ActionReply:   e.doReply,
		ActionSearch:  e.doSearch,
		ActionPublish: e.doPublish,
		ActionFollow:  e.doFollow,
		ActionCast:    e.doCast,
	}
	return e
}

// Execute runs one intent. The RNG must be freshly seeded from the intent's
// own seed; handlers never share random state.
func (e *Executor) Execute(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	h, ok := e.handlers[in.Kind]
	if !ok {
		return Effects{}, fmt.Errorf("no handler for action %s", in.Kind)
	}
	return h(ctx, rng, in)
}

func (e *Executor) doNone(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	return Effects{}, nil
}

func (e *Executor) persona(a *Actor) llm.Persona {
	return llm.Persona{
		Name:              a.Name,
		Age:               a.Age,
		Gender:            a.Gender,
		Nationality:       a.Nationality,
		Language:          a.Language,
		Education:         a.Education,
		Leaning:           a.Leaning,
		Interests:         a.Interests,
		Openness:          a.OE,
		Conscientiousness: a.CO,
		Extraversion:      a.EX,
		Agreeableness:     a.AG,
		Neuroticism:       a.NE,
	}
}

// annotate asks the backend which emotions the generated text expresses.
// Annotation failures degrade to an empty list rather than failing the
// enclosing action.
func (e *Executor) annotate(ctx context.Context, system, text string) []string {
	if len(e.emotions) == 0 || text == "" {
		return nil
	}
	reply, err := e.chat.Chat(ctx, system, llm.EmotionPrompt(text, e.emotions))
	if err != nil {
		return nil
	}
	return llm.ParseEmotions(reply, e.emotions)
}

func (e *Executor) doPost(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	system := llm.RoleplayPrompt(e.persona(in.Actor))
	raw, err := e.chat.Chat(ctx, system, llm.PostPrompt(in.Actor.Interests))
	if err != nil {
		return Effects{}, fmt.Errorf("generating post: %w", err)
	}
	text := llm.CleanText(raw)
	req := &service.PostRequest{
		UserID:   in.Actor.ID,
		Text:     text,
		Emotions: e.annotate(ctx, system, text),
		Hashtags: ExtractHashtags(text),
		Mentions: ExtractMentions(text),
		Slot:     in.Slot,
	}
	if err := e.svc.Post(ctx, req); err != nil {
		return Effects{}, fmt.Errorf("publishing post: %w", err)
	}
	return Effects{}, nil
}

// pickPost fetches the actor's recommended feed and picks one post
// uniformly, excluding the actor's own.
func (e *Executor) pickPost(ctx context.Context, rng *rand.Rand, actorID int64) (*service.PostRef, error) {
	feed, err := e.content.Fetch(ctx, e.svc, actorID)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	candidates := feed[:0:0]
	for _, ref := range feed {
		if ref.AuthorID != actorID {
			candidates = append(candidates, ref)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	pick := candidates[rng.Intn(len(candidates))]
	return &pick, nil
}

func (e *Executor) commentOn(ctx context.Context, rng *rand.Rand, in *Intent, target *service.PostRef) error {
	thread, err := e.svc.Thread(ctx, target.ID, e.maxThreadLength)
	if err != nil {
		return fmt.Errorf("reading thread: %w", err)
	}
	system := llm.RoleplayPrompt(e.persona(in.Actor))
	raw, err := e.chat.Chat(ctx, system, llm.CommentPrompt(thread))
	if err != nil {
		return fmt.Errorf("generating comment: %w", err)
	}
	text := llm.CleanText(raw)
	req := &service.CommentRequest{
		UserID:   in.Actor.ID,
		PostID:   target.ID,
		Text:     text,
		Emotions: e.annotate(ctx, system, text),
		Hashtags: ExtractHashtags(text),
		Mentions: ExtractMentions(text),
		Slot:     in.Slot,
	}
	if err := e.svc.Comment(ctx, req); err != nil {
		return fmt.Errorf("publishing comment: %w", err)
	}
	return nil
}

func (e *Executor) doComment(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	target, err := e.pickPost(ctx, rng, in.Actor.ID)
	if err != nil {
		return Effects{}, err
	}
	if target == nil {
		// empty feed, nothing to comment on
		return Effects{}, nil
	}
	return Effects{}, e.commentOn(ctx, rng, in, target)
}

func (e *Executor) doRead(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	if _, err := e.content.Fetch(ctx, e.svc, in.Actor.ID); err != nil {
		return Effects{}, fmt.Errorf("reading feed: %w", err)
	}
	mentions, err := e.svc.Mentions(ctx, in.Actor.ID)
	if err != nil {
		return Effects{}, fmt.Errorf("checking mentions: %w", err)
	}
	return Effects{MentionsFound: len(mentions)}, nil
}

func (e *Executor) doReact(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	target, err := e.pickPost(ctx, rng, in.Actor.ID)
	if err != nil {
		return Effects{}, err
	}
	if target == nil {
		return Effects{}, nil
	}
	thread, err := e.svc.Thread(ctx, target.ID, 1)
	if err != nil {
		return Effects{}, fmt.Errorf("reading post: %w", err)
	}
	post := ""
	if len(thread) > 0 {
		post = thread[len(thread)-1]
	}
	system := llm.RoleplayPrompt(e.persona(in.Actor))
	reply, err := e.chat.Chat(ctx, system, llm.ReactionPrompt(post))
	if err != nil {
		return Effects{}, fmt.Errorf("judging reaction: %w", err)
	}
	reaction := llm.ParseReaction(reply)
	if err := e.svc.React(ctx, in.Actor.ID, target.ID, reaction, in.Slot); err != nil {
		return Effects{}, fmt.Errorf("recording reaction: %w", err)
	}
	return Effects{}, nil
}

func (e *Executor) doShare(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	feed, err := e.svc.Read(ctx, in.Actor.ID, service.ReadParams{
		Mode:         e.content.Name(),
		ArticlesOnly: true,
		Limit:        10,
	})
	if err != nil {
		return Effects{}, fmt.Errorf("fetching article feed: %w", err)
	}
	if len(feed) == 0 {
		return Effects{}, nil
	}
	target := feed[rng.Intn(len(feed))]
	thread, err := e.svc.Thread(ctx, target.ID, 1)
	if err != nil {
		return Effects{}, fmt.Errorf("reading post: %w", err)
	}
	post := ""
	if len(thread) > 0 {
		post = thread[len(thread)-1]
	}
	// the model decides whether the post is worth amplifying
	system := llm.RoleplayPrompt(e.persona(in.Actor))
	reply, err := e.chat.Chat(ctx, system, llm.ReactionPrompt(post))
	if err != nil {
		return Effects{}, fmt.Errorf("judging share: %w", err)
	}
	if llm.ParseReaction(reply) != "like" {
		return Effects{}, nil
	}
	if err := e.svc.Share(ctx, in.Actor.ID, target.ID, in.Slot); err != nil {
		return Effects{}, fmt.Errorf("sharing post: %w", err)
	}
	return Effects{}, nil
}

func (e *Executor) doReply(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	mentions, err := e.svc.Mentions(ctx, in.Actor.ID)
	if err != nil {
		return Effects{}, fmt.Errorf("fetching mentions: %w", err)
	}
	if len(mentions) == 0 {
		return Effects{MentionsCleared: true}, nil
	}
	target := mentions[rng.Intn(len(mentions))]
	if err := e.commentOn(ctx, rng, in, &target); err != nil {
		return Effects{}, err
	}
	return Effects{MentionsCleared: true}, nil
}

func (e *Executor) doSearch(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	if _, err := e.svc.Search(ctx, in.Actor.ID); err != nil {
		return Effects{}, fmt.Errorf("searching posts: %w", err)
	}
	return Effects{}, nil
}

func (e *Executor) doPublish(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	category := ""
	if len(in.Actor.Interests) > 0 {
		category = in.Actor.Interests[rng.Intn(len(in.Actor.Interests))]
	}
	article, err := e.svc.NextArticle(ctx, category)
	if err != nil {
		return Effects{}, fmt.Errorf("fetching article: %w", err)
	}
	system := llm.RoleplayPrompt(e.persona(in.Actor))
	raw, err := e.chat.Chat(ctx, system, llm.SharePrompt(article.Title, article.Summary))
	if err != nil {
		return Effects{}, fmt.Errorf("generating headline take: %w", err)
	}
	text := llm.CleanText(raw)
	req := &service.PostRequest{
		UserID:   in.Actor.ID,
		Text:     text,
		Emotions: e.annotate(ctx, system, text),
		Hashtags: ExtractHashtags(text),
		Slot:     in.Slot,
		Article:  article,
	}
	if err := e.svc.Post(ctx, req); err != nil {
		return Effects{}, fmt.Errorf("publishing article: %w", err)
	}
	return Effects{}, nil
}

func (e *Executor) doFollow(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	scores, err := e.follow.Suggest(ctx, e.svc, in.Actor.ID)
	if err != nil {
		return Effects{}, fmt.Errorf("fetching follow suggestions: %w", err)
	}
	target := weightedPick(scores, rng)
	if target == 0 {
		return Effects{}, nil
	}
	if err := e.svc.Follow(ctx, in.Actor.ID, target, in.Slot); err != nil {
		return Effects{}, fmt.Errorf("following user %d: %w", target, err)
	}
	return Effects{FollowedID: target}, nil
}

func (e *Executor) doCast(ctx context.Context, rng *rand.Rand, in *Intent) (Effects, error) {
	target, err := e.pickPost(ctx, rng, in.Actor.ID)
	if err != nil {
		return Effects{}, err
	}
	if target == nil {
		return Effects{}, nil
	}
	thread, err := e.svc.Thread(ctx, target.ID, 1)
	if err != nil {
		return Effects{}, fmt.Errorf("reading post: %w", err)
	}
	post := ""
	if len(thread) > 0 {
		post = thread[len(thread)-1]
	}
	system := llm.RoleplayPrompt(e.persona(in.Actor))
	reply, err := e.chat.Chat(ctx, system, llm.VotePrompt(post, castChoices))
	if err != nil {
		return Effects{}, fmt.Errorf("judging preference: %w", err)
	}
	choice := llm.ParseChoice(reply, castChoices)
	if choice == "" {
		choice = "none"
	}
	if err := e.svc.Cast(ctx, in.Actor.ID, target.ID, choice, in.Slot); err != nil {
		return Effects{}, fmt.Errorf("recording preference: %w", err)
	}
	return Effects{CastDone: true}, nil
}

// weightedPick draws one key from a score map, probability proportional to
// score. Keys are sorted first so the draw is deterministic for a fixed RNG.
func weightedPick(scores map[int64]float64, rng *rand.Rand) int64 {
	if len(scores) == 0 {
		return 0
	}
	ids := make([]int64, 0, len(scores))
	total := 0.0
	for id, s := range scores {
		if s > 0 {
			ids = append(ids, id)
			total += s
		}
	}
	if len(ids) == 0 || total <= 0 {
		return 0
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	x := rng.Float64() * total
	for _, id := range ids {
		x -= scores[id]
		if x < 0 {
			return id
		}
	}
	return ids[len(ids)-1]
}

var (
	hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	mentionRe = regexp.MustCompile(`@[\p{L}\p{N}_.]+`)
)

// ExtractHashtags returns the #tags appearing in text, in order, duplicates
// removed, without the leading marker.
func ExtractHashtags(text string) []string {
	return extractMarked(hashtagRe, text)
}

// ExtractMentions returns the @handles appearing in text, in order,
// duplicates removed, without the leading marker.
func ExtractMentions(text string) []string {
	return extractMarked(mentionRe, text)
}

func extractMarked(re *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		token := m[1:]
		if !seen[token] {
			seen[token] = true
			out = append(out, token)
		}
	}
	return out
}
