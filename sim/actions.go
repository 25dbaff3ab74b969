// Defines the closed set of action kinds an actor may perform in a slot,
// together with their resource classification. Action kinds are a fixed
// enum resolved at compile time; configuration refers to them by name.

package sim

import (
	"fmt"
	"strings"
)

// ActionKind identifies one of the simulator's actor actions.
type ActionKind int

const (
	// ActionNone is the explicit no-op: the actor was active but elected
	// (or was only eligible) to do nothing this slot.
	ActionNone ActionKind = iota
	// ActionPost writes an original post (LLM-generated text).
	ActionPost
	// ActionComment writes a comment on a recommended post.
	ActionComment
	// ActionRead fetches recommended posts and updates reading state only.
	ActionRead
	// ActionReact reads a recommended post and emits an LLM-judged reaction.
	ActionReact
	// ActionShare re-posts a recommended article post with a short take.
	ActionShare
	// ActionReply comments on a post the actor was mentioned in.
	ActionReply
	// ActionSearch queries the content service for posts by interest.
	ActionSearch
	// ActionPublish posts a news article; only page actors publish.
	ActionPublish
	// ActionFollow creates a follow edge towards a recommended actor.
	ActionFollow
	// ActionCast votes on a recommended post; at most once per actor per day.
	ActionCast
)

// actionNames is the canonical lowercase spelling used in configuration
// and telemetry. Indexed by ActionKind.
var actionNames = [...]string{
	ActionNone:    "none",
	ActionPost:    "post",
	ActionComment: "comment",
	ActionRead:    "read",
	ActionReact:   "react",
	ActionShare:   "share",
	ActionReply:   "reply",
	ActionSearch:  "search",
	ActionPublish: "publish",
	ActionFollow:  "follow",
	ActionCast:    "cast",
}

func (k ActionKind) String() string {
	if int(k) < 0 || int(k) >= len(actionNames) {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionNames[k]
}

// ParseActionKind resolves a configuration name (case-insensitive) to its
// ActionKind. Unknown names are an error so that a misspelled likelihood
// table fails at startup rather than silently never selecting.
func ParseActionKind(name string) (ActionKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, s := range actionNames {
		if s == n {
			return ActionKind(k), nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action kind %q", name)
}

// ResourceClass partitions actions by what executing them costs.
type ResourceClass int

const (
	// ResourceLight actions call only the content/graph service.
	ResourceLight ResourceClass = iota
	// ResourceHeavy actions require at least one generative-backend call.
	ResourceHeavy
)

// Resource returns the resource class of the action kind. The partition is
// fixed: anything whose execution path reaches the language backend is heavy.
func (k ActionKind) Resource() ResourceClass {
	switch k {
	case ActionPost, ActionComment, ActionReact, ActionShare, ActionReply, ActionPublish, ActionCast:
		return ResourceHeavy
	default:
		return ResourceLight
	}
}

// Retryable reports whether a failed execution may be re-attempted within
// the same slot. Only idempotent light actions qualify; heavy actions are
// never retried in-slot to bound backend load.
func (k ActionKind) Retryable() bool {
	switch k {
	case ActionRead, ActionSearch, ActionFollow:
		return true
	default:
		return false
	}
}

// Intent is one actor's selected action for one slot. Intents are ephemeral:
// produced by the ActionSelector, consumed by the Dispatcher, and not kept
// beyond the slot.
type Intent struct {
	Actor *Actor
	Kind  ActionKind
	Slot  int64
	Day   int64

	// Seed drives all execution-side randomness (e.g. picking a target from
	// candidates) so that results do not depend on worker interleaving.
	Seed int64
}
