// Action selection: for each active actor, pick the one action it attempts
// this slot by weighted random choice over the actor-kind-eligible subset
// of the configured likelihood table, re-normalized over eligible actions.
// Selection is deterministic under a seeded RNG.

package sim

import (
	"math/rand"
	"sort"
)

// ActionSelector assigns at most one Intent per active actor per slot,
// which is what guarantees that no actor ever has two intents executing
// concurrently.
type ActionSelector struct {
	likelihood map[ActionKind]float64
}

// NewActionSelector builds a selector over the configured weight table.
// Weights need not sum to 1; kinds missing from the table are never
// selected.
func NewActionSelector(likelihood map[ActionKind]float64) *ActionSelector {
	return &ActionSelector{likelihood: likelihood}
}

// eligible returns the actions this actor can attempt right now, applying
// the static actor-kind filter plus the contextual rules:
//   - cast at most once per actor per day;
//   - reply only with pending mentions.
// The result is sorted for deterministic iteration (map order is not).
func (s *ActionSelector) eligible(a *Actor, day int64) []ActionKind {
	var kinds []ActionKind
	for k, w := range s.likelihood {
		if w <= 0 || k == ActionNone {
			continue
		}
		if !a.Eligible(k) {
			continue
		}
		switch k {
		case ActionCast:
			if a.LastCastDay == day {
				continue
			}
		case ActionReply:
			if a.PendingMentions == 0 {
				continue
			}
		}
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Select picks the action an active actor attempts this slot. When no
// action is eligible the actor no-ops (Kind == ActionNone); that is a
// normal outcome, not an error. The returned intent carries a derived seed
// for execution-side randomness.
func (s *ActionSelector) Select(a *Actor, slot, day int64, rng *rand.Rand) *Intent {
	intent := &Intent{
		Actor: a,
		Kind:  ActionNone,
		Slot:  slot,
		Day:   day,
		Seed:  rng.Int63(),
	}

	kinds := s.eligible(a, day)
	if len(kinds) == 0 {
		return intent
	}

	total := 0.0
	for _, k := range kinds {
		total += s.likelihood[k]
	}
	// re-normalized weighted draw over the eligible subset
	x := rng.Float64() * total
	for _, k := range kinds {
		x -= s.likelihood[k]
		if x < 0 {
			intent.Kind = k
			break
		}
	}
	if intent.Kind == ActionNone {
		// floating-point edge: attribute the draw to the last candidate
		intent.Kind = kinds[len(kinds)-1]
	}
	return intent
}

// SelectBatch assigns one intent to every active actor, preserving actor
// order. No-op intents are included so the caller can account for them.
func (s *ActionSelector) SelectBatch(active []*Actor, slot, day int64, rng *rand.Rand) []*Intent {
	intents := make([]*Intent, 0, len(active))
	for _, a := range active {
		intents = append(intents, s.Select(a, slot, day, rng))
	}
	return intents
}
