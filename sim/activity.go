// Hourly activity sampling: decides which live actors act in a slot.
// Every live actor is an independent Bernoulli trial against the hour's
// configured activity fraction, optionally scaled by the actor's personal
// variance. When a daily round-actions bound is configured the sampler also
// tracks per-actor per-day counters and excludes exhausted actors.

package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ActivitySampler draws the active subset for each slot.
type ActivitySampler struct {
	table        map[int64]float64
	roundActions int

	// per-actor action counters for the current day; reset at rollover
	counts map[int64]int

	// hours already warned about, so a sparse table logs once per hour
	warned map[int64]bool
}

// NewActivitySampler creates a sampler over the given hourly table.
// roundActions <= 0 disables the per-day bound.
func NewActivitySampler(table map[int64]float64, roundActions int) *ActivitySampler {
	return &ActivitySampler{
		table:        table,
		roundActions: roundActions,
		counts:       make(map[int64]int),
		warned:       make(map[int64]bool),
	}
}

// SampleSlot returns the subset of live actors active this slot, in input
// order. Trials are independent per actor per slot; no state is carried
// across slots other than the daily round-actions counters.
func (s *ActivitySampler) SampleSlot(live []*Actor, hour int64, rng *rand.Rand) []*Actor {
	base, ok := s.table[hour]
	if !ok {
		// An absent hour means nobody is ever sampled then. Deliberate
		// default, but loud: a sparse table is more often a typo.
		if !s.warned[hour] {
			logrus.Warnf("hourly_activity has no entry for hour %d; sampling no actors", hour)
			s.warned[hour] = true
		}
		return nil
	}

	var active []*Actor
	for _, a := range live {
		if s.roundActions > 0 && s.counts[a.ID] >= s.roundActions {
			continue // actor already hit its daily action bound
		}
		p := base
		if a.ActivityVariance > 0 {
			p *= a.ActivityVariance
			if p > 1 {
				p = 1
			}
		}
		if p <= 0 {
			continue
		}
		if rng.Float64() < p {
			active = append(active, a)
		}
	}
	return active
}

// NoteAction records that an actor performed an action, consuming one unit
// of its daily budget. No-op when the bound is disabled.
func (s *ActivitySampler) NoteAction(actorID int64) {
	if s.roundActions <= 0 {
		return
	}
	s.counts[actorID]++
}

// Remaining returns how many actions the actor may still perform today,
// or -1 when the bound is disabled.
func (s *ActivitySampler) Remaining(actorID int64) int {
	if s.roundActions <= 0 {
		return -1
	}
	left := s.roundActions - s.counts[actorID]
	if left < 0 {
		return 0
	}
	return left
}

// ResetDay clears the daily counters. Called at each day rollover.
func (s *ActivitySampler) ResetDay() {
	s.counts = make(map[int64]int)
}
