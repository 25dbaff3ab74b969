package sim

import (
	"math"
	"math/rand"
	"testing"
)

func makeActors(n int, variance float64) []*Actor {
	actors := make([]*Actor, n)
	for i := range actors {
		actors[i] = &Actor{
			ID:               int64(i + 1),
			Kind:             ActorUser,
			State:            StateActive,
			ActivityVariance: variance,
			LastCastDay:      -1,
		}
	}
	return actors
}

func TestActivitySampler_FullHourSamplesEveryone(t *testing.T) {
	// GIVEN a table where hour 0 has fraction 1.0 and the rest 0.0
	table := map[int64]float64{0: 1.0, 1: 0.0, 2: 0.0, 3: 0.0}
	s := NewActivitySampler(table, 0)
	live := makeActors(5, 1.0)
	rng := rand.New(rand.NewSource(1))

	// THEN hour 0 samples all five actors
	if got := len(s.SampleSlot(live, 0, rng)); got != 5 {
		t.Errorf("hour 0: sampled %d actors, want 5", got)
	}
	// AND hours 1..3 sample nobody
	for hour := int64(1); hour <= 3; hour++ {
		if got := len(s.SampleSlot(live, hour, rng)); got != 0 {
			t.Errorf("hour %d: sampled %d actors, want 0", hour, got)
		}
	}
}

func TestActivitySampler_MissingHourSamplesNobody(t *testing.T) {
	s := NewActivitySampler(map[int64]float64{0: 1.0}, 0)
	live := makeActors(10, 1.0)
	rng := rand.New(rand.NewSource(1))
	if got := len(s.SampleSlot(live, 5, rng)); got != 0 {
		t.Errorf("absent hour: sampled %d actors, want 0", got)
	}
}

func TestActivitySampler_RoundActionsBound(t *testing.T) {
	// GIVEN a bound of 2 actions per day
	s := NewActivitySampler(map[int64]float64{0: 1.0}, 2)
	live := makeActors(1, 1.0)

	// WHEN the actor performs two actions
	s.NoteAction(1)
	s.NoteAction(1)

	// THEN the actor is excluded until the day resets
	rng := rand.New(rand.NewSource(1))
	if got := len(s.SampleSlot(live, 0, rng)); got != 0 {
		t.Errorf("exhausted actor still sampled (%d)", got)
	}
	if left := s.Remaining(1); left != 0 {
		t.Errorf("Remaining(1) = %d, want 0", left)
	}

	s.ResetDay()
	if got := len(s.SampleSlot(live, 0, rng)); got != 1 {
		t.Errorf("actor not sampled after day reset (%d)", got)
	}
}

func TestActivitySampler_VarianceScalesProbability(t *testing.T) {
	// An actor with zero variance multiplier is never sampled.
	s := NewActivitySampler(map[int64]float64{0: 1.0}, 0)
	live := makeActors(3, 0.0)
	rng := rand.New(rand.NewSource(1))
	if got := len(s.SampleSlot(live, 0, rng)); got != 0 {
		t.Errorf("zero-variance actors sampled (%d)", got)
	}
}

func TestActivitySampler_FractionConverges(t *testing.T) {
	// Statistical: with p = 0.3 over 2000 actors the sampled share should
	// land near 0.3. Fixed seed keeps this reproducible.
	s := NewActivitySampler(map[int64]float64{0: 0.3}, 0)
	live := makeActors(2000, 1.0)
	rng := rand.New(rand.NewSource(42))

	got := float64(len(s.SampleSlot(live, 0, rng))) / float64(len(live))
	if math.Abs(got-0.3) > 0.05 {
		t.Errorf("sampled share %.3f, want within 0.05 of 0.3", got)
	}
}

func TestActivitySampler_DeterministicForFixedSeed(t *testing.T) {
	table := map[int64]float64{0: 0.5}
	live := makeActors(100, 1.0)

	ids := func() []int64 {
		s := NewActivitySampler(table, 0)
		rng := rand.New(rand.NewSource(7))
		var out []int64
		for _, a := range s.SampleSlot(live, 0, rng) {
			out = append(out, a.ID)
		}
		return out
	}

	first, second := ids(), ids()
	if len(first) != len(second) {
		t.Fatalf("replay sampled %d vs %d actors", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("replay diverged at index %d: %d vs %d", i, first[i], second[i])
		}
	}
}
