// Generates actor profiles from the configured attribute pools. Profile
// draws come from the dedicated profile RNG partition, so adding or removing
// actors elsewhere never shifts the attributes recruits are born with.

package sim

import (
	"fmt"
	"math/rand"
)

// maxInterestsPerActor bounds how many interest topics one actor draws.
const maxInterestsPerActor = 3

// ProfileFactory mints actors from the attribute pools in AgentsConfig.
type ProfileFactory struct {
	cfg AgentsConfig
	rng *rand.Rand
}

// NewProfileFactory builds a factory over the given pools. The RNG should
// come from the profile subsystem partition.
func NewProfileFactory(cfg AgentsConfig, rng *rand.Rand) *ProfileFactory {
	return &ProfileFactory{cfg: cfg, rng: rng}
}

func (f *ProfileFactory) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[f.rng.Intn(len(pool))]
}

func (f *ProfileFactory) pickInterests() []string {
	pool := f.cfg.Interests
	if len(pool) == 0 {
		return nil
	}
	n := 1 + f.rng.Intn(maxInterestsPerActor)
	if n > len(pool) {
		n = len(pool)
	}
	perm := f.rng.Perm(len(pool))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

// variance draws this actor's personal multiplier on the hourly activity
// table, centered on 1.0 and spread by the configured activity_variance.
func (f *ProfileFactory) variance() float64 {
	spread := f.cfg.ActivityVariance
	if spread <= 0 {
		return 1.0
	}
	v := 1.0 + (f.rng.Float64()*2-1)*spread
	if v < 0 {
		v = 0
	}
	return v
}

// NewUser creates a fresh user actor with the given reserved id.
func (f *ProfileFactory) NewUser(id, joinedDay int64) *Actor {
	name := fmt.Sprintf("user_%04d", id)
	age := f.cfg.Age.Min
	if span := f.cfg.Age.Max - f.cfg.Age.Min; span > 0 {
		age += f.rng.Intn(span + 1)
	}
	return &Actor{
		ID:               id,
		Name:             name,
		Email:            name + "@ysocial.local",
		Kind:             ActorUser,
		State:            StateActive,
		Age:              age,
		Gender:           f.pick(f.cfg.Genders),
		Nationality:      f.pick(f.cfg.Nationalities),
		Language:         f.pick(f.cfg.Languages),
		Education:        f.pick(f.cfg.EducationLevels),
		Leaning:          f.pick(f.cfg.Leanings),
		Interests:        f.pickInterests(),
		OE:               f.rng.Float64(),
		CO:               f.rng.Float64(),
		EX:               f.rng.Float64(),
		AG:               f.rng.Float64(),
		NE:               f.rng.Float64(),
		JoinedDay:        joinedDay,
		RoundActions:     f.cfg.RoundActions,
		ActivityVariance: f.variance(),
		LastCastDay:      -1,
	}
}

// NewPage creates a publishing page actor. Pages get one topic and neutral
// personality traits; they never vote, follow or reply.
func (f *ProfileFactory) NewPage(id, joinedDay int64) *Actor {
	name := fmt.Sprintf("page_%04d", id)
	var interests []string
	if topic := f.pick(f.cfg.Interests); topic != "" {
		interests = []string{topic}
	}
	return &Actor{
		ID:               id,
		Name:             name,
		Email:            name + "@ysocial.local",
		Kind:             ActorPage,
		State:            StateActive,
		Language:         f.pick(f.cfg.Languages),
		Leaning:          f.pick(f.cfg.Leanings),
		Interests:        interests,
		OE:               0.5,
		CO:               0.5,
		EX:               0.5,
		AG:               0.5,
		NE:               0.5,
		JoinedDay:        joinedDay,
		RoundActions:     f.cfg.RoundActions,
		ActivityVariance: 1.0,
		LastCastDay:      -1,
	}
}
