// Defines the actor record and the live population container. An actor's
// identity is immutable; its mutable state fields are written only during
// that actor's own action execution or by the PopulationManager at day
// boundaries, never from two intents in the same slot.

package sim

import "fmt"

// ActorKind distinguishes ordinary users from content-publishing pages.
type ActorKind string

const (
	ActorUser ActorKind = "user"
	ActorPage ActorKind = "page"
)

// LifecycleState tracks whether an actor is still part of the live population.
type LifecycleState string

const (
	StateActive  LifecycleState = "active"
	StateChurned LifecycleState = "churned"
)

// Actor models a single autonomous participant.
type Actor struct {
	ID    int64 // unique, never reused after churn
	Name  string
	Email string
	Kind  ActorKind
	State LifecycleState

	// Profile attributes, generated at recruitment and fixed thereafter.
	Age        int
	Gender     string
	Nationality string
	Language   string
	Education  string
	Leaning    string
	Interests  []string
	// Big Five personality traits in [0, 1].
	OE, CO, EX, AG, NE float64

	JoinedDay int64

	// RoundActions bounds how many actions this actor may perform per day
	// (0 = unbounded).
	RoundActions int

	// ActivityVariance is a multiplier applied to the hourly activity
	// fraction for this actor (1.0 = exactly the global table).
	ActivityVariance float64

	// Mutable state, owned by the actor's own action execution.
	LastActiveSlot  int64
	LastCastDay     int64 // -1 until the first cast
	PendingMentions int
}

// RequiresLLM reports whether the actor's eligible action set contains any
// heavy action, i.e. whether running it can ever touch the language backend.
func (a *Actor) RequiresLLM(likelihood map[ActionKind]float64) bool {
	for k, w := range likelihood {
		if w <= 0 {
			continue
		}
		if !a.Eligible(k) {
			continue
		}
		if k.Resource() == ResourceHeavy {
			return true
		}
	}
	return false
}

// Eligible reports whether the action kind is ever available to this actor
// kind. Per-slot contextual rules (cast-once-per-day, pending mentions) are
// applied by the ActionSelector on top of this static filter.
func (a *Actor) Eligible(k ActionKind) bool {
	if a.Kind == ActorPage {
		// pages only publish and re-share; they never browse, follow or vote
		return k == ActionPublish || k == ActionShare
	}
	return k != ActionPublish
}

func (a *Actor) String() string {
	return fmt.Sprintf("%s(%d, %s)", a.Name, a.ID, a.Kind)
}

// Population holds all actors ever created, live and churned, preserving
// insertion order so that iteration is deterministic for a fixed seed.
type Population struct {
	actors map[int64]*Actor
	order  []int64
	nextID int64
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	return &Population{
		actors: make(map[int64]*Actor),
		nextID: 1,
	}
}

// NextID reserves and returns a fresh actor id. Ids are never reused, even
// after the original holder churned.
func (p *Population) NextID() int64 {
	id := p.nextID
	p.nextID++
	return id
}

// Add inserts an actor. The actor's ID must have been obtained via NextID
// (or be unique when loading a snapshot).
func (p *Population) Add(a *Actor) error {
	if _, ok := p.actors[a.ID]; ok {
		return fmt.Errorf("duplicate actor id %d", a.ID)
	}
	p.actors[a.ID] = a
	p.order = append(p.order, a.ID)
	if a.ID >= p.nextID {
		p.nextID = a.ID + 1
	}
	return nil
}

// Get returns the actor with the given id, or nil.
func (p *Population) Get(id int64) *Actor {
	return p.actors[id]
}

// Live returns a fresh snapshot slice of active actors in insertion order.
// The orchestration loop snapshots before each slot so that day-boundary
// churn/recruitment can never be observed mid-slot.
func (p *Population) Live() []*Actor {
	live := make([]*Actor, 0, len(p.order))
	for _, id := range p.order {
		if a := p.actors[id]; a.State == StateActive {
			live = append(live, a)
		}
	}
	return live
}

// All returns every actor in insertion order, churned ones included.
func (p *Population) All() []*Actor {
	out := make([]*Actor, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.actors[id])
	}
	return out
}

// LiveCount returns the number of active actors.
func (p *Population) LiveCount() int {
	n := 0
	for _, id := range p.order {
		if p.actors[id].State == StateActive {
			n++
		}
	}
	return n
}

// Churn marks the given actors churned. Unknown or already-churned ids are
// ignored. Returns the ids actually transitioned.
func (p *Population) Churn(ids []int64) []int64 {
	var churned []int64
	for _, id := range ids {
		a := p.actors[id]
		if a == nil || a.State != StateActive {
			continue
		}
		a.State = StateChurned
		churned = append(churned, id)
	}
	return churned
}
