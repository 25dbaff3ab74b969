// Day-boundary population dynamics: follow evaluation, churn and
// recruitment, run in that fixed order after the last slot of each day.
// All draws come from the population RNG partition and iterate actors in
// sorted id order, so the dynamics replay exactly for a fixed seed.

package sim

import (
	"context"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ysocial-sim/ysocial-sim/service"
	"github.com/ysocial-sim/ysocial-sim/sim/recsys"
)

// DayReport summarizes one day-boundary pass.
type DayReport struct {
	Follows   int
	Churned   int
	Recruited int
}

// PopulationManager owns churn, recruitment and daily follow evaluation.
// The simulator is authoritative for actor ids; the service is notified of
// lifecycle changes but never chooses who leaves.
type PopulationManager struct {
	pop     *Population
	graph   *FollowGraph
	svc     service.API
	follow  recsys.FollowRecommender
	factory *ProfileFactory
	rng     *rand.Rand
	log     *logrus.Entry

	churn       RateSpec
	recruitment RateSpec
	pFollow     float64
}

// NewPopulationManager wires the manager. rng must come from the population
// subsystem partition.
func NewPopulationManager(pop *Population, graph *FollowGraph, svc service.API, follow recsys.FollowRecommender, factory *ProfileFactory, cfg SimulationConfig, pFollow float64, rng *rand.Rand, log *logrus.Entry) *PopulationManager {
	return &PopulationManager{
		pop:         pop,
		graph:       graph,
		svc:         svc,
		follow:      follow,
		factory:     factory,
		rng:         rng,
		log:         log,
		churn:       cfg.Churn,
		recruitment: cfg.Recruitment,
		pFollow:     pFollow,
	}
}

func registerRequest(a *Actor) *service.RegisterRequest {
	return &service.RegisterRequest{
		Name:         a.Name,
		Email:        a.Email,
		Password:     a.Name,
		UserType:     string(a.Kind),
		Age:          a.Age,
		Leaning:      a.Leaning,
		Interests:    a.Interests,
		OE:           a.OE,
		CO:           a.CO,
		EX:           a.EX,
		AG:           a.AG,
		NE:           a.NE,
		Language:     a.Language,
		Education:    a.Education,
		RoundActions: a.RoundActions,
		Gender:       a.Gender,
		Nationality:  a.Nationality,
		JoinedOn:     a.JoinedDay,
	}
}

// register adds the actor locally and announces it to the service. A
// registration failure is fatal for the actor: it never joins the
// population half-announced.
func (m *PopulationManager) register(ctx context.Context, a *Actor) error {
	// the simulator owns the id space; the service's id is advisory
	if _, err := m.svc.Register(ctx, registerRequest(a)); err != nil {
		return err
	}
	return m.pop.Add(a)
}

// Bootstrap creates and registers the starting population.
func (m *PopulationManager) Bootstrap(ctx context.Context, users, pages int) error {
	for i := 0; i < users; i++ {
		a := m.factory.NewUser(m.pop.NextID(), 0)
		if err := m.register(ctx, a); err != nil {
			return err
		}
	}
	for i := 0; i < pages; i++ {
		a := m.factory.NewPage(m.pop.NextID(), 0)
		if err := m.register(ctx, a); err != nil {
			return err
		}
	}
	m.log.WithFields(logrus.Fields{"users": users, "pages": pages}).Info("population bootstrapped")
	return nil
}

// RestoreSnapshot rebuilds the roster and follow graph from a saved
// snapshot instead of bootstrapping. Live actors are re-registered with
// the service and their follow edges replayed; churned actors come back
// locally only, keeping their ids reserved.
func (m *PopulationManager) RestoreSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := snap.Restore(m.pop, m.graph); err != nil {
		return err
	}
	for _, a := range m.pop.Live() {
		if _, err := m.svc.Register(ctx, registerRequest(a)); err != nil {
			return err
		}
	}
	edges := m.graph.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	for _, e := range edges {
		if a := m.pop.Get(e[0]); a == nil || a.State != StateActive {
			continue
		}
		if err := m.svc.Follow(ctx, e[0], e[1], 0); err != nil {
			m.log.WithError(err).WithField("actor", e[0]).Warn("follow replay failed")
		}
	}
	m.log.WithFields(logrus.Fields{
		"day":    snap.Day,
		"actors": len(snap.Actors),
		"edges":  len(edges),
	}).Info("population restored from snapshot")
	return nil
}

// EndOfDay runs the three-phase boundary pass for the day that just ended.
// dailyActive holds the ids of actors that completed at least one action
// today. Phase order is fixed: follows, then churn, then recruitment, so
// recruits can never churn on their join day.
func (m *PopulationManager) EndOfDay(ctx context.Context, day, slot int64, dailyActive map[int64]bool) DayReport {
	var rep DayReport
	rep.Follows = m.evaluateFollows(ctx, slot, dailyActive)
	rep.Churned = m.churnActors(ctx, slot)
	rep.Recruited = m.recruitActors(ctx, day, len(dailyActive))
	m.log.WithFields(logrus.Fields{
		"day":       day,
		"follows":   rep.Follows,
		"churned":   rep.Churned,
		"recruited": rep.Recruited,
		"live":      m.pop.LiveCount(),
	}).Info("day boundary complete")
	return rep
}

// evaluateFollows gives each daily-active user one Bernoulli chance to
// follow a recommended actor. Suggestion or write failures skip that actor
// and never abort the pass.
func (m *PopulationManager) evaluateFollows(ctx context.Context, slot int64, dailyActive map[int64]bool) int {
	ids := make([]int64, 0, len(dailyActive))
	for id := range dailyActive {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	follows := 0
	for _, id := range ids {
		a := m.pop.Get(id)
		if a == nil || a.State != StateActive || a.Kind == ActorPage {
			continue
		}
		if m.rng.Float64() >= m.pFollow {
			continue
		}
		scores, err := m.follow.Suggest(ctx, m.svc, id)
		if err != nil {
			m.log.WithError(err).WithField("actor", id).Warn("follow suggestions unavailable")
			continue
		}
		// drop candidates already followed or gone
		for cand := range scores {
			t := m.pop.Get(cand)
			if t == nil || t.State != StateActive || m.graph.HasEdge(id, cand) {
				delete(scores, cand)
			}
		}
		target := weightedPick(scores, m.rng)
		if target == 0 {
			continue
		}
		if err := m.svc.Follow(ctx, id, target, slot); err != nil {
			m.log.WithError(err).WithField("actor", id).Warn("follow write failed")
			continue
		}
		if m.graph.AddEdge(id, target) {
			follows++
		}
	}
	return follows
}

// churnActors removes a churn-rate share of the live user population. The
// leavers are drawn locally and the service is then notified, so the graph
// and the population can never disagree about who left.
func (m *PopulationManager) churnActors(ctx context.Context, slot int64) int {
	if !m.churn.Enabled() {
		return 0
	}
	var userIDs []int64
	for _, a := range m.pop.Live() {
		if a.Kind == ActorUser {
			userIDs = append(userIDs, a.ID)
		}
	}
	n := m.churn.Resolve(len(userIDs))
	if n <= 0 {
		return 0
	}
	perm := m.rng.Perm(len(userIDs))
	leaving := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		leaving = append(leaving, userIDs[perm[i]])
	}
	sort.Slice(leaving, func(i, j int) bool { return leaving[i] < leaving[j] })

	churned := m.pop.Churn(leaving)
	for _, id := range churned {
		m.graph.RemoveActor(id)
	}
	if err := m.svc.Churn(ctx, churned, slot); err != nil {
		// local state already advanced; the service reconciles on its side
		m.log.WithError(err).Warn("churn notification failed")
	}
	return len(churned)
}

// recruitActors adds new users sized against today's active count.
func (m *PopulationManager) recruitActors(ctx context.Context, day int64, activeCount int) int {
	if !m.recruitment.Enabled() {
		return 0
	}
	n := m.recruitment.Resolve(activeCount)
	recruited := 0
	for i := 0; i < n; i++ {
		a := m.factory.NewUser(m.pop.NextID(), day+1)
		if err := m.register(ctx, a); err != nil {
			m.log.WithError(err).WithField("actor", a.Name).Warn("recruit registration failed")
			continue
		}
		recruited++
	}
	return recruited
}
