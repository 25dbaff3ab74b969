// The orchestration loop: one pass per slot over sample, select, dispatch
// and record, with the three-phase population pass after each day's last
// slot. All random draws happen on this goroutine through the partitioned
// RNG; workers only ever see pre-derived per-intent seeds.

package sim

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/ysocial-sim/ysocial-sim/llm"
	"github.com/ysocial-sim/ysocial-sim/service"
	"github.com/ysocial-sim/ysocial-sim/sim/recsys"
	"github.com/ysocial-sim/ysocial-sim/sim/trace"
)

// ActionSink receives one telemetry record per dispatched intent.
type ActionSink interface {
	Write(trace.ActionRecord)
}

// nopSink discards records when telemetry is disabled.
type nopSink struct{}

func (nopSink) Write(trace.ActionRecord) {}

// Simulator drives a full multi-day run.
type Simulator struct {
	cfg   *Config
	log   *logrus.Entry
	svc   service.API
	sink  ActionSink
	rng   *PartitionedRNG
	clock *Clock

	pop        *Population
	graph      *FollowGraph
	sampler    *ActivitySampler
	selector   *ActionSelector
	dispatcher *Dispatcher
	manager    *PopulationManager
	metrics    *Metrics
}

// NewSimulator wires every subsystem from the validated configuration.
func NewSimulator(cfg *Config, svc service.API, chat llm.Client, sink ActionSink, log *logrus.Entry) (*Simulator, error) {
	content, err := recsys.NewContentRecommender(cfg.Recsys.Content, recsys.ContentOptions{
		Limit:            10,
		FollowerRatio:    cfg.Agents.ReadingFromFollowerRatio,
		VisibilityRounds: cfg.Posts.VisibilityRounds,
	})
	if err != nil {
		return nil, err
	}
	follow, err := recsys.NewFollowRecommender(cfg.Recsys.Follow, recsys.FollowOptions{
		NNeighbors:  cfg.Recsys.NNeighbors,
		LeaningBias: cfg.Recsys.LeaningBias,
	})
	if err != nil {
		return nil, err
	}

	if sink == nil {
		sink = nopSink{}
	}

	rng := NewPartitionedRNG(NewSimulationKey(cfg.Simulation.Seed))
	pop := NewPopulation()
	graph := NewFollowGraph()

	lightWorkers := cfg.Resources.CPUWorkers
	if lightWorkers <= 0 {
		lightWorkers = runtime.NumCPU()
	}

	exec := NewExecutor(svc, chat, content, follow, cfg.Posts.Emotions, cfg.Agents.MaxLengthThreadReading)
	dispatcher := NewDispatcher(exec, cfg.Resources, lightWorkers, cfg.Resources.HeavySlots(), log)
	factory := NewProfileFactory(cfg.Agents, rng.ForSubsystem(SubsystemProfile))
	manager := NewPopulationManager(pop, graph, svc, follow, factory,
		cfg.Simulation, cfg.Agents.ProbabilityOfDailyFollow,
		rng.ForSubsystem(SubsystemPopulation), log)

	return &Simulator{
		cfg:        cfg,
		log:        log,
		svc:        svc,
		sink:       sink,
		rng:        rng,
		clock:      NewClock(cfg.Simulation.SlotsPerDay, cfg.Simulation.Days),
		pop:        pop,
		graph:      graph,
		sampler:    NewActivitySampler(cfg.HourlyTable(), cfg.Agents.RoundActions),
		selector:   NewActionSelector(cfg.Likelihood()),
		dispatcher: dispatcher,
		manager:    manager,
		metrics:    NewMetrics(),
	}, nil
}

// Population exposes the live population, mainly for tests and summaries.
func (s *Simulator) Population() *Population { return s.pop }

// Graph exposes the local follow graph mirror.
func (s *Simulator) Graph() *FollowGraph { return s.graph }

// Run executes the whole simulation and returns the aggregated metrics.
// The context cancels the run between slots and inside in-flight actions.
func (s *Simulator) Run(ctx context.Context) (*Metrics, error) {
	// announce the interest vocabulary before anyone posts; best effort
	if len(s.cfg.Agents.Interests) > 0 {
		if err := s.svc.SetInterests(ctx, s.cfg.Agents.Interests); err != nil {
			s.log.WithError(err).Warn("interest announcement failed")
		}
	}

	if err := s.populate(ctx); err != nil {
		return nil, err
	}

	activityRNG := s.rng.ForSubsystem(SubsystemActivity)
	selectorRNG := s.rng.ForSubsystem(SubsystemSelector)
	dailyActive := make(map[int64]bool)

	for {
		if err := ctx.Err(); err != nil {
			return s.metrics, err
		}
		slot, day, hour := s.clock.Current()

		// snapshot before sampling so boundary changes never show mid-slot
		live := s.pop.Live()
		active := s.sampler.SampleSlot(live, hour, activityRNG)
		intents := s.selector.SelectBatch(active, slot, day, selectorRNG)
		results := s.dispatcher.Dispatch(ctx, intents)

		for i := range results {
			s.applyResult(&results[i], slot, day, dailyActive)
		}
		s.log.WithFields(logrus.Fields{
			"slot": slot, "day": day, "hour": hour,
			"active": len(active), "intents": len(intents),
		}).Debug("slot complete")

		// the service clock follows ours, never the reverse
		if err := s.svc.UpdateTime(ctx, day, slot); err != nil {
			s.log.WithError(err).Debug("service time sync failed")
		}

		if hour == s.clock.SlotsPerDay()-1 {
			rep := s.manager.EndOfDay(ctx, day, slot, dailyActive)
			s.metrics.ObserveDay(day, rep, s.pop.LiveCount())
			dailyActive = make(map[int64]bool)
			s.sampler.ResetDay()
			if path := s.cfg.Simulation.AgentsSnapshot; path != "" {
				if err := WriteSnapshot(path, day+1, s.pop, s.graph); err != nil {
					s.log.WithError(err).Warn("snapshot write failed")
				}
			}
		}

		if !s.clock.Advance() {
			break
		}
	}

	s.metrics.HeavyPeak = s.dispatcher.HeavyPeak()
	return s.metrics, nil
}

// populate fills the roster either from a prior snapshot, when one is
// configured and present on disk, or by bootstrapping fresh actors.
func (s *Simulator) populate(ctx context.Context) error {
	if path := s.cfg.Simulation.AgentsSnapshot; path != "" {
		if _, err := os.Stat(path); err == nil {
			snap, err := ReadSnapshot(path)
			if err != nil {
				return fmt.Errorf("loading agents snapshot: %w", err)
			}
			if err := s.manager.RestoreSnapshot(ctx, snap); err != nil {
				return fmt.Errorf("restoring agents snapshot: %w", err)
			}
			return nil
		}
	}
	if err := s.manager.Bootstrap(ctx, s.cfg.Simulation.StartingAgents, s.cfg.Simulation.StartingPages); err != nil {
		return fmt.Errorf("bootstrapping population: %w", err)
	}
	return nil
}

// applyResult folds one dispatch result into metrics, telemetry and actor
// state. Runs on the orchestration goroutine only.
func (s *Simulator) applyResult(r *Result, slot, day int64, dailyActive map[int64]bool) {
	s.metrics.Observe(r)
	s.sink.Write(r.Record())

	if r.Status != trace.StatusOK {
		return
	}
	a := r.Intent.Actor
	a.LastActiveSlot = slot
	dailyActive[a.ID] = true
	if r.Intent.Kind != ActionNone {
		s.sampler.NoteAction(a.ID)
	}
	if r.Effects.CastDone {
		a.LastCastDay = day
	}
	if r.Effects.MentionsFound > 0 {
		a.PendingMentions = r.Effects.MentionsFound
	}
	if r.Effects.MentionsCleared {
		a.PendingMentions = 0
	}
	if r.Effects.FollowedID != 0 {
		s.graph.AddEdge(a.ID, r.Effects.FollowedID)
	}
}
