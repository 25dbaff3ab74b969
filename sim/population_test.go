package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ysocial-sim/ysocial-sim/service"
	"github.com/ysocial-sim/ysocial-sim/sim/recsys"
)

func testAgentsConfig() AgentsConfig {
	return AgentsConfig{
		RoundActions: 3,
		Age:          AgeRange{Min: 18, Max: 60},
		Languages:    []string{"english"},
		Leanings:     []string{"left", "right"},
		Genders:      []string{"female", "male"},
		Interests:    []string{"sports", "politics", "music"},
	}
}

func newTestManager(t *testing.T, mock *service.Mock, simCfg SimulationConfig, pFollow float64) (*PopulationManager, *Population, *FollowGraph) {
	t.Helper()
	follow, err := recsys.NewFollowRecommender(recsys.FollowRandom, recsys.FollowOptions{NNeighbors: 10})
	require.NoError(t, err)

	pop := NewPopulation()
	graph := NewFollowGraph()
	factory := NewProfileFactory(testAgentsConfig(), rand.New(rand.NewSource(1)))
	log := logrus.NewEntry(logrus.New())
	m := NewPopulationManager(pop, graph, mock, follow, factory, simCfg, pFollow, rand.New(rand.NewSource(2)), log)
	return m, pop, graph
}

func TestPopulationManager_BootstrapRegistersEveryActor(t *testing.T) {
	mock := service.NewMock()
	m, pop, _ := newTestManager(t, mock, SimulationConfig{}, 0)

	require.NoError(t, m.Bootstrap(context.Background(), 10, 2))
	require.Equal(t, 12, pop.LiveCount())
	require.Equal(t, int64(12), mock.Calls("Register"))

	pages := 0
	for _, a := range pop.Live() {
		if a.Kind == ActorPage {
			pages++
		}
	}
	require.Equal(t, 2, pages)
}

func TestPopulationManager_ChurnFloorsPercentage(t *testing.T) {
	// GIVEN 10 users and a 20% churn rate
	mock := service.NewMock()
	cfg := SimulationConfig{Churn: RateSpec{Mode: "percentage", Rate: 0.2}}
	m, pop, _ := newTestManager(t, mock, cfg, 0)
	require.NoError(t, m.Bootstrap(context.Background(), 10, 0))

	// WHEN the day ends
	rep := m.EndOfDay(context.Background(), 0, 23, map[int64]bool{})

	// THEN exactly floor(0.2 * 10) = 2 actors churn
	require.Equal(t, 2, rep.Churned)
	require.Equal(t, 8, pop.LiveCount())
	require.Equal(t, int64(1), mock.Calls("Churn"))
}

func TestPopulationManager_PopulationIdentity(t *testing.T) {
	// after = before - churned + recruited
	mock := service.NewMock()
	cfg := SimulationConfig{
		Churn:       RateSpec{Mode: "percentage", Rate: 0.3},
		Recruitment: RateSpec{Mode: "fixed", Count: 4},
	}
	m, pop, _ := newTestManager(t, mock, cfg, 0)
	require.NoError(t, m.Bootstrap(context.Background(), 10, 0))

	before := pop.LiveCount()
	dailyActive := map[int64]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	rep := m.EndOfDay(context.Background(), 0, 23, dailyActive)

	require.Equal(t, before-rep.Churned+rep.Recruited, pop.LiveCount())
	require.Equal(t, 3, rep.Churned) // floor(0.3 * 10)
	require.Equal(t, 4, rep.Recruited)
}

func TestPopulationManager_RecruitsNeverChurnOnJoinDay(t *testing.T) {
	// Churn runs before recruitment, so every recruit survives its join day.
	mock := service.NewMock()
	cfg := SimulationConfig{
		Churn:       RateSpec{Mode: "percentage", Rate: 0.5},
		Recruitment: RateSpec{Mode: "fixed", Count: 3},
	}
	m, pop, _ := newTestManager(t, mock, cfg, 0)
	require.NoError(t, m.Bootstrap(context.Background(), 10, 0))

	rep := m.EndOfDay(context.Background(), 0, 23, map[int64]bool{1: true})
	require.Equal(t, 3, rep.Recruited)

	for _, a := range pop.Live() {
		if a.JoinedDay == 1 {
			require.Equal(t, StateActive, a.State)
		}
	}
	// recruits joined for the next day
	recruits := 0
	for _, a := range pop.Live() {
		if a.JoinedDay == 1 {
			recruits++
		}
	}
	require.Equal(t, 3, recruits)
}

func TestPopulationManager_ChurnedActorsLeaveTheGraph(t *testing.T) {
	mock := service.NewMock()
	cfg := SimulationConfig{Churn: RateSpec{Mode: "fixed", Count: 10}}
	m, pop, graph := newTestManager(t, mock, cfg, 0)
	require.NoError(t, m.Bootstrap(context.Background(), 10, 0))
	graph.AddEdge(1, 2)
	graph.AddEdge(3, 4)

	m.EndOfDay(context.Background(), 0, 23, map[int64]bool{})

	require.Equal(t, 0, pop.LiveCount())
	require.Equal(t, 0, graph.EdgeCount())
}

func TestPopulationManager_FollowEvaluation(t *testing.T) {
	// GIVEN three daily-active users and one suggested target
	mock := service.NewMock()
	mock.Suggestions = map[int64]float64{5: 1.0}
	m, _, graph := newTestManager(t, mock, SimulationConfig{}, 1.0)
	require.NoError(t, m.Bootstrap(context.Background(), 10, 0))

	dailyActive := map[int64]bool{1: true, 2: true, 3: true}
	rep := m.EndOfDay(context.Background(), 0, 23, dailyActive)

	// THEN each follows the target, locally and on the service
	require.Equal(t, 3, rep.Follows)
	require.True(t, graph.HasEdge(1, 5))
	require.True(t, graph.HasEdge(2, 5))
	require.True(t, graph.HasEdge(3, 5))
	require.Equal(t, int64(3), mock.Calls("Follow"))
}

func TestPopulationManager_FollowSkippedAtZeroProbability(t *testing.T) {
	mock := service.NewMock()
	mock.Suggestions = map[int64]float64{5: 1.0}
	m, _, graph := newTestManager(t, mock, SimulationConfig{}, 0)
	require.NoError(t, m.Bootstrap(context.Background(), 10, 0))

	rep := m.EndOfDay(context.Background(), 0, 23, map[int64]bool{1: true, 2: true})
	require.Zero(t, rep.Follows)
	require.Zero(t, graph.EdgeCount())
	require.Zero(t, mock.Calls("FollowSuggestions"))
}

func TestPopulationManager_SuggestionFailureDoesNotAbort(t *testing.T) {
	// A failing suggestion service skips follows but churn still runs.
	mock := service.NewMock()
	mock.Fail["FollowSuggestions"] = context.DeadlineExceeded
	cfg := SimulationConfig{Churn: RateSpec{Mode: "fixed", Count: 1}}
	m, pop, _ := newTestManager(t, mock, cfg, 1.0)
	require.NoError(t, m.Bootstrap(context.Background(), 5, 0))

	rep := m.EndOfDay(context.Background(), 0, 23, map[int64]bool{1: true})
	require.Zero(t, rep.Follows)
	require.Equal(t, 1, rep.Churned)
	require.Equal(t, 4, pop.LiveCount())
}
