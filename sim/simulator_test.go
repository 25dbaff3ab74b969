package sim

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ysocial-sim/ysocial-sim/llm"
	"github.com/ysocial-sim/ysocial-sim/service"
	"github.com/ysocial-sim/ysocial-sim/sim/trace"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Simulation.Days = 2
	cfg.Simulation.SlotsPerDay = 4
	cfg.Simulation.StartingAgents = 5
	cfg.Simulation.StartingPages = 1
	cfg.Simulation.HourlyActivity = map[string]float64{"0": 1, "1": 1, "2": 1, "3": 1}
	cfg.Simulation.ActionsLikelihood = map[string]float64{"read": 0.5, "post": 0.5}
	cfg.Agents.RoundActions = 0
	cfg.Agents.Interests = []string{"music", "sports"}
	return cfg
}

func TestSimulator_FullRunWithMocks(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	mock := service.NewMock()
	log := logrus.NewEntry(logrus.New())
	s, err := NewSimulator(cfg, mock, llm.NewMockClient("a post #music"), nil, log)
	require.NoError(t, err)

	metrics, err := s.Run(context.Background())
	require.NoError(t, err)

	// 6 actors over 2 days of 4 slots, everyone sampled every slot
	assert.Equal(t, 48, metrics.TotalIntents)
	assert.Equal(t, 48, metrics.Succeeded)
	assert.Zero(t, metrics.Failed)
	assert.Zero(t, metrics.Skipped)

	// 24 outcomes land on each of the two days
	require.Contains(t, metrics.ByDay, int64(0))
	require.Contains(t, metrics.ByDay, int64(1))
	assert.Equal(t, 24, metrics.ByDay[0].OK)
	assert.Equal(t, 24, metrics.ByDay[1].OK)

	// one time sync per slot
	assert.Equal(t, int64(8), mock.Calls("UpdateTime"))
	// interest vocabulary announced once up front
	assert.Equal(t, int64(1), mock.Calls("SetInterests"))
	assert.Equal(t, 6, s.Population().LiveCount())
}

func TestSimulator_RecruitmentGrowsPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.Recruitment = RateSpec{Mode: "fixed", Count: 1}
	require.NoError(t, cfg.Validate())

	mock := service.NewMock()
	s, err := NewSimulator(cfg, mock, llm.NewMockClient("x"), nil, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	metrics, err := s.Run(context.Background())
	require.NoError(t, err)

	// one recruit per day boundary
	assert.Equal(t, 8, s.Population().LiveCount())
	assert.Equal(t, 1, metrics.RecruitsByDay[0])
	assert.Equal(t, 1, metrics.RecruitsByDay[1])
	// 6 bootstrap + 2 recruits registered
	assert.Equal(t, int64(8), mock.Calls("Register"))
}

func TestSimulator_ChurnShrinksPopulation(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.Churn = RateSpec{Mode: "percentage", Rate: 0.2}
	require.NoError(t, cfg.Validate())

	mock := service.NewMock()
	s, err := NewSimulator(cfg, mock, llm.NewMockClient("x"), nil, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	metrics, err := s.Run(context.Background())
	require.NoError(t, err)

	// floor(0.2 * 5 users) = 1 per day over 2 boundaries; the page stays
	assert.Equal(t, 1, metrics.ChurnByDay[0])
	assert.Equal(t, 1, metrics.ChurnByDay[1])
	assert.Equal(t, 4, s.Population().LiveCount())
}

func TestSimulator_DeterministicReplay(t *testing.T) {
	// Two runs with the same seed agree on every counter.
	run := func() *Metrics {
		cfg := testConfig()
		cfg.Simulation.Churn = RateSpec{Mode: "percentage", Rate: 0.2}
		cfg.Simulation.Recruitment = RateSpec{Mode: "fixed", Count: 1}
		mock := service.NewMock()
		s, err := NewSimulator(cfg, mock, llm.NewMockClient("x"), nil, logrus.NewEntry(logrus.New()))
		require.NoError(t, err)
		m, err := s.Run(context.Background())
		require.NoError(t, err)
		return m
	}

	a, b := run(), run()
	assert.Equal(t, a.TotalIntents, b.TotalIntents)
	assert.Equal(t, a.ByKind, b.ByKind)
	assert.Equal(t, a.ByDay, b.ByDay)
	assert.Equal(t, a.PopulationByDay, b.PopulationByDay)
	assert.Equal(t, a.ChurnByDay, b.ChurnByDay)
}

func TestSimulator_CancelledContextStopsRun(t *testing.T) {
	cfg := testConfig()
	mock := service.NewMock()
	s, err := NewSimulator(cfg, mock, llm.NewMockClient("x"), nil, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSimulator_UnknownRecommenderFailsConstruction(t *testing.T) {
	cfg := testConfig()
	cfg.Recsys.Content = "Newest"
	_, err := NewSimulator(cfg, service.NewMock(), llm.NewMockClient("x"), nil, logrus.NewEntry(logrus.New()))
	require.Error(t, err)
}

func TestSimulator_SnapshotWrittenAndResumed(t *testing.T) {
	// GIVEN a run configured with an agents snapshot path
	path := filepath.Join(t.TempDir(), "agents.yaml")
	cfg := testConfig()
	cfg.Simulation.AgentsSnapshot = path

	s, err := NewSimulator(cfg, service.NewMock(), llm.NewMockClient("x"), nil, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	// THEN the last day boundary left a snapshot behind
	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Simulation.Days, snap.Day)
	assert.Len(t, snap.Actors, 6)

	// WHEN a second run starts against a fresh service
	mock := service.NewMock()
	s2, err := NewSimulator(cfg, mock, llm.NewMockClient("x"), nil, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	_, err = s2.Run(context.Background())
	require.NoError(t, err)

	// THEN it resumes from the snapshot instead of bootstrapping
	assert.Equal(t, int64(6), mock.Calls("Register"))
	assert.Equal(t, 6, s2.Population().LiveCount())
}

func TestSimulator_TelemetrySinkReceivesEveryIntent(t *testing.T) {
	cfg := testConfig()
	var records []trace.ActionRecord
	sink := sinkFunc(func(rec trace.ActionRecord) { records = append(records, rec) })

	s, err := NewSimulator(cfg, service.NewMock(), llm.NewMockClient("x"), sink, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	metrics, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, records, metrics.TotalIntents)
}

// sinkFunc adapts a function to the ActionSink interface.
type sinkFunc func(trace.ActionRecord)

func (f sinkFunc) Write(rec trace.ActionRecord) { f(rec) }
