package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
simulation:
  days: 2
  slots_per_day: 4
  starting_agents: 10
  hourly_activity:
    "0": 1.0
    "1": 0.5
    "2": 0.2
    "3": 0.1
`

func TestParseConfig_MinimalDocument(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, int64(2), cfg.Simulation.Days)
	assert.Equal(t, int64(4), cfg.Simulation.SlotsPerDay)
	assert.Equal(t, 10, cfg.Simulation.StartingAgents)
	// defaults fill the unspecified sections
	assert.Equal(t, "parallel", cfg.Resources.Mode)
	assert.Equal(t, 10, cfg.Resources.HeavySlots())
	assert.Equal(t, Duration(30*time.Second), cfg.Resources.ActionTimeout)
	assert.Equal(t, "PreferentialAttachment", cfg.Recsys.Follow)
}

func TestParseConfig_UnknownFieldFails(t *testing.T) {
	doc := minimalConfig + "\nsimulatoin_typo: 1\n"
	_, err := ParseConfig([]byte(doc))
	require.Error(t, err)
}

func TestParseConfig_SchemaCatchesBadRanges(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero days", "simulation:\n  days: 0\n  slots_per_day: 4\n"},
		{"activity above one", minimalConfig + "\n# override below\n"},
		{"gpu fraction above one", minimalConfig + "resources:\n  gpu_fraction: 1.5\n"},
		{"bad resources mode", minimalConfig + "resources:\n  mode: threaded\n"},
	}
	for _, tt := range tests {
		if tt.name == "activity above one" {
			tt.doc = `
simulation:
  days: 1
  slots_per_day: 2
  hourly_activity:
    "0": 1.4
`
		}
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestValidate_UnknownActionName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.ActionsLikelihood = map[string]float64{"tweet": 1.0}
	require.Error(t, cfg.Validate())
}

func TestValidate_HourKeyOutsideDay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.SlotsPerDay = 4
	cfg.Simulation.HourlyActivity = map[string]float64{"7": 0.5}
	require.Error(t, cfg.Validate())
}

func TestValidate_AllZeroLikelihood(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.ActionsLikelihood = map[string]float64{"post": 0, "read": 0}
	require.Error(t, cfg.Validate())
}

func TestValidate_PercentageRateRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.Churn = RateSpec{Mode: "percentage", Rate: 1.0}
	require.Error(t, cfg.Validate())
}

func TestRateSpec_Resolve(t *testing.T) {
	tests := []struct {
		name string
		spec RateSpec
		ref  int
		want int
	}{
		{"disabled", RateSpec{}, 100, 0},
		{"fixed", RateSpec{Mode: "fixed", Count: 5}, 100, 5},
		{"fixed capped at reference", RateSpec{Mode: "fixed", Count: 50}, 10, 10},
		{"percentage floors", RateSpec{Mode: "percentage", Rate: 0.2}, 10, 2},
		{"percentage floors fraction", RateSpec{Mode: "percentage", Rate: 0.25}, 10, 2},
		{"percentage minimum one", RateSpec{Mode: "percentage", Rate: 0.01}, 10, 1},
		{"zero reference", RateSpec{Mode: "percentage", Rate: 0.5}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Resolve(tt.ref))
		})
	}
}

func TestConfig_HourlyTableAndLikelihood(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalConfig))
	require.NoError(t, err)

	table := cfg.HourlyTable()
	assert.Equal(t, 1.0, table[0])
	assert.Equal(t, 0.1, table[3])

	likelihood := cfg.Likelihood()
	assert.Equal(t, 0.2, likelihood[ActionPost])
	assert.Zero(t, likelihood[ActionPublish])
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestDefaultConfig_EveryHourHasActivity(t *testing.T) {
	// the scaffold config must produce a live simulation out of the box
	cfg := DefaultConfig()
	table := cfg.HourlyTable()
	require.Len(t, table, int(cfg.Simulation.SlotsPerDay))
	for hour := int64(0); hour < cfg.Simulation.SlotsPerDay; hour++ {
		frac, ok := table[hour]
		require.True(t, ok, "hour %d missing from the default activity table", hour)
		assert.Greater(t, frac, 0.0)
		assert.LessOrEqual(t, frac, 1.0)
	}
}
