// Simulation configuration: YAML document structure, strict loading,
// JSON-Schema structural validation and semantic validation. Configuration
// errors are fatal at startup; the simulation never begins on a bad config.

package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can spell timeouts as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ServersConfig locates the two external collaborators.
type ServersConfig struct {
	API       string `yaml:"api"`         // content/graph service base URL
	LLM       string `yaml:"llm"`         // OpenAI-compatible chat endpoint base URL
	LLMModel  string `yaml:"llm_model"`   // model name sent with each completion
	LLMAPIKey string `yaml:"llm_api_key"` // empty for self-hosted backends
}

// RateSpec expresses a daily population change as either a fixed count or a
// percentage of a reference population. Zero-valued means "never".
type RateSpec struct {
	Mode  string  `yaml:"mode"`  // "fixed", "percentage" or "" (disabled)
	Count int     `yaml:"count"` // used when mode == "fixed"
	Rate  float64 `yaml:"rate"`  // used when mode == "percentage", in [0, 1)
}

// Enabled reports whether the spec produces a nonzero count for any
// population size.
func (r RateSpec) Enabled() bool {
	switch r.Mode {
	case "fixed":
		return r.Count > 0
	case "percentage":
		return r.Rate > 0
	default:
		return false
	}
}

// Resolve returns the number of actors this spec selects against the given
// reference population. Percentage mode floors the product but never
// resolves below 1 while enabled; the floor rule is deliberate and tested.
func (r RateSpec) Resolve(reference int) int {
	if !r.Enabled() || reference <= 0 {
		return 0
	}
	switch r.Mode {
	case "fixed":
		if r.Count > reference {
			return reference
		}
		return r.Count
	case "percentage":
		n := int(float64(reference) * r.Rate) // floor
		if n < 1 {
			n = 1
		}
		if n > reference {
			n = reference
		}
		return n
	}
	return 0
}

// SimulationConfig is the core timeline and population section.
type SimulationConfig struct {
	Seed           int64              `yaml:"seed"`
	Days           int64              `yaml:"days"`
	SlotsPerDay    int64              `yaml:"slots_per_day"`
	StartingAgents int                `yaml:"starting_agents"`
	StartingPages  int                `yaml:"starting_pages"`
	// AgentsSnapshot, when set, names a population snapshot file. If the
	// file exists the roster and follow graph are restored from it instead
	// of bootstrapping fresh actors, and an updated snapshot is written
	// back at every day boundary.
	AgentsSnapshot string `yaml:"agents_snapshot"`
	// HourlyActivity maps hour-of-day (as string keys, matching the wire
	// format) to the expected fraction of the live population active that
	// hour. Hours absent from the table default to 0.
	HourlyActivity map[string]float64 `yaml:"hourly_activity"`
	// ActionsLikelihood maps action-kind names to non-negative weights.
	// Weights need not pre-sum to 1; they are normalized at selection time.
	ActionsLikelihood map[string]float64 `yaml:"actions_likelihood"`
	Churn             RateSpec           `yaml:"churn"`
	Recruitment       RateSpec           `yaml:"recruitment"`
}

// AgeRange bounds generated actor ages.
type AgeRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// AgentsConfig holds per-actor behavioral parameters and the attribute
// pools recruitment samples profiles from.
type AgentsConfig struct {
	RoundActions             int      `yaml:"round_actions"`
	ProbabilityOfDailyFollow float64  `yaml:"probability_of_daily_follow"`
	MaxLengthThreadReading   int      `yaml:"max_length_thread_reading"`
	ReadingFromFollowerRatio float64  `yaml:"reading_from_follower_ratio"`
	ActivityVariance         float64  `yaml:"activity_variance"`
	Interests                []string `yaml:"interests"`
	Age                      AgeRange `yaml:"age"`
	Languages                []string `yaml:"languages"`
	Leanings                 []string `yaml:"leanings"`
	EducationLevels          []string `yaml:"education_levels"`
	Nationalities            []string `yaml:"nationalities"`
	Genders                  []string `yaml:"genders"`
}

// PostsConfig holds content parameters.
type PostsConfig struct {
	Emotions         []string `yaml:"emotions"`
	VisibilityRounds int      `yaml:"visibility_rounds"`
}

// Dispatcher execution modes.
const (
	ResourceModeParallel   = "parallel"
	ResourceModeSequential = "sequential"
)

// ResourcesConfig bounds dispatcher parallelism.
type ResourcesConfig struct {
	// Mode is "parallel" (default) or "sequential". Sequential is a
	// deployment fallback, not a different algorithm: identical per-intent
	// semantics on a single worker.
	Mode string `yaml:"mode"`
	// CPUWorkers sizes the light pool; 0 means runtime.NumCPU().
	CPUWorkers int `yaml:"cpu_workers"`
	// GPUFraction is the fractional-resource unit of one heavy task against
	// one logical accelerator: concurrency cap = floor(1 / gpu_fraction).
	GPUFraction float64 `yaml:"gpu_fraction"`
	// HeavyQueueDepth bounds heavy intents waiting for a pool slot; intents
	// beyond cap+depth in one batch are dropped and recorded skipped.
	HeavyQueueDepth int `yaml:"heavy_queue_depth"`
	// ActionTimeout bounds each external call per intent.
	ActionTimeout Duration `yaml:"action_timeout"`
}

// HeavySlots returns the hard admission cap of the heavy pool.
func (r ResourcesConfig) HeavySlots() int {
	if r.GPUFraction <= 0 || r.GPUFraction > 1 {
		return 1
	}
	return int(1.0 / r.GPUFraction)
}

// RecsysConfig names the pluggable recommendation strategies.
type RecsysConfig struct {
	Content     string  `yaml:"content"`
	Follow      string  `yaml:"follow"`
	NNeighbors  int     `yaml:"n_neighbors"`
	LeaningBias float64 `yaml:"leaning_bias"`
}

// TelemetryConfig controls per-action persistence.
type TelemetryConfig struct {
	SQLitePath string `yaml:"sqlite_path"` // empty disables the action log
}

// Config is the full simulation configuration document.
type Config struct {
	Servers    ServersConfig    `yaml:"servers"`
	Simulation SimulationConfig `yaml:"simulation"`
	Agents     AgentsConfig     `yaml:"agents"`
	Posts      PostsConfig      `yaml:"posts"`
	Resources  ResourcesConfig  `yaml:"resources"`
	Recsys     RecsysConfig     `yaml:"recsys"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// configSchema is the structural contract for the configuration document.
// Semantic cross-field rules (hour keys within slots_per_day, known action
// names) live in Validate; the schema catches shape and range mistakes with
// a pointer to the offending field.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "simulation": {
      "type": "object",
      "properties": {
        "days": {"type": "integer", "minimum": 1},
        "slots_per_day": {"type": "integer", "minimum": 1},
        "starting_agents": {"type": "integer", "minimum": 0},
        "starting_pages": {"type": "integer", "minimum": 0},
        "agents_snapshot": {"type": "string"},
        "hourly_activity": {
          "type": "object",
          "additionalProperties": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "actions_likelihood": {
          "type": "object",
          "additionalProperties": {"type": "number", "minimum": 0}
        },
        "churn": {"$ref": "#/$defs/rate"},
        "recruitment": {"$ref": "#/$defs/rate"}
      },
      "required": ["days", "slots_per_day"]
    },
    "agents": {
      "type": "object",
      "properties": {
        "probability_of_daily_follow": {"type": "number", "minimum": 0, "maximum": 1},
        "round_actions": {"type": "integer", "minimum": 0}
      }
    },
    "resources": {
      "type": "object",
      "properties": {
        "gpu_fraction": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
        "cpu_workers": {"type": "integer", "minimum": 0},
        "heavy_queue_depth": {"type": "integer", "minimum": 0},
        "mode": {"enum": ["", "parallel", "sequential"]}
      }
    }
  },
  "required": ["simulation"],
  "$defs": {
    "rate": {
      "type": "object",
      "properties": {
        "mode": {"enum": ["", "fixed", "percentage"]},
        "count": {"type": "integer", "minimum": 0},
        "rate": {"type": "number", "minimum": 0, "exclusiveMaximum": 1}
      }
    }
  }
}`

// LoadConfig reads, strictly decodes and validates a YAML configuration
// file. Any error here is fatal to the run.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // typos must cause errors, not silent defaults
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validateSchema(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateSchema checks the raw document against configSchema. The YAML is
// re-decoded generically and round-tripped through JSON so the validator
// sees plain JSON values.
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalizing config: %w", err)
	}
	var jsonDoc interface{}
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		return fmt.Errorf("normalizing config: %w", err)
	}
	schema, err := jsonschema.CompileString("config.schema.json", configSchema)
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	if err := schema.Validate(jsonDoc); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}

// Validate applies the semantic rules the schema cannot express.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.Days <= 0 {
		return fmt.Errorf("simulation.days must be > 0, got %d", s.Days)
	}
	if s.SlotsPerDay <= 0 {
		return fmt.Errorf("simulation.slots_per_day must be > 0, got %d", s.SlotsPerDay)
	}
	if s.StartingAgents < 0 || s.StartingPages < 0 {
		return fmt.Errorf("starting population sizes must be >= 0")
	}
	for key, frac := range s.HourlyActivity {
		hour, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return fmt.Errorf("hourly_activity key %q is not an hour number", key)
		}
		if hour < 0 || hour >= s.SlotsPerDay {
			return fmt.Errorf("hourly_activity hour %d outside [0, %d)", hour, s.SlotsPerDay)
		}
		if frac < 0 || frac > 1 {
			return fmt.Errorf("hourly_activity[%q] = %v outside [0, 1]", key, frac)
		}
	}
	total := 0.0
	for name, weight := range s.ActionsLikelihood {
		if _, err := ParseActionKind(name); err != nil {
			return fmt.Errorf("actions_likelihood: %w", err)
		}
		if weight < 0 {
			return fmt.Errorf("actions_likelihood[%q] = %v must be >= 0", name, weight)
		}
		total += weight
	}
	if len(s.ActionsLikelihood) > 0 && total == 0 {
		return fmt.Errorf("actions_likelihood has no positive weight")
	}
	for _, r := range []struct {
		name string
		spec RateSpec
	}{{"churn", s.Churn}, {"recruitment", s.Recruitment}} {
		switch r.spec.Mode {
		case "", "fixed", "percentage":
		default:
			return fmt.Errorf("simulation.%s.mode %q must be fixed or percentage", r.name, r.spec.Mode)
		}
		if r.spec.Rate < 0 || r.spec.Rate >= 1 {
			if r.spec.Mode == "percentage" {
				return fmt.Errorf("simulation.%s.rate %v outside [0, 1)", r.name, r.spec.Rate)
			}
		}
	}
	if p := c.Agents.ProbabilityOfDailyFollow; p < 0 || p > 1 {
		return fmt.Errorf("agents.probability_of_daily_follow %v outside [0, 1]", p)
	}
	if f := c.Resources.GPUFraction; f <= 0 || f > 1 {
		return fmt.Errorf("resources.gpu_fraction %v outside (0, 1]", f)
	}
	switch c.Resources.Mode {
	case "", ResourceModeParallel, ResourceModeSequential:
	default:
		return fmt.Errorf("resources.mode %q must be parallel or sequential", c.Resources.Mode)
	}
	if c.Resources.ActionTimeout <= 0 {
		return fmt.Errorf("resources.action_timeout must be > 0")
	}
	return nil
}

// HourlyTable converts the string-keyed wire table to hour indices.
// Assumes Validate has passed.
func (c *Config) HourlyTable() map[int64]float64 {
	table := make(map[int64]float64, len(c.Simulation.HourlyActivity))
	for key, frac := range c.Simulation.HourlyActivity {
		hour, _ := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		table[hour] = frac
	}
	return table
}

// Likelihood converts the named action weight table to ActionKind keys.
// Assumes Validate has passed. Kinds absent from the table carry weight 0
// and are never selected.
func (c *Config) Likelihood() map[ActionKind]float64 {
	out := make(map[ActionKind]float64, len(c.Simulation.ActionsLikelihood))
	for name, weight := range c.Simulation.ActionsLikelihood {
		kind, _ := ParseActionKind(name)
		out[kind] = weight
	}
	return out
}

// defaultHourlyActivity is a diurnal profile covering every hour: quiet
// overnight, a morning ramp, and an evening peak.
func defaultHourlyActivity() map[string]float64 {
	profile := []float64{
		0.05, 0.03, 0.02, 0.02, 0.02, 0.04, // 00-05
		0.08, 0.15, 0.25, 0.30, 0.30, 0.30, // 06-11
		0.35, 0.35, 0.30, 0.30, 0.30, 0.35, // 12-17
		0.40, 0.45, 0.45, 0.35, 0.20, 0.10, // 18-23
	}
	table := make(map[string]float64, len(profile))
	for hour, frac := range profile {
		table[strconv.Itoa(hour)] = frac
	}
	return table
}

// DefaultConfig returns the baseline configuration that loaded documents
// are overlaid on.
func DefaultConfig() *Config {
	return &Config{
		Servers: ServersConfig{
			API:      "http://localhost:5010/",
			LLM:      "http://localhost:11434/v1",
			LLMModel: "llama3",
		},
		Simulation: SimulationConfig{
			Seed:           42,
			Days:           3,
			SlotsPerDay:    24,
			HourlyActivity: defaultHourlyActivity(),
			ActionsLikelihood: map[string]float64{
				"post": 0.2, "comment": 0.2, "read": 0.2, "react": 0.1,
				"share": 0.1, "search": 0.1, "reply": 0.1,
			},
		},
		Agents: AgentsConfig{
			RoundActions:             3,
			ProbabilityOfDailyFollow: 0.1,
			MaxLengthThreadReading:   5,
			ReadingFromFollowerRatio: 0.6,
			Age:                      AgeRange{Min: 18, Max: 80},
			Languages:                []string{"english"},
		},
		Posts: PostsConfig{
			Emotions:         []string{"joy", "sadness", "anger", "fear", "surprise"},
			VisibilityRounds: 36,
		},
		Resources: ResourcesConfig{
			Mode:            "parallel",
			GPUFraction:     0.1,
			HeavyQueueDepth: 32,
			ActionTimeout:   Duration(30 * time.Second),
		},
		Recsys: RecsysConfig{
			Content:     "ReverseChronoFollowersPopularity",
			Follow:      "PreferentialAttachment",
			NNeighbors:  10,
			LeaningBias: 1.0,
		},
	}
}
