// Population snapshots: the full actor roster plus the follow graph,
// written at each day boundary and loadable in place of a fresh bootstrap
// so long experiments can resume where they stopped.

package sim

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SnapshotActor is the serialized form of one actor.
type SnapshotActor struct {
	ID               int64    `yaml:"id"`
	Name             string   `yaml:"name"`
	Email            string   `yaml:"email"`
	Kind             string   `yaml:"kind"`
	State            string   `yaml:"state"`
	Age              int      `yaml:"age"`
	Gender           string   `yaml:"gender"`
	Nationality      string   `yaml:"nationality"`
	Language         string   `yaml:"language"`
	Education        string   `yaml:"education"`
	Leaning          string   `yaml:"leaning"`
	Interests        []string `yaml:"interests"`
	OE               float64  `yaml:"oe"`
	CO               float64  `yaml:"co"`
	EX               float64  `yaml:"ex"`
	AG               float64  `yaml:"ag"`
	NE               float64  `yaml:"ne"`
	JoinedDay        int64    `yaml:"joined_on"`
	RoundActions     int      `yaml:"round_actions"`
	ActivityVariance float64  `yaml:"activity_variance"`
	LastCastDay      int64    `yaml:"last_cast_day"`
}

// SnapshotEdge is one directed follow edge.
type SnapshotEdge struct {
	Follower int64 `yaml:"follower"`
	Followee int64 `yaml:"followee"`
}

// Snapshot captures the resumable simulation state at a day boundary.
type Snapshot struct {
	Day    int64           `yaml:"day"`
	Actors []SnapshotActor `yaml:"actors"`
	Edges  []SnapshotEdge  `yaml:"edges"`
}

func snapshotActor(a *Actor) SnapshotActor {
	return SnapshotActor{
		ID: a.ID, Name: a.Name, Email: a.Email,
		Kind: string(a.Kind), State: string(a.State),
		Age: a.Age, Gender: a.Gender, Nationality: a.Nationality,
		Language: a.Language, Education: a.Education, Leaning: a.Leaning,
		Interests: a.Interests,
		OE:        a.OE, CO: a.CO, EX: a.EX, AG: a.AG, NE: a.NE,
		JoinedDay: a.JoinedDay, RoundActions: a.RoundActions,
		ActivityVariance: a.ActivityVariance, LastCastDay: a.LastCastDay,
	}
}

func (s SnapshotActor) actor() *Actor {
	return &Actor{
		ID: s.ID, Name: s.Name, Email: s.Email,
		Kind: ActorKind(s.Kind), State: LifecycleState(s.State),
		Age: s.Age, Gender: s.Gender, Nationality: s.Nationality,
		Language: s.Language, Education: s.Education, Leaning: s.Leaning,
		Interests: s.Interests,
		OE:        s.OE, CO: s.CO, EX: s.EX, AG: s.AG, NE: s.NE,
		JoinedDay: s.JoinedDay, RoundActions: s.RoundActions,
		ActivityVariance: s.ActivityVariance, LastCastDay: s.LastCastDay,
	}
}

// WriteSnapshot serializes the population and graph to path. The write
// goes through a temp file and rename so a crash never truncates the
// previous snapshot.
func WriteSnapshot(path string, day int64, pop *Population, graph *FollowGraph) error {
	snap := Snapshot{Day: day}
	for _, a := range pop.All() {
		snap.Actors = append(snap.Actors, snapshotActor(a))
	}
	for _, edge := range graph.Edges() {
		snap.Edges = append(snap.Edges, SnapshotEdge{Follower: edge[0], Followee: edge[1]})
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].Follower != snap.Edges[j].Follower {
			return snap.Edges[i].Follower < snap.Edges[j].Follower
		}
		return snap.Edges[i].Followee < snap.Edges[j].Followee
	})

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot document from path.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &snap, nil
}

// Restore rebuilds the population and graph from the snapshot. Churned
// actors are restored too so their ids stay reserved.
func (s *Snapshot) Restore(pop *Population, graph *FollowGraph) error {
	for _, sa := range s.Actors {
		if err := pop.Add(sa.actor()); err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
	}
	for _, e := range s.Edges {
		graph.AddEdge(e.Follower, e.Followee)
	}
	return nil
}
