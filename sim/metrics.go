// Tracks simulation-wide activity metrics for final reporting.

package sim

import (
	"fmt"
	"sort"

	"github.com/ysocial-sim/ysocial-sim/sim/trace"
)

// Metrics aggregates action and population statistics over the whole run.
type Metrics struct {
	TotalIntents int // Number of intents dispatched, including no-ops
	Succeeded    int
	Failed       int
	Skipped      int

	// ByKind counts per action kind, keyed by the kind's config name.
	ByKind map[string]*trace.StatusCounts
	// ByDay counts outcomes per simulated day.
	ByDay map[int64]*trace.StatusCounts
	// PopulationByDay is the live population at the end of each day.
	PopulationByDay map[int64]int
	// FollowsByDay, ChurnByDay and RecruitsByDay track the boundary passes.
	FollowsByDay  map[int64]int
	ChurnByDay    map[int64]int
	RecruitsByDay map[int64]int

	HeavyPeak int64 // Max heavy actions simultaneously in flight
}

// NewMetrics creates an empty metrics accumulator.
func NewMetrics() *Metrics {
	return &Metrics{
		ByKind:          make(map[string]*trace.StatusCounts),
		ByDay:           make(map[int64]*trace.StatusCounts),
		PopulationByDay: make(map[int64]int),
		FollowsByDay:    make(map[int64]int),
		ChurnByDay:      make(map[int64]int),
		RecruitsByDay:   make(map[int64]int),
	}
}

// Observe folds one dispatch result into the totals.
func (m *Metrics) Observe(r *Result) {
	m.TotalIntents++
	kind := r.Intent.Kind.String()
	counts, ok := m.ByKind[kind]
	if !ok {
		counts = &trace.StatusCounts{}
		m.ByKind[kind] = counts
	}
	daily, ok := m.ByDay[r.Intent.Day]
	if !ok {
		daily = &trace.StatusCounts{}
		m.ByDay[r.Intent.Day] = daily
	}
	switch r.Status {
	case trace.StatusOK:
		m.Succeeded++
		counts.OK++
		daily.OK++
	case trace.StatusFailed:
		m.Failed++
		counts.Failed++
		daily.Failed++
	case trace.StatusSkipped:
		m.Skipped++
		counts.Skipped++
		daily.Skipped++
	}
}

// ObserveDay records the day-boundary report and the resulting population.
func (m *Metrics) ObserveDay(day int64, rep DayReport, live int) {
	m.FollowsByDay[day] = rep.Follows
	m.ChurnByDay[day] = rep.Churned
	m.RecruitsByDay[day] = rep.Recruited
	m.PopulationByDay[day] = live
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Dispatched Intents   : %d\n", m.TotalIntents)
	fmt.Printf("Succeeded            : %d\n", m.Succeeded)
	fmt.Printf("Failed               : %d\n", m.Failed)
	fmt.Printf("Skipped              : %d\n", m.Skipped)
	fmt.Printf("Peak Heavy In Flight : %d\n", m.HeavyPeak)

	kinds := make([]string, 0, len(m.ByKind))
	for k := range m.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		c := m.ByKind[k]
		fmt.Printf("  %-8s ok=%d failed=%d skipped=%d\n", k, c.OK, c.Failed, c.Skipped)
	}

	daySet := make(map[int64]bool, len(m.ByDay))
	for d := range m.ByDay {
		daySet[d] = true
	}
	for d := range m.PopulationByDay {
		daySet[d] = true
	}
	days := make([]int64, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	for _, d := range days {
		var c trace.StatusCounts
		if dc := m.ByDay[d]; dc != nil {
			c = *dc
		}
		fmt.Printf("  day %-3d ok=%d failed=%d skipped=%d population=%d follows=%d churned=%d recruited=%d\n",
			d, c.OK, c.Failed, c.Skipped,
			m.PopulationByDay[d], m.FollowsByDay[d], m.ChurnByDay[d], m.RecruitsByDay[d])
	}
}
