package trace

// StatusCounts tallies per-status outcomes.
type StatusCounts struct {
	OK      int
	Failed  int
	Skipped int
}

// Total returns the number of records counted.
func (c StatusCounts) Total() int {
	return c.OK + c.Failed + c.Skipped
}

// Summary aggregates statistics over a run's ActionRecords.
type Summary struct {
	TotalActions int
	ByKind       map[string]StatusCounts
	ByDay        map[int64]StatusCounts
	ActiveActors map[int64]int // day -> distinct acting actors
}

// Summarize computes aggregate statistics from a record slice.
// Safe for nil or empty input (returns zero-value fields).
func Summarize(records []ActionRecord) *Summary {
	summary := &Summary{
		ByKind:       make(map[string]StatusCounts),
		ByDay:        make(map[int64]StatusCounts),
		ActiveActors: make(map[int64]int),
	}
	seen := make(map[int64]map[int64]bool) // day -> actor set

	for _, r := range records {
		summary.TotalActions++

		kind := summary.ByKind[r.Kind]
		day := summary.ByDay[r.Day]
		switch r.Status {
		case StatusOK:
			kind.OK++
			day.OK++
		case StatusFailed:
			kind.Failed++
			day.Failed++
		case StatusSkipped:
			kind.Skipped++
			day.Skipped++
		}
		summary.ByKind[r.Kind] = kind
		summary.ByDay[r.Day] = day

		if seen[r.Day] == nil {
			seen[r.Day] = make(map[int64]bool)
		}
		if !seen[r.Day][r.ActorID] {
			seen[r.Day][r.ActorID] = true
			summary.ActiveActors[r.Day]++
		}
	}
	return summary
}
