// Package trace defines the structured per-action result records produced
// by the dispatcher and consumed by metrics, summaries and the action log.
package trace

import "time"

// Status is the terminal state of one executed (or dropped) action intent.
type Status string

const (
	// StatusOK marks a fully executed action.
	StatusOK Status = "ok"
	// StatusFailed marks an action whose external call errored or timed out.
	StatusFailed Status = "failed"
	// StatusSkipped marks a heavy action dropped by admission control
	// before execution, never counted as a failure.
	StatusSkipped Status = "skipped"
)

// ActionRecord captures everything downstream consumers (metrics, the
// action log, end-of-run summaries) need to know about one actor-action.
type ActionRecord struct {
	ActorID   int64
	ActorName string
	Kind      string // ActionKind name
	Slot      int64
	Day       int64
	Status    Status
	Duration  time.Duration
	Attempts  int    // 1 + number of in-slot retries
	Err       string // empty unless Status == StatusFailed
}
