package history

import "time"

type Outcome string

const (
	Completed Outcome = "completed"
	Cancelled Outcome = "cancelled"
)

// Run is one countdown as it ended: either it reached zero or it was reset.
type Run struct {
	ID        string
	Requested time.Duration
	Elapsed   time.Duration
	StartedAt time.Time
	StoppedAt time.Time
	Outcome   Outcome
}

// Totals summarizes every recorded run.
type Totals struct {
	Completed int
	Cancelled int
	TimeSpent time.Duration
}
