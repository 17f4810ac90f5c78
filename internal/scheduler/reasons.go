package scheduler

import "time"

// SkipReason explains why a background tick did not run a pass
type SkipReason string

const (
	// ReasonNotSkipped means the tick ran a pass
	ReasonNotSkipped SkipReason = ""

	// ReasonUserInactive means the user has been idle past the threshold
	ReasonUserInactive SkipReason = "user_inactive"

	// ReasonPassInProgress means a previous pass has not finished yet
	ReasonPassInProgress SkipReason = "pass_in_progress"
)

// String returns the reason as a log/metric value
func (r SkipReason) String() string {
	if r == ReasonNotSkipped {
		return "not_skipped"
	}
	return string(r)
}

// Diagnostic reasons attached to refreshes started by the scheduler itself
const (
	ReasonBackground = "background_pass"
	ReasonQueued     = "queued_refresh"
)

// PassResult describes the outcome of one tick
type PassResult struct {
	// ID identifies the pass in logs and traces. Empty for skipped ticks.
	ID string

	// Skipped is set when no pass ran
	Skipped SkipReason

	// Invoked lists the topics whose callbacks ran, in invocation order
	Invoked []string

	// Failed lists the invoked topics whose callbacks returned an error or panicked
	Failed []string

	Duration time.Duration
}

// Ran reports whether the tick ran a pass
func (r PassResult) Ran() bool {
	return r.Skipped == ReasonNotSkipped
}
