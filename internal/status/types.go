// Package status tracks the outcome of refresh attempts per topic.
package status

import "time"

// RefreshPhase represents the current phase of a topic's refresh
type RefreshPhase string

const (
	// RefreshPhasePending means the topic has not been refreshed yet
	RefreshPhasePending RefreshPhase = "Pending"

	// RefreshPhaseRefreshing means a refresh callback is currently running
	RefreshPhaseRefreshing RefreshPhase = "Refreshing"

	// RefreshPhaseComplete means the last refresh completed successfully
	RefreshPhaseComplete RefreshPhase = "Complete"

	// RefreshPhaseFailed means the last refresh returned an error or panicked
	RefreshPhaseFailed RefreshPhase = "Failed"
)

// RefreshStatus represents the refresh state of one topic
type RefreshStatus struct {
	// Topic is the topic this status belongs to
	Topic string `json:"topic"`

	// Phase represents the current refresh phase
	Phase RefreshPhase `json:"phase"`

	// Message provides additional information about the last outcome
	Message string `json:"message,omitempty"`

	// LastReason is the diagnostic reason of the last trigger
	LastReason string `json:"lastReason,omitempty"`

	// LastAttempt is the timestamp of the last refresh attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// LastRefreshTime is the timestamp of the last successful refresh
	LastRefreshTime *time.Time `json:"lastRefreshTime,omitempty"`

	// ConsecutiveFailures is the number of failed attempts since the last success
	ConsecutiveFailures int `json:"consecutiveFailures"`

	// RefreshCount is the total number of refresh attempts
	RefreshCount int `json:"refreshCount"`
}
