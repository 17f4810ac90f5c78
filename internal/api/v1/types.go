package v1

import (
	"time"

	"github.com/stacklok/toolhive-refresh-server/internal/status"
)

// ActivityRequest reports one interaction signal
type ActivityRequest struct {
	Signal string `json:"signal"`
}

// ActivityResponse is the current activity state
type ActivityResponse struct {
	Active       bool      `json:"active"`
	LastActivity time.Time `json:"lastActivity"`
}

// VisibilityRequest sets the visibility of a topic
type VisibilityRequest struct {
	Visible *bool `json:"visible"`
}

// VisibilityResponse echoes the visibility applied to a topic
type VisibilityResponse struct {
	Topic   string `json:"topic"`
	Visible bool   `json:"visible"`
}

// RefreshResponse lists the topics a trigger refreshed
type RefreshResponse struct {
	Reason    string   `json:"reason"`
	Refreshed []string `json:"refreshed"`
}

// QueueResponse acknowledges a debounced refresh
type QueueResponse struct {
	Topic string `json:"topic"`
	Delay string `json:"delay"`
}

// TopicResponse describes one registered topic
type TopicResponse struct {
	Topic               string              `json:"topic"`
	Background          bool                `json:"background"`
	Visible             bool                `json:"visible"`
	Phase               status.RefreshPhase `json:"phase"`
	Message             string              `json:"message,omitempty"`
	LastReason          string              `json:"lastReason,omitempty"`
	LastAttempt         *time.Time          `json:"lastAttempt,omitempty"`
	LastRefreshTime     *time.Time          `json:"lastRefreshTime,omitempty"`
	ConsecutiveFailures int                 `json:"consecutiveFailures"`
	RefreshCount        int                 `json:"refreshCount"`
}

// TopicsResponse lists every registered topic in registration order
type TopicsResponse struct {
	Topics []TopicResponse `json:"topics"`
	Total  int             `json:"total"`
}

// GraphResponse is the configured dependency table
type GraphResponse struct {
	Graph map[string][]string `json:"graph"`
}
