package app

import (
	"github.com/stacklok/toolhive-refresh-server/internal/activity"
	"github.com/stacklok/toolhive-refresh-server/internal/scheduler"
	"github.com/stacklok/toolhive-refresh-server/internal/sources"
	"github.com/stacklok/toolhive-refresh-server/internal/trigger"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Scheduler coordinates every refresh
	Scheduler *scheduler.Scheduler

	// Monitor tracks user activity reported through the API
	Monitor *activity.Monitor

	// Poller checks the external trigger endpoint (nil when not configured)
	Poller *trigger.Poller

	// Sources backs the configured topics
	Sources *sources.Set
}
