// Package scheduler decides when and whether topics are refreshed.
//
// A single Scheduler is constructed at process start and shared by every
// feature that needs refreshed data. Features register a refresh callback per
// topic and the scheduler invokes it from four entry points:
//
//   - A low-frequency background loop (Start) that refreshes every visible
//     topic taking part in background refresh, one at a time with a fixed gap
//     between callbacks
//   - Immediate triggers (TriggerImmediate, TriggerRelated, RefreshAllVisible)
//     issued by user actions or cross-feature events
//   - Debounced triggers (QueueRefresh) that collapse bursts of requests for
//     the same topic into one refresh
//   - An optional external poller consulted at the start of every pass
//
// # Activity Gating
//
// Background ticks are skipped entirely while the user is inactive. No
// callback runs and the external poller is not contacted. Immediate triggers
// are not gated.
//
// # Pass Exclusion
//
// Background passes never overlap. A tick that fires while a pass is still
// running is skipped. Immediate triggers are independent call paths and may
// run between two callbacks of a pass; a per-topic in-flight guard makes a
// concurrent request for a topic that is already refreshing wait for, and
// share, the running invocation. The guard is keyed by subscription, so a
// topic re-subscribed mid-refresh runs its new callback right away. A shared
// invocation ignores the cancellation of the caller that started it and is
// bounded by the callback's own timeout instead.
//
// # Error Isolation
//
// Refresh callbacks never affect the caller or other subscribers. Errors and
// panics are absorbed, logged at warn level, recorded in the per-topic status
// and counted in metrics. Nothing is retried; a failed topic is attempted
// again on the next tick or trigger.
//
// # Usage Example
//
//	monitor := activity.NewMonitor()
//	sched := scheduler.New(monitor, graph.Default(), scheduler.Config{})
//
//	sched.Subscribe("indicators", refreshIndicators)
//	sched.Subscribe("dashboard", refreshDashboard,
//	    subscription.WithVisibility(dashboardVisible))
//
//	go sched.Start(ctx)
//	defer sched.Stop()
//
//	sched.TriggerRelated(ctx, "threat-feeds", "feed_saved")
package scheduler
