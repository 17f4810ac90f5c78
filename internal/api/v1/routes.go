// Package v1 provides the REST handlers through which front-ends drive the
// refresh scheduler.
package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-refresh-server/internal/activity"
	"github.com/stacklok/toolhive-refresh-server/internal/api/common"
	"github.com/stacklok/toolhive-refresh-server/internal/graph"
	"github.com/stacklok/toolhive-refresh-server/internal/scheduler"
	"github.com/stacklok/toolhive-refresh-server/internal/sources"
)

//go:generate mockgen -destination=mocks/mock_routes.go -package=mocks -source=routes.go Scheduler,ActivityTracker,VisibilityController

// Default diagnostic reasons used when the caller does not pass ?reason=
const (
	ReasonAPIRefresh = "api_refresh"
	ReasonAPIRelated = "api_related"
	ReasonAPIVisible = "api_refresh_visible"
)

// Scheduler is the part of the scheduler exposed over HTTP
type Scheduler interface {
	TriggerImmediate(ctx context.Context, reason string, topics ...string) []string
	TriggerRelated(ctx context.Context, source, reason string) []string
	QueueRefresh(topic string, delay time.Duration) time.Duration
	RefreshAllVisible(ctx context.Context, reason string) []string
	Topics() []scheduler.TopicInfo
	Graph() *graph.Graph
}

// ActivityTracker receives interaction signals
type ActivityTracker interface {
	Touch(signal activity.Signal)
	IsActive() bool
	LastActivity() time.Time
}

// VisibilityController toggles the visibility of configured topics
type VisibilityController interface {
	SetVisible(topic string, visible bool) error
}

// Routes holds the v1 handlers and their collaborators
type Routes struct {
	scheduler  Scheduler
	activity   ActivityTracker
	visibility VisibilityController
}

// NewRoutes creates the v1 routes
func NewRoutes(s Scheduler, a ActivityTracker, v VisibilityController) *Routes {
	return &Routes{
		scheduler:  s,
		activity:   a,
		visibility: v,
	}
}

// Router creates the router for the v1 API
func (rr *Routes) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/activity", rr.postActivity)
	r.Get("/activity", rr.getActivity)

	r.Get("/topics", rr.listTopics)
	r.Route("/topics/{topic}", func(r chi.Router) {
		r.Put("/visibility", rr.putVisibility)
		r.Post("/refresh", rr.refreshTopic)
		r.Post("/related", rr.refreshRelated)
		r.Post("/queue", rr.queueRefresh)
	})

	r.Post("/refresh-visible", rr.refreshVisible)
	r.Get("/graph", rr.getGraph)

	return r
}

// postActivity handles POST /v1/activity
func (rr *Routes) postActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Signal == "" {
		common.WriteErrorResponse(w, "signal is required", http.StatusBadRequest)
		return
	}

	rr.activity.Touch(activity.Signal(req.Signal))
	rr.writeActivity(w)
}

// getActivity handles GET /v1/activity
func (rr *Routes) getActivity(w http.ResponseWriter, _ *http.Request) {
	rr.writeActivity(w)
}

func (rr *Routes) writeActivity(w http.ResponseWriter) {
	common.WriteJSONResponse(w, ActivityResponse{
		Active:       rr.activity.IsActive(),
		LastActivity: rr.activity.LastActivity(),
	}, http.StatusOK)
}

// listTopics handles GET /v1/topics
func (rr *Routes) listTopics(w http.ResponseWriter, _ *http.Request) {
	infos := rr.scheduler.Topics()

	resp := TopicsResponse{
		Topics: make([]TopicResponse, 0, len(infos)),
		Total:  len(infos),
	}
	for _, info := range infos {
		resp.Topics = append(resp.Topics, TopicResponse{
			Topic:               info.Topic,
			Background:          info.Background,
			Visible:             info.Visible,
			Phase:               info.Status.Phase,
			Message:             info.Status.Message,
			LastReason:          info.Status.LastReason,
			LastAttempt:         info.Status.LastAttempt,
			LastRefreshTime:     info.Status.LastRefreshTime,
			ConsecutiveFailures: info.Status.ConsecutiveFailures,
			RefreshCount:        info.Status.RefreshCount,
		})
	}

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

// putVisibility handles PUT /v1/topics/{topic}/visibility
func (rr *Routes) putVisibility(w http.ResponseWriter, r *http.Request) {
	topic, err := common.TopicParam(r, "topic")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req VisibilityRequest
	if err := common.DecodeJSONBody(w, r, &req); err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Visible == nil {
		common.WriteErrorResponse(w, "visible is required", http.StatusBadRequest)
		return
	}

	if err := rr.visibility.SetVisible(topic, *req.Visible); err != nil {
		if errors.Is(err, sources.ErrUnknownTopic) {
			common.WriteErrorResponse(w, "Topic not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to update topic visibility", "topic", topic, "error", err)
		common.WriteErrorResponse(w, "Failed to update topic visibility", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, VisibilityResponse{Topic: topic, Visible: *req.Visible}, http.StatusOK)
}

// refreshTopic handles POST /v1/topics/{topic}/refresh
func (rr *Routes) refreshTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := common.TopicParam(r, "topic")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	reason := common.ReasonParam(r, ReasonAPIRefresh)
	refreshed := rr.scheduler.TriggerImmediate(r.Context(), reason, topic)
	common.WriteJSONResponse(w, RefreshResponse{Reason: reason, Refreshed: refreshed}, http.StatusOK)
}

// refreshRelated handles POST /v1/topics/{topic}/related
func (rr *Routes) refreshRelated(w http.ResponseWriter, r *http.Request) {
	source, err := common.TopicParam(r, "topic")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	reason := common.ReasonParam(r, ReasonAPIRelated)
	refreshed := rr.scheduler.TriggerRelated(r.Context(), source, reason)
	common.WriteJSONResponse(w, RefreshResponse{Reason: reason, Refreshed: refreshed}, http.StatusOK)
}

// queueRefresh handles POST /v1/topics/{topic}/queue
func (rr *Routes) queueRefresh(w http.ResponseWriter, r *http.Request) {
	topic, err := common.TopicParam(r, "topic")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	delay, err := common.DurationParam(r, "delay")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	effective := rr.scheduler.QueueRefresh(topic, delay)
	common.WriteJSONResponse(w, QueueResponse{Topic: topic, Delay: effective.String()}, http.StatusAccepted)
}

// refreshVisible handles POST /v1/refresh-visible
func (rr *Routes) refreshVisible(w http.ResponseWriter, r *http.Request) {
	reason := common.ReasonParam(r, ReasonAPIVisible)
	refreshed := rr.scheduler.RefreshAllVisible(r.Context(), reason)
	if refreshed == nil {
		refreshed = []string{}
	}
	common.WriteJSONResponse(w, RefreshResponse{Reason: reason, Refreshed: refreshed}, http.StatusOK)
}

// getGraph handles GET /v1/graph
func (rr *Routes) getGraph(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, GraphResponse{Graph: rr.scheduler.Graph().Table()}, http.StatusOK)
}
