package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	topicPrefix  = "/topics/"
	triggersPath = "/refresh-triggers"
)

// TriggerDescriptor is one event returned by the fake trigger endpoint
type TriggerDescriptor struct {
	Type       string   `json:"type"`
	Components []string `json:"components"`
}

// MockBackend is a feature backend that records refresh calls per topic and
// serves the external trigger endpoint
type MockBackend struct {
	server *httptest.Server

	mu           sync.Mutex
	calls        map[string]int
	failing      map[string]bool
	triggers     []TriggerDescriptor
	triggerPolls int
}

// NewMockBackend starts a new backend; call Close when done
func NewMockBackend() *MockBackend {
	b := &MockBackend{
		calls:   make(map[string]int),
		failing: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(topicPrefix, b.handleRefresh)
	mux.HandleFunc(triggersPath, b.handleTriggers)
	b.server = httptest.NewServer(mux)
	return b
}

func (b *MockBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, topicPrefix), "/refresh")
	_, _ = io.Copy(io.Discard, r.Body)

	b.mu.Lock()
	b.calls[topic]++
	fail := b.failing[topic]
	b.mu.Unlock()

	if fail {
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *MockBackend) handleTriggers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.triggerPolls++
	triggers := b.triggers
	b.triggers = nil
	b.mu.Unlock()

	if triggers == nil {
		triggers = []TriggerDescriptor{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  true,
		"triggers": triggers,
	})
}

// TopicURL returns the refresh URL of topic on this backend
func (b *MockBackend) TopicURL(topic string) string {
	return b.server.URL + topicPrefix + topic + "/refresh"
}

// TriggersURL returns the URL of the external trigger endpoint
func (b *MockBackend) TriggersURL() string {
	return b.server.URL + triggersPath
}

// Calls returns how often topic was refreshed
func (b *MockBackend) Calls(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[topic]
}

// TriggerPolls returns how often the trigger endpoint was polled
func (b *MockBackend) TriggerPolls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.triggerPolls
}

// Reset clears every recorded call
func (b *MockBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = make(map[string]int)
	b.triggerPolls = 0
}

// SetFailing makes refreshes of topic answer 500
func (b *MockBackend) SetFailing(topic string, failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[topic] = failing
}

// QueueTriggers makes the next poll of the trigger endpoint return triggers
func (b *MockBackend) QueueTriggers(triggers ...TriggerDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggers = append(b.triggers, triggers...)
}

// Close shuts the backend down
func (b *MockBackend) Close() {
	b.server.Close()
}
