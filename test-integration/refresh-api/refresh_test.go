package integration

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-refresh-server/internal/scheduler"
	"github.com/stacklok/toolhive-refresh-server/internal/status"
	"github.com/stacklok/toolhive-refresh-server/test-integration/refresh-api/helpers"
)

// startServer writes the configuration, starts the server and registers its cleanup
func startServer(backend *helpers.MockBackend, opts helpers.ConfigOptions) *helpers.ServerTestHelper {
	tempDir := createTempDir("refresh-test-")
	DeferCleanup(cleanupTempDir, tempDir)

	configFile := helpers.WriteConfigYAML(tempDir, backend, opts)
	serverHelper, err := helpers.NewServerTestHelper(ctx, configFile)
	Expect(err).NotTo(HaveOccurred())

	Expect(serverHelper.StartServer()).To(Succeed())
	DeferCleanup(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
	})

	serverHelper.WaitForServerReady(5 * time.Second)
	return serverHelper
}

func topicStatus(server *helpers.ServerTestHelper, topic string) (phase status.RefreshPhase, reason string, failures int) {
	for _, t := range server.GetTopics().Topics {
		if t.Topic == topic {
			return t.Phase, t.LastReason, t.ConsecutiveFailures
		}
	}
	Fail("topic " + topic + " is not registered")
	return "", "", 0
}

var _ = Describe("Background refresh passes", Label("background"), func() {
	var backend *helpers.MockBackend

	BeforeEach(func() {
		backend = helpers.NewMockBackend()
		DeferCleanup(backend.Close)
	})

	It("refreshes background topics only", func() {
		startServer(backend, helpers.ConfigOptions{
			Scheduler: helpers.FastScheduler(),
			Topics: []helpers.TopicOptions{
				{Name: "indicators"},
				{Name: "reports", Background: helpers.BoolPtr(false)},
			},
		})

		Eventually(func() int { return backend.Calls("indicators") }, 5*time.Second, 50*time.Millisecond).
			Should(BeNumerically(">=", 1))
		Consistently(func() int { return backend.Calls("reports") }, time.Second, 100*time.Millisecond).
			Should(BeZero())
	})

	It("skips hidden topics", func() {
		server := startServer(backend, helpers.ConfigOptions{
			Scheduler: helpers.FastScheduler(),
			Topics: []helpers.TopicOptions{
				{Name: "indicators"},
				{Name: "dashboard", Visible: helpers.BoolPtr(false)},
			},
		})

		Eventually(func() int { return backend.Calls("indicators") }, 5*time.Second, 50*time.Millisecond).
			Should(BeNumerically(">=", 1))
		Expect(backend.Calls("dashboard")).To(BeZero())

		By("making the dashboard visible")
		server.SetVisibility("dashboard", true)
		Eventually(func() int { return backend.Calls("dashboard") }, 5*time.Second, 50*time.Millisecond).
			Should(BeNumerically(">=", 1))
	})

	It("keeps refreshing the other topics when one fails", func() {
		backend.SetFailing("users", true)
		server := startServer(backend, helpers.ConfigOptions{
			Scheduler: helpers.FastScheduler(),
			Topics: []helpers.TopicOptions{
				{Name: "indicators"},
				{Name: "users"},
				{Name: "assets"},
			},
		})

		Eventually(func() int { return backend.Calls("assets") }, 5*time.Second, 50*time.Millisecond).
			Should(BeNumerically(">=", 2))
		Expect(backend.Calls("indicators")).To(BeNumerically(">=", 2))

		phase, _, failures := topicStatus(server, "users")
		Expect(phase).To(Equal(status.RefreshPhaseFailed))
		Expect(failures).To(BeNumerically(">=", 2))

		phase, reason, _ := topicStatus(server, "assets")
		Expect(phase).To(Equal(status.RefreshPhaseComplete))
		Expect(reason).To(Equal(scheduler.ReasonBackground))
	})

	It("pauses while the user is inactive", func() {
		timing := helpers.FastScheduler()
		timing.InactivityThreshold = "300ms"
		server := startServer(backend, helpers.ConfigOptions{
			Scheduler:        timing,
			ExternalTriggers: true,
			Topics:           []helpers.TopicOptions{{Name: "indicators"}},
		})

		Eventually(func() bool { return server.GetActivity().Active }, 5*time.Second, 50*time.Millisecond).
			Should(BeFalse())

		// let a pass that started before the cutoff finish
		time.Sleep(100 * time.Millisecond)
		backend.Reset()

		Consistently(func() int { return backend.Calls("indicators") + backend.TriggerPolls() }, time.Second, 100*time.Millisecond).
			Should(BeZero())

		By("reporting activity")
		server.PostActivity("pointer")
		Eventually(func() int { return backend.Calls("indicators") }, 5*time.Second, 50*time.Millisecond).
			Should(BeNumerically(">=", 1))
		Expect(backend.TriggerPolls()).To(BeNumerically(">=", 1))
	})
})

var _ = Describe("On-demand refreshes", Label("trigger"), func() {
	var (
		backend *helpers.MockBackend
		server  *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		backend = helpers.NewMockBackend()
		DeferCleanup(backend.Close)

		timing := helpers.FastScheduler()
		timing.BackgroundInterval = "1h"
		server = startServer(backend, helpers.ConfigOptions{
			Scheduler: timing,
			DependencyGraph: map[string][]string{
				"threat-feeds": {"indicators", "dashboard"},
			},
			Topics: []helpers.TopicOptions{
				{Name: "indicators"},
				{Name: "dashboard", Background: helpers.BoolPtr(false)},
				{Name: "users"},
			},
		})
	})

	It("refreshes a single topic", func() {
		resp := server.RefreshTopic("users")
		Expect(resp.Refreshed).To(Equal([]string{"users"}))
		Expect(backend.Calls("users")).To(Equal(1))
	})

	It("ignores unknown topics", func() {
		resp := server.RefreshTopic("unknown")
		Expect(resp.Refreshed).To(BeEmpty())
	})

	It("fans out to related topics only", func() {
		resp := server.RefreshRelated("threat-feeds")
		Expect(resp.Refreshed).To(Equal([]string{"indicators", "dashboard"}))

		Expect(backend.Calls("indicators")).To(Equal(1))
		Expect(backend.Calls("dashboard")).To(Equal(1))
		Expect(backend.Calls("users")).To(BeZero())
	})

	It("collapses a burst of queued refreshes", func() {
		for range 5 {
			server.QueueRefresh("indicators", 300*time.Millisecond)
			time.Sleep(50 * time.Millisecond)
		}

		Eventually(func() int { return backend.Calls("indicators") }, 5*time.Second, 50*time.Millisecond).
			Should(Equal(1))
		Consistently(func() int { return backend.Calls("indicators") }, time.Second, 100*time.Millisecond).
			Should(Equal(1))
	})
})

var _ = Describe("External triggers", Label("external"), func() {
	It("refreshes the components announced by the backend", func() {
		backend := helpers.NewMockBackend()
		DeferCleanup(backend.Close)

		backend.QueueTriggers(
			helpers.TriggerDescriptor{Type: "feed_update", Components: []string{"dashboard"}},
			helpers.TriggerDescriptor{Type: "noop"},
		)
		server := startServer(backend, helpers.ConfigOptions{
			Scheduler:        helpers.FastScheduler(),
			ExternalTriggers: true,
			Topics: []helpers.TopicOptions{
				{Name: "indicators"},
				{Name: "dashboard", Background: helpers.BoolPtr(false)},
			},
		})

		Eventually(func() int { return backend.Calls("dashboard") }, 5*time.Second, 50*time.Millisecond).
			Should(Equal(1))

		_, reason, _ := topicStatus(server, "dashboard")
		Expect(reason).To(Equal("backend_trigger:feed_update"))

		// triggers are consumed by the first poll
		Consistently(func() int { return backend.Calls("dashboard") }, time.Second, 100*time.Millisecond).
			Should(Equal(1))
	})
})
