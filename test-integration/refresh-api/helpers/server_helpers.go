package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/onsi/gomega"

	v1 "github.com/stacklok/toolhive-refresh-server/internal/api/v1"
	refreshapp "github.com/stacklok/toolhive-refresh-server/internal/app"
	"github.com/stacklok/toolhive-refresh-server/internal/config"
)

// ServerTestHelper manages the refresh API server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	address    string
	baseURL    string
	httpClient *http.Client
	app        *refreshapp.RefreshApp
}

// NewServerTestHelper creates a new server test helper listening on a free port
func NewServerTestHelper(ctx context.Context, configPath string) (*ServerTestHelper, error) {
	address, err := freeAddress()
	if err != nil {
		return nil, err
	}

	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    address,
		baseURL:    "http://" + address,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func freeAddress() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to reserve a port: %w", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		return "", fmt.Errorf("failed to release port: %w", err)
	}
	return addr, nil
}

// StartServer starts the refresh API server programmatically
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath), config.WithoutEnv())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := refreshapp.NewRefreshApp(s.ctx,
		refreshapp.WithConfig(cfg),
		refreshapp.WithAddress(s.address),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	s.app = app

	// Start the server in a goroutine (non-blocking)
	go func() {
		if err := app.Start(); err != nil {
			// The test will fail when it tries to connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the refresh API server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits until the scheduler runs and the server answers
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 50*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// GetBaseURL returns the base URL of the server
func (s *ServerTestHelper) GetBaseURL() string {
	return s.baseURL
}

// PostActivity reports one interaction signal
func (s *ServerTestHelper) PostActivity(signal string) {
	s.do(http.MethodPost, "/v1/activity", v1.ActivityRequest{Signal: signal}, http.StatusOK, nil)
}

// GetActivity returns the current activity state
func (s *ServerTestHelper) GetActivity() v1.ActivityResponse {
	var resp v1.ActivityResponse
	s.do(http.MethodGet, "/v1/activity", nil, http.StatusOK, &resp)
	return resp
}

// RefreshTopic calls POST /v1/topics/{topic}/refresh
func (s *ServerTestHelper) RefreshTopic(topic string) v1.RefreshResponse {
	var resp v1.RefreshResponse
	s.do(http.MethodPost, "/v1/topics/"+topic+"/refresh", nil, http.StatusOK, &resp)
	return resp
}

// RefreshRelated calls POST /v1/topics/{topic}/related
func (s *ServerTestHelper) RefreshRelated(topic string) v1.RefreshResponse {
	var resp v1.RefreshResponse
	s.do(http.MethodPost, "/v1/topics/"+topic+"/related", nil, http.StatusOK, &resp)
	return resp
}

// QueueRefresh calls POST /v1/topics/{topic}/queue with delay
func (s *ServerTestHelper) QueueRefresh(topic string, delay time.Duration) {
	path := fmt.Sprintf("/v1/topics/%s/queue?delay=%s", topic, delay)
	s.do(http.MethodPost, path, nil, http.StatusAccepted, nil)
}

// SetVisibility calls PUT /v1/topics/{topic}/visibility
func (s *ServerTestHelper) SetVisibility(topic string, visible bool) {
	s.do(http.MethodPut, "/v1/topics/"+topic+"/visibility", v1.VisibilityRequest{Visible: &visible}, http.StatusOK, nil)
}

// GetTopics calls GET /v1/topics
func (s *ServerTestHelper) GetTopics() v1.TopicsResponse {
	var resp v1.TopicsResponse
	s.do(http.MethodGet, "/v1/topics", nil, http.StatusOK, &resp)
	return resp
}

func (s *ServerTestHelper) do(method, path string, body any, wantStatus int, out any) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.baseURL+path, reader)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	gomega.Expect(resp.StatusCode).To(gomega.Equal(wantStatus), "%s %s: %s", method, path, string(data))

	if out != nil {
		gomega.Expect(json.Unmarshal(data, out)).To(gomega.Succeed())
	}
}
