package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-refresh-server/internal/config"
)

// freeAddress reserves an ephemeral port on localhost and releases it
func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func startApp(t *testing.T, app *RefreshApp) <-chan error {
	t.Helper()
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()
	return errChan
}

func TestRefreshApp_StartStop(t *testing.T) {
	t.Parallel()

	b := newBackend(t)
	addr := freeAddress(t)
	app, err := NewRefreshApp(context.Background(),
		WithConfig(testConfig(b.server.URL)),
		WithAddress(addr),
	)
	require.NoError(t, err)

	errChan := startApp(t, app)
	base := fmt.Sprintf("http://%s", addr)

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/readiness")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond, "server should become ready")

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, app.Stop(5*time.Second))

	select {
	case startErr := <-errChan:
		require.NoError(t, startErr)
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	assert.Eventually(t, func() bool {
		return app.checkReadiness(context.Background()) != nil
	}, 5*time.Second, 10*time.Millisecond, "scheduler should stop running")
}

func TestRefreshApp_StartPortInUse(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	app, err := NewRefreshApp(context.Background(),
		WithConfig(&config.Config{}),
		WithAddress(l.Addr().String()),
	)
	require.NoError(t, err)

	errChan := startApp(t, app)
	select {
	case startErr := <-errChan:
		require.Error(t, startErr)
		assert.Contains(t, startErr.Error(), "HTTP server failed")
	case <-time.After(5 * time.Second):
		t.Fatal("Start() should fail when the port is taken")
	}

	require.NoError(t, app.Stop(time.Second))
}

func TestRefreshApp_StopBeforeStart(t *testing.T) {
	t.Parallel()

	app, err := NewRefreshApp(context.Background(), WithConfig(&config.Config{}))
	require.NoError(t, err)

	require.NoError(t, app.Stop(time.Second))
	assert.Error(t, app.checkReadiness(context.Background()))
}

func TestRefreshApp_Getters(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	app, err := NewRefreshApp(context.Background(), WithConfig(cfg), WithAddress("127.0.0.1:9999"))
	require.NoError(t, err)

	assert.Same(t, cfg, app.GetConfig())
	require.NotNil(t, app.GetHTTPServer())
	assert.Equal(t, "127.0.0.1:9999", app.GetHTTPServer().Addr)
	assert.Equal(t, defaultReadTimeout, app.GetHTTPServer().ReadTimeout)
	assert.Equal(t, defaultWriteTimeout, app.GetHTTPServer().WriteTimeout)
	assert.Equal(t, defaultIdleTimeout, app.GetHTTPServer().IdleTimeout)
	require.NotNil(t, app.Components())
}
