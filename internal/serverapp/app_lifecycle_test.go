package serverapp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/config"
	"storefront-api/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "info", Format: "text"})
}

func TestWaitForStop(t *testing.T) {
	t.Run("signal unblocks cleanly", func(t *testing.T) {
		app := &App{logger: testLogger()}
		stop := make(chan os.Signal, 1)
		stop <- syscall.SIGTERM

		reason, err := app.WaitForStop(stop, make(chan error, 1))
		require.NoError(t, err)
		assert.Equal(t, "signal", reason)
	})

	t.Run("server failure surfaces the error", func(t *testing.T) {
		app := &App{logger: testLogger()}
		serverErrors := make(chan error, 1)
		serverErrors <- errors.New("boom")

		reason, err := app.WaitForStop(make(chan os.Signal, 1), serverErrors)
		require.Error(t, err)
		assert.ErrorContains(t, err, "boom")
		assert.Equal(t, "server_error", reason)
	})

	t.Run("nothing to wait on is an error", func(t *testing.T) {
		app := &App{logger: testLogger()}
		_, err := app.WaitForStop(nil, nil)
		require.Error(t, err)
	})
}

func TestShutdownRunsCleanupOnce(t *testing.T) {
	app := &App{logger: testLogger()}
	var calls int32
	app.cleanup.push("counter", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, app.Shutdown(ctx))
	require.NoError(t, app.Shutdown(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStartRequiresInit(t *testing.T) {
	app := &App{logger: testLogger()}
	_, err := app.Start()
	require.Error(t, err)
}

func TestStartThenShutdown(t *testing.T) {
	app := &App{
		cfg:         &config.Config{},
		logger:      testLogger(),
		serverAddr:  "127.0.0.1:0",
		srv:         &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()},
		initialized: true,
	}
	app.cleanup.push("HTTP server", func(ctx context.Context) error {
		return app.srv.Shutdown(ctx)
	})

	_, err := app.Start()
	require.NoError(t, err)

	// Start on a running app hands back the same channel instead of
	// spawning a second listener.
	first := app.serverErrors
	again, err := app.Start()
	require.NoError(t, err)
	assert.Equal(t, (<-chan error)(first), again)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
}

func TestFailedInitLeavesAppUninitialized(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     1, // nothing listens here
			User:     "root",
			Password: "invalid",
			Database: "storefront_test",
			Pool: config.PoolConfig{
				MaxOpen:     1,
				MaxIdle:     1,
				MaxLifetime: time.Second,
			},
			ConnectionTimeout:       0,
			ConnectionRetryInterval: 10 * time.Millisecond,
		},
		Server: config.ServerConfig{
			Port:            18089,
			DefaultPageSize: 10,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
			ShutdownTimeout: time.Second,
		},
		Observability: config.ObservabilityConfig{
			ServiceName:    "storefront-api",
			ServiceVersion: "test",
			Environment:    "test",
			Logging:        config.LoggingConfig{Level: "info", Format: "text"},
		},
	}

	app, err := New(cfg, testLogger())
	require.NoError(t, err)

	require.Error(t, app.Init(context.Background()))

	app.stateMu.Lock()
	defer app.stateMu.Unlock()
	assert.False(t, app.initialized)
}
