package serverapp

import (
	"context"
	"log/slog"

	"storefront-api/internal/logging"
)

// cleanupStack collects release hooks during Init and runs them in reverse
// order, so dependents shut down before the things they depend on.
type cleanupStack struct {
	hooks []cleanupHook
}

type cleanupHook struct {
	component string
	release   func(context.Context) error
}

func (s *cleanupStack) push(component string, release func(context.Context) error) {
	s.hooks = append(s.hooks, cleanupHook{component: component, release: release})
}

// run executes every hook even when earlier ones fail; a cleanup error is
// logged and never stops the rest of the teardown.
func (s *cleanupStack) run(ctx context.Context, logger *logging.Logger) {
	for i := len(s.hooks) - 1; i >= 0; i-- {
		hook := s.hooks[i]
		if logger != nil {
			logger.Info("shutting down " + hook.component)
		}
		if err := hook.release(ctx); err != nil && logger != nil {
			logger.Warn("cleanup error",
				slog.String("component", hook.component),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Shutdown releases everything Init acquired. Repeat calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a.shutdownOnce.Do(func() {
		a.stateMu.Lock()
		cleanup := a.cleanup
		a.started = false
		a.stateMu.Unlock()

		cleanup.run(ctx, a.logger)
	})

	return nil
}
