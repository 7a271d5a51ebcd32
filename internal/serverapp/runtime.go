package serverapp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Stop reasons reported by WaitForStop.
const (
	stopReasonSignal      = "signal"
	stopReasonServerError = "server_error"
)

// Start launches the HTTP listener goroutine. Init must have completed; calling
// Start again on a running app returns the existing error channel.
func (a *App) Start() (<-chan error, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	if !a.initialized {
		return nil, errors.New("app is not initialized")
	}
	if !a.started {
		a.serverErrors = startServer(a.cfg, a.logger, a.srv, a.serverAddr)
		a.started = true
	}
	return a.serverErrors, nil
}

// WaitForStop blocks until an OS signal arrives or the server goroutine fails,
// and reports which one unblocked it. A nil serverErrors falls back to the
// channel Start produced; passing both channels as nil is an error because
// there would be nothing to wait on.
func (a *App) WaitForStop(stop <-chan os.Signal, serverErrors <-chan error) (string, error) {
	if serverErrors == nil {
		a.stateMu.Lock()
		serverErrors = a.serverErrors
		a.stateMu.Unlock()
	}

	switch {
	case stop == nil && serverErrors == nil:
		return "", errors.New("nothing to wait on: no signal channel and no running server")
	case stop == nil:
		return stopReasonServerError, serverFailure(<-serverErrors)
	case serverErrors == nil:
		a.logSignal(<-stop)
		return stopReasonSignal, nil
	}

	select {
	case err := <-serverErrors:
		return stopReasonServerError, serverFailure(err)
	case sig := <-stop:
		a.logSignal(sig)
		return stopReasonSignal, nil
	}
}

func (a *App) logSignal(sig os.Signal) {
	if a.logger != nil {
		a.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}
}

func serverFailure(err error) error {
	if err == nil {
		return errors.New("server stopped unexpectedly")
	}
	return fmt.Errorf("server failed: %w", err)
}
