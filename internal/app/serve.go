package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API and, when enabled, the scheduler until ctx is
// cancelled or the listener fails.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config.Server
	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      a.Server().Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan struct{})
	if a.Config.Schedule.Enabled {
		sched, err := a.Scheduler()
		if err != nil {
			return err
		}
		go func() {
			defer close(schedDone)
			_ = sched.Run(ctx)
		}()
	} else {
		close(schedDone)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("budget guardian started", "listen", cfg.Listen, "scheduler", a.Config.Schedule.Enabled)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("shutdown error: %w", err)
		}
	}

	cancel()
	<-schedDone
	a.Logger.Info("budget guardian stopped")
	return serveErr
}
