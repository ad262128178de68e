// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Worker is a background loop owned by the daemon. It returns when ctx is done.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

// App ties the manager to the background workers.
type App struct {
	logger  zerolog.Logger
	manager Manager
	workers []Worker
}

// NewApp creates the runtime around manager.
func NewApp(logger zerolog.Logger, manager Manager, workers ...Worker) *App {
	return &App{logger: logger, manager: manager, workers: workers}
}

// Run starts the workers and the API server and blocks until ctx is cancelled
// or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range a.workers {
		g.Go(func() error {
			a.logger.Debug().Str("worker", w.Name).Msg("worker started")
			if err := w.Run(ctx); err != nil {
				return fmt.Errorf("worker %s: %w", w.Name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// Manager returns the lifecycle manager.
func (a *App) Manager() Manager { return a.manager }
