// Package worker runs background loops alongside the HTTP server.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker is a background loop with an explicit start and stop
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

type member struct {
	worker   Worker
	started  bool
	startErr error
}

// Group starts its workers together and stops them in reverse order.
// A worker that fails to start is recorded and skipped, the rest keep running.
type Group struct {
	logger *zap.Logger

	mu      sync.Mutex
	members []*member
	running bool
	cancel  context.CancelFunc
}

func NewGroup(logger *zap.Logger) *Group {
	return &Group{logger: logger}
}

// Add registers w. Workers added while the group runs start on the next Run.
func (g *Group) Add(w Worker) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = append(g.members, &member{worker: w})
	g.logger.Debug("Worker added", zap.String("worker", w.Name()), zap.Int("size", len(g.members)))
}

// Run starts every member under a context derived from ctx
func (g *Group) Run(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return errors.New("worker group already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.running = true

	for _, m := range g.members {
		m.startErr = m.worker.Start(runCtx)
		m.started = m.startErr == nil
		if m.startErr != nil {
			g.logger.Error("Worker failed to start", zap.String("worker", m.worker.Name()), zap.Error(m.startErr))
			continue
		}
		g.logger.Info("Worker started", zap.String("worker", m.worker.Name()))
	}
	return nil
}

// Shutdown cancels the run context and stops started members, last first
func (g *Group) Shutdown() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return nil
	}
	g.running = false
	g.cancel()

	var errs []error
	for i := len(g.members) - 1; i >= 0; i-- {
		m := g.members[i]
		if !m.started {
			continue
		}
		m.started = false
		if err := m.worker.Stop(); err != nil {
			g.logger.Error("Worker failed to stop", zap.String("worker", m.worker.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", m.worker.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered workers
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

func (g *Group) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Failed names the members whose last Start returned an error
func (g *Group) Failed() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var names []string
	for _, m := range g.members {
		if m.startErr != nil {
			names = append(names, m.worker.Name())
		}
	}
	return names
}
