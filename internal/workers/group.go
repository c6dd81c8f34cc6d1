package workers

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/citation.report/internal/monitoring"
)

type drainable interface {
	Name() string
	Close()
	run(ctx context.Context) error
}

// Group owns the worker goroutines. Queue consumers are drained on Shutdown;
// pollers such as the siren run until Shutdown cancels their context, which
// happens only after every queue is empty.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	consumers errgroup.Group
	pollers   errgroup.Group

	mu     sync.Mutex
	queues []drainable
}

// NewGroup creates a group whose workers see a context derived from parent
// without its cancellation: stopping the detection loop must not abandon
// queued work.
func NewGroup(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Group{ctx: ctx, cancel: cancel}
}

// AddQueue starts q's consumer.
func (g *Group) AddQueue(q drainable) {
	g.mu.Lock()
	g.queues = append(g.queues, q)
	g.mu.Unlock()

	g.consumers.Go(func() error {
		err := q.run(g.ctx)
		monitoring.Logf("[%s] worker stopped", q.Name())
		return err
	})
}

// Go starts a polling worker that runs until Shutdown.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.pollers.Go(func() error {
		err := fn(g.ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		monitoring.Logf("[%s] worker stopped", name)
		return err
	})
}

// Shutdown closes every queue, waits until the buffered items have been
// handled, then stops the pollers and waits for them.
func (g *Group) Shutdown() error {
	g.mu.Lock()
	queues := append([]drainable(nil), g.queues...)
	g.mu.Unlock()

	for _, q := range queues {
		q.Close()
	}
	errConsumers := g.consumers.Wait()

	g.cancel()
	errPollers := g.pollers.Wait()

	return errors.Join(errConsumers, errPollers)
}
