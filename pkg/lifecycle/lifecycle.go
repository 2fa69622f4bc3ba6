// Package lifecycle coordinates startup and shutdown across subsystems.
//
// Subsystems register hooks on a shared Coordinator. Startup hooks run
// concurrently and readiness flips once all of them return. Shutdown hooks
// also run concurrently; they are expected to block on the coordinator's
// context and perform cleanup once it is cancelled.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Coordinator tracks startup and shutdown hooks and owns the process-wide
// context that shutdown cancels.
type Coordinator struct {
	root     context.Context
	halt     context.CancelFunc
	starting sync.WaitGroup
	stopping sync.WaitGroup
	ready    atomic.Bool
}

// New creates a Coordinator whose context stays live until Shutdown.
func New() *Coordinator {
	root, halt := context.WithCancel(context.Background())
	return &Coordinator{root: root, halt: halt}
}

// Context returns the coordinator's context. It is cancelled when Shutdown
// begins, which is the signal shutdown hooks wait on.
func (c *Coordinator) Context() context.Context {
	return c.root
}

// OnStartup runs fn concurrently as part of startup. Readiness is withheld
// until every registered startup hook has returned.
func (c *Coordinator) OnStartup(fn func()) {
	c.starting.Go(fn)
}

// OnShutdown runs fn concurrently for the life of the process. The hook
// should block on <-Context().Done() and then release its resources.
func (c *Coordinator) OnShutdown(fn func()) {
	c.stopping.Go(fn)
}

// Ready reports whether startup has completed.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup blocks until every startup hook has returned, then marks
// the coordinator ready.
func (c *Coordinator) WaitForStartup() {
	c.starting.Wait()
	c.ready.Store(true)
}

// Shutdown cancels the coordinator's context and waits up to timeout for
// all shutdown hooks to finish.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.halt()

	done := make(chan struct{})
	go func() {
		c.stopping.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
