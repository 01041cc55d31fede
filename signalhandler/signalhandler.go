package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"phototriage/logging"
)

// SetupHandler returns a context cancelled on the first SIGINT or SIGTERM so
// a running scan can stop and flush its results. A second signal exits
// immediately. The returned cancel func releases the handler.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	released := make(chan struct{})
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logging.LogWarning("received %s, finishing current work and saving results", sig)
			cancel()
		case <-ctx.Done():
			return
		case <-released:
			return
		}

		select {
		case <-sigChan:
			logging.LogError("second signal, exiting without saving")
			os.Exit(130)
		case <-released:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(released)
			cancel()
		})
	}
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	// cgo-heavy image work degrades past this
	maxProcs := (runtime.NumCPU() * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}
	return maxProcs
}

// ResolveWorkers maps a configured worker count to the effective one: zero or
// negative means GetOptimalProcs.
func ResolveWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	return GetOptimalProcs()
}
