package scanner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// processOrdered runs work over items on at most workers goroutines and hands
// each result to consume in item order, from the calling goroutine only. Once
// ctx is done no new work starts and consumption stops; it reports whether
// that happened before every item was consumed.
func processOrdered[T, R any](ctx context.Context, items []T, workers int, work func(T) R, consume func(int, R)) (cancelled bool) {
	if workers < 1 {
		workers = 1
	}

	// one buffered slot per item, so workers never block on a slow consumer
	slots := make([]chan R, len(items))
	for i := range slots {
		slots[i] = make(chan R, 1)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	produced := make(chan struct{})
	go func() {
		defer close(produced)
		for i := range items {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				slots[i] <- work(items[i])
				return nil
			})
		}
		_ = g.Wait()
	}()

	for i := range items {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case r := <-slots[i]:
			consume(i, r)
		case <-ctx.Done():
			cancelled = true
		}
		if cancelled {
			break
		}
	}

	<-produced
	return cancelled
}
