package etl

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const maxPreCheckWorkers = 10

// Endpoint is one source connection to verify before a job starts.
type Endpoint struct {
	Name  string
	Check func(ctx context.Context) error
}

// PreCheck runs every endpoint check on a pool of min(len, 10) workers and
// waits for all of them. The first failure in endpoint order is returned.
// If ctx ends first, PreCheck stops waiting and returns ctx.Err().
func PreCheck(ctx context.Context, endpoints []Endpoint) error {
	if len(endpoints) == 0 {
		return nil
	}

	errs := make([]error, len(endpoints))
	var g errgroup.Group
	g.SetLimit(min(len(endpoints), maxPreCheckWorkers))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, ep := range endpoints {
			i, ep := i, ep
			g.Go(func() error {
				errs[i] = ep.Check(ctx)
				return nil
			})
		}
		g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("pre-check %s: %w", endpoints[i].Name, err)
		}
	}
	return nil
}
