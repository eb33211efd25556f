package sensor

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// RunAll runs one scheduler loop per kind and waits for all of them. Loops are
// isolated: a sensor that fails to boot is logged and recorded, the others keep
// running. The returned error combines every terminal error (see
// multierr.Errors); it is nil when all loops stopped on cancellation.
func RunAll(ctx context.Context, s *Scheduler, kinds []Kind) error {
	var (
		g    errgroup.Group
		mx   sync.Mutex
		errs error
	)
	for _, kind := range kinds {
		g.Go(func() error {
			if err := s.Run(ctx, kind); err != nil {
				s.logger.Error("sensor stopped", "sensor", kind.Name, "error", err)
				mx.Lock()
				errs = multierr.Append(errs, err)
				mx.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
