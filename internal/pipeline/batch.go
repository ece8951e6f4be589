package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/geomap/internal/config"
)

// RunBatch runs independent map specs with at most parallel runs in flight.
// A failing map does not stop the others. Reports are returned in spec
// order, with nil entries for failed maps, alongside the joined errors.
func (p *Pipeline) RunBatch(ctx context.Context, specs []config.MapSpec, parallel int) ([]*Report, error) {
	return p.batch(ctx, specs, parallel, p.Run)
}

// ValidateBatch is RunBatch without exporting
func (p *Pipeline) ValidateBatch(ctx context.Context, specs []config.MapSpec, parallel int) ([]*Report, error) {
	return p.batch(ctx, specs, parallel, p.Validate)
}

func (p *Pipeline) batch(ctx context.Context, specs []config.MapSpec, parallel int,
	runOne func(context.Context, config.MapSpec) (*Report, error)) ([]*Report, error) {
	if parallel < 1 {
		parallel = 1
	}

	reports := make([]*Report, len(specs))
	errs := make([]error, len(specs))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, spec := range specs {
		g.Go(func() error {
			report, err := runOne(ctx, spec)
			if err != nil {
				errs[i] = fmt.Errorf("map %q: %w", spec.Name, err)
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}
