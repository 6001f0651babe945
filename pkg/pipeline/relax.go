package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/stipple/pkg/observability"
	"github.com/matzehuels/stipple/pkg/session"
)

// Relax builds a session for in and runs it to opts.Iterations.
// A cancelled context stops the run between steps and returns ctx.Err().
func Relax(ctx context.Context, in Input, opts Options) (*session.Session, error) {
	hooks := observability.Relax()

	start := time.Now()
	s, err := session.New(in.Pixels, opts.Params())
	if err != nil {
		return nil, err
	}
	f := s.Field()
	hooks.OnFieldBuilt(ctx, f.Width, f.Height, f.Total, f.Degenerate, time.Since(start))
	if f.Degenerate {
		opts.Logger.Warn("image has no density, sampling uniformly", "gamma", opts.Gamma, "invert", opts.Invert)
	}

	runStart := time.Now()
	err = s.Run(ctx, opts.Iterations, func(st session.Stats) {
		hooks.OnStep(ctx, st.Iteration, st.Samples, st.LastStep)
		opts.Logger.Debug("relaxation step",
			"iteration", st.Iteration,
			"samples", st.Samples,
			"duration", st.LastStep)
		if opts.OnStep != nil {
			opts.OnStep(st)
		}
	})
	hooks.OnRunComplete(ctx, s.Stats().Iteration, s.Stats().PointCount, time.Since(runStart), err)
	if err != nil {
		return nil, err
	}
	return s, nil
}
