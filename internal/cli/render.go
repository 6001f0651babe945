package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	stippleio "github.com/matzehuels/stipple/pkg/io"
	"github.com/matzehuels/stipple/pkg/pipeline"
	"github.com/matzehuels/stipple/pkg/session"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file, or directory when rendering several images
	jobs    int    // images processed concurrently
	noCache bool   // bypass the artifact cache entirely
	refresh bool   // recompute even when cached artifacts exist
	flags   optionFlags
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	ro := renderOpts{jobs: runtime.NumCPU()}

	cmd := &cobra.Command{
		Use:   "render IMAGE...",
		Short: "Stipple one or more images",
		Long: `Render stipples each image and writes the requested formats next to it.

With several formats, --output is used as a base path and gets one extension
per format. With several images, --output names a directory.`,
		Example: `  stipple render cat.jpg
  stipple render cat.jpg -f svg,png --points 8000 --gamma 1.5 -o out/cat.svg
  stipple render photos/*.jpg -o out/ --jobs 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ro.flags.apply(cmd.Flags(), c.Config.Options())
			if err != nil {
				return err
			}
			opts.Refresh = ro.refresh
			opts.Logger = loggerFromContext(cmd.Context())
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}

			runner, err := c.newRunner(ro.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			if len(args) == 1 {
				return runRenderSingle(cmd.Context(), runner, args[0], ro.output, opts)
			}
			return runRenderBatch(cmd.Context(), runner, args, asDir(ro.output), ro.jobs, opts)
		},
	}

	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output file, base path, or directory (default: next to input)")
	cmd.Flags().IntVarP(&ro.jobs, "jobs", "j", ro.jobs, "images to process concurrently")
	cmd.Flags().BoolVar(&ro.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&ro.refresh, "refresh", false, "ignore cached artifacts and recompute")
	ro.flags.register(cmd.Flags(), true)

	return cmd
}

// runRenderSingle stipples one image behind a spinner that tracks the
// relaxation steps.
func runRenderSingle(ctx context.Context, runner *pipeline.Runner, input, output string, opts pipeline.Options) error {
	name := filepath.Base(input)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Stippling %s", name))
	spinner.Start()

	opts.OnStep = func(st session.Stats) {
		spinner.Update(fmt.Sprintf("Stippling %s (%d/%d)", name, st.Iteration, opts.Iterations))
	}

	result, paths, err := stippleFile(ctx, runner, input, output, opts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("%s: %v", name, err))
		return err
	}

	spinner.StopWithSuccess(fmt.Sprintf("Stippled %s", name))
	for _, p := range paths {
		printFile(p)
	}
	printStats(result)
	return nil
}

// runRenderBatch stipples several images with at most jobs in flight.
// A failing image is reported and counted; the others keep going.
func runRenderBatch(ctx context.Context, runner *pipeline.Runner, inputs []string, outDir string, jobs int, opts pipeline.Options) error {
	if err := checkOutputs(inputs, outDir, opts.Formats); err != nil {
		return err
	}
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, jobs))

	var (
		mu     sync.Mutex
		failed int
	)
	for _, input := range inputs {
		g.Go(func() error {
			result, paths, err := stippleFile(ctx, runner, input, outDir, opts)
			if ctx.Err() != nil {
				return ctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				printError("%s: %v", input, err)
				return nil
			}
			printSuccess("Stippled %s", filepath.Base(input))
			for _, p := range paths {
				printFile(p)
			}
			printStats(result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(inputs))
	}
	prog.done(fmt.Sprintf("Stippled %d images", len(inputs)))
	return nil
}

// stippleFile loads input, runs the pipeline, and writes every artifact.
// It returns the written paths in format order.
func stippleFile(ctx context.Context, runner *pipeline.Runner, input, output string, opts pipeline.Options) (*pipeline.Result, []string, error) {
	img, err := stippleio.Load(input)
	if err != nil {
		return nil, nil, err
	}

	result, err := runner.Execute(ctx, img, opts)
	if err != nil {
		return nil, nil, err
	}

	multi := len(opts.Formats) > 1
	paths := make([]string, 0, len(opts.Formats))
	for _, format := range opts.Formats {
		path := stippleio.OutputPath(input, output, format, multi)
		if err := stippleio.WriteFile(path, result.Artifacts[format]); err != nil {
			return nil, nil, err
		}
		paths = append(paths, path)
	}
	return result, paths, nil
}

// checkOutputs fails when two inputs would write the same file, such as
// a/cat.jpg and b/cat.jpg rendered into one directory.
func checkOutputs(inputs []string, outDir string, formats []string) error {
	multi := len(formats) > 1
	owner := make(map[string]string, len(inputs)*len(formats))
	for _, input := range inputs {
		for _, format := range formats {
			path := filepath.Clean(stippleio.OutputPath(input, outDir, format, multi))
			if prev, ok := owner[path]; ok {
				if prev == input {
					return fmt.Errorf("%s is listed more than once", input)
				}
				return fmt.Errorf("%s and %s would both write %s", prev, input, path)
			}
			owner[path] = input
		}
	}
	return nil
}

// asDir marks a non-empty output path as a directory.
func asDir(out string) string {
	if out == "" || strings.HasSuffix(out, string(filepath.Separator)) {
		return out
	}
	return out + string(filepath.Separator)
}
