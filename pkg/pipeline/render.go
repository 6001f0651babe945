package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stipple/pkg/render"
)

// Render generates output artifacts in the requested formats. Formats are
// rendered concurrently. src is the fitted source image and is only used
// when opts.ShowSource is set.
func Render(ctx context.Context, f render.Frame, src image.Image, runID uuid.UUID, opts Options) (map[string][]byte, error) {
	var (
		mu        sync.Mutex
		artifacts = make(map[string][]byte, len(opts.Formats))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, format := range opts.Formats {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := renderFormat(f, src, runID, format, opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func renderFormat(f render.Frame, src image.Image, runID uuid.UUID, format string, opts Options) ([]byte, error) {
	style := opts.Style()

	switch format {
	case FormatSVG:
		return render.RenderSVG(f, render.WithStyle(style)), nil
	case FormatPNG:
		pngOpts := []render.PNGOption{render.WithPNGStyle(style), render.WithScale(opts.Scale)}
		if opts.ShowSource && src != nil {
			pngOpts = append(pngOpts, render.WithSource(src))
		}
		return render.RenderPNG(f, pngOpts...)
	case FormatJSON:
		return render.RenderJSON(f,
			render.WithRunID(runID),
			render.WithJSONStyle(style),
			render.WithParams(opts.Params()))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
