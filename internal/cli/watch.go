package cli

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	stippleio "github.com/matzehuels/stipple/pkg/io"
	"github.com/matzehuels/stipple/pkg/density"
	"github.com/matzehuels/stipple/pkg/pipeline"
	"github.com/matzehuels/stipple/pkg/relax"
	"github.com/matzehuels/stipple/pkg/render"
	"github.com/matzehuels/stipple/pkg/session"
)

// watchCommand creates the interactive watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		output string
		paused bool
		flags  optionFlags
	)

	cmd := &cobra.Command{
		Use:   "watch IMAGE",
		Short: "Watch the relaxation step by step",
		Long: `Watch runs the relaxation interactively and shows a coarse preview of
the point density after every step.

Keys:
  space  run / pause
  n      single step
  r      reset points
  s      reseed and reset
  i      toggle invert
  + / -  raise / lower relax by 0.1
  [ / ]  fewer / more points
  , / .  fewer / more samples per point
  d      toggle density field preview
  e      export SVG
  q      quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := flags.apply(cmd.Flags(), c.Config.Options())
			if err != nil {
				return err
			}
			opts.Logger = loggerFromContext(ctx)
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}

			img, err := stippleio.Load(args[0])
			if err != nil {
				return err
			}
			in := pipeline.Prepare(img, opts)
			s, err := session.New(in.Pixels, opts.Params())
			if err != nil {
				return err
			}

			if output == "" {
				output = stippleio.OutputPath(args[0], "", pipeline.FormatSVG, false)
			}
			m := newWatchModel(s, filepath.Base(args[0]), opts.Iterations, opts.Style(), output)
			m.running = !paused

			final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
			if err != nil {
				if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			if fm, ok := final.(watchModel); ok {
				if fm.exported != "" {
					printSuccess("Exported %s", fm.exported)
				}
				printDetail("Stopped at iteration %d with %d points", fm.stats.Iteration, fm.stats.PointCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "SVG export path (default: next to input)")
	cmd.Flags().BoolVar(&paused, "paused", false, "start paused")
	flags.register(cmd.Flags(), true)

	return cmd
}

// =============================================================================
// watchModel - Interactive relaxation driver
// =============================================================================

// Preview characters from empty to densest.
const previewRamp = " .:-=+*#%@"

// sppStep is the samples-per-point change of one , or . press.
const sppStep = 5

var (
	watchDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	watchBarStyle    = lipgloss.NewStyle().Foreground(colorCyan)
	watchStatusStyle = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
)

// stepMsg carries the result of one relaxation step run off the UI goroutine.
type stepMsg struct {
	stats  session.Stats
	points []relax.Point
}

// watchModel is the bubbletea model for the watch command.
//
// Steps run as commands on their own goroutine. While one is in flight the
// session belongs to it, so keys that touch the session are queued and
// replayed once the step reports back.
type watchModel struct {
	session *session.Session
	name    string
	style   render.Style
	output  string

	target    int // stop running at this iteration
	increment int // added to target when resuming a finished run

	running   bool
	busy      bool
	pending   []string
	showField bool // preview the density field instead of the points

	stats                session.Stats
	points               []relax.Point
	centroidX, centroidY float64
	cols                 int
	status               string
	exported             string
}

func newWatchModel(s *session.Session, name string, target int, style render.Style, output string) watchModel {
	m := watchModel{
		session:   s,
		name:      name,
		style:     style,
		output:    output,
		target:    target,
		increment: max(1, target),
		cols:      64,
	}
	m.snapshot()
	return m
}

func (m watchModel) Init() tea.Cmd {
	if m.running && m.stats.Iteration < m.target {
		return m.step()
	}
	return nil
}

// step runs one relaxation step in the background.
func (m watchModel) step() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		st := s.Step()
		return stepMsg{stats: st, points: s.Points()}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case stepMsg:
		m.busy = false
		m.stats = msg.stats
		m.points = msg.points
		if m.stats.Iteration >= m.target && m.running {
			m.running = false
			m.status = fmt.Sprintf("reached %d iterations", m.target)
		}

		var cmds []tea.Cmd
		pending := m.pending
		m.pending = nil
		for _, key := range pending {
			next, cmd := m.handleKey(key)
			m = next.(watchModel)
			cmds = append(cmds, cmd)
		}
		if m.running && !m.busy {
			m.busy = true
			cmds = append(cmds, m.step())
		}
		return m, batch(cmds)

	case tea.WindowSizeMsg:
		m.cols = max(16, min(msg.Width-4, 120))
	}
	return m, nil
}

// handleKey applies one key press.
func (m watchModel) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case " ", "space":
		m.running = !m.running
		if !m.running {
			m.status = "paused"
			return m, nil
		}
		if m.stats.Iteration >= m.target {
			m.target = m.stats.Iteration + m.increment
		}
		m.status = "running"
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.step()

	case "n":
		m.running = false
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "step"
		return m, m.step()

	case "d":
		m.showField = !m.showField
		return m, nil
	}

	// Everything below touches the session.
	if m.busy {
		switch key {
		case "r", "s", "i", "e", "+", "=", "-", "[", "]", ",", ".":
			m.pending = append(m.pending, key)
		}
		return m, nil
	}

	switch key {
	case "r":
		if err := m.session.Reset(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.snapshot()
		m.status = "reset"

	case "s":
		seed := m.session.Params().Seed + 1
		if err := m.session.Reseed(seed); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.snapshot()
		m.status = fmt.Sprintf("seed %d", seed)

	case "[", "]":
		n := m.session.Params().PointCount
		if key == "]" {
			n = min(pipeline.MaxPoints, max(n+1, n*5/4))
		} else {
			n = max(1, n*4/5)
		}
		if err := m.session.SetPointCount(n); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.snapshot()
		m.status = fmt.Sprintf("%d points", n)

	case ",", ".":
		spp := m.session.Params().SamplesPerPoint
		if key == "." {
			spp += sppStep
		} else {
			spp = max(1, spp-sppStep)
		}
		m.session.SetSamplesPerPoint(spp)
		m.stats = m.session.Stats()
		m.status = fmt.Sprintf("%d samples per point", spp)

	case "i":
		p := m.session.Params()
		if err := m.session.SetDensity(p.Gamma, !p.Invert); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.snapshot()
		m.status = fmt.Sprintf("invert %v", !p.Invert)

	case "+", "=", "-":
		delta := 0.1
		if key == "-" {
			delta = -0.1
		}
		r := max(0, min(1, m.session.Params().Relax+delta))
		m.session.SetRelax(r)
		m.status = fmt.Sprintf("relax %.1f", r)

	case "e":
		data := render.RenderSVG(render.FrameOf(m.session), render.WithStyle(m.style))
		if err := stippleio.WriteFile(m.output, data); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.exported = m.output
		m.status = "exported " + m.output
	}
	return m, nil
}

// batch combines the non-nil commands, returning a single command unwrapped.
func batch(cmds []tea.Cmd) tea.Cmd {
	var valid []tea.Cmd
	for _, c := range cmds {
		if c != nil {
			valid = append(valid, c)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	}
	return tea.Batch(valid...)
}

// snapshot refreshes the cached stats, points, and field centroid after a
// synchronous change.
func (m *watchModel) snapshot() {
	m.stats = m.session.Stats()
	m.points = m.session.Points()
	m.centroidX, m.centroidY = m.session.Field().Centroid()
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Stippling " + m.name))
	b.WriteString("\n")
	b.WriteString(watchDimStyle.Render("space run/pause  n step  r reset  s reseed  i invert  +/- relax  [/] points  ,/. samples  d field  e export  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.statsTable())
	b.WriteString("\n")
	b.WriteString(progressBar(m.stats.Iteration, m.target, 40))
	b.WriteString(watchDimStyle.Render(fmt.Sprintf(" %d/%d", m.stats.Iteration, m.target)))
	b.WriteString("\n\n")

	if m.showField {
		b.WriteString(fieldPreview(m.session.Field(), m.cols))
	} else {
		b.WriteString(densityPreview(m.points, m.session.Field(), m.cols))
	}
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(watchStatusStyle.Render(m.status))
		b.WriteString("\n")
	}
	return b.String()
}

func (m watchModel) statsTable() string {
	p := m.session.Params()
	rows := [][]string{
		{"Iteration", fmt.Sprintf("%d", m.stats.Iteration)},
		{"Points", fmt.Sprintf("%d", m.stats.PointCount)},
		{"Samples/step", fmt.Sprintf("%d (%d per point)", m.stats.Samples, p.SamplesPerPoint)},
		{"Orphans", fmt.Sprintf("%d", m.stats.Orphans)},
		{"Last step", fmt.Sprintf("%.1f ms", m.stats.LastStepMs())},
		{"Density", fmt.Sprintf("%.1f", m.stats.TotalDensity)},
		{"Gamma", fmt.Sprintf("%.2f", p.Gamma)},
		{"Relax", fmt.Sprintf("%.1f", p.Relax)},
		{"Invert", fmt.Sprintf("%v", p.Invert)},
		{"Seed", fmt.Sprintf("%d", p.Seed)},
		{"Centroid", fmt.Sprintf("(%.1f, %.1f)", m.centroidX, m.centroidY)},
	}
	if m.stats.Degenerate {
		rows = append(rows, []string{"Field", "uniform (no density)"})
	}

	keyStyle := lipgloss.NewStyle().Foreground(colorGray).PaddingRight(1)
	valueStyle := lipgloss.NewStyle().Foreground(colorWhite)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return valueStyle
		})
	return t.Render()
}

// progressBar renders done/total as a bar of the given width.
func progressBar(done, total, width int) string {
	filled := width
	if total > 0 && done < total {
		filled = width * done / total
	}
	return watchBarStyle.Render(strings.Repeat("█", filled)) +
		watchDimStyle.Render(strings.Repeat("░", width-filled))
}

// densityPreview draws the points inside f as a character grid cols wide.
// Terminal cells are about twice as tall as wide, so rows are halved to keep
// the aspect.
func densityPreview(points []relax.Point, f *density.Field, cols int) string {
	rows, ok := previewRows(f, cols)
	if !ok {
		return ""
	}
	w, h := float64(f.Width), float64(f.Height)

	grid := make([]float64, cols*rows)
	for _, p := range points {
		if !f.Contains(p.X, p.Y) {
			continue
		}
		cx := min(cols-1, int(p.X*float64(cols)/w))
		cy := min(rows-1, int(p.Y*float64(rows)/h))
		grid[cy*cols+cx]++
	}
	return rampGrid(grid, cols)
}

// fieldPreview draws the mean weight of f per cell on the same grid as
// densityPreview.
func fieldPreview(f *density.Field, cols int) string {
	rows, ok := previewRows(f, cols)
	if !ok {
		return ""
	}

	grid := make([]float64, cols*rows)
	for cy := 0; cy < rows; cy++ {
		y0 := cy * f.Height / rows
		y1 := max(y0+1, (cy+1)*f.Height/rows)
		for cx := 0; cx < cols; cx++ {
			x0 := cx * f.Width / cols
			x1 := max(x0+1, (cx+1)*f.Width/cols)
			var sum float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += f.WeightAt(x, y)
				}
			}
			grid[cy*cols+cx] = sum / float64((y1-y0)*(x1-x0))
		}
	}
	return rampGrid(grid, cols)
}

func previewRows(f *density.Field, cols int) (int, bool) {
	if f == nil || f.Width <= 0 || f.Height <= 0 || cols <= 0 {
		return 0, false
	}
	return max(1, cols*f.Height/(f.Width*2)), true
}

// rampGrid maps cell values to previewRamp, scaled so the peak cell gets the
// densest character and any non-empty cell at least the first visible one.
func rampGrid(grid []float64, cols int) string {
	peak := 0.0
	for _, v := range grid {
		peak = max(peak, v)
	}

	last := float64(len(previewRamp) - 1)
	var b strings.Builder
	b.Grow(len(grid) + len(grid)/cols)
	for i, v := range grid {
		idx := 0
		if v > 0 {
			idx = max(1, int(math.Ceil(v*last/peak)))
		}
		b.WriteByte(previewRamp[idx])
		if (i+1)%cols == 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
