package render

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/matzehuels/stipple/pkg/relax"
	"github.com/matzehuels/stipple/pkg/session"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	runID  uuid.UUID
	style  Style
	params *session.Params
}

// WithRunID records the run identifier in the output.
func WithRunID(id uuid.UUID) JSONOption { return func(r *jsonRenderer) { r.runID = id } }

// WithJSONStyle records the dot style (radius and colors) in the output.
func WithJSONStyle(s Style) JSONOption { return func(r *jsonRenderer) { r.style = s } }

// WithParams records the run parameters, making the output reproducible.
func WithParams(p session.Params) JSONOption { return func(r *jsonRenderer) { r.params = &p } }

// Document is the JSON artifact layout.
type Document struct {
	RunID    string        `json:"run_id,omitempty"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Radius   float64       `json:"radius"`
	DotColor string        `json:"dot_color"`
	Stats    session.Stats `json:"stats"`
	Params   *RunParams    `json:"params,omitempty"`
	Points   [][2]float64  `json:"points"`
}

// RunParams records the parameters a document was produced with.
type RunParams struct {
	PointCount      int     `json:"points"`
	Gamma           float64 `json:"gamma"`
	Invert          bool    `json:"invert"`
	Relax           float64 `json:"relax"`
	SamplesPerPoint int     `json:"samples_per_point"`
	Seed            uint64  `json:"seed"`
}

// RenderJSON encodes the frame as an indented JSON [Document].
func RenderJSON(f Frame, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{style: DefaultStyle()}
	for _, opt := range opts {
		opt(&r)
	}
	st := r.style.withDefaults()

	doc := Document{
		Width:    f.Width,
		Height:   f.Height,
		Radius:   st.Radius(),
		DotColor: st.DotColor,
		Stats:    f.Stats,
		Points:   make([][2]float64, len(f.Points)),
	}
	if r.runID != uuid.Nil {
		doc.RunID = r.runID.String()
	}
	if p := r.params; p != nil {
		doc.Params = &RunParams{
			PointCount:      p.PointCount,
			Gamma:           p.Gamma,
			Invert:          p.Invert,
			Relax:           p.Relax,
			SamplesPerPoint: p.SamplesPerPoint,
			Seed:            p.Seed,
		}
	}
	for i, p := range f.Points {
		doc.Points[i] = [2]float64{p.X, p.Y}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ParseJSON decodes a document produced by RenderJSON.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Frame rebuilds a Frame from the document.
func (d *Document) Frame() Frame {
	f := Frame{Width: d.Width, Height: d.Height, Stats: d.Stats}
	f.Points = make([]relax.Point, len(d.Points))
	for i, p := range d.Points {
		f.Points[i] = relax.Point{X: p[0], Y: p[1]}
	}
	return f
}
