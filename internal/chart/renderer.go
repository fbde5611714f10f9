package chart

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/fund-breakdown/internal/models"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 400
)

// Instance is one drawn chart. It stays valid until destroyed.
type Instance struct {
	config    Config
	svg       []byte
	owner     *Renderer
	destroyed bool
}

// Config returns the Chart.js config the instance was drawn from.
func (in *Instance) Config() Config { return in.config }

// SVG returns the drawing, or nil once destroyed.
func (in *Instance) SVG() []byte {
	in.owner.mu.Lock()
	defer in.owner.mu.Unlock()
	if in.destroyed {
		return nil
	}
	return in.svg
}

// Destroyed reports whether the instance has been released.
func (in *Instance) Destroyed() bool {
	in.owner.mu.Lock()
	defer in.owner.mu.Unlock()
	return in.destroyed
}

// Renderer owns the single chart drawn into one results area.
type Renderer struct {
	loader *Loader
	width  int
	height int

	mu      sync.Mutex
	current *Instance
	live    int
}

// NewRenderer returns a renderer drawing width x height pies. Non-positive
// sizes fall back to the defaults.
func NewRenderer(loader *Loader, width, height int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Renderer{loader: loader, width: width, height: height}
}

// Current returns the live instance, if any.
func (r *Renderer) Current() *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Live returns the number of instances not yet destroyed.
func (r *Renderer) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Draw replaces the current chart with one for sectors. The font is loaded
// first, so a load failure leaves the existing chart in place.
func (r *Renderer) Draw(ctx context.Context, sectors models.Sectors, viewportWidth int) (*Instance, error) {
	font, err := r.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	cfg := BuildConfig(sectors, viewportWidth)
	preset := PresetFor(viewportWidth)

	var svg []byte
	if drawable(sectors) {
		pie := gochart.PieChart{
			Width:  r.width,
			Height: r.height,
			Font:   font,
			Background: gochart.Style{
				Padding: gochart.Box{Top: 10, Left: 10, Right: 10, Bottom: 10},
			},
			Values: make([]gochart.Value, len(sectors)),
		}
		var tips []string
		for i, s := range sectors {
			if s.Weight > 0 {
				tips = append(tips, TooltipLabel(s.Name, s.Weight))
			}
			pie.Values[i] = gochart.Value{
				Label: html.EscapeString(s.Name),
				Value: s.Weight,
				Style: gochart.Style{
					FillColor:   drawing.ColorFromHex(strings.TrimPrefix(Color(i), "#")),
					StrokeColor: drawing.ColorWhite,
					StrokeWidth: 1,
					FontSize:    float64(preset.FontSize),
				},
			}
		}
		var buf bytes.Buffer
		if err := pie.Render(gochart.SVG, &buf); err != nil {
			return nil, fmt.Errorf("chart render failed: %w", err)
		}
		svg = withTooltips(buf.Bytes(), tips)
	} else {
		svg = []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"></svg>`, r.width, r.height))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && !r.current.destroyed {
		r.current.destroyed = true
		r.live--
	}
	in := &Instance{config: cfg, svg: svg, owner: r}
	r.current = in
	r.live++
	return in, nil
}

// Destroy releases the current chart.
func (r *Renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && !r.current.destroyed {
		r.current.destroyed = true
		r.live--
	}
	r.current = nil
}

// drawable reports whether a pie can be drawn; go-chart needs a positive total.
func drawable(sectors models.Sectors) bool {
	total := 0.0
	for _, s := range sectors {
		if s.Weight > 0 {
			total += s.Weight
		}
	}
	return total > 0
}

// withTooltips wraps each pie slice in a group carrying a <title>. go-chart
// draws the slices in value order, after the background boxes and before any
// label text, so the slices are the last len(tips) shapes ahead of the first
// <text>. A single value is drawn as a circle.
func withTooltips(svg []byte, tips []string) []byte {
	if len(tips) == 0 {
		return svg
	}
	body := string(svg)
	end := strings.Index(body, "<text")
	if end < 0 {
		end = strings.LastIndex(body, "</svg>")
	}
	if end < 0 {
		return svg
	}

	type span struct{ start, end int }
	var shapes []span
	for i := 0; i < end; {
		next := -1
		for _, tag := range []string{"<path ", "<circle "} {
			if j := strings.Index(body[i:end], tag); j >= 0 && (next < 0 || j < next) {
				next = j
			}
		}
		if next < 0 {
			break
		}
		start := i + next
		closing := strings.Index(body[start:end], "/>")
		if closing < 0 {
			break
		}
		shapes = append(shapes, span{start, start + closing + 2})
		i = start + closing + 2
	}
	if len(shapes) < len(tips) {
		return svg
	}
	shapes = shapes[len(shapes)-len(tips):]

	var out strings.Builder
	out.Grow(len(body) + len(tips)*48)
	last := 0
	for i, sh := range shapes {
		out.WriteString(body[last:sh.start])
		out.WriteString("<g><title>")
		out.WriteString(html.EscapeString(tips[i]))
		out.WriteString("</title>")
		out.WriteString(body[sh.start:sh.end])
		out.WriteString("</g>")
		last = sh.end
	}
	out.WriteString(body[last:])
	return []byte(out.String())
}
