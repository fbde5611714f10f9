package chart

import (
	"fmt"

	"github.com/bobmcallan/fund-breakdown/internal/models"
)

// NarrowBreakpoint is the viewport width below which the compact legend
// preset applies.
const NarrowBreakpoint = 768

// FontFamily is the chart font stack used by the browser renderer.
const FontFamily = "'Berkeley Mono', monospace"

// Palette colours slices by index, wrapping after the last entry.
var Palette = []string{
	"#0366d6", "#28a745", "#6f42c1", "#f6a580", "#d79922", "#959da5",
	"#586069", "#2188ff", "#34d058", "#8a63d2", "#f08080",
}

// Color returns the palette colour for slice i.
func Color(i int) string {
	return Palette[i%len(Palette)]
}

// Preset holds the legend layout for a viewport class.
type Preset struct {
	Position string
	FontSize int
	BoxWidth int
	Padding  int
}

var (
	narrowPreset = Preset{Position: "bottom", FontSize: 10, BoxWidth: 12, Padding: 10}
	widePreset   = Preset{Position: "right", FontSize: 12, BoxWidth: 16, Padding: 15}
)

// PresetFor picks the legend preset for a viewport width. Zero means the
// width is unknown and gets the wide preset.
func PresetFor(width int) Preset {
	if width > 0 && width < NarrowBreakpoint {
		return narrowPreset
	}
	return widePreset
}

// TooltipLabel formats a slice tooltip as "label: 12.34%".
func TooltipLabel(label string, value float64) string {
	return fmt.Sprintf("%s: %.2f%%", label, value)
}

// Config is a Chart.js pie chart configuration.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
}

type Options struct {
	Responsive          bool    `json:"responsive"`
	MaintainAspectRatio bool    `json:"maintainAspectRatio"`
	Plugins             Plugins `json:"plugins"`
}

type Plugins struct {
	Legend  Legend  `json:"legend"`
	Tooltip Tooltip `json:"tooltip"`
}

type Legend struct {
	Position string       `json:"position"`
	Labels   LegendLabels `json:"labels"`
}

type LegendLabels struct {
	Font     Font `json:"font"`
	BoxWidth int  `json:"boxWidth"`
	Padding  int  `json:"padding"`
}

type Font struct {
	Family string `json:"family"`
	Size   int    `json:"size"`
}

// Tooltip carries the preformatted label for each slice, since a JSON
// config cannot hold Chart.js callbacks.
type Tooltip struct {
	Labels []string `json:"labels"`
}

// BuildConfig maps a sector breakdown to a pie config for the given
// viewport width.
func BuildConfig(sectors models.Sectors, viewportWidth int) Config {
	p := PresetFor(viewportWidth)

	labels := sectors.Names()
	data := sectors.Weights()
	colors := make([]string, len(sectors))
	tips := make([]string, len(sectors))
	for i, s := range sectors {
		colors[i] = Color(i)
		tips[i] = TooltipLabel(s.Name, s.Weight)
	}

	return Config{
		Type: "pie",
		Data: Data{
			Labels:   labels,
			Datasets: []Dataset{{Data: data, BackgroundColor: colors, BorderWidth: 1}},
		},
		Options: Options{
			Responsive:          true,
			MaintainAspectRatio: false,
			Plugins: Plugins{
				Legend: Legend{
					Position: p.Position,
					Labels: LegendLabels{
						Font:     Font{Family: FontFamily, Size: p.FontSize},
						BoxWidth: p.BoxWidth,
						Padding:  p.Padding,
					},
				},
				Tooltip: Tooltip{Labels: tips},
			},
		},
	}
}
