package chart

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fund-breakdown/internal/models"
)

func TestRenderer_DrawProducesSVG(t *testing.T) {
	r := NewRenderer(NewLoader(""), 0, 0)
	in, err := r.Draw(context.Background(), models.Sectors{{Name: "Tech", Weight: 70}, {Name: "Energy", Weight: 30}}, 1024)
	require.NoError(t, err)

	svg := string(in.SVG())
	assert.True(t, strings.Contains(svg, "<svg"), "expected svg output")
	assert.Contains(t, svg, "Tech")
	assert.Equal(t, 1, r.Live())
	assert.Same(t, in, r.Current())
}

func TestRenderer_RedrawDestroysPrevious(t *testing.T) {
	r := NewRenderer(NewLoader(""), 320, 200)
	ctx := context.Background()

	first, err := r.Draw(ctx, sectorsOf(3), 0)
	require.NoError(t, err)
	second, err := r.Draw(ctx, sectorsOf(2), 0)
	require.NoError(t, err)
	third, err := r.Draw(ctx, sectorsOf(4), 0)
	require.NoError(t, err)

	assert.True(t, first.Destroyed())
	assert.True(t, second.Destroyed())
	assert.False(t, third.Destroyed())
	assert.Nil(t, first.SVG())
	assert.Equal(t, 1, r.Live())
}

func TestRenderer_EmptySectors(t *testing.T) {
	r := NewRenderer(NewLoader(""), 100, 80)
	in, err := r.Draw(context.Background(), models.Sectors{}, 0)
	require.NoError(t, err)
	assert.Contains(t, string(in.SVG()), `width="100"`)
	assert.Empty(t, in.Config().Data.Labels)
}

func TestRenderer_LoadFailureKeepsCurrent(t *testing.T) {
	good := NewLoader("")
	r := NewRenderer(good, 0, 0)
	prev, err := r.Draw(context.Background(), sectorsOf(2), 0)
	require.NoError(t, err)

	bad := NewLoader("/fonts/x.ttf")
	bad.read = func(string) ([]byte, error) { return nil, errors.New("gone") }
	r.loader = bad

	_, err = r.Draw(context.Background(), sectorsOf(3), 0)
	require.Error(t, err)
	assert.False(t, prev.Destroyed())
	assert.Same(t, prev, r.Current())
	assert.Equal(t, 1, r.Live())
}

func TestRenderer_Destroy(t *testing.T) {
	r := NewRenderer(NewLoader(""), 0, 0)
	in, err := r.Draw(context.Background(), sectorsOf(1), 0)
	require.NoError(t, err)

	r.Destroy()
	assert.True(t, in.Destroyed())
	assert.Nil(t, r.Current())
	assert.Equal(t, 0, r.Live())

	r.Destroy()
	assert.Equal(t, 0, r.Live())
}

func TestRenderer_SlicesCarryTooltips(t *testing.T) {
	r := NewRenderer(NewLoader(""), 0, 0)
	in, err := r.Draw(context.Background(), models.Sectors{
		{Name: "Technology", Weight: 60.123},
		{Name: "Energy", Weight: 39.877},
	}, 1024)
	require.NoError(t, err)

	svg := string(in.SVG())
	assert.Contains(t, svg, "<title>Technology: 60.12%</title><path ")
	assert.Contains(t, svg, "<title>Energy: 39.88%</title><path ")
	assert.Less(t, strings.Index(svg, "Technology: 60.12%"), strings.Index(svg, "Energy: 39.88%"))
	assert.Equal(t, 2, strings.Count(svg, "<title>"))
}

func TestRenderer_SingleSliceTooltip(t *testing.T) {
	r := NewRenderer(NewLoader(""), 0, 0)
	in, err := r.Draw(context.Background(), models.Sectors{
		{Name: "R&D", Weight: 100},
		{Name: "Cash", Weight: 0},
	}, 0)
	require.NoError(t, err)

	svg := string(in.SVG())
	assert.Contains(t, svg, "<title>R&amp;D: 100.00%</title><circle ")
	assert.Equal(t, 1, strings.Count(svg, "<title>"))
	assert.NotContains(t, svg, ">R&D<")
}

func TestWithTooltips_NoShapesLeavesInput(t *testing.T) {
	in := []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	assert.Equal(t, in, withTooltips(in, []string{"A: 1.00%"}))
	assert.Equal(t, in, withTooltips(in, nil))
}
