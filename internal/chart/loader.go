// Package chart builds and draws the sector breakdown pie chart.
package chart

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	gochart "github.com/wcharczuk/go-chart/v2"
)

// Loader makes the chart font available before the first draw. A loaded
// font is kept for the life of the process. Callers that arrive while a
// load is running wait for that load instead of starting another one.
// Failures are returned to every waiter and the next call tries again.
type Loader struct {
	path string
	read func(string) ([]byte, error)

	mu       sync.Mutex
	font     *truetype.Font
	inflight *loadCall
}

type loadCall struct {
	done chan struct{}
	font *truetype.Font
	err  error
}

// NewLoader returns a loader for the TrueType font at path. An empty path
// uses go-chart's bundled font.
func NewLoader(path string) *Loader {
	return &Loader{path: path, read: os.ReadFile}
}

// Loaded reports whether the font is already available.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.font != nil
}

// Load returns the font, loading it on first use.
func (l *Loader) Load(ctx context.Context) (*truetype.Font, error) {
	l.mu.Lock()
	if l.font != nil {
		f := l.font
		l.mu.Unlock()
		return f, nil
	}
	call := l.inflight
	if call == nil {
		call = &loadCall{done: make(chan struct{})}
		l.inflight = call
		go l.run(call)
	}
	l.mu.Unlock()

	select {
	case <-call.done:
		return call.font, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) run(call *loadCall) {
	f, err := l.parse()

	l.mu.Lock()
	if err == nil {
		l.font = f
	}
	l.inflight = nil
	l.mu.Unlock()

	call.font, call.err = f, err
	close(call.done)
}

func (l *Loader) parse() (*truetype.Font, error) {
	if l.path == "" {
		f, err := gochart.GetDefaultFont()
		if err != nil {
			return nil, fmt.Errorf("failed to load default chart font: %w", err)
		}
		return f, nil
	}
	data, err := l.read(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart font %s: %w", l.path, err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chart font %s: %w", l.path, err)
	}
	return f, nil
}
