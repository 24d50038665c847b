// seehuhn.de/go/portray - rendering of styled geospatial data
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package renderer

import (
	"errors"
	"fmt"
	"image"
	"iter"
	"slices"
	"sync"

	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/symbolizer"
)

// ErrNoRenderer is returned by FindRenderer if no renderer is registered
// for the capability of a symbolizer.
var ErrNoRenderer = errors.New("no renderer found")

// Presentation is a single paint operation.
type Presentation interface {
	Paint(ctx *Context)
}

// Renderer produces presentations for features.
type Renderer interface {
	// Presentations returns the paint operations for one feature of the
	// named layer.  The result only depends on the feature and on the
	// context the renderer was created for.
	Presentations(layer string, f feature.Feature) iter.Seq[Presentation]
}

// CoverageRenderer is a Renderer which can also paint coverage data.
type CoverageRenderer interface {
	Renderer

	// Blit paints a buffer whose pixel (0, 0) lies at canvas pixel at.
	// Void pixels are not painted.
	Blit(buf *coverage.Buffer, at image.Point) error
}

// Factory creates a renderer for a compiled symbolizer.
type Factory func(c *symbolizer.Cached, ctx *Context) (Renderer, error)

// Registry maps capabilities to renderer factories.  It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[symbolizer.Capability]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[symbolizer.Capability]Factory)}
}

// NewDefaultRegistry returns a registry with the built-in renderers for
// marks, lines, polygons, text and rasters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(symbolizer.Mark, newMarkRenderer)
	r.Register(symbolizer.Line, newLineRenderer)
	r.Register(symbolizer.Polygon, newPolygonRenderer)
	r.Register(symbolizer.Text, newTextRenderer)
	r.Register(symbolizer.Raster, newRasterRenderer)
	return r
}

// Register installs f as the factory for capability c, replacing any
// previous factory.
func (r *Registry) Register(c symbolizer.Capability, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[c] = f
}

// Capabilities lists the registered capabilities in increasing order.
func (r *Registry) Capabilities() []symbolizer.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	caps := make([]symbolizer.Capability, 0, len(r.factories))
	for c := range r.factories {
		caps = append(caps, c)
	}
	slices.Sort(caps)
	return caps
}

// FindRenderer returns a renderer for c, bound to ctx.
func (r *Registry) FindRenderer(c *symbolizer.Cached, ctx *Context) (Renderer, error) {
	r.mu.RLock()
	f := r.factories[c.Capability]
	r.mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("%w: %s symbolizer of rule %q", ErrNoRenderer, c.Capability, c.Owner)
	}
	return f(c, ctx)
}
