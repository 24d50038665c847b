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

// Package renderer turns compiled symbolizers into paint operations.
//
// Renderers are looked up by the capability of a compiled symbolizer, so
// that different symbolizer types with the same painting needs share one
// implementation.  A renderer is bound to one symbolizer and one Context.
// For every candidate feature it produces a sequence of presentations,
// which are then painted onto the canvas of the context.
package renderer

import (
	"fmt"
	"image"

	"github.com/paulmach/orb"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/portray/grid"
	"seehuhn.de/go/portray/raster"
	"seehuhn.de/go/portray/resample"
)

// Context is the state of one rendering call.  A Context must not be used
// by more than one goroutine.
type Context struct {
	// Grid is the objective grid.  Pixel (i, j) of Grid is pixel (i, j)
	// of Canvas.
	Grid   grid.Geometry
	Canvas *image.RGBA

	Interpolation    resample.Interpolation
	Antialias        bool
	ScaleDenominator float64

	// Project maps data coordinates into the CRS of Grid.  Nil means
	// that no transformation is needed.
	Project orb.Projection

	// Shift is added to the first coordinate after projection.  It is
	// used to paint copies of the data which lie across the antimeridian.
	Shift float64

	toPixel matrix.Matrix
	painter *raster.Painter
}

// NewContext returns a context which paints onto canvas.  The canvas must
// have the size of the grid.
func NewContext(objective grid.Geometry, canvas *image.RGBA) (*Context, error) {
	if err := objective.Validate(); err != nil {
		return nil, err
	}
	b := canvas.Bounds()
	if b.Min != (image.Point{}) || b.Dx() != objective.Width || b.Dy() != objective.Height {
		return nil, fmt.Errorf("canvas %v does not match %dx%d grid",
			b, objective.Width, objective.Height)
	}
	inv, err := objective.CRSToGrid()
	if err != nil {
		return nil, err
	}
	return &Context{
		Grid:      objective,
		Canvas:    canvas,
		Antialias: true,
		toPixel:   inv,
		painter:   raster.NewPainter(canvas),
	}, nil
}

// ToPixel maps a data point to canvas pixel coordinates.
func (ctx *Context) ToPixel(p orb.Point) vec.Vec2 {
	if ctx.Project != nil {
		p = ctx.Project(p)
	}
	x, y := grid.Apply(ctx.toPixel, p[0]+ctx.Shift, p[1])
	return vec.Vec2{X: x, Y: y}
}

// Painter returns the painter for the canvas, configured for the current
// antialiasing mode.
func (ctx *Context) Painter() *raster.Painter {
	ctx.painter.Antialias = ctx.Antialias
	return ctx.painter
}
