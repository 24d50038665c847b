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

// Package style holds the immutable style trees which describe how data
// is portrayed.  A Style is a list of rules; each rule selects candidates
// and lists the symbolizers used to paint them.
//
// Style trees are produced by a style parser or built in code, and must not
// be modified once rendering has started.  The identity of a symbolizer
// (its pointer) is used as a cache key by the renderer.
package style

import (
	"image/color"

	"seehuhn.de/go/pdf/graphics"
)

// Style is a named list of rules.
type Style struct {
	Name  string
	Rules []*Rule
}

// Rule selects candidates and paints them with its symbolizers, in order.
type Rule struct {
	Name   string
	Filter Filter

	// The rule is used if MinScale <= scale denominator < MaxScale.
	// A zero MaxScale means no upper limit.
	MinScale, MaxScale float64

	Symbolizers []Symbolizer
}

// InScale reports whether r is active at the given scale denominator.
func (r *Rule) InScale(denom float64) bool {
	if denom < r.MinScale {
		return false
	}
	return r.MaxScale <= 0 || denom < r.MaxScale
}

// Applies reports whether the candidate passes the rule filter.
func (r *Rule) Applies(c Candidate) bool {
	return r.Filter == nil || r.Filter.Match(c)
}

// Symbolizer is one of *PointSymbolizer, *LineSymbolizer,
// *PolygonSymbolizer, *TextSymbolizer and *RasterSymbolizer.
type Symbolizer interface {
	isSymbolizer()
}

// Stroke describes the outline of a shape.  Widths are in pixels.
type Stroke struct {
	Color      color.NRGBA
	Width      Expression // default 1
	Opacity    Expression // default 1
	Dash       []float64
	DashOffset float64
	Cap        graphics.LineCapStyle
	Join       graphics.LineJoinStyle
}

// Fill describes the interior of a shape.
type Fill struct {
	Color   color.NRGBA
	Opacity Expression // default 1
}

// Offset is a pair of expressions, used for anchor points and
// displacements.  Nil components take the default value.
type Offset struct {
	X, Y Expression
}

// Mark is a well-known shape, filled and stroked.
type Mark struct {
	Shape  string // circle, square, triangle, star, cross or x
	Fill   *Fill
	Stroke *Stroke
}

// Graphic is a point symbol.  If Marks is empty, External names an image
// to use instead.
type Graphic struct {
	Marks    []Mark
	External string

	Size     Expression // in pixels, default 6
	Rotation Expression // in degrees, clockwise
	Opacity  Expression

	// Anchor is the point of the symbol placed at the feature location,
	// relative to the symbol bounding box.  The default is (0.5, 0.5).
	Anchor Offset

	// Displacement moves the symbol, in pixels.  Positive Y is up.
	Displacement Offset
}

// PointSymbolizer paints a graphic at each point of a geometry.
type PointSymbolizer struct {
	Graphic Graphic
}

// LineSymbolizer strokes the lines of a geometry.
type LineSymbolizer struct {
	Stroke *Stroke

	// PerpendicularOffset shifts the line sideways, in pixels.  Positive
	// values move the line to the left of its direction.
	PerpendicularOffset Expression
}

// PolygonSymbolizer fills and strokes the polygons of a geometry.
type PolygonSymbolizer struct {
	Fill         *Fill
	Stroke       *Stroke
	Displacement Offset
}

// Halo is a ring painted around label glyphs.
type Halo struct {
	Radius float64
	Fill   Fill
}

// TextSymbolizer places a label at the representative point of a geometry.
type TextSymbolizer struct {
	Label        Expression
	Size         Expression // font size in pixels, default 10
	Fill         *Fill
	Halo         *Halo
	Anchor       Offset
	Displacement Offset

	// Transform changes the case of the label: "upper", "lower" or "title".
	Transform string
}

// RasterSymbolizer paints coverage data.
type RasterSymbolizer struct {
	Opacity Expression

	// Channels selects the bands used for grey (one entry) or RGB (three
	// entries) output.  If nil, one band is used as grey, three bands as
	// RGB and four bands as RGBA.
	Channels []int

	// ColorMap maps the values of a single band to colours.
	ColorMap *ColorMap
}

func (*PointSymbolizer) isSymbolizer()   {}
func (*LineSymbolizer) isSymbolizer()    {}
func (*PolygonSymbolizer) isSymbolizer() {}
func (*TextSymbolizer) isSymbolizer()    {}
func (*RasterSymbolizer) isSymbolizer()  {}
