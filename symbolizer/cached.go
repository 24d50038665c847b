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

package symbolizer

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/pdf/graphics"

	"seehuhn.de/go/portray/style"
)

// Capability classifies compiled symbolizers by the kind of rendering they
// need.  Renderers are registered per capability.
type Capability int

// These are the capabilities produced by the compiler.
const (
	Mark Capability = iota + 1
	ExternalGraphic
	Line
	Polygon
	Text
	Raster
)

func (c Capability) String() string {
	switch c {
	case Mark:
		return "mark"
	case ExternalGraphic:
		return "external-graphic"
	case Line:
		return "line"
	case Polygon:
		return "polygon"
	case Text:
		return "text"
	case Raster:
		return "raster"
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// Default values used when an expression is absent.
const (
	DefaultMarkSize    = 6
	DefaultStrokeWidth = 1
	DefaultFontSize    = 10
)

// CompiledMark is a mark whose shape has been realised.
type CompiledMark struct {
	Shape  *path.Data // fits into [-0.5, 0.5]², scaled by the graphic size
	Fill   *style.Fill
	Stroke *style.Stroke
}

// Cached is the compiled form of one symbolizer.
//
// A Cached is created in the "compiled" state.  Evaluate moves it to the
// "evaluated" state exactly once; the evaluated data is read-only
// afterwards.
type Cached struct {
	Source     style.Symbolizer
	Owner      string // name of the owning rule
	Capability Capability

	// The normalised parts of the symbolizer.  Which fields are set
	// depends on the capability.
	Stroke              *style.Stroke
	Fill                *style.Fill
	Graphic             *style.Graphic
	Text                *style.TextSymbolizer
	Raster              *style.RasterSymbolizer
	Displacement        style.Offset
	PerpendicularOffset style.Expression

	once      sync.Once
	evaluated atomic.Bool
	err       error
	marks     []CompiledMark
	margin    float64
}

func compile(sym style.Symbolizer, owner string) (*Cached, error) {
	c := &Cached{Source: sym, Owner: owner}
	fail := func(format string, args ...any) (*Cached, error) {
		return nil, fmt.Errorf("%w: rule %q: %s", ErrCompile, owner, fmt.Sprintf(format, args...))
	}

	switch s := sym.(type) {
	case *style.PointSymbolizer:
		g := &s.Graphic
		switch {
		case len(g.Marks) > 0:
			c.Capability = Mark
		case g.External != "":
			c.Capability = ExternalGraphic
		default:
			return fail("graphic without marks")
		}
		if size, ok := style.Float(g.Size, nil, DefaultMarkSize); ok && size < 0 {
			return fail("negative mark size %g", size)
		}
		c.Graphic = g
		c.Displacement = g.Displacement

	case *style.LineSymbolizer:
		if s.Stroke == nil {
			return fail("line symbolizer without stroke")
		}
		c.Capability = Line
		c.Stroke = s.Stroke
		c.PerpendicularOffset = s.PerpendicularOffset

	case *style.PolygonSymbolizer:
		switch {
		case s.Fill != nil:
			c.Capability = Polygon
		case s.Stroke != nil:
			// outlines only need a line renderer
			c.Capability = Line
		default:
			return fail("polygon symbolizer without fill and stroke")
		}
		c.Fill = s.Fill
		c.Stroke = s.Stroke
		c.Displacement = s.Displacement

	case *style.TextSymbolizer:
		if s.Label == nil {
			return fail("text symbolizer without label")
		}
		c.Capability = Text
		c.Text = s
		c.Fill = s.Fill
		c.Displacement = s.Displacement

	case *style.RasterSymbolizer:
		if m := s.ColorMap; m != nil {
			sorted := slices.IsSortedFunc(m.Entries, func(a, b style.ColorMapEntry) int {
				switch {
				case a.Quantity < b.Quantity:
					return -1
				case a.Quantity > b.Quantity:
					return 1
				}
				return 0
			})
			if !sorted {
				return fail("colour map entries are not sorted")
			}
		}
		if n := len(s.Channels); n != 0 && n != 1 && n != 3 {
			return fail("%d channels selected", n)
		}
		c.Capability = Raster
		c.Raster = s

	default:
		return fail("unsupported symbolizer %T", sym)
	}

	if c.Stroke != nil {
		if w, ok := style.Float(c.Stroke.Width, nil, DefaultStrokeWidth); ok && w < 0 {
			return fail("negative stroke width %g", w)
		}
	}
	return c, nil
}

// Evaluate realises the compiled symbolizer.  The work is done on the first
// call only; later calls return the first result.
func (c *Cached) Evaluate() error {
	c.once.Do(func() {
		c.err = c.evaluate()
		c.evaluated.Store(true)
	})
	return c.err
}

// Evaluated reports whether Evaluate has completed.
func (c *Cached) Evaluated() bool {
	return c.evaluated.Load()
}

func (c *Cached) evaluate() error {
	if c.Capability == Mark {
		for _, m := range c.Graphic.Marks {
			shape, err := MarkShape(m.Shape)
			if err != nil {
				return fmt.Errorf("%w: rule %q: %w", ErrUnusable, c.Owner, err)
			}
			c.marks = append(c.marks, CompiledMark{Shape: shape, Fill: m.Fill, Stroke: m.Stroke})
		}
	}
	c.margin = c.Margin(nil)
	return nil
}

// Marks returns the realised marks of a point symbolizer.
// Evaluate must have been called successfully.
func (c *Cached) Marks() []CompiledMark {
	return c.marks
}

// StaticMargin returns the margin which holds for all candidates, or NaN if
// the margin depends on the candidate or the symbolizer cannot be
// evaluated.
func (c *Cached) StaticMargin() float64 {
	if c.Evaluate() != nil {
		return math.NaN()
	}
	return c.margin
}

// Margin returns the number of pixels by which painting a candidate can
// extend beyond the candidate geometry.  NaN is returned if the margin
// cannot be determined; callers must then not reduce their read region.
// If cand is nil, only constant expressions are used.
func (c *Cached) Margin(cand style.Candidate) float64 {
	switch c.Capability {
	case Mark, ExternalGraphic:
		return c.markMargin(cand)

	case Line:
		half, ok := halfWidth(c.Stroke, cand)
		if !ok {
			return math.NaN()
		}
		off, ok := style.Float(c.PerpendicularOffset, cand, 0)
		if !ok {
			return math.NaN()
		}
		disp, ok := displacement(c.Displacement, cand)
		if !ok {
			return math.NaN()
		}
		return half + math.Abs(off) + disp

	case Polygon:
		half, ok := halfWidth(c.Stroke, cand)
		if !ok {
			return math.NaN()
		}
		disp, ok := displacement(c.Displacement, cand)
		if !ok {
			return math.NaN()
		}
		return half + disp

	case Raster:
		return 0
	}

	// label extents are only known after layout
	return math.NaN()
}

// halfWidth returns how far a stroke can reach beyond its path.  Square
// caps and miter joins reach further than half the line width at corners.
func halfWidth(s *style.Stroke, cand style.Candidate) (float64, bool) {
	w, ok := strokeWidth(s, cand)
	if !ok {
		return 0, false
	}
	half := w / 2
	if s != nil && (s.Cap == graphics.LineCapSquare || s.Join == graphics.LineJoinMiter) {
		half *= math.Sqrt2
	}
	return half, true
}

// markMargin computes the margin of a point symbol.  The symbol occupies a
// box of side S+2W, where S is the size and W the widest mark stroke.
// Displacement and anchor offsets are added for the axis where they are
// largest.
func (c *Cached) markMargin(cand style.Candidate) float64 {
	g := c.Graphic
	size, ok := style.Float(g.Size, cand, DefaultMarkSize)
	if !ok {
		return math.NaN()
	}
	var w float64
	for _, m := range g.Marks {
		if m.Stroke == nil {
			continue
		}
		mw, ok := strokeWidth(m.Stroke, cand)
		if !ok {
			return math.NaN()
		}
		w = max(w, mw)
	}
	box := size + 2*w

	rot, ok := style.Float(g.Rotation, cand, 0)
	if !ok {
		return math.NaN()
	}
	if math.Mod(rot, 90) != 0 {
		box *= math.Sqrt2
	}

	disp, ok := displacement(g.Displacement, cand)
	if !ok {
		return math.NaN()
	}
	ax, okX := style.Float(g.Anchor.X, cand, 0.5)
	ay, okY := style.Float(g.Anchor.Y, cand, 0.5)
	if !okX || !okY {
		return math.NaN()
	}
	anchor := max(math.Abs(ax-0.5), math.Abs(ay-0.5)) * box

	return box/2 + disp + anchor
}

func strokeWidth(s *style.Stroke, cand style.Candidate) (float64, bool) {
	if s == nil {
		return 0, true
	}
	return style.Float(s.Width, cand, DefaultStrokeWidth)
}

func displacement(d style.Offset, cand style.Candidate) (float64, bool) {
	dx, okX := style.Float(d.X, cand, 0)
	dy, okY := style.Float(d.Y, cand, 0)
	return max(math.Abs(dx), math.Abs(dy)), okX && okY
}

// Visible reports whether painting cand would produce any output.
func (c *Cached) Visible(cand style.Candidate) bool {
	switch c.Capability {
	case Mark, ExternalGraphic:
		size, ok := style.Float(c.Graphic.Size, cand, DefaultMarkSize)
		op, okOp := style.Float(c.Graphic.Opacity, cand, 1)
		return ok && okOp && size > 0 && op > 0
	case Line:
		w, ok := strokeWidth(c.Stroke, cand)
		return ok && w > 0 && opaque(c.Stroke.Opacity, cand)
	case Polygon:
		if opaque(c.Fill.Opacity, cand) && c.Fill.Color.A > 0 {
			return true
		}
		if c.Stroke == nil {
			return false
		}
		w, ok := strokeWidth(c.Stroke, cand)
		return ok && w > 0 && opaque(c.Stroke.Opacity, cand)
	case Text:
		label, ok := style.String(c.Text.Label, cand)
		return ok && label != ""
	case Raster:
		return opaque(c.Raster.Opacity, cand)
	}
	return false
}

func opaque(e style.Expression, cand style.Candidate) bool {
	op, ok := style.Float(e, cand, 1)
	return ok && op > 0
}
