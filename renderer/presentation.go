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
	"image/color"
	"math"

	"github.com/paulmach/orb"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/portray/grid"
	"seehuhn.de/go/portray/raster"
	"seehuhn.de/go/portray/style"
)

// Shape is a filled and stroked path, in canvas pixel coordinates.
type Shape struct {
	Path *path.Data

	Fill     color.NRGBA // not painted if transparent
	FillRule raster.FillRule

	Stroke      *raster.StrokeStyle // nil for no outline
	StrokeColor color.NRGBA
}

// Paint implements the Presentation interface.
func (s *Shape) Paint(ctx *Context) {
	p := ctx.Painter()
	p.Fill(s.Path, s.FillRule, s.Fill)
	if s.Stroke != nil {
		p.Stroke(s.Path, s.Stroke, s.StrokeColor)
	}
}

// withOpacity scales the alpha of c.
func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	opacity = max(0, min(1, opacity))
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}

// fillColor evaluates a fill for a candidate.
func fillColor(f *style.Fill, cand style.Candidate, opacity float64) color.NRGBA {
	if f == nil {
		return color.NRGBA{}
	}
	op, ok := style.Float(f.Opacity, cand, 1)
	if !ok {
		return color.NRGBA{}
	}
	return withOpacity(f.Color, op*opacity)
}

// strokeStyle evaluates a stroke for a candidate.  The second return value
// is the stroke colour.  A nil style is returned for invisible strokes.
func strokeStyle(s *style.Stroke, cand style.Candidate, opacity float64) (*raster.StrokeStyle, color.NRGBA) {
	if s == nil {
		return nil, color.NRGBA{}
	}
	w, okW := style.Float(s.Width, cand, 1)
	op, okOp := style.Float(s.Opacity, cand, 1)
	if !okW || !okOp || w <= 0 {
		return nil, color.NRGBA{}
	}
	c := withOpacity(s.Color, op*opacity)
	if c.A == 0 {
		return nil, c
	}
	return &raster.StrokeStyle{
		Width:     w,
		Cap:       s.Cap,
		Join:      s.Join,
		Dash:      s.Dash,
		DashPhase: s.DashOffset,
	}, c
}

// offset evaluates a displacement in pixels.  The Y component of styles
// points up, so it is negated for canvas coordinates.
func offset(o style.Offset, cand style.Candidate) vec.Vec2 {
	dx, _ := style.Float(o.X, cand, 0)
	dy, _ := style.Float(o.Y, cand, 0)
	return vec.Vec2{X: dx, Y: -dy}
}

// transformPath returns a copy of p with all points mapped through m.
func transformPath(p *path.Data, m matrix.Matrix) *path.Data {
	res := &path.Data{
		Cmds:   append([]path.Command(nil), p.Cmds...),
		Coords: make([]vec.Vec2, len(p.Coords)),
	}
	for i, c := range p.Coords {
		x, y := grid.Apply(m, c.X, c.Y)
		res.Coords[i] = vec.Vec2{X: x, Y: y}
	}
	return res
}

// points lists the positions at which point symbols are placed.  Lines
// and areas use the centre of their bounding box.
func points(g orb.Geometry) []orb.Point {
	switch g := g.(type) {
	case orb.Point:
		return []orb.Point{g}
	case orb.MultiPoint:
		return g
	case orb.Collection:
		var res []orb.Point
		for _, h := range g {
			res = append(res, points(h)...)
		}
		return res
	case nil:
		return nil
	default:
		return []orb.Point{g.Bound().Center()}
	}
}

// lines lists the polylines of g.  The second return value tells whether
// the corresponding polyline is a closed ring.
func lines(g orb.Geometry) ([][]orb.Point, []bool) {
	var res [][]orb.Point
	var closed []bool
	var walk func(orb.Geometry)
	walk = func(g orb.Geometry) {
		switch g := g.(type) {
		case orb.LineString:
			res = append(res, g)
			closed = append(closed, false)
		case orb.MultiLineString:
			for _, l := range g {
				walk(l)
			}
		case orb.Ring:
			res = append(res, g)
			closed = append(closed, true)
		case orb.Polygon:
			for _, r := range g {
				walk(r)
			}
		case orb.MultiPolygon:
			for _, p := range g {
				walk(p)
			}
		case orb.Bound:
			walk(g.ToRing())
		case orb.Collection:
			for _, h := range g {
				walk(h)
			}
		}
	}
	walk(g)
	return res, closed
}

// rings lists the rings of the areas in g.
func rings(g orb.Geometry) []orb.Ring {
	switch g := g.(type) {
	case orb.Ring:
		return []orb.Ring{g}
	case orb.Polygon:
		return g
	case orb.MultiPolygon:
		var res []orb.Ring
		for _, p := range g {
			res = append(res, p...)
		}
		return res
	case orb.Bound:
		return []orb.Ring{g.ToRing()}
	case orb.Collection:
		var res []orb.Ring
		for _, h := range g {
			res = append(res, rings(h)...)
		}
		return res
	}
	return nil
}

// polyline converts a list of data points into a canvas path.
func polyline(ctx *Context, p *path.Data, pts []orb.Point, closed bool, delta vec.Vec2) {
	for i, q := range pts {
		v := ctx.ToPixel(q).Add(delta)
		if i == 0 {
			p.MoveTo(v)
		} else {
			p.LineTo(v)
		}
	}
	if closed && len(pts) > 0 {
		p.Close()
	}
}
