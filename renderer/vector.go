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
	"iter"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/raster"
	"seehuhn.de/go/portray/style"
	"seehuhn.de/go/portray/symbolizer"
)

type markRenderer struct {
	c   *symbolizer.Cached
	ctx *Context
}

func newMarkRenderer(c *symbolizer.Cached, ctx *Context) (Renderer, error) {
	if err := c.Evaluate(); err != nil {
		return nil, err
	}
	return &markRenderer{c: c, ctx: ctx}, nil
}

// Presentations implements the Renderer interface.  Every point of the
// feature gets one shape per mark.
func (r *markRenderer) Presentations(_ string, f feature.Feature) iter.Seq[Presentation] {
	return func(yield func(Presentation) bool) {
		if !r.c.Visible(f) {
			return
		}
		g := r.c.Graphic
		size, _ := style.Float(g.Size, f, symbolizer.DefaultMarkSize)
		rot, _ := style.Float(g.Rotation, f, 0)
		opacity, _ := style.Float(g.Opacity, f, 1)
		ax, _ := style.Float(g.Anchor.X, f, 0.5)
		ay, _ := style.Float(g.Anchor.Y, f, 0.5)

		// the anchor point of the symbol box is placed on the feature
		delta := offset(g.Displacement, f).Add(vec.Vec2{X: (0.5 - ax) * size, Y: (ay - 0.5) * size})
		sin, cos := math.Sincos(rot * math.Pi / 180)

		for _, p := range points(f.Geometry) {
			q := r.ctx.ToPixel(p).Add(delta)
			m := matrix.Matrix{size * cos, size * sin, -size * sin, size * cos, q.X, q.Y}
			for _, mk := range r.c.Marks() {
				sh := &Shape{
					Path:     transformPath(mk.Shape, m),
					Fill:     fillColor(mk.Fill, f, opacity),
					FillRule: raster.NonZero,
				}
				sh.Stroke, sh.StrokeColor = strokeStyle(mk.Stroke, f, opacity)
				if !yield(sh) {
					return
				}
			}
		}
	}
}

type lineRenderer struct {
	c   *symbolizer.Cached
	ctx *Context
}

func newLineRenderer(c *symbolizer.Cached, ctx *Context) (Renderer, error) {
	if err := c.Evaluate(); err != nil {
		return nil, err
	}
	return &lineRenderer{c: c, ctx: ctx}, nil
}

// Presentations implements the Renderer interface.  Every line and every
// ring of the feature is stroked separately.
func (r *lineRenderer) Presentations(_ string, f feature.Feature) iter.Seq[Presentation] {
	return func(yield func(Presentation) bool) {
		if !r.c.Visible(f) {
			return
		}
		st, col := strokeStyle(r.c.Stroke, f, 1)
		if st == nil {
			return
		}
		perp, _ := style.Float(r.c.PerpendicularOffset, f, 0)
		delta := offset(r.c.Displacement, f)

		all, closed := lines(f.Geometry)
		for i, pts := range all {
			if len(pts) < 2 {
				continue
			}
			pix := make([]vec.Vec2, len(pts))
			for k, p := range pts {
				pix[k] = r.ctx.ToPixel(p).Add(delta)
			}
			if perp != 0 {
				pix = offsetPolyline(pix, perp, closed[i])
			}

			d := &path.Data{}
			d.MoveTo(pix[0])
			for _, v := range pix[1:] {
				d.LineTo(v)
			}
			if closed[i] {
				d.Close()
			}
			if !yield(&Shape{Path: d, Stroke: st, StrokeColor: col}) {
				return
			}
		}
	}
}

// offsetPolyline moves every vertex of pts sideways by dist.  Positive
// distances move to the left of the direction of travel, which is up for
// a line running east on the canvas.
func offsetPolyline(pts []vec.Vec2, dist float64, closed bool) []vec.Vec2 {
	n := len(pts)
	normalOf := func(a, b vec.Vec2) vec.Vec2 {
		d := b.Sub(a)
		l := d.Length()
		if l == 0 {
			return vec.Vec2{}
		}
		return vec.Vec2{X: d.Y / l, Y: -d.X / l}
	}

	res := make([]vec.Vec2, n)
	for i := range pts {
		var n1, n2 vec.Vec2
		switch {
		case i > 0:
			n1 = normalOf(pts[i-1], pts[i])
		case closed:
			n1 = normalOf(pts[n-1], pts[0])
		}
		switch {
		case i < n-1:
			n2 = normalOf(pts[i], pts[i+1])
		case closed:
			n2 = normalOf(pts[n-1], pts[0])
		}
		if n1 == (vec.Vec2{}) {
			n1 = n2
		}
		if n2 == (vec.Vec2{}) {
			n2 = n1
		}

		// miter direction, limited for sharp corners
		m := n1.Add(n2)
		l := m.Length()
		if l < 1e-9 {
			res[i] = pts[i].Add(n1.Mul(dist))
			continue
		}
		m = m.Mul(1 / l)
		scale := 1 / max(m.Dot(n1), 0.25)
		res[i] = pts[i].Add(m.Mul(dist * scale))
	}
	return res
}

type polygonRenderer struct {
	c   *symbolizer.Cached
	ctx *Context
}

func newPolygonRenderer(c *symbolizer.Cached, ctx *Context) (Renderer, error) {
	if err := c.Evaluate(); err != nil {
		return nil, err
	}
	return &polygonRenderer{c: c, ctx: ctx}, nil
}

// Presentations implements the Renderer interface.  All rings of the
// feature form a single shape, so that holes stay empty.
func (r *polygonRenderer) Presentations(_ string, f feature.Feature) iter.Seq[Presentation] {
	return func(yield func(Presentation) bool) {
		if !r.c.Visible(f) {
			return
		}
		delta := offset(r.c.Displacement, f)
		d := &path.Data{}
		for _, ring := range rings(f.Geometry) {
			if len(ring) < 3 {
				continue
			}
			polyline(r.ctx, d, ring, true, delta)
		}
		if len(d.Cmds) == 0 {
			return
		}
		sh := &Shape{
			Path:     d,
			Fill:     fillColor(r.c.Fill, f, 1),
			FillRule: raster.EvenOdd,
		}
		sh.Stroke, sh.StrokeColor = strokeStyle(r.c.Stroke, f, 1)
		yield(sh)
	}
}
