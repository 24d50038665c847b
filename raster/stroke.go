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

package raster

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// polyline is a flattened subpath, stored as a range of Rasterizer.points.
type polyline struct {
	start, end int
	closed     bool
}

const (
	zeroLengthThreshold   = 1e-10
	collinearityThreshold = 1e-6
)

// Stroke computes the coverage of the outline of p, using the stroke
// parameters Width, Cap, Join, MiterLimit, Dash and DashPhase.
//
// The outline is assembled from simple convex pieces: one quadrilateral per
// segment, plus join and cap shapes.  All pieces are oriented the same way,
// so that filling them together with the nonzero rule paints their union.
func (r *Rasterizer) Stroke(p *path.Data, emit EmitFunc) {
	if r.Width <= 0 {
		return
	}
	r.flattenForStroke(p)
	if len(r.Dash) > 0 {
		r.applyDash()
	}

	r.pieces = r.pieces[:0]
	r.offsets = r.offsets[:0]
	d := r.Width / 2
	for _, pl := range r.lines {
		pts := r.points[pl.start:pl.end]
		if len(pts) == 1 {
			r.addDot(pts[0], d)
			continue
		}
		for i := 1; i < len(pts); i++ {
			r.addSegment(pts[i-1], pts[i], d)
		}
		for i := 1; i < len(pts)-1; i++ {
			r.addJoin(pts[i-1], pts[i], pts[i+1], d)
		}
		if pl.closed {
			n := len(pts)
			// pts[n-1] == pts[0] for closed polylines
			r.addJoin(pts[n-2], pts[0], pts[1], d)
		} else {
			r.addCap(pts[1], pts[0], d)
			r.addCap(pts[len(pts)-2], pts[len(pts)-1], d)
		}
	}

	r.edges = r.edges[:0]
	for i, start := range r.offsets {
		end := len(r.pieces)
		if i+1 < len(r.offsets) {
			end = r.offsets[i+1]
		}
		poly := r.pieces[start:end]
		for j := range poly {
			r.addEdge(poly[j], poly[(j+1)%len(poly)])
		}
	}
	r.scan(NonZero, emit)
}

// flattenForStroke splits p into polylines, with curves replaced by line
// segments and zero-length segments removed.  A subpath consisting of a
// single point becomes a polyline of length one.
func (r *Rasterizer) flattenForStroke(p *path.Data) {
	r.lines = r.lines[:0]
	r.points = r.points[:0]

	start := -1
	drawn := false
	finish := func(closed bool) {
		if start < 0 {
			return
		}
		n := len(r.points) - start
		switch {
		case n == 1 && !drawn:
			r.points = r.points[:start]
		case n == 1:
			r.lines = append(r.lines, polyline{start: start, end: start + 1})
		default:
			if closed && r.points[len(r.points)-1] != r.points[start] {
				r.points = append(r.points, r.points[start])
			}
			r.lines = append(r.lines, polyline{start: start, end: len(r.points), closed: closed})
		}
		start = -1
		drawn = false
	}
	lineTo := func(_, b vec.Vec2) {
		drawn = true
		last := r.points[len(r.points)-1]
		if b.Sub(last).Length() < zeroLengthThreshold {
			return
		}
		r.points = append(r.points, b)
	}

	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			finish(false)
			start = len(r.points)
			r.points = append(r.points, p.Coords[k])
			k++
		case path.CmdLineTo:
			if start >= 0 {
				lineTo(vec.Vec2{}, p.Coords[k])
			}
			k++
		case path.CmdQuadTo:
			if start >= 0 {
				r.flattenQuad(r.points[len(r.points)-1], p.Coords[k], p.Coords[k+1], lineTo)
			}
			k += 2
		case path.CmdCubeTo:
			if start >= 0 {
				r.flattenCube(r.points[len(r.points)-1], p.Coords[k], p.Coords[k+1], p.Coords[k+2], lineTo)
			}
			k += 3
		case path.CmdClose:
			if start >= 0 {
				first := r.points[start]
				finish(true)
				// drawing may continue from the start of the closed subpath
				start = len(r.points)
				r.points = append(r.points, first)
			}
		}
	}
	finish(false)
}

// applyDash replaces r.lines by the "on" parts of the dash pattern.
func (r *Rasterizer) applyDash() {
	pattern := make([]float64, 0, 2*len(r.Dash))
	total := 0.0
	for _, v := range r.Dash {
		pattern = append(pattern, max(v, 0))
		total += max(v, 0)
	}
	if total <= 0 {
		return
	}
	if len(pattern)%2 == 1 {
		pattern = append(pattern, pattern...)
		total *= 2
	}

	lines := r.lines
	src := r.points
	r.lines = nil
	r.points = nil
	for _, pl := range lines {
		pts := src[pl.start:pl.end]
		if len(pts) < 2 {
			continue
		}

		// position within the pattern
		idx := 0
		left := math.Mod(r.DashPhase, total)
		if left < 0 {
			left += total
		}
		for left >= pattern[idx] {
			left -= pattern[idx]
			idx = (idx + 1) % len(pattern)
		}
		left = pattern[idx] - left

		start := -1
		if idx%2 == 0 {
			start = len(r.points)
			r.points = append(r.points, pts[0])
		}
		for i := 1; i < len(pts); i++ {
			a, b := pts[i-1], pts[i]
			segLen := b.Sub(a).Length()
			pos := 0.0
			for segLen-pos > left {
				pos += left
				pt := a.Add(b.Sub(a).Mul(pos / segLen))
				if start >= 0 {
					if pt != r.points[len(r.points)-1] {
						r.points = append(r.points, pt)
					}
					r.lines = append(r.lines, polyline{start: start, end: len(r.points)})
					start = -1
				} else {
					start = len(r.points)
					r.points = append(r.points, pt)
				}
				idx = (idx + 1) % len(pattern)
				left = pattern[idx]
			}
			left -= segLen - pos
			if start >= 0 {
				r.points = append(r.points, b)
			}
		}
		if start >= 0 && len(r.points)-start >= 2 {
			r.lines = append(r.lines, polyline{start: start, end: len(r.points)})
		} else if start >= 0 {
			r.points = r.points[:start]
		}
	}
}

// beginPiece starts a new convex piece of the stroke outline.
func (r *Rasterizer) beginPiece() {
	r.offsets = append(r.offsets, len(r.pieces))
}

// endPiece makes sure the most recent piece is positively oriented.
func (r *Rasterizer) endPiece() {
	start := r.offsets[len(r.offsets)-1]
	poly := r.pieces[start:]
	if len(poly) < 3 {
		r.pieces = r.pieces[:start]
		r.offsets = r.offsets[:len(r.offsets)-1]
		return
	}
	area := 0.0
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		area += a.X*b.Y - a.Y*b.X
	}
	if area < 0 {
		for i, j := 0, len(poly)-1; i < j; i, j = i+1, j-1 {
			poly[i], poly[j] = poly[j], poly[i]
		}
	}
}

func normal(a, b vec.Vec2) vec.Vec2 {
	t := b.Sub(a)
	t = t.Mul(1 / t.Length())
	return vec.Vec2{X: -t.Y, Y: t.X}
}

func (r *Rasterizer) addSegment(a, b vec.Vec2, d float64) {
	n := normal(a, b).Mul(d)
	r.beginPiece()
	r.pieces = append(r.pieces, a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
	r.endPiece()
}

// addJoin fills the wedge on the outer side of the corner at b.
func (r *Rasterizer) addJoin(a, b, c vec.Vec2, d float64) {
	t1 := b.Sub(a)
	t2 := c.Sub(b)
	t1 = t1.Mul(1 / t1.Length())
	t2 = t2.Mul(1 / t2.Length())
	cross := t1.X*t2.Y - t1.Y*t2.X
	if math.Abs(cross) < collinearityThreshold && t1.Dot(t2) > 0 {
		return
	}

	// the gap between the segment pieces is on the side away from the turn
	n1 := vec.Vec2{X: -t1.Y, Y: t1.X}
	n2 := vec.Vec2{X: -t2.Y, Y: t2.X}
	if cross > 0 {
		n1, n2 = n1.Mul(-1), n2.Mul(-1)
	}
	o1, o2 := b.Add(n1.Mul(d)), b.Add(n2.Mul(d))

	switch r.Join {
	case graphics.LineJoinRound:
		r.addCircle(b, d)
	case graphics.LineJoinMiter:
		cosTheta := t1.Dot(t2)
		sinHalf := math.Sqrt((1 + cosTheta) / 2)
		if sinHalf > 0 && 1/sinHalf <= r.MiterLimit+1e-10 {
			bis := n1.Add(n2)
			if l := bis.Length(); l > zeroLengthThreshold {
				tip := b.Add(bis.Mul(d / (sinHalf * l)))
				r.beginPiece()
				r.pieces = append(r.pieces, b, o1, tip, o2)
				r.endPiece()
				return
			}
		}
		fallthrough
	default:
		r.beginPiece()
		r.pieces = append(r.pieces, b, o1, o2)
		r.endPiece()
	}
}

// addCap adds the cap at the end point b of the segment from a to b.
func (r *Rasterizer) addCap(a, b vec.Vec2, d float64) {
	switch r.Cap {
	case graphics.LineCapRound:
		r.addCircle(b, d)
	case graphics.LineCapSquare:
		t := b.Sub(a)
		t = t.Mul(d / t.Length())
		n := vec.Vec2{X: -t.Y, Y: t.X}
		e := b.Add(t)
		r.beginPiece()
		r.pieces = append(r.pieces, b.Add(n), e.Add(n), e.Sub(n), b.Sub(n))
		r.endPiece()
	}
}

// addDot handles subpaths without extent, which are only visible with round
// or square caps.
func (r *Rasterizer) addDot(p vec.Vec2, d float64) {
	switch r.Cap {
	case graphics.LineCapRound:
		r.addCircle(p, d)
	case graphics.LineCapSquare:
		r.beginPiece()
		r.pieces = append(r.pieces,
			vec.Vec2{X: p.X - d, Y: p.Y - d}, vec.Vec2{X: p.X + d, Y: p.Y - d},
			vec.Vec2{X: p.X + d, Y: p.Y + d}, vec.Vec2{X: p.X - d, Y: p.Y + d})
		r.endPiece()
	}
}

// addCircle adds a polygon approximating the circle around c.  The vertex
// count follows r.Flatness and the polygon radius is chosen so that the
// polygon has the area of the circle.
func (r *Rasterizer) addCircle(c vec.Vec2, radius float64) {
	n := 8
	if tol := r.Flatness / 4; radius > tol {
		step := 2 * math.Acos(1-tol/radius)
		n = max(n, int(math.Ceil(2*math.Pi/step)))
	}
	rr := radius * math.Sqrt(2*math.Pi/(float64(n)*math.Sin(2*math.Pi/float64(n))))
	r.beginPiece()
	for i := range n {
		phi := 2 * math.Pi * float64(i) / float64(n)
		r.pieces = append(r.pieces, vec.Vec2{
			X: c.X + rr*math.Cos(phi),
			Y: c.Y + rr*math.Sin(phi),
		})
	}
	r.endPiece()
}
