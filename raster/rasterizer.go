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

// Package raster converts vector paths in device space into anti-aliased
// pixel coverage, and composites the coverage onto RGBA images.
//
// Coverage is computed analytically: for every pixel the signed area of the
// path inside the pixel is accumulated from the edges crossing it.
package raster

import (
	"cmp"
	"image"
	"math"
	"slices"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// FillRule selects how the winding number of a point determines whether
// the point is inside a path.
type FillRule int

// These are the supported fill rules.
const (
	NonZero FillRule = iota
	EvenOdd
)

// EmitFunc receives the coverage of one scanline.  The pixel x has coverage
// coverage[x-xMin].  The slice is only valid during the call.
type EmitFunc func(y, xMin int, coverage []float32)

// Rasterizer converts paths to pixel coverage.  Internal buffers are reused
// between calls, so one Rasterizer should be kept for many paths.
// A Rasterizer must not be used concurrently.
type Rasterizer struct {
	// Clip is the region of device space which receives coverage.
	Clip image.Rectangle

	// Flatness is the maximal distance, in pixels, between a curve and
	// the polygon used to approximate it.
	Flatness float64

	// The following fields only affect Stroke.
	Width      float64
	Cap        graphics.LineCapStyle
	Join       graphics.LineJoinStyle
	MiterLimit float64
	Dash       []float64
	DashPhase  float64

	edges     []edge
	active    []int
	cover     []float32
	area      []float32
	crossings []float64
	bbox      [4]float64 // xMin, xMax, yMin, yMax of all edges

	lines   []polyline
	points  []vec.Vec2
	pieces  []vec.Vec2
	offsets []int
}

// edge is a non-horizontal line segment in device space.
type edge struct {
	x0, y0, x1, y1 float64
	dxdy           float64
}

const (
	defaultFlatness   = 0.25
	defaultMiterLimit = 10.0

	horizontalEdgeThreshold = 1e-10
)

// NewRasterizer returns a Rasterizer for the given clip rectangle, with a
// one pixel wide solid stroke.
func NewRasterizer(clip image.Rectangle) *Rasterizer {
	r := &Rasterizer{}
	r.Reset(clip)
	return r
}

// Reset restores the default parameters but keeps the internal buffers.
func (r *Rasterizer) Reset(clip image.Rectangle) {
	r.Clip = clip
	r.Flatness = defaultFlatness
	r.Width = 1
	r.Cap = graphics.LineCapButt
	r.Join = graphics.LineJoinMiter
	r.MiterLimit = defaultMiterLimit
	r.Dash = nil
	r.DashPhase = 0
}

// Fill computes the coverage of the interior of p.
func (r *Rasterizer) Fill(p *path.Data, rule FillRule, emit EmitFunc) {
	r.edges = r.edges[:0]
	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if cur != start {
				r.addEdge(cur, start)
			}
			cur = p.Coords[k]
			start = cur
			k++
		case path.CmdLineTo:
			r.addEdge(cur, p.Coords[k])
			cur = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.flattenQuad(cur, p.Coords[k], p.Coords[k+1], r.addEdge)
			cur = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.flattenCube(cur, p.Coords[k], p.Coords[k+1], p.Coords[k+2], r.addEdge)
			cur = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if cur != start {
				r.addEdge(cur, start)
			}
			cur = start
		}
	}
	// fills implicitly close open subpaths
	if cur != start {
		r.addEdge(cur, start)
	}
	r.scan(rule, emit)
}

// flattenQuad approximates a quadratic Bézier curve by line segments.
func (r *Rasterizer) flattenQuad(p0, p1, p2 vec.Vec2, emit func(a, b vec.Vec2)) {
	dev := p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25).Length()
	n := 1
	if dev > r.Flatness {
		n = int(math.Ceil(math.Sqrt(dev / r.Flatness)))
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		emit(prev, pt)
		prev = pt
	}
}

// flattenCube approximates a cubic Bézier curve by line segments.  The
// number of segments follows Wang's formula.
func (r *Rasterizer) flattenCube(p0, p1, p2, p3 vec.Vec2, emit func(a, b vec.Vec2)) {
	d1 := p0.Sub(p1.Mul(2)).Add(p2)
	d2 := p1.Sub(p2.Mul(2)).Add(p3)
	m := max(d1.Length(), d2.Length())
	n := 1
	if nf := math.Sqrt(3 * m / (4 * r.Flatness)); nf > 1 {
		n = int(math.Ceil(nf))
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s * s).
			Add(p1.Mul(3 * s * s * t)).
			Add(p2.Mul(3 * s * t * t)).
			Add(p3.Mul(t * t * t))
		emit(prev, pt)
		prev = pt
	}
}

func (r *Rasterizer) addEdge(a, b vec.Vec2) {
	dy := b.Y - a.Y
	if math.Abs(dy) < horizontalEdgeThreshold {
		return
	}
	if len(r.edges) == 0 {
		r.bbox = [4]float64{a.X, a.X, a.Y, a.Y}
	}
	r.bbox[0] = min(r.bbox[0], a.X, b.X)
	r.bbox[1] = max(r.bbox[1], a.X, b.X)
	r.bbox[2] = min(r.bbox[2], a.Y, b.Y)
	r.bbox[3] = max(r.bbox[3], a.Y, b.Y)
	r.edges = append(r.edges, edge{
		x0: a.X, y0: a.Y, x1: b.X, y1: b.Y,
		dxdy: (b.X - a.X) / dy,
	})
}

func (e *edge) top() float64    { return min(e.y0, e.y1) }
func (e *edge) bottom() float64 { return max(e.y0, e.y1) }
func (e *edge) xAt(y float64) float64 {
	return e.x0 + e.dxdy*(y-e.y0)
}

// scan converts the collected edges into coverage, one scanline at a time,
// using an active edge list.
func (r *Rasterizer) scan(rule FillRule, emit EmitFunc) {
	if len(r.edges) == 0 {
		return
	}
	xMin := max(int(math.Floor(r.bbox[0])), r.Clip.Min.X)
	xMax := min(int(math.Floor(r.bbox[1]))+1, r.Clip.Max.X)
	yMin := max(int(math.Floor(r.bbox[2])), r.Clip.Min.Y)
	yMax := min(int(math.Floor(r.bbox[3]))+1, r.Clip.Max.Y)
	if xMin >= xMax || yMin >= yMax {
		return
	}
	width := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], width)[:width]
	r.area = slices.Grow(r.area[:0], width)[:width]

	slices.SortFunc(r.edges, func(a, b edge) int {
		return cmp.Compare(a.top(), b.top())
	})
	r.active = r.active[:0]
	next := 0
	for y := yMin; y < yMax; y++ {
		yTop, yBot := float64(y), float64(y+1)
		for next < len(r.edges) && r.edges[next].top() < yBot {
			r.active = append(r.active, next)
			next++
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.active); {
			e := &r.edges[r.active[i]]
			if e.bottom() <= yTop {
				last := len(r.active) - 1
				r.active[i] = r.active[last]
				r.active = r.active[:last]
				continue
			}
			if r.accumulate(e, yTop, yBot, xMin, xMax) {
				touched = true
			}
			i++
		}
		if !touched {
			continue
		}

		integrate(r.cover, r.area, rule)
		lo, hi := 0, width
		for lo < hi && r.cover[lo] == 0 {
			lo++
		}
		for hi > lo && r.cover[hi-1] == 0 {
			hi--
		}
		if lo < hi {
			emit(y, xMin+lo, r.cover[lo:hi])
		}
	}
}

// accumulate adds the contribution of e within the scanline [yTop, yBot)
// to the cover and area buffers.  Each piece of the edge inside a single
// pixel column contributes its signed height to cover, and the part of that
// height to the right of the edge to area.
func (r *Rasterizer) accumulate(e *edge, yTop, yBot float64, xMin, xMax int) bool {
	y0 := max(yTop, e.top())
	y1 := min(yBot, e.bottom())
	if y1 <= y0 {
		return false
	}
	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xa, xb := e.xAt(y0), e.xAt(y1)
	left := int(math.Floor(min(xa, xb)))
	right := int(math.Floor(max(xa, xb)))
	if left >= xMax {
		return false
	}

	r.crossings = append(r.crossings[:0], y0, y1)
	if left != right {
		for x := left + 1; x <= right; x++ {
			yx := e.y0 + (float64(x)-e.x0)/e.dxdy
			if yx > y0 && yx < y1 {
				r.crossings = append(r.crossings, yx)
			}
		}
		slices.Sort(r.crossings)
	}

	for i := 1; i < len(r.crossings); i++ {
		h := r.crossings[i] - r.crossings[i-1]
		if h <= 0 {
			continue
		}
		c := sign * float32(h)
		xm := e.xAt((r.crossings[i] + r.crossings[i-1]) / 2)
		pix := int(math.Floor(xm))
		switch {
		case pix < xMin:
			r.cover[0] += c
			r.area[0] += c
		case pix < xMax:
			r.cover[pix-xMin] += c
			r.area[pix-xMin] += c * float32(1-(xm-float64(pix)))
		}
	}
	return true
}

// integrate turns cover and area into coverage values, which are stored in
// cover.
func integrate(cover, area []float32, rule FillRule) {
	var acc float32
	for i := range cover {
		v := acc + area[i]
		acc += cover[i]
		if v < 0 {
			v = -v
		}
		if rule == EvenOdd {
			v -= 2 * float32(int(v/2))
			if v > 1 {
				v = 2 - v
			}
		} else if v > 1 {
			v = 1
		}
		cover[i] = v
	}
}
