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
	"fmt"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// kappa is the control point distance for a quarter circle made from a
// cubic Bézier curve.
const kappa = 0.5522847498

// appendCircle adds a circle made from four cubic Bézier curves to p.
func appendCircle(p *path.Data, cx, cy, r float64, clockwise bool) {
	k := kappa * r
	s := 1.0
	if clockwise {
		s = -1
	}
	pt := func(x, y float64) vec.Vec2 { return vec.Vec2{X: cx + s*x, Y: cy + y} }
	p.MoveTo(pt(0, -r))
	p.Cmds = append(p.Cmds, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdClose)
	p.Coords = append(p.Coords,
		pt(k, -r), pt(r, -k), pt(r, 0),
		pt(r, k), pt(k, r), pt(0, r),
		pt(-k, r), pt(-r, k), pt(-r, 0),
		pt(-r, -k), pt(-k, -r), pt(0, -r),
	)
}

func TestCircleArea(t *testing.T) {
	p := &path.Data{}
	appendCircle(p, 50, 50, 40, false)
	r := NewRasterizer(image.Rect(0, 0, 100, 100))
	got := totalCoverage(func(emit EmitFunc) { r.Fill(p, NonZero, emit) })
	// the flattened circle is inscribed, so the area is slightly too small
	want := 3.14159265 * 40 * 40
	if got < 0.99*want || got > 1.001*want {
		t.Errorf("area %g, want approximately %g", got, want)
	}
}

func BenchmarkRasterizerO(b *testing.B) {
	for _, size := range []int{20, 200, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			clip := image.Rect(0, 0, size, size)
			r := NewRasterizer(clip)
			dst := image.NewAlpha(clip)

			c := float64(size) / 2
			o := &path.Data{}
			appendCircle(o, c, c, float64(size)*0.45, false)
			appendCircle(o, c, c, float64(size)*0.30, true)

			b.ReportAllocs()
			for b.Loop() {
				r.Fill(o, EvenOdd, func(y, xMin int, coverage []float32) {
					row := dst.Pix[y*dst.Stride+xMin:]
					for i, v := range coverage {
						row[i] = uint8(v * 255)
					}
				})
			}
		})
	}
}

// BenchmarkVectorO draws the same shape with x/image/vector, for comparison.
func BenchmarkVectorO(b *testing.B) {
	for _, size := range []int{20, 200, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			r := vector.NewRasterizer(size, size)
			dst := image.NewAlpha(image.Rect(0, 0, size, size))
			src := image.NewUniform(color.Alpha{A: 255})
			c := float32(size) / 2

			b.ReportAllocs()
			for b.Loop() {
				r.Reset(size, size)
				vectorCircle(r, c, c, float32(size)*0.45, false)
				vectorCircle(r, c, c, float32(size)*0.30, true)
				r.Draw(dst, dst.Bounds(), src, image.Point{})
			}
		})
	}
}

func vectorCircle(r *vector.Rasterizer, cx, cy, radius float32, clockwise bool) {
	k := float32(kappa) * radius
	s := float32(1)
	if clockwise {
		s = -1
	}
	r.MoveTo(cx, cy-radius)
	r.CubeTo(cx+s*k, cy-radius, cx+s*radius, cy-k, cx+s*radius, cy)
	r.CubeTo(cx+s*radius, cy+k, cx+s*k, cy+radius, cx, cy+radius)
	r.CubeTo(cx-s*k, cy+radius, cx-s*radius, cy+k, cx-s*radius, cy)
	r.CubeTo(cx-s*radius, cy-k, cx-s*k, cy-radius, cx, cy-radius)
	r.ClosePath()
}
