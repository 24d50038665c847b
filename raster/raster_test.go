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
	"image"
	"image/color"
	"math"
	"testing"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf/graphics"
)

// TestTriangleCoverage verifies exact coverage values for a simple triangle.
// The triangle (0,0)→(10,0)→(10,1)→close has a diagonal edge y = x/10.
// Each pixel X should have coverage (2X+1)/20: 0.05, 0.15, ..., 0.95.
func TestTriangleCoverage(t *testing.T) {
	triangle := (&path.Data{}).
		MoveTo(vec.Vec2{X: 0, Y: 0}).
		LineTo(vec.Vec2{X: 10, Y: 0}).
		LineTo(vec.Vec2{X: 10, Y: 1}).
		Close()

	r := NewRasterizer(image.Rect(0, 0, 10, 1))
	coverage := make([]float32, 10)
	r.Fill(triangle, NonZero, func(y, xMin int, cov []float32) {
		if y == 0 {
			copy(coverage[xMin:], cov)
		}
	})

	const epsilon = 1e-6
	for x := range 10 {
		expected := float32(2*x+1) / 20.0
		if math.Abs(float64(coverage[x]-expected)) > epsilon {
			t.Errorf("pixel %d: expected coverage %.4f, got %.4f", x, expected, coverage[x])
		}
	}
}

func rectPath(p *path.Data, x0, y0, x1, y1 float64) *path.Data {
	return p.MoveTo(vec.Vec2{X: x0, Y: y0}).
		LineTo(vec.Vec2{X: x1, Y: y0}).
		LineTo(vec.Vec2{X: x1, Y: y1}).
		LineTo(vec.Vec2{X: x0, Y: y1}).
		Close()
}

// totalCoverage sums the coverage of all pixels.
func totalCoverage(run func(EmitFunc)) float64 {
	sum := 0.0
	run(func(_, _ int, cov []float32) {
		for _, c := range cov {
			sum += float64(c)
		}
	})
	return sum
}

func TestFillRules(t *testing.T) {
	nested := rectPath(&path.Data{}, 0, 0, 10, 10)
	nested = rectPath(nested, 3, 3, 7, 7)

	r := NewRasterizer(image.Rect(0, 0, 10, 10))
	nonZero := totalCoverage(func(emit EmitFunc) { r.Fill(nested, NonZero, emit) })
	evenOdd := totalCoverage(func(emit EmitFunc) { r.Fill(nested, EvenOdd, emit) })
	if nonZero != 100 {
		t.Errorf("nonzero: area %g, want 100", nonZero)
	}
	if evenOdd != 84 {
		t.Errorf("even-odd: area %g, want 84", evenOdd)
	}
}

func TestFillClipped(t *testing.T) {
	r := NewRasterizer(image.Rect(0, 0, 4, 4))
	area := totalCoverage(func(emit EmitFunc) {
		r.Fill(rectPath(&path.Data{}, -10, -10, 2, 2), NonZero, emit)
	})
	if area != 4 {
		t.Errorf("area %g, want 4", area)
	}
}

func TestStrokeArea(t *testing.T) {
	line := (&path.Data{}).
		MoveTo(vec.Vec2{X: 2, Y: 5}).
		LineTo(vec.Vec2{X: 8, Y: 5})
	corner := (&path.Data{}).
		MoveTo(vec.Vec2{X: 2, Y: 2}).
		LineTo(vec.Vec2{X: 10, Y: 2}).
		LineTo(vec.Vec2{X: 10, Y: 10})
	long := (&path.Data{}).
		MoveTo(vec.Vec2{X: 0, Y: 5}).
		LineTo(vec.Vec2{X: 8, Y: 5})

	cases := []struct {
		name string
		p    *path.Data
		cap  graphics.LineCapStyle
		join graphics.LineJoinStyle
		dash []float64
		want float64
	}{
		{"butt", line, graphics.LineCapButt, graphics.LineJoinMiter, nil, 12},
		{"square", line, graphics.LineCapSquare, graphics.LineJoinMiter, nil, 16},
		{"miter", corner, graphics.LineCapButt, graphics.LineJoinMiter, nil, 32},
		{"bevel", corner, graphics.LineCapButt, graphics.LineJoinBevel, nil, 31.5},
		{"dash", long, graphics.LineCapButt, graphics.LineJoinMiter, []float64{2, 2}, 8},
		{"odd dash", long, graphics.LineCapButt, graphics.LineJoinMiter, []float64{3}, 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRasterizer(image.Rect(0, 0, 20, 20))
			r.Width = 2
			r.Cap = c.cap
			r.Join = c.join
			r.Dash = c.dash
			got := totalCoverage(func(emit EmitFunc) { r.Stroke(c.p, emit) })
			if math.Abs(got-c.want) > 1e-3 {
				t.Errorf("area %g, want %g", got, c.want)
			}
		})
	}
}

func TestStrokeRoundDot(t *testing.T) {
	dot := (&path.Data{}).
		MoveTo(vec.Vec2{X: 10, Y: 10}).
		LineTo(vec.Vec2{X: 10, Y: 10})

	r := NewRasterizer(image.Rect(0, 0, 20, 20))
	r.Width = 8
	r.Cap = graphics.LineCapRound
	got := totalCoverage(func(emit EmitFunc) { r.Stroke(dot, emit) })
	want := math.Pi * 16
	if math.Abs(got-want) > 0.5 {
		t.Errorf("area %g, want approximately %g", got, want)
	}

	r.Cap = graphics.LineCapButt
	if got := totalCoverage(func(emit EmitFunc) { r.Stroke(dot, emit) }); got != 0 {
		t.Errorf("butt cap dot has area %g", got)
	}
}

func TestPainter(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	p := NewPainter(img)
	red := color.NRGBA{R: 255, A: 255}

	p.Fill(rectPath(&path.Data{}, 1, 1, 3, 3), NonZero, red)
	if got := img.RGBAAt(1, 1); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("inside: got %v", got)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("outside: got %v", got)
	}

	// half-covered pixels are dropped or kept without antialiasing
	p.Antialias = false
	blue := color.NRGBA{B: 255, A: 255}
	p.Fill(rectPath(&path.Data{}, 0, 0, 0.4, 4), NonZero, blue)
	p.Fill(rectPath(&path.Data{}, 3.4, 0, 4, 4), NonZero, blue)
	if got := img.RGBAAt(0, 2); got.B != 255 || got.R != 255 {
		t.Errorf("40%% covered pixel painted: %v", got)
	}
	if got := img.RGBAAt(3, 2); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("60%% covered pixel not painted: %v", got)
	}
}

func TestPainterPartialCoverage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	p := NewPainter(img)
	red := color.NRGBA{R: 255, A: 255}

	// the left half of pixel (0, 0)
	p.Fill(rectPath(&path.Data{}, 0, 0, 0.5, 1), NonZero, red)
	got := img.RGBAAt(0, 0)
	if got.R != 255 || got.A != 255 || got.G < 124 || got.G > 131 || got.B < 124 || got.B > 131 {
		t.Errorf("half covered pixel: %v", got)
	}

	p.Set(1, 1, red, 0.5)
	got = img.RGBAAt(1, 1)
	if got.R != 255 || got.G < 126 || got.G > 129 {
		t.Errorf("half opaque pixel: %v", got)
	}
	p.Set(1, 0, red, 1)
	if got := img.RGBAAt(1, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("opaque pixel: %v", got)
	}
	p.Set(5, 5, red, 1) // outside, ignored
}
