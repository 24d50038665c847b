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

package resample

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/grid"
)

func sameSamples(a, b *coverage.Buffer) bool {
	if a.Width != b.Width || a.Height != b.Height || a.Bands != b.Bands {
		return false
	}
	for i, x := range a.Samples {
		y := b.Samples[i]
		if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
			return false
		}
	}
	return true
}

func TestNearestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	grids := []grid.Geometry{
		grid.New(rect.Rect{LLx: -3, LLy: 1, URx: 7, URy: 9}, 5, 4, crs.CRS84),
		grid.New(rect.Rect{LLx: 0.1, LLy: 0.2, URx: 0.7, URy: 0.3}, 13, 7, crs.WebMercator),
		{Width: 6, Height: 3, CRS: crs.CRS84, GridToCRS: matrix.Matrix{0, 0.5, -2, 0, 10, -4}},
	}
	for _, g := range grids {
		b := coverage.NewBuffer(g.Width, g.Height, 3)
		for i := range b.Samples {
			if rng.IntN(10) > 0 {
				b.Samples[i] = rng.NormFloat64()
			}
		}

		once, err := Resample(b, g, g, Nearest)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Resample(once, g, g, Nearest)
		if err != nil {
			t.Fatal(err)
		}
		if !sameSamples(once, twice) {
			t.Errorf("%v: resampling is not idempotent", g.GridToCRS)
		}
		// pixels with a void band are void as a whole
		for y := range g.Height {
			for x := range g.Width {
				if b.Void(x, y) {
					continue
				}
				for k, v := range once.Pixel(x, y) {
					if v != b.At(x, y, k) {
						t.Fatalf("pixel (%d,%d) band %d changed", x, y, k)
					}
				}
			}
		}
	}
}

// The source is stored with row 0 at the south edge.  The result must
// still show the northern row at the top.
func TestFlippedSource(t *testing.T) {
	src := grid.Geometry{
		Width: 2, Height: 3, CRS: crs.CRS84,
		GridToCRS: matrix.Matrix{1, 0, 0, 1, 0, 0},
	}
	b := coverage.NewBuffer(2, 3, 1)
	for y := range 3 {
		for x := range 2 {
			b.Set(x, y, 0, float64(10*y+x))
		}
	}
	dst := grid.New(rect.Rect{URx: 2, URy: 3}, 2, 3, crs.CRS84)

	out, err := Resample(b, src, dst, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{20, 21, 10, 11, 0, 1}
	for i, v := range want {
		if out.Samples[i] != v {
			t.Errorf("sample %d = %g, want %g", i, out.Samples[i], v)
		}
	}
}

// The source grid's columns run along the second CRS axis.
func TestSwappedSource(t *testing.T) {
	src := grid.Geometry{
		Width: 3, Height: 2, CRS: crs.CRS84,
		GridToCRS: matrix.Matrix{0, 1, 1, 0, 0, 0},
	}
	b := coverage.NewBuffer(3, 2, 1)
	for y := range 2 {
		for x := range 3 {
			b.Set(x, y, 0, float64(10*y+x))
		}
	}
	// north-up grid with 2 columns (x in [0,2]) and 3 rows (y in [0,3])
	dst := grid.New(rect.Rect{URx: 2, URy: 3}, 2, 3, crs.CRS84)

	out, err := Resample(b, src, dst, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	// objective pixel (i, j) is at x = i+0.5, y = 2.5-j, which is source
	// pixel (floor(y), floor(x))
	for j := range 3 {
		for i := range 2 {
			want := float64(10*i + 2 - j)
			if got := out.At(i, j, 0); got != want {
				t.Errorf("pixel (%d,%d) = %g, want %g", i, j, got, want)
			}
		}
	}
}

func TestBilinear(t *testing.T) {
	src := grid.New(rect.Rect{URx: 2, URy: 1}, 2, 1, crs.CRS84)
	b := &coverage.Buffer{Width: 2, Height: 1, Bands: 1, Samples: []float64{0, 10}}
	dst := grid.New(rect.Rect{URx: 2, URy: 1}, 4, 1, crs.CRS84)

	out, err := Resample(b, src, dst, Bilinear)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 2.5, 7.5, 10}
	for i, v := range want {
		if math.Abs(out.Samples[i]-v) > 1e-12 {
			t.Errorf("sample %d = %g, want %g", i, out.Samples[i], v)
		}
	}
}

func TestVoidSamples(t *testing.T) {
	src := grid.New(rect.Rect{URx: 2, URy: 1}, 2, 1, crs.CRS84)
	b := &coverage.Buffer{Width: 2, Height: 1, Bands: 1, Samples: []float64{4, math.NaN()}}
	// the objective reaches one unit beyond the source on the right
	dst := grid.New(rect.Rect{URx: 3, URy: 1}, 6, 1, crs.CRS84)

	for _, ip := range []Interpolation{Nearest, Bilinear, Bicubic, Lanczos} {
		out, err := Resample(b, src, dst, ip)
		if err != nil {
			t.Fatal(err)
		}
		for i := range 2 {
			if got := out.Samples[i]; math.Abs(got-4) > 1e-12 {
				t.Errorf("%s: sample %d = %g, want 4", ip, i, got)
			}
		}
		for i := 2; i < 6; i++ {
			if got := out.Samples[i]; !math.IsNaN(got) {
				t.Errorf("%s: sample %d = %g, want void", ip, i, got)
			}
		}
	}
}

func TestConstantField(t *testing.T) {
	src := grid.New(rect.Rect{URx: 8, URy: 8}, 8, 8, crs.CRS84)
	b := coverage.NewBuffer(8, 8, 2)
	for i := range b.Samples {
		b.Samples[i] = 5
	}
	for _, n := range []int{2, 5, 23} {
		dst := grid.New(rect.Rect{LLx: 0.5, LLy: 0.5, URx: 7.5, URy: 7.5}, n, n, crs.CRS84)
		for _, ip := range []Interpolation{Bilinear, Bicubic, Lanczos} {
			out, err := Resample(b, src, dst, ip)
			if err != nil {
				t.Fatal(err)
			}
			for i, v := range out.Samples {
				if math.Abs(v-5) > 1e-9 {
					t.Fatalf("%s %dx%d: sample %d = %g", ip, n, n, i, v)
				}
			}
		}
	}
}

func TestReprojection(t *testing.T) {
	src := grid.New(rect.Rect{LLx: -180, LLy: -90, URx: 180, URy: 90}, 360, 180, crs.CRS84)
	b := coverage.NewBuffer(360, 180, 1)
	for y := range 180 {
		for x := range 360 {
			b.Set(x, y, 0, float64(1000*y+x))
		}
	}

	proj, err := crs.Transformation(crs.CRS84, crs.WebMercator)
	if err != nil {
		t.Fatal(err)
	}
	ll := proj(orb.Point{-1, -1})
	ur := proj(orb.Point{1, 1})
	dst := grid.New(rect.Rect{LLx: ll[0], LLy: ll[1], URx: ur[0], URy: ur[1]}, 2, 2, crs.WebMercator)

	out, err := Resample(b, src, dst, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{89179, 89180, 90179, 90180}
	for i, v := range want {
		if out.Samples[i] != v {
			t.Errorf("sample %d = %g, want %g", i, out.Samples[i], v)
		}
	}
}

func TestParseInterpolation(t *testing.T) {
	for _, ip := range []Interpolation{Nearest, Bilinear, Bicubic, Lanczos} {
		got, err := ParseInterpolation(ip.String())
		if err != nil || got != ip {
			t.Errorf("%s: got %v, %v", ip, got, err)
		}
	}
	if _, err := ParseInterpolation("sinc"); err == nil {
		t.Error("unknown method accepted")
	}
}
