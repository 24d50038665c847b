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

package coverage

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/grid"
)

// timeSeries returns a 4x2 coverage with three time steps.  Every sample
// of step k has the value 10*k plus the column index.
func timeSeries(t *testing.T) *Memory {
	t.Helper()
	g := grid.New(rect.Rect{LLx: 0, LLy: 0, URx: 4, URy: 2}, 4, 2, crs.CRS84)
	g.Dims = []grid.Dimension{{Name: "time", Values: []string{"t0", "t1", "t2"}}}
	var bufs []*Buffer
	for k := range 3 {
		b := NewBuffer(4, 2, 1)
		for y := range 2 {
			for x := range 4 {
				b.Set(x, y, 0, float64(10*k+x))
			}
		}
		bufs = append(bufs, b)
	}
	m, err := NewMemory(g, bufs...)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestStrictRead(t *testing.T) {
	m := timeSeries(t)
	req := m.Grid().SubGrid(image.Rect(1, 0, 3, 2))

	cube, err := m.Read(context.Background(), req, map[string]int{"time": 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(cube.Buffers) != 1 {
		t.Fatalf("%d buffers returned", len(cube.Buffers))
	}
	if cube.Grid.Width != 2 || cube.Grid.Height != 2 {
		t.Errorf("returned grid is %dx%d", cube.Grid.Width, cube.Grid.Height)
	}
	b, err := cube.Select(map[string]string{"time": "t2"})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.At(0, 1, 0); got != 21 {
		t.Errorf("sample (0,1) = %g, want 21", got)
	}
	if _, err := cube.Select(map[string]string{"time": "t0"}); !errors.Is(err, ErrSliceMissing) {
		t.Errorf("selecting an absent slice: %v", err)
	}
}

func TestLenientRead(t *testing.T) {
	m := timeSeries(t)
	m.Lenient = true
	req := m.Grid().SubGrid(image.Rect(1, 0, 3, 2))

	cube, err := m.Read(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(cube.Buffers) != 3 || cube.Grid.Width != 4 {
		t.Fatalf("lenient read returned %d buffers of width %d", len(cube.Buffers), cube.Grid.Width)
	}
	if _, err := cube.Select(nil); !errors.Is(err, ErrSliceMissing) {
		t.Errorf("ambiguous selection: %v", err)
	}
	want, err := SliceValues(cube.Grid.Dims, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cube.Select(want)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.At(3, 0, 0); got != 3 {
		t.Errorf("sample (3,0) = %g, want 3", got)
	}
}

func TestReadOutside(t *testing.T) {
	m := timeSeries(t)
	req := grid.New(rect.Rect{LLx: 10, LLy: 0, URx: 12, URy: 2}, 2, 2, crs.CRS84)
	if _, err := m.Read(context.Background(), req, nil); !errors.Is(err, ErrOutside) {
		t.Errorf("got %v, want ErrOutside", err)
	}
	if _, err := m.Read(context.Background(), m.Grid(), map[string]int{"time": 3}); !errors.Is(err, ErrSliceMissing) {
		t.Errorf("got %v, want ErrSliceMissing", err)
	}
}

func TestNewMemoryChecksBuffers(t *testing.T) {
	g := grid.New(rect.Rect{URx: 2, URy: 2}, 2, 2, crs.CRS84)
	if _, err := NewMemory(g, NewBuffer(2, 2, 1), NewBuffer(2, 2, 1)); err == nil {
		t.Error("too many buffers accepted")
	}
	if _, err := NewMemory(g, NewBuffer(3, 2, 1)); err == nil {
		t.Error("wrong buffer size accepted")
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	img.SetNRGBA(5, 5, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	b := FromImage(img)
	if b.Width != 2 || b.Height != 1 || b.Bands != 4 {
		t.Fatalf("buffer %dx%dx%d", b.Width, b.Height, b.Bands)
	}
	if p := b.Pixel(0, 0); p[0] != 10 || p[2] != 30 || p[3] != 255 {
		t.Errorf("pixel 0 = %v", p)
	}
	if !b.Void(1, 0) || !math.IsNaN(b.At(1, 0, 0)) {
		t.Error("transparent pixel is not void")
	}

	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.Pix[0] = 77
	if b := FromImage(gray); b.Bands != 1 || b.At(0, 0, 0) != 77 {
		t.Errorf("gray image gives %v", b.Samples)
	}
}

func TestFormatSlice(t *testing.T) {
	got := FormatSlice(map[string]string{"time": "t1", "elevation": "0"})
	if got != "elevation=0,time=t1" {
		t.Errorf("got %q", got)
	}
}
