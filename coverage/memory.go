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
	"fmt"
	"image"
	"math"

	"seehuhn.de/go/portray/grid"
)

// Memory is a coverage held in memory.
//
// A strict Memory returns exactly the requested window and slice.  A
// lenient Memory ignores the request and always returns the full grid with
// all slices, like remote services which over-fetch.
type Memory struct {
	Geometry grid.Geometry
	Slices   []*Buffer // row-major over Geometry.Dims
	Lenient  bool
}

// NewMemory returns a strict in-memory coverage.  One buffer is needed
// per combination of dimension values.
func NewMemory(g grid.Geometry, slices ...*Buffer) (*Memory, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	n := 1
	for _, d := range g.Dims {
		n *= len(d.Values)
	}
	if len(slices) != n {
		return nil, fmt.Errorf("coverage: %d buffers given, %d needed", len(slices), n)
	}
	for i, b := range slices {
		if b.Width != g.Width || b.Height != g.Height {
			return nil, fmt.Errorf("coverage: buffer %d has size %dx%d, grid is %dx%d",
				i, b.Width, b.Height, g.Width, g.Height)
		}
		if b.Bands != slices[0].Bands {
			return nil, fmt.Errorf("coverage: buffer %d has %d bands, expected %d",
				i, b.Bands, slices[0].Bands)
		}
	}
	return &Memory{Geometry: g, Slices: slices}, nil
}

// Grid implements the Coverage interface.
func (m *Memory) Grid() grid.Geometry {
	return m.Geometry
}

// Read implements the Coverage interface.
func (m *Memory) Read(ctx context.Context, g grid.Geometry, slice map[string]int) (*Cube, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Lenient {
		return &Cube{Grid: m.Geometry, Buffers: m.Slices}, nil
	}

	r, err := m.window(g)
	if err != nil {
		return nil, err
	}

	values, err := SliceValues(m.Geometry.Dims, slice)
	if err != nil {
		return nil, err
	}
	idx := 0
	dims := make([]grid.Dimension, len(m.Geometry.Dims))
	for i, d := range m.Geometry.Dims {
		idx = idx*len(d.Values) + slice[d.Name]
		dims[i] = grid.Dimension{Name: d.Name, Values: []string{values[d.Name]}}
	}

	sub := m.Geometry.SubGrid(r)
	sub.Dims = dims
	return &Cube{Grid: sub, Buffers: []*Buffer{m.Slices[idx].Crop(r)}}, nil
}

// window finds the pixels of the native grid which cover g.
func (m *Memory) window(g grid.Geometry) (image.Rectangle, error) {
	inv, err := m.Geometry.CRSToGrid()
	if err != nil {
		return image.Rectangle{}, err
	}
	pix := grid.ImageOf(inv, g.Envelope())
	r := image.Rect(
		int(math.Floor(pix.LLx+snap)), int(math.Floor(pix.LLy+snap)),
		int(math.Ceil(pix.URx-snap)), int(math.Ceil(pix.URy-snap)),
	).Intersect(m.Geometry.Bounds())
	if r.Empty() {
		return r, ErrOutside
	}
	return r, nil
}

// snap absorbs rounding errors in window computations.
const snap = 1e-6
