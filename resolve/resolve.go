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

// Package resolve computes which part of a data grid is needed to paint an
// objective grid.
package resolve

import (
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/grid"
)

var (
	// ErrDisjoint is returned when the data does not overlap the objective.
	// This is not a failure: the layer simply contributes nothing.
	ErrDisjoint = errors.New("data and objective are disjoint")

	// ErrInvalidSlice is returned for slice indices which do not exist in
	// the data.
	ErrInvalidSlice = errors.New("invalid slice selection")
)

// Region is the part of a data grid which needs to be read.
type Region struct {
	// Grid is the data sub-grid to read.  Its Dims hold only the selected
	// value of each extra dimension.
	Grid grid.Geometry

	// Rect is the pixel window of Grid inside the full data grid.
	Rect image.Rectangle

	// Slice gives the selected index for every extra dimension of the data.
	Slice map[string]int

	// Values gives the selected value for every extra dimension.
	Values map[string]string
}

// snap absorbs rounding errors before pixel coordinates are rounded
// outwards.
const snap = 1e-9

// ReadRegion finds the smallest window of data which covers objective,
// grown by margin objective pixels.
//
// A margin of NaN means that the painted extent is unknown; in this case,
// and when margin is zero, the window is grown by one data cell so that
// the resampler finds the neighbours of boundary pixels.
//
// The slice map selects an index for extra dimensions of the data.
// Dimensions not listed use index 0.
func ReadRegion(data, objective grid.Geometry, margin float64, slice map[string]int) (Region, error) {
	if err := data.Validate(); err != nil {
		return Region{}, err
	}

	env := objective.Envelope()
	if margin > 0 && !math.IsInf(margin, 0) {
		rx, ry := objective.Resolution()
		env = grid.Expand(env, margin*rx, margin*ry)
	}

	proj, err := crs.Transformation(objective.CRS, data.CRS)
	if err != nil {
		return Region{}, err
	}
	env, err = crs.TransformEnvelope(env, proj)
	if err != nil {
		return Region{}, err
	}

	env, ok := grid.Intersect(env, data.Envelope())
	if !ok {
		return Region{}, ErrDisjoint
	}

	inv, err := data.CRSToGrid()
	if err != nil {
		return Region{}, err
	}
	pix := grid.ImageOf(inv, env)
	r := image.Rect(
		int(math.Floor(pix.LLx+snap)), int(math.Floor(pix.LLy+snap)),
		int(math.Ceil(pix.URx-snap)), int(math.Ceil(pix.URy-snap)),
	)
	if math.IsNaN(margin) || margin == 0 {
		r = r.Inset(-1)
	}
	r = r.Intersect(data.Bounds())
	if r.Empty() {
		return Region{}, ErrDisjoint
	}

	sel, values, err := selectSlice(data.Dims, slice)
	if err != nil {
		return Region{}, err
	}

	sub := data.SubGrid(r)
	sub.Dims = make([]grid.Dimension, len(data.Dims))
	for i, d := range data.Dims {
		sub.Dims[i] = grid.Dimension{Name: d.Name, Values: []string{values[d.Name]}}
	}

	return Region{Grid: sub, Rect: r, Slice: sel, Values: values}, nil
}

func selectSlice(dims []grid.Dimension, slice map[string]int) (map[string]int, map[string]string, error) {
	for name := range slice {
		if !slices.ContainsFunc(dims, func(d grid.Dimension) bool { return d.Name == name }) {
			return nil, nil, fmt.Errorf("%w: data has no dimension %q", ErrInvalidSlice, name)
		}
	}

	values, err := coverage.SliceValues(dims, slice)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidSlice, err)
	}
	sel := make(map[string]int, len(dims))
	for _, d := range dims {
		sel[d.Name] = slice[d.Name]
	}
	return sel, values, nil
}
