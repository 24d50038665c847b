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

// Package antimeridian splits requests which cross the edge of a periodic
// coordinate system.
//
// A data set framed as [170°, 190°) and an objective framed as
// [-180°, 180°) overlap in two places: the data's western part appears at
// the eastern edge of the objective, and the data's eastern part appears
// at the western edge.  Split returns one part per copy of the data in
// the objective.  Each part covers a band of objective columns and comes
// with a grid for these columns, shifted into the frame of the data.
package antimeridian

import (
	"image"
	"math"

	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/portray/grid"
)

// Part is a band of objective columns which shows one copy of the data.
type Part struct {
	// X0 and X1 delimit the objective columns covered by this part.
	X0, X1 int

	// Shift is the offset of this copy of the data, in objective CRS
	// units.  Data coordinate x appears at objective coordinate x+Shift.
	Shift float64

	// Grid covers the columns X0 to X1 of the objective, moved by -Shift.
	// Pixel (i, j) of Grid corresponds to objective pixel (X0+i, j).
	Grid grid.Geometry
}

// Bounds returns the objective pixels covered by p.
func (p Part) Bounds() image.Rectangle {
	return image.Rect(p.X0, 0, p.X1, p.Grid.Height)
}

const snap = 1e-9

// Split finds the copies of the data envelope env, given in the objective
// CRS, which are visible in objective.  The period is the width of the
// world in objective CRS units; a period of zero disables splitting.
//
// The result is empty if no copy of the data is visible.  If splitting is
// not possible, because the CRS is not periodic or the objective columns
// do not follow the first CRS axis, a single part covering the whole
// objective is returned.
func Split(objective grid.Geometry, env rect.Rect, period float64) []Part {
	whole := []Part{{X0: 0, X1: objective.Width, Grid: objective}}
	m := objective.GridToCRS
	if period <= 0 || !objective.AxisAligned() || m[0] == 0 {
		return whole
	}

	obj := objective.Envelope()
	kMin := math.Floor((obj.LLx-env.URx)/period) + 1
	kMax := math.Ceil((obj.URx-env.LLx)/period) - 1

	var parts []Part
	for k := kMin; k <= kMax; k++ {
		shift := k * period
		lo := max(obj.LLx, env.LLx+shift)
		hi := min(obj.URx, env.URx+shift)
		if !(lo < hi) {
			continue
		}

		c0 := (lo - m[4]) / m[0]
		c1 := (hi - m[4]) / m[0]
		if c0 > c1 {
			c0, c1 = c1, c0
		}
		x0 := max(int(math.Floor(c0+snap)), 0)
		x1 := min(int(math.Ceil(c1-snap)), objective.Width)
		if x0 >= x1 {
			continue
		}

		sub := objective.SubGrid(image.Rect(x0, 0, x1, objective.Height))
		parts = append(parts, Part{
			X0:    x0,
			X1:    x1,
			Shift: shift,
			Grid:  sub.Translate(-shift),
		})
	}
	return parts
}
