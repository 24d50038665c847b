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

// Package grid describes pixel grids which are georeferenced by an affine
// map from pixel coordinates to the coordinates of a reference system.
//
// Pixel (i, j) covers the square [i, i+1) × [j, j+1) in grid coordinates.
// Axis flips and swaps are encoded in the transformation; no code in this
// module assumes a particular sign of the matrix entries.
package grid

import (
	"errors"
	"fmt"
	"image"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/portray/crs"
)

// ErrInvalid is returned by Geometry.Validate.
var ErrInvalid = errors.New("invalid grid geometry")

// Dimension is a non-spatial axis of a data set, for example time or
// elevation.  Values are ordered; index 0 is the first slice.
type Dimension struct {
	Name   string
	Values []string
}

// Geometry is a georeferenced pixel grid.
type Geometry struct {
	Width, Height int

	CRS crs.CRS

	// GridToCRS maps grid coordinates to CRS coordinates.
	GridToCRS matrix.Matrix

	// Dims lists the non-spatial dimensions of the data, if any.
	Dims []Dimension
}

// New returns a north-up grid of the given size which exactly covers env.
// Row 0 is at the top (maximal northing) of env.
func New(env rect.Rect, width, height int, c crs.CRS) Geometry {
	sx := (env.URx - env.LLx) / float64(width)
	sy := (env.URy - env.LLy) / float64(height)
	return Geometry{
		Width:     width,
		Height:    height,
		CRS:       c,
		GridToCRS: matrix.Matrix{sx, 0, 0, -sy, env.LLx, env.URy},
	}
}

// Validate checks that g has a positive size and an invertible
// transformation.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalid, g.Width, g.Height)
	}
	if _, err := Invert(g.GridToCRS); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for _, d := range g.Dims {
		if len(d.Values) == 0 {
			return fmt.Errorf("%w: dimension %q is empty", ErrInvalid, d.Name)
		}
	}
	return nil
}

// Bounds returns the pixel extent of g.
func (g Geometry) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// Envelope returns the image of the full pixel extent in CRS coordinates.
func (g Geometry) Envelope() rect.Rect {
	pix := rect.Rect{URx: float64(g.Width), URy: float64(g.Height)}
	return ImageOf(g.GridToCRS, pix)
}

// ToCRS maps grid coordinates to CRS coordinates.
func (g Geometry) ToCRS(x, y float64) (float64, float64) {
	return Apply(g.GridToCRS, x, y)
}

// CRSToGrid returns the inverse of the grid transformation.
func (g Geometry) CRSToGrid() (matrix.Matrix, error) {
	return Invert(g.GridToCRS)
}

// Resolution returns the size of one pixel step along the grid axes,
// measured in CRS units.
func (g Geometry) Resolution() (float64, float64) {
	m := g.GridToCRS
	return math.Hypot(m[0], m[1]), math.Hypot(m[2], m[3])
}

// AxisAligned reports whether grid columns map to fixed values of the first
// CRS axis.
func (g Geometry) AxisAligned() bool {
	return g.GridToCRS[1] == 0 && g.GridToCRS[2] == 0
}

// SubGrid returns the grid covering the pixels r of g.
// The result uses the same CRS and the same pixel size.
func (g Geometry) SubGrid(r image.Rectangle) Geometry {
	x, y := g.ToCRS(float64(r.Min.X), float64(r.Min.Y))
	m := g.GridToCRS
	m[4], m[5] = x, y
	return Geometry{
		Width:     r.Dx(),
		Height:    r.Dy(),
		CRS:       g.CRS,
		GridToCRS: m,
		Dims:      g.Dims,
	}
}

// Translate returns g shifted by dx along the first CRS axis.
func (g Geometry) Translate(dx float64) Geometry {
	g.GridToCRS[4] += dx
	return g
}
