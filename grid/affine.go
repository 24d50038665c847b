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

package grid

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// ErrSingular is returned when an affine transformation cannot be inverted.
var ErrSingular = errors.New("singular grid transformation")

// Apply maps the point (x, y) through m.
func Apply(m matrix.Matrix, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Invert returns the inverse of m.
func Invert(m matrix.Matrix) (matrix.Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return matrix.Matrix{}, ErrSingular
	}
	a := m[3] / det
	b := -m[1] / det
	c := -m[2] / det
	d := m[0] / det
	return matrix.Matrix{
		a, b,
		c, d,
		-(a*m[4] + c*m[5]), -(b*m[4] + d*m[5]),
	}, nil
}

// Concat returns the transformation which first applies m1 and then m2.
func Concat(m1, m2 matrix.Matrix) matrix.Matrix {
	return matrix.Matrix{
		m1[0]*m2[0] + m1[1]*m2[2],
		m1[0]*m2[1] + m1[1]*m2[3],
		m1[2]*m2[0] + m1[3]*m2[2],
		m1[2]*m2[1] + m1[3]*m2[3],
		m1[4]*m2[0] + m1[5]*m2[2] + m2[4],
		m1[4]*m2[1] + m1[5]*m2[3] + m2[5],
	}
}

// ImageOf returns the bounding box of the image of r under m.
func ImageOf(m matrix.Matrix, r rect.Rect) rect.Rect {
	x0, y0 := Apply(m, r.LLx, r.LLy)
	res := rect.Rect{LLx: x0, LLy: y0, URx: x0, URy: y0}
	for _, c := range [3][2]float64{{r.URx, r.LLy}, {r.LLx, r.URy}, {r.URx, r.URy}} {
		x, y := Apply(m, c[0], c[1])
		res.LLx = min(res.LLx, x)
		res.LLy = min(res.LLy, y)
		res.URx = max(res.URx, x)
		res.URy = max(res.URy, y)
	}
	return res
}

// IsEmpty reports whether r contains no interior points.
func IsEmpty(r rect.Rect) bool {
	return !(r.LLx < r.URx && r.LLy < r.URy)
}

// Intersect returns the intersection of a and b.  The second return value
// is false if the intersection has no interior.
func Intersect(a, b rect.Rect) (rect.Rect, bool) {
	r := rect.Rect{
		LLx: max(a.LLx, b.LLx),
		LLy: max(a.LLy, b.LLy),
		URx: min(a.URx, b.URx),
		URy: min(a.URy, b.URy),
	}
	return r, !IsEmpty(r)
}

// Expand grows r by dx on the left and right and by dy at the top and
// bottom.
func Expand(r rect.Rect, dx, dy float64) rect.Rect {
	return rect.Rect{LLx: r.LLx - dx, LLy: r.LLy - dy, URx: r.URx + dx, URy: r.URy + dy}
}

// Shift translates r by dx along the first axis.
func Shift(r rect.Rect, dx float64) rect.Rect {
	return rect.Rect{LLx: r.LLx + dx, LLy: r.LLy, URx: r.URx + dx, URy: r.URy}
}
