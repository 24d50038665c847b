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

package symbolizer

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// MarkShape returns the outline of a well-known mark, scaled to fit the
// square [-0.5, 0.5]×[-0.5, 0.5].  The y axis points down.
func MarkShape(name string) (*path.Data, error) {
	switch name {
	case "square", "":
		return polygon([]vec.Vec2{{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}}), nil
	case "circle":
		return circle(), nil
	case "triangle":
		return polygon([]vec.Vec2{{X: 0, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5}}), nil
	case "star":
		pts := make([]vec.Vec2, 10)
		for i := range pts {
			r := 0.5
			if i%2 == 1 {
				r = 0.5 * 0.381966 // inner radius of a regular pentagram
			}
			phi := float64(i)*math.Pi/5 - math.Pi/2
			pts[i] = vec.Vec2{X: r * math.Cos(phi), Y: r * math.Sin(phi)}
		}
		return polygon(pts), nil
	case "cross":
		return polygon(crossPoints(0)), nil
	case "x":
		return polygon(crossPoints(math.Pi / 4)), nil
	}
	return nil, fmt.Errorf("unknown mark %q", name)
}

func polygon(pts []vec.Vec2) *path.Data {
	p := &path.Data{}
	p.MoveTo(pts[0])
	for _, pt := range pts[1:] {
		p.LineTo(pt)
	}
	return p.Close()
}

// circle builds a circle of diameter 1 from four cubic Bézier curves.
func circle() *path.Data {
	const r = 0.5
	const k = 0.5522847498 * r
	p := &path.Data{}
	p.MoveTo(vec.Vec2{X: r, Y: 0})
	p.Cmds = append(p.Cmds, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo)
	p.Coords = append(p.Coords,
		vec.Vec2{X: r, Y: k}, vec.Vec2{X: k, Y: r}, vec.Vec2{X: 0, Y: r},
		vec.Vec2{X: -k, Y: r}, vec.Vec2{X: -r, Y: k}, vec.Vec2{X: -r, Y: 0},
		vec.Vec2{X: -r, Y: -k}, vec.Vec2{X: -k, Y: -r}, vec.Vec2{X: 0, Y: -r},
		vec.Vec2{X: k, Y: -r}, vec.Vec2{X: r, Y: -k}, vec.Vec2{X: r, Y: 0},
	)
	return p.Close()
}

// crossPoints returns a plus sign with arms of width 0.3, rotated by phi.
// A rotated cross is scaled up until its arms touch the unit square again.
func crossPoints(phi float64) []vec.Vec2 {
	const a, b = 0.5, 0.15
	base := []vec.Vec2{
		{X: -b, Y: -a}, {X: b, Y: -a}, {X: b, Y: -b}, {X: a, Y: -b},
		{X: a, Y: b}, {X: b, Y: b}, {X: b, Y: a}, {X: -b, Y: a},
		{X: -b, Y: b}, {X: -a, Y: b}, {X: -a, Y: -b}, {X: -b, Y: -b},
	}
	if phi == 0 {
		return base
	}
	s, c := math.Sincos(phi)
	scale := 0.5 * math.Sqrt2 / (a + b)
	out := make([]vec.Vec2, len(base))
	for i, v := range base {
		out[i] = vec.Vec2{X: scale * (c*v.X - s*v.Y), Y: scale * (s*v.X + c*v.Y)}
	}
	return out
}
