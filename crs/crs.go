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

// Package crs provides the small set of coordinate reference systems the
// portrayal code understands, together with transformations between them.
//
// All systems use (easting, northing) axis order.  For the geographic
// systems this means (longitude, latitude), independent of the axis order
// an EPSG registry entry might prescribe.
package crs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"seehuhn.de/go/geom/rect"
)

// CRS identifies a coordinate reference system.
type CRS string

// The supported coordinate reference systems.
const (
	WGS84       CRS = "EPSG:4326"
	CRS84       CRS = "OGC:CRS84"
	WebMercator CRS = "EPSG:3857"
)

// ErrUnsupported is returned for coordinate reference systems which are
// not known to this package.
var ErrUnsupported = errors.New("unsupported coordinate reference system")

// maxMercatorLat is the latitude at which Web Mercator becomes square.
const maxMercatorLat = 85.05112877980659

// Parse converts a CRS identifier to one of the supported systems.
// Common aliases are accepted.
func Parse(s string) (CRS, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.TrimPrefix(key, "URN:OGC:DEF:CRS:")
	key = strings.ReplaceAll(key, "::", ":")
	switch key {
	case "EPSG:4326", "4326", "WGS84":
		return WGS84, nil
	case "OGC:CRS84", "CRS:84", "OGC:1.3:CRS84", "CRS84":
		return CRS84, nil
	case "EPSG:3857", "3857", "EPSG:900913", "EPSG:3785", "EPSG:102100":
		return WebMercator, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// IsGeographic reports whether coordinates are given in degrees.
func (c CRS) IsGeographic() bool {
	return c == WGS84 || c == CRS84
}

// Period returns the length of one revolution around the earth, measured
// along the first axis.  Zero is returned if c is not periodic.
func (c CRS) Period() float64 {
	switch {
	case c.IsGeographic():
		return 360
	case c == WebMercator:
		return 2 * math.Pi * orb.EarthRadius
	default:
		return 0
	}
}

// Domain returns the area of validity of c.
func (c CRS) Domain() rect.Rect {
	switch c {
	case WGS84, CRS84:
		return rect.Rect{LLx: -180, LLy: -90, URx: 180, URy: 90}
	case WebMercator:
		half := math.Pi * orb.EarthRadius
		return rect.Rect{LLx: -half, LLy: -half, URx: half, URy: half}
	}
	return rect.Rect{}
}

// Equivalent reports whether coordinates in a can be used unchanged in b.
func Equivalent(a, b CRS) bool {
	if a == b {
		return true
	}
	return a.IsGeographic() && b.IsGeographic()
}

func identity(p orb.Point) orb.Point { return p }

func toMercator(p orb.Point) orb.Point {
	p[1] = max(-maxMercatorLat, min(maxMercatorLat, p[1]))
	return project.WGS84.ToMercator(p)
}

// Transformation returns the map from src coordinates to dst coordinates.
// Longitudes are not wrapped, so that points east of the antimeridian keep
// their position relative to the rest of the world.
func Transformation(src, dst CRS) (orb.Projection, error) {
	switch {
	case src.Period() == 0:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, src)
	case dst.Period() == 0:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, dst)
	case Equivalent(src, dst):
		return identity, nil
	case src.IsGeographic():
		return toMercator, nil
	default:
		return project.Mercator.ToWGS84, nil
	}
}

// densify is the number of sample points per envelope edge used by
// TransformEnvelope.
const densify = 16

// TransformEnvelope returns the bounding box of the image of env under proj.
// The edges of env are sampled, so that curved images of straight edges are
// covered.
func TransformEnvelope(env rect.Rect, proj orb.Projection) (rect.Rect, error) {
	res := rect.Rect{
		LLx: math.Inf(+1), LLy: math.Inf(+1),
		URx: math.Inf(-1), URy: math.Inf(-1),
	}
	add := func(x, y float64) {
		p := proj(orb.Point{x, y})
		res.LLx = min(res.LLx, p[0])
		res.LLy = min(res.LLy, p[1])
		res.URx = max(res.URx, p[0])
		res.URy = max(res.URy, p[1])
	}
	for i := range densify + 1 {
		t := float64(i) / densify
		x := env.LLx + t*(env.URx-env.LLx)
		y := env.LLy + t*(env.URy-env.LLy)
		add(x, env.LLy)
		add(x, env.URy)
		add(env.LLx, y)
		add(env.URx, y)
	}
	for _, v := range []float64{res.LLx, res.LLy, res.URx, res.URy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rect.Rect{}, fmt.Errorf("envelope %v cannot be transformed", env)
		}
	}
	return res, nil
}
