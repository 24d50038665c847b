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

// Package feature provides vector data sources.
package feature

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/portray/crs"
)

// Feature is one geographic object.
type Feature struct {
	ID         any
	Geometry   orb.Geometry
	Properties map[string]any
}

// Property returns the value of a named attribute.  The pseudo-attribute
// "@id" gives the feature ID.
func (f Feature) Property(name string) (any, bool) {
	if name == "@id" {
		return f.ID, f.ID != nil
	}
	v, ok := f.Properties[name]
	return v, ok
}

// Bounds returns the bounding box of the feature geometry.
func (f Feature) Bounds() rect.Rect {
	if f.Geometry == nil {
		return rect.Rect{}
	}
	b := f.Geometry.Bound()
	return rect.Rect{LLx: b.Min[0], LLy: b.Min[1], URx: b.Max[0], URy: b.Max[1]}
}

// Source is a collection of features.
type Source interface {
	// CRS returns the reference system of the feature coordinates.
	CRS() crs.CRS

	// Envelope returns a box containing all features.
	Envelope() rect.Rect

	// Features iterates over the features whose bounding box intersects
	// env, in a stable order.  Iteration stops at the first error.
	Features(ctx context.Context, env rect.Rect) iter.Seq2[Feature, error]
}

// Memory is an in-memory feature source with a spatial index.
type Memory struct {
	crs      crs.CRS
	tree     *rtreego.Rtree
	envelope rect.Rect
	n        int
}

type indexed struct {
	seq     int
	feature Feature
	box     rtreego.Rect
}

var errNotFinite = errors.New("coordinates are not finite")

// minExtent keeps index boxes of points and axis-parallel lines non-empty.
const minExtent = 1e-9

// Bounds implements the rtreego.Spatial interface.
func (e *indexed) Bounds() rtreego.Rect {
	return e.box
}

// searchRect converts b to an index box, grown by pad on every side.
// Boxes in the index only intersect if they overlap in their interior, so
// queries are padded to find features touching the query edge.
func searchRect(b rect.Rect, pad float64) (rtreego.Rect, error) {
	for _, v := range []float64{b.LLx, b.LLy, b.URx, b.URy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rtreego.Rect{}, errNotFinite
		}
	}
	return rtreego.NewRect(
		rtreego.Point{b.LLx - pad, b.LLy - pad},
		[]float64{max(b.URx-b.LLx, minExtent) + 2*pad, max(b.URy-b.LLy, minExtent) + 2*pad},
	)
}

// touches reports whether the closed boxes a and b have a point in common.
func touches(a, b rect.Rect) bool {
	return a.LLx <= b.URx && b.LLx <= a.URx && a.LLy <= b.URy && b.LLy <= a.URy
}

// NewMemory indexes the given features.  Features without geometry, or
// with coordinates which are not finite, are dropped.
func NewMemory(c crs.CRS, features []Feature) *Memory {
	m := &Memory{
		crs:  c,
		tree: rtreego.NewTree(2, 25, 50),
	}
	first := true
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		b := f.Bounds()
		box, err := searchRect(b, 0)
		if err != nil {
			continue
		}
		m.tree.Insert(&indexed{seq: m.n, feature: f, box: box})
		m.n++

		if first {
			m.envelope = b
			first = false
			continue
		}
		m.envelope.LLx = min(m.envelope.LLx, b.LLx)
		m.envelope.LLy = min(m.envelope.LLy, b.LLy)
		m.envelope.URx = max(m.envelope.URx, b.URx)
		m.envelope.URy = max(m.envelope.URy, b.URy)
	}
	return m
}

// ReadGeoJSON parses a GeoJSON feature collection.  GeoJSON coordinates are
// always longitude/latitude.
func ReadGeoJSON(data []byte) (*Memory, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}
	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		features = append(features, Feature{
			ID:         f.ID,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	return NewMemory(crs.CRS84, features), nil
}

// Len returns the number of indexed features.
func (m *Memory) Len() int {
	return m.n
}

// CRS implements the Source interface.
func (m *Memory) CRS() crs.CRS {
	return m.crs
}

// Envelope implements the Source interface.
func (m *Memory) Envelope() rect.Rect {
	return m.envelope
}

// Features implements the Source interface.  Features are returned in
// insertion order.
func (m *Memory) Features(ctx context.Context, env rect.Rect) iter.Seq2[Feature, error] {
	return func(yield func(Feature, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Feature{}, err)
			return
		}
		query, err := searchRect(env, minExtent)
		if err != nil {
			yield(Feature{}, fmt.Errorf("query %v: %w", env, err))
			return
		}
		hits := m.tree.SearchIntersect(query)
		found := make([]*indexed, 0, len(hits))
		for _, h := range hits {
			e := h.(*indexed)
			if touches(e.feature.Bounds(), env) {
				found = append(found, e)
			}
		}
		slices.SortFunc(found, func(a, b *indexed) int { return a.seq - b.seq })

		for _, e := range found {
			if !yield(e.feature, nil) {
				return
			}
		}
	}
}
