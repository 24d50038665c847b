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

package portray

import (
	"fmt"
	"strings"
	"time"

	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/style"
)

// Layer is one of VectorLayer and CoverageLayer.
type Layer interface {
	LayerName() string
	isLayer()
}

// VectorLayer paints the features of a source.
type VectorLayer struct {
	Name   string
	Source feature.Source
	Style  *style.Style
}

// CoverageLayer paints gridded data.  If Style is nil, the data are
// painted as grey, RGB or RGBA depending on the number of bands.
type CoverageLayer struct {
	Name   string
	Source coverage.Coverage
	Style  *style.Style

	// Slice selects an index for extra dimensions of the data.  Index 0 is
	// used for dimensions which are not listed.
	Slice map[string]int
}

// LayerName implements the Layer interface.
func (l *VectorLayer) LayerName() string { return l.Name }

// LayerName implements the Layer interface.
func (l *CoverageLayer) LayerName() string { return l.Name }

func (*VectorLayer) isLayer()   {}
func (*CoverageLayer) isLayer() {}

var defaultRasterStyle = &style.Style{
	Name: "default raster",
	Rules: []*style.Rule{{
		Name:        "default raster",
		Symbolizers: []style.Symbolizer{&style.RasterSymbolizer{}},
	}},
}

// LayerStatus describes the outcome of painting one layer.
type LayerStatus int

// These are the possible layer outcomes.
const (
	// Rendered means that the layer was painted, possibly with some
	// symbolizers skipped.
	Rendered LayerStatus = iota

	// Disjoint means that the layer data do not overlap the canvas.
	Disjoint

	// Failed means that the layer was skipped because of an error.
	Failed
)

func (s LayerStatus) String() string {
	switch s {
	case Rendered:
		return "rendered"
	case Disjoint:
		return "disjoint"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("LayerStatus(%d)", int(s))
}

// LayerReport records what happened to one layer.
type LayerReport struct {
	Name   string
	Status LayerStatus
	Err    error // set if Status is Failed

	Features      int // features handed to a renderer, per part
	Presentations int // paint operations performed
	Parts         int // antimeridian parts painted

	// SkippedSymbolizers lists symbolizers which were not used, because
	// they failed to compile or no renderer was found.
	SkippedSymbolizers []error

	Duration time.Duration
}

// Report describes the outcome of a Portray call.
type Report struct {
	RenderID string
	Layers   []LayerReport
}

// Skipped returns the number of failed layers plus the number of skipped
// symbolizers.
func (r *Report) Skipped() int {
	n := 0
	for _, l := range r.Layers {
		if l.Status == Failed {
			n++
		}
		n += len(l.SkippedSymbolizers)
	}
	return n
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "render %s\n", r.RenderID)
	for _, l := range r.Layers {
		fmt.Fprintf(&b, "  %-20s %-9s %5d features %5d presentations %v",
			l.Name, l.Status, l.Features, l.Presentations, l.Duration.Round(time.Microsecond))
		if l.Err != nil {
			fmt.Fprintf(&b, " (%v)", l.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
