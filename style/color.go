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

package style

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ParseColor parses colours of the form "#rgb", "#rrggbb" and "#rrggbbaa".
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// ColorMapType determines how a ColorMap interpolates between entries.
type ColorMapType int

// These are the supported colour map types.
const (
	// Ramp interpolates linearly between neighbouring entries.
	Ramp ColorMapType = iota

	// Intervals uses the colour of the first entry whose quantity is
	// larger than the value.
	Intervals

	// Values only colours values equal to the quantity of an entry.
	Values
)

// ColorMapEntry assigns a colour to a quantity.
type ColorMapEntry struct {
	Quantity float64
	Color    color.NRGBA
}

// ColorMap maps sample values to colours.  Entries must be sorted by
// increasing quantity.
type ColorMap struct {
	Type    ColorMapType
	Entries []ColorMapEntry
}

// Lookup returns the colour for the sample value v.  The second return
// value is false if v is not painted.
func (m *ColorMap) Lookup(v float64) (color.NRGBA, bool) {
	if math.IsNaN(v) || len(m.Entries) == 0 {
		return color.NRGBA{}, false
	}
	es := m.Entries
	switch m.Type {
	case Values:
		for _, e := range es {
			if e.Quantity == v {
				return e.Color, true
			}
		}
		return color.NRGBA{}, false
	case Intervals:
		for _, e := range es {
			if v < e.Quantity {
				return e.Color, true
			}
		}
		return color.NRGBA{}, false
	}

	if v <= es[0].Quantity {
		return es[0].Color, true
	}
	for i := 1; i < len(es); i++ {
		if v <= es[i].Quantity {
			a, b := es[i-1], es[i]
			t := (v - a.Quantity) / (b.Quantity - a.Quantity)
			return lerp(a.Color, b.Color, t), true
		}
	}
	return es[len(es)-1].Color, true
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + t*(float64(y)-float64(x))))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
