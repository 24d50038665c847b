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

package renderer

import (
	"fmt"
	"image"
	"image/color"
	"iter"
	"math"

	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/style"
	"seehuhn.de/go/portray/symbolizer"
)

type rasterRenderer struct {
	sym *style.RasterSymbolizer
	ctx *Context
}

func newRasterRenderer(c *symbolizer.Cached, ctx *Context) (Renderer, error) {
	if err := c.Evaluate(); err != nil {
		return nil, err
	}
	return &rasterRenderer{sym: c.Raster, ctx: ctx}, nil
}

// Presentations implements the Renderer interface.  Raster symbolizers do
// not apply to features.
func (r *rasterRenderer) Presentations(string, feature.Feature) iter.Seq[Presentation] {
	return func(func(Presentation) bool) {}
}

// Blit implements the CoverageRenderer interface.
func (r *rasterRenderer) Blit(buf *coverage.Buffer, at image.Point) error {
	for _, ch := range r.sym.Channels {
		if ch < 0 || ch >= buf.Bands {
			return fmt.Errorf("channel %d selected, data has %d bands", ch, buf.Bands)
		}
	}
	opacity, ok := style.Float(r.sym.Opacity, nil, 1)
	if !ok || opacity <= 0 {
		return nil
	}

	p := r.ctx.Painter()
	for y := range buf.Height {
		for x := range buf.Width {
			if buf.Void(x, y) {
				continue
			}
			c, ok := r.color(buf.Pixel(x, y))
			if !ok {
				continue
			}
			p.Set(at.X+x, at.Y+y, withOpacity(c, opacity), 1)
		}
	}
	return nil
}

// color converts the samples of one pixel into a colour.
func (r *rasterRenderer) color(px []float64) (color.NRGBA, bool) {
	ch := r.sym.Channels
	if m := r.sym.ColorMap; m != nil {
		band := 0
		if len(ch) > 0 {
			band = ch[0]
		}
		return m.Lookup(px[band])
	}

	switch {
	case len(ch) == 1:
		g := channel(px[ch[0]])
		return color.NRGBA{R: g, G: g, B: g, A: 255}, true
	case len(ch) == 3:
		return color.NRGBA{R: channel(px[ch[0]]), G: channel(px[ch[1]]), B: channel(px[ch[2]]), A: 255}, true
	}

	switch len(px) {
	case 0:
		return color.NRGBA{}, false
	case 1:
		g := channel(px[0])
		return color.NRGBA{R: g, G: g, B: g, A: 255}, true
	case 2:
		g := channel(px[0])
		return color.NRGBA{R: g, G: g, B: g, A: channel(px[1])}, true
	case 3:
		return color.NRGBA{R: channel(px[0]), G: channel(px[1]), B: channel(px[2]), A: 255}, true
	default:
		return color.NRGBA{R: channel(px[0]), G: channel(px[1]), B: channel(px[2]), A: channel(px[3])}, true
	}
}

// channel converts a sample in [0, 255] into a colour component.
func channel(v float64) uint8 {
	return uint8(math.Round(max(0, min(255, v))))
}
