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
	"image"
	"image/color"
	"iter"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/style"
	"seehuhn.de/go/portray/symbolizer"
)

// Label is a line of text, in canvas pixel coordinates.
type Label struct {
	Text string
	Size float64

	// At is the canvas position of the anchor point.  Anchor gives the
	// position of this point relative to the bounding box of the text,
	// with (0, 0) at the bottom left and (1, 1) at the top right.
	At     vec.Vec2
	Anchor vec.Vec2

	Color     color.NRGBA
	Halo      int // radius in pixels, 0 for no halo
	HaloColor color.NRGBA
}

var labelFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// Paint implements the Presentation interface.
func (l *Label) Paint(ctx *Context) {
	f, err := labelFont()
	if err != nil || l.Size <= 0 {
		return
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    l.Size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return
	}
	defer face.Close()

	d := &font.Drawer{Dst: ctx.Canvas, Face: face}
	width := d.MeasureString(l.Text)
	m := face.Metrics()
	height := m.Ascent + m.Descent

	x := fixed.Int26_6(l.At.X*64) - fixed.Int26_6(l.Anchor.X*float64(width))
	baseline := fixed.Int26_6(l.At.Y*64) + fixed.Int26_6(l.Anchor.Y*float64(height)) - m.Descent

	if l.Halo > 0 && l.HaloColor.A > 0 {
		d.Src = image.NewUniform(l.HaloColor)
		r2 := l.Halo * l.Halo
		for dy := -l.Halo; dy <= l.Halo; dy++ {
			for dx := -l.Halo; dx <= l.Halo; dx++ {
				if dx*dx+dy*dy > r2 || dx == 0 && dy == 0 {
					continue
				}
				d.Dot = fixed.Point26_6{X: x + fixed.I(dx), Y: baseline + fixed.I(dy)}
				d.DrawString(l.Text)
			}
		}
	}
	d.Src = image.NewUniform(l.Color)
	d.Dot = fixed.Point26_6{X: x, Y: baseline}
	d.DrawString(l.Text)
}

type textRenderer struct {
	c   *symbolizer.Cached
	ctx *Context
	tr  cases.Caser
	has bool
}

func newTextRenderer(c *symbolizer.Cached, ctx *Context) (Renderer, error) {
	if err := c.Evaluate(); err != nil {
		return nil, err
	}
	r := &textRenderer{c: c, ctx: ctx, has: true}
	switch c.Text.Transform {
	case "upper":
		r.tr = cases.Upper(language.Und)
	case "lower":
		r.tr = cases.Lower(language.Und)
	case "title":
		r.tr = cases.Title(language.Und)
	default:
		r.has = false
	}
	return r, nil
}

// Presentations implements the Renderer interface.  A label is placed at
// every point of the feature.
func (r *textRenderer) Presentations(_ string, f feature.Feature) iter.Seq[Presentation] {
	return func(yield func(Presentation) bool) {
		ts := r.c.Text
		text, ok := style.String(ts.Label, f)
		if !ok || text == "" {
			return
		}
		if r.has {
			text = r.tr.String(text)
		}
		size, _ := style.Float(ts.Size, f, symbolizer.DefaultFontSize)
		ax, _ := style.Float(ts.Anchor.X, f, 0.5)
		ay, _ := style.Float(ts.Anchor.Y, f, 0.5)
		fill := color.NRGBA{A: 255}
		if ts.Fill != nil {
			fill = fillColor(ts.Fill, f, 1)
		}
		delta := offset(ts.Displacement, f)

		for _, p := range points(f.Geometry) {
			l := &Label{
				Text:   text,
				Size:   size,
				At:     r.ctx.ToPixel(p).Add(delta),
				Anchor: vec.Vec2{X: ax, Y: ay},
				Color:  fill,
			}
			if h := ts.Halo; h != nil && h.Radius > 0 {
				l.Halo = max(1, int(h.Radius+0.5))
				l.HaloColor = fillColor(&h.Fill, f, 1)
			}
			if !yield(l) {
				return
			}
		}
	}
}
