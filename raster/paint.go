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

package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/pdf/graphics"
)

// StrokeStyle describes how the outline of a path is painted.
type StrokeStyle struct {
	Width      float64
	Cap        graphics.LineCapStyle
	Join       graphics.LineJoinStyle
	MiterLimit float64
	Dash       []float64
	DashPhase  float64
}

// Painter composites filled and stroked paths onto an RGBA image, using
// source-over blending.
type Painter struct {
	Dst *image.RGBA

	// Antialias selects anti-aliased edges.  If false, pixels are either
	// painted completely or not at all.
	Antialias bool

	r    *Rasterizer
	mask []uint8
}

// NewPainter returns a Painter drawing onto dst.
func NewPainter(dst *image.RGBA) *Painter {
	return &Painter{
		Dst:       dst,
		Antialias: true,
		r:         NewRasterizer(dst.Bounds()),
	}
}

// Fill paints the interior of p.
func (p *Painter) Fill(d *path.Data, rule FillRule, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	p.r.Reset(p.Dst.Bounds())
	p.r.Fill(d, rule, func(y, xMin int, coverage []float32) {
		p.blend(y, xMin, coverage, c)
	})
}

// Stroke paints the outline of p.
func (p *Painter) Stroke(d *path.Data, s *StrokeStyle, c color.NRGBA) {
	if c.A == 0 || s.Width <= 0 {
		return
	}
	p.r.Reset(p.Dst.Bounds())
	p.r.Width = s.Width
	p.r.Cap = s.Cap
	p.r.Join = s.Join
	if s.MiterLimit >= 1 {
		p.r.MiterLimit = s.MiterLimit
	}
	p.r.Dash = s.Dash
	p.r.DashPhase = s.DashPhase
	p.r.Stroke(d, func(y, xMin int, coverage []float32) {
		p.blend(y, xMin, coverage, c)
	})
}

// Set composites a single pixel with the given opacity.
func (p *Painter) Set(x, y int, c color.NRGBA, alpha float32) {
	r := image.Rect(x, y, x+1, y+1)
	if alpha >= 1 {
		draw.Draw(p.Dst, r, image.NewUniform(c), image.Point{}, draw.Over)
		return
	}
	if alpha <= 0 {
		return
	}
	m := image.NewUniform(color.Alpha{A: uint8(alpha*255 + 0.5)})
	draw.DrawMask(p.Dst, r, image.NewUniform(c), image.Point{}, m, image.Point{}, draw.Over)
}

// blend composites one row of coverage values, starting at pixel (xMin, y).
func (p *Painter) blend(y, xMin int, coverage []float32, c color.NRGBA) {
	n := len(coverage)
	if cap(p.mask) < n {
		p.mask = make([]uint8, n)
	}
	buf := p.mask[:n]
	for i, cov := range coverage {
		if !p.Antialias {
			if cov < 0.5 {
				cov = 0
			} else {
				cov = 1
			}
		}
		buf[i] = uint8(min(max(cov, 0), 1)*255 + 0.5)
	}
	mask := &image.Alpha{Pix: buf, Stride: n, Rect: image.Rect(0, 0, n, 1)}
	dr := image.Rect(xMin, y, xMin+n, y+1)
	draw.DrawMask(p.Dst, dr, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}
