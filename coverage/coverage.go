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

// Package coverage holds gridded sample data.
//
// Samples are stored as float64 values, pixel-interleaved.  NaN marks a
// void sample, which renders as transparent.  Coverages may carry extra
// dimensions such as time; each combination of dimension values is stored
// in its own Buffer.
package coverage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"maps"
	"math"
	"slices"
	"strings"

	"seehuhn.de/go/portray/grid"
)

var (
	// ErrSliceMissing is returned by Cube.Select if a requested dimension
	// value is not contained in the cube.
	ErrSliceMissing = errors.New("slice not present in coverage data")

	// ErrOutside is returned when a read request does not overlap the data.
	ErrOutside = errors.New("request outside coverage data")
)

// Buffer is a rectangular array of multi-band samples.
type Buffer struct {
	Width, Height int
	Bands         int

	// Samples holds Width*Height*Bands values.  The bands of pixel (x, y)
	// start at index (y*Width+x)*Bands.
	Samples []float64
}

// NewBuffer allocates a buffer with all samples set to void.
func NewBuffer(width, height, bands int) *Buffer {
	s := make([]float64, width*height*bands)
	for i := range s {
		s[i] = math.NaN()
	}
	return &Buffer{Width: width, Height: height, Bands: bands, Samples: s}
}

// Pixel returns the samples of pixel (x, y).  The result aliases the buffer.
func (b *Buffer) Pixel(x, y int) []float64 {
	i := (y*b.Width + x) * b.Bands
	return b.Samples[i : i+b.Bands : i+b.Bands]
}

// At returns one sample.
func (b *Buffer) At(x, y, band int) float64 {
	return b.Samples[(y*b.Width+x)*b.Bands+band]
}

// Set changes one sample.
func (b *Buffer) Set(x, y, band int, v float64) {
	b.Samples[(y*b.Width+x)*b.Bands+band] = v
}

// Void reports whether any band of pixel (x, y) is void.
func (b *Buffer) Void(x, y int) bool {
	for _, v := range b.Pixel(x, y) {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Crop returns a copy of the pixels in r.  r must lie inside the buffer.
func (b *Buffer) Crop(r image.Rectangle) *Buffer {
	res := &Buffer{
		Width:   r.Dx(),
		Height:  r.Dy(),
		Bands:   b.Bands,
		Samples: make([]float64, 0, r.Dx()*r.Dy()*b.Bands),
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := (y*b.Width + r.Min.X) * b.Bands
		res.Samples = append(res.Samples, b.Samples[i:i+r.Dx()*b.Bands]...)
	}
	return res
}

// FromImage converts an image into a buffer.  Gray images give one band
// with values in [0, 255]; all other images give four bands holding
// non-premultiplied R, G, B and A.  Fully transparent pixels are void.
func FromImage(img image.Image) *Buffer {
	r := img.Bounds()
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		b := NewBuffer(r.Dx(), r.Dy(), 1)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
				b.Set(x-r.Min.X, y-r.Min.Y, 0, float64(g.Y))
			}
		}
		return b
	}

	b := NewBuffer(r.Dx(), r.Dy(), 4)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			p := b.Pixel(x-r.Min.X, y-r.Min.Y)
			p[0], p[1], p[2], p[3] = float64(c.R), float64(c.G), float64(c.B), float64(c.A)
		}
	}
	return b
}

// Cube is the result of a coverage read.  Grid describes the spatial
// extent of every buffer; Grid.Dims lists the dimension values which were
// actually returned, which may be more than were requested.
//
// Buffers are ordered row-major over Grid.Dims, with the last dimension
// varying fastest.
type Cube struct {
	Grid    grid.Geometry
	Buffers []*Buffer
}

// Select returns the buffer for the given dimension values.  Dimensions
// not mentioned in want must have exactly one value in the cube.
func (c *Cube) Select(want map[string]string) (*Buffer, error) {
	idx := 0
	for _, d := range c.Grid.Dims {
		k := 0
		if v, ok := want[d.Name]; ok {
			k = indexOf(d.Values, v)
			if k < 0 {
				return nil, fmt.Errorf("%w: %s=%s", ErrSliceMissing, d.Name, v)
			}
		} else if len(d.Values) != 1 {
			return nil, fmt.Errorf("%w: no value chosen for %s", ErrSliceMissing, d.Name)
		}
		idx = idx*len(d.Values) + k
	}
	if idx >= len(c.Buffers) {
		return nil, fmt.Errorf("%w: cube holds %d buffers", ErrSliceMissing, len(c.Buffers))
	}
	return c.Buffers[idx], nil
}

func indexOf(values []string, v string) int {
	for i, w := range values {
		if w == v {
			return i
		}
	}
	return -1
}

// Coverage is a source of gridded data.
type Coverage interface {
	// Grid returns the native grid of the data, including its extra
	// dimensions.
	Grid() grid.Geometry

	// Read returns the data for the region g, which is a sub-grid of the
	// native grid.  The slice map gives an index per extra dimension;
	// missing dimensions default to index 0.  Implementations may return
	// a larger region and more slices than requested.
	Read(ctx context.Context, g grid.Geometry, slice map[string]int) (*Cube, error)
}

// SliceValues translates slice indices into dimension values, using index
// 0 for every dimension not listed.
func SliceValues(dims []grid.Dimension, slice map[string]int) (map[string]string, error) {
	res := make(map[string]string, len(dims))
	for _, d := range dims {
		k := slice[d.Name]
		if k < 0 || k >= len(d.Values) {
			return nil, fmt.Errorf("%w: %s index %d not in [0, %d)",
				ErrSliceMissing, d.Name, k, len(d.Values))
		}
		res[d.Name] = d.Values[k]
	}
	return res, nil
}

// FormatSlice returns a short description of a slice selection, for
// log messages.
func FormatSlice(values map[string]string) string {
	if len(values) == 0 {
		return "-"
	}
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(values)) {
		parts = append(parts, k+"="+values[k])
	}
	return strings.Join(parts, ",")
}
