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

// Package resample maps coverage data from one grid onto another.
//
// Every objective pixel centre is mapped through the objective grid
// transformation, the coordinate transformation between the two reference
// systems, and the inverse source grid transformation.  Since only the
// transformations are used, flipped and swapped source axes need no
// special treatment.
package resample

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/grid"
)

// Interpolation selects how samples between source pixel centres are
// computed.
type Interpolation int

// These are the supported interpolation methods.
const (
	Nearest Interpolation = iota
	Bilinear
	Bicubic
	Lanczos
)

func (ip Interpolation) String() string {
	switch ip {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	case Bicubic:
		return "bicubic"
	case Lanczos:
		return "lanczos"
	}
	return fmt.Sprintf("Interpolation(%d)", int(ip))
}

// ParseInterpolation converts a name as returned by String into an
// Interpolation.  The empty string selects Nearest.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "nearest":
		return Nearest, nil
	case "bilinear":
		return Bilinear, nil
	case "bicubic":
		return Bicubic, nil
	case "lanczos":
		return Lanczos, nil
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

// lanczos3 is the Lanczos kernel with three lobes.
var lanczos3 = &draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		if t >= 3 {
			return 0
		}
		pt := math.Pi * t
		return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
	},
}

func (ip Interpolation) kernel() *draw.Kernel {
	switch ip {
	case Bilinear:
		return draw.BiLinear
	case Bicubic:
		return draw.CatmullRom
	case Lanczos:
		return lanczos3
	}
	return nil
}

// Resample computes the values of src on the pixels of dst.  Objective
// pixels which map outside the source, or onto a void source pixel, are
// void in the result.
func Resample(src *coverage.Buffer, srcGrid, dstGrid grid.Geometry, ip Interpolation) (*coverage.Buffer, error) {
	if src.Width != srcGrid.Width || src.Height != srcGrid.Height {
		return nil, fmt.Errorf("resample: buffer is %dx%d, grid is %dx%d",
			src.Width, src.Height, srcGrid.Width, srcGrid.Height)
	}
	if ip < Nearest || ip > Lanczos {
		return nil, fmt.Errorf("resample: unsupported %s", ip)
	}
	mp, err := newMapping(srcGrid, dstGrid)
	if err != nil {
		return nil, err
	}

	s := &sampler{src: src, k: ip.kernel()}
	if s.k != nil {
		s.fx, s.fy = mp.footprint(dstGrid)
	}

	dst := coverage.NewBuffer(dstGrid.Width, dstGrid.Height, src.Bands)
	for j := range dstGrid.Height {
		for i := range dstGrid.Width {
			u, v := mp.apply(float64(i)+0.5, float64(j)+0.5)
			s.sample(dst.Pixel(i, j), u, v)
		}
	}
	return dst, nil
}

// mapping converts objective grid coordinates into source grid
// coordinates.
type mapping struct {
	dstToCRS matrix.Matrix
	proj     orb.Projection // nil if both grids share a CRS
	crsToSrc matrix.Matrix
	direct   matrix.Matrix // used when proj is nil
}

func newMapping(srcGrid, dstGrid grid.Geometry) (*mapping, error) {
	inv, err := srcGrid.CRSToGrid()
	if err != nil {
		return nil, fmt.Errorf("resample: source %w", err)
	}
	mp := &mapping{dstToCRS: dstGrid.GridToCRS, crsToSrc: inv}
	if crs.Equivalent(srcGrid.CRS, dstGrid.CRS) {
		mp.direct = grid.Concat(dstGrid.GridToCRS, inv)
		return mp, nil
	}
	mp.proj, err = crs.Transformation(dstGrid.CRS, srcGrid.CRS)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return mp, nil
}

func (mp *mapping) apply(x, y float64) (float64, float64) {
	if mp.proj == nil {
		return grid.Apply(mp.direct, x, y)
	}
	cx, cy := grid.Apply(mp.dstToCRS, x, y)
	p := mp.proj(orb.Point{cx, cy})
	return grid.Apply(mp.crsToSrc, p[0], p[1])
}

// footprint estimates how many source pixels one objective pixel spans
// along each source axis, measured at the centre of the objective.  The
// result is at least 1, so that kernels are widened when reducing but never
// narrowed when enlarging.
func (mp *mapping) footprint(dstGrid grid.Geometry) (float64, float64) {
	cx, cy := float64(dstGrid.Width)/2, float64(dstGrid.Height)/2
	u0, v0 := mp.apply(cx, cy)
	u1, v1 := mp.apply(cx+1, cy)
	u2, v2 := mp.apply(cx, cy+1)
	fx := math.Abs(u1-u0) + math.Abs(u2-u0)
	fy := math.Abs(v1-v0) + math.Abs(v2-v0)
	if !(fx >= 1) || math.IsInf(fx, 0) {
		fx = 1
	}
	if !(fy >= 1) || math.IsInf(fy, 0) {
		fy = 1
	}
	return fx, fy
}

type sampler struct {
	src    *coverage.Buffer
	k      *draw.Kernel
	fx, fy float64

	wx, wy []float64
	acc    []float64
}

// sample writes the value at source grid position (u, v) into out.  out
// is left void if no value can be determined.
func (s *sampler) sample(out []float64, u, v float64) {
	src := s.src
	if !(u >= 0 && u < float64(src.Width) && v >= 0 && v < float64(src.Height)) {
		return
	}
	x, y := int(math.Floor(u)), int(math.Floor(v))
	if src.Void(x, y) {
		return
	}
	if s.k == nil {
		copy(out, src.Pixel(x, y))
		return
	}

	// continuous pixel index; pixel k has its centre at k+0.5
	px, py := u-0.5, v-0.5
	rx, ry := s.k.Support*s.fx, s.k.Support*s.fy
	x0 := max(int(math.Ceil(px-rx)), 0)
	x1 := min(int(math.Floor(px+rx)), src.Width-1)
	y0 := max(int(math.Ceil(py-ry)), 0)
	y1 := min(int(math.Floor(py+ry)), src.Height-1)

	s.wx = s.weights(s.wx[:0], x0, x1, px, s.fx)
	s.wy = s.weights(s.wy[:0], y0, y1, py, s.fy)
	if cap(s.acc) < src.Bands {
		s.acc = make([]float64, src.Bands)
	}
	acc := s.acc[:src.Bands]
	clear(acc)

	var total float64
	for yy := y0; yy <= y1; yy++ {
		wy := s.wy[yy-y0]
		if wy == 0 {
			continue
		}
		for xx := x0; xx <= x1; xx++ {
			w := wy * s.wx[xx-x0]
			if w == 0 || src.Void(xx, yy) {
				continue
			}
			for b, val := range src.Pixel(xx, yy) {
				acc[b] += w * val
			}
			total += w
		}
	}
	if math.Abs(total) < 1e-12 {
		return
	}
	for b := range acc {
		out[b] = acc[b] / total
	}
}

func (s *sampler) weights(buf []float64, lo, hi int, p, f float64) []float64 {
	for k := lo; k <= hi; k++ {
		t := math.Abs(float64(k)-p) / f
		w := 0.0
		if t < s.k.Support {
			w = s.k.At(t)
		}
		buf = append(buf, w)
	}
	return buf
}
