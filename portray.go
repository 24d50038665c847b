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

// Package portray renders styled geospatial data into images.
//
// A Portrayer paints the layers of a scene, in order, onto a canvas.
// Vector layers are painted by renderers found through the capability of
// each compiled symbolizer.  Coverage layers are read from their source,
// resampled onto the canvas grid and coloured by raster symbolizers.  Data
// which lie across the antimeridian of a periodic reference system are
// painted once per visible copy.
//
// Failures are contained: a symbolizer which cannot be compiled or has no
// renderer is skipped, and a layer whose source fails is skipped.  Only
// an invalid canvas or scene aborts the call.  All skips are recorded in
// the Report.
package portray

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"golang.org/x/image/draw"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/portray/antimeridian"
	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/grid"
	"seehuhn.de/go/portray/renderer"
	"seehuhn.de/go/portray/resample"
	"seehuhn.de/go/portray/resolve"
	"seehuhn.de/go/portray/style"
	"seehuhn.de/go/portray/symbolizer"
)

var (
	// ErrConfiguration is returned when the canvas or the scene cannot be
	// used.  No image is produced.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDataSource wraps errors returned by feature and coverage sources.
	ErrDataSource = errors.New("data source failed")
)

// Canvas describes the output image.
type Canvas struct {
	Width, Height int
	Envelope      rect.Rect
	CRS           crs.CRS
	Background    color.NRGBA

	// Grid, if set, is used instead of Width, Height, Envelope and CRS.
	Grid *grid.Geometry
}

// Geometry returns the pixel grid of the canvas.
func (cv Canvas) Geometry() (grid.Geometry, error) {
	var g grid.Geometry
	if cv.Grid != nil {
		g = *cv.Grid
	} else {
		if grid.IsEmpty(cv.Envelope) {
			return g, fmt.Errorf("%w: empty envelope %v", ErrConfiguration, cv.Envelope)
		}
		if cv.Width <= 0 || cv.Height <= 0 {
			return g, fmt.Errorf("%w: canvas size %dx%d", ErrConfiguration, cv.Width, cv.Height)
		}
		g = grid.New(cv.Envelope, cv.Width, cv.Height, cv.CRS)
	}
	if err := g.Validate(); err != nil {
		return g, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if g.CRS.Period() == 0 {
		return g, fmt.Errorf("%w: unsupported CRS %q", ErrConfiguration, g.CRS)
	}
	return g, nil
}

// Scene lists the layers to paint, bottom first.
type Scene struct {
	Layers []Layer
	Hints  Hints
}

// Hints control the quality of the output.
type Hints struct {
	Interpolation resample.Interpolation

	// ColorModel selects the type of the returned image.  Supported
	// models are color.RGBAModel (the default), color.NRGBAModel and
	// color.GrayModel.
	ColorModel color.Model

	// NoAntialias switches off anti-aliasing of vector data.
	NoAntialias bool
}

// Portrayer renders scenes.  A Portrayer can be used by several goroutines
// at the same time.
type Portrayer struct {
	Cache    *symbolizer.Cache
	Registry *renderer.Registry
	Logger   *log.Logger
}

// New returns a Portrayer with an empty symbolizer cache and the built-in
// renderers.  If logger is nil, the default logger is used.
func New(logger *log.Logger) *Portrayer {
	return &Portrayer{
		Cache:    symbolizer.NewCache(),
		Registry: renderer.NewDefaultRegistry(),
		Logger:   logger,
	}
}

// Portray paints the scene onto a new image.
//
// Layers which cannot be painted are skipped and recorded in the report.
// The returned error is non-nil only for configuration errors and when
// ctx is cancelled; in these cases no image is returned.
func (p *Portrayer) Portray(ctx context.Context, cv Canvas, sc Scene) (image.Image, *Report, error) {
	report := &Report{RenderID: uuid.NewString()}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("render", report.RenderID)

	g, err := cv.Geometry()
	if err != nil {
		return nil, report, err
	}
	for i, l := range sc.Layers {
		if l == nil {
			return nil, report, fmt.Errorf("%w: layer %d is nil", ErrConfiguration, i)
		}
	}
	if sc.Hints.Interpolation < resample.Nearest || sc.Hints.Interpolation > resample.Lanczos {
		return nil, report, fmt.Errorf("%w: interpolation %s", ErrConfiguration, sc.Hints.Interpolation)
	}

	canvas := image.NewRGBA(g.Bounds())
	draw.Draw(canvas, canvas.Rect, image.NewUniform(cv.Background), image.Point{}, draw.Src)

	rc, err := renderer.NewContext(g, canvas)
	if err != nil {
		return nil, report, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	rc.Interpolation = sc.Hints.Interpolation
	rc.Antialias = !sc.Hints.NoAntialias
	rc.ScaleDenominator = ScaleDenominator(g)
	logger.Debugf("canvas %dx%d %s, scale 1:%.0f", g.Width, g.Height, g.CRS, rc.ScaleDenominator)

	for _, l := range sc.Layers {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		start := time.Now()
		lr := LayerReport{Name: l.LayerName()}
		switch l := l.(type) {
		case *VectorLayer:
			err = p.paintVector(ctx, rc, l, &lr, logger)
		case *CoverageLayer:
			err = p.paintCoverage(ctx, rc, l, &lr, logger)
		default:
			return nil, report, fmt.Errorf("%w: unsupported layer type %T", ErrConfiguration, l)
		}
		lr.Duration = time.Since(start)

		switch {
		case err == nil:
			lr.Status = Rendered
			logger.Debugf("layer %q: %d features, %d presentations (%s)",
				lr.Name, lr.Features, lr.Presentations, lr.Duration.Round(time.Microsecond))
		case errors.Is(err, resolve.ErrDisjoint):
			lr.Status = Disjoint
			logger.Debugf("layer %q does not overlap the canvas", lr.Name)
		case ctx.Err() != nil:
			return nil, report, ctx.Err()
		default:
			lr.Status = Failed
			lr.Err = err
			logger.Warn("layer skipped", "layer", lr.Name, "err", err)
		}
		report.Layers = append(report.Layers, lr)
	}

	return convert(canvas, sc.Hints.ColorModel), report, nil
}

// binding is a renderer for one symbolizer of one rule.
type binding struct {
	rule   *style.Rule
	cached *symbolizer.Cached
	r      renderer.Renderer
}

// bind compiles the symbolizers of the rules active at the current scale
// and looks up their renderers.  Symbolizers which cannot be used are
// recorded in lr and skipped.
func (p *Portrayer) bind(rc *renderer.Context, st *style.Style, lr *LayerReport, logger *log.Logger) []binding {
	var res []binding
	for _, rule := range st.Rules {
		if !rule.InScale(rc.ScaleDenominator) {
			continue
		}
		for _, sym := range rule.Symbolizers {
			c, err := p.Cache.Get(sym, rule.Name)
			if err == nil {
				var r renderer.Renderer
				r, err = p.Registry.FindRenderer(c, rc)
				if err == nil {
					res = append(res, binding{rule: rule, cached: c, r: r})
					continue
				}
			}
			lr.SkippedSymbolizers = append(lr.SkippedSymbolizers, err)
			logger.Warn("symbolizer skipped", "layer", lr.Name, "rule", rule.Name, "err", err)
		}
	}
	return res
}

// margin returns the largest static margin of the bound symbolizers, or
// NaN if any of them depends on the data.
func margin(bs []binding) float64 {
	m := 0.0
	for _, b := range bs {
		bm := b.cached.StaticMargin()
		if math.IsNaN(bm) {
			return math.NaN()
		}
		m = max(m, bm)
	}
	return m
}

func (p *Portrayer) paintVector(ctx context.Context, rc *renderer.Context, l *VectorLayer, lr *LayerReport, logger *log.Logger) error {
	if l.Source == nil || l.Style == nil {
		return errors.New("vector layer needs a source and a style")
	}
	g := rc.Grid
	src := l.Source

	toCanvas, err := crs.Transformation(src.CRS(), g.CRS)
	if err != nil {
		return err
	}
	toData, err := crs.Transformation(g.CRS, src.CRS())
	if err != nil {
		return err
	}
	dataEnv, err := crs.TransformEnvelope(src.Envelope(), toCanvas)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataSource, err)
	}
	bound := p.bind(rc, l.Style, lr, logger)
	m := margin(bound)

	// symbols of features just outside the canvas may still reach into it
	pad := 1.0
	if !math.IsNaN(m) {
		pad = max(m, 1)
	}
	rx, ry := g.Resolution()
	parts := antimeridian.Split(g, grid.Expand(dataEnv, pad*rx, pad*ry), g.CRS.Period())
	if len(parts) == 0 {
		return resolve.ErrDisjoint
	}
	if len(bound) == 0 {
		return nil
	}

	rc.Project = nil
	if !crs.Equivalent(src.CRS(), g.CRS) {
		rc.Project = toCanvas
	}
	defer func() { rc.Project, rc.Shift = nil, 0 }()

	v := &vectorPass{rc: rc, layer: l.Name, bound: bound, lr: lr, rx: rx, ry: ry}

	// an unknown margin means that the whole source must be read, once
	if math.IsNaN(m) {
		for f, err := range src.Features(ctx, src.Envelope()) {
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDataSource, err)
			}
			if err := v.visit(f, parts); err != nil {
				return err
			}
		}
		lr.Parts = len(parts)
		return nil
	}

	for i, part := range parts {
		env := grid.Expand(part.Grid.Envelope(), m*rx, m*ry)
		query, err := crs.TransformEnvelope(env, toData)
		if err != nil {
			return err
		}
		for f, err := range src.Features(ctx, query) {
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDataSource, err)
			}
			if err := v.visit(f, parts[i:i+1]); err != nil {
				return err
			}
		}
		lr.Parts++
	}
	return nil
}

// vectorPass paints the features of one vector layer.
type vectorPass struct {
	rc     *renderer.Context
	layer  string
	bound  []binding
	lr     *LayerReport
	rx, ry float64
}

// visit paints f with every applicable binding, once for each of the
// given parts which the symbol can reach.  Symbols of unknown extent are
// painted in the part closest to the feature only.
func (v *vectorPass) visit(f feature.Feature, parts []antimeridian.Part) error {
	fb := f.Bounds()
	if v.rc.Project != nil {
		var err error
		fb, err = crs.TransformEnvelope(fb, v.rc.Project)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDataSource, err)
		}
	}

	nearest := nearestPart(fb, parts)
	used := false
	for _, b := range v.bound {
		if !b.rule.Applies(f) {
			continue
		}
		mg := b.cached.Margin(f)
		for i := range parts {
			if math.IsNaN(mg) {
				if i != nearest {
					continue
				}
			} else {
				env := grid.Expand(parts[i].Grid.Envelope(), mg*v.rx, mg*v.ry)
				if !touches(fb, env) {
					continue
				}
			}
			v.rc.Shift = parts[i].Shift
			used = true
			for pres := range b.r.Presentations(v.layer, f) {
				pres.Paint(v.rc)
				v.lr.Presentations++
			}
		}
	}
	if used {
		v.lr.Features++
	}
	return nil
}

// nearestPart returns the index of the part whose data window is closest
// to fb in the x direction.  Ties go to the first part.
func nearestPart(fb rect.Rect, parts []antimeridian.Part) int {
	best, bestGap := 0, math.Inf(1)
	for i, part := range parts {
		env := part.Grid.Envelope()
		gap := max(env.LLx-fb.URx, fb.LLx-env.URx, 0)
		if gap < bestGap {
			best, bestGap = i, gap
		}
	}
	return best
}

// touches reports whether the closed rectangles a and b have a point in
// common.
func touches(a, b rect.Rect) bool {
	return a.LLx <= b.URx && b.LLx <= a.URx && a.LLy <= b.URy && b.LLy <= a.URy
}

func (p *Portrayer) paintCoverage(ctx context.Context, rc *renderer.Context, l *CoverageLayer, lr *LayerReport, logger *log.Logger) error {
	if l.Source == nil {
		return errors.New("coverage layer needs a source")
	}
	g := rc.Grid
	data := l.Source.Grid()
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrDataSource, err)
	}

	toCanvas, err := crs.Transformation(data.CRS, g.CRS)
	if err != nil {
		return err
	}
	dataEnv, err := crs.TransformEnvelope(data.Envelope(), toCanvas)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDataSource, err)
	}
	parts := antimeridian.Split(g, dataEnv, g.CRS.Period())
	if len(parts) == 0 {
		return resolve.ErrDisjoint
	}

	st := l.Style
	if st == nil {
		st = defaultRasterStyle
	}
	var blitters []renderer.CoverageRenderer
	bound := p.bind(rc, st, lr, logger)
	for _, b := range bound {
		if cr, ok := b.r.(renderer.CoverageRenderer); ok {
			blitters = append(blitters, cr)
		}
	}
	if len(blitters) == 0 {
		return nil
	}
	m := margin(bound)

	painted := 0
	for _, part := range parts {
		reg, err := resolve.ReadRegion(data, part.Grid, m, l.Slice)
		if errors.Is(err, resolve.ErrDisjoint) {
			continue
		} else if err != nil {
			return err
		}
		logger.Debugf("layer %q: reading %v of %dx%d grid, slice %s",
			l.Name, reg.Rect, data.Width, data.Height, coverage.FormatSlice(reg.Values))

		cube, err := l.Source.Read(ctx, reg.Grid, reg.Slice)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDataSource, err)
		}
		// the source may return more slices than were asked for
		buf, err := cube.Select(reg.Values)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDataSource, err)
		}
		out, err := resample.Resample(buf, cube.Grid, part.Grid, rc.Interpolation)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDataSource, err)
		}
		for _, b := range blitters {
			if err := b.Blit(out, part.Bounds().Min); err != nil {
				return err
			}
		}
		painted++
		lr.Presentations += len(blitters)
	}
	lr.Parts = painted
	if painted == 0 {
		return resolve.ErrDisjoint
	}
	return nil
}

// pixelSize is the size of a standard rendering pixel in metres.
const pixelSize = 0.00028

// ScaleDenominator returns the map scale of g for a standard pixel size of
// 0.28mm.  Degrees are converted to metres at the equator.
func ScaleDenominator(g grid.Geometry) float64 {
	rx, _ := g.Resolution()
	if g.CRS.IsGeographic() {
		rx *= 2 * math.Pi * orb.EarthRadius / 360
	}
	return rx / pixelSize
}

// convert returns img in the requested colour model.
func convert(img *image.RGBA, m color.Model) image.Image {
	var dst draw.Image
	switch m {
	case color.NRGBAModel:
		dst = image.NewNRGBA(img.Rect)
	case color.GrayModel:
		dst = image.NewGray(img.Rect)
	default:
		return img
	}
	draw.Draw(dst, img.Rect, img, img.Rect.Min, draw.Src)
	return dst
}
