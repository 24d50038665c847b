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

// Package config reads scene files.
//
// A scene file is a TOML document with a [canvas] table, an optional
// [hints] table and a list of [[layer]] tables.  Each layer has a list of
// [[layer.rule]] tables, and each rule a list of [[layer.rule.symbolizer]]
// tables:
//
//	[canvas]
//	width = 720
//	height = 360
//	bbox = [-180, -90, 180, 90]
//	crs = "CRS:84"
//	background = "#ffffff"
//
//	[[layer]]
//	name = "cities"
//	type = "vector"
//	source = "cities.geojson"
//
//	[[layer.rule]]
//	max_scale = 5e7
//
//	[[layer.rule.symbolizer]]
//	type = "point"
//	mark = "circle"
//	size = { property = "population", scale = 1e-6, offset = 4 }
//	fill = "#c00000"
//
// File names are relative to the directory of the scene file.
package config

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/pdf/graphics"

	_ "golang.org/x/image/tiff" // register TIFF decoder

	"seehuhn.de/go/portray"
	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/grid"
	"seehuhn.de/go/portray/resample"
	"seehuhn.de/go/portray/style"
)

// ErrInvalid is returned for scene files which cannot be used.
var ErrInvalid = errors.New("invalid scene file")

// File is the content of a scene file.
type File struct {
	Canvas Canvas  `toml:"canvas"`
	Hints  Hints   `toml:"hints"`
	Layers []Layer `toml:"layer"`
}

// Canvas describes the output image.
type Canvas struct {
	Width      int       `toml:"width"`
	Height     int       `toml:"height"`
	BBox       []float64 `toml:"bbox"` // min x, min y, max x, max y
	CRS        string    `toml:"crs"`
	Background string    `toml:"background"`
}

// Hints select the rendering quality.
type Hints struct {
	Interpolation string `toml:"interpolation"`
	ColorModel    string `toml:"color_model"` // rgba, nrgba or gray
	Antialias     *bool  `toml:"antialias"`
}

// Layer is a vector or coverage layer.
type Layer struct {
	Name string `toml:"name"`
	Type string `toml:"type"` // vector or coverage

	// Source is a GeoJSON file for vector layers, or an image file for
	// coverage layers.
	Source string `toml:"source"`

	// Coverage layers only.  The image covers BBox in the given CRS.
	// Instead of Source, Sources lists one image per value of the extra
	// dimension Dimension.  Data gives the rows of a single band grid
	// directly, top row first.
	CRS       string         `toml:"crs"`
	BBox      []float64      `toml:"bbox"`
	Dimension string         `toml:"dimension"`
	Values    []string       `toml:"values"`
	Sources   []string       `toml:"sources"`
	Data      [][]float64    `toml:"data"`
	Slice     map[string]int `toml:"slice"`

	Rules []Rule `toml:"rule"`
}

// Rule is one rule of a layer style.
type Rule struct {
	Name     string  `toml:"name"`
	MinScale float64 `toml:"min_scale"`
	MaxScale float64 `toml:"max_scale"`

	// Filter, if set, restricts the rule to features whose properties
	// match.  Numbers match ranges given as [min, max], other values
	// are compared as strings.
	Filter map[string]any `toml:"filter"`

	Symbolizers []Symbolizer `toml:"symbolizer"`
}

// Symbolizer describes one symbolizer.  Which fields are used depends on
// the type: point, line, polygon, text or raster.
type Symbolizer struct {
	Type string `toml:"type"`

	Mark     string `toml:"mark"`
	External string `toml:"external"`
	Size     Expr   `toml:"size"`
	Rotation Expr   `toml:"rotation"`
	Opacity  Expr   `toml:"opacity"`
	Anchor   []Expr `toml:"anchor"`

	Fill        string    `toml:"fill"`
	FillOpacity Expr      `toml:"fill_opacity"`
	Stroke      string    `toml:"stroke"`
	StrokeWidth Expr      `toml:"stroke_width"`
	Dash        []float64 `toml:"dash"`
	Cap         string    `toml:"cap"`
	Join        string    `toml:"join"`

	Offset       Expr   `toml:"offset"`
	Displacement []Expr `toml:"displacement"`

	Label      Expr    `toml:"label"`
	HaloRadius float64 `toml:"halo_radius"`
	HaloColor  string  `toml:"halo_color"`
	Transform  string  `toml:"transform"`

	Channels []int     `toml:"channels"`
	ColorMap *ColorMap `toml:"color_map"`
}

// ColorMap maps band values to colours.
type ColorMap struct {
	Type    string  `toml:"type"` // ramp, intervals or values
	Entries [][]any `toml:"entries"`
}

// Expr is an expression.  In TOML it is a number, a string, or a table
// {property = "name", scale = 1, offset = 0}.
type Expr struct {
	style.Expression
}

// UnmarshalTOML implements the toml.Unmarshaler interface.
func (e *Expr) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case int64:
		e.Expression = style.Number(float64(v))
	case float64:
		e.Expression = style.Number(v)
	case string:
		e.Expression = style.Literal{Value: v}
	case map[string]any:
		name, ok := v["property"].(string)
		if !ok {
			return fmt.Errorf("expression table without property name")
		}
		var x style.Expression = style.Property{Name: name}
		scale, okScale := number(v["scale"])
		offset, okOffset := number(v["offset"])
		if okScale || okOffset {
			if !okScale {
				scale = 1
			}
			x = style.Linear{X: x, Scale: scale, Offset: offset}
		}
		e.Expression = x
	default:
		return fmt.Errorf("unsupported expression %v", v)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Parse decodes a scene file.  Unknown keys are an error.
func Parse(data []byte) (*File, error) {
	f := &File{}
	md, err := toml.Decode(string(data), f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if extra := md.Undecoded(); len(extra) > 0 {
		keys := make([]string, len(extra))
		for i, k := range extra {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	return f, nil
}

// Load reads and decodes a scene file.
func Load(fname string) (*File, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Scene converts f into a canvas and a scene.  Data files are read from
// dir.
func (f *File) Scene(dir string) (portray.Canvas, portray.Scene, error) {
	var sc portray.Scene

	cv, err := f.Canvas.canvas()
	if err != nil {
		return cv, sc, err
	}
	sc.Hints, err = f.Hints.hints()
	if err != nil {
		return cv, sc, err
	}

	for i := range f.Layers {
		l := &f.Layers[i]
		layer, err := l.layer(dir)
		if err != nil {
			return cv, sc, fmt.Errorf("layer %q: %w", l.Name, err)
		}
		sc.Layers = append(sc.Layers, layer)
	}
	return cv, sc, nil
}

func (c Canvas) canvas() (portray.Canvas, error) {
	env, err := bbox(c.BBox)
	if err != nil {
		return portray.Canvas{}, err
	}
	name := c.CRS
	if name == "" {
		name = string(crs.CRS84)
	}
	ref, err := crs.Parse(name)
	if err != nil {
		return portray.Canvas{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	cv := portray.Canvas{
		Width:    c.Width,
		Height:   c.Height,
		Envelope: env,
		CRS:      ref,
	}
	if c.Background != "" {
		cv.Background, err = style.ParseColor(c.Background)
		if err != nil {
			return cv, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return cv, nil
}

// WithSize returns a copy of c for an image of the given size, covering
// env in the reference system ref.  Zero arguments keep the existing
// values.
func WithSize(c portray.Canvas, width, height int, env rect.Rect, ref crs.CRS) portray.Canvas {
	if width > 0 {
		c.Width = width
	}
	if height > 0 {
		c.Height = height
	}
	if !grid.IsEmpty(env) {
		c.Envelope = env
	}
	if ref != "" {
		c.CRS = ref
	}
	return c
}

func (h Hints) hints() (portray.Hints, error) {
	var res portray.Hints
	ip, err := resample.ParseInterpolation(h.Interpolation)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	res.Interpolation = ip

	switch strings.ToLower(h.ColorModel) {
	case "", "rgba":
	case "nrgba":
		res.ColorModel = color.NRGBAModel
	case "gray", "grey":
		res.ColorModel = color.GrayModel
	default:
		return res, fmt.Errorf("%w: unknown colour model %q", ErrInvalid, h.ColorModel)
	}

	if h.Antialias != nil {
		res.NoAntialias = !*h.Antialias
	}
	return res, nil
}

func bbox(b []float64) (rect.Rect, error) {
	if len(b) != 4 {
		return rect.Rect{}, fmt.Errorf("%w: bbox needs 4 numbers, not %d", ErrInvalid, len(b))
	}
	r := rect.Rect{LLx: b[0], LLy: b[1], URx: b[2], URy: b[3]}
	if grid.IsEmpty(r) {
		return r, fmt.Errorf("%w: empty bbox %v", ErrInvalid, b)
	}
	return r, nil
}

func (l *Layer) layer(dir string) (portray.Layer, error) {
	st, err := l.style()
	if err != nil {
		return nil, err
	}

	switch l.Type {
	case "vector":
		if l.Source == "" {
			return nil, fmt.Errorf("%w: vector layer without source", ErrInvalid)
		}
		data, err := os.ReadFile(filepath.Join(dir, l.Source))
		if err != nil {
			return nil, err
		}
		src, err := feature.ReadGeoJSON(data)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, fmt.Errorf("%w: vector layer without rules", ErrInvalid)
		}
		return &portray.VectorLayer{Name: l.Name, Source: src, Style: st}, nil

	case "coverage":
		src, err := l.coverage(dir)
		if err != nil {
			return nil, err
		}
		return &portray.CoverageLayer{Name: l.Name, Source: src, Style: st, Slice: l.Slice}, nil
	}
	return nil, fmt.Errorf("%w: unknown layer type %q", ErrInvalid, l.Type)
}

func (l *Layer) coverage(dir string) (*coverage.Memory, error) {
	env, err := bbox(l.BBox)
	if err != nil {
		return nil, err
	}
	name := l.CRS
	if name == "" {
		name = string(crs.CRS84)
	}
	ref, err := crs.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var bufs []*coverage.Buffer
	switch {
	case l.Data != nil:
		b, err := inline(l.Data)
		if err != nil {
			return nil, err
		}
		bufs = append(bufs, b)
	case l.Source != "":
		b, err := readImage(filepath.Join(dir, l.Source))
		if err != nil {
			return nil, err
		}
		bufs = append(bufs, b)
	default:
		for _, fname := range l.Sources {
			b, err := readImage(filepath.Join(dir, fname))
			if err != nil {
				return nil, err
			}
			bufs = append(bufs, b)
		}
	}
	if len(bufs) == 0 {
		return nil, fmt.Errorf("%w: coverage layer without data", ErrInvalid)
	}

	g := grid.New(env, bufs[0].Width, bufs[0].Height, ref)
	if l.Dimension != "" {
		values := l.Values
		if values == nil {
			for i := range bufs {
				values = append(values, fmt.Sprint(i))
			}
		}
		g.Dims = []grid.Dimension{{Name: l.Dimension, Values: values}}
	}
	return coverage.NewMemory(g, bufs...)
}

func inline(rows [][]float64) (*coverage.Buffer, error) {
	h := len(rows)
	if h == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrInvalid)
	}
	w := len(rows[0])
	b := coverage.NewBuffer(w, h, 1)
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("%w: data row %d has %d values, not %d", ErrInvalid, y, len(row), w)
		}
		for x, v := range row {
			b.Set(x, y, 0, v)
		}
	}
	return b, nil
}

func readImage(fname string) (*coverage.Buffer, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	img, _, err := image.Decode(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return coverage.FromImage(img), nil
}

func (l *Layer) style() (*style.Style, error) {
	if len(l.Rules) == 0 {
		return nil, nil
	}
	st := &style.Style{Name: l.Name}
	for i, r := range l.Rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("%s/%d", l.Name, i+1)
		}
		rule := &style.Rule{Name: name, MinScale: r.MinScale, MaxScale: r.MaxScale}

		keys := make([]string, 0, len(r.Filter))
		for k := range r.Filter {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var all style.All
		for _, k := range keys {
			flt, err := filter(k, r.Filter[k])
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", name, err)
			}
			all = append(all, flt)
		}
		if len(all) > 0 {
			rule.Filter = all
		}

		for j, s := range r.Symbolizers {
			sym, err := s.symbolizer()
			if err != nil {
				return nil, fmt.Errorf("rule %q, symbolizer %d: %w", name, j+1, err)
			}
			rule.Symbolizers = append(rule.Symbolizers, sym)
		}
		st.Rules = append(st.Rules, rule)
	}
	return st, nil
}

func filter(prop string, v any) (style.Filter, error) {
	if r, ok := v.([]any); ok {
		if len(r) != 2 {
			return nil, fmt.Errorf("%w: range for %q needs 2 numbers", ErrInvalid, prop)
		}
		lo, ok1 := number(r[0])
		hi, ok2 := number(r[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: range for %q needs 2 numbers", ErrInvalid, prop)
		}
		return style.Between{Property: prop, Min: lo, Max: hi}, nil
	}
	return style.Equals{Property: prop, Value: fmt.Sprint(v)}, nil
}

func (s *Symbolizer) symbolizer() (style.Symbolizer, error) {
	switch s.Type {
	case "point":
		fill, err := s.fill()
		if err != nil {
			return nil, err
		}
		stroke, err := s.stroke()
		if err != nil {
			return nil, err
		}
		g := style.Graphic{
			External:     s.External,
			Size:         s.Size.Expression,
			Rotation:     s.Rotation.Expression,
			Opacity:      s.Opacity.Expression,
			Anchor:       offset(s.Anchor),
			Displacement: offset(s.Displacement),
		}
		if s.Mark != "" {
			g.Marks = []style.Mark{{Shape: s.Mark, Fill: fill, Stroke: stroke}}
		}
		return &style.PointSymbolizer{Graphic: g}, nil

	case "line":
		stroke, err := s.stroke()
		if err != nil {
			return nil, err
		}
		return &style.LineSymbolizer{Stroke: stroke, PerpendicularOffset: s.Offset.Expression}, nil

	case "polygon":
		fill, err := s.fill()
		if err != nil {
			return nil, err
		}
		stroke, err := s.stroke()
		if err != nil {
			return nil, err
		}
		return &style.PolygonSymbolizer{Fill: fill, Stroke: stroke, Displacement: offset(s.Displacement)}, nil

	case "text":
		fill, err := s.fill()
		if err != nil {
			return nil, err
		}
		ts := &style.TextSymbolizer{
			Label:        s.Label.Expression,
			Size:         s.Size.Expression,
			Fill:         fill,
			Anchor:       offset(s.Anchor),
			Displacement: offset(s.Displacement),
			Transform:    s.Transform,
		}
		if s.HaloRadius > 0 {
			col := "#ffffff"
			if s.HaloColor != "" {
				col = s.HaloColor
			}
			c, err := style.ParseColor(col)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
			}
			ts.Halo = &style.Halo{Radius: s.HaloRadius, Fill: style.Fill{Color: c}}
		}
		return ts, nil

	case "raster":
		rs := &style.RasterSymbolizer{Opacity: s.Opacity.Expression, Channels: s.Channels}
		if s.ColorMap != nil {
			m, err := s.ColorMap.colorMap()
			if err != nil {
				return nil, err
			}
			rs.ColorMap = m
		}
		return rs, nil
	}
	return nil, fmt.Errorf("%w: unknown symbolizer type %q", ErrInvalid, s.Type)
}

func offset(es []Expr) style.Offset {
	var o style.Offset
	if len(es) > 0 {
		o.X = es[0].Expression
	}
	if len(es) > 1 {
		o.Y = es[1].Expression
	}
	return o
}

func (s *Symbolizer) fill() (*style.Fill, error) {
	if s.Fill == "" {
		return nil, nil
	}
	c, err := style.ParseColor(s.Fill)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &style.Fill{Color: c, Opacity: s.FillOpacity.Expression}, nil
}

func (s *Symbolizer) stroke() (*style.Stroke, error) {
	if s.Stroke == "" {
		return nil, nil
	}
	c, err := style.ParseColor(s.Stroke)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	st := &style.Stroke{
		Color:   c,
		Width:   s.StrokeWidth.Expression,
		Opacity: s.Opacity.Expression,
		Dash:    s.Dash,
	}
	switch s.Cap {
	case "", "butt":
		st.Cap = graphics.LineCapButt
	case "round":
		st.Cap = graphics.LineCapRound
	case "square":
		st.Cap = graphics.LineCapSquare
	default:
		return nil, fmt.Errorf("%w: unknown line cap %q", ErrInvalid, s.Cap)
	}
	switch s.Join {
	case "", "miter":
		st.Join = graphics.LineJoinMiter
	case "round":
		st.Join = graphics.LineJoinRound
	case "bevel":
		st.Join = graphics.LineJoinBevel
	default:
		return nil, fmt.Errorf("%w: unknown line join %q", ErrInvalid, s.Join)
	}
	return st, nil
}

func (m *ColorMap) colorMap() (*style.ColorMap, error) {
	res := &style.ColorMap{}
	switch m.Type {
	case "", "ramp":
		res.Type = style.Ramp
	case "intervals":
		res.Type = style.Intervals
	case "values":
		res.Type = style.Values
	default:
		return nil, fmt.Errorf("%w: unknown colour map type %q", ErrInvalid, m.Type)
	}
	for _, e := range m.Entries {
		if len(e) != 2 {
			return nil, fmt.Errorf("%w: colour map entries are [quantity, colour] pairs", ErrInvalid)
		}
		q, ok := number(e[0])
		name, ok2 := e[1].(string)
		if !ok || !ok2 {
			return nil, fmt.Errorf("%w: colour map entries are [quantity, colour] pairs", ErrInvalid)
		}
		c, err := style.ParseColor(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		res.Entries = append(res.Entries, style.ColorMapEntry{Quantity: q, Color: c})
	}
	return res, nil
}
