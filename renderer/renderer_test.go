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
	"errors"
	"image"
	"image/color"
	"math"
	"reflect"
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/portray/coverage"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/feature"
	"seehuhn.de/go/portray/grid"
	"seehuhn.de/go/portray/style"
	"seehuhn.de/go/portray/symbolizer"
)

var (
	red         = color.NRGBA{R: 255, A: 255}
	blue        = color.NRGBA{B: 255, A: 255}
	transparent = color.RGBA{}
)

// newTestContext returns a context for a 10x10 canvas showing [0,10]².
// Data point (x, y) lies at pixel position (x, 10-y).
func newTestContext(t *testing.T) *Context {
	t.Helper()
	g := grid.New(rect.Rect{URx: 10, URy: 10}, 10, 10, crs.CRS84)
	ctx, err := NewContext(g, image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if err != nil {
		t.Fatal(err)
	}
	return ctx
}

func bind(t *testing.T, sym style.Symbolizer, ctx *Context) Renderer {
	t.Helper()
	c, err := symbolizer.NewCache().Get(sym, "test")
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewDefaultRegistry().FindRenderer(c, ctx)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func paint(ctx *Context, r Renderer, f feature.Feature) int {
	n := 0
	for p := range r.Presentations("test", f) {
		p.Paint(ctx)
		n++
	}
	return n
}

func squareMark(size float64, fill color.NRGBA) *style.PointSymbolizer {
	return &style.PointSymbolizer{Graphic: style.Graphic{
		Marks: []style.Mark{{Shape: "square", Fill: &style.Fill{Color: fill}}},
		Size:  style.Number(size),
	}}
}

func TestRegistry(t *testing.T) {
	reg := NewDefaultRegistry()
	want := []symbolizer.Capability{symbolizer.Mark, symbolizer.Line, symbolizer.Polygon, symbolizer.Text, symbolizer.Raster}
	if got := reg.Capabilities(); !slices.Equal(got, want) {
		t.Errorf("capabilities %v", got)
	}

	k := symbolizer.NewCache()
	ext, err := k.Get(&style.PointSymbolizer{Graphic: style.Graphic{External: "pin.png"}}, "pins")
	if err != nil {
		t.Fatal(err)
	}
	ctx := newTestContext(t)
	if _, err := reg.FindRenderer(ext, ctx); !errors.Is(err, ErrNoRenderer) {
		t.Errorf("got %v, want ErrNoRenderer", err)
	}

	var calls int
	reg.Register(symbolizer.ExternalGraphic, func(c *symbolizer.Cached, ctx *Context) (Renderer, error) {
		calls++
		return newMarkRenderer(c, ctx)
	})
	if _, err := reg.FindRenderer(ext, ctx); err != nil || calls != 1 {
		t.Errorf("custom factory: %v, %d calls", err, calls)
	}
}

func TestUnusableSymbolizer(t *testing.T) {
	sym := squareMark(4, red)
	sym.Graphic.Marks[0].Shape = "no such shape"
	c, err := symbolizer.NewCache().Get(sym, "r")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewDefaultRegistry().FindRenderer(c, newTestContext(t)); !errors.Is(err, symbolizer.ErrUnusable) {
		t.Errorf("got %v, want ErrUnusable", err)
	}
}

func TestContext(t *testing.T) {
	g := grid.New(rect.Rect{URx: 10, URy: 10}, 10, 10, crs.CRS84)
	if _, err := NewContext(g, image.NewRGBA(image.Rect(0, 0, 5, 10))); err == nil {
		t.Error("mismatched canvas accepted")
	}

	ctx := newTestContext(t)
	if got := ctx.ToPixel(orb.Point{2, 3}); got != (vec.Vec2{X: 2, Y: 7}) {
		t.Errorf("ToPixel = %v", got)
	}
	ctx.Shift = -360
	ctx.Project = func(p orb.Point) orb.Point { return orb.Point{p[0] + 360, p[1]} }
	if got := ctx.ToPixel(orb.Point{2, 3}); got != (vec.Vec2{X: 2, Y: 7}) {
		t.Errorf("shifted ToPixel = %v", got)
	}
}

func TestMark(t *testing.T) {
	ctx := newTestContext(t)
	r := bind(t, squareMark(4, red), ctx)

	n := paint(ctx, r, feature.Feature{Geometry: orb.MultiPoint{{5, 5}, {1, 9}}})
	if n != 2 {
		t.Errorf("%d presentations, want 2", n)
	}
	for _, c := range []struct {
		x, y int
		want color.Color
	}{
		{3, 3, red}, {6, 6, red}, {5, 5, red},
		{2, 5, transparent}, {7, 5, transparent}, {5, 7, transparent},
		{0, 0, red}, {2, 2, red}, {3, 2, transparent},
	} {
		if got := color.NRGBAModel.Convert(ctx.Canvas.At(c.x, c.y)); got != color.NRGBAModel.Convert(c.want) {
			t.Errorf("pixel (%d,%d) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestMarkAnchor(t *testing.T) {
	ctx := newTestContext(t)
	sym := squareMark(4, blue)
	sym.Graphic.Anchor = style.Offset{X: style.Number(0), Y: style.Number(0)}
	sym.Graphic.Displacement = style.Offset{X: style.Number(1)}
	paint(ctx, bind(t, sym, ctx), feature.Feature{Geometry: orb.Point{4, 5}})

	// the bottom left corner of the symbol is at pixel position (5, 5)
	if got := ctx.Canvas.RGBAAt(6, 3); got.B != 255 {
		t.Errorf("pixel inside symbol is %v", got)
	}
	if got := ctx.Canvas.RGBAAt(4, 3); got.A != 0 {
		t.Errorf("pixel left of symbol is %v", got)
	}
	if got := ctx.Canvas.RGBAAt(6, 5); got.A != 0 {
		t.Errorf("pixel below symbol is %v", got)
	}
}

func TestPresentationsArePure(t *testing.T) {
	ctx := newTestContext(t)
	f := feature.Feature{
		Geometry:   orb.LineString{{1, 1}, {8, 3}, {9, 9}},
		Properties: map[string]any{"width": 2.5, "name": "Main St"},
	}
	syms := []style.Symbolizer{
		squareMark(3, red),
		&style.LineSymbolizer{
			Stroke:              &style.Stroke{Color: blue, Width: style.Property{Name: "width"}},
			PerpendicularOffset: style.Number(1),
		},
		&style.TextSymbolizer{Label: style.Property{Name: "name"}, Transform: "upper"},
	}
	for _, sym := range syms {
		r := bind(t, sym, ctx)
		a := slices.Collect(r.Presentations("roads", f))
		b := slices.Collect(r.Presentations("roads", f))
		if len(a) == 0 {
			t.Errorf("%T: no presentations", sym)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%T: presentations differ between calls", sym)
		}
	}
}

func TestOffsetPolyline(t *testing.T) {
	pts := []vec.Vec2{{X: 0, Y: 5}, {X: 10, Y: 5}, {X: 10, Y: 15}}
	got := offsetPolyline(pts, 2, false)
	want := []vec.Vec2{{X: 0, Y: 3}, {X: 12, Y: 3}, {X: 12, Y: 15}}
	for i := range want {
		if got[i].Sub(want[i]).Length() > 1e-12 {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLine(t *testing.T) {
	ctx := newTestContext(t)
	sym := &style.LineSymbolizer{Stroke: &style.Stroke{Color: red, Width: style.Number(2)}}
	paint(ctx, bind(t, sym, ctx), feature.Feature{Geometry: orb.LineString{{0, 5}, {10, 5}}})
	for x := range 10 {
		if got := ctx.Canvas.RGBAAt(x, 4); got.R != 255 || got.A != 255 {
			t.Errorf("pixel (%d,4) = %v", x, got)
		}
		if got := ctx.Canvas.RGBAAt(x, 2); got.A != 0 {
			t.Errorf("pixel (%d,2) = %v", x, got)
		}
	}
}

func TestPolygonWithHole(t *testing.T) {
	ctx := newTestContext(t)
	sym := &style.PolygonSymbolizer{Fill: &style.Fill{Color: blue}}
	poly := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{3, 3}, {7, 3}, {7, 7}, {3, 7}, {3, 3}},
	}
	if n := paint(ctx, bind(t, sym, ctx), feature.Feature{Geometry: poly}); n != 1 {
		t.Errorf("%d presentations", n)
	}
	if got := ctx.Canvas.RGBAAt(1, 1); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("outer pixel %v", got)
	}
	if got := ctx.Canvas.RGBAAt(5, 5); got.A != 0 {
		t.Errorf("hole pixel %v", got)
	}
}

func TestInvisible(t *testing.T) {
	ctx := newTestContext(t)
	sym := squareMark(4, red)
	sym.Graphic.Size = style.Property{Name: "size"}
	r := bind(t, sym, ctx)
	if n := paint(ctx, r, feature.Feature{Geometry: orb.Point{5, 5}}); n != 0 {
		t.Errorf("%d presentations for a feature without size", n)
	}
}

func TestLabel(t *testing.T) {
	count := func(img *image.RGBA) int {
		n := 0
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] != 0 {
				n++
			}
		}
		return n
	}

	g := grid.New(rect.Rect{URx: 100, URy: 40}, 100, 40, crs.CRS84)
	plain, _ := NewContext(g, image.NewRGBA(image.Rect(0, 0, 100, 40)))
	haloed, _ := NewContext(g, image.NewRGBA(image.Rect(0, 0, 100, 40)))

	l := &Label{Text: "Oslo", Size: 16, At: vec.Vec2{X: 50, Y: 20}, Anchor: vec.Vec2{X: 0.5, Y: 0.5}, Color: red}
	l.Paint(plain)
	l.Halo, l.HaloColor = 2, blue
	l.Paint(haloed)

	a, b := count(plain.Canvas), count(haloed.Canvas)
	if a == 0 {
		t.Fatal("label painted nothing")
	}
	if b <= a {
		t.Errorf("halo did not grow the label: %d <= %d", b, a)
	}
	// the text is centred on the anchor
	if plain.Canvas.RGBAAt(2, 2).A != 0 || plain.Canvas.RGBAAt(97, 37).A != 0 {
		t.Error("label reaches the canvas corners")
	}
}

func TestBlit(t *testing.T) {
	cm := &style.ColorMap{Type: style.Intervals, Entries: []style.ColorMapEntry{
		{Quantity: 10, Color: red},
		{Quantity: 20, Color: blue},
	}}
	sym := &style.RasterSymbolizer{ColorMap: cm}
	ctx := newTestContext(t)
	r := bind(t, sym, ctx).(CoverageRenderer)

	buf := &coverage.Buffer{Width: 3, Height: 1, Bands: 1, Samples: []float64{5, math.NaN(), 15}}
	if err := r.Blit(buf, image.Pt(2, 4)); err != nil {
		t.Fatal(err)
	}
	want := map[image.Point]color.RGBA{
		{2, 4}: {R: 255, A: 255},
		{3, 4}: {},
		{4, 4}: {B: 255, A: 255},
		{0, 0}: {},
	}
	for p, c := range want {
		if got := ctx.Canvas.RGBAAt(p.X, p.Y); got != c {
			t.Errorf("pixel %v = %v, want %v", p, got, c)
		}
	}

	bad := bind(t, &style.RasterSymbolizer{Channels: []int{3}}, ctx).(CoverageRenderer)
	if err := bad.Blit(buf, image.Point{}); err == nil {
		t.Error("out of range channel accepted")
	}
}

func TestBlitRGB(t *testing.T) {
	ctx := newTestContext(t)
	r := bind(t, &style.RasterSymbolizer{Channels: []int{2, 1, 0}}, ctx).(CoverageRenderer)
	buf := &coverage.Buffer{Width: 1, Height: 1, Bands: 3, Samples: []float64{10, 20, 300}}
	if err := r.Blit(buf, image.Pt(9, 9)); err != nil {
		t.Fatal(err)
	}
	if got := ctx.Canvas.RGBAAt(9, 9); got != (color.RGBA{R: 255, G: 20, B: 10, A: 255}) {
		t.Errorf("pixel = %v", got)
	}
}
