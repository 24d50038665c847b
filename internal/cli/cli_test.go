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

package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"golang.org/x/image/tiff"

	"seehuhn.de/go/portray"
	"seehuhn.de/go/portray/internal/config"
)

// The left half of the world is red, the right half blue.
const halves = `
[canvas]
width = 8
height = 4
bbox = [-180, -90, 180, 90]

[[layer]]
name = "halves"
type = "coverage"
bbox = [-180, -90, 180, 90]
data = [[1, 2]]

[[layer.rule]]
[[layer.rule.symbolizer]]
type = "raster"
color_map = { type = "values", entries = [[1, "#ff0000"], [2, "#0000ff"]] }
`

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func writeHalves(t *testing.T) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "halves.toml")
	if err := os.WriteFile(fname, []byte(halves), 0o644); err != nil {
		t.Fatal(err)
	}
	return fname
}

func TestParseBBox(t *testing.T) {
	r, err := parseBBox(" -10, 0,10 ,5")
	if err != nil {
		t.Fatal(err)
	}
	if r.LLx != -10 || r.LLy != 0 || r.URx != 10 || r.URy != 5 {
		t.Errorf("got %v", r)
	}
	for _, s := range []string{"1,2,3", "a,b,c,d", "0,0,0,1", "5,0,1,1"} {
		if _, err := parseBBox(s); err == nil {
			t.Errorf("%q accepted", s)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	scene := writeHalves(t)
	for _, ext := range []string{".png", ".tiff"} {
		out := filepath.Join(t.TempDir(), "out"+ext)

		root := NewRootCommand(io.Discard)
		root.SetArgs([]string{"render", scene, "-o", out, "--width", "4", "--height", "2"})
		if err := root.ExecuteContext(context.Background()); err != nil {
			t.Fatal(err)
		}

		fd, err := os.Open(out)
		if err != nil {
			t.Fatal(err)
		}
		var img image.Image
		if ext == ".png" {
			img, err = png.Decode(fd)
		} else {
			img, err = tiff.Decode(fd)
		}
		fd.Close()
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
			t.Errorf("%s: size %v", ext, b)
		}
		if got := color.NRGBAModel.Convert(img.At(0, 1)); got != red {
			t.Errorf("%s: left pixel %v", ext, got)
		}
		if got := color.NRGBAModel.Convert(img.At(3, 0)); got != blue {
			t.Errorf("%s: right pixel %v", ext, got)
		}
	}
}

func TestRenderCommandErrors(t *testing.T) {
	scene := writeHalves(t)
	for _, args := range [][]string{
		{"render"},
		{"render", filepath.Join(t.TempDir(), "missing.toml")},
		{"render", scene, "--bbox", "1,2"},
		{"render", scene, "--crs", "EPSG:27700"},
	} {
		root := NewRootCommand(io.Discard)
		root.SetArgs(args)
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		if err := root.ExecuteContext(context.Background()); err == nil {
			t.Errorf("%v: no error", args)
		}
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	f, err := config.Parse([]byte(halves))
	if err != nil {
		t.Fatal(err)
	}
	cv, sc, err := f.Scene(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	h := &mapHandler{portrayer: portray.New(logger), canvas: cv, scene: sc, logger: logger}
	return h.routes()
}

func TestServeMap(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/map?bbox=0,-90,180,90&width=3&height=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type %q", ct)
	}
	if resp.Header.Get("X-Render-Id") == "" {
		t.Error("no render id")
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Errorf("size %v", b)
	}
	// only the eastern half was requested
	if got := color.NRGBAModel.Convert(img.At(0, 0)); got != blue {
		t.Errorf("got %v, want blue", got)
	}
}

func TestServeBadRequests(t *testing.T) {
	h := newTestHandler(t)
	for _, query := range []string{
		"bbox=1,2,3",
		"width=-4",
		"width=four",
		"height=100000",
		"crs=EPSG:27700",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/map?"+query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, body %s", query, rec.Code, bytes.TrimSpace(rec.Body.Bytes()))
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("healthz: status %d", rec.Code)
	}
}
