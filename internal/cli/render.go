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
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/image/tiff"
	"seehuhn.de/go/geom/rect"

	"seehuhn.de/go/portray"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/internal/config"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output string
	width  int
	height int
	bbox   string
	crs    string
}

func newRenderCmd() *cobra.Command {
	opts := renderOpts{output: "map.png"}

	cmd := &cobra.Command{
		Use:   "render scene.toml",
		Short: "Render a scene file to PNG or TIFF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output file (.png, .tif or .tiff)")
	cmd.Flags().IntVar(&opts.width, "width", 0, "override the canvas width")
	cmd.Flags().IntVar(&opts.height, "height", 0, "override the canvas height")
	cmd.Flags().StringVar(&opts.bbox, "bbox", "", "override the canvas extent (minx,miny,maxx,maxy)")
	cmd.Flags().StringVar(&opts.crs, "crs", "", "override the canvas reference system")
	return cmd
}

func runRender(cmd *cobra.Command, sceneFile string, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cv, sc, err := loadScene(sceneFile)
	if err != nil {
		return err
	}
	env, err := parseBBox(opts.bbox)
	if err != nil {
		return err
	}
	var ref crs.CRS
	if opts.crs != "" {
		ref, err = crs.Parse(opts.crs)
		if err != nil {
			return err
		}
	}
	cv = config.WithSize(cv, opts.width, opts.height, env, ref)

	img, report, err := portray.New(logger).Portray(ctx, cv, sc)
	if err != nil {
		return err
	}
	for _, l := range report.Layers {
		if l.Status == portray.Failed {
			logger.Warn("layer not rendered", "layer", l.Name, "err", l.Err)
		}
	}
	logger.Debug("render finished\n" + report.String())

	if err := writeImage(opts.output, img); err != nil {
		return err
	}
	logger.Infof("wrote %s", opts.output)
	return nil
}

func loadScene(fname string) (portray.Canvas, portray.Scene, error) {
	f, err := config.Load(fname)
	if err != nil {
		return portray.Canvas{}, portray.Scene{}, err
	}
	return f.Scene(filepath.Dir(fname))
}

// parseBBox parses "minx,miny,maxx,maxy".  The empty string gives an
// empty rectangle.
func parseBBox(s string) (rect.Rect, error) {
	if s == "" {
		return rect.Rect{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return rect.Rect{}, fmt.Errorf("invalid bbox %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return rect.Rect{}, fmt.Errorf("invalid bbox %q", s)
		}
		v[i] = x
	}
	r := rect.Rect{LLx: v[0], LLy: v[1], URx: v[2], URy: v[3]}
	if !(r.LLx < r.URx && r.LLy < r.URy) {
		return rect.Rect{}, fmt.Errorf("empty bbox %q", s)
	}
	return r, nil
}

func writeImage(fname string, img image.Image) (err error) {
	fd, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fd.Close(); err == nil {
			err = cerr
		}
	}()

	switch strings.ToLower(filepath.Ext(fname)) {
	case ".tif", ".tiff":
		return tiff.Encode(fd, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(fd, img)
	}
}
