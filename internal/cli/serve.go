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
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"seehuhn.de/go/portray"
	"seehuhn.de/go/portray/crs"
	"seehuhn.de/go/portray/internal/config"
)

// maxImageSize limits the width and height of requested maps.
const maxImageSize = 8192

func newServeCmd() *cobra.Command {
	addr := "localhost:8080"

	cmd := &cobra.Command{
		Use:   "serve scene.toml",
		Short: "Serve maps of a scene over HTTP",
		Long: `Serve maps of a scene over HTTP.

GET /map returns a PNG image.  The query parameters bbox, width, height
and crs override the canvas of the scene file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cv, sc, err := loadScene(args[0])
			if err != nil {
				return err
			}
			h := &mapHandler{
				portrayer: portray.New(logger),
				canvas:    cv,
				scene:     sc,
				logger:    logger,
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           h.routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			logger.Infof("listening on http://%s/map", addr)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
				return ctx.Err()
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "listen address")
	return cmd
}

// mapHandler renders one scene on request.
type mapHandler struct {
	portrayer *portray.Portrayer
	canvas    portray.Canvas
	scene     portray.Scene
	logger    *log.Logger
}

func (h *mapHandler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/map", h.serveMap)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (h *mapHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

func (h *mapHandler) serveMap(w http.ResponseWriter, r *http.Request) {
	cv, err := h.requestCanvas(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, report, err := h.portrayer.Portray(r.Context(), cv, h.scene)
	switch {
	case errors.Is(err, portray.ErrConfiguration):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Render-Id", report.RenderID)
	w.Header().Set("X-Skipped", strconv.Itoa(report.Skipped()))
	w.Write(buf.Bytes())
}

// requestCanvas applies the query parameters of r to the scene canvas.
func (h *mapHandler) requestCanvas(r *http.Request) (portray.Canvas, error) {
	q := r.URL.Query()

	env, err := parseBBox(q.Get("bbox"))
	if err != nil {
		return portray.Canvas{}, err
	}
	size := func(name string) (int, error) {
		s := q.Get(name)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxImageSize {
			return 0, fmt.Errorf("invalid %s %q", name, s)
		}
		return n, nil
	}
	width, err := size("width")
	if err != nil {
		return portray.Canvas{}, err
	}
	height, err := size("height")
	if err != nil {
		return portray.Canvas{}, err
	}
	var ref crs.CRS
	if s := q.Get("crs"); s != "" {
		ref, err = crs.Parse(s)
		if err != nil {
			return portray.Canvas{}, err
		}
	}
	return config.WithSize(h.canvas, width, height, env, ref), nil
}
