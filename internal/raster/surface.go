/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package raster implements the drawing surfaces behind the panel board.
// A Surface is a fixed-size RGBA buffer that accepts freehand stroke sessions
// (pen paints, eraser clears to transparent) and generated images composited
// with a centered aspect-preserving fit. Surfaces of different sizes never
// share a live buffer; panel state moves between them only through the
// Snapshot/Restore codec in this package.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Surface is a raster drawing target. It is not safe for concurrent use; all
// mutation is expected to happen on the UI event loop.
type Surface struct {
	img *image.RGBA

	stroke *strokeSession
}

// NewSurface returns a transparent surface of the given pixel dimensions.
func NewSurface(w, h int) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", w, h)
	}
	return &Surface{img: image.NewRGBA(image.Rect(0, 0, w, h))}, nil
}

// Bounds returns the surface pixel bounds.
func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

// Image exposes the backing image for rendering. Callers must not retain it
// across mutations.
func (s *Surface) Image() *image.RGBA { return s.img }

// Clear wipes the surface to fully transparent. It does not persist anything;
// the caller decides whether the wipe is committed via Snapshot.
func (s *Surface) Clear() {
	for i := range s.img.Pix {
		s.img.Pix[i] = 0
	}
}

// IsBlank reports whether no pixel on the surface has been touched.
func (s *Surface) IsBlank() bool {
	for i := 3; i < len(s.img.Pix); i += 4 {
		if s.img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// DrawImageFitted clears the surface and draws src centered with its aspect
// ratio preserved, letterboxing on the narrower axis. Scaling uses CatmullRom
// for quality on both up- and downscales.
func (s *Surface) DrawImageFitted(src image.Image) {
	s.Clear()
	dst := FitRect(s.img.Bounds().Dx(), s.img.Bounds().Dy(), src.Bounds().Dx(), src.Bounds().Dy())
	xdraw.CatmullRom.Scale(s.img, dst, src, src.Bounds(), draw.Over, nil)
}

// FitRect computes the centered, aspect-ratio-preserving placement of an image
// of imgW x imgH inside a surface of surfW x surfH. The image fills the axis
// on which it is proportionally wider and is letterboxed on the other.
func FitRect(surfW, surfH, imgW, imgH int) image.Rectangle {
	if imgW <= 0 || imgH <= 0 || surfW <= 0 || surfH <= 0 {
		return image.Rectangle{}
	}
	surfAspect := float64(surfW) / float64(surfH)
	imgAspect := float64(imgW) / float64(imgH)

	var w, h int
	if imgAspect > surfAspect {
		// Image is wider than the surface: fill width, letterbox top/bottom.
		w = surfW
		h = int(float64(surfW) / imgAspect)
	} else {
		// Image is taller (or equal): fill height, letterbox left/right.
		h = surfH
		w = int(float64(surfH) * imgAspect)
	}
	x := (surfW - w) / 2
	y := (surfH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// setPixel applies the stroke tool at a single pixel. Pen is source-over with
// an opaque color; eraser clears the pixel (destination-out).
func (s *Surface) setPixel(x, y int, c color.RGBA, erase bool) {
	if !(image.Point{X: x, Y: y}).In(s.img.Bounds()) {
		return
	}
	if erase {
		s.img.SetRGBA(x, y, color.RGBA{})
		return
	}
	s.img.SetRGBA(x, y, c)
}
