//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"pixelpanel/internal/raster"
)

// SurfaceView renders one drawing surface and forwards pointer gestures.
// The surface is fetched per frame so the widget survives the board swapping
// buffers underneath it.
type SurfaceView struct {
	widget.BaseWidget

	Surface func() *raster.Surface

	// Gesture callbacks; nil callbacks disable the gesture.
	OnStrokeBegin func(raster.Point)
	OnStrokeMove  func(raster.Point)
	OnStrokeEnd   func()
	OnTap         func()

	dragging bool
	img      *canvas.Raster
}

func NewSurfaceView(surface func() *raster.Surface) *SurfaceView {
	v := &SurfaceView{Surface: surface}
	v.img = canvas.NewRaster(func(w, h int) image.Image {
		if s := surface(); s != nil {
			return s.Image()
		}
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	})
	v.ExtendBaseWidget(v)
	return v
}

func (v *SurfaceView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.img)
}

// toSurface maps a widget position to surface pixel coordinates.
func (v *SurfaceView) toSurface(pos fyne.Position) raster.Point {
	s := v.Surface()
	if s == nil {
		return raster.Point{}
	}
	size := v.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return raster.Point{}
	}
	return raster.Point{
		X: float64(pos.X) / float64(size.Width) * float64(s.Bounds().Dx()),
		Y: float64(pos.Y) / float64(size.Height) * float64(s.Bounds().Dy()),
	}
}

func (v *SurfaceView) Tapped(e *fyne.PointEvent) {
	if v.OnTap != nil {
		v.OnTap()
		return
	}
	// Without a tap action a tap paints a dot.
	if v.OnStrokeBegin != nil && v.OnStrokeEnd != nil {
		pt := v.toSurface(e.Position)
		v.OnStrokeBegin(pt)
		if v.OnStrokeMove != nil {
			v.OnStrokeMove(pt)
		}
		v.OnStrokeEnd()
		v.Refresh()
	}
}

func (v *SurfaceView) Dragged(e *fyne.DragEvent) {
	if v.OnStrokeBegin == nil {
		return
	}
	pt := v.toSurface(e.Position)
	if !v.dragging {
		v.dragging = true
		v.OnStrokeBegin(pt)
		return
	}
	if v.OnStrokeMove != nil {
		v.OnStrokeMove(pt)
	}
	v.Refresh()
}

func (v *SurfaceView) DragEnd() {
	if !v.dragging {
		return
	}
	v.dragging = false
	if v.OnStrokeEnd != nil {
		v.OnStrokeEnd()
	}
	v.Refresh()
}
