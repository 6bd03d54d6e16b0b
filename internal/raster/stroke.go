/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"errors"
	"image/color"
	"math"

	"pixelpanel/internal/comic"
)

// Point is a surface-local coordinate in pixels.
type Point struct {
	X float64
	Y float64
}

// strokeSession is the transient in-progress path between pointer-down and
// pointer-up. It lives only inside the Surface that opened it.
type strokeSession struct {
	tool  comic.Tool
	color color.RGBA
	width float64
	last  Point
}

// ErrNoStroke is returned when a stroke operation arrives without an open session.
var ErrNoStroke = errors.New("no stroke session open")

// BeginStroke opens a stroke session and paints the starting cap.
// Pen paints col at width with round caps; eraser clears pixels regardless of col.
func (s *Surface) BeginStroke(tool comic.Tool, col color.RGBA, width float64, pt Point) {
	if width < 1 {
		width = 1
	}
	s.stroke = &strokeSession{tool: tool, color: col, width: width, last: pt}
	s.stamp(pt)
}

// ExtendStroke paints incrementally from the last point to pt.
// It is a no-op when no session is open (pointer moved in without a down event).
func (s *Surface) ExtendStroke(pt Point) {
	if s.stroke == nil {
		return
	}
	s.line(s.stroke.last, pt)
	s.stroke.last = pt
}

// EndStroke closes the session. The caller is responsible for committing the
// surface via Snapshot; the session itself holds no history.
func (s *Surface) EndStroke() error {
	if s.stroke == nil {
		return ErrNoStroke
	}
	s.stroke = nil
	return nil
}

// StrokeActive reports whether a stroke session is open.
func (s *Surface) StrokeActive() bool { return s.stroke != nil }

// line interpolates between two points and stamps the round brush densely
// enough that no gaps appear at any brush width.
func (s *Surface) line(a, b Point) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		s.stamp(b)
		return
	}
	// Step at most half a pixel per stamp.
	steps := int(dist*2) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.stamp(Point{X: a.X + dx*t, Y: a.Y + dy*t})
	}
}

// stamp draws a filled circle of the session's brush width. This produces the
// rounded caps and joins of the stroke contract.
func (s *Surface) stamp(pt Point) {
	if s.stroke == nil {
		return
	}
	r := s.stroke.width / 2
	erase := s.stroke.tool == comic.ToolEraser
	minX := int(math.Floor(pt.X - r))
	maxX := int(math.Ceil(pt.X + r))
	minY := int(math.Floor(pt.Y - r))
	maxY := int(math.Ceil(pt.Y + r))
	r2 := r * r
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			ddx := float64(x) + 0.5 - pt.X
			ddy := float64(y) + 0.5 - pt.Y
			if ddx*ddx+ddy*ddy <= r2 {
				s.setPixel(x, y, s.stroke.color, erase)
			}
		}
	}
}
