/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"pixelpanel/internal/comic"
)

// ExportPanelFiles writes each committed panel bitmap to panels/panel-N.png
// under the comic root, preferring the zoomed bitmap over the grid one.
// Panels without artwork are skipped. Returns the written paths in panel order.
func ExportPanelFiles(ch *ComicHandle) ([]string, error) {
	dir := filepath.Join(ch.Root, "panels")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create panels dir: %w", err)
	}
	var paths []string
	for _, p := range ch.Comic.Panels {
		slot := p.LargeBitmap
		if slot == "" {
			slot = p.SmallBitmap
		}
		if slot == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(slot)
		if err != nil {
			return nil, fmt.Errorf("panel %d: decode bitmap: %w", p.Number, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("panel-%d.png", p.Number))
		if err := writeFileSync(path, raw); err != nil {
			return nil, fmt.Errorf("panel %d: write png: %w", p.Number, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

const (
	sheetCell   = 512 // pixel size of each panel cell in a contact sheet
	sheetMargin = 16  // gutter between cells and around the border
)

// CompositeSheet renders all six panels into one portrait contact sheet,
// two columns by three rows, in reading order. Empty panels render as white
// cells. The returned image is ready for PNG encoding or PDF embedding.
func CompositeSheet(c *comic.Comic) (image.Image, error) {
	cols, rows := 2, 3
	w := cols*sheetCell + (cols+1)*sheetMargin
	h := rows*sheetCell + (rows+1)*sheetMargin
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, p := range c.Panels {
		col := i % cols
		row := i / cols
		x := sheetMargin + col*(sheetCell+sheetMargin)
		y := sheetMargin + row*(sheetCell+sheetMargin)
		cell := image.Rect(x, y, x+sheetCell, y+sheetCell)

		slot := p.LargeBitmap
		if slot == "" {
			slot = p.SmallBitmap
		}
		if slot == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(slot)
		if err != nil {
			return nil, fmt.Errorf("panel %d: decode bitmap: %w", p.Number, err)
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("panel %d: decode png: %w", p.Number, err)
		}
		drawFitted(dst, cell, img)
	}
	return dst, nil
}

// ExportCompositeSheet renders the contact sheet and writes it to
// exports/sheet.png under the comic root.
func ExportCompositeSheet(ch *ComicHandle) (string, error) {
	img, err := CompositeSheet(&ch.Comic)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode sheet: %w", err)
	}
	dir := filepath.Join(ch.Root, "exports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create exports dir: %w", err)
	}
	path := filepath.Join(dir, "sheet.png")
	if err := writeFileSync(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write sheet: %w", err)
	}
	return path, nil
}

// drawFitted scales src to fit inside cell preserving aspect ratio, centered.
func drawFitted(dst draw.Image, cell image.Rectangle, src image.Image) {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return
	}
	cw, chh := cell.Dx(), cell.Dy()
	fw, fh := cw, sh*cw/sw
	if fh > chh {
		fw, fh = sw*chh/sh, chh
	}
	x := cell.Min.X + (cw-fw)/2
	y := cell.Min.Y + (chh-fh)/2
	target := image.Rect(x, y, x+fw, y+fh)
	xdraw.CatmullRom.Scale(dst, target, src, src.Bounds(), draw.Over, nil)
}
