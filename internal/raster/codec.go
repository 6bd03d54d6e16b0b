/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Snapshot encodes the surface as a lossless PNG. Encoding the same pixels
// twice yields identical bytes, which makes committed bitmaps comparable.
func Snapshot(s *Surface) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return nil, fmt.Errorf("encode surface: %w", err)
	}
	return buf.Bytes(), nil
}

// SnapshotBase64 is Snapshot with the wire encoding used by bitmap slots:
// standard base64 of the PNG bytes, no data-URI prefix.
func SnapshotBase64(s *Surface) (string, error) {
	b, err := Snapshot(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Restore decodes PNG bytes onto the surface, replacing its contents.
// Same-size images are copied pixel for pixel so Snapshot/Restore round-trips
// losslessly; differently-sized images are fitted like a generated result.
func Restore(s *Surface, data []byte) error {
	img, err := Decode(data)
	if err != nil {
		return err
	}
	if img.Bounds().Dx() == s.img.Bounds().Dx() && img.Bounds().Dy() == s.img.Bounds().Dy() {
		s.Clear()
		draw.Draw(s.img, s.img.Bounds(), img, img.Bounds().Min, draw.Src)
		return nil
	}
	s.DrawImageFitted(img)
	return nil
}

// RestoreBase64 is Restore for a base64-encoded bitmap slot.
func RestoreBase64(s *Surface, encoded string) error {
	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode bitmap slot: %w", err)
	}
	return Restore(s, b)
}

// Decode parses PNG bytes into an image, rejecting malformed data.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// ScaleBase64 re-renders an encoded bitmap at the given pixel size and returns
// the re-encoded result. The board uses this to refresh a panel's grid
// thumbnail from its zoomed bitmap without touching any live surface.
func ScaleBase64(encoded string, w, h int) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode bitmap slot: %w", err)
	}
	img, err := Decode(raw)
	if err != nil {
		return "", err
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, FitRect(w, h, img.Bounds().Dx(), img.Bounds().Dy()), img, img.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
