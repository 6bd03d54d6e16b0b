/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a comic into shareable formats: a print-ready PDF,
// a CBZ archive with a ComicInfo.xml manifest, and a PNG contact sheet.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"pixelpanel/internal/comic"
	"pixelpanel/internal/storage"
)

// PDFOptions controls PDF export.
// Units are points. Page layout is A4 portrait: an optional cover page with
// the thumbnail, then all six panels two per row with narration captions.
type PDFOptions struct {
	IncludeCover      bool
	IncludeNarrations bool
	IncludePrompts    bool
}

const (
	pdfPageW   = 595.28 // A4 portrait, pt
	pdfPageH   = 841.89
	pdfMargin  = 36.0
	pdfGutter  = 18.0
	pdfCaption = 30.0 // vertical space reserved under each panel
)

// ComicPDF writes the comic as a multi-page PDF to outPath. A relative
// outPath lands under the comic's exports folder.
func ComicPDF(ch *storage.ComicHandle, outPath string, opt PDFOptions) error {
	if ch == nil {
		return fmt.Errorf("comic handle is nil")
	}
	c := &ch.Comic

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(c.Title, true)
	if c.Metadata.Author != "" {
		pdf.SetAuthor(c.Metadata.Author, true)
	}
	// Built-in Helvetica keeps text vector without embedding.
	pdf.SetFont("Helvetica", "", 12)

	if opt.IncludeCover {
		if err := addCoverPage(pdf, c); err != nil {
			return err
		}
	}
	if err := addPanelPages(pdf, c, opt); err != nil {
		return err
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ch.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func addCoverPage(pdf *gofpdf.Fpdf, c *comic.Comic) error {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetXY(pdfMargin, pdfMargin+20)
	pdf.MultiCell(pdfPageW-2*pdfMargin, 34, c.Title, "", "C", false)

	if c.Thumbnail != "" {
		name := "cover"
		if err := registerPanelImage(pdf, name, c.Thumbnail); err != nil {
			return fmt.Errorf("cover image: %w", err)
		}
		// 3:4 cover fills the width below the title.
		w := pdfPageW - 2*pdfMargin
		h := w * 4 / 3
		if max := pdfPageH - pdf.GetY() - pdfMargin; h > max {
			h = max
			w = h * 3 / 4
		}
		x := (pdfPageW - w) / 2
		pdf.ImageOptions(name, x, pdf.GetY()+10, w, h, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	if c.Metadata.Author != "" {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.SetXY(pdfMargin, pdfPageH-pdfMargin-14)
		pdf.CellFormat(pdfPageW-2*pdfMargin, 14, c.Metadata.Author, "", 0, "C", false, 0, "")
	}
	return nil
}

func addPanelPages(pdf *gofpdf.Fpdf, c *comic.Comic, opt PDFOptions) error {
	cellW := (pdfPageW - 2*pdfMargin - pdfGutter) / 2
	cellH := (pdfPageH - 2*pdfMargin - 2*pdfGutter - 3*pdfCaption) / 3

	pdf.AddPage()
	for i, p := range c.Panels {
		col := i % 2
		row := i / 2
		x := pdfMargin + float64(col)*(cellW+pdfGutter)
		y := pdfMargin + float64(row)*(cellH+pdfCaption+pdfGutter)

		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(1)
		pdf.Rect(x, y, cellW, cellH, "D")

		slot := p.LargeBitmap
		if slot == "" {
			slot = p.SmallBitmap
		}
		if slot != "" {
			name := fmt.Sprintf("panel-%d", p.Number)
			if err := registerPanelImage(pdf, name, slot); err != nil {
				return fmt.Errorf("panel %d: %w", p.Number, err)
			}
			// Panels are square; fit inside the cell.
			side := cellW
			if cellH < side {
				side = cellH
			}
			ix := x + (cellW-side)/2
			iy := y + (cellH-side)/2
			pdf.ImageOptions(name, ix, iy, side, side, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}

		caption := ""
		if opt.IncludeNarrations && p.Narration != "" {
			caption = p.Narration
		} else if opt.IncludePrompts && p.Prompt != "" {
			caption = p.Prompt
		}
		if caption != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetXY(x, y+cellH+4)
			pdf.MultiCell(cellW, 11, caption, "", "C", false)
		}
	}
	return nil
}

// registerPanelImage decodes a base64 PNG slot and registers it with the
// document under the given name.
func registerPanelImage(pdf *gofpdf.Fpdf, name, encoded string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode bitmap: %w", err)
	}
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(raw))
	if pdf.Err() {
		return fmt.Errorf("register image: %w", pdf.Error())
	}
	return nil
}
