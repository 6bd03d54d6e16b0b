/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"pixelpanel/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export across multiple formats.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under
//     <comic>/exports/<preset>/.
//   - pdf and cbz produce comic.pdf / comic.cbz in OutDir.
//   - png produces sheet.png plus per-panel files in a png/ subfolder.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, cbz, png; empty means preset defaults
	OutDir  string
}

// BatchExport runs exports according to the given preset.
func BatchExport(ch *storage.ComicHandle, opt BatchOptions) error {
	if ch == nil {
		return fmt.Errorf("comic handle is nil")
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ch.Root, "exports", baseOut)
	}

	for _, f := range formats {
		switch f {
		case "pdf":
			out := filepath.Join(baseOut, "comic.pdf")
			po := PDFOptions{IncludeCover: true, IncludeNarrations: presetNarrations(opt.Preset)}
			if err := ComicPDF(ch, out, po); err != nil {
				return fmt.Errorf("pdf: %w", err)
			}
		case "cbz":
			out := filepath.Join(baseOut, "comic.cbz")
			if err := ComicCBZ(ch, out, CBZOptions{IncludeCover: true}); err != nil {
				return fmt.Errorf("cbz: %w", err)
			}
		case "png":
			if err := ComicSheetPNG(ch, filepath.Join(baseOut, "sheet.png")); err != nil {
				return fmt.Errorf("png sheet: %w", err)
			}
			if _, err := ComicPanelPNGs(ch, filepath.Join(baseOut, "png")); err != nil {
				return fmt.Errorf("png panels: %w", err)
			}
		default:
			return fmt.Errorf("unknown format: %s", f)
		}
	}
	return nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "cbz"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

func presetNarrations(p PresetName) bool {
	// Print layouts carry captions; web shares raw artwork.
	return p != PresetWeb
}
