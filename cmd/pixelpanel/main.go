/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pixelpanel/internal/comic"
	"pixelpanel/internal/crash"
	"pixelpanel/internal/export"
	applog "pixelpanel/internal/log"
	"pixelpanel/internal/script"
	"pixelpanel/internal/storage"
	"pixelpanel/internal/ui"
	"pixelpanel/internal/version"
)

func usage() {
	fmt.Println("PixelPanel — AI-assisted comic studio")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pixelpanel version|-v|--version            Show version")
	fmt.Println("  pixelpanel init <dir> <title>              Create a new comic folder at <dir>")
	fmt.Println("  pixelpanel open <dir>                      Open the comic at <dir> and print a summary")
	fmt.Println("  pixelpanel export <dir> <preset> [fmt...]  Export (preset: web|print; formats: pdf cbz png)")
	fmt.Println("  pixelpanel import <dir> <script.txt>       Fill prompts and narrations from a panel script")
	fmt.Println("  pixelpanel search <library> [query]        Search the library index (empty query lists all)")
	fmt.Println("  pixelpanel reindex <library>               Rebuild the library index from disk")
	fmt.Println("  pixelpanel ui [<dir>]                      Launch the studio (build with -tags fyne)")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var ch *storage.ComicHandle
	defer func() { crash.Recover(ch) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("PixelPanel — AI-assisted comic studio")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <title>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			title := args[3]
			l.Info("init comic", slog.String("root", abs), slog.String("title", title))
			h, err := storage.InitComic(abs, comic.New(title))
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ch = h
			fmt.Println("Created comic at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open comic", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ch = h
			fmt.Printf("Opened comic: %s\n", h.Comic.Title)
			drawn := 0
			for _, p := range h.Comic.Panels {
				if p.SmallBitmap != "" || p.LargeBitmap != "" {
					drawn++
				}
			}
			fmt.Printf("Panels with artwork: %d of %d\n", drawn, len(h.Comic.Panels))
			fmt.Println("Root:", h.Root)
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and <preset>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			h, err := storage.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ch = h
			opt := export.BatchOptions{Preset: export.PresetName(strings.ToLower(args[3]))}
			for _, f := range args[4:] {
				opt.Formats = append(opt.Formats, strings.ToLower(f))
			}
			l.Info("export", slog.String("root", abs), slog.String("preset", string(opt.Preset)))
			if err := export.BatchExport(h, opt); err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Exported to", filepath.Join(abs, "exports"))
			return
		case "import":
			if len(args) < 4 {
				fmt.Println("import requires <dir> and <script.txt>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			src, err := os.ReadFile(args[3])
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			h, err := storage.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ch = h
			ps, perrs := script.Parse(string(src))
			for _, pe := range perrs {
				fmt.Printf("%s:%d: %s\n", args[3], pe.Line, pe.Message)
			}
			if len(perrs) > 0 {
				os.Exit(1)
			}
			if err := script.ApplyToComic(ps, &h.Comic); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if err := storage.Save(h); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			l.Info("script imported", slog.String("root", abs), slog.Int("panels", len(ps.Panels)))
			fmt.Printf("Imported %d panels into %s\n", len(ps.Panels), h.Comic.Title)
			return
		case "search":
			if len(args) < 3 {
				fmt.Println("search requires <library>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			query := strings.Join(args[3:], " ")
			idx, rebuilt, err := storage.CheckAndRebuild(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			defer idx.Close()
			if rebuilt {
				l.Warn("index was corrupt and has been rebuilt", slog.String("library", abs))
			}
			hits, err := idx.Search(query)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			for _, h := range hits {
				fmt.Printf("%s\t%s\n", h.Title, h.Root)
			}
			if len(hits) == 0 {
				fmt.Println("No comics found")
			}
			return
		case "reindex":
			if len(args) < 3 {
				fmt.Println("reindex requires <library>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			idx, err := storage.InitOrOpenIndex(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			defer idx.Close()
			if err := idx.RebuildFromLibrary(abs); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Index rebuilt at", idx.Path)
			return
		case "ui":
			dir := ""
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
