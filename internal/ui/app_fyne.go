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
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"pixelpanel/internal/backend"
	"pixelpanel/internal/board"
	"pixelpanel/internal/comic"
	"pixelpanel/internal/config"
	"pixelpanel/internal/crash"
	"pixelpanel/internal/export"
	"pixelpanel/internal/genclient"
	applog "pixelpanel/internal/log"
	"pixelpanel/internal/raster"
	"pixelpanel/internal/storage"
	"pixelpanel/internal/stylepack"
	"pixelpanel/internal/telemetry"
	"pixelpanel/internal/version"
	"pixelpanel/internal/voice"
)

// appState bundles everything the window handlers share.
type appState struct {
	win    fyne.Window
	status *widget.Label
	log    *slog.Logger

	cfg   config.AppConfig
	token string

	bd     *board.Board
	handle *storage.ComicHandle

	gen *genclient.Client
	be  *backend.Client
	vc  *voice.Client

	gridViews [comic.BoardPanels]*SurfaceView
	zoomView  *SurfaceView
	zoomTitle *widget.Label
	prompt    *widget.Entry
	narration *widget.Entry
	genBtn    *widget.Button
	abortBtn  *widget.Button

	content *fyne.Container // swaps between grid and zoom layouts
	grid    fyne.CanvasObject
	zoom    fyne.CanvasObject
}

// Run starts the Fyne desktop studio. comicDir optionally names a comic
// folder to open immediately.
func Run(comicDir string) error {
	cfg, token, _ := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))
	telemetry.InitDefault()

	st := &appState{cfg: cfg, token: token, log: l}
	defer func() { crash.Recover(st.handle) }()

	c := comic.New("Untitled")
	if comicDir != "" {
		ch, err := storage.Open(comicDir)
		if err != nil {
			return fmt.Errorf("open comic: %w", err)
		}
		st.handle = ch
		c = ch.Comic
	}
	bd, err := board.New(c)
	if err != nil {
		return err
	}
	st.bd = bd
	st.gen = genclient.NewClient(cfg.Generation.BaseURL, time.Duration(cfg.Generation.TimeoutMs)*time.Millisecond)
	st.be = backend.NewClient(cfg.Backend.BaseURL, token)
	st.vc = voice.NewClient(cfg.Backend.BaseURL, token)

	fyneApp := app.NewWithID("pixelpanel")
	w := fyneApp.NewWindow("PixelPanel")
	st.win = w
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1100)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	st.status = widget.NewLabel("Ready")
	st.grid = st.buildGridView()
	st.zoom = st.buildZoomView()
	st.content = container.NewStack(st.grid)

	bd.OnChange(func() {
		fyne.Do(st.refresh)
	})

	w.SetMainMenu(st.buildMenu())
	w.SetContent(container.NewBorder(st.buildToolbar(), st.status, nil, nil, st.content))
	w.SetCloseIntercept(func() {
		size := w.Canvas().Size()
		prefs.SetInt("window.width", int(size.Width))
		prefs.SetInt("window.height", int(size.Height))
		if st.handle != nil {
			st.handle.Comic = bd.Comic()
			_ = storage.WriteAutosave(st.handle.Root, &st.handle.Comic)
		}
		w.Close()
	})
	w.ShowAndRun()
	return nil
}

// refresh redraws whichever view is active and keeps the action buttons in
// sync with board state.
func (st *appState) refresh() {
	n := st.bd.Zoomed()
	if n != 0 {
		st.zoomView.Refresh()
		if st.bd.Busy(n) {
			st.genBtn.Disable()
			st.abortBtn.Enable()
		} else {
			st.genBtn.Enable()
			st.abortBtn.Disable()
		}
		if msg := st.bd.LastError(n); msg != "" {
			st.status.SetText("Generation failed: " + msg)
		}
		return
	}
	for _, v := range st.gridViews {
		if v != nil {
			v.Refresh()
		}
	}
}

// buildGridView lays out the six small panels three across, two down.
// Tapping a panel zooms it; dragging sketches directly at grid size.
func (st *appState) buildGridView() fyne.CanvasObject {
	cells := make([]fyne.CanvasObject, 0, comic.BoardPanels)
	for n := 1; n <= comic.BoardPanels; n++ {
		n := n
		view := NewSurfaceView(func() *raster.Surface { return st.bd.SmallSurface(n) })
		view.OnTap = func() { st.togglePanel(n) }
		view.OnStrokeBegin = func(pt raster.Point) { _ = st.bd.StrokeBegin(n, pt) }
		view.OnStrokeMove = func(pt raster.Point) { _ = st.bd.StrokeMove(n, pt) }
		view.OnStrokeEnd = func() { _ = st.bd.StrokeEnd(n) }
		st.gridViews[n-1] = view
		label := widget.NewLabel(fmt.Sprintf("Panel %d", n))
		label.Alignment = fyne.TextAlignCenter
		cells = append(cells, container.NewBorder(nil, label, nil, nil, view))
	}
	return container.NewGridWithColumns(comic.GridCols, cells...)
}

// buildZoomView is the single-panel editor: large surface, prompt and
// narration entries, generation controls.
func (st *appState) buildZoomView() fyne.CanvasObject {
	st.zoomView = NewSurfaceView(func() *raster.Surface { return st.bd.LargeSurface() })
	st.zoomView.OnStrokeBegin = func(pt raster.Point) { _ = st.bd.StrokeBegin(st.bd.Zoomed(), pt) }
	st.zoomView.OnStrokeMove = func(pt raster.Point) { _ = st.bd.StrokeMove(st.bd.Zoomed(), pt) }
	st.zoomView.OnStrokeEnd = func() { _ = st.bd.StrokeEnd(st.bd.Zoomed()) }

	st.zoomTitle = widget.NewLabel("")
	back := widget.NewButton("Back", func() {
		if st.bd.Zoomed() != 0 {
			st.togglePanel(st.bd.Zoomed())
		}
	})

	st.prompt = widget.NewMultiLineEntry()
	st.prompt.SetPlaceHolder("Describe this scene…")
	st.prompt.OnChanged = func(s string) {
		if n := st.bd.Zoomed(); n != 0 {
			_ = st.bd.SetPrompt(n, s)
		}
	}
	st.narration = widget.NewMultiLineEntry()
	st.narration.SetPlaceHolder("Narration for this panel…")
	st.narration.OnChanged = func(s string) {
		if n := st.bd.Zoomed(); n != 0 {
			_ = st.bd.SetNarration(n, s)
		}
	}

	styles := append([]stylepack.Style(nil), stylepack.Builtin...)
	if st.handle != nil {
		if user, err := stylepack.Load(st.handle.Root); err == nil {
			styles = append(styles, user...)
		}
	}
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = s.Name
	}
	styleSelect := widget.NewSelect(names, func(name string) {
		for _, s := range styles {
			if s.Name == name {
				st.prompt.SetText(stylepack.Apply(st.prompt.Text, s))
				return
			}
		}
	})
	styleSelect.PlaceHolder = "Quick style"

	st.genBtn = widget.NewButton("Generate", func() { st.startGeneration() })
	st.abortBtn = widget.NewButton("Abort", func() {
		if n := st.bd.Zoomed(); n != 0 {
			st.bd.Abort(n)
			st.status.SetText("Generation aborted")
		}
	})
	st.abortBtn.Disable()
	undoBtn := widget.NewButton("Undo", func() {
		if n := st.bd.Zoomed(); n != 0 {
			if _, err := st.bd.Undo(n); err != nil {
				st.status.SetText("Undo failed: " + err.Error())
			}
		}
	})
	redoBtn := widget.NewButton("Redo", func() {
		if n := st.bd.Zoomed(); n != 0 {
			if _, err := st.bd.Redo(n); err != nil {
				st.status.SetText("Redo failed: " + err.Error())
			}
		}
	})
	clearBtn := widget.NewButton("Clear Panel", func() {
		if n := st.bd.Zoomed(); n != 0 {
			_ = st.bd.ClearPanel(n)
			st.status.SetText(fmt.Sprintf("Panel %d cleared", n))
		}
	})
	voiceBtn := widget.NewButton("Narrate Aloud", func() { st.generateVoiceover() })

	side := container.NewVBox(
		container.NewBorder(nil, nil, back, nil, st.zoomTitle),
		widget.NewLabel("Prompt"),
		st.prompt,
		styleSelect,
		container.NewGridWithColumns(2, st.genBtn, st.abortBtn),
		widget.NewSeparator(),
		widget.NewLabel("Narration"),
		st.narration,
		voiceBtn,
		widget.NewSeparator(),
		container.NewGridWithColumns(2, undoBtn, redoBtn),
		clearBtn,
	)
	return container.NewBorder(nil, nil, nil, side, st.zoomView)
}

// togglePanel flips a panel between grid and zoomed view, then tells the
// board the zoomed surface is ready to paint.
func (st *appState) togglePanel(n int) {
	wasZoomed := st.bd.Zoomed()
	if err := st.bd.TogglePanel(n); err != nil {
		st.status.SetText(err.Error())
		return
	}
	if st.bd.Zoomed() != 0 {
		st.content.Objects = []fyne.CanvasObject{st.zoom}
		st.content.Refresh()
		if err := st.bd.SurfaceReady(); err != nil {
			st.log.Error("surface ready", slog.Any("err", err))
		}
		st.zoomTitle.SetText(fmt.Sprintf("Panel %d", n))
		p, err := st.panel(n)
		if err == nil {
			st.prompt.SetText(p.Prompt)
			st.narration.SetText(p.Narration)
		}
		telemetry.Event("board_zoom", map[string]any{"panel": n})
	} else if wasZoomed != 0 {
		st.content.Objects = []fyne.CanvasObject{st.grid}
		st.content.Refresh()
	}
	st.refresh()
}

func (st *appState) panel(n int) (comic.Panel, error) {
	c := st.bd.Comic()
	p, err := c.PanelByNumber(n)
	if err != nil {
		return comic.Panel{}, err
	}
	return *p, nil
}

func (st *appState) startGeneration() {
	n := st.bd.Zoomed()
	if n == 0 {
		return
	}
	if err := st.bd.StartGeneration(st.gen, n); err != nil {
		st.status.SetText(err.Error())
		return
	}
	st.status.SetText(fmt.Sprintf("Generating panel %d…", n))
	telemetry.Event("generation_start", map[string]any{"panel": n})
	go st.deductCredits(backend.CostPanelGeneration, "panel-generation")
	st.refresh()
}

func (st *appState) generateVoiceover() {
	n := st.bd.Zoomed()
	if n == 0 {
		return
	}
	p, err := st.panel(n)
	if err != nil || strings.TrimSpace(p.Narration) == "" {
		st.status.SetText("Write a narration first")
		return
	}
	st.status.SetText("Synthesizing narration…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		audio, err := st.vc.GenerateVoiceover(ctx, p.Narration, st.cfg.Voice.VoiceID, st.cfg.Voice.Speed)
		fyne.Do(func() {
			if err != nil {
				st.status.SetText("Voiceover failed: " + err.Error())
				return
			}
			_ = st.bd.SetAudio(n, audio)
			st.status.SetText("Narration audio ready")
		})
	}()
}

func (st *appState) buildToolbar() fyne.CanvasObject {
	penBtn := widget.NewButton("Pen", func() { st.bd.SetTool(comic.ToolPen) })
	eraserBtn := widget.NewButton("Eraser", func() { st.bd.SetTool(comic.ToolEraser) })
	width := widget.NewSlider(1, 48)
	width.Value = 4
	width.OnChanged = func(v float64) { st.bd.SetWidth(v) }

	colors := []struct {
		name string
		c    color.RGBA
	}{
		{"Black", color.RGBA{A: 255}},
		{"Red", color.RGBA{R: 200, A: 255}},
		{"Blue", color.RGBA{B: 200, A: 255}},
		{"Green", color.RGBA{G: 160, A: 255}},
		{"White", color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	}
	names := make([]string, len(colors))
	for i, c := range colors {
		names[i] = c.name
	}
	colorSelect := widget.NewSelect(names, func(name string) {
		for _, c := range colors {
			if c.name == name {
				st.bd.SetColor(c.c)
				return
			}
		}
	})
	colorSelect.SetSelected("Black")

	return container.NewHBox(penBtn, eraserBtn, widget.NewLabel("Width"), width, colorSelect)
}

func (st *appState) buildMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Save", func() { st.saveComic(false) }),
		fyne.NewMenuItem("Save As…", func() { st.saveComic(true) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PDF", func() { st.exportComic("pdf") }),
		fyne.NewMenuItem("Export CBZ", func() { st.exportComic("cbz") }),
		fyne.NewMenuItem("Export Sheet PNG", func() { st.exportComic("png") }),
	)
	comicMenu := fyne.NewMenu("Comic",
		fyne.NewMenuItem("Generate Cover", func() { st.generateCover() }),
		fyne.NewMenuItem("Build Story", func() { st.buildStory() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save to Cloud", func() { st.syncComic(false) }),
		fyne.NewMenuItem("Publish", func() { st.syncComic(true) }),
		fyne.NewMenuItem("Credit Balance", func() { st.showCredits() }),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("PixelPanel", "PixelPanel "+version.String(), st.win)
		}),
	)
	return fyne.NewMainMenu(fileMenu, comicMenu, helpMenu)
}

func (st *appState) saveComic(saveAs bool) {
	c := st.bd.Comic()
	if st.handle == nil || saveAs {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			root := uri.Path()
			if st.handle == nil {
				ch, ierr := storage.InitComic(root, c)
				if ierr != nil {
					st.status.SetText("Save failed: " + ierr.Error())
					return
				}
				st.handle = ch
			} else {
				st.handle.Comic = c
				if serr := storage.SaveAs(st.handle, root); serr != nil {
					st.status.SetText("Save failed: " + serr.Error())
					return
				}
			}
			_ = storage.ClearAutosave(st.handle.Root)
			st.status.SetText("Saved to " + st.handle.Root)
		}, st.win)
		return
	}
	st.handle.Comic = c
	if err := storage.Save(st.handle); err != nil {
		st.status.SetText("Save failed: " + err.Error())
		return
	}
	_ = storage.ClearAutosave(st.handle.Root)
	st.status.SetText("Saved")
}

func (st *appState) exportComic(format string) {
	if st.handle == nil {
		st.status.SetText("Save the comic first")
		return
	}
	st.handle.Comic = st.bd.Comic()
	var err error
	switch format {
	case "pdf":
		err = export.ComicPDF(st.handle, "comic.pdf", export.PDFOptions{IncludeCover: true, IncludeNarrations: true})
	case "cbz":
		err = export.ComicCBZ(st.handle, "comic.cbz", export.CBZOptions{IncludeCover: true})
	case "png":
		err = export.ComicSheetPNG(st.handle, "sheet.png")
	}
	if err != nil {
		st.status.SetText("Export failed: " + err.Error())
		return
	}
	st.status.SetText("Exported " + format + " to exports/")
}

// syncComic uploads the comic to the sync server; publish additionally flips
// it public, which the server only allows for complete comics.
func (st *appState) syncComic(publish bool) {
	c := st.bd.Comic()
	if publish {
		if err := c.ValidatePublishable(); err != nil {
			st.status.SetText(err.Error())
			return
		}
	}
	st.status.SetText("Uploading…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(st.cfg.Backend.TimeoutMs)*time.Millisecond)
		defer cancel()
		id, err := st.be.SaveComic(ctx, &c)
		if err == nil && publish {
			err = st.be.SetVisibility(ctx, id, true)
		}
		fyne.Do(func() {
			if err != nil {
				st.status.SetText("Upload failed: " + err.Error())
				return
			}
			st.bd.SetRemoteID(id)
			if publish {
				st.status.SetText("Published")
				telemetry.Event("comic_publish", nil)
			} else {
				st.status.SetText("Saved to cloud")
			}
		})
	}()
}

func (st *appState) showCredits() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		credits, err := st.be.CreditBalance(ctx)
		fyne.Do(func() {
			if err != nil {
				st.status.SetText("Credits unavailable: " + err.Error())
				return
			}
			dialog.ShowInformation("Credits", fmt.Sprintf("You have %d credits.", credits), st.win)
		})
	}()
}

// deductCredits charges the account in the background. Generation keeps
// going even when the charge fails; the server settles up on publish.
func (st *appState) deductCredits(amount int64, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := st.be.DeductCredits(ctx, amount, reason); err != nil {
		st.log.Warn("credit deduction failed", slog.String("reason", reason), slog.Any("error", err))
	}
}

// generateCover asks the image service for a 3:4 cover composed from the
// panel prompts and stores it as the comic thumbnail.
func (st *appState) generateCover() {
	c := st.bd.Comic()
	var prompts []string
	for _, p := range c.Panels {
		if s := strings.TrimSpace(p.Prompt); s != "" {
			prompts = append(prompts, s)
		}
	}
	if len(prompts) == 0 {
		st.status.SetText("Add panel prompts before generating a cover")
		return
	}
	st.status.SetText("Generating cover…")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		img, err := st.gen.GenerateCover(ctx, c.Title, prompts)
		fyne.Do(func() {
			if err != nil {
				st.status.SetText("Cover failed: " + err.Error())
				return
			}
			st.bd.SetThumbnail(base64.StdEncoding.EncodeToString(img))
			st.status.SetText("Cover ready")
		})
		if err == nil {
			st.deductCredits(backend.CostThumbnail, "cover-generation")
		}
	}()
}

// buildStory asks the narration service to turn the panel prompts into a
// short story and shows it for copy/paste into narrations.
func (st *appState) buildStory() {
	c := st.bd.Comic()
	var prompts []string
	for _, p := range c.Panels {
		if s := strings.TrimSpace(p.Prompt); s != "" {
			prompts = append(prompts, s)
		}
	}
	if len(prompts) == 0 {
		st.status.SetText("Add panel prompts before building a story")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		story, err := st.vc.GenerateStory(ctx, prompts)
		fyne.Do(func() {
			if err != nil {
				st.status.SetText("Story failed: " + err.Error())
				return
			}
			entry := widget.NewMultiLineEntry()
			entry.SetText(story)
			dialog.ShowCustom("Story", "Close", entry, st.win)
		})
	}()
}
