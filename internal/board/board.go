/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package board implements the panel board state machine behind the editor.
// The board owns six small (grid) surfaces and one large (zoomed) surface and
// mirrors committed panel state between them through encoded bitmap slots.
// All transitions are explicit methods so the whole flow is testable without
// any rendering environment; the UI layer only draws surfaces and forwards
// pointer events.
//
// View-mode state machine: Grid, or Zoomed(panel). Grid -> Zoomed on panel
// toggle; Zoomed -> Grid on toggling the same panel (or Back). At most one
// panel is zoomed at a time. Repaint of a freshly shown zoomed surface is
// driven by an explicit SurfaceReady signal from the view, never by a timer.
package board

import (
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"

	"log/slog"

	"pixelpanel/internal/comic"
	applog "pixelpanel/internal/log"
	"pixelpanel/internal/raster"
	"pixelpanel/internal/undo"
)

// ErrPanelBusy is returned when an action collides with an in-flight
// generation on the same panel.
var ErrPanelBusy = errors.New("generation already in flight for panel")

// ErrOtherPanelZoomed is returned when a panel toggle arrives while a
// different panel is zoomed; the state machine has no such transition.
var ErrOtherPanelZoomed = errors.New("another panel is zoomed")

// ErrSurfaceNotReady is returned when a zoomed-surface operation arrives
// before the view has signalled SurfaceReady. Until then the large surface
// still holds the previous zoom session's pixels.
var ErrSurfaceNotReady = errors.New("zoomed surface has not signalled ready")

// Board is the single owner of all panel state. Methods are safe for
// concurrent use because generation results arrive from request goroutines.
type Board struct {
	mu sync.Mutex

	comic  comic.Comic
	smalls []*raster.Surface
	large  *raster.Surface

	zoomed     int  // 1-based panel number; 0 means grid view
	largeReady bool // large surface has signalled ready since the last zoom

	inflight map[int]func()   // panel number -> abort handle for the pending generation
	lastErr  map[int]string   // panel number -> last user-visible generation error

	hist *undo.History

	// Tool state for stroke routing; owned values, the toolbar just reflects them.
	tool  comic.Tool
	color color.RGBA
	width float64

	onChange func()
	log      *slog.Logger
}

// New creates a board for the given comic. A zero-value comic title is fine;
// the comic must carry the standard six panels.
func New(c comic.Comic) (*Board, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b := &Board{
		comic:    c,
		smalls:   make([]*raster.Surface, comic.BoardPanels),
		inflight: make(map[int]func()),
		lastErr:  make(map[int]string),
		hist:     undo.NewHistory(undo.Config{MaxPerPanel: 50}),
		tool:     comic.ToolPen,
		color:    color.RGBA{A: 255},
		width:    4,
		log:      applog.WithComponent("board"),
	}
	for i := range b.smalls {
		s, err := raster.NewSurface(comic.SmallSize, comic.SmallSize)
		if err != nil {
			return nil, err
		}
		b.smalls[i] = s
	}
	large, err := raster.NewSurface(comic.LargeSize, comic.LargeSize)
	if err != nil {
		return nil, err
	}
	b.large = large

	// Repaint small surfaces from any committed slots in the loaded comic.
	for i := range b.comic.Panels {
		if enc := b.comic.Panels[i].SmallBitmap; enc != "" {
			if err := raster.RestoreBase64(b.smalls[i], enc); err != nil {
				b.log.Warn("discarding unreadable small bitmap", slog.Int("panel", i+1), slog.Any("err", err))
				b.comic.Panels[i].SmallBitmap = ""
			}
		}
	}
	return b, nil
}

// OnChange registers a callback invoked after every committed state change.
// Used by the UI to refresh; tests leave it nil.
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// notify runs outside the board lock; the callback is re-read under it so a
// concurrent OnChange never races.
func (b *Board) notify() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Zoomed returns the zoomed panel number, or 0 in grid view.
func (b *Board) Zoomed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.zoomed
}

// Comic returns a copy of the current comic state, including committed slots.
func (b *Board) Comic() comic.Comic {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.comic
	c.Panels = append([]comic.Panel(nil), b.comic.Panels...)
	return c
}

// SetTitle updates the comic title.
func (b *Board) SetTitle(title string) {
	b.mu.Lock()
	b.comic.Title = title
	b.mu.Unlock()
	b.notify()
}

// SmallSurface exposes the grid surface for a panel (1-based) for rendering.
func (b *Board) SmallSurface(n int) *raster.Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 1 || n > len(b.smalls) {
		return nil
	}
	return b.smalls[n-1]
}

// LargeSurface exposes the zoomed surface for rendering.
func (b *Board) LargeSurface() *raster.Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.large
}

// SetTool, SetColor and SetWidth update the stroke configuration reflected by
// the toolbar.
func (b *Board) SetTool(t comic.Tool) {
	b.mu.Lock()
	b.tool = t
	b.mu.Unlock()
}

func (b *Board) SetColor(c color.RGBA) {
	b.mu.Lock()
	b.color = c
	b.mu.Unlock()
}

func (b *Board) SetWidth(w float64) {
	b.mu.Lock()
	b.width = w
	b.mu.Unlock()
}

// Tool returns the current stroke configuration.
func (b *Board) Tool() (comic.Tool, color.RGBA, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tool, b.color, b.width
}

// TogglePanel drives the view-mode state machine.
//
// Grid view: zooms the given panel. The large surface is repainted from the
// panel's committed large bitmap only after the view signals SurfaceReady.
//
// Zoomed view, same panel: snapshots the zoomed surface into the panel's
// large slot, refreshes the small slot (and surface) from it, aborts any
// pending generation for the panel, then returns to grid view. Unsaved
// strokes are committed by the snapshot, never dropped.
func (b *Board) TogglePanel(n int) error {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.notify()
	}()

	if _, err := b.comic.PanelByNumber(n); err != nil {
		return err
	}
	switch {
	case b.zoomed == 0:
		b.zoomed = n
		b.largeReady = false
		b.log.Debug("zoom", slog.Int("panel", n))
		return nil
	case b.zoomed == n:
		// Commit only once the view presented the surface; before that the
		// large surface still holds the previous zoom session's pixels and
		// must never land in this panel's slots.
		if b.largeReady {
			if err := b.commitZoomedLocked(); err != nil {
				return err
			}
		}
		// The surface's lifetime ends here; close the abort handle.
		if cancel, ok := b.inflight[n]; ok {
			cancel()
			delete(b.inflight, n)
		}
		b.zoomed = 0
		b.largeReady = false
		b.log.Debug("unzoom", slog.Int("panel", n))
		return nil
	default:
		return fmt.Errorf("%w: panel %d", ErrOtherPanelZoomed, b.zoomed)
	}
}

// Back leaves the zoomed view, committing like a same-panel toggle. No-op in
// grid view.
func (b *Board) Back() error {
	b.mu.Lock()
	n := b.zoomed
	b.mu.Unlock()
	if n == 0 {
		return nil
	}
	return b.TogglePanel(n)
}

// SurfaceReady is the view's signal that the zoomed surface is mounted and
// drawable. The board repaints it from the panel's committed large bitmap, or
// clears it when nothing has been committed yet. Duplicate signals are no-ops.
func (b *Board) SurfaceReady() error {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.notify()
	}()
	if b.zoomed == 0 || b.largeReady {
		return nil
	}
	p, err := b.comic.PanelByNumber(b.zoomed)
	if err != nil {
		return err
	}
	if p.LargeBitmap != "" {
		if err := raster.RestoreBase64(b.large, p.LargeBitmap); err != nil {
			return fmt.Errorf("repaint zoomed surface: %w", err)
		}
	} else if p.SmallBitmap != "" {
		// Drawn only in grid view so far; carry the thumbnail up.
		if err := raster.RestoreBase64(b.large, p.SmallBitmap); err != nil {
			return fmt.Errorf("repaint zoomed surface: %w", err)
		}
	} else {
		b.large.Clear()
	}
	b.largeReady = true
	return nil
}

// activeSurfaceLocked returns the surface strokes are routed to and the panel
// they belong to.
func (b *Board) activeSurfaceLocked(n int) (*raster.Surface, error) {
	if b.zoomed != 0 {
		if n != b.zoomed {
			return nil, fmt.Errorf("panel %d is not the zoomed panel", n)
		}
		if !b.largeReady {
			return nil, ErrSurfaceNotReady
		}
		return b.large, nil
	}
	if n < 1 || n > len(b.smalls) {
		return nil, fmt.Errorf("panel number %d out of range", n)
	}
	return b.smalls[n-1], nil
}

// StrokeBegin opens a stroke session on panel n's active surface using the
// current tool configuration.
func (b *Board) StrokeBegin(n int, pt raster.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.activeSurfaceLocked(n)
	if err != nil {
		return err
	}
	s.BeginStroke(b.tool, b.color, b.width, pt)
	return nil
}

// StrokeMove extends the open stroke session, if any.
func (b *Board) StrokeMove(n int, pt raster.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.activeSurfaceLocked(n)
	if err != nil {
		return err
	}
	s.ExtendStroke(pt)
	return nil
}

// StrokeEnd closes the session and commits the surface into the panel's slot
// for the current view mode. In zoomed mode the small slot and its surface
// are refreshed as well so the grid thumbnail stays current.
func (b *Board) StrokeEnd(n int) error {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.notify()
	}()
	s, err := b.activeSurfaceLocked(n)
	if err != nil {
		return err
	}
	if err := s.EndStroke(); err != nil {
		return err
	}
	b.pushHistoryLocked(n)
	if b.zoomed == n {
		return b.commitZoomedLocked()
	}
	return b.commitSmallLocked(n)
}

// ClearPanel wipes panel n's active surface and commits the cleared state to
// both bitmap slots. Clearing is a mutation like any stroke; it is snapshotted
// so it survives view-mode toggles.
func (b *Board) ClearPanel(n int) error {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.notify()
	}()
	s, err := b.activeSurfaceLocked(n)
	if err != nil {
		return err
	}
	s.Clear()
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return err
	}
	b.pushHistoryLocked(n)
	p.SmallBitmap = ""
	p.LargeBitmap = ""
	delete(b.lastErr, n)
	b.smalls[n-1].Clear()
	return nil
}

// commitZoomedLocked snapshots the large surface into the zoomed panel's
// large slot and refreshes the small slot and grid surface from it.
func (b *Board) commitZoomedLocked() error {
	n := b.zoomed
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return err
	}
	enc, err := raster.SnapshotBase64(b.large)
	if err != nil {
		return fmt.Errorf("snapshot zoomed surface: %w", err)
	}
	p.LargeBitmap = enc
	small, err := raster.ScaleBase64(enc, comic.SmallSize, comic.SmallSize)
	if err != nil {
		return fmt.Errorf("refresh thumbnail: %w", err)
	}
	p.SmallBitmap = small
	if err := raster.RestoreBase64(b.smalls[n-1], small); err != nil {
		return fmt.Errorf("repaint grid surface: %w", err)
	}
	return nil
}

// commitSmallLocked snapshots a grid surface into the panel's small slot.
func (b *Board) commitSmallLocked(n int) error {
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return err
	}
	enc, err := raster.SnapshotBase64(b.smalls[n-1])
	if err != nil {
		return fmt.Errorf("snapshot grid surface: %w", err)
	}
	p.SmallBitmap = enc
	return nil
}

// pushHistoryLocked snapshots a panel's committed slots before a mutation so
// it can be undone. Called with the board lock held, before slots change.
func (b *Board) pushHistoryLocked(n int) {
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return
	}
	b.hist.Push(undo.Snapshot{Panel: n, Small: p.SmallBitmap, Large: p.LargeBitmap, TS: time.Now()})
}

// restoreSnapshotLocked writes a snapshot back into the panel's slots and
// repaints whichever surfaces show it.
func (b *Board) restoreSnapshotLocked(n int, s undo.Snapshot) error {
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return err
	}
	p.SmallBitmap = s.Small
	p.LargeBitmap = s.Large
	if s.Small != "" {
		if err := raster.RestoreBase64(b.smalls[n-1], s.Small); err != nil {
			return fmt.Errorf("repaint grid surface: %w", err)
		}
	} else {
		b.smalls[n-1].Clear()
	}
	if b.zoomed == n && b.largeReady {
		switch {
		case s.Large != "":
			if err := raster.RestoreBase64(b.large, s.Large); err != nil {
				return fmt.Errorf("repaint zoomed surface: %w", err)
			}
		case s.Small != "":
			if err := raster.RestoreBase64(b.large, s.Small); err != nil {
				return fmt.Errorf("repaint zoomed surface: %w", err)
			}
		default:
			b.large.Clear()
		}
	}
	return nil
}

func (b *Board) currentSnapshotLocked(n int) undo.Snapshot {
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return undo.Snapshot{Panel: n}
	}
	return undo.Snapshot{Panel: n, Small: p.SmallBitmap, Large: p.LargeBitmap}
}

// Undo rolls panel n back to its state before the last committed edit.
// Returns false when there is nothing to undo.
func (b *Board) Undo(n int) (bool, error) {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.notify()
	}()
	s, ok := b.hist.Undo(n, b.currentSnapshotLocked(n))
	if !ok {
		return false, nil
	}
	return true, b.restoreSnapshotLocked(n, s)
}

// Redo reapplies the last undone edit on panel n.
func (b *Board) Redo(n int) (bool, error) {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.notify()
	}()
	s, ok := b.hist.Redo(n, b.currentSnapshotLocked(n))
	if !ok {
		return false, nil
	}
	return true, b.restoreSnapshotLocked(n, s)
}

// CanUndo and CanRedo let the UI enable or grey out the edit actions.
func (b *Board) CanUndo(n int) bool { return b.hist.CanUndo(n) }

func (b *Board) CanRedo(n int) bool { return b.hist.CanRedo(n) }

// SetPrompt records the generation prompt for a panel.
func (b *Board) SetPrompt(n int, prompt string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return err
	}
	p.Prompt = prompt
	return nil
}

// SetNarration records the narration text for a panel.
func (b *Board) SetNarration(n int, narration string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return err
	}
	p.Narration = narration
	return nil
}

// SetAudio stores synthesized narration audio (base64 MP3) on a panel.
func (b *Board) SetAudio(n int, audio string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		return err
	}
	p.AudioData = audio
	return nil
}

// SetThumbnail stores the comic's cover bitmap (base64 PNG, 3:4).
func (b *Board) SetThumbnail(encoded string) {
	b.mu.Lock()
	b.comic.Thumbnail = encoded
	b.mu.Unlock()
	b.notify()
}

// SetRemoteID records the server-side id after a successful remote save.
func (b *Board) SetRemoteID(id string) {
	b.mu.Lock()
	b.comic.RemoteID = id
	b.mu.Unlock()
}

// LastError returns the last user-visible generation error for a panel, if any.
func (b *Board) LastError(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr[n]
}

// Busy reports whether a generation request is in flight for a panel.
func (b *Board) Busy(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inflight[n]
	return ok
}
