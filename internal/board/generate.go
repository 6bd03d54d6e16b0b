/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"pixelpanel/internal/raster"
)

// Generator turns a prompt plus a reference sketch into finished panel
// artwork. Implemented by genclient.Client; tests plug in fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string, referencePNG []byte) ([]byte, error)
}

// Validation errors surfaced before any network request is made.
var (
	ErrEmptyPrompt  = errors.New("describe the panel before generating")
	ErrBlankSurface = errors.New("sketch something on the panel before generating")
)

// contextChain prefixes a prompt with the previous panel's prompt so
// consecutive panels stay in the same scene.
func contextChain(prev, cur string) string {
	prev = strings.TrimSpace(prev)
	if prev == "" {
		return cur
	}
	return "Create the next scene using this context: " + prev + ". " + cur
}

// StartGeneration validates the zoomed panel, then launches a single
// generation request for it. The request carries the current zoomed surface
// as the reference sketch. At most one request per panel is in flight; the
// abort handle is closed when the panel's surface is unmounted (unzoom) or by
// Abort. Results are applied on arrival through the same commit path strokes
// use, so slots and grid thumbnails stay consistent.
func (b *Board) StartGeneration(gen Generator, n int) error {
	b.mu.Lock()
	if b.zoomed != n {
		b.mu.Unlock()
		return fmt.Errorf("panel %d is not the zoomed panel", n)
	}
	if !b.largeReady {
		b.mu.Unlock()
		return ErrSurfaceNotReady
	}
	p, err := b.comic.PanelByNumber(n)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	prompt := strings.TrimSpace(p.Prompt)
	if prompt == "" {
		b.mu.Unlock()
		return ErrEmptyPrompt
	}
	if b.large.IsBlank() {
		b.mu.Unlock()
		return ErrBlankSurface
	}
	if _, busy := b.inflight[n]; busy {
		b.mu.Unlock()
		return ErrPanelBusy
	}
	ref, err := raster.Snapshot(b.large)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("snapshot reference sketch: %w", err)
	}
	if n > 1 {
		if prev, perr := b.comic.PanelByNumber(n - 1); perr == nil && prev.HasArtwork() {
			prompt = contextChain(prev.Prompt, prompt)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.inflight[n] = cancel
	delete(b.lastErr, n)
	log := b.log.With(slog.Int("panel", n))
	b.mu.Unlock()
	b.notify()

	go func() {
		defer cancel()
		img, err := gen.Generate(ctx, prompt, ref)
		b.finishGeneration(n, img, err, ctx.Err() != nil)
		if err != nil && ctx.Err() == nil {
			log.Warn("generation failed", slog.Any("err", err))
		} else if err == nil {
			log.Info("generation applied")
		}
	}()
	return nil
}

// Abort cancels the in-flight generation for a panel, if any.
func (b *Board) Abort(n int) {
	b.mu.Lock()
	cancel, ok := b.inflight[n]
	if ok {
		delete(b.inflight, n)
	}
	b.mu.Unlock()
	if ok {
		cancel()
		b.notify()
	}
}

// finishGeneration applies a completed request. Aborted requests are dropped
// without touching panel state or recording an error.
func (b *Board) finishGeneration(n int, img []byte, err error, aborted bool) {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.notify()
	}()
	delete(b.inflight, n)
	if aborted {
		return
	}
	if err != nil {
		b.lastErr[n] = err.Error()
		return
	}
	if aerr := b.applyGeneratedLocked(n, img); aerr != nil {
		b.lastErr[n] = aerr.Error()
	}
}

// applyGeneratedLocked paints the generated artwork onto the panel and
// commits both bitmap slots. When the panel is still zoomed the artwork lands
// on the live surface; otherwise the slots are rewritten directly so a
// late-arriving result is never lost.
func (b *Board) applyGeneratedLocked(n int, img []byte) error {
	decoded, err := raster.Decode(img)
	if err != nil {
		return fmt.Errorf("backend returned unreadable image: %w", err)
	}
	b.pushHistoryLocked(n)
	if b.zoomed == n {
		b.large.DrawImageFitted(decoded)
		return b.commitZoomedLocked()
	}
	p, perr := b.comic.PanelByNumber(n)
	if perr != nil {
		return perr
	}
	off, serr := raster.NewSurface(b.large.Bounds().Dx(), b.large.Bounds().Dy())
	if serr != nil {
		return serr
	}
	off.DrawImageFitted(decoded)
	enc, eerr := raster.SnapshotBase64(off)
	if eerr != nil {
		return eerr
	}
	p.LargeBitmap = enc
	small, serr2 := raster.ScaleBase64(enc, b.smalls[n-1].Bounds().Dx(), b.smalls[n-1].Bounds().Dy())
	if serr2 != nil {
		return serr2
	}
	p.SmallBitmap = small
	return raster.RestoreBase64(b.smalls[n-1], small)
}
