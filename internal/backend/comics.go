/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"log/slog"

	"pixelpanel/internal/comic"
	"pixelpanel/internal/voice"

	"github.com/google/uuid"
)

func (s *Server) handleComics(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// parts[0]=api parts[1]=comics
	if len(parts) < 3 {
		http.NotFound(w, r)
		return
	}
	switch {
	case parts[2] == "save-comic" && len(parts) == 3:
		withAuth(s.secret, s.saveComic)(w, r)
	case parts[2] == "user-comics" && len(parts) == 3:
		withAuth(s.secret, s.userComics)(w, r)
	case parts[2] == "user-comics" && len(parts) == 4:
		withAuth(s.secret, func(w http.ResponseWriter, r *http.Request, sub string) {
			s.deleteComic(w, r, sub, parts[3])
		})(w, r)
	case parts[2] == "public-comics" && len(parts) == 3:
		s.publicComics(w, r)
	case parts[2] == "panels" && len(parts) == 4:
		withAuth(s.secret, func(w http.ResponseWriter, r *http.Request, sub string) {
			s.updatePanel(w, r, sub, parts[3])
		})(w, r)
	case len(parts) == 4 && parts[3] == "visibility":
		withAuth(s.secret, func(w http.ResponseWriter, r *http.Request, sub string) {
			s.updateVisibility(w, r, sub, parts[2])
		})(w, r)
	default:
		http.NotFound(w, r)
	}
}

// saveComic inserts or replaces a comic and all of its panels in one
// transaction. The thumbnail is stored as panel 0.
func (s *Server) saveComic(w http.ResponseWriter, r *http.Request, sub string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req SaveComicRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 256<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("missing required field: title"))
		return
	}
	if len(req.Panels) == 0 {
		writeError(w, http.StatusUnprocessableEntity, errors.New("missing required field: panels"))
		return
	}
	seen := map[int]bool{}
	for _, p := range req.Panels {
		if p.Number < 1 || p.Number > comic.BoardPanels {
			writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("panel number %d out of range", p.Number))
			return
		}
		if seen[p.Number] {
			writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("duplicate panel number %d", p.Number))
			return
		}
		seen[p.Number] = true
	}

	ctx := r.Context()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	comicID := req.ID
	if comicID == "" {
		comicID = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comics (id, user_id, title, is_public) VALUES ($1, $2, $3, $4)`,
			comicID, sub, req.Title, req.IsPublic); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE comics SET title = $1, is_public = $2, updated_at = now() WHERE id = $3 AND user_id = $4`,
			req.Title, req.IsPublic, comicID, sub)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			writeError(w, http.StatusNotFound, errors.New("comic not found or unauthorized"))
			return
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM comic_panels WHERE comic_id = $1`, comicID); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	insert := func(number int, image, prompt, narration, audio string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO comic_panels (id, comic_id, panel_number, image_data, prompt, narration, audio_data)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), comicID, number, image, prompt, narration, audio)
		return err
	}
	if req.ThumbnailData != "" {
		if err := insert(ThumbnailNumber, req.ThumbnailData, "", "", ""); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	for _, p := range req.Panels {
		if err := insert(p.Number, p.ImageData, p.Prompt, p.Narration, p.AudioData); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("comic saved", slog.String("comic", comicID), slog.String("user", sub), slog.Int("panels", len(req.Panels)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "comic_id": comicID})
}

func (s *Server) userComics(w http.ResponseWriter, r *http.Request, sub string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	comics, err := s.listComics(r.Context(), `WHERE c.user_id = $1 ORDER BY c.updated_at DESC`, sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comics": comics})
}

func (s *Server) publicComics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var (
		comics []RemoteComic
		err    error
	)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		comics, err = s.listComics(r.Context(),
			`WHERE c.is_public AND c.title ILIKE $1 ORDER BY c.updated_at DESC`, "%"+q+"%")
	} else {
		comics, err = s.listComics(r.Context(), `WHERE c.is_public ORDER BY c.updated_at DESC`)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comics": comics})
}

// listComics loads comics matching the filter clause, panels attached and
// ordered by panel number (thumbnail first).
func (s *Server) listComics(ctx context.Context, where string, args ...any) ([]RemoteComic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.is_public, c.created_at, c.updated_at FROM comics c `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var (
		list  []RemoteComic
		index = map[string]int{}
		ids   []any
	)
	for rows.Next() {
		var c RemoteComic
		if err := rows.Scan(&c.ID, &c.Title, &c.IsPublic, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		index[c.ID] = len(list)
		ids = append(ids, c.ID)
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []RemoteComic{}, nil
	}

	ph := make([]string, len(ids))
	for i := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	prows, err := s.db.QueryContext(ctx,
		`SELECT id, comic_id, panel_number, image_data, prompt, narration, audio_data
		 FROM comic_panels WHERE comic_id IN (`+strings.Join(ph, ",")+`) ORDER BY panel_number`, ids...)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var (
			p       RemotePanel
			comicID string
		)
		if err := prows.Scan(&p.ID, &comicID, &p.Number, &p.ImageData, &p.Prompt, &p.Narration, &p.AudioData); err != nil {
			return nil, err
		}
		if i, ok := index[comicID]; ok {
			list[i].Panels = append(list[i].Panels, p)
		}
	}
	return list, prows.Err()
}

func (s *Server) deleteComic(w http.ResponseWriter, r *http.Request, sub, comicID string) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	res, err := s.db.ExecContext(r.Context(),
		`DELETE FROM comics WHERE id = $1 AND user_id = $2`, comicID, sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, errors.New("comic not found or unauthorized"))
		return
	}
	s.log.Info("comic deleted", slog.String("comic", comicID), slog.String("user", sub))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// panelMeta is what publish validation needs to know about a stored panel.
type panelMeta struct {
	Number    int
	Narration string
}

// validatePublish enforces completeness before a comic goes public: a
// non-blank title, a thumbnail (panel 0), and a narration on every real
// panel.
func validatePublish(title string, panels []panelMeta) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("cannot publish: comic title is required")
	}
	hasThumbnail := false
	for _, p := range panels {
		if p.Number == ThumbnailNumber {
			hasThumbnail = true
			continue
		}
		if strings.TrimSpace(p.Narration) == "" {
			return fmt.Errorf("cannot publish: panel %d has no narration", p.Number)
		}
	}
	if !hasThumbnail {
		return errors.New("cannot publish: comic thumbnail is required")
	}
	return nil
}

func (s *Server) updateVisibility(w http.ResponseWriter, r *http.Request, sub, comicID string) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		IsPublic bool `json:"is_public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()
	if req.IsPublic {
		var title string
		err := s.db.QueryRowContext(ctx,
			`SELECT title FROM comics WHERE id = $1 AND user_id = $2`, comicID, sub).Scan(&title)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, errors.New("comic not found or unauthorized"))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT panel_number, narration FROM comic_panels WHERE comic_id = $1`, comicID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		defer rows.Close()
		var panels []panelMeta
		for rows.Next() {
			var p panelMeta
			if err := rows.Scan(&p.Number, &p.Narration); err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			panels = append(panels, p)
		}
		if err := rows.Err(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if err := validatePublish(title, panels); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE comics SET is_public = $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
		req.IsPublic, comicID, sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, errors.New("comic not found or unauthorized"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "is_public": req.IsPublic})
}

func (s *Server) updatePanel(w http.ResponseWriter, r *http.Request, sub, panelID string) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req UpdatePanelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Narration == nil && req.Prompt == nil {
		writeError(w, http.StatusUnprocessableEntity, errors.New("missing required field: narration or prompt"))
		return
	}
	ctx := r.Context()

	// Ownership check via the parent comic.
	var panelNumber int
	err := s.db.QueryRowContext(ctx,
		`SELECT p.panel_number FROM comic_panels p JOIN comics c ON c.id = p.comic_id
		 WHERE p.id = $1 AND c.user_id = $2`, panelID, sub).Scan(&panelNumber)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, errors.New("panel not found or unauthorized"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	audioData := ""
	if req.RegenerateAudio && req.Narration != nil && strings.TrimSpace(*req.Narration) != "" {
		if s.synth == nil {
			writeError(w, http.StatusBadGateway, errors.New("voice synthesis not configured"))
			return
		}
		speed := req.Speed
		if speed == 0 {
			speed = 1.0
		}
		if err := voice.ValidateSpeed(speed); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		if ok, err := s.tryDeduct(ctx, sub, CostNarrationAudio, "panel narration audio"); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		} else if !ok {
			writeError(w, http.StatusPaymentRequired, ErrInsufficientCredits)
			return
		}
		mp3, err := s.synth.Synthesize(ctx, *req.Narration, req.VoiceID, voice.SettingsForSpeed(speed))
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		audioData = encodeBase64(mp3)
	}

	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.Narration != nil {
		add("narration", *req.Narration)
	}
	if req.Prompt != nil {
		add("prompt", *req.Prompt)
	}
	if audioData != "" {
		add("audio_data", audioData)
	}
	args = append(args, panelID)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE comic_panels SET `+strings.Join(set, ", ")+fmt.Sprintf(` WHERE id = $%d`, len(args)), args...); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("panel updated", slog.String("panel", panelID), slog.Int("number", panelNumber), slog.String("user", sub))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "audio_regenerated": audioData != ""})
}
