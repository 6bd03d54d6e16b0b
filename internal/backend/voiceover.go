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
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pixelpanel/internal/voice"
)

func (s *Server) handleVoiceOver(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}
	switch parts[2] {
	case "generate-story":
		s.generateStory(w, r)
	case "generate-voiceover":
		withAuth(s.secret, s.generateVoiceover)(w, r)
	default:
		http.NotFound(w, r)
	}
}

// storyFallback composes a narration directly from the prompts when no story
// model is available. Deterministic on purpose.
func storyFallback(prompts string) string {
	return "Once upon a time, there was a story about: " + prompts
}

func (s *Server) generateStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Story string `json:"story"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Story) == "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("story prompts must not be empty"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"story": storyFallback(req.Story)})
}

func (s *Server) generateVoiceover(w http.ResponseWriter, r *http.Request, sub string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Narration string  `json:"narration"`
		VoiceID   string  `json:"voice_id"`
		Speed     float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Narration) == "" {
		writeError(w, http.StatusBadRequest, errors.New("narration text cannot be empty"))
		return
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}
	if err := voice.ValidateSpeed(req.Speed); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.synth == nil {
		writeError(w, http.StatusBadGateway, errors.New("voice synthesis not configured"))
		return
	}
	ok, err := s.tryDeduct(r.Context(), sub, CostNarrationAudio, "voice narration")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusPaymentRequired, ErrInsufficientCredits)
		return
	}
	mp3, err := s.synth.Synthesize(r.Context(), req.Narration, req.VoiceID, voice.SettingsForSpeed(req.Speed))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"audio": encodeBase64(mp3)})
}
