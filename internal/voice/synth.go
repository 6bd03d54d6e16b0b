/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultModelID is the synthesis model requested from the upstream.
const DefaultModelID = "eleven_multilingual_v2"

// Synthesizer is the server-side client for an ElevenLabs-compatible
// text-to-speech API. The desktop app never talks to it directly; the sync
// server does, behind credit accounting.
type Synthesizer struct {
	BaseURL string
	APIKey  string
	VoiceID string // default voice when a request names none
	client  *http.Client
}

// NewSynthesizer creates a synthesizer client for the given upstream.
func NewSynthesizer(baseURL, apiKey, defaultVoiceID string) *Synthesizer {
	return &Synthesizer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		VoiceID: defaultVoiceID,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Voice is one entry of the upstream voice catalogue.
type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

// Voices lists the voices available on the upstream.
func (s *Synthesizer) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", s.APIKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("voice catalogue: %s", resp.Status)
	}
	var out struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Voices, nil
}

// Synthesize converts text to MP3 bytes with the given voice and settings.
// An empty voiceID falls back to the synthesizer default.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voiceID string, settings Settings) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyNarration
	}
	if voiceID == "" {
		voiceID = s.VoiceID
	}
	payload := map[string]any{
		"text":           text,
		"model_id":       DefaultModelID,
		"voice_settings": settings,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", s.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis upstream %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return io.ReadAll(resp.Body)
}
