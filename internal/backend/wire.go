/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend holds both sides of the sync API: the desktop app's client
// and the hosted server. Keeping them in one package keeps the wire structs
// honest; there is exactly one definition of each payload.
package backend

import "time"

// Credit costs. Every paid operation has one price, charged only after the
// operation succeeds.
const (
	CostPanelGeneration = 10
	CostThumbnail       = 10
	CostNarrationAudio  = 1
)

// ThumbnailNumber is the pseudo panel number under which a comic's cover is
// stored alongside the real panels 1..6.
const ThumbnailNumber = 0

// SavePanel is one panel in a save request. Number 0 carries the thumbnail.
type SavePanel struct {
	Number    int    `json:"panel_number"`
	ImageData string `json:"image_data,omitempty"` // base64 PNG, no data-URI prefix
	Prompt    string `json:"prompt,omitempty"`
	Narration string `json:"narration,omitempty"`
	AudioData string `json:"audio_data,omitempty"` // base64 MP3
}

// SaveComicRequest is the payload of POST /api/comics/save-comic.
type SaveComicRequest struct {
	ID            string      `json:"id,omitempty"` // empty on first save
	Title         string      `json:"title"`
	Panels        []SavePanel `json:"panels"`
	ThumbnailData string      `json:"thumbnail_data,omitempty"`
	IsPublic      bool        `json:"is_public"`
}

// RemotePanel is a stored panel as returned by list endpoints.
type RemotePanel struct {
	ID        string `json:"id"`
	Number    int    `json:"panel_number"`
	ImageData string `json:"image_data,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Narration string `json:"narration,omitempty"`
	AudioData string `json:"audio_data,omitempty"`
}

// RemoteComic is a stored comic as returned by list endpoints.
type RemoteComic struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	IsPublic  bool          `json:"is_public"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Panels    []RemotePanel `json:"panels,omitempty"`
}

// UpdatePanelRequest is the payload of PATCH /api/comics/panels/{id}.
// Nil fields are left untouched. RegenerateAudio re-synthesizes the
// narration audio at the given voice and speed.
type UpdatePanelRequest struct {
	Narration       *string `json:"narration,omitempty"`
	Prompt          *string `json:"prompt,omitempty"`
	VoiceID         string  `json:"voice_id,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
	RegenerateAudio bool    `json:"regenerate_audio,omitempty"`
}

// Profile is the credit account summary.
type Profile struct {
	DisplayName string `json:"display_name"`
	Credits     int64  `json:"credits"`
}
