/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package voice narrates comics: it turns panel prompts into a short story
// narration and synthesizes narration text into MP3 audio. The app talks to
// the sync server's voice-over endpoints; the server forwards synthesis to an
// ElevenLabs-compatible upstream.
package voice

import "fmt"

// Speed limits supported by the synthesis upstream.
const (
	MinSpeed = 0.7
	MaxSpeed = 1.2
)

// Settings are the synthesis voice parameters.
type Settings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// DefaultSettings is the baseline narration voice.
var DefaultSettings = Settings{Stability: 0.75, SimilarityBoost: 0.9, Style: 0.5}

// Presets are named voice-setting bundles for different reading moods.
var Presets = map[string]Settings{
	"narrative":      {Stability: 0.8, SimilarityBoost: 0.8, Style: 0.3, UseSpeakerBoost: true},
	"conversational": {Stability: 0.7, SimilarityBoost: 0.9, Style: 0.6, UseSpeakerBoost: true},
	"dramatic":       {Stability: 0.6, SimilarityBoost: 0.8, Style: 0.8, UseSpeakerBoost: true},
	"calm":           {Stability: 0.9, SimilarityBoost: 0.7, Style: 0.2},
	"energetic":      {Stability: 0.5, SimilarityBoost: 0.9, Style: 0.9, UseSpeakerBoost: true},
}

// ValidateSpeed checks the playback speed against the supported range.
func ValidateSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("speed %.2f out of range %.1f..%.1f", speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// SettingsForSpeed derives voice settings for a playback speed. Faster
// narration needs lower stability so the voice does not flatten; the value is
// clamped to what the upstream accepts.
func SettingsForSpeed(speed float64) Settings {
	s := DefaultSettings
	stability := 0.75 - (speed-1.0)*0.2
	if stability < 0.1 {
		stability = 0.1
	}
	if stability > 0.95 {
		stability = 0.95
	}
	s.Stability = stability
	return s
}
