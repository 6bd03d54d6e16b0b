/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script parses plain-text panel scripts so a whole board can be
// written in an editor and imported in one go.
//
// Format:
//
//	Title: The Fox and the City
//	Author: Mika
//
//	Panel 1: a fox watching the skyline at dusk @noir
//	  NARRATION: Night fell over the city.
//	Panel 2: the fox slips through a fence
//	; author note, ignored on import
package script

// PanelScript is a parsed script for one six-panel comic.
type PanelScript struct {
	Title  string
	Author string
	Panels []PanelScene
}

// PanelScene holds the script text for one panel. Prompt feeds image
// generation, Narration becomes the panel caption.
type PanelScene struct {
	Number    int
	Prompt    string
	Narration string
	Tags      []string
	LineNo    int // 1-based line of the Panel heading in the source
}

// Error is a parse problem with position context. Parsing continues past
// errors so a single import reports everything wrong with the file.
type Error struct {
	Line    int
	Message string
}

func (e Error) Error() string { return e.Message }
