/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists comics on the local filesystem.
//
// Each comic is a folder holding a comic.json manifest plus panels/, audio/,
// exports/ and backups/ subfolders. Saves are transactional (temp file +
// rename) and keep timestamped backups; Open falls back to the newest
// readable backup when the manifest is damaged. A library of comic folders
// carries a derived SQLite index (.pixelpanel/index.sqlite) with full-text
// search over titles, prompts and narrations, plus a size-capped preview
// cache. The index is disposable and rebuilds from the folders on corruption.
package storage
