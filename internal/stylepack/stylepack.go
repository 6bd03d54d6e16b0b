/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package stylepack manages quick-style presets: short phrases appended to a
// panel prompt before generation ("watercolor wash", "noir ink"). Built-in
// styles ship with the app; user styles live as YAML files in the library's
// styles directory and travel between machines as zip packs.
package stylepack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Style is one quick-style preset.
type Style struct {
	Name   string `yaml:"name"`
	Suffix string `yaml:"suffix"`
}

// Builtin styles always available in the toolbar.
var Builtin = []Style{
	{Name: "Pixel Art", Suffix: "retro pixel art style, limited palette"},
	{Name: "Watercolor", Suffix: "soft watercolor wash, visible paper texture"},
	{Name: "Noir", Suffix: "high-contrast noir ink, heavy shadows"},
	{Name: "Manga", Suffix: "black and white manga style, screentone shading"},
	{Name: "Sketch", Suffix: "loose pencil sketch, rough hatching"},
}

// Apply appends a style's suffix to a prompt. An empty suffix or prompt
// passes through unchanged.
func Apply(prompt string, s Style) string {
	p := strings.TrimSpace(prompt)
	suf := strings.TrimSpace(s.Suffix)
	if p == "" || suf == "" {
		return p
	}
	return p + ", " + suf
}

// StylesDir returns the user styles folder for a library root.
func StylesDir(libraryRoot string) string {
	return filepath.Join(libraryRoot, "styles")
}

// Load reads all user styles from the library's styles directory, sorted by
// name. A missing directory yields an empty list.
func Load(libraryRoot string) ([]Style, error) {
	dir := StylesDir(libraryRoot)
	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read styles dir: %w", err)
	}
	var styles []Style
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read style %s: %w", e.Name(), err)
		}
		var s Style
		if err := yaml.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("parse style %s: %w", e.Name(), err)
		}
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		styles = append(styles, s)
	}
	sort.Slice(styles, func(i, j int) bool { return styles[i].Name < styles[j].Name })
	return styles, nil
}

// Save writes a user style as <styles>/<slug>.yaml, overwriting any style of
// the same name.
func Save(libraryRoot string, s Style) error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("style name is required")
	}
	dir := StylesDir(libraryRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure styles dir: %w", err)
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal style: %w", err)
	}
	path := filepath.Join(dir, slug(s.Name)+".yaml")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write style: %w", err)
	}
	return nil
}

// Delete removes a user style by name. Deleting a missing style is not an
// error.
func Delete(libraryRoot string, name string) error {
	err := os.Remove(filepath.Join(StylesDir(libraryRoot), slug(name)+".yaml"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete style: %w", err)
	}
	return nil
}

// slug lowercases a style name and replaces anything unsafe for a filename.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
