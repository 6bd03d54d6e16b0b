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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pixelpanel/internal/comic"
)

// ErrInsufficientCredits maps the server's payment-required response.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrNotPublishable maps the server's publish-validation rejection.
var ErrNotPublishable = errors.New("comic not publishable")

// Client is the desktop app's HTTP client for the sync server.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a sync client. baseURL may include a trailing slash; it
// will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientCredits
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &e)
		msg := e.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(msg, "publish") {
			return fmt.Errorf("%w: %s", ErrNotPublishable, msg)
		}
		return fmt.Errorf("server %s %s: %s: %s", method, u.Path, resp.Status, msg)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// AuthToken requests a bearer token for the given subject. TTL of zero asks
// for the server default.
func (c *Client) AuthToken(ctx context.Context, subject string, ttl time.Duration) (string, time.Time, error) {
	in := map[string]any{"subject": subject}
	if ttl > 0 {
		in["ttl_seconds"] = int64(ttl.Seconds())
	}
	var out struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", in, &out); err != nil {
		return "", time.Time{}, err
	}
	exp, err := time.Parse(time.RFC3339, out.ExpiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse expiry: %w", err)
	}
	return out.Token, exp, nil
}

// SaveComic uploads a comic. The panel slots travel as their large bitmaps;
// the thumbnail rides along as panel 0. Returns the server-side comic id.
func (c *Client) SaveComic(ctx context.Context, cm *comic.Comic) (string, error) {
	req := SaveComicRequest{
		ID:            cm.RemoteID,
		Title:         cm.Title,
		ThumbnailData: cm.Thumbnail,
		IsPublic:      cm.IsPublic,
	}
	for _, p := range cm.Panels {
		img := p.LargeBitmap
		if img == "" {
			img = p.SmallBitmap
		}
		req.Panels = append(req.Panels, SavePanel{
			Number:    p.Number,
			ImageData: img,
			Prompt:    p.Prompt,
			Narration: p.Narration,
			AudioData: p.AudioData,
		})
	}
	var out struct {
		Success bool   `json:"success"`
		ComicID string `json:"comic_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/comics/save-comic", req, &out); err != nil {
		return "", err
	}
	if !out.Success || out.ComicID == "" {
		return "", errors.New("server did not return a comic id")
	}
	return out.ComicID, nil
}

// UserComics lists the authenticated user's comics, panels included.
func (c *Client) UserComics(ctx context.Context) ([]RemoteComic, error) {
	var out struct {
		Comics []RemoteComic `json:"comics"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/comics/user-comics", nil, &out); err != nil {
		return nil, err
	}
	return out.Comics, nil
}

// PublicComics lists published comics for the explore view. The optional
// query filters titles.
func (c *Client) PublicComics(ctx context.Context, query string) ([]RemoteComic, error) {
	path := "/api/comics/public-comics"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out struct {
		Comics []RemoteComic `json:"comics"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Comics, nil
}

// SetVisibility publishes or unpublishes a comic. Publishing is validated
// server-side: a title, a thumbnail and a narration on every panel are
// required; rejections come back as ErrNotPublishable.
func (c *Client) SetVisibility(ctx context.Context, comicID string, public bool) error {
	path := fmt.Sprintf("/api/comics/%s/visibility", url.PathEscape(comicID))
	var out struct {
		Success  bool `json:"success"`
		IsPublic bool `json:"is_public"`
	}
	return c.doJSON(ctx, http.MethodPatch, path, map[string]any{"is_public": public}, &out)
}

// UpdatePanel patches a stored panel's narration or prompt, optionally
// regenerating its narration audio.
func (c *Client) UpdatePanel(ctx context.Context, panelID string, req UpdatePanelRequest) error {
	path := fmt.Sprintf("/api/comics/panels/%s", url.PathEscape(panelID))
	return c.doJSON(ctx, http.MethodPatch, path, req, nil)
}

// DeleteComic removes a stored comic and its panels.
func (c *Client) DeleteComic(ctx context.Context, comicID string) error {
	path := fmt.Sprintf("/api/comics/user-comics/%s", url.PathEscape(comicID))
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// CreditBalance returns the user's remaining credits.
func (c *Client) CreditBalance(ctx context.Context) (int64, error) {
	var out struct {
		Credits int64 `json:"credits"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/credits/balance", nil, &out); err != nil {
		return 0, err
	}
	return out.Credits, nil
}

// DeductCredits charges the account, e.g. after a successful panel
// generation. Returns the new balance; ErrInsufficientCredits if the account
// cannot cover the amount.
func (c *Client) DeductCredits(ctx context.Context, amount int64, reason string) (int64, error) {
	in := map[string]any{"amount": amount, "reason": reason}
	var out struct {
		Credits int64 `json:"credits"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/credits/deduct", in, &out); err != nil {
		return 0, err
	}
	return out.Credits, nil
}

// GetProfile returns display name and balance.
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.doJSON(ctx, http.MethodGet, "/api/credits/profile", nil, &p)
	return p, err
}

// SetDisplayName updates the profile display name.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodPatch, "/api/credits/profile", map[string]string{"display_name": name}, nil)
}
