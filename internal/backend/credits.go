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
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"log/slog"
)

// startingCredits is granted once when an account is first seen.
const startingCredits = 100

func encodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}
	switch parts[2] {
	case "balance":
		withAuth(s.secret, s.creditBalance)(w, r)
	case "deduct":
		withAuth(s.secret, s.creditDeduct)(w, r)
	case "profile":
		withAuth(s.secret, s.creditProfile)(w, r)
	default:
		http.NotFound(w, r)
	}
}

// ensureAccount creates the account row on first contact.
func (s *Server) ensureAccount(ctx context.Context, sub string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_credits (user_id, balance, display_name)
		 VALUES ($1, $2, $1) ON CONFLICT (user_id) DO NOTHING`, sub, startingCredits)
	return err
}

// tryDeduct atomically charges the account. Returns false without error when
// the balance cannot cover the amount.
func (s *Server) tryDeduct(ctx context.Context, sub string, amount int64, reason string) (bool, error) {
	if err := s.ensureAccount(ctx, sub); err != nil {
		return false, err
	}
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE user_credits SET balance = balance - $1, updated_at = now()
		 WHERE user_id = $2 AND balance >= $1 RETURNING balance`, amount, sub).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.log.Info("credits deducted",
		slog.String("user", sub), slog.Int64("amount", amount),
		slog.Int64("balance", balance), slog.String("reason", reason))
	return true, nil
}

func (s *Server) creditBalance(w http.ResponseWriter, r *http.Request, sub string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.ensureAccount(r.Context(), sub); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var balance int64
	if err := s.db.QueryRowContext(r.Context(),
		`SELECT balance FROM user_credits WHERE user_id = $1`, sub).Scan(&balance); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credits": balance})
}

func (s *Server) creditDeduct(w http.ResponseWriter, r *http.Request, sub string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Amount int64  `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, errors.New("amount must be positive"))
		return
	}
	ok, err := s.tryDeduct(r.Context(), sub, req.Amount, req.Reason)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusPaymentRequired, ErrInsufficientCredits)
		return
	}
	var balance int64
	if err := s.db.QueryRowContext(r.Context(),
		`SELECT balance FROM user_credits WHERE user_id = $1`, sub).Scan(&balance); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"credits": balance})
}

func (s *Server) creditProfile(w http.ResponseWriter, r *http.Request, sub string) {
	ctx := r.Context()
	if err := s.ensureAccount(ctx, sub); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		var p Profile
		if err := s.db.QueryRowContext(ctx,
			`SELECT display_name, balance FROM user_credits WHERE user_id = $1`, sub).
			Scan(&p.DisplayName, &p.Credits); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPatch:
		var req struct {
			DisplayName string `json:"display_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if strings.TrimSpace(req.DisplayName) == "" {
			writeError(w, http.StatusUnprocessableEntity, errors.New("display_name must not be empty"))
			return
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE user_credits SET display_name = $1, updated_at = now() WHERE user_id = $2`,
			req.DisplayName, sub); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
