// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/coterie/internal/logging"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// PagedData wraps a page of results with paging metadata.
type PagedData struct {
	Items    interface{} `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(&APIResponse{
		Status:    "ok",
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(&APIResponse{
		Status:    "error",
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}
