// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/mudbeaver/site-api/internal/handler"
	"github.com/mudbeaver/site-api/internal/model"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// paginate slices items according to the request's page/per_page query
// parameters and returns the window together with list metadata.
func paginate[T any](r *http.Request, items []T) ([]T, *Meta) {
	page := handler.ParsePageParam(r)
	perPage := handler.ParsePerPageParam(r, defaultPerPage, maxPerPage)

	total := len(items)
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return items[start:end], &Meta{
		Total:   int64(total),
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
	}
}

// EventResponse is one event log entry in API responses.
type EventResponse struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func eventToResponse(e model.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Level:     e.Level,
		Category:  e.Category,
		Message:   e.Message,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

// ListEvents handles GET /api/v1/events — recent event log entries for
// operational troubleshooting.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := int64(handler.ParsePerPageParam(r, defaultPerPage, maxPerPage))
	events, err := h.queries.ListRecentEvents(r.Context(), limit)
	if err != nil {
		h.writeInternalError(w, "Failed to list events", err)
		return
	}
	responses := make([]EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, eventToResponse(e))
	}
	WriteSuccess(w, responses, &Meta{Total: int64(len(responses))})
}
