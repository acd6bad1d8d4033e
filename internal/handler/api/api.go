// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers for the site backend.
package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mudbeaver/site-api/internal/captcha"
	"github.com/mudbeaver/site-api/internal/config"
	"github.com/mudbeaver/site-api/internal/media"
	"github.com/mudbeaver/site-api/internal/middleware"
	"github.com/mudbeaver/site-api/internal/slug"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/version"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db       *sql.DB
	queries  *store.Queries
	resolver *slug.Resolver
	media    *media.Client
	captcha  *captcha.Verifier
	cfg      *config.Config
	version  version.Info
}

// NewHandler creates a new API handler. mediaClient may be nil when the
// media host is not configured; upload endpoints then report an error.
func NewHandler(db *sql.DB, cfg *config.Config, mediaClient *media.Client, verifier *captcha.Verifier, ver version.Info) *Handler {
	queries := store.New(db)
	return &Handler{
		db:       db,
		queries:  queries,
		resolver: slug.NewResolver(queries),
		media:    mediaClient,
		captcha:  verifier,
		cfg:      cfg,
		version:  ver,
	}
}

// Routes mounts all /api/v1 endpoints on a new router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	publicLimiter := middleware.NewGlobalRateLimiter(h.cfg.PublicRPS, h.cfg.PublicBurst)

	r.Get("/status", h.Status)

	// Public read endpoints
	r.Get("/posts", h.ListPosts)

	// Public intake endpoints, rate limited per IP
	r.Group(func(r chi.Router) {
		r.Use(publicLimiter.Middleware())
		r.Post("/internships", h.CreateApplication)
		r.Post("/requirements", h.CreateRequirement)
		r.Post("/contact", h.CreateContactMessage)
	})

	// Management endpoints (admin API key required)
	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(h.db))
		r.Use(middleware.RequireAdmin())

		r.Get("/auth/info", h.AuthInfo)
		r.Get("/events", h.ListEvents)

		r.Get("/posts/all", h.ListAllPosts)
		r.Post("/posts", h.CreatePost)
		r.Put("/posts/{identifier}", h.UpdatePost)
		r.Delete("/posts/{identifier}", h.DeletePost)

		r.Get("/internships", h.ListApplications)
		r.Get("/internships/{id}", h.GetApplication)
		r.Patch("/internships/{id}/status", h.UpdateApplicationStatus)

		r.Get("/requirements", h.ListRequirements)
		r.Get("/requirements/{id}", h.GetRequirement)
		r.Patch("/requirements/{id}/status", h.UpdateRequirementStatus)

		r.Get("/contact", h.ListContactMessages)
		r.Get("/contact/{id}", h.GetContactMessage)
		r.Patch("/contact/{id}/status", h.UpdateContactMessageStatus)
	})

	// The static /posts/all route above takes precedence over this wildcard.
	r.Get("/posts/{identifier}", h.GetPost)

	return r
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteValidationError writes a 400 response with per-field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusBadRequest, "validation_error", "Validation failed", fieldErrors)
}

// writeInternalError writes a 500 response. The underlying error detail is
// exposed only in development.
func (h *Handler) writeInternalError(w http.ResponseWriter, message string, err error) {
	if h.cfg.IsDevelopment() && err != nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", message,
			map[string]string{"detail": err.Error()})
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: h.version.Version,
	}, nil)
}

// AuthInfo returns information about the authenticated API key.
func (h *Handler) AuthInfo(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKey(r)
	if apiKey == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	type AuthInfoResponse struct {
		KeyPrefix string `json:"key_prefix"`
		Name      string `json:"name"`
		Role      string `json:"role"`
		Owner     string `json:"owner,omitempty"`
	}

	resp := AuthInfoResponse{
		KeyPrefix: apiKey.KeyPrefix,
		Name:      apiKey.Name,
		Role:      apiKey.Role,
	}
	if owner, err := h.queries.GetUserByID(r.Context(), apiKey.CreatedBy); err == nil {
		resp.Owner = owner.Name
	}

	WriteSuccess(w, resp, nil)
}
