// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/mudbeaver/site-api/internal/handler"
	"github.com/mudbeaver/site-api/internal/imaging"
	"github.com/mudbeaver/site-api/internal/middleware"
	"github.com/mudbeaver/site-api/internal/model"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/util"
)

// isValidEmail checks if the email is valid.
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// verifyCaptcha runs hCaptcha verification when it is configured. Returns
// false and writes a response on failure.
func (h *Handler) verifyCaptcha(w http.ResponseWriter, r *http.Request, token string) bool {
	if h.captcha == nil || !h.captcha.Enabled() {
		return true
	}
	resp, err := h.captcha.Verify(r.Context(), token, middleware.GetClientIP(r))
	if err != nil || !resp.Success {
		slog.Warn("captcha verification failed", "category", model.EventCategoryAuth,
			"ip", middleware.GetClientIP(r), "error", err)
		WriteBadRequest(w, "Captcha verification failed", nil)
		return false
	}
	return true
}

// ApplicationResponse is the public projection of an internship application.
type ApplicationResponse struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	DateOfBirth          *time.Time `json:"date_of_birth,omitempty"`
	Email                string     `json:"email"`
	Phone                string     `json:"phone"`
	Address              string     `json:"address"`
	City                 string     `json:"city"`
	Region               string     `json:"region"`
	ZipCode              string     `json:"zip_code"`
	Institution          string     `json:"institution"`
	PaymentScreenshotURL string     `json:"payment_screenshot_url"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func applicationToResponse(a store.InternshipApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:                   a.ID,
		Name:                 a.Name,
		DateOfBirth:          util.TimePtrFromNull(a.DateOfBirth),
		Email:                a.Email,
		Phone:                a.Phone,
		Address:              a.Address,
		City:                 a.City,
		Region:               a.Region,
		ZipCode:              a.ZipCode,
		Institution:          a.Institution,
		PaymentScreenshotURL: a.PaymentScreenshotURL,
		Status:               a.Status,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

// CreateApplication handles POST /api/v1/internships. Multipart form with
// a required payment_screenshot file.
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	if !h.verifyCaptcha(w, r, r.FormValue("h-captcha-response")) {
		return
	}

	fields := map[string]string{
		"name":        r.FormValue("name"),
		"email":       r.FormValue("email"),
		"phone":       r.FormValue("phone"),
		"address":     r.FormValue("address"),
		"city":        r.FormValue("city"),
		"region":      r.FormValue("region"),
		"zip_code":    r.FormValue("zip_code"),
		"institution": r.FormValue("institution"),
	}

	validationErrors := make(map[string]string)
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			validationErrors[name] = "This field is required"
		}
	}
	if fields["email"] != "" && !isValidEmail(fields["email"]) {
		validationErrors["email"] = "Invalid email address"
	}

	var dob sql.NullTime
	if dobStr := r.FormValue("date_of_birth"); dobStr != "" {
		t, err := time.Parse("2006-01-02", dobStr)
		if err != nil {
			validationErrors["date_of_birth"] = "Date of birth must be YYYY-MM-DD"
		} else {
			dob = util.NullTimeFromValue(t)
		}
	}

	var screenshot []byte
	if r.MultipartForm == nil || len(r.MultipartForm.File["payment_screenshot"]) == 0 {
		validationErrors["payment_screenshot"] = "Payment screenshot is required"
	} else {
		data, ok := h.readUpload(w, r.MultipartForm.File["payment_screenshot"][0], "payment_screenshot")
		if !ok {
			return
		}
		if !imaging.IsAllowedUpload(imaging.DetectMimeType(data), true) {
			validationErrors["payment_screenshot"] = "Payment screenshot must be an image or a PDF"
		}
		screenshot = data
	}

	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	if h.media == nil {
		h.writeInternalError(w, "Failed to upload payment screenshot",
			errors.New("media host is not configured"))
		return
	}

	var screenshotURL string
	if imaging.DetectMimeType(screenshot) == "application/pdf" {
		uploaded, err := h.media.UploadPDF(ctx, screenshot, "internships")
		if err != nil {
			h.writeInternalError(w, "Failed to upload payment screenshot", err)
			return
		}
		screenshotURL = uploaded.SecureURL
	} else {
		uploaded, err := h.media.UploadImage(ctx, screenshot, "internships")
		if err != nil {
			h.writeInternalError(w, "Failed to upload payment screenshot", err)
			return
		}
		screenshotURL = uploaded.SecureURL
	}

	now := time.Now()
	app, err := h.queries.CreateApplication(ctx, store.CreateApplicationParams{
		Name:                 fields["name"],
		DateOfBirth:          dob,
		Email:                fields["email"],
		Phone:                fields["phone"],
		Address:              fields["address"],
		City:                 fields["city"],
		Region:               fields["region"],
		ZipCode:              fields["zip_code"],
		Institution:          fields["institution"],
		PaymentScreenshotURL: screenshotURL,
		Status:               model.ApplicationStatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		h.writeInternalError(w, "Failed to save application", err)
		return
	}

	slog.Info("internship application received", "category", model.EventCategoryIntake,
		"application_id", app.ID, "email", app.Email)

	WriteCreated(w, applicationToResponse(app))
}

// ListApplications handles GET /api/v1/internships.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.queries.ListApplications(r.Context())
	if err != nil {
		h.writeInternalError(w, "Failed to list applications", err)
		return
	}
	window, meta := paginate(r, apps)
	responses := make([]ApplicationResponse, 0, len(window))
	for _, a := range window {
		responses = append(responses, applicationToResponse(a))
	}
	WriteSuccess(w, responses, meta)
}

// GetApplication handles GET /api/v1/internships/{id}.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid application ID", nil)
		return
	}
	app, err := h.queries.GetApplicationByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Application not found")
		} else {
			h.writeInternalError(w, "Failed to retrieve application", err)
		}
		return
	}
	WriteSuccess(w, applicationToResponse(app), nil)
}

// statusUpdateRequest is the JSON body for PATCH .../{id}/status.
type statusUpdateRequest struct {
	Status string `json:"status"`
}

func decodeStatusUpdate(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return "", false
	}
	return req.Status, true
}

// UpdateApplicationStatus handles PATCH /api/v1/internships/{id}/status.
func (h *Handler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid application ID", nil)
		return
	}
	status, ok := decodeStatusUpdate(w, r)
	if !ok {
		return
	}
	if !model.IsValidApplicationStatus(status) {
		WriteValidationError(w, map[string]string{
			"status": "Status must be one of: " + strings.Join(model.ValidApplicationStatuses(), ", "),
		})
		return
	}
	app, err := h.queries.UpdateApplicationStatus(r.Context(), store.UpdateApplicationStatusParams{
		ID:        id,
		Status:    status,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Application not found")
		} else {
			h.writeInternalError(w, "Failed to update application", err)
		}
		return
	}
	WriteSuccess(w, applicationToResponse(app), nil)
}

// RequirementResponse is the public projection of a service requirement.
type RequirementResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address,omitempty"`
	SiteDetails string    `json:"site_details,omitempty"`
	Area        string    `json:"area,omitempty"`
	Budget      string    `json:"budget,omitempty"`
	Category    string    `json:"category,omitempty"`
	Services    string    `json:"services,omitempty"`
	DrawingsURL string    `json:"drawings_url,omitempty"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func requirementToResponse(rq store.Requirement) RequirementResponse {
	return RequirementResponse{
		ID:          rq.ID,
		Username:    rq.Username,
		Email:       rq.Email,
		Phone:       rq.Phone,
		Address:     util.StringFromNull(rq.Address),
		SiteDetails: util.StringFromNull(rq.SiteDetails),
		Area:        util.StringFromNull(rq.Area),
		Budget:      util.StringFromNull(rq.Budget),
		Category:    util.StringFromNull(rq.Category),
		Services:    util.StringFromNull(rq.Services),
		DrawingsURL: util.StringFromNull(rq.DrawingsURL),
		Message:     util.StringFromNull(rq.Message),
		Status:      rq.Status,
		CreatedAt:   rq.CreatedAt,
		UpdatedAt:   rq.UpdatedAt,
	}
}

// CreateRequirement handles POST /api/v1/requirements. Multipart form with
// an optional drawings PDF.
func (h *Handler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	if !h.verifyCaptcha(w, r, r.FormValue("h-captcha-response")) {
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	phone := r.FormValue("phone")

	validationErrors := make(map[string]string)
	if strings.TrimSpace(username) == "" {
		validationErrors["username"] = "This field is required"
	}
	if strings.TrimSpace(email) == "" {
		validationErrors["email"] = "This field is required"
	} else if !isValidEmail(email) {
		validationErrors["email"] = "Invalid email address"
	}
	if strings.TrimSpace(phone) == "" {
		validationErrors["phone"] = "This field is required"
	}

	var drawings []byte
	if r.MultipartForm != nil && len(r.MultipartForm.File["drawings"]) > 0 {
		data, ok := h.readUpload(w, r.MultipartForm.File["drawings"][0], "drawings")
		if !ok {
			return
		}
		if imaging.DetectMimeType(data) != "application/pdf" {
			validationErrors["drawings"] = "Drawings must be a PDF"
		}
		drawings = data
	}

	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	var drawingsURL sql.NullString
	if drawings != nil {
		if h.media == nil {
			h.writeInternalError(w, "Failed to upload drawings",
				errors.New("media host is not configured"))
			return
		}
		uploaded, err := h.media.UploadPDF(ctx, drawings, "requirements")
		if err != nil {
			h.writeInternalError(w, "Failed to upload drawings", err)
			return
		}
		drawingsURL = util.NullStringFromValue(uploaded.SecureURL)
	}

	now := time.Now()
	rq, err := h.queries.CreateRequirement(ctx, store.CreateRequirementParams{
		Username:    username,
		Email:       email,
		Phone:       phone,
		Address:     optionalFormValue(r, "address"),
		SiteDetails: optionalFormValue(r, "site_details"),
		Area:        optionalFormValue(r, "area"),
		Budget:      optionalFormValue(r, "budget"),
		Category:    optionalFormValue(r, "category"),
		Services:    optionalFormValue(r, "services"),
		DrawingsURL: drawingsURL,
		Message:     optionalFormValue(r, "message"),
		Status:      model.RequirementStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		h.writeInternalError(w, "Failed to save requirement", err)
		return
	}

	slog.Info("service requirement received", "category", model.EventCategoryIntake,
		"requirement_id", rq.ID, "email", rq.Email)

	WriteCreated(w, requirementToResponse(rq))
}

// optionalFormValue wraps an optional form field; empty means NULL.
func optionalFormValue(r *http.Request, name string) sql.NullString {
	return util.NullStringFromValue(r.FormValue(name))
}

// ListRequirements handles GET /api/v1/requirements.
func (h *Handler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.queries.ListRequirements(r.Context())
	if err != nil {
		h.writeInternalError(w, "Failed to list requirements", err)
		return
	}
	window, meta := paginate(r, reqs)
	responses := make([]RequirementResponse, 0, len(window))
	for _, rq := range window {
		responses = append(responses, requirementToResponse(rq))
	}
	WriteSuccess(w, responses, meta)
}

// GetRequirement handles GET /api/v1/requirements/{id}.
func (h *Handler) GetRequirement(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid requirement ID", nil)
		return
	}
	rq, err := h.queries.GetRequirementByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Requirement not found")
		} else {
			h.writeInternalError(w, "Failed to retrieve requirement", err)
		}
		return
	}
	WriteSuccess(w, requirementToResponse(rq), nil)
}

// UpdateRequirementStatus handles PATCH /api/v1/requirements/{id}/status.
func (h *Handler) UpdateRequirementStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid requirement ID", nil)
		return
	}
	status, ok := decodeStatusUpdate(w, r)
	if !ok {
		return
	}
	if !model.IsValidRequirementStatus(status) {
		WriteValidationError(w, map[string]string{
			"status": "Status must be one of: " + strings.Join(model.ValidRequirementStatuses(), ", "),
		})
		return
	}
	rq, err := h.queries.UpdateRequirementStatus(r.Context(), store.UpdateRequirementStatusParams{
		ID:        id,
		Status:    status,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Requirement not found")
		} else {
			h.writeInternalError(w, "Failed to update requirement", err)
		}
		return
	}
	WriteSuccess(w, requirementToResponse(rq), nil)
}

// ContactResponse is the public projection of a contact message.
type ContactResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func contactToResponse(c store.ContactMessage) ContactResponse {
	return ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Subject:   c.Subject,
		Message:   c.Message,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// contactRequest is a contact form submission, accepted as JSON or as an
// URL-encoded / multipart form.
type contactRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Subject      string `json:"subject"`
	Message      string `json:"message"`
	CaptchaToken string `json:"h-captcha-response"`
}

func decodeContactRequest(r *http.Request) (contactRequest, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var req contactRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return contactRequest{}, err
	}
	return contactRequest{
		Name:         r.FormValue("name"),
		Email:        r.FormValue("email"),
		Subject:      r.FormValue("subject"),
		Message:      r.FormValue("message"),
		CaptchaToken: r.FormValue("h-captcha-response"),
	}, nil
}

// CreateContactMessage handles POST /api/v1/contact.
func (h *Handler) CreateContactMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeContactRequest(r)
	if err != nil {
		WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if !h.verifyCaptcha(w, r, req.CaptchaToken) {
		return
	}

	validationErrors := make(map[string]string)
	if strings.TrimSpace(req.Name) == "" {
		validationErrors["name"] = "This field is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		validationErrors["email"] = "This field is required"
	} else if !isValidEmail(req.Email) {
		validationErrors["email"] = "Invalid email address"
	}
	if strings.TrimSpace(req.Subject) == "" {
		validationErrors["subject"] = "This field is required"
	}
	if strings.TrimSpace(req.Message) == "" {
		validationErrors["message"] = "This field is required"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	now := time.Now()
	msg, err := h.queries.CreateContactMessage(r.Context(), store.CreateContactMessageParams{
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		Status:    model.ContactStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		h.writeInternalError(w, "Failed to save contact message", err)
		return
	}

	slog.Info("contact message received", "category", model.EventCategoryIntake,
		"message_id", msg.ID, "email", msg.Email)

	WriteCreated(w, contactToResponse(msg))
}

// ListContactMessages handles GET /api/v1/contact.
func (h *Handler) ListContactMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.queries.ListContactMessages(r.Context())
	if err != nil {
		h.writeInternalError(w, "Failed to list contact messages", err)
		return
	}
	window, meta := paginate(r, msgs)
	responses := make([]ContactResponse, 0, len(window))
	for _, c := range window {
		responses = append(responses, contactToResponse(c))
	}
	WriteSuccess(w, responses, meta)
}

// GetContactMessage handles GET /api/v1/contact/{id}.
func (h *Handler) GetContactMessage(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid message ID", nil)
		return
	}
	msg, err := h.queries.GetContactMessageByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Contact message not found")
		} else {
			h.writeInternalError(w, "Failed to retrieve contact message", err)
		}
		return
	}
	WriteSuccess(w, contactToResponse(msg), nil)
}

// UpdateContactMessageStatus handles PATCH /api/v1/contact/{id}/status.
func (h *Handler) UpdateContactMessageStatus(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid message ID", nil)
		return
	}
	status, ok := decodeStatusUpdate(w, r)
	if !ok {
		return
	}
	if !model.IsValidContactStatus(status) {
		WriteValidationError(w, map[string]string{
			"status": "Status must be one of: " + strings.Join(model.ValidContactStatuses(), ", "),
		})
		return
	}
	msg, err := h.queries.UpdateContactMessageStatus(r.Context(), store.UpdateContactMessageStatusParams{
		ID:        id,
		Status:    status,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Contact message not found")
		} else {
			h.writeInternalError(w, "Failed to update contact message", err)
		}
		return
	}
	WriteSuccess(w, contactToResponse(msg), nil)
}
