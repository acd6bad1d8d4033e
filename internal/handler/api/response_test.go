// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mudbeaver/site-api/internal/config"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"}, &Meta{Total: 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Data map[string]string `json:"data"`
		Meta *Meta             `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "world", body.Data["hello"])
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(3), body.Meta.Total)
}

func TestWriteValidationErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, map[string]string{"subject": "This field is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, "Validation failed", body.Error.Message)
	assert.Equal(t, "This field is required", body.Error.Details["subject"])
}

func TestWriteNotFoundEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotFound(rec, "Post not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error.Code)
	assert.Empty(t, body.Error.Details)
}

func TestWriteInternalErrorHidesDetailInProduction(t *testing.T) {
	cause := errors.New("disk full")

	prod := &Handler{cfg: &config.Config{Env: "production"}}
	rec := httptest.NewRecorder()
	prod.writeInternalError(rec, "Failed to upload images", cause)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, body.Error.Details, "production responses must not leak error detail")

	dev := &Handler{cfg: &config.Config{Env: "development"}}
	rec = httptest.NewRecorder()
	dev.writeInternalError(rec, "Failed to upload images", cause)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "disk full", body.Error.Details["detail"])
}
