// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mudbeaver/site-api/internal/captcha"
	"github.com/mudbeaver/site-api/internal/config"
	"github.com/mudbeaver/site-api/internal/media"
	"github.com/mudbeaver/site-api/internal/model"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/testutil"
	"github.com/mudbeaver/site-api/internal/version"
)

// testEnv wires a handler against a temp database and a fake media host.
type testEnv struct {
	db        *sql.DB
	queries   *store.Queries
	server    *httptest.Server
	mediaHits *atomic.Int64
	adminKey  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	queries := store.New(db)

	var hits atomic.Int64
	mediaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"public_id":"test/upload-%d","secure_url":"https://media.example.com/upload-%d","bytes":1}`,
			hits.Load(), hits.Load())
	}))
	t.Cleanup(mediaSrv.Close)

	cfg := &config.Config{
		Env:            "production",
		MaxUploadSize:  config.DefaultMaxUploadSize,
		MediaCloudName: "testcloud",
		MediaAPIKey:    "key",
		MediaAPISecret: "secret",
		MediaFolder:    "test",
		PublicRPS:      1000,
		PublicBurst:    1000,
	}

	mediaClient := media.NewClient(mediaSrv.URL, cfg.MediaCloudName, cfg.MediaAPIKey, cfg.MediaAPISecret, cfg.MediaFolder)
	h := NewHandler(db, cfg, mediaClient, captcha.NewVerifier(""), version.Get())

	router := chi.NewRouter()
	router.Mount("/api/v1", h.Routes())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{
		db:        db,
		queries:   queries,
		server:    server,
		mediaHits: &hits,
	}
	env.adminKey = env.seedKey(t, model.RoleAdmin)
	return env
}

// seedKey creates an API key with the given role and returns the raw key.
func (e *testEnv) seedKey(t *testing.T, role string) string {
	t.Helper()

	userID := testutil.CreateTestUser(t, e.queries)
	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	now := time.Now()
	_, err = e.queries.CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:      "test " + role,
		KeyHash:   model.HashAPIKey(rawKey),
		KeyPrefix: prefix,
		Role:      role,
		IsActive:  true,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return rawKey
}

// filePart is one file attached to a multipart request.
type filePart struct {
	field    string
	filename string
	data     []byte
}

// multipartBody builds a multipart form request body.
func multipartBody(t *testing.T, fields map[string]string, files []filePart) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("WriteField(%s): %v", name, err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("CreateFormFile(%s): %v", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("writing file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// do sends a request against the test server, optionally with a Bearer key.
func (e *testEnv) do(t *testing.T, method, path, apiKey string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// decodeBody decodes a JSON response body into a generic map.
func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

// errorDetails extracts the error.details field map from a decoded body.
func errorDetails(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("response has no error object: %v", body)
	}
	details, _ := errObj["details"].(map[string]any)
	return details
}

// pngBytes returns a decodable PNG, zero-padded past IEND to reach size.
func pngBytes(size int) []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	if buf.Len() >= size {
		return buf.Bytes()
	}
	data := make([]byte, size)
	copy(data, buf.Bytes())
	return data
}

// pdfBytes returns a buffer that sniffs as application/pdf.
func pdfBytes() []byte {
	return []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
}

// seedPost inserts a post row directly, bypassing the HTTP layer.
func (e *testEnv) seedPost(t *testing.T, title, slug string, published bool) store.Post {
	t.Helper()

	authorID := testutil.CreateTestUser(t, e.queries)
	now := time.Now()
	post, err := e.queries.CreatePost(context.Background(), store.CreatePostParams{
		Title:     title,
		Content:   "content of " + title,
		Slug:      sql.NullString{String: slug, Valid: slug != ""},
		Published: published,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return post
}
