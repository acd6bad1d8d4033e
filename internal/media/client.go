// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

// Package media talks to the remote media host that stores uploaded files.
// The host exposes a Cloudinary-compatible REST API: signed multipart
// uploads and signed destroy calls, addressed by public ID.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mudbeaver/site-api/internal/imaging"
	"github.com/mudbeaver/site-api/internal/model"
)

const requestTimeout = 30 * time.Second

// ResourceType selects the upload endpoint on the media host.
type ResourceType string

const (
	ResourceImage ResourceType = "image"
	ResourceRaw   ResourceType = "raw"
)

// UploadResult is the subset of the media host's upload response we keep.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Bytes     int64  `json:"bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// APIError is a non-2xx response from the media host.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("media host returned %d: %s", e.StatusCode, e.Message)
}

// Client uploads and deletes files on the remote media host.
type Client struct {
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
	folder     string
	httpClient *http.Client
}

// NewClient creates a media host client. baseURL is the API root without
// a trailing slash, e.g. "https://api.cloudinary.com".
func NewClient(baseURL, cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// UploadImage sends image content to the media host. The content is
// sniffed locally and rejected before any network call if it is not a
// supported image format.
func (c *Client) UploadImage(ctx context.Context, data []byte, subfolder string) (*UploadResult, error) {
	mimeType := imaging.DetectMimeType(data)
	if !model.IsImageMimeType(mimeType) {
		return nil, fmt.Errorf("unsupported image type: %s", mimeType)
	}
	return c.upload(ctx, data, ResourceImage, subfolder)
}

// UploadPDF sends a PDF document to the media host's raw endpoint.
// Content without the PDF magic header is rejected before upload.
func (c *Client) UploadPDF(ctx context.Context, data []byte, subfolder string) (*UploadResult, error) {
	if imaging.DetectMimeType(data) != model.MimeTypePDF {
		return nil, fmt.Errorf("content is not a PDF document")
	}
	return c.upload(ctx, data, ResourceRaw, subfolder)
}

// upload sends file content to the media host and returns the stored
// asset's public ID and delivery URL. The public ID is generated here so
// uploads are addressable before the response arrives in logs.
func (c *Client) upload(ctx context.Context, data []byte, resource ResourceType, subfolder string) (*UploadResult, error) {
	folder := c.folder
	if subfolder != "" {
		folder = c.folder + "/" + subfolder
	}

	publicID := uuid.New().String()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	params := map[string]string{
		"folder":    folder,
		"public_id": publicID,
		"timestamp": timestamp,
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.apiKey

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing upload field %s: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile("file", publicID)
	if err != nil {
		return nil, fmt.Errorf("creating upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing upload body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/%s/upload", c.baseURL, c.cloudName, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing upload response: %w", err)
	}
	return &result, nil
}

// Delete removes an asset from the media host by public ID.
func (c *Client) Delete(ctx context.Context, publicID string, resource ResourceType) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	signature := c.sign(params)

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", timestamp)
	form.Set("signature", signature)
	form.Set("api_key", c.apiKey)

	endpoint := fmt.Sprintf("%s/v1_1/%s/%s/destroy", c.baseURL, c.cloudName, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("destroy request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	// The host reports "not found" as a 200 with result != "ok"; treat
	// it as success since the asset is gone either way.
	var result struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("parsing destroy response: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("destroy rejected: %s", result.Result)
	}
	return nil
}

// sign computes the request signature: parameters sorted by name, joined
// as a query string, with the API secret appended, hashed with SHA-1.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
