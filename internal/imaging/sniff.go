// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging inspects uploaded file content before it is sent to the
// remote media host. Decoding uses pure Go packages only.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"net/http"
	"strings"

	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/mudbeaver/site-api/internal/model"
)

// DetectMimeType sniffs the MIME type from raw file content. The client's
// declared Content-Type header is never trusted.
func DetectMimeType(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return model.MimeTypePDF
	}
	contentType := http.DetectContentType(data)
	// http.DetectContentType may append parameters like "; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType)
}

// IsAllowedUpload checks whether sniffed content may be uploaded at all:
// images for post galleries, images or PDFs for application attachments.
func IsAllowedUpload(mimeType string, allowPDF bool) bool {
	if model.IsImageMimeType(mimeType) {
		return true
	}
	return allowPDF && mimeType == model.MimeTypePDF
}

// DecodeBounds returns the pixel dimensions of an image without decoding
// the full bitmap. It rejects content whose sniffed type is not a
// supported image format.
func DecodeBounds(data []byte) (width, height int, err error) {
	mimeType := DetectMimeType(data)
	if !model.IsImageMimeType(mimeType) {
		return 0, 0, fmt.Errorf("not a supported image type: %s", mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image config: %w", err)
	}

	return cfg.Width, cfg.Height, nil
}
