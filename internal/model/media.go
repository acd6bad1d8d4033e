// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Supported MIME types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypePDF  = "application/pdf"
)

// AllowedImageMimeTypes defines the image formats accepted for upload.
var AllowedImageMimeTypes = map[string]bool{
	MimeTypeJPEG: true,
	MimeTypePNG:  true,
	MimeTypeGIF:  true,
	MimeTypeWebP: true,
}

// IsImageMimeType reports whether the MIME type is an allowed image format.
func IsImageMimeType(mimeType string) bool {
	return AllowedImageMimeTypes[mimeType]
}
