// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mudbeaver/site-api/internal/imaging"
	"github.com/mudbeaver/site-api/internal/media"
	"github.com/mudbeaver/site-api/internal/middleware"
	"github.com/mudbeaver/site-api/internal/model"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/util"
)

// PostResponse represents a post in API responses.
type PostResponse struct {
	ID        int64               `json:"id"`
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	Slug      string              `json:"slug"`
	Published bool                `json:"published"`
	Images    []PostImageResponse `json:"images"`
	Author    *AuthorResponse     `json:"author,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// PostImageResponse represents an attached image in API responses.
type PostImageResponse struct {
	URL      string `json:"url"`
	Position int64  `json:"position"`
}

// AuthorResponse represents a post author in API responses.
type AuthorResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// storePostToResponse converts a store.Post to PostResponse. The slug is
// derived from the title for rows that predate slug storage.
func storePostToResponse(p store.Post) PostResponse {
	s := util.StringFromNull(p.Slug)
	if s == "" {
		s = util.Slugify(p.Title)
	}
	return PostResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Slug:      s,
		Published: p.Published,
		Images:    []PostImageResponse{},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// populatePostRelations attaches images and author data to a post response.
func (h *Handler) populatePostRelations(ctx context.Context, resp *PostResponse, postID int64) {
	images, err := h.queries.ListPostImages(ctx, postID)
	if err == nil {
		for _, img := range images {
			resp.Images = append(resp.Images, PostImageResponse{
				URL:      img.URL,
				Position: img.Position,
			})
		}
	}

	author, err := h.queries.GetPostAuthor(ctx, postID)
	if err == nil {
		resp.Author = &AuthorResponse{
			ID:    author.ID,
			Name:  author.Name,
			Email: author.Email,
		}
	}
}

// ListPosts handles GET /api/v1/posts — published posts, newest first.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	posts, err := h.queries.ListPublishedPosts(ctx)
	if err != nil {
		h.writeInternalError(w, "Failed to list posts", err)
		return
	}

	h.writePostList(w, r, posts)
}

// ListAllPosts handles GET /api/v1/posts/all — every post, drafts included.
func (h *Handler) ListAllPosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	posts, err := h.queries.ListPosts(ctx)
	if err != nil {
		h.writeInternalError(w, "Failed to list posts", err)
		return
	}

	h.writePostList(w, r, posts)
}

func (h *Handler) writePostList(w http.ResponseWriter, r *http.Request, posts []store.Post) {
	ctx := r.Context()

	window, meta := paginate(r, posts)
	responses := make([]PostResponse, 0, len(window))
	for _, p := range window {
		resp := storePostToResponse(p)
		h.populatePostRelations(ctx, &resp, p.ID)
		responses = append(responses, resp)
	}

	WriteSuccess(w, responses, meta)
}

// GetPost handles GET /api/v1/posts/{identifier} — slug or numeric ID.
// Unpublished posts are reported as not found.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identifier := chi.URLParam(r, "identifier")

	post, err := h.resolver.Resolve(ctx, identifier, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Post not found")
		} else {
			h.writeInternalError(w, "Failed to retrieve post", err)
		}
		return
	}

	resp := storePostToResponse(post)
	h.populatePostRelations(ctx, &resp, post.ID)
	WriteSuccess(w, resp, nil)
}

// uploadedImage is an image accepted from a multipart form, already
// size- and type-checked.
type uploadedImage struct {
	data []byte
}

// collectImages reads and validates image files from a parsed multipart
// form. At most model.MaxPostImages files are taken; extras are ignored.
// Returns nil and writes a response on validation failure.
func (h *Handler) collectImages(w http.ResponseWriter, files []*multipart.FileHeader, room int) ([]uploadedImage, bool) {
	if room <= 0 {
		return nil, true
	}
	if len(files) > room {
		files = files[:room]
	}

	images := make([]uploadedImage, 0, len(files))
	for _, fh := range files {
		data, ok := h.readUpload(w, fh, "images")
		if !ok {
			return nil, false
		}
		mimeType := imaging.DetectMimeType(data)
		if !model.IsImageMimeType(mimeType) {
			WriteValidationError(w, map[string]string{
				"images": fmt.Sprintf("File %q is not a supported image type", fh.Filename),
			})
			return nil, false
		}
		if _, _, err := imaging.DecodeBounds(data); err != nil {
			WriteValidationError(w, map[string]string{
				"images": fmt.Sprintf("File %q is not a decodable image", fh.Filename),
			})
			return nil, false
		}
		images = append(images, uploadedImage{data: data})
	}
	return images, true
}

// readUpload reads one multipart file, enforcing the configured size cap
// before any upstream upload. field names the form field for errors.
func (h *Handler) readUpload(w http.ResponseWriter, fh *multipart.FileHeader, field string) ([]byte, bool) {
	f, err := fh.Open()
	if err != nil {
		h.writeInternalError(w, "Failed to read uploaded file", err)
		return nil, false
	}
	defer func() { _ = f.Close() }()

	// Read one byte past the cap so oversized files are detected even if
	// the declared header size is wrong.
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadSize+1))
	if err != nil {
		h.writeInternalError(w, "Failed to read uploaded file", err)
		return nil, false
	}
	if int64(len(data)) > h.cfg.MaxUploadSize {
		WriteValidationError(w, map[string]string{
			field: fmt.Sprintf("File exceeds the maximum size of %d bytes", h.cfg.MaxUploadSize),
		})
		return nil, false
	}
	return data, true
}

// uploadPostImages sends accepted images to the media host and attaches
// them to the post starting at startPos.
func (h *Handler) uploadPostImages(ctx context.Context, postID int64, images []uploadedImage, startPos int64) error {
	if len(images) == 0 {
		return nil
	}
	if h.media == nil {
		return fmt.Errorf("media host is not configured")
	}

	for i, img := range images {
		result, err := h.media.UploadImage(ctx, img.data, "posts")
		if err != nil {
			return fmt.Errorf("uploading image %d: %w", i+1, err)
		}
		err = h.queries.CreatePostImage(ctx, store.CreatePostImageParams{
			PostID:   postID,
			Position: startPos + int64(i),
			URL:      result.SecureURL,
			PublicID: result.PublicID,
		})
		if err != nil {
			return fmt.Errorf("storing image %d: %w", i+1, err)
		}
	}
	return nil
}

// deleteRemoteImages removes a post's images from the media host. Failures
// are logged, never fatal: the rows are going away regardless.
func (h *Handler) deleteRemoteImages(ctx context.Context, postID int64) {
	if h.media == nil {
		return
	}
	images, err := h.queries.ListPostImages(ctx, postID)
	if err != nil {
		slog.Warn("failed to list post images for cleanup", "post_id", postID, "error", err)
		return
	}
	for _, img := range images {
		if img.PublicID == "" {
			continue
		}
		if err := h.media.Delete(ctx, img.PublicID, media.ResourceImage); err != nil {
			slog.Warn("failed to delete remote image", "category", model.EventCategoryMedia,
				"post_id", postID, "public_id", img.PublicID, "error", err)
		}
	}
}

// parsePostID reads the numeric post ID from the "identifier" URL segment.
// The segment shares its name with the public slug-or-id route, so the
// write endpoints parse it strictly as an ID.
func parsePostID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "identifier"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid post ID")
	}
	return id, nil
}

// parsePublished interprets the multipart "published" field.
func parsePublished(value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

// CreatePost handles POST /api/v1/posts. Multipart form: title, content,
// published, and up to four image files under "images".
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	title := r.FormValue("title")
	content := r.FormValue("content")

	validationErrors := make(map[string]string)
	if title == "" {
		validationErrors["title"] = "Title is required"
	}
	if content == "" {
		validationErrors["content"] = "Content is required"
	}
	published, err := parsePublished(r.FormValue("published"))
	if err != nil {
		validationErrors["published"] = "Published must be true or false"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	postSlug := util.Slugify(title)
	if postSlug == "" {
		WriteValidationError(w, map[string]string{"title": "Title must contain at least one letter or digit"})
		return
	}
	exists, err := h.queries.SlugExists(ctx, postSlug)
	if err != nil {
		h.writeInternalError(w, "Failed to check slug", err)
		return
	}
	if exists != 0 {
		WriteValidationError(w, map[string]string{"title": "A post with the same slug already exists"})
		return
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["images"]
	}
	images, ok := h.collectImages(w, files, model.MaxPostImages)
	if !ok {
		return
	}

	apiKey := middleware.GetAPIKey(r)
	if apiKey == nil {
		WriteUnauthorized(w, "API key required")
		return
	}

	now := time.Now()
	post, err := h.queries.CreatePost(ctx, store.CreatePostParams{
		Title:     title,
		Content:   content,
		Slug:      util.NullStringFromValue(postSlug),
		Published: published,
		AuthorID:  apiKey.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		h.writeInternalError(w, "Failed to create post", err)
		return
	}

	if err := h.uploadPostImages(ctx, post.ID, images, 0); err != nil {
		slog.Error("post image upload failed", "category", model.EventCategoryMedia,
			"post_id", post.ID, "error", err)
		h.writeInternalError(w, "Failed to upload images", err)
		return
	}

	slog.Info("post created", "post_id", post.ID, "slug", postSlug, "published", published)

	resp := storePostToResponse(post)
	h.populatePostRelations(ctx, &resp, post.ID)
	WriteCreated(w, resp)
}

// UpdatePost handles PUT /api/v1/posts/{id}. Partial multipart update:
// absent fields keep their stored values. New images append up to the cap,
// or replace the existing set when replace_images=true and files are sent.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parsePostID(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	existing, err := h.queries.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Post not found")
		} else {
			h.writeInternalError(w, "Failed to retrieve post", err)
		}
		return
	}

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}

	params := store.UpdatePostParams{
		ID:        existing.ID,
		Title:     existing.Title,
		Content:   existing.Content,
		Slug:      existing.Slug,
		Published: existing.Published,
		UpdatedAt: time.Now(),
	}

	if title := r.FormValue("title"); title != "" && title != existing.Title {
		newSlug := util.Slugify(title)
		if newSlug == "" {
			WriteValidationError(w, map[string]string{"title": "Title must contain at least one letter or digit"})
			return
		}
		exists, err := h.queries.SlugExistsExcluding(ctx, store.SlugExistsExcludingParams{
			Slug: newSlug,
			ID:   existing.ID,
		})
		if err != nil {
			h.writeInternalError(w, "Failed to check slug", err)
			return
		}
		if exists != 0 {
			WriteValidationError(w, map[string]string{"title": "A post with the same slug already exists"})
			return
		}
		params.Title = title
		params.Slug = util.NullStringFromValue(newSlug)
	}
	if content := r.FormValue("content"); content != "" {
		params.Content = content
	}
	if pubStr := r.FormValue("published"); pubStr != "" {
		published, err := parsePublished(pubStr)
		if err != nil {
			WriteValidationError(w, map[string]string{"published": "Published must be true or false"})
			return
		}
		params.Published = published
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["images"]
	}

	// The replace flag only takes effect when new files arrive. Without
	// them the existing image set stays untouched.
	replaceImages := r.FormValue("replace_images") == "true" && len(files) > 0

	currentImages, err := h.queries.ListPostImages(ctx, existing.ID)
	if err != nil {
		h.writeInternalError(w, "Failed to list post images", err)
		return
	}

	room := model.MaxPostImages - len(currentImages)
	startPos := int64(len(currentImages))
	if replaceImages {
		room = model.MaxPostImages
		startPos = 0
	}

	images, ok := h.collectImages(w, files, room)
	if !ok {
		return
	}

	if replaceImages {
		h.deleteRemoteImages(ctx, existing.ID)
		if err := h.queries.DeletePostImages(ctx, existing.ID); err != nil {
			h.writeInternalError(w, "Failed to clear post images", err)
			return
		}
	}

	post, err := h.queries.UpdatePost(ctx, params)
	if err != nil {
		h.writeInternalError(w, "Failed to update post", err)
		return
	}

	if err := h.uploadPostImages(ctx, post.ID, images, startPos); err != nil {
		slog.Error("post image upload failed", "category", model.EventCategoryMedia,
			"post_id", post.ID, "error", err)
		h.writeInternalError(w, "Failed to upload images", err)
		return
	}

	resp := storePostToResponse(post)
	h.populatePostRelations(ctx, &resp, post.ID)
	WriteSuccess(w, resp, nil)
}

// DeletePost handles DELETE /api/v1/posts/{id}. Remote images are removed
// best effort before the row goes away.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parsePostID(r)
	if err != nil {
		WriteBadRequest(w, "Invalid post ID", nil)
		return
	}

	if _, err := h.queries.GetPostByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Post not found")
		} else {
			h.writeInternalError(w, "Failed to retrieve post", err)
		}
		return
	}

	h.deleteRemoteImages(ctx, id)

	if err := h.queries.DeletePost(ctx, id); err != nil {
		h.writeInternalError(w, "Failed to delete post", err)
		return
	}

	slog.Info("post deleted", "post_id", id)
	WriteSuccess(w, map[string]string{"message": "Post deleted"}, nil)
}
