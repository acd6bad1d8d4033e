// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// Post is a blog post row.
type Post struct {
	ID        int64
	Title     string
	Content   string
	Slug      sql.NullString
	Published bool
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostImage is an image attached to a post, ordered by Position.
type PostImage struct {
	ID       int64
	PostID   int64
	Position int64
	URL      string
	PublicID string
}

const postColumns = `id, title, content, slug, published, author_id, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Slug, &p.Published, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (q *Queries) scanPosts(rows *sql.Rows) ([]Post, error) {
	defer func() { _ = rows.Close() }()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CreatePostParams holds the fields for creating a post.
type CreatePostParams struct {
	Title     string
	Content   string
	Slug      sql.NullString
	Published bool
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePost inserts a post and returns the stored row.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO posts (title, content, slug, published, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+postColumns,
		arg.Title, arg.Content, arg.Slug, arg.Published, arg.AuthorID, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanPost(row)
}

// GetPostByID fetches a post by its database id.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// GetPostBySlug fetches a post by exact slug match.
func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	return scanPost(row)
}

// ListPublishedPosts returns published posts, newest first.
func (q *Queries) ListPublishedPosts(ctx context.Context) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE published = 1 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return q.scanPosts(rows)
}

// ListPosts returns all posts regardless of publication state, newest first.
func (q *Queries) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return q.scanPosts(rows)
}

// ListPostsMissingSlug returns posts whose slug column is NULL or empty.
func (q *Queries) ListPostsMissingSlug(ctx context.Context) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug IS NULL OR slug = '' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return q.scanPosts(rows)
}

// UpdatePostParams holds the full set of mutable post fields.
type UpdatePostParams struct {
	ID        int64
	Title     string
	Content   string
	Slug      sql.NullString
	Published bool
	UpdatedAt time.Time
}

// UpdatePost updates a post and returns the post-update row.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE posts
		 SET title = ?, content = ?, slug = ?, published = ?, updated_at = ?
		 WHERE id = ?
		 RETURNING `+postColumns,
		arg.Title, arg.Content, arg.Slug, arg.Published, arg.UpdatedAt, arg.ID,
	)
	return scanPost(row)
}

// UpdatePostSlugParams holds the fields for a slug-only update.
type UpdatePostSlugParams struct {
	ID        int64
	Slug      sql.NullString
	UpdatedAt time.Time
}

// UpdatePostSlug sets only the slug column.
func (q *Queries) UpdatePostSlug(ctx context.Context, arg UpdatePostSlugParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE posts SET slug = ?, updated_at = ? WHERE id = ?`,
		arg.Slug, arg.UpdatedAt, arg.ID)
	return err
}

// DeletePost removes a post. Attached images cascade.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return err
}

// SlugExists returns the number of posts carrying the given slug (0 or 1).
func (q *Queries) SlugExists(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE slug = ?`, slug).Scan(&count)
	return count, err
}

// SlugExistsExcludingParams holds the arguments for SlugExistsExcluding.
type SlugExistsExcludingParams struct {
	Slug string
	ID   int64
}

// SlugExistsExcluding counts posts other than ID carrying the given slug.
func (q *Queries) SlugExistsExcluding(ctx context.Context, arg SlugExistsExcludingParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?`, arg.Slug, arg.ID).Scan(&count)
	return count, err
}

// GetPostAuthor fetches the author row for a post.
func (q *Queries) GetPostAuthor(ctx context.Context, postID int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT u.`+userColumnsJoined+`
		 FROM users u JOIN posts p ON p.author_id = u.id
		 WHERE p.id = ?`, postID)
	return scanUser(row)
}

// CreatePostImageParams holds the fields for attaching an image to a post.
type CreatePostImageParams struct {
	PostID   int64
	Position int64
	URL      string
	PublicID string
}

// CreatePostImage attaches an image to a post.
func (q *Queries) CreatePostImage(ctx context.Context, arg CreatePostImageParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO post_images (post_id, position, url, public_id) VALUES (?, ?, ?, ?)`,
		arg.PostID, arg.Position, arg.URL, arg.PublicID)
	return err
}

// ListPostImages returns a post's images in display order.
func (q *Queries) ListPostImages(ctx context.Context, postID int64) ([]PostImage, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, post_id, position, url, public_id FROM post_images
		 WHERE post_id = ? ORDER BY position`, postID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var images []PostImage
	for rows.Next() {
		var img PostImage
		if err := rows.Scan(&img.ID, &img.PostID, &img.Position, &img.URL, &img.PublicID); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// DeletePostImages removes all images attached to a post.
func (q *Queries) DeletePostImages(ctx context.Context, postID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM post_images WHERE post_id = ?`, postID)
	return err
}
