// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/mudbeaver/site-api/internal/model"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/testutil"
)

func newQueries(t *testing.T) *store.Queries {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	return store.New(db)
}

func createPost(t *testing.T, q *store.Queries, title, slug string, published bool) store.Post {
	t.Helper()
	authorID := testutil.CreateTestUser(t, q)
	now := time.Now()
	post, err := q.CreatePost(context.Background(), store.CreatePostParams{
		Title:     title,
		Content:   "body",
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

func TestPostCRUD(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	post := createPost(t, q, "Earthen Floors", "earthen-floors", true)
	if post.ID == 0 {
		t.Fatal("created post has no ID")
	}

	got, err := q.GetPostBySlug(ctx, "earthen-floors")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	if got.ID != post.ID {
		t.Errorf("GetPostBySlug ID = %d, want %d", got.ID, post.ID)
	}

	updated, err := q.UpdatePost(ctx, store.UpdatePostParams{
		ID:        post.ID,
		Title:     "Earthen Floors Revisited",
		Content:   "new body",
		Slug:      post.Slug,
		Published: false,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if updated.Title != "Earthen Floors Revisited" || updated.Published {
		t.Errorf("UpdatePost returned %+v", updated)
	}

	if err := q.DeletePost(ctx, post.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := q.GetPostByID(ctx, post.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPostByID after delete: err = %v, want sql.ErrNoRows", err)
	}
}

func TestListPublishedPostsOrdering(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	createPost(t, q, "First", "first", true)
	createPost(t, q, "Hidden", "hidden", false)
	createPost(t, q, "Second", "second", true)

	posts, err := q.ListPublishedPosts(ctx)
	if err != nil {
		t.Fatalf("ListPublishedPosts: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].Title != "Second" {
		t.Errorf("first listed = %q, want the newest", posts[0].Title)
	}
}

func TestSlugExists(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	post := createPost(t, q, "Taken", "taken", true)

	n, err := q.SlugExists(ctx, "taken")
	if err != nil {
		t.Fatalf("SlugExists: %v", err)
	}
	if n == 0 {
		t.Error("SlugExists(taken) = 0, want nonzero")
	}

	n, err = q.SlugExistsExcluding(ctx, store.SlugExistsExcludingParams{Slug: "taken", ID: post.ID})
	if err != nil {
		t.Fatalf("SlugExistsExcluding: %v", err)
	}
	if n != 0 {
		t.Error("SlugExistsExcluding should ignore the post's own slug")
	}
}

func TestPostImages(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	post := createPost(t, q, "Gallery", "gallery", true)
	for i := int64(0); i < 3; i++ {
		err := q.CreatePostImage(ctx, store.CreatePostImageParams{
			PostID:   post.ID,
			Position: i,
			URL:      "https://media.example.com/img",
			PublicID: "img",
		})
		if err != nil {
			t.Fatalf("CreatePostImage: %v", err)
		}
	}

	images, err := q.ListPostImages(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListPostImages: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	for i, img := range images {
		if img.Position != int64(i) {
			t.Errorf("images[%d].Position = %d, want %d", i, img.Position, i)
		}
	}

	if err := q.DeletePostImages(ctx, post.ID); err != nil {
		t.Fatalf("DeletePostImages: %v", err)
	}
	images, err = q.ListPostImages(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListPostImages: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("got %d images after delete, want 0", len(images))
	}
}

func TestGetPostAuthor(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	post := createPost(t, q, "Authored", "authored", true)
	author, err := q.GetPostAuthor(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPostAuthor: %v", err)
	}
	if author.ID != post.AuthorID {
		t.Errorf("author ID = %d, want %d", author.ID, post.AuthorID)
	}
	if author.Email == "" {
		t.Error("author email is empty")
	}
}

func TestListPostsMissingSlug(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	legacy := createPost(t, q, "Legacy Post", "", true)
	createPost(t, q, "Modern Post", "modern-post", true)

	missing, err := q.ListPostsMissingSlug(ctx)
	if err != nil {
		t.Fatalf("ListPostsMissingSlug: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != legacy.ID {
		t.Fatalf("ListPostsMissingSlug = %+v, want just the legacy post", missing)
	}

	err = q.UpdatePostSlug(ctx, store.UpdatePostSlugParams{
		ID:        legacy.ID,
		Slug:      sql.NullString{String: "legacy-post", Valid: true},
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("UpdatePostSlug: %v", err)
	}

	missing, err = q.ListPostsMissingSlug(ctx)
	if err != nil {
		t.Fatalf("ListPostsMissingSlug: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("got %d posts missing slugs after backfill, want 0", len(missing))
	}
}

func TestApplicationStatusUpdate(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	now := time.Now()
	app, err := q.CreateApplication(ctx, store.CreateApplicationParams{
		Name:                 "Asha Rai",
		Email:                "asha@example.com",
		Phone:                "+91 98765 43210",
		Address:              "12 Riverside Lane",
		City:                 "Gangtok",
		Region:               "Sikkim",
		ZipCode:              "737101",
		Institution:          "SIT",
		PaymentScreenshotURL: "https://media.example.com/receipt",
		Status:               model.ApplicationStatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	if app.Status != model.ApplicationStatusPending {
		t.Errorf("status = %q, want pending", app.Status)
	}

	updated, err := q.UpdateApplicationStatus(ctx, store.UpdateApplicationStatusParams{
		ID:        app.ID,
		Status:    model.ApplicationStatusApproved,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("UpdateApplicationStatus: %v", err)
	}
	if updated.Status != model.ApplicationStatusApproved {
		t.Errorf("status = %q, want approved", updated.Status)
	}

	_, err = q.UpdateApplicationStatus(ctx, store.UpdateApplicationStatusParams{
		ID:        99999,
		Status:    model.ApplicationStatusRejected,
		UpdatedAt: time.Now(),
	})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("unknown ID: err = %v, want sql.ErrNoRows", err)
	}
}

func TestContactMessageRoundTrip(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	now := time.Now()
	msg, err := q.CreateContactMessage(ctx, store.CreateContactMessageParams{
		Name:      "Pema",
		Email:     "pema@example.com",
		Subject:   "Hello",
		Message:   "Hi there",
		Status:    model.ContactStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateContactMessage: %v", err)
	}

	got, err := q.GetContactMessageByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetContactMessageByID: %v", err)
	}
	if got.Subject != "Hello" || got.Status != model.ContactStatusNew {
		t.Errorf("round trip mismatch: %+v", got)
	}

	msgs, err := q.ListContactMessages(ctx)
	if err != nil {
		t.Fatalf("ListContactMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestRequirementNullColumns(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	now := time.Now()
	rq, err := q.CreateRequirement(ctx, store.CreateRequirementParams{
		Username:  "Tashi",
		Email:     "tashi@example.com",
		Phone:     "+91 90000 11111",
		Status:    model.RequirementStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRequirement: %v", err)
	}
	if rq.DrawingsURL.Valid {
		t.Error("DrawingsURL should be NULL when no file was supplied")
	}

	got, err := q.GetRequirementByID(ctx, rq.ID)
	if err != nil {
		t.Fatalf("GetRequirementByID: %v", err)
	}
	if got.Category.Valid || got.Budget.Valid {
		t.Errorf("optional columns unexpectedly set: %+v", got)
	}
}

func TestSeedIdempotent(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	if err := store.Seed(ctx, db); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := store.Seed(ctx, db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	q := store.New(db)
	n, err := q.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 1 {
		t.Errorf("CountUsers = %d after double seed, want 1", n)
	}
}

func TestWithTxRollback(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	q := store.New(db)
	authorID := testutil.CreateTestUser(t, q)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	now := time.Now()
	post, err := q.WithTx(tx).CreatePost(ctx, store.CreatePostParams{
		Title:     "Transient Post",
		Content:   "body",
		Slug:      sql.NullString{String: "transient-post", Valid: true},
		Published: true,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePost in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if _, err := q.GetPostByID(ctx, post.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPostByID after rollback err = %v, want sql.ErrNoRows", err)
	}
}
