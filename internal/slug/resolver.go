// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

// Package slug resolves the public post identifier, which may be either a
// URL slug or a numeric ID kept for links that predate slugs.
package slug

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/util"
)

// strategy is a single lookup attempt. A sql.ErrNoRows result means "try
// the next strategy"; any other error aborts resolution.
type strategy func(ctx context.Context, identifier string) (store.Post, error)

// Resolver looks up posts by their public identifier.
type Resolver struct {
	queries *store.Queries
}

// NewResolver creates a post resolver over the given store.
func NewResolver(q *store.Queries) *Resolver {
	return &Resolver{queries: q}
}

// IsIDShaped reports whether the identifier looks like a numeric post ID
// rather than a slug. Slugs never consist solely of digits.
func IsIDShaped(identifier string) bool {
	if identifier == "" {
		return false
	}
	for _, c := range identifier {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Resolve finds a post by identifier, trying each applicable strategy in
// order: stored slug for slug-shaped identifiers, primary key for ID-shaped
// ones, then a scan of published posts whose derived slug matches (rows
// saved before slugs were stored). When includeUnpublished is false an
// unpublished match is reported as sql.ErrNoRows, indistinguishable from a
// missing post.
func (r *Resolver) Resolve(ctx context.Context, identifier string, includeUnpublished bool) (store.Post, error) {
	var strategies []strategy
	if IsIDShaped(identifier) {
		strategies = []strategy{r.byID}
	} else {
		strategies = []strategy{r.byStoredSlug, r.byDerivedSlug}
	}

	for _, lookup := range strategies {
		post, err := lookup(ctx, identifier)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return store.Post{}, err
		}
		if !post.Published && !includeUnpublished {
			return store.Post{}, sql.ErrNoRows
		}
		return post, nil
	}
	return store.Post{}, sql.ErrNoRows
}

func (r *Resolver) byID(ctx context.Context, identifier string) (store.Post, error) {
	id, err := strconv.ParseInt(identifier, 10, 64)
	if err != nil {
		return store.Post{}, sql.ErrNoRows
	}
	return r.queries.GetPostByID(ctx, id)
}

func (r *Resolver) byStoredSlug(ctx context.Context, identifier string) (store.Post, error) {
	return r.queries.GetPostBySlug(ctx, identifier)
}

// byDerivedSlug walks published posts and matches the identifier against
// the slug derived from each title. This covers rows whose slug column was
// never backfilled.
func (r *Resolver) byDerivedSlug(ctx context.Context, identifier string) (store.Post, error) {
	posts, err := r.queries.ListPublishedPosts(ctx)
	if err != nil {
		return store.Post{}, err
	}
	for _, p := range posts {
		if p.Slug.Valid {
			continue // stored slug already checked by byStoredSlug
		}
		if util.Slugify(p.Title) == identifier {
			return p, nil
		}
	}
	return store.Post{}, sql.ErrNoRows
}
