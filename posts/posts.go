/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package posts stores the blog posts exposed by the demo schema.
package posts

import (
	"context"

	"github.com/pkg/errors"
)

// Post is a stored post.
type Post struct {
	ID        int32
	Title     string
	Body      string
	Published bool
}

// NewPost carries the fields of a post to be created. New posts are unpublished.
type NewPost struct {
	Title string
	Body  string
}

// ErrNotFound is returned when no post has the requested id.
var ErrNotFound = errors.New("post not found")

// Store provides access to posts. Implementations must be safe for concurrent use: a single Store
// is shared by every request.
type Store interface {
	// Published returns at most limit published posts ordered by id.
	Published(ctx context.Context, limit int) ([]Post, error)

	// Create stores a new unpublished post and returns it with its assigned id.
	Create(ctx context.Context, post NewPost) (Post, error)

	// Publish marks the post with the given id as published and returns it.
	Publish(ctx context.Context, id int32) (Post, error)
}
