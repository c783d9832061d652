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

package posts

import (
	"context"
	"sync"
)

// MemoryStore is a Store that keeps posts in memory. The zero value is ready to use.
type MemoryStore struct {
	mu     sync.RWMutex
	posts  []Post
	lastID int32
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Published implements Store.
func (s *MemoryStore) Published(ctx context.Context, limit int) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []Post{}
	for _, post := range s.posts {
		if len(result) >= limit {
			break
		}
		if post.Published {
			result = append(result, post)
		}
	}
	return result, nil
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, post NewPost) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	created := Post{
		ID:    s.lastID,
		Title: post.Title,
		Body:  post.Body,
	}
	s.posts = append(s.posts, created)
	return created, nil
}

// Publish implements Store.
func (s *MemoryStore) Publish(ctx context.Context, id int32) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Published = true
			return s.posts[i], nil
		}
	}
	return Post{}, ErrNotFound
}
