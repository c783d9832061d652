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

package schema

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/botobag/apollo/gateway"
	"github.com/botobag/apollo/posts"
)

// Context is the per-request state resolvers work with. A Context is created for exactly one
// request and dropped when its response is written.
type Context struct {
	// RequestID uniquely identifies the request.
	RequestID string

	// RemoteAddr is the network address of the client.
	RemoteAddr string

	// Posts is the store handle. Stores are pools shared by all requests; a connection is only
	// acquired for the duration of each store call.
	Posts posts.Store
}

type contextKey struct{}

// WithContext returns a copy of parent carrying c.
func WithContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey{}, c)
}

var errMissingContext = errors.New("request context is missing")

// ContextFrom returns the Context carried by ctx.
func ContextFrom(ctx context.Context) (*Context, error) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || c == nil {
		return nil, errMissingContext
	}
	return c, nil
}

// ContextFactory builds a Context for every request. It only holds read-only references, so a
// single ContextFactory can be used by any number of concurrent requests.
type ContextFactory struct {
	// Posts is handed to every Context.
	Posts posts.Store

	// Logger is attached to the request context with the request id.
	Logger zerolog.Logger
}

var _ gateway.ContextFactory = (*ContextFactory)(nil)

var errStoreUnavailable = errors.New("posts store is not available")

// NewContext implements gateway.ContextFactory.
func (f *ContextFactory) NewContext(r *http.Request) (context.Context, error) {
	if f.Posts == nil {
		return nil, errStoreUnavailable
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(err, "generate request id")
	}

	c := &Context{
		RequestID:  id.String(),
		RemoteAddr: r.RemoteAddr,
		Posts:      f.Posts,
	}

	logger := f.Logger.With().Str("request_id", c.RequestID).Logger()
	return WithContext(logger.WithContext(r.Context()), c), nil
}
