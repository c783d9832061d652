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

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/botobag/apollo/posts"
)

// publishedPostsLimit caps the number of posts returned by getPosts.
const publishedPostsLimit = 5

// QueryResolver resolves fields of the Query root.
type QueryResolver struct{}

// Hello resolves Query.hello.
func (*QueryResolver) Hello() string {
	return "Hello World"
}

// Echo resolves Query.echo.
func (*QueryResolver) Echo(args struct{ Msg string }) string {
	return args.Msg
}

// GetPosts resolves Query.getPosts.
func (*QueryResolver) GetPosts(ctx context.Context) ([]*PostResolver, error) {
	c, err := ContextFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, err := c.Posts.Published(ctx, publishedPostsLimit)
	if err != nil {
		return nil, err
	}

	result := make([]*PostResolver, len(list))
	for i := range list {
		result[i] = &PostResolver{post: list[i]}
	}
	return result, nil
}

// RequestID resolves Query.requestId.
func (*QueryResolver) RequestID(ctx context.Context) (graphql.ID, error) {
	c, err := ContextFrom(ctx)
	if err != nil {
		return "", err
	}
	return graphql.ID(c.RequestID), nil
}

// MutationResolver resolves fields of the Mutation root.
type MutationResolver struct{}

// NewPostInput is the NewPost input object.
type NewPostInput struct {
	Title string
	Body  string
}

// CreatePost resolves Mutation.createPost.
func (*MutationResolver) CreatePost(ctx context.Context, args struct{ NewPost NewPostInput }) (*PostResolver, error) {
	c, err := ContextFrom(ctx)
	if err != nil {
		return nil, err
	}

	post, err := c.Posts.Create(ctx, posts.NewPost{
		Title: args.NewPost.Title,
		Body:  args.NewPost.Body,
	})
	if err != nil {
		return nil, err
	}
	return &PostResolver{post: post}, nil
}

// PublishPost resolves Mutation.publishPost.
func (*MutationResolver) PublishPost(ctx context.Context, args struct{ ID int32 }) (*PostResolver, error) {
	c, err := ContextFrom(ctx)
	if err != nil {
		return nil, err
	}

	post, err := c.Posts.Publish(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	return &PostResolver{post: post}, nil
}

// PostResolver resolves fields of Post.
type PostResolver struct {
	post posts.Post
}

// ID resolves Post.id.
func (r *PostResolver) ID() int32 { return r.post.ID }

// Title resolves Post.title.
func (r *PostResolver) Title() string { return r.post.Title }

// Body resolves Post.body.
func (r *PostResolver) Body() string { return r.post.Body }

// Published resolves Post.published.
func (r *PostResolver) Published() bool { return r.post.Published }
