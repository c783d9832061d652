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

// Package schema defines the GraphQL schema served by apollo: a Query root and a Mutation root
// over the posts store, resolved with the per-request Context.
package schema

import (
	graphql "github.com/graph-gophers/graphql-go"
)

// SDL is the schema definition.
const SDL = `
schema {
  query: Query
  mutation: Mutation
}

type Query {
  "Hello there!!"
  hello: String!

  "Echo your message"
  echo(msg: String!): String!

  "Up to five published posts"
  getPosts: [Post!]!

  "Identifier of the context this request was executed with"
  requestId: ID!
}

type Mutation {
  createPost(newPost: NewPost!): Post!
  publishPost(id: Int!): Post!
}

type Post {
  id: Int!
  title: String!
  body: String!
  published: Boolean!
}

input NewPost {
  title: String!
  body: String!
}
`

// Resolver is the root resolver. The Query and Mutation roots are separate types; graph-gophers
// resolves both operation types through the promoted methods.
type Resolver struct {
	*QueryResolver
	*MutationResolver
}

// New parses SDL against a fresh Resolver. The returned schema is immutable and safe to share
// between goroutines.
func New(opts ...graphql.SchemaOpt) (*graphql.Schema, error) {
	return graphql.ParseSchema(SDL, &Resolver{
		QueryResolver:    &QueryResolver{},
		MutationResolver: &MutationResolver{},
	}, opts...)
}

// MustNew is like New but panics if the schema cannot be built.
func MustNew(opts ...graphql.SchemaOpt) *graphql.Schema {
	schema, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return schema
}
