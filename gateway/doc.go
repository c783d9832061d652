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

// Package gateway serves GraphQL over HTTP on a single endpoint.
//
// A Router classifies each request by method and path only. GET / renders the GraphQL
// Playground (see Playground), POST on the endpoint (DefaultEndpoint unless configured) goes to
// Handler and every other request gets an empty 404.
//
// Handler processes one operation per request in a fixed sequence:
//
//  1. the request body is drained into one buffer (ParseHTTPRequest);
//  2. the buffer is decoded as a {"query", "operationName", "variables"} envelope;
//  3. the ContextFactory builds a fresh context for the request;
//  4. LLHandler applies RequestMiddleware and executes the operation against the schema;
//  5. the ResultPresenter writes the result as pretty-printed JSON with status 200.
//
// A body stream that fails while being read aborts the connection without a response. Decode
// failures and context factory failures (including panics) are written by the ErrorPresenter as a
// 500 response carrying {"status": 500, "description": ...}. Errors raised while resolving fields
// are GraphQL data and travel inside the 200 response.
//
// Server binds a Router to a socket and shuts it down when its context is done.
package gateway
