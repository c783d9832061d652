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

package gateway

import (
	"net/http"
)

// Well-known paths of the gateway.
const (
	// PlaygroundPath serves the interactive IDE.
	PlaygroundPath = "/"

	// DefaultEndpoint is where GraphQL operations are posted to.
	DefaultEndpoint = "/graphql"
)

// Route identifies one of the outcomes a Router dispatches a request to.
type Route int

// Enumeration of Route
const (
	RouteNotFound Route = iota
	RoutePlayground
	RouteGraphQL
)

// String returns the route name used in logs and metric labels.
func (route Route) String() string {
	switch route {
	case RoutePlayground:
		return "playground"
	case RouteGraphQL:
		return "graphql"
	}
	return "not_found"
}

// Router dispatches requests on method and path only: GET on PlaygroundPath renders the
// playground, POST on the endpoint goes to the GraphQL handler and everything else is answered
// with an empty 404. It has no other side effects.
type Router struct {
	endpoint string

	// Rendered once; the page only depends on endpoint.
	playground []byte

	graphql http.Handler
}

var _ http.Handler = (*Router)(nil)

// NewRouter creates a Router that sends GraphQL requests posted to endpoint to graphqlHandler. An
// empty endpoint means DefaultEndpoint.
func NewRouter(endpoint string, graphqlHandler http.Handler) *Router {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Router{
		endpoint:   endpoint,
		playground: []byte(Playground(endpoint)),
		graphql:    graphqlHandler,
	}
}

// Endpoint returns the path GraphQL operations are served on.
func (router *Router) Endpoint() string {
	return router.endpoint
}

// Route classifies a request by its method and path.
func (router *Router) Route(method, path string) Route {
	switch {
	case method == http.MethodGet && path == PlaygroundPath:
		return RoutePlayground
	case method == http.MethodPost && path == router.endpoint:
		return RouteGraphQL
	}
	return RouteNotFound
}

func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch router.Route(r.Method, r.URL.Path) {
	case RoutePlayground:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(router.playground)

	case RouteGraphQL:
		router.graphql.ServeHTTP(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
