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
	"context"
	"fmt"

	graphql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/pkg/errors"
)

// LLHandler serves GraphQL requests against a schema in a long-running process. It knows nothing
// about HTTP and is the building block of Handler.
type LLHandler struct {
	// Schema served by this handler
	schema *graphql.Schema

	// Middlewares to be applied before executing a Request
	middlewares []RequestMiddleware
}

// LLConfig contains configuration to set up a LLHandler.
type LLConfig struct {
	// Schema to be working on
	Schema *graphql.Schema

	// Middlewares to be applied before executing a Request
	Middlewares []RequestMiddleware
}

var errMissingSchema = errors.New("apollo/gateway: must specify a schema")

// NewLLHandler creates a LLHandler from given configuration.
func NewLLHandler(config *LLConfig) (*LLHandler, error) {
	if config.Schema == nil {
		return nil, errMissingSchema
	}

	return &LLHandler{
		schema:      config.Schema,
		middlewares: config.Middlewares,
	}, nil
}

// Schema returns handler.schema.
func (handler *LLHandler) Schema() *graphql.Schema {
	return handler.schema
}

// Request contains parameter required by Serve.
type Request struct {
	// Ctx is the per-request context built by the ContextFactory. Resolvers receive it.
	Ctx           context.Context
	Query         string
	OperationName string
	Variables     map[string]interface{}
}

// RequestMiddleware applies changes on Request before its operation gets executed.
type RequestMiddleware interface {
	// Apply modifies request. next specifies the next action to do after applying the middleware.
	Apply(request *Request, next *RequestMiddlewareNext)
}

// The RequestMiddlewareFunc type is an adapter to allow the use of ordinary functions as a
// RequestMiddleware.
type RequestMiddlewareFunc func(request *Request, next *RequestMiddlewareNext)

var _ RequestMiddleware = (RequestMiddlewareFunc)(nil)

// Apply implements RequestMiddleware. It calls f(request, next).
func (f RequestMiddlewareFunc) Apply(request *Request, next *RequestMiddlewareNext) {
	f(request, next)
}

// RequestMiddlewareNext is provided to a RequestMiddleware to specify the next action to do.
type RequestMiddlewareNext struct {
	middlewares []RequestMiddleware

	// The index of middleware to be applied when Next is called.
	nextIndex int

	// The result after applying middlewares
	result interface{} /* Should be either *Request or *graphql.Response */
}

// Next continues applying the next middleware in the chain.
func (next *RequestMiddlewareNext) Next(request *Request) {
	switch next.result.(type) {
	case *Request:
		panic("calling Next multiple times is not allowed")
	case *graphql.Response:
		panic("cannot call Next after one of NextError or NextResult is called")
	case nil:
		/* Apply next middleware or return */
	default:
		panic(fmt.Errorf("unexpected result type: %T", next.result))
	}

	middlewares := next.middlewares
	if next.nextIndex >= len(middlewares) {
		// All middlewares has been applied.
		next.result = request
		return
	}

	nextMiddleware := middlewares[next.nextIndex]
	next.nextIndex++
	nextMiddleware.Apply(request, next)

	if next.result == nil {
		panic(fmt.Errorf(`"%T" must end with one of Next, NextError or NextResult on return`,
			nextMiddleware))
	}
}

// NextError stops applying rest middlewares in the chain and sends a result that includes given
// error.
func (next *RequestMiddlewareNext) NextError(err *gqlerrors.QueryError) {
	next.NextResult(&graphql.Response{
		Errors: []*gqlerrors.QueryError{err},
	})
}

// NextResult stops applying rest middlewares in the chain and sends the result.
func (next *RequestMiddlewareNext) NextResult(result *graphql.Response) {
	switch next.result.(type) {
	case *Request:
		panic("calling NextError or NextResult is not allowed on returning from Next")

	case *graphql.Response:
		panic("calling NextError or NextResult multiple times is not allowed")

	case nil:
		next.result = result

	default:
		panic(fmt.Errorf("unexpected result type: %T", next.result))
	}
}

// Serve executes the operation with given context and parameters. The given request object must not
// be nil. Field errors produced by resolvers are part of the returned response.
func (handler *LLHandler) Serve(request *Request) *graphql.Response {
	if middlewares := handler.middlewares; len(middlewares) > 0 {
		next := RequestMiddlewareNext{
			middlewares: middlewares,
		}
		next.Next(request)

		switch result := next.result.(type) {
		case *Request:
			request = result

		case *graphql.Response:
			return result

		default:
			panic(fmt.Errorf("unexpected result type: %T", next.result))
		}
	}

	return handler.schema.Exec(request.Ctx, request.Query, request.OperationName, request.Variables)
}
