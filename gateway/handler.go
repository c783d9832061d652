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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ContextFactory builds the per-request context that resolvers execute with. It is called once per
// request, possibly from many goroutines at the same time, and must not share mutable state between
// the contexts it returns.
type ContextFactory interface {
	// NewContext derives a context for executing the GraphQL operation carried by r.
	NewContext(r *http.Request) (context.Context, error)
}

// The ContextFactoryFunc type is an adapter to allow the use of ordinary functions as a
// ContextFactory.
type ContextFactoryFunc func(r *http.Request) (context.Context, error)

var _ ContextFactory = (ContextFactoryFunc)(nil)

// NewContext implements ContextFactory. It calls f(r).
func (f ContextFactoryFunc) NewContext(r *http.Request) (context.Context, error) {
	return f(r)
}

// Handler implements a http.Handler which is based on LLHandler to serve GraphQL queries from
// HTTP requests. Each request goes through body aggregation, envelope decoding, context
// construction, execution and encoding, in that order, and receives exactly one response unless
// its body stream breaks.
type Handler struct {
	*LLHandler

	config handlerConfig

	contextFactory ContextFactory

	// The handler for presenting errors occurred before execution; It doesn't handle errors
	// occurred during execution (in which ResultPresenter is responsible for.)
	errorPresenter  ErrorPresenter
	resultPresenter ResultPresenter

	logger zerolog.Logger
}

var _ http.Handler = (*Handler)(nil)

// handlerConfig contains configuration for a Handler.
type handlerConfig struct {
	LLConfig

	parseOptions ParseHTTPRequestOptions

	errorPresenter  ErrorPresenter
	resultPresenter ResultPresenter

	logger *zerolog.Logger
}

// Option configures Handler.
type Option func(config *handlerConfig)

// MaxBodySize sets the maximum number of bytes to be read from request body.
func MaxBodySize(size uint) Option {
	return func(config *handlerConfig) {
		config.parseOptions.MaxBodySize = size
	}
}

// Middlewares appends middlewares to be applied before executing each request.
func Middlewares(middlewares ...RequestMiddleware) Option {
	return func(config *handlerConfig) {
		config.Middlewares = append(config.Middlewares, middlewares...)
	}
}

// OverrideErrorPresenter overrides DefaultErrorPresenter.
func OverrideErrorPresenter(errorPresenter ErrorPresenter) Option {
	return func(config *handlerConfig) {
		config.errorPresenter = errorPresenter
	}
}

// OverrideResultPresenter overrides DefaultResultPresenter.
func OverrideResultPresenter(resultPresenter ResultPresenter) Option {
	return func(config *handlerConfig) {
		config.resultPresenter = resultPresenter
	}
}

// Logger sets the logger for faults that end a request early. Defaults to a disabled logger.
func Logger(logger zerolog.Logger) Option {
	return func(config *handlerConfig) {
		config.logger = &logger
	}
}

var errMissingContextFactory = errors.New("apollo/gateway: must specify a context factory")

// New creates a Handler that serves queries against the schema with contexts built by
// contextFactory.
func New(schema *graphql.Schema, contextFactory ContextFactory, opts ...Option) (*Handler, error) {
	if contextFactory == nil {
		return nil, errMissingContextFactory
	}

	config := handlerConfig{
		LLConfig: LLConfig{
			Schema: schema,
		},
		parseOptions: ParseHTTPRequestOptions{
			MaxBodySize: DefaultMaxBodySize,
		},
	}
	for _, opt := range opts {
		opt(&config)
	}

	baseHandler, err := NewLLHandler(&config.LLConfig)
	if err != nil {
		return nil, err
	}

	errorPresenter := config.errorPresenter
	if errorPresenter == nil {
		errorPresenter = DefaultErrorPresenter{}
	}

	resultPresenter := config.resultPresenter
	if resultPresenter == nil {
		resultPresenter = DefaultResultPresenter{}
	}

	logger := zerolog.Nop()
	if config.logger != nil {
		logger = *config.logger
	}

	return &Handler{
		LLHandler:       baseHandler,
		config:          config,
		contextFactory:  contextFactory,
		errorPresenter:  errorPresenter,
		resultPresenter: resultPresenter,
		logger:          logger,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parsedReq, err := ParseHTTPRequest(r, &h.config.parseOptions)
	if err != nil {
		if _, ok := err.(*TransportError); ok {
			// The stream is broken so there is nobody to render a response to. ErrAbortHandler makes
			// net/http drop the connection without logging a stack trace.
			h.logger.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("aborting request")
			panic(http.ErrAbortHandler)
		}
		h.errorPresenter.Write(w, err)
		return
	}

	ctx, err := h.newContext(r)
	if err != nil {
		h.logger.Error().Err(err).Str("remote", r.RemoteAddr).Msg("context factory failed")
		h.errorPresenter.Write(w, err)
		return
	}

	req := &Request{
		Ctx:           ctx,
		Query:         parsedReq.Query,
		OperationName: parsedReq.OperationName,
		Variables:     parsedReq.Variables,
	}

	result := h.Serve(req)

	h.resultPresenter.Write(w, r, req, result)
}

var errNilContext = errors.New("context factory returned a nil context")

// newContext calls the ContextFactory, turning both returned errors and panics into *ContextError.
func (h *Handler) newContext(r *http.Request) (ctx context.Context, err error) {
	defer func() {
		if p := recover(); p != nil {
			ctx = nil
			err = &ContextError{
				Request: r,
				Err:     errors.Errorf("context factory panicked: %v", p),
			}
		}
	}()

	ctx, err = h.contextFactory.NewContext(r)
	if err != nil {
		return nil, &ContextError{
			Request: r,
			Err:     err,
		}
	}
	if ctx == nil {
		return nil, &ContextError{
			Request: r,
			Err:     errNilContext,
		}
	}

	return ctx, nil
}

// ResultPresenter presents an execution result to a http.ResponseWriter.
type ResultPresenter interface {
	// Write writes a result to w.
	Write(
		w http.ResponseWriter,
		httpRequest *http.Request,
		graphqlRequest *Request,
		result *graphql.Response)
}

// DefaultResultPresenter implements a ResultPresenter used by Handler to present a result. GraphQL
// errors are data: the status is always 200.
type DefaultResultPresenter struct{}

var _ ResultPresenter = DefaultResultPresenter{}

// Write implements ResultPresenter.
func (DefaultResultPresenter) Write(
	w http.ResponseWriter,
	httpRequest *http.Request,
	graphqlRequest *Request,
	result *graphql.Response) {

	body, err := MarshalResult(result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// wireResult is the wire form of a graphql.Response. Unlike graphql.Response it keeps "data" when
// execution produced none, so clients always see the key.
type wireResult struct {
	Data       json.RawMessage         `json:"data"`
	Errors     []*gqlerrors.QueryError `json:"errors,omitempty"`
	Extensions map[string]interface{}  `json:"extensions,omitempty"`
}

// MarshalResult encodes r as pretty-printed JSON with two-space indentation. Characters such as <,
// > and & are written as-is.
//
// encoding/json is used here instead of jsonCodec: the Encoder re-indents the already encoded
// "data" member while jsoniter copies raw messages verbatim.
func MarshalResult(r *graphql.Response) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(wireResult{
		Data:       unescapeHTML(r.Data),
		Errors:     r.Errors,
		Extensions: r.Extensions,
	}); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// htmlEscapes maps the \uXXXX sequences json.Marshal writes for <, > and & to the characters.
var htmlEscapes = map[string]byte{
	"003c": '<',
	"003C": '<',
	"003e": '>',
	"003E": '>',
	"0026": '&',
}

// unescapeHTML rewrites the HTML escapes graph-gophers leaves in string values of data. Other
// escape sequences, including an escaped backslash followed by "u003c", are copied unchanged.
func unescapeHTML(data json.RawMessage) json.RawMessage {
	if !bytes.Contains(data, []byte(`\u00`)) {
		return data
	}

	out := make(json.RawMessage, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' || i+1 >= len(data) {
			out = append(out, c)
			continue
		}

		if data[i+1] == 'u' && i+6 <= len(data) {
			if ch, ok := htmlEscapes[string(data[i+2:i+6])]; ok {
				out = append(out, ch)
				i += 5
				continue
			}
		}

		// Copy the escape pair so that its second byte is never read as the start of another.
		out = append(out, c, data[i+1])
		i++
	}
	return out
}
