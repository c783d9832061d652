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
	"io"
	"mime"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// jsonCodec decodes request envelopes and encodes error descriptors.
var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxBodySize caps the request body read by ParseHTTPRequest when no limit is configured.
const DefaultMaxBodySize = 10 << 20 // 10MB

// ParseHTTPRequestOptions provides settings to ParseHTTPRequest.
type ParseHTTPRequestOptions struct {
	// Maximum size in bytes to be read when parsing a GraphQL query from HTTP request body. If it is
	// not set, the size is capped at DefaultMaxBodySize.
	MaxBodySize uint
}

// HTTPRequest is the GraphQL request envelope carried in the body of a POST request.
type HTTPRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// HTTPRequestParseError is returned by ParseHTTPRequest when the aggregated body is not a
// well-formed envelope.
type HTTPRequestParseError struct {
	Request *http.Request
	Options *ParseHTTPRequestOptions
	Err     error
}

// Error implements Go's error interface.
func (err *HTTPRequestParseError) Error() string {
	return err.Err.Error()
}

// Cause returns the underlying decode error.
func (err *HTTPRequestParseError) Cause() error {
	return err.Err
}

// TransportError is returned by ParseHTTPRequest when the request body stream failed before it
// was fully read. No response can be rendered for such a request.
type TransportError struct {
	Request *http.Request
	Err     error
}

// Error implements Go's error interface.
func (err *TransportError) Error() string {
	return "read request body: " + err.Err.Error()
}

// Cause returns the underlying read error.
func (err *TransportError) Cause() error {
	return err.Err
}

var (
	errRequestBodyTooLarge = errors.New("request body is too large")
	errMalformedJSON       = errors.New("request body is not a valid JSON document")
	errMissingQuery        = errors.New("missing field `query`")
)

// wireEnvelope is the decoding target of a JSON body. Query is a pointer so that an absent or
// null query can be told apart from an empty one.
type wireEnvelope struct {
	Query         *string                `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// ReadBody drains r.Body into a single buffer. The body may be delivered by the transport in any
// number of chunks; nothing is decoded until the stream reports EOF. It reads at most
// maxBodySize+1 bytes so that an oversized body can be told apart from one that fits exactly.
func ReadBody(r *http.Request, maxBodySize uint) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	var buf bytes.Buffer
	if r.ContentLength > 0 && r.ContentLength <= int64(maxBodySize) {
		buf.Grow(int(r.ContentLength))
	}

	if _, err := buf.ReadFrom(io.LimitReader(r.Body, int64(maxBodySize)+1)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ParseHTTPRequest aggregates the body of a POST request and decodes it into an HTTPRequest. A
// failure to read the body is reported as *TransportError; everything else that goes wrong is a
// *HTTPRequestParseError.
func ParseHTTPRequest(r *http.Request, options *ParseHTTPRequestOptions) (*HTTPRequest, error) {
	maxBodySize := options.MaxBodySize
	if maxBodySize == 0 {
		maxBodySize = DefaultMaxBodySize
	}

	body, err := ReadBody(r, maxBodySize)
	if err != nil {
		return nil, &TransportError{
			Request: r,
			Err:     err,
		}
	}

	// Check the overflow.
	if len(body) > int(maxBodySize) {
		return nil, &HTTPRequestParseError{
			Request: r,
			Options: options,
			Err:     errRequestBodyTooLarge,
		}
	}

	// Ignore error: an unparsable content type is decoded as JSON.
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType == "application/graphql" {
		// The entire body is the query.
		return &HTTPRequest{
			Query: string(body),
		}, nil
	}

	var envelope wireEnvelope
	if err := jsonCodec.Unmarshal(body, &envelope); err != nil {
		return nil, &HTTPRequestParseError{
			Request: r,
			Options: options,
			Err:     err,
		}
	}
	if !jsonCodec.Valid(body) {
		return nil, &HTTPRequestParseError{
			Request: r,
			Options: options,
			Err:     errMalformedJSON,
		}
	}
	if envelope.Query == nil {
		return nil, &HTTPRequestParseError{
			Request: r,
			Options: options,
			Err:     errMissingQuery,
		}
	}

	return &HTTPRequest{
		Query:         *envelope.Query,
		OperationName: envelope.OperationName,
		Variables:     envelope.Variables,
	}, nil
}
