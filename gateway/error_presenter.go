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
	"strconv"
)

// ErrorPresenter presents an error to a http.ResponseWriter.
type ErrorPresenter interface {
	// Write sends the given error to w.
	Write(w http.ResponseWriter, err error)
}

// ContextError describes a failure of the ContextFactory for one request. Panics raised by the
// factory are reported with this type as well.
type ContextError struct {
	Request *http.Request
	Err     error
}

// Error implements Go's error interface.
func (err *ContextError) Error() string {
	return "cannot build request context: " + err.Err.Error()
}

// Cause returns the error reported by the factory.
func (err *ContextError) Cause() error {
	return err.Err
}

// errorDescriptor is the body sent along with a 500 response.
type errorDescriptor struct {
	Status      int    `json:"status"`
	Description string `json:"description"`
}

// fallbackErrorBody is sent when the descriptor itself cannot be encoded.
var fallbackErrorBody = []byte(`{"status":500,"description":"Internal Server Error"}`)

// DefaultErrorPresenter implements an ErrorPresenter which is default used by Handler when no
// error presenter is provided. Every error is rendered as a 500 response with a JSON descriptor;
// decode failures and context construction failures share the same shape.
type DefaultErrorPresenter struct{}

var _ ErrorPresenter = DefaultErrorPresenter{}

// Write implements ErrorPresenter.
func (DefaultErrorPresenter) Write(w http.ResponseWriter, err error) {
	body, marshalErr := jsonCodec.Marshal(errorDescriptor{
		Status:      http.StatusInternalServerError,
		Description: err.Error(),
	})
	if marshalErr != nil {
		body = fallbackErrorBody
	}

	header := w.Header()
	header.Set("Content-Type", "application/json")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	header.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(body)
}
