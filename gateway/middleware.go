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
	"github.com/rs/zerolog"
)

// LoggingMiddleware logs every operation before it gets executed. It logs through the logger
// attached to the request context (see zerolog.Ctx), so request-scoped fields set by the
// ContextFactory end up in the entry.
type LoggingMiddleware struct{}

var _ RequestMiddleware = LoggingMiddleware{}

// Apply implements RequestMiddleware.
func (LoggingMiddleware) Apply(request *Request, next *RequestMiddlewareNext) {
	zerolog.Ctx(request.Ctx).Debug().
		Str("operation", request.OperationName).
		Int("variables", len(request.Variables)).
		Msg("executing GraphQL operation")
	next.Next(request)
}
