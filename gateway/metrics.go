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

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts and times requests served by a Router, labelled by the route they took.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them to reg. Collectors already registered to
// reg by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apollo",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apollo",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}

	requests, err := register(reg, m.requests)
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, m.duration)
	if err != nil {
		return nil, err
	}

	var ok bool
	if m.requests, ok = requests.(*prometheus.CounterVec); !ok {
		return nil, errors.Errorf("unexpected collector %T registered for request counts", requests)
	}
	if m.duration, ok = duration.(*prometheus.HistogramVec); !ok {
		return nil, errors.Errorf("unexpected collector %T registered for request durations", duration)
	}
	return m, nil
}

// register registers c to reg. When an equal collector is already registered, e.g. by an earlier
// Serve on the same registry, that collector is returned instead.
func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	err := reg.Register(c)
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return are.ExistingCollector, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Instrument wraps router so that every request is recorded under the route the router picks for
// it.
func (m *Metrics) Instrument(router *Router) http.Handler {
	var handlers [RouteGraphQL + 1]http.Handler
	for _, route := range []Route{RouteNotFound, RoutePlayground, RouteGraphQL} {
		labels := prometheus.Labels{"route": route.String()}
		handlers[route] = promhttp.InstrumentHandlerDuration(
			m.duration.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), router))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers[router.Route(r.Method, r.URL.Path)].ServeHTTP(w, r)
	})
}
