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

package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing/iotest"

	graphql "github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"

	"github.com/botobag/apollo/gateway"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// serveRecovered calls h.ServeHTTP and returns the value it panicked with, if any.
func serveRecovered(h http.Handler, w http.ResponseWriter, r *http.Request) (p interface{}) {
	defer func() {
		p = recover()
	}()
	h.ServeHTTP(w, r)
	return nil
}

func decodeBody(rr *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	Expect(json.Unmarshal(rr.Body.Bytes(), &body)).Should(Succeed())
	return body
}

func expectErrorDescriptor(rr *httptest.ResponseRecorder) string {
	Expect(rr.Code).Should(Equal(http.StatusInternalServerError))
	Expect(rr.Header().Get("Content-Type")).Should(Equal("application/json"))
	Expect(rr.Header().Get("Content-Length")).Should(Equal(strconv.Itoa(rr.Body.Len())))

	body := decodeBody(rr)
	Expect(body).Should(HaveKeyWithValue("status", BeNumerically("==", 500)))
	Expect(body).Should(HaveKeyWithValue("description", Not(BeEmpty())))
	return body["description"].(string)
}

var _ = Describe("Handler", func() {
	var (
		schema         *graphql.Schema
		resolver       *testResolver
		contextFactory gateway.ContextFactory
		opts           []gateway.Option
	)

	BeforeEach(func() {
		schema, resolver = newTestSchema()
		contextFactory = sequenceContextFactory()
		opts = nil
	})

	newHandler := func() *gateway.Handler {
		handler, err := gateway.New(schema, contextFactory, opts...)
		Expect(err).ShouldNot(HaveOccurred())
		return handler
	}

	serve := func(r *http.Request) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		newHandler().ServeHTTP(rr, r)
		return rr
	}

	post := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		return serve(r)
	}

	Describe("New", func() {
		It("requires a schema", func() {
			_, err := gateway.New(nil, contextFactory)
			Expect(err).Should(HaveOccurred())
		})

		It("requires a context factory", func() {
			_, err := gateway.New(schema, nil)
			Expect(err).Should(HaveOccurred())
		})

		It("exposes the schema", func() {
			Expect(newHandler().Schema()).Should(BeIdenticalTo(schema))
		})
	})

	Context("with a well-formed envelope", func() {
		It("writes the pretty-printed result", func() {
			rr := post(`{"query": "{ hello }"}`)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Header().Get("Content-Type")).Should(Equal("application/json"))
			Expect(rr.Header().Get("Content-Length")).Should(Equal(strconv.Itoa(rr.Body.Len())))
			Expect(rr.Body.String()).Should(Equal("{\n  \"data\": {\n    \"hello\": \"Hello World\"\n  }\n}"))
			Expect(rr.Body.String()).Should(MatchJSON(`{"data":{"hello":"Hello World"}}`))
		})

		It("writes HTML-sensitive characters unescaped", func() {
			rr := post(`{"query": "{ echo(msg: \"<a&b>\") }"}`)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Body.String()).Should(Equal("{\n  \"data\": {\n    \"echo\": \"<a&b>\"\n  }\n}"))
			Expect(rr.Header().Get("Content-Length")).Should(Equal(strconv.Itoa(rr.Body.Len())))
		})

		It("keeps an escaped backslash in front of u003c", func() {
			rr := post(`{
				"query": "query($m: String!) { echo(msg: $m) }",
				"variables": {"m": "\\u003c<&"}
			}`)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Body.String()).Should(ContainSubstring(`"echo": "\\u003c<&"`))
			Expect(decodeBody(rr)).Should(HaveKeyWithValue("data", HaveKeyWithValue("echo", `\u003c<&`)))
		})

		It("passes operation name and variables", func() {
			rr := post(`{
				"query": "query A { hello } query B($m: String!) { echo(msg: $m) }",
				"operationName": "B",
				"variables": {"m": "hi"}
			}`)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Body.String()).Should(MatchJSON(`{"data":{"echo":"hi"}}`))
		})

		It("returns byte-identical responses for repeated read-only queries", func() {
			handler := newHandler()
			var first []byte
			for i := 0; i < 5; i++ {
				rr := httptest.NewRecorder()
				handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/graphql",
					strings.NewReader(`{"query": "{ hello }"}`)))
				Expect(rr.Code).Should(Equal(http.StatusOK))
				if first == nil {
					first = rr.Body.Bytes()
				} else {
					Expect(rr.Body.Bytes()).Should(Equal(first))
				}
			}
		})

		It("decodes a body delivered one byte at a time", func() {
			r := httptest.NewRequest(http.MethodPost, "/graphql",
				iotest.OneByteReader(strings.NewReader(`{"query": "{ echo(msg: \"chunked\") }"}`)))

			rr := serve(r)
			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Body.String()).Should(MatchJSON(`{"data":{"echo":"chunked"}}`))
		})

		It("accepts an application/graphql body as the query", func() {
			r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{ hello }`))
			r.Header.Set("Content-Type", "application/graphql; charset=utf-8")

			rr := serve(r)
			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Body.String()).Should(MatchJSON(`{"data":{"hello":"Hello World"}}`))
		})
	})

	Context("with GraphQL errors", func() {
		It("reports an undefined field with 200 and null data", func() {
			rr := post(`{"query": "{ nope }"}`)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			body := decodeBody(rr)
			Expect(body).Should(HaveKeyWithValue("data", BeNil()))
			Expect(body).Should(HaveKeyWithValue("errors", Not(BeEmpty())))
		})

		It("keeps partial data next to field errors", func() {
			rr := post(`{"query": "{ fail hello }"}`)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			body := decodeBody(rr)
			Expect(body["data"]).Should(Equal(map[string]interface{}{
				"fail":  nil,
				"hello": "Hello World",
			}))

			errs := body["errors"].([]interface{})
			Expect(errs).Should(HaveLen(1))
			Expect(errs[0]).Should(HaveKeyWithValue("message", "boom"))
			Expect(errs[0]).Should(HaveKeyWithValue("path", []interface{}{"fail"}))
		})

		It("reports an empty query with 200", func() {
			rr := post(`{"query": ""}`)

			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(decodeBody(rr)).Should(HaveKeyWithValue("errors", Not(BeEmpty())))
		})
	})

	Context("with a malformed envelope", func() {
		It("answers a truncated body with a 500 descriptor", func() {
			rr := post(`{"query":`)
			expectErrorDescriptor(rr)
		})

		It("answers an empty body with a 500 descriptor", func() {
			expectErrorDescriptor(post(""))
		})

		It("answers an envelope without query with a 500 descriptor", func() {
			for _, body := range []string{`{}`, `null`, `{"query": null}`, `{"variables": {}}`} {
				description := expectErrorDescriptor(post(body))
				Expect(description).Should(Equal("missing field `query`"), body)
			}
			Expect(resolver.calls).Should(BeZero())
		})

		It("answers trailing garbage with a 500 descriptor", func() {
			expectErrorDescriptor(post(`{"query": "{ hello }"} {`))
		})

		It("answers a non-object envelope with a 500 descriptor", func() {
			expectErrorDescriptor(post(`["{ hello }"]`))
		})

		It("answers an oversized body with a 500 descriptor", func() {
			opts = append(opts, gateway.MaxBodySize(16))

			description := expectErrorDescriptor(post(`{"query": "{ hello hello hello }"}`))
			Expect(description).Should(Equal("request body is too large"))
		})

		It("accepts a body of exactly the maximum size", func() {
			body := `{"query":"{ hello }"}`
			opts = append(opts, gateway.MaxBodySize(uint(len(body))))

			Expect(post(body).Code).Should(Equal(http.StatusOK))
		})
	})

	Context("when the body stream fails", func() {
		It("aborts without rendering a response", func() {
			r := httptest.NewRequest(http.MethodPost, "/graphql",
				io.MultiReader(strings.NewReader(`{"query": "{ he`), iotest.ErrReader(errors.New("connection reset"))))
			rr := httptest.NewRecorder()

			Expect(serveRecovered(newHandler(), rr, r)).Should(Equal(http.ErrAbortHandler))
			Expect(rr.Body.Len()).Should(BeZero())
			Expect(rr.Header().Get("Content-Type")).Should(BeEmpty())
			Expect(resolver.calls).Should(BeZero())
		})
	})

	Context("when the context factory fails", func() {
		It("answers an error with a 500 descriptor", func() {
			contextFactory = gateway.ContextFactoryFunc(func(r *http.Request) (context.Context, error) {
				return nil, errors.New("pool exhausted")
			})

			description := expectErrorDescriptor(post(`{"query": "{ hello }"}`))
			Expect(description).Should(ContainSubstring("pool exhausted"))
			Expect(resolver.calls).Should(BeZero())
		})

		It("answers a panic with a 500 descriptor", func() {
			contextFactory = gateway.ContextFactoryFunc(func(r *http.Request) (context.Context, error) {
				panic("no connection available")
			})

			description := expectErrorDescriptor(post(`{"query": "{ hello }"}`))
			Expect(description).Should(ContainSubstring("no connection available"))
		})

		It("answers a nil context with a 500 descriptor", func() {
			contextFactory = gateway.ContextFactoryFunc(func(r *http.Request) (context.Context, error) {
				return nil, nil
			})

			expectErrorDescriptor(post(`{"query": "{ hello }"}`))
		})

		It("reports the failure as a ContextError to the error presenter", func() {
			var presented error
			opts = append(opts, gateway.OverrideErrorPresenter(errorPresenterFunc(func(w http.ResponseWriter, err error) {
				presented = err
				w.WriteHeader(http.StatusServiceUnavailable)
			})))
			contextFactory = gateway.ContextFactoryFunc(func(r *http.Request) (context.Context, error) {
				return nil, errors.New("pool exhausted")
			})

			Expect(post(`{"query": "{ hello }"}`).Code).Should(Equal(http.StatusServiceUnavailable))
			Expect(presented).Should(BeAssignableToTypeOf(&gateway.ContextError{}))
		})
	})

	Context("with middlewares", func() {
		It("lets a middleware change the request", func() {
			opts = append(opts, gateway.Middlewares(
				gateway.LoggingMiddleware{},
				gateway.RequestMiddlewareFunc(func(request *gateway.Request, next *gateway.RequestMiddlewareNext) {
					request.Query = `query($m: String!) { echo(msg: $m) }`
					request.Variables = map[string]interface{}{"m": "rewritten"}
					next.Next(request)
				})))

			rr := post(`{"query": "{ hello }"}`)
			Expect(rr.Body.String()).Should(MatchJSON(`{"data":{"echo":"rewritten"}}`))
		})

		It("lets a middleware reject the request", func() {
			opts = append(opts, gateway.Middlewares(
				gateway.RequestMiddlewareFunc(func(request *gateway.Request, next *gateway.RequestMiddlewareNext) {
					next.NextError(gqlerrors.Errorf("rejected"))
				})))

			rr := post(`{"query": "{ hello }"}`)
			Expect(rr.Code).Should(Equal(http.StatusOK))
			Expect(rr.Body.String()).Should(MatchJSON(`{"data":null,"errors":[{"message":"rejected"}]}`))
			Expect(resolver.calls).Should(BeZero())
		})
	})

	It("executes concurrent requests with their own contexts", func() {
		server := httptest.NewServer(gateway.NewRouter("", newHandler()))
		defer server.Close()

		const n = 32
		type response struct {
			Data struct {
				Echo      string `json:"echo"`
				RequestID string `json:"requestId"`
			} `json:"data"`
		}

		var (
			wg        sync.WaitGroup
			responses = make([]response, n)
			errs      = make([]error, n)
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				envelope, _ := json.Marshal(map[string]string{
					"query": fmt.Sprintf(`{ echo(msg: "%d") requestId }`, i),
				})
				resp, err := http.Post(server.URL+"/graphql", "application/json", bytes.NewReader(envelope))
				if err != nil {
					errs[i] = err
					return
				}
				defer resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errs[i] = fmt.Errorf("unexpected status %d", resp.StatusCode)
					return
				}
				errs[i] = json.NewDecoder(resp.Body).Decode(&responses[i])
			}(i)
		}
		wg.Wait()

		requestIDs := map[string]bool{}
		for i := 0; i < n; i++ {
			Expect(errs[i]).ShouldNot(HaveOccurred())
			Expect(responses[i].Data.Echo).Should(Equal(strconv.Itoa(i)))
			requestIDs[responses[i].Data.RequestID] = true
		}
		Expect(requestIDs).Should(HaveLen(n))
	})
})

type errorPresenterFunc func(w http.ResponseWriter, err error)

func (f errorPresenterFunc) Write(w http.ResponseWriter, err error) {
	f(w, err)
}
