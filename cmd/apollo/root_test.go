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

package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/botobag/apollo/config"
	"github.com/botobag/apollo/posts"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("openStore", func() {
	It("keeps posts in memory without a database", func() {
		store, closer, err := openStore(context.Background(), &config.Config{}, zerolog.Nop())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(store).Should(BeAssignableToTypeOf(&posts.MemoryStore{}))
		Expect(closer.Close()).Should(Succeed())
	})

	It("rejects a malformed database URL", func() {
		_, _, err := openStore(context.Background(), &config.Config{DatabaseURL: "not a dsn"}, zerolog.Nop())
		Expect(err).Should(HaveOccurred())
	})
})

var _ = Describe("root command", func() {
	It("defines a flag for every setting", func() {
		flags := newRootCommand().Flags()
		for _, name := range []string{
			"config",
			"addr",
			"endpoint",
			"database-url",
			"db-max-open-conns",
			"max-body-size",
			"max-query-depth",
			"metrics-addr",
			"log-level",
			"log-format",
			"log-output",
		} {
			Expect(flags.Lookup(name)).ShouldNot(BeNil(), name)
		}
	})

	It("fails on invalid settings before serving", func() {
		cmd := newRootCommand()
		cmd.SetArgs([]string{"--endpoint=/", "--log-output=stdout"})
		cmd.SilenceErrors = true

		Expect(cmd.ExecuteContext(context.Background())).ShouldNot(Succeed())
	})
})
