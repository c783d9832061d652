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

package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/botobag/apollo/logging"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("New", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "apollo-logging")
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	readLines := func(path string) []string {
		content, err := os.ReadFile(path)
		Expect(err).ShouldNot(HaveOccurred())
		return strings.Split(strings.TrimSpace(string(content)), "\n")
	}

	It("uses the default configuration", func() {
		logger, closer, err := logging.New(logging.DefaultConfig())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(closer).ShouldNot(BeNil())
		Expect(closer.Close()).Should(Succeed())
		Expect(logger.GetLevel()).Should(Equal(zerolog.InfoLevel))
	})

	It("writes JSON lines to a file", func() {
		path := filepath.Join(dir, "apollo.log")
		logger, closer, err := logging.New(logging.Config{
			Level:  "debug",
			Format: "json",
			Output: path,
		})
		Expect(err).ShouldNot(HaveOccurred())

		logger.Debug().Str("route", "graphql").Msg("served")
		Expect(closer.Close()).Should(Succeed())

		lines := readLines(path)
		Expect(lines).Should(HaveLen(1))

		var entry map[string]interface{}
		Expect(json.Unmarshal([]byte(lines[0]), &entry)).Should(Succeed())
		Expect(entry).Should(HaveKeyWithValue("level", "debug"))
		Expect(entry).Should(HaveKeyWithValue("route", "graphql"))
		Expect(entry).Should(HaveKeyWithValue("message", "served"))
		Expect(entry).Should(HaveKey("time"))
	})

	It("drops entries below the level", func() {
		path := filepath.Join(dir, "apollo.log")
		logger, closer, err := logging.New(logging.Config{
			Level:  "WARN",
			Format: "json",
			Output: path,
		})
		Expect(err).ShouldNot(HaveOccurred())

		logger.Info().Msg("hidden")
		logger.Warn().Msg("shown")
		Expect(closer.Close()).Should(Succeed())

		lines := readLines(path)
		Expect(lines).Should(HaveLen(1))
		Expect(lines[0]).Should(ContainSubstring("shown"))
	})

	It("writes uncolored console output to a file", func() {
		path := filepath.Join(dir, "apollo.log")
		logger, closer, err := logging.New(logging.Config{
			Format: "console",
			Output: path,
		})
		Expect(err).ShouldNot(HaveOccurred())

		logger.Info().Msg("started")
		Expect(closer.Close()).Should(Succeed())

		lines := readLines(path)
		Expect(lines).Should(HaveLen(1))
		Expect(lines[0]).Should(ContainSubstring("INF started"))
		Expect(lines[0]).ShouldNot(ContainSubstring("\x1b["))
	})

	It("appends to an existing file", func() {
		path := filepath.Join(dir, "apollo.log")
		Expect(os.WriteFile(path, []byte("{\"message\":\"earlier\"}\n"), 0o600)).Should(Succeed())

		logger, closer, err := logging.New(logging.Config{Format: "json", Output: path})
		Expect(err).ShouldNot(HaveOccurred())
		logger.Info().Msg("later")
		Expect(closer.Close()).Should(Succeed())

		Expect(readLines(path)).Should(HaveLen(2))
	})

	It("rejects an unknown level", func() {
		_, _, err := logging.New(logging.Config{Level: "loud"})
		Expect(err).Should(HaveOccurred())
	})

	It("rejects an unknown format", func() {
		_, closer, err := logging.New(logging.Config{Format: "xml", Output: filepath.Join(dir, "apollo.log")})
		Expect(err).Should(HaveOccurred())
		Expect(closer.Close()).Should(Succeed())
	})

	It("fails when the file cannot be opened", func() {
		_, _, err := logging.New(logging.Config{Output: filepath.Join(dir, "missing", "apollo.log")})
		Expect(err).Should(HaveOccurred())
	})
})
