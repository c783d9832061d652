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
	"io"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/botobag/apollo/config"
	"github.com/botobag/apollo/gateway"
	"github.com/botobag/apollo/logging"
	"github.com/botobag/apollo/posts"
	"github.com/botobag/apollo/schema"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "apollo",
		Short: "GraphQL gateway for the posts schema",
		Long: `apollo serves the posts GraphQL schema on a single endpoint.

GET / renders the GraphQL Playground and POST /graphql executes operations.
Settings are read from flags, APOLLO_* environment variables, .env files and
an optional config file.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
			}
			return config.BindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("addr", gateway.DefaultAddr, "host:port to listen on")
	flags.String("endpoint", gateway.DefaultEndpoint, "path serving GraphQL operations")
	flags.String("database-url", "", "MySQL DSN of the posts database (in-memory store when empty)")
	flags.Int("db-max-open-conns", 10, "maximum number of open database connections")
	flags.Uint("max-body-size", gateway.DefaultMaxBodySize, "maximum request body size in bytes")
	flags.Int("max-query-depth", 0, "maximum depth of executed queries (0 disables the check)")
	flags.String("metrics-addr", "", "host:port serving Prometheus metrics (disabled when empty)")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("log-output", "stderr", "log output: stderr, stdout or a file path")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	store, storeCloser, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storeCloser.Close()

	var schemaOpts []graphql.SchemaOpt
	if cfg.MaxQueryDepth > 0 {
		schemaOpts = append(schemaOpts, graphql.MaxDepth(cfg.MaxQueryDepth))
	}
	s, err := schema.New(schemaOpts...)
	if err != nil {
		return errors.Wrap(err, "build schema")
	}

	handler, err := gateway.New(s, &schema.ContextFactory{
		Posts:  store,
		Logger: logger,
	},
		gateway.MaxBodySize(cfg.MaxBodySize),
		gateway.Middlewares(gateway.LoggingMiddleware{}),
		gateway.Logger(logger),
	)
	if err != nil {
		return errors.Wrap(err, "create GraphQL handler")
	}

	server := gateway.NewServer(cfg.Addr, gateway.NewRouter(cfg.Endpoint, handler),
		gateway.WithLogger(logger),
		gateway.WithMetricsAddr(cfg.MetricsAddr),
	)
	return server.ListenAndServe(ctx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (posts.Store, io.Closer, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("no database configured, posts are kept in memory")
		return posts.NewMemoryStore(), nopCloser{}, nil
	}

	store, err := posts.OpenSQLStore(cfg.DatabaseURL, posts.SQLOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create connection pool")
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store, nil
}
