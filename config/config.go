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

// Package config loads apollo's settings from flags, environment variables, .env files and an
// optional config file.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/botobag/apollo/gateway"
	"github.com/botobag/apollo/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "APOLLO"

// Keys of settings.
const (
	KeyAddr           = "addr"
	KeyEndpoint       = "endpoint"
	KeyDatabaseURL    = "database_url"
	KeyDBMaxOpenConns = "db_max_open_conns"
	KeyMaxBodySize    = "max_body_size"
	KeyMaxQueryDepth  = "max_query_depth"
	KeyMetricsAddr    = "metrics_addr"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyLogOutput      = "log_output"
)

// DefaultEnvFiles are loaded into the process environment by Load. Variables already set are not
// overridden, and .env.local is loaded first so it wins over .env.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config is the settings of a running gateway.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string

	// Endpoint is the path GraphQL operations are posted to.
	Endpoint string

	// DatabaseURL is the MySQL DSN of the posts database. Posts are kept in memory when empty.
	DatabaseURL string

	// DBMaxOpenConns bounds the database connection pool.
	DBMaxOpenConns int

	// MaxBodySize bounds request bodies in bytes.
	MaxBodySize uint

	// MaxQueryDepth bounds the depth of executed queries. Zero disables the check.
	MaxQueryDepth int

	// MetricsAddr is the host:port serving Prometheus metrics. Metrics are not served when empty.
	MetricsAddr string

	Log logging.Config
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	logDefaults := logging.DefaultConfig()

	v.SetDefault(KeyAddr, gateway.DefaultAddr)
	v.SetDefault(KeyEndpoint, gateway.DefaultEndpoint)
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyDBMaxOpenConns, 10)
	v.SetDefault(KeyMaxBodySize, gateway.DefaultMaxBodySize)
	v.SetDefault(KeyMaxQueryDepth, 0)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyLogLevel, logDefaults.Level)
	v.SetDefault(KeyLogFormat, logDefaults.Format)
	v.SetDefault(KeyLogOutput, logDefaults.Output)
}

// BindFlags binds every flag in flags whose name, with dashes turned into underscores, is a key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(flag *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(flag.Name, "-", "_"), flag)
	})
	return err
}

// Load reads the configuration from v after loading envFiles (DefaultEnvFiles when none given)
// into the environment. Missing env files are skipped. Environment variables are APOLLO_<KEY>;
// DATABASE_URL is also accepted for the database.
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load %s", file)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyDatabaseURL, EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, errors.Wrap(err, "bind database url")
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", v.ConfigFileUsed())
		}
	}

	cfg := &Config{
		Addr:           v.GetString(KeyAddr),
		Endpoint:       v.GetString(KeyEndpoint),
		DatabaseURL:    v.GetString(KeyDatabaseURL),
		DBMaxOpenConns: v.GetInt(KeyDBMaxOpenConns),
		MaxBodySize:    v.GetUint(KeyMaxBodySize),
		MaxQueryDepth:  v.GetInt(KeyMaxQueryDepth),
		MetricsAddr:    v.GetString(KeyMetricsAddr),
		Log: logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			Output: v.GetString(KeyLogOutput),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg can be served.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Addr == "":
		return errors.New("listen address must not be empty")
	case !strings.HasPrefix(cfg.Endpoint, "/"):
		return errors.Errorf("endpoint %q must start with /", cfg.Endpoint)
	case cfg.Endpoint == gateway.PlaygroundPath:
		return errors.Errorf("endpoint must not be %s which serves the playground", gateway.PlaygroundPath)
	case cfg.MaxBodySize == 0:
		return errors.New("max body size must be positive")
	case cfg.DBMaxOpenConns < 0:
		return errors.New("database pool size must not be negative")
	case cfg.MaxQueryDepth < 0:
		return errors.New("max query depth must not be negative")
	}
	return nil
}
