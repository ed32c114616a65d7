// Package config loads connection and schema parameters for the ingester.
//
// Settings come from the environment (PG_HOST, PG_PORT, PG_DATABASE,
// PG_USER, PG_PASSWORD, PG_SCHEMA); a nemsis.yaml file in the working
// directory may supply values the environment leaves unset (a non-empty
// environment variable takes precedence over the file). Missing required
// values are fatal at startup, before any file is touched.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Directory defaults relative to the working directory.
const (
	DefaultArchiveDir = "processed_xml_archive"
	DefaultErrorDir   = "error_files"
)

// schemaNameRe guards the schema name against injection: it is interpolated
// into DDL as a quoted identifier.
var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds the PostgreSQL connection parameters and target schema.
type Config struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	Schema   string

	ArchiveDir string
	ErrorDir   string
}

// Load reads configuration from the environment and an optional nemsis.yaml.
// It validates required values and the schema-name shape.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("pg_host", "localhost")
	v.SetDefault("pg_port", "5432")
	v.SetDefault("pg_schema", "public")
	v.SetDefault("archive_dir", DefaultArchiveDir)
	v.SetDefault("error_dir", DefaultErrorDir)
	v.AutomaticEnv()

	v.SetConfigName("nemsis")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Host:       v.GetString("pg_host"),
		Port:       v.GetString("pg_port"),
		Database:   v.GetString("pg_database"),
		User:       v.GetString("pg_user"),
		Password:   v.GetString("pg_password"),
		Schema:     v.GetString("pg_schema"),
		ArchiveDir: v.GetString("archive_dir"),
		ErrorDir:   v.GetString("error_dir"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required connection values and the schema name shape.
func (c *Config) Validate() error {
	var missing []string
	if c.Database == "" {
		missing = append(missing, "PG_DATABASE")
	}
	if c.User == "" {
		missing = append(missing, "PG_USER")
	}
	if c.Password == "" {
		missing = append(missing, "PG_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if !schemaNameRe.MatchString(c.Schema) {
		return fmt.Errorf("invalid schema name %q: must match [A-Za-z_][A-Za-z0-9_]*", c.Schema)
	}
	return nil
}
