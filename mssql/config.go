// Package mssql renders data commands into parameterized Transact-SQL.
// Identifiers are bracket-quoted, parameters are named @p0, @p1, ... in the
// order they appear in the statement, and pagination uses OFFSET/FETCH.
// The translator performs no I/O; executing the translated statement is the
// caller's concern.
package mssql

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the schema-mapping configuration a translator is built from. It
// is treated as immutable for the translator's lifetime.
type Config struct {
	// DefaultSchema qualifies logical names that have no explicit mapping.
	DefaultSchema string `mapstructure:"default_schema"`
	// Mappings overrides logical container names with "schema.container".
	Mappings map[string]string `mapstructure:"mappings"`
	// LogTranslations enables diagnostic logging of translated statements.
	LogTranslations bool `mapstructure:"log_translations"`
	// MaxLogLength truncates logged statement text; zero means no limit.
	MaxLogLength int `mapstructure:"max_log_length"`
}

// DefaultConfig returns a configuration with the conventional dbo default
// schema and no overrides.
func DefaultConfig() *Config {
	return &Config{
		DefaultSchema: "dbo",
		Mappings:      map[string]string{},
		MaxLogLength:  4096,
	}
}

// Mapped returns the "schema.container" override for a logical name, if any.
// Lookup falls back to the lower-cased name: viper lower-cases map keys on
// read, so file-loaded mappings would otherwise never match logical names
// carrying an uppercase letter.
func (c *Config) Mapped(logical string) (string, bool) {
	if m, ok := c.Mappings[logical]; ok {
		return m, true
	}
	m, ok := c.Mappings[strings.ToLower(logical)]
	return m, ok
}

// LoadConfig reads a Config from the given file, with DATAKIT_-prefixed
// environment variables taking precedence over file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("DATAKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default_schema", "dbo")
	v.SetDefault("log_translations", false)
	v.SetDefault("max_log_length", 4096)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read translator config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal translator config %s: %w", path, err)
	}
	if cfg.Mappings == nil {
		cfg.Mappings = map[string]string{}
	}
	if strings.TrimSpace(cfg.DefaultSchema) == "" {
		return nil, fmt.Errorf("translator config %s: default schema cannot be empty", path)
	}
	return cfg, nil
}
