// Package config loads docstore's ambient configuration: which backend to
// dial, its connection parameters, and the document-shaping knobs
// (suppress_fields, field_types) spec.md §6 describes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Runtime holds all process configuration.
type Runtime struct {
	// Environment selects dev/staging/production behavior (stricter
	// validation in production, same as the teacher's Config.Environment).
	Environment string

	// Backend names the adapter to construct: "memory", "sqlite", or
	// "dynamodb".
	Backend string

	// DefaultCollection is used by Operations that omit Collection.
	DefaultCollection string

	LogLevel string

	// SQLite connection parameters.
	SQLiteDSN string

	// DynamoDB connection parameters.
	AWSRegion     string
	DynamoDBTable string

	// RequestTimeout bounds a single Execute/ExecuteStatement call.
	RequestTimeout time.Duration

	EnableMetrics bool
	EnableTracing bool

	// SuppressFields lists document paths (the suppress_fields YAML key),
	// hot-reloadable via Watcher. It is only loaded: no package in this
	// module reads it, so no field is stripped from any response.
	SuppressFields []string

	// FieldTypes maps a path to a type name (the field_types YAML key),
	// hot-reloadable via Watcher. It is only loaded: no package in this
	// module reads it, so it does not affect how literals bind.
	FieldTypes map[string]string
}

// Load reads configuration from the environment, then overlays a YAML file
// named by DOCSTORE_CONFIG_FILE if present, mirroring the teacher's
// LoadConfig/Validate two-step (infrastructure/config/config.go).
func Load() (*Runtime, error) {
	cfg := &Runtime{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Backend:           getEnv("DOCSTORE_BACKEND", "memory"),
		DefaultCollection: getEnv("DOCSTORE_DEFAULT_COLLECTION", "default"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SQLiteDSN:         getEnv("DOCSTORE_SQLITE_DSN", "file::memory:?cache=shared"),
		AWSRegion:         getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:     getEnv("DOCSTORE_DYNAMODB_TABLE", ""),
		RequestTimeout:    getEnvDuration("DOCSTORE_REQUEST_TIMEOUT", 5*time.Second),
		EnableMetrics:     getEnvBool("ENABLE_METRICS", false),
		EnableTracing:     getEnvBool("ENABLE_TRACING", false),
	}

	if path := os.Getenv("DOCSTORE_CONFIG_FILE"); path != "" {
		if err := overlayYAML(cfg, path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay is the subset of Runtime a YAML file may set; an absent key
// leaves its field nil (the slice, the map, or the RequestTimeout pointer),
// which leaves the environment-derived value untouched.
type overlay struct {
	SuppressFields []string          `yaml:"suppress_fields"`
	FieldTypes     map[string]string `yaml:"field_types"`
	RequestTimeout *time.Duration    `yaml:"request_timeout"`
}

func overlayYAML(cfg *Runtime, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var ov overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	applyOverlay(cfg, ov)
	return nil
}

func applyOverlay(cfg *Runtime, ov overlay) {
	if ov.SuppressFields != nil {
		cfg.SuppressFields = ov.SuppressFields
	}
	if ov.FieldTypes != nil {
		cfg.FieldTypes = ov.FieldTypes
	}
	if ov.RequestTimeout != nil {
		cfg.RequestTimeout = *ov.RequestTimeout
	}
}

// Validate requires a DynamoDB table name once Backend selects that
// adapter, the same "required in production" pattern as the teacher's
// Config.Validate.
func (c *Runtime) Validate() error {
	if c.Backend == "dynamodb" && c.DynamoDBTable == "" {
		return fmt.Errorf("DOCSTORE_DYNAMODB_TABLE is required when DOCSTORE_BACKEND=dynamodb")
	}
	if c.Backend == "sqlite" && c.SQLiteDSN == "" {
		return fmt.Errorf("DOCSTORE_SQLITE_DSN is required when DOCSTORE_BACKEND=sqlite")
	}
	switch c.Backend {
	case "memory", "sqlite", "dynamodb":
	default:
		return fmt.Errorf("unknown DOCSTORE_BACKEND %q", c.Backend)
	}
	return nil
}

func (c *Runtime) IsProduction() bool { return c.Environment == "production" }

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
