package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"glm-relay/internal/tokensource"
)

// envPrefix namespaces the environment variables this gateway reads.
// A double underscore separates hierarchy levels so multi-word keys stay
// addressable: GLMRELAY_SERVER__ADDR overrides server.addr,
// GLMRELAY_SERVER__MAX_BODY_BYTES overrides server.max_body_bytes.
const envPrefix = "GLMRELAY_"

// TokenStorageType selects the credential storage backend.
type TokenStorageType string

const (
	TokenStorageTypeEnv     TokenStorageType = "env"
	TokenStorageTypeFile    TokenStorageType = "file"
	TokenStorageTypeKeyring TokenStorageType = "keyring"
)

// Config is the validated application configuration. Precedence:
// defaults < config file < environment.
type Config struct {
	Server   ServerConfig      `koanf:"server"`
	Upstream UpstreamConfig    `koanf:"upstream"`
	Auth     AuthConfig        `koanf:"auth"`
	Models   map[string]string `koanf:"models"`
	Log      LogConfig         `koanf:"log"`
}

// ServerConfig configures the inbound HTTP surface.
type ServerConfig struct {
	Addr         string `koanf:"addr" validate:"required,hostname_port"`
	MaxBodyBytes int64  `koanf:"max_body_bytes" validate:"gt=0"`
}

// UpstreamConfig carries what the transport collaborator needs. The gateway
// itself only forwards these values.
type UpstreamConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,http_url"`
}

// AuthConfig selects where the upstream credential is stored.
type AuthConfig struct {
	Storage TokenStorageType `koanf:"storage" validate:"required,oneof=env file keyring"`
	// File is the credential file path for file storage. Defaults under the
	// user's config directory when empty.
	File string `koanf:"file"`
}

// LogConfig configures the logging pipeline.
type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"required,oneof=text json"`
	// Export selects an optional OTLP log export: off, stdout, http, grpc.
	Export string `koanf:"export" validate:"required,oneof=off stdout http grpc"`
}

// defaults are the built-in configuration values.
func defaults() map[string]any {
	return map[string]any{
		"server.addr":           "127.0.0.1:8317",
		"server.max_body_bytes": int64(10 << 20),
		"upstream.base_url":     "https://chat.z.ai/api",
		"auth.storage":          "env",
		"log.level":             "info",
		"log.format":            "text",
		"log.export":            "off",
	}
}

// LoadConfig loads, merges, and validates configuration. The path argument
// may be empty, in which case only defaults and environment apply.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// NewTokenStore constructs the credential store the auth config selects.
func (c AuthConfig) NewTokenStore() (tokensource.Store, error) {
	switch c.Storage {
	case TokenStorageTypeEnv:
		return &tokensource.EnvStore{Variable: envPrefix + "API_KEY"}, nil
	case TokenStorageTypeFile:
		path := c.File
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve config directory: %w", err)
			}
			path = filepath.Join(dir, "glm-relay", "credential")
		}
		return &tokensource.FileStore{Path: path}, nil
	case TokenStorageTypeKeyring:
		return &tokensource.KeyringStore{Service: "glm-relay", User: "upstream"}, nil
	default:
		return nil, fmt.Errorf("unknown token storage type %q", c.Storage)
	}
}
