package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/dashctl/internal/csrf"
	"github.com/florianilch/dashctl/internal/observability"
	"github.com/florianilch/dashctl/internal/sessionstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText     LogFormat = observability.FormatText
	LogFormatJSON     LogFormat = observability.FormatJSON
	LogFormatOTel     LogFormat = observability.FormatOTel
	LogFormatOTLPHTTP LogFormat = observability.FormatOTLPHTTP
	LogFormatOTLPGRPC LogFormat = observability.FormatOTLPGRPC
)

// SessionStorageType represents the storage backends supported for the backend session.
type SessionStorageType string

const (
	SessionStorageTypeFile    SessionStorageType = "file"
	SessionStorageTypeEnv     SessionStorageType = "env"
	SessionStorageTypeKeyring SessionStorageType = "keyring"
	SessionStorageTypeMemory  SessionStorageType = "memory"
)

// keyringService names the keyring entry holding the session.
const keyringService = "dashctl-session"

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigBackendBaseURL  = "http://localhost:8000"
	DefaultConfigBackendTimeout  = 10 * time.Second
	DefaultConfigBackendCSRFPath = csrf.DefaultEndpointPath
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 8001
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigSessionStorage  = SessionStorageTypeFile
)

// BackendConfig describes the backend the client talks to.
type BackendConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// Timeout bounds every backend request, including CSRF bootstrap.
	Timeout  time.Duration `json:"timeout" validate:"gte=0"`
	CSRFPath string        `json:"csrf_path" validate:"required,startswith=/"`
}

// ServerConfig holds local proxy server configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// SessionConfig describes where the backend session is persisted.
type SessionConfig struct {
	Storage SessionStorageType `json:"storage" validate:"required,oneof=file env keyring memory"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to session file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// Writable reports whether the configured storage can persist a new session.
func (s *SessionConfig) Writable() bool {
	return s.Storage != SessionStorageTypeEnv
}

// NewSessionStore creates a SessionStore from the session configuration.
func (s *SessionConfig) NewSessionStore() (sessionstore.SessionStore, error) {
	switch s.Storage {
	case SessionStorageTypeFile:
		return sessionstore.NewFileStore(s.File)
	case SessionStorageTypeEnv:
		return sessionstore.NewEnvStore(s.EnvKey)
	case SessionStorageTypeKeyring:
		return sessionstore.NewKeyringStore(keyringService, s.KeyringUser)
	case SessionStorageTypeMemory:
		return sessionstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Storage)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json otel otlp-http otlp-grpc"`
	Backend   BackendConfig  `json:"backend"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	Session   SessionConfig  `json:"session"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultConfigBackendBaseURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultConfigBackendTimeout
	}
	if c.Backend.CSRFPath == "" {
		c.Backend.CSRFPath = DefaultConfigBackendCSRFPath
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Session.Storage == "" {
		c.Session.Storage = DefaultConfigSessionStorage
	}

	// Dynamic defaults based on storage type
	switch c.Session.Storage {
	case SessionStorageTypeFile:
		if c.Session.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("session.file required (auto-detect failed: %w)", err)
			}
			c.Session.File = filepath.Join(configDir, "dashctl", "session.json")
		}
	case SessionStorageTypeKeyring:
		if c.Session.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("session.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Session.KeyringUser = currentUser.Username
		}
	case SessionStorageTypeEnv, SessionStorageTypeMemory:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Session.Storage {
	case SessionStorageTypeFile:
		if c.Session.File == "" {
			return errors.New("file path required for file storage")
		}
	case SessionStorageTypeEnv:
		if c.Session.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case SessionStorageTypeKeyring:
		if c.Session.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
