// Package config loads chessd configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables prefixed with CHESSD_ (CHESSD_ENGINE_CALC_TIMEOUT -> engine.calc_timeout)
//  2. YAML config file
//  3. Defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "CHESSD_"
	maxConfigFileSize = 1024 * 1024
)

// MinSecretLength is the shortest accepted HS256 signing secret
const MinSecretLength = 32

// Terminal backends
const (
	TerminalTmux = "tmux"
	TerminalPty  = "pty"
)

// Store backends
const (
	StoreKubernetes = "kubernetes"
	StoreSQLite     = "sqlite"
)

type Config struct {
	Server ServerConfig `koanf:"server"`
	Engine EngineConfig `koanf:"engine"`
	Store  StoreConfig  `koanf:"store"`
	Log    LogConfig    `koanf:"log"`
	Auth   AuthConfig   `koanf:"auth"`
}

type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	Dev          bool          `koanf:"dev"`
	RateLimit    int           `koanf:"rate_limit"` // req/sec per client
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

type EngineConfig struct {
	Path          string        `koanf:"path"`
	Terminal      string        `koanf:"terminal"`
	Shell         string        `koanf:"shell"` // pty terminal only
	LogDir        string        `koanf:"log_dir"`
	CalcTimeout   time.Duration `koanf:"calc_timeout"`
	PollInterval  time.Duration `koanf:"poll_interval"`
	ReadyAttempts int           `koanf:"ready_attempts"`
	ReadyWait     time.Duration `koanf:"ready_wait"`
	WhiteTimeMs   int           `koanf:"white_time_ms"`
	BlackTimeMs   int           `koanf:"black_time_ms"`
	WhiteIncMs    int           `koanf:"white_inc_ms"`
	BlackIncMs    int           `koanf:"black_inc_ms"`
}

type StoreConfig struct {
	Backend    string        `koanf:"backend"`
	Namespace  string        `koanf:"namespace"`
	Retries    int           `koanf:"retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	SQLitePath string        `koanf:"sqlite_path"` // also enables the calculation audit trail
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuthConfig struct {
	Enabled bool   `koanf:"enabled"`
	Secret  string `koanf:"secret"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8080,
			RateLimit:    10,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Engine: EngineConfig{
			Path:          "stockfish",
			Terminal:      TerminalTmux,
			Shell:         "/bin/sh",
			LogDir:        os.TempDir(),
			CalcTimeout:   60 * time.Second,
			PollInterval:  time.Second,
			ReadyAttempts: 3,
			ReadyWait:     time.Second,
			WhiteTimeMs:   120000,
			BlackTimeMs:   120000,
			WhiteIncMs:    2000,
			BlackIncMs:    2000,
		},
		Store: StoreConfig{
			Backend:    StoreKubernetes,
			Namespace:  "chess",
			Retries:    1,
			RetryDelay: time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the optional YAML file at path, then applies CHESSD_* environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// CHESSD_SERVER_WRITE_TIMEOUT -> server.write_timeout
	// Split on the first underscore only so field names keep theirs
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be positive"))
	}

	switch c.Engine.Terminal {
	case TerminalTmux, TerminalPty:
	default:
		errs = append(errs, fmt.Errorf("engine.terminal must be one of [%s %s], got %q", TerminalTmux, TerminalPty, c.Engine.Terminal))
	}
	if strings.TrimSpace(c.Engine.Path) == "" {
		errs = append(errs, fmt.Errorf("engine.path is required"))
	}
	if c.Engine.CalcTimeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.calc_timeout must be positive"))
	}
	if c.Engine.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.poll_interval must be positive"))
	}
	if c.Engine.ReadyAttempts < 1 {
		errs = append(errs, fmt.Errorf("engine.ready_attempts must be at least 1"))
	}
	if c.Engine.ReadyWait <= 0 {
		errs = append(errs, fmt.Errorf("engine.ready_wait must be positive"))
	}

	switch c.Store.Backend {
	case StoreKubernetes:
		if c.Store.Namespace == "" {
			errs = append(errs, fmt.Errorf("store.namespace is required for the kubernetes backend"))
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of [%s %s], got %q", StoreKubernetes, StoreSQLite, c.Store.Backend))
	}
	if c.Store.Retries < 1 {
		errs = append(errs, fmt.Errorf("store.retries must be at least 1"))
	}

	if c.Auth.Enabled && len(c.Auth.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("auth.secret must be at least %d characters when auth is enabled", MinSecretLength))
	}

	return errors.Join(errs...)
}

// Addr returns the API listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
