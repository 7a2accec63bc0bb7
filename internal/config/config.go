// Package config loads the adminform command configuration.
//
// Precedence, highest first: explicitly set flags, ADMINFORM_ environment
// variables, the YAML config file, built-in defaults. Nested keys are spelled
// with a double underscore in the environment (ADMINFORM_LOG__LEVEL).
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "ADMINFORM_"

const (
	DefaultAddr         = "127.0.0.1:5050"
	DefaultMSQLBaseURL  = "http://127.0.0.1:5050"
	DefaultMSQLTimeout  = 10 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultThemeVariant = "light"
)

// DefaultFiles are looked up in the working directory when no config file is
// given.
var DefaultFiles = []string{"adminform.yaml", "adminform.yml"}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MSQLConfig configures the SQL preview client.
type MSQLConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ServerConfig points at the PostgreSQL server whose capabilities gate
// version bound fields.
type ServerConfig struct {
	DSN string `koanf:"dsn"`
}

// ThemeConfig selects the go-theme manifest and variant.
type ThemeConfig struct {
	Name    string `koanf:"name"`
	Variant string `koanf:"variant"`
	Dir     string `koanf:"dir"`
}

// Config holds every command option.
type Config struct {
	Addr       string       `koanf:"addr"`
	SchemasDir string       `koanf:"schemas_dir"`
	OpenAPI    []string     `koanf:"openapi"`
	Watch      bool         `koanf:"watch"`
	Log        LogConfig    `koanf:"log"`
	MSQL       MSQLConfig   `koanf:"msql"`
	Server     ServerConfig `koanf:"server"`
	Theme      ThemeConfig  `koanf:"theme"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// flagKeys maps flag names onto config keys where kebab to snake case is
// not enough.
var flagKeys = map[string]string{
	"config":        "",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"msql-url":      "msql.base_url",
	"msql-timeout":  "msql.timeout",
	"dsn":           "server.dsn",
	"theme":         "theme.name",
	"theme-variant": "theme.variant",
	"theme-dir":     "theme.dir",
}

func defaults() map[string]any {
	return map[string]any{
		"addr":          DefaultAddr,
		"schemas_dir":   "",
		"watch":         false,
		"log.level":     DefaultLogLevel,
		"log.format":    DefaultLogFormat,
		"msql.base_url": DefaultMSQLBaseURL,
		"msql.timeout":  DefaultMSQLTimeout.String(),
		"theme.variant": DefaultThemeVariant,
	}
}

// Load reads the configuration. An empty path looks for DefaultFiles; flags
// may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	used, err := findFile(path)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, mapped := flagKeys[f.Name]
			if !mapped {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return explicit, nil
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// envKey turns ADMINFORM_LOG__LEVEL into log.level.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks option values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if c.MSQL.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("msql.timeout must be positive, got %s", c.MSQL.Timeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", raw, err)
	}
	return level, nil
}
