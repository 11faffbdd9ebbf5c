// Package config provides layered configuration loading for the upid service.
// It merges Defaults -> Environment Variables, then validates the result.
package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/haukened/upid"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped to keys.
const EnvPrefix = "UPID_"

// Config holds the merged runtime configuration for the upid service.
type Config struct {
	Addr            string        `koanf:"addr" validate:"required,ip_port"`
	DataDir         string        `koanf:"data_dir" validate:"required,data_dir"`
	Prefixes        []string      `koanf:"prefixes" validate:"dive,upid_prefix"` // allowed prefixes; empty allows any
	Retention       time.Duration `koanf:"retention" validate:"gt=0"`
	JanitorInterval time.Duration `koanf:"janitor_interval" validate:"gt=0"`
	MetricsToken    string        `koanf:"metrics_token"`
	LogLevel        string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `koanf:"log_format" validate:"oneof=text json"`
}

// DefaultAppConfig is the lowest-precedence configuration layer.
var DefaultAppConfig = Config{
	Addr:            ":8080",
	DataDir:         "data",
	Retention:       30 * 24 * time.Hour,
	JanitorInterval: time.Hour,
	LogLevel:        "info",
	LogFormat:       "text",
}

// SQLiteDSN returns the go-sqlite3 DSN for the registry database in DataDir.
func (c *Config) SQLiteDSN() string {
	return "file:" + strings.TrimSuffix(c.DataDir, "/") + "/upid.db" +
		"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=FULL"
}

// Loader hooks are package variables so tests can inject failures.
var (
	defaultLoader = func(k *koanf.Koanf) error {
		return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
	}
	envLoader = func(k *koanf.Koanf) error {
		return k.Load(env.Provider(".", env.Opt{
			Prefix: EnvPrefix,
			TransformFunc: func(key, value string) (string, any) {
				return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
			},
		}), nil)
	}
	registerValidators = func(v *validator.Validate) error {
		if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
			return err
		}
		if err := v.RegisterValidation("data_dir", validDataDir); err != nil {
			return err
		}
		return v.RegisterValidation("upid_prefix", validPrefix)
	}
)

// Load builds the configuration from defaults and UPID_* environment
// variables and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				StringToPrefixes(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidators(v); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, err
	}
	if cfg.JanitorInterval >= cfg.Retention {
		return nil, errors.New("janitor_interval must be less than retention")
	}
	return &cfg, nil
}

// validIPPort accepts "host:port" where host is empty or a literal IP and port
// is within 1-65535.
func validIPPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n > 0 && n <= 65535
}

// validDataDir rejects the filesystem root, the working directory itself and
// any path containing a parent reference.
func validDataDir(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return false
		}
	}
	clean := filepath.Clean(p)
	return clean != "." && clean != string(filepath.Separator)
}

func validPrefix(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	return len(p) == 4 && upid.ValidPrefix(p)
}
