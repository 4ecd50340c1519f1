// Package config provides layered configuration loading for the uidgen service.
// It merges Defaults -> Environment Variables, with validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped onto keys.
const EnvPrefix = "UIDGEN_"

// Directory source kinds.
const (
	DirectorySQLite = "sqlite"
	DirectoryFile   = "file"
)

// Config holds the merged runtime configuration for the uidgen service.
type Config struct {
	Addr                  string        `koanf:"addr" validate:"required,ip_port"`
	DataDir               string        `koanf:"data_dir" validate:"required,safe_path"`
	NumberOfDigits        int           `koanf:"number_of_digits" validate:"min=1,max=9"`
	UniqueTag             string        `koanf:"unique_tag" validate:"required,max=32,printascii"`
	MaxBatch              int           `koanf:"max_batch" validate:"min=1"`
	CredentialsFile       string        `koanf:"credentials_file" validate:"required"`
	KeyFile               string        `koanf:"key_file"`
	DirectoryKind         string        `koanf:"directory_kind" validate:"oneof=sqlite file"`
	DirectoryPath         string        `koanf:"directory_path"`
	ResyncInterval        time.Duration `koanf:"resync_interval" validate:"gte=0"`
	MetricsFlush          time.Duration `koanf:"metrics_flush" validate:"gt=0"`
	AllowDuplicateSecrets bool          `koanf:"allow_duplicate_secrets"`
	LogLevel              slog.Level    `koanf:"log_level"`
	LogFormat             string        `koanf:"log_format" validate:"oneof=text json"`
}

// DefaultAppConfig is the lowest configuration layer.
var DefaultAppConfig = Config{
	Addr:            ":8080",
	DataDir:         "data",
	NumberOfDigits:  6,
	UniqueTag:       "u",
	MaxBatch:        1000,
	CredentialsFile: "config/credentials.yaml",
	DirectoryKind:   DirectorySQLite,
	MetricsFlush:    5 * time.Second,
	LogLevel:        slog.LevelInfo,
	LogFormat:       "text",
}

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil)
}

var registerValidators = func(v *validator.Validate) error {
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	return v.RegisterValidation("safe_path", validSafePath)
}

// Load reads defaults then environment overrides, decodes them into a Config
// and validates the result. Empty key_file and directory_path are derived
// from data_dir after validation.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				StringToLogLevel(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	v := validator.New()
	if err := registerValidators(v); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	cfg.applyDerived()
	return &cfg, nil
}

// check performs the validations that span more than one field.
func (c *Config) check() error {
	if strings.ContainsAny(c.UniqueTag, " \t") {
		return errors.New("unique_tag must not contain whitespace")
	}
	if c.DirectoryKind == DirectoryFile && c.DirectoryPath == "" {
		return errors.New("directory_path is required when directory_kind is file")
	}
	return nil
}

func (c *Config) applyDerived() {
	if c.KeyFile == "" {
		c.KeyFile = filepath.Join(c.DataDir, "secret.bin")
	}
	if c.DirectoryPath == "" {
		c.DirectoryPath = filepath.Join(c.DataDir, "directory.db")
	}
}

const sqliteParams = "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=FULL"

// SQLiteDSN returns the DSN of the service's own database (metrics).
func (c *Config) SQLiteDSN() string {
	return "file:" + path.Join(c.DataDir, "uidgen.db") + sqliteParams
}

// DirectoryDSN returns the DSN of the sqlite directory source.
func (c *Config) DirectoryDSN() string {
	return "file:" + filepath.ToSlash(c.DirectoryPath) + sqliteParams
}

// validIPPort accepts "host:port" where host is empty or a literal IP and port is 1..65535.
func validIPPort(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsAny(s, " \t") {
		return false
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return p >= 1 && p <= 65535
}

// validSafePath rejects empty, root, current-directory and parent-traversing paths.
func validSafePath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if strings.TrimSpace(p) == "" {
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
