// Package config resolves tsmig settings. Sources are applied in order, later ones win:
// defaults, TOML file, .env file, TSMIG_* environment variables, command line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/root-talis/tsmig/driver/mysql"
	"github.com/root-talis/tsmig/source/files"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	DefaultFile    = "tsmig.toml"
	DefaultEnvFile = ".env"

	envPrefix = "TSMIG_"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Driver      string
	DSN         string
	Dir         string
	Table       string
	Prefix      string
	LockTimeout time.Duration
	LogLevel    string
}

func Default() Config {
	return Config{
		Driver:      DriverMySQL,
		Dir:         "migrations",
		Table:       mysql.DefaultVersionsTableName,
		Prefix:      files.DefaultPrefix,
		LockTimeout: mysql.DefaultLockTimeout,
		LogLevel:    "info",
	}
}

type fileConfig struct {
	Driver      string `toml:"driver"`
	DSN         string `toml:"dsn"`
	Dir         string `toml:"dir"`
	Table       string `toml:"table"`
	Prefix      string `toml:"prefix"`
	LockTimeout string `toml:"lock_timeout"`
	LogLevel    string `toml:"log_level"`
}

// Load applies the config file and the environment on top of the defaults.
// An empty path falls back to DefaultFile, which may be absent. A missing envFile is ignored.
func Load(path string, envFile string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	if err := cfg.applyFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	env, err := readEnvFile(envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := env[key]
		return value, ok
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	if meta.IsDefined("driver") {
		cfg.Driver = strings.TrimSpace(raw.Driver)
	}
	if meta.IsDefined("dsn") {
		cfg.DSN = strings.TrimSpace(raw.DSN)
	}
	if meta.IsDefined("dir") {
		cfg.Dir = strings.TrimSpace(raw.Dir)
	}
	if meta.IsDefined("table") {
		cfg.Table = strings.TrimSpace(raw.Table)
	}
	if meta.IsDefined("prefix") {
		cfg.Prefix = strings.TrimSpace(raw.Prefix)
	}
	if meta.IsDefined("lock_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.LockTimeout))
		if err != nil {
			return fmt.Errorf("%w: lock_timeout: %s", ErrInvalidConfig, err.Error())
		}
		cfg.LockTimeout = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}

	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	return env, nil
}

// ApplyEnv overrides settings with TSMIG_DRIVER, TSMIG_DSN, TSMIG_DIR, TSMIG_TABLE,
// TSMIG_PREFIX, TSMIG_LOCK_TIMEOUT and TSMIG_LOG_LEVEL.
func (cfg *Config) ApplyEnv(lookup func(key string) (string, bool)) error {
	strs := map[string]*string{
		"DRIVER":    &cfg.Driver,
		"DSN":       &cfg.DSN,
		"DIR":       &cfg.Dir,
		"TABLE":     &cfg.Table,
		"PREFIX":    &cfg.Prefix,
		"LOG_LEVEL": &cfg.LogLevel,
	}

	for key, dst := range strs {
		if value, ok := lookup(envPrefix + key); ok && value != "" {
			*dst = value
		}
	}

	if value, ok := lookup(envPrefix + "LOCK_TIMEOUT"); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %sLOCK_TIMEOUT: %s", ErrInvalidConfig, envPrefix, err.Error())
		}
		cfg.LockTimeout = d
	}

	return nil
}

// ---

const (
	FlagConfig = "config"
	FlagDriver = "driver"
	FlagDSN    = "dsn"
	FlagDir    = "dir"
	FlagTable  = "table"
	FlagPrefix = "prefix"
)

// BindFlags registers the flags for settings that can be overridden from the command line.
func BindFlags(flags *pflag.FlagSet) {
	defaults := Default()

	flags.String(FlagConfig, "", "path to the config file (default "+DefaultFile+" when present)")
	flags.String(FlagDriver, defaults.Driver, "database driver: "+DriverMySQL+" or "+DriverSQLite)
	flags.String(FlagDSN, "", "data source name of the target database")
	flags.String(FlagDir, defaults.Dir, "directory with migration files")
	flags.String(FlagTable, defaults.Table, "name of the applied versions table")
	flags.String(FlagPrefix, defaults.Prefix, "migration file name prefix")
}

// ApplyFlags overrides settings with the flags that were set explicitly.
func (cfg *Config) ApplyFlags(flags *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagDriver: &cfg.Driver,
		FlagDSN:    &cfg.DSN,
		FlagDir:    &cfg.Dir,
		FlagTable:  &cfg.Table,
		FlagPrefix: &cfg.Prefix,
	}

	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}

		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (cfg Config) Validate() error {
	switch cfg.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}

	if strings.TrimSpace(cfg.DSN) == "" {
		return fmt.Errorf("%w: dsn is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return fmt.Errorf("%w: dir is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return fmt.Errorf("%w: table is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		return fmt.Errorf("%w: prefix is required", ErrInvalidConfig)
	}
	if cfg.LockTimeout <= 0 {
		return fmt.Errorf("%w: lock_timeout must be positive", ErrInvalidConfig)
	}

	return nil
}
