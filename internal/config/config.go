// Package config loads treetool settings from a versioned YAML file and
// the process environment. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jacksonlee411/tree-of-life/modules/treeoflife/infrastructure/persistence"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Database struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlite_path"`
}

type Store struct {
	BatchSize int    `yaml:"batch_size"`
	NodeTable string `yaml:"node_table"`
	PathTable string `yaml:"path_table"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Version  int      `yaml:"version"`
	Database Database `yaml:"database"`
	Store    Store    `yaml:"store"`
	Log      Log      `yaml:"log"`
}

func Default() Config {
	return Config{
		Version: 1,
		Database: Database{
			Driver:     DriverPostgres,
			SQLitePath: "treeoflife.db",
		},
		Log: Log{Level: "info", Format: "console"},
	}
}

// Load reads the file named by path, or TREETOOL_CONFIG, or
// config/treetool.yaml found by walking up from the working directory.
// A missing default file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if v := os.Getenv("TREETOOL_CONFIG"); v != "" {
			path = v
			explicit = true
		}
	}
	if !explicit {
		path = defaultConfigPath()
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
		if cfg.Version != 1 {
			return Config{}, errors.New("config: unsupported version")
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			return errors.New("config: database.sqlite_path is required for sqlite")
		}
	default:
		return fmt.Errorf("config: unsupported database.driver %q", c.Database.Driver)
	}
	if c.Store.BatchSize < 0 || c.Store.BatchSize > persistence.MaxBatchSize {
		return fmt.Errorf("config: store.batch_size must be between 0 and %d", persistence.MaxBatchSize)
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unsupported log.format %q", c.Log.Format)
	}
	return nil
}

// PostgresDSN returns the configured DSN, falling back to the DATABASE_URL
// and DB_* environment variables.
func (c Config) PostgresDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return dsnFromEnv()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TREETOOL_DB_DRIVER"); v != "" {
		cfg.Database.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("TREETOOL_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TREETOOL_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: TREETOOL_BATCH_SIZE: %w", err)
		}
		cfg.Store.BatchSize = n
	}
	if v := os.Getenv("TREETOOL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func dsnFromEnv() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getenvDefault("DB_HOST", "127.0.0.1")
	port := getenvDefault("DB_PORT", "5432")
	user := getenvDefault("DB_USER", "app")
	pass := getenvDefault("DB_PASSWORD", "app")
	name := getenvDefault("DB_NAME", "tree_of_life")
	sslmode := getenvDefault("DB_SSLMODE", "disable")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   host + ":" + port,
		Path:   "/" + name,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultConfigPath() string {
	path := "config/treetool.yaml"
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		path = filepath.Join("..", path)
	}
	return ""
}
