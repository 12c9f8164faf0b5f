// Package config loads runtime settings. Sources are applied in order:
// built-in defaults, an optional TOML file, .env files, then the process
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Duration is a time.Duration written as "30s" in TOML and the environment.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type ServerConfig struct {
	Port            string   `toml:"port"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	RequestTimeout  Duration `toml:"request_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type StoreConfig struct {
	// Path is the SQLite database file.
	Path      string `toml:"path"`
	Ephemeral bool   `toml:"ephemeral"`
}

type GeminiConfig struct {
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout Duration `toml:"timeout"`
}

type GCSConfig struct {
	Bucket string `toml:"bucket"`
	Prefix string `toml:"prefix"`
}

type BigQueryConfig struct {
	ProjectID string `toml:"project_id"`
	Dataset   string `toml:"dataset"`

	// MirrorInterval is the minimum gap between automatic syncs from the
	// API server. Zero turns the automatic mirror off.
	MirrorInterval Duration `toml:"mirror_interval"`
}

type NotionConfig struct {
	Token      string `toml:"token"`
	DatabaseID string `toml:"database_id"`
}

type TaxConfig struct {
	// HRALimit is the placeholder HRA ceiling used by utilization tracking.
	HRALimit int64 `toml:"hra_limit"`
}

type WorkerConfig struct {
	Concurrency int `toml:"concurrency"`
	MaxRetries  int `toml:"max_retries"`
}

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Store    StoreConfig    `toml:"store"`
	Gemini   GeminiConfig   `toml:"gemini"`
	GCS      GCSConfig      `toml:"gcs"`
	BigQuery BigQueryConfig `toml:"bigquery"`
	Notion   NotionConfig   `toml:"notion"`
	Tax      TaxConfig      `toml:"tax"`
	Worker   WorkerConfig   `toml:"worker"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: Duration{10 * time.Second},
			RequestTimeout:  Duration{60 * time.Second},
		},
		Log:      LogConfig{Level: "info", Format: "console"},
		Store:    StoreConfig{Path: "taxtracker.db"},
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash", Timeout: Duration{45 * time.Second}},
		GCS:      GCSConfig{Prefix: "uploads"},
		BigQuery: BigQueryConfig{Dataset: "tax_tracker", MirrorInterval: Duration{time.Minute}},
		Tax:      TaxConfig{HRALimit: 360000},
		Worker:   WorkerConfig{Concurrency: 2, MaxRetries: 3},
	}
}

// Load builds the configuration. path may be empty. envFiles default to
// ".env"; missing env files are ignored, a missing TOML file is an error.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("Load: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return Config{}, fmt.Errorf("Load: %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("Load: env file %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Server.Port)
	str("TAXTRACKER_PORT", &cfg.Server.Port)
	str("TAXTRACKER_LOG_LEVEL", &cfg.Log.Level)
	str("TAXTRACKER_LOG_FORMAT", &cfg.Log.Format)
	str("TAXTRACKER_DB", &cfg.Store.Path)
	str("GEMINI_API_KEY", &cfg.Gemini.APIKey)
	str("GEMINI_MODEL", &cfg.Gemini.Model)
	str("GCS_BUCKET", &cfg.GCS.Bucket)
	str("GCP_PROJECT", &cfg.BigQuery.ProjectID)
	str("BQ_DATASET", &cfg.BigQuery.Dataset)
	str("NOTION_TOKEN", &cfg.Notion.Token)
	str("NOTION_DATABASE_ID", &cfg.Notion.DatabaseID)

	if v, ok := lookup("TAXTRACKER_EPHEMERAL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TAXTRACKER_EPHEMERAL: %w", err)
		}
		cfg.Store.Ephemeral = b
	}
	if v, ok := lookup("TAXTRACKER_HRA_LIMIT"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TAXTRACKER_HRA_LIMIT: %w", err)
		}
		cfg.Tax.HRALimit = n
	}
	if v, ok := lookup("TAXTRACKER_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TAXTRACKER_WORKERS: %w", err)
		}
		cfg.Worker.Concurrency = n
	}
	if v, ok := lookup("TAXTRACKER_SHUTDOWN_TIMEOUT"); ok && v != "" {
		if err := cfg.Server.ShutdownTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("TAXTRACKER_SHUTDOWN_TIMEOUT: %w", err)
		}
	}
	if v, ok := lookup("TAXTRACKER_MIRROR_INTERVAL"); ok && v != "" {
		if err := cfg.BigQuery.MirrorInterval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("TAXTRACKER_MIRROR_INTERVAL: %w", err)
		}
	}
	return nil
}

// Validate rejects settings the binaries cannot start with.
func (c Config) Validate() error {
	var problems []string
	if c.Server.Port == "" {
		problems = append(problems, "server.port is required")
	}
	if c.Tax.HRALimit <= 0 {
		problems = append(problems, "tax.hra_limit must be positive")
	}
	if c.Worker.Concurrency < 1 {
		problems = append(problems, "worker.concurrency must be at least 1")
	}
	if c.BigQuery.MirrorInterval.Duration < 0 {
		problems = append(problems, "bigquery.mirror_interval must not be negative")
	}
	if c.Worker.MaxRetries < 0 {
		problems = append(problems, "worker.max_retries must not be negative")
	}
	if !c.Store.Ephemeral && c.Store.Path == "" {
		problems = append(problems, "store.path is required unless store.ephemeral is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// HRALimit returns the configured HRA ceiling as a decimal.
func (c Config) HRALimit() decimal.Decimal {
	return decimal.NewFromInt(c.Tax.HRALimit)
}

// GeminiEnabled reports whether an API key is available.
func (c Config) GeminiEnabled() bool {
	return c.Gemini.APIKey != ""
}

// NotionEnabled reports whether both the token and database are set.
func (c Config) NotionEnabled() bool {
	return c.Notion.Token != "" && c.Notion.DatabaseID != ""
}

// WarehouseEnabled reports whether a BigQuery project is set.
func (c Config) WarehouseEnabled() bool {
	return c.BigQuery.ProjectID != ""
}
