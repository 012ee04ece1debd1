// Package config loads carprice settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultModelPath is where the serialized price model is expected.
	DefaultModelPath = "model_prediksi_harga_mobil.sav"
	// DefaultDatasetPath is the CSV shown in the dataset section.
	DefaultDatasetPath = "CarPrice.csv"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Model    ModelConfig    `mapstructure:"model" yaml:"model"`
	Dataset  DatasetConfig  `mapstructure:"dataset" yaml:"dataset"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port" yaml:"port"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type ModelConfig struct {
	Type   string       `mapstructure:"type" yaml:"type"`
	Path   string       `mapstructure:"path" yaml:"path"`
	Remote RemoteConfig `mapstructure:"remote" yaml:"remote"`
}

// RemoteConfig is only read when Model.Type is "remote".
type RemoteConfig struct {
	Addr    string        `mapstructure:"addr" yaml:"addr"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type DatasetConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	Encoding    string `mapstructure:"encoding" yaml:"encoding"`
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`
}

// DatabaseConfig holds the prediction history store. An empty path disables history.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type CacheConfig struct {
	Size int `mapstructure:"size" yaml:"size"`
}

type WatchConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Default returns the configuration used when no file or env override is present.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           8501,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Model: ModelConfig{
			Type: "linear_regression",
			Path: DefaultModelPath,
			Remote: RemoteConfig{
				Addr:    "localhost:50051",
				Timeout: 10 * time.Second,
			},
		},
		Dataset: DatasetConfig{
			Path:        DefaultDatasetPath,
			Encoding:    "utf-8",
			PreviewRows: 5,
		},
		Database: DatabaseConfig{Path: "carprice.db"},
		Cache:    CacheConfig{Size: 256},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads configuration from cfgFile (or ./config.yaml when empty), a .env file in the
// working directory and CARPRICE_* environment variables.
// Precedence: env > config file > defaults. A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CARPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("http.port", d.HTTP.Port)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.allowed_origins", d.HTTP.AllowedOrigins)
	v.SetDefault("model.type", d.Model.Type)
	v.SetDefault("model.path", d.Model.Path)
	v.SetDefault("model.remote.addr", d.Model.Remote.Addr)
	v.SetDefault("model.remote.timeout", d.Model.Remote.Timeout)
	v.SetDefault("dataset.path", d.Dataset.Path)
	v.SetDefault("dataset.encoding", d.Dataset.Encoding)
	v.SetDefault("dataset.preview_rows", d.Dataset.PreviewRows)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("cache.size", d.Cache.Size)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.Model.Type == "" {
		return fmt.Errorf("model.type is required")
	}
	if c.Model.Type != "remote" && c.Model.Path == "" {
		return fmt.Errorf("model.path is required for model type %q", c.Model.Type)
	}
	if c.Dataset.PreviewRows < 0 {
		return fmt.Errorf("dataset.preview_rows must not be negative")
	}
	return nil
}

// Save writes c to path as YAML, creating the parent directory if necessary.
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
