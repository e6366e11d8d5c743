package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Extractor   ExtractorConfig   `toml:"extractor"`
	Cache       CacheConfig       `toml:"cache"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey            string  `toml:"api_key"`
	MaxResults        int64   `toml:"max_results"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port"`
	MaxInFlight            int64  `toml:"max_in_flight"`
	ReadTimeoutSeconds     int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `toml:"write_timeout_seconds"`
	UpstreamTimeoutSeconds int    `toml:"upstream_timeout_seconds"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamTimeout returns the deadline applied to each upstream call.
func (s ServerConfig) UpstreamTimeout() time.Duration {
	return time.Duration(s.UpstreamTimeoutSeconds) * time.Second
}

// ExtractorConfig contains yt-dlp settings.
type ExtractorConfig struct {
	YtdlpPath    string `toml:"ytdlp_path"`
	Mode         string `toml:"mode"`
	AudioQuality int    `toml:"audio_quality"`
	WorkDir      string `toml:"work_dir"`
}

// CacheConfig contains the capacity of each per-operation result cache.
type CacheConfig struct {
	Search         int64 `toml:"search"`
	PlaylistItems  int64 `toml:"playlist_items"`
	Stream         int64 `toml:"stream"`
	PlaylistSearch int64 `toml:"playlist_search"`
	Download       int64 `toml:"download"`
}

// LoggingConfig contains log level and optional file rotation settings.
type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case string(SQLite), string(MySQL):
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalidConfig, c.Database.Driver)
	}

	switch c.Extractor.Mode {
	case "mp3", "mp4":
	default:
		return fmt.Errorf("%w: unsupported extractor mode %q", ErrInvalidConfig, c.Extractor.Mode)
	}

	if c.Server.MaxInFlight <= 0 {
		return fmt.Errorf("%w: server.max_in_flight must be positive", ErrInvalidConfig)
	}

	for name, size := range map[string]int64{
		"search":          c.Cache.Search,
		"playlist_items":  c.Cache.PlaylistItems,
		"stream":          c.Cache.Stream,
		"playlist_search": c.Cache.PlaylistSearch,
		"download":        c.Cache.Download,
	} {
		if size <= 0 {
			return fmt.Errorf("%w: cache.%s must be positive", ErrInvalidConfig, name)
		}
	}

	return nil
}

// ApplyEnv loads a .env file from the working directory when one exists and
// overrides config values with the environment variables that are set.
//
// Variables already present in the process environment win over the .env file.
func ApplyEnv(c *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	setString(&c.Credentials.YouTube.APIKey, "YOUTUBE_API_KEY")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.Server.Host, "SERVER_HOST")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Extractor.YtdlpPath, "YTDLP_PATH")

	if v, ok := os.LookupEnv("SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SERVER_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return c.Validate()
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
