package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	Compare     CompareConfig     `mapstructure:"compare"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	AI          AIConfig          `mapstructure:"ai"`
}

type ApplicationConfig struct {
	Name        string        `mapstructure:"name" validate:"required"`
	Version     string        `mapstructure:"version"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port" validate:"min=1,max=65535"`
	MaxUploadMB int           `mapstructure:"max_upload_mb" validate:"min=1"`
	Storage     StorageConfig `mapstructure:"storage"`
}

// Addr is the listen address of the HTTP server.
func (c ApplicationConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaxUploadBytes is the size limit for each uploaded deck.
func (c ApplicationConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

type StorageConfig struct {
	// Watch is the directory observed for new deck revisions. Empty disables the watcher.
	Watch    string `mapstructure:"watch"`
	Baseline string `mapstructure:"baseline" validate:"required_with=Watch"`
	Reports  string `mapstructure:"reports" validate:"required_with=Watch"`
}

type CompareConfig struct {
	PreviewMaxSide     int           `mapstructure:"preview_max_side" validate:"min=1"`
	MaxGroupDepth      int           `mapstructure:"max_group_depth" validate:"min=1"`
	DiffTimeout        time.Duration `mapstructure:"diff_timeout"`
	ParallelExtraction bool          `mapstructure:"parallel_extraction"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"loglevel"`
	Format     string `mapstructure:"format" validate:"logformat"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
}

type AIConfig struct {
	ActiveProvider string                      `mapstructure:"active_provider"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
}

type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // gemini, mock
	Key         string  `mapstructure:"key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Active returns the settings of the active provider, if any.
func (c AIConfig) Active() (ProviderSettings, bool) {
	if c.ActiveProvider == "" || c.ActiveProvider == "none" {
		return ProviderSettings{}, false
	}
	p, ok := c.Providers[c.ActiveProvider]
	if !ok {
		return ProviderSettings{}, false
	}
	if p.Driver == "" {
		p.Driver = c.ActiveProvider
	}
	return p, true
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

// Enabled reports whether a run log database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

func (c *DatabaseConfig) GetConnectStr() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, sslmode)

	if c.Options != "" {
		// options carries libpq flags like "-c search_path=x"; spaces must be escaped.
		connStr += "&options=" + strings.ReplaceAll(c.Options, " ", "%20")
	}

	return connStr
}

// LoadConfig reads .env, the optional YAML file at path and the environment.
// An empty path means config.yaml in the working directory.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	mappings := []struct {
		key, env string
	}{
		{"application.host", "HOST"},
		{"application.port", "PORT"},
		{"application.max_upload_mb", "MAX_UPLOAD_MB"},
		{"application.storage.watch", "STORAGE_WATCH"},
		{"application.storage.baseline", "STORAGE_BASELINE"},
		{"application.storage.reports", "STORAGE_REPORTS"},

		{"compare.preview_max_side", "PREVIEW_MAX_SIDE"},
		{"compare.max_group_depth", "MAX_GROUP_DEPTH"},
		{"compare.diff_timeout", "DIFF_TIMEOUT"},
		{"compare.parallel_extraction", "PARALLEL_EXTRACTION"},

		{"log.level", "LOG_LEVEL"},
		{"log.format", "LOG_FORMAT"},
		{"log.file", "LOG_FILE"},

		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},

		{"ai.active_provider", "AI_PROVIDER"},
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},
	}

	for _, m := range mappings {
		if err := v.BindEnv(m.key, m.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", m.env, err)
		}
	}

	v.SetDefault("application.name", "SlideDiff")
	v.SetDefault("application.version", "dev")
	v.SetDefault("application.host", "")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.max_upload_mb", 100)
	v.SetDefault("compare.preview_max_side", 100)
	v.SetDefault("compare.max_group_depth", 64)
	v.SetDefault("compare.diff_timeout", time.Second)
	v.SetDefault("compare.parallel_extraction", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("ai.providers.gemini.driver", "gemini")
	v.SetDefault("ai.providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("ai.providers.mock.driver", "mock")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
