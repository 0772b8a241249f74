package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bnema/ledgerctl/internal/adapters/out/docker"
	"github.com/bnema/ledgerctl/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	Container struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"container"`

	// Platform is passed through to the fresh-start script untouched.
	Platform string `mapstructure:"platform"`

	Probe struct {
		Host    string        `mapstructure:"host"`
		Port    int           `mapstructure:"port"`
		Path    string        `mapstructure:"path"`
		Timeout time.Duration `mapstructure:"timeout"`
		CAFile  string        `mapstructure:"ca_file"` // verify the node certificate when set
	} `mapstructure:"probe"`

	Service struct {
		StopTimeout time.Duration `mapstructure:"stop_timeout"`
	} `mapstructure:"service"`

	Backup struct {
		Dir         string `mapstructure:"dir"`
		HelperImage string `mapstructure:"helper_image"`
	} `mapstructure:"backup"`

	FreshStart struct {
		Script     string `mapstructure:"script"`
		Transcript string `mapstructure:"transcript"`
	} `mapstructure:"freshstart"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// envAliases are the plain environment names the node scripts already use.
var envAliases = map[string]string{
	"container.name": "CONTAINER_NAME",
	"platform":       "PLATFORM",
	"probe.port":     "CCF_PORT",
}

// LoadConfig reads the config file, .env and environment, in increasing
// order of precedence.
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadConfig loads configuration from file and sets defaults.
func loadConfig(v *viper.Viper, configPath string) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	v.SetDefault("container.name", "ccf-node")
	v.SetDefault("platform", "virtual")
	v.SetDefault("probe.host", "127.0.0.1")
	v.SetDefault("probe.port", 8000)
	v.SetDefault("probe.path", "/node/state")
	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.ca_file", "")
	v.SetDefault("service.stop_timeout", "30s")
	v.SetDefault("backup.dir", "./backups")
	v.SetDefault("backup.helper_image", docker.DefaultHelperImage)
	v.SetDefault("freshstart.script", "./scripts/start-ccf.sh")
	v.SetDefault("freshstart.transcript", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEDGERCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, alias := range envAliases {
		prefixed := "LEDGERCTL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("failed to bind %s: %w", alias, err)
		}
	}

	return nil
}

func (c Config) validate() error {
	if _, err := domain.NewIdentity(c.Container.Name); err != nil {
		return fmt.Errorf("container.name: %w", err)
	}
	if c.Probe.Port < 1 || c.Probe.Port > 65535 {
		return fmt.Errorf("%w: probe.port %d out of range", domain.ErrInvalidConfig, c.Probe.Port)
	}
	if c.Service.StopTimeout <= 0 {
		return fmt.Errorf("%w: service.stop_timeout must be positive", domain.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Backup.Dir) == "" {
		return fmt.Errorf("%w: backup.dir is required", domain.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.FreshStart.Script) == "" {
		return fmt.Errorf("%w: freshstart.script is required", domain.ErrInvalidConfig)
	}
	return nil
}

// logFilePath returns the configured log file path or a default.
func (c Config) logFilePath() string {
	if c.Logging.File.Path != "" {
		return c.Logging.File.Path
	}
	return filepath.Join(DefaultDataDir(), "logs", "ledgerctl.log")
}
