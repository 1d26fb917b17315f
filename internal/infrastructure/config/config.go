package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	Notify   NotifyConfig   `mapstructure:"notify" yaml:"notify"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	Mode string `mapstructure:"mode" yaml:"mode"` // local, production
}

// DatabaseConfig configures the moderation store.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // sqlite, postgres, memory
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AnalyzerConfig selects and configures the analysis backend. One flat
// struct shared by every backend; each backend reads the fields it needs.
type AnalyzerConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // basic, keyword, imagecheck, embedding, openaimod, gemini

	// Hosted backends
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`

	// keyword backend: optional denylist file, hot-reloaded on change
	DenylistPath string `mapstructure:"denylist_path" yaml:"denylist_path"`

	// embedding backend: similarity threshold on the top inappropriate match
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// NotifyConfig configures alert channels. A channel missing its required
// fields reports skipped and is never persisted.
type NotifyConfig struct {
	Slack    SlackConfig    `mapstructure:"slack" yaml:"slack"`
	Email    EmailConfig    `mapstructure:"email" yaml:"email"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
}

// SlackConfig configures the Slack incoming-webhook channel.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// EmailConfig configures the Brevo transactional-email channel.
type EmailConfig struct {
	APIKey      string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	FromName    string `mapstructure:"from_name" yaml:"from_name"`
	FromAddress string `mapstructure:"from_address" yaml:"from_address"`
	ToName      string `mapstructure:"to_name" yaml:"to_name"`
	ToAddress   string `mapstructure:"to_address" yaml:"to_address"`
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

// Load reads layered configuration: defaults, then the global
// ~/.modsentry/config.yaml, then a local ./config.yaml override, then
// MODSENTRY_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(HomeDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			v2 := viper.New()
			v2.SetConfigFile(localPath)
			if err := v2.ReadInConfig(); err == nil {
				_ = v.MergeConfigMap(v2.AllSettings())
			}
			break
		}
	}

	v.SetEnvPrefix("MODSENTRY")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "local")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "modsentry.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("analyzer.type", "basic")
	v.SetDefault("analyzer.threshold", 0.3)
	v.SetDefault("analyzer.model", "gemini-1.5-flash")

	v.SetDefault("notify.email.base_url", "https://api.brevo.com")
	v.SetDefault("notify.email.from_name", "Content Moderator")
	v.SetDefault("notify.email.to_name", "Admin")
}

// Dump renders the effective configuration as YAML (for `modsentry config`).
// Secrets are not redacted; intended for local debugging only.
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
