// Package config provides configuration management for the duet relay.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Credential environment variables. All four are required
const (
	EnvLeadDiscordToken        = "LEAD_DISCORD_TOKEN"
	EnvFollowerDiscordToken    = "FOLLOWER_DISCORD_TOKEN"
	EnvLeadAnthropicAPIKey     = "LEAD_ANTHROPIC_API_KEY"
	EnvFollowerAnthropicAPIKey = "FOLLOWER_ANTHROPIC_API_KEY"
)

// Config holds the configuration for a relay run
type Config struct {
	// Credentials
	LeadDiscordToken        string `mapstructure:"lead_discord_token"`
	FollowerDiscordToken    string `mapstructure:"follower_discord_token"`
	LeadAnthropicAPIKey     string `mapstructure:"lead_anthropic_api_key"`
	FollowerAnthropicAPIKey string `mapstructure:"follower_anthropic_api_key"`

	// Backend request parameters
	Model           string `mapstructure:"model"`
	MaxOutputTokens int64  `mapstructure:"max_output_tokens"`
	TopK            int64  `mapstructure:"top_k"`

	// Routing
	LeadName          string `mapstructure:"lead_name"`
	FollowerName      string `mapstructure:"follower_name"`
	LeadAccountID     string `mapstructure:"lead_account_id"`     // Overrides the id reported by the platform
	FollowerAccountID string `mapstructure:"follower_account_id"` // Overrides the id reported by the platform
	MaxReplies        int    `mapstructure:"max_replies"`         // Per identity; zero means unbounded
	InboxSize         int    `mapstructure:"inbox_size"`

	// Output
	LogFile       string `mapstructure:"log_file"`
	LogLevel      string `mapstructure:"log_level"`
	TranscriptDir string `mapstructure:"transcript_dir"`

	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// ConfigurationError reports missing or invalid configuration. It is fatal at start-up
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model", string(anthropic.ModelClaudeSonnet4_0))
	v.SetDefault("max_output_tokens", 450)
	v.SetDefault("top_k", 2)
	v.SetDefault("lead_name", "JJ")
	v.SetDefault("follower_name", "CHOW-MEIN")
	v.SetDefault("lead_account_id", "")
	v.SetDefault("follower_account_id", "")
	v.SetDefault("max_replies", 0)
	v.SetDefault("inbox_size", 64)
	v.SetDefault("log_file", "duet.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("transcript_dir", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
}

// LoadDotEnv loads a .env file from the working directory into the process environment, if one exists
func LoadDotEnv() error {
	return godotenv.Load()
}

// Load reads configuration from v. configPath, if set, names a YAML file to read first; environment variables and any
// flags already bound on v take precedence over it
func Load(v *viper.Viper, configPath string) (Config, error) {
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	credentials := map[string]string{
		"lead_discord_token":         EnvLeadDiscordToken,
		"follower_discord_token":     EnvFollowerDiscordToken,
		"lead_anthropic_api_key":     EnvLeadAnthropicAPIKey,
		"follower_anthropic_api_key": EnvFollowerAnthropicAPIKey,
	}
	for key, env := range credentials {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}
	v.SetEnvPrefix("DUET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the required configuration is present
func (c Config) Validate() error {
	problems := []string{}

	required := []struct {
		value string
		env   string
	}{
		{c.LeadDiscordToken, EnvLeadDiscordToken},
		{c.FollowerDiscordToken, EnvFollowerDiscordToken},
		{c.LeadAnthropicAPIKey, EnvLeadAnthropicAPIKey},
		{c.FollowerAnthropicAPIKey, EnvFollowerAnthropicAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			problems = append(problems, fmt.Sprintf("missing required environment variable: %s", r.env))
		}
	}

	if c.Model == "" {
		problems = append(problems, "model must not be empty")
	}
	if c.MaxOutputTokens <= 0 {
		problems = append(problems, fmt.Sprintf("max_output_tokens must be positive, got %d", c.MaxOutputTokens))
	}
	if c.TopK < 0 {
		problems = append(problems, fmt.Sprintf("top_k must not be negative, got %d", c.TopK))
	}
	if c.MaxReplies < 0 {
		problems = append(problems, fmt.Sprintf("max_replies must not be negative, got %d", c.MaxReplies))
	}
	if c.InboxSize <= 0 {
		problems = append(problems, fmt.Sprintf("inbox_size must be positive, got %d", c.InboxSize))
	}
	if c.LeadName == "" || c.FollowerName == "" {
		problems = append(problems, "lead_name and follower_name must not be empty")
	} else if c.LeadName == c.FollowerName {
		problems = append(problems, "lead_name and follower_name must differ")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// IsConfigurationError reports whether err is, or wraps, a *ConfigurationError
func IsConfigurationError(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}
