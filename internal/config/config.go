// Package config loads, defaults and validates the standup bot configuration.
// Values come from built-in defaults, an optional YAML file and STANDUP_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Standup   StandupConfig   `mapstructure:"standup"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds the bot credentials. BotInfo is filled at runtime.
type TelegramConfig struct {
	Token       string       `mapstructure:"token"         validate:"required"`
	AdminUserID int64        `mapstructure:"admin_user_id" validate:"required,gt=0"`
	BotInfo     *models.User `mapstructure:"-"`
}

// ExtractorConfig selects the commitment extraction strategy.
type ExtractorConfig struct {
	Provider    string        `mapstructure:"provider"    validate:"oneof=rules gemini openai"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=2m"`
	Instruction string        `mapstructure:"instruction" validate:"required"`
	Gemini      GeminiConfig  `mapstructure:"gemini"`
	OpenAI      OpenAIConfig  `mapstructure:"openai"`
}

// GeminiConfig configures the Gemini extraction client.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required_if=Enabled true"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=5"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=30"`
	Enabled           bool    `mapstructure:"-"`
}

// OpenAIConfig configures the OpenAI extraction client.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"     validate:"required_if=Enabled true"`
	BaseURL     string  `mapstructure:"base_url"    validate:"omitempty,url"`
	Model       string  `mapstructure:"model"       validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	Enabled     bool    `mapstructure:"-"`
}

// StandupConfig seeds the runtime settings and bounds standup processing.
// Channel, timezone, hour and minute are only defaults: once an admin changes
// them the values persisted in the database win.
type StandupConfig struct {
	ChannelID       int64         `mapstructure:"channel_id"`
	Timezone        string        `mapstructure:"timezone"         validate:"required,timezone"`
	Hour            int           `mapstructure:"hour"             validate:"min=0,max=23"`
	Minute          int           `mapstructure:"minute"           validate:"min=0,max=59"`
	ResponseWindow  time.Duration `mapstructure:"response_window"  validate:"min=1m"`
	FollowUpLead    time.Duration `mapstructure:"follow_up_lead"   validate:"min=0,max=23h"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout" validate:"min=1s,max=5m"`
	HistoryLimit    int           `mapstructure:"history_limit"    validate:"min=1,max=50"`
}

// TaskConfig configures a named maintenance task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// SchedulerConfig lists the cron maintenance tasks.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// MessagesConfig holds every user-facing text.
type MessagesConfig struct {
	Welcome             string `mapstructure:"welcome"               validate:"required"`
	Help                string `mapstructure:"help"                  validate:"required"`
	Unauthorized        string `mapstructure:"unauthorized"          validate:"required"`
	GeneralError        string `mapstructure:"general_error"         validate:"required"`
	ResponseError       string `mapstructure:"response_error"        validate:"required"`
	ParseFailed         string `mapstructure:"parse_failed"          validate:"required"`
	RecordedToday       string `mapstructure:"recorded_today"        validate:"required"`
	RecordedTomorrow    string `mapstructure:"recorded_tomorrow"     validate:"required"`
	ChannelSet          string `mapstructure:"channel_set"           validate:"required"`
	TimeSet             string `mapstructure:"time_set"              validate:"required"`
	TimezoneSet         string `mapstructure:"timezone_set"          validate:"required"`
	TimeUsage           string `mapstructure:"time_usage"            validate:"required"`
	TimezoneUsage       string `mapstructure:"timezone_usage"        validate:"required"`
	ScheduleUsage       string `mapstructure:"schedule_usage"        validate:"required"`
	FollowUpsUsage      string `mapstructure:"follow_ups_usage"      validate:"required"`
	HistoryUsage        string `mapstructure:"history_usage"         validate:"required"`
	ShowConfig          string `mapstructure:"show_config"           validate:"required"`
	NotSet              string `mapstructure:"not_set"               validate:"required"`
	NoChannel           string `mapstructure:"no_channel"            validate:"required"`
	NoCommitments       string `mapstructure:"no_commitments"        validate:"required"`
	CommitmentsHeader   string `mapstructure:"commitments_header"    validate:"required"`
	FollowUpsDone       string `mapstructure:"follow_ups_done"       validate:"required"`
	StandupSent         string `mapstructure:"standup_sent"          validate:"required"`
	StandupScheduled    string `mapstructure:"standup_scheduled"     validate:"required"`
	NoHistory           string `mapstructure:"no_history"            validate:"required"`
	HistoryHeader       string `mapstructure:"history_header"        validate:"required"`
	PromptTitle         string `mapstructure:"prompt_title"          validate:"required"`
	PromptDescription   string `mapstructure:"prompt_description"    validate:"required"`
	PromptToday         string `mapstructure:"prompt_today"          validate:"required"`
	PromptTomorrow      string `mapstructure:"prompt_tomorrow"       validate:"required"`
	PromptHowTo         string `mapstructure:"prompt_how_to"         validate:"required"`
	FollowUpTitle       string `mapstructure:"follow_up_title"       validate:"required"`
	FollowUpDescription string `mapstructure:"follow_up_description" validate:"required"`
	FollowUpStatus      string `mapstructure:"follow_up_status"      validate:"required"`
}

// LoadConfig reads the configuration at path. A missing file is not an
// error: defaults and environment variables are used instead.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("STANDUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	c.Extractor.Gemini.Enabled = c.Extractor.Provider == ProviderGemini
	c.Extractor.OpenAI.Enabled = c.Extractor.Provider == ProviderOpenAI

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Standup.FollowUpLead >= 24*time.Hour {
		return fmt.Errorf("invalid configuration: follow_up_lead must be shorter than a day")
	}
	return nil
}

// Location returns the configured default timezone.
func (s StandupConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}
