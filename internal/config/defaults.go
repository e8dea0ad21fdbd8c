package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Extraction providers.
const (
	ProviderRules  = "rules"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultInstruction is sent to LLM providers together with the raw reply.
const DefaultInstruction = `Extract two things from this daily standup response:
1. What the person worked on today
2. What they commit to doing tomorrow

Return a JSON object with exactly two keys, "today_work" and "tomorrow_commitment".
Use null for a value that is absent or too vague to be a real answer.`

var defaults = map[string]any{
	"logger.level": "info",
	"logger.json":  false,

	"database.path": "standup.db",

	"telegram.token":         "",
	"telegram.admin_user_id": 0,

	"extractor.provider":                   ProviderRules,
	"extractor.timeout":                    10 * time.Second,
	"extractor.instruction":                DefaultInstruction,
	"extractor.gemini.api_key":             "",
	"extractor.gemini.model_name":          "gemini-2.0-flash",
	"extractor.gemini.temperature":         0.3,
	"extractor.gemini.max_retries":         2,
	"extractor.gemini.retry_delay_seconds": 1,
	"extractor.openai.api_key":             "",
	"extractor.openai.base_url":            "",
	"extractor.openai.model":               "gpt-3.5-turbo",
	"extractor.openai.temperature":         0.3,

	"standup.channel_id":       0,
	"standup.timezone":         "America/New_York",
	"standup.hour":             9,
	"standup.minute":           0,
	"standup.response_window":  3 * time.Hour,
	"standup.follow_up_lead":   30 * time.Minute,
	"standup.dispatch_timeout": 15 * time.Second,
	"standup.history_limit":    5,

	"scheduler.tasks.sql_maintenance.enabled":  true,
	"scheduler.tasks.sql_maintenance.schedule": "0 0 3 * * 0",

	"messages.welcome":               "👋 Hi! I run the daily standup. Reply to the standup prompt with what you did today and what you will do tomorrow.",
	"messages.help":                  "Reply to the daily prompt like:\nToday I worked on the API. Tomorrow I will write tests.\n\nAdmin commands:\n/set_channel\n/set_time HOUR MINUTE\n/set_timezone Area/City\n/show_config\n/view_commitments\n/test_follow_ups [YYYY-MM-DD]\n/test_standup\n/schedule_test_standup MINUTES\n/history [N]",
	"messages.unauthorized":          "🚫 This command is restricted to the standup admin.",
	"messages.general_error":         "❌ Something went wrong. Please try again later.",
	"messages.response_error":        "❌ Sorry, there was an error processing your response. Please try again.",
	"messages.parse_failed":          "⚠️ I couldn't parse your response. Please include what you worked on today and what you will do tomorrow.",
	"messages.recorded_today":        "✅ Recorded today's work: %s",
	"messages.recorded_tomorrow":     "📝 Recorded tomorrow's commitment: %s",
	"messages.channel_set":           "✅ Standup channel set to this chat.",
	"messages.time_set":              "✅ Standup time set to %02d:%02d (%s). Follow-ups run at %02d:%02d.",
	"messages.timezone_set":          "✅ Timezone set to %s.",
	"messages.time_usage":            "Usage: /set_time HOUR MINUTE (hour 0-23, minute 0-59)",
	"messages.timezone_usage":        "Usage: /set_timezone Area/City, for example /set_timezone Europe/Berlin",
	"messages.schedule_usage":        "Usage: /schedule_test_standup MINUTES (at least 1)",
	"messages.follow_ups_usage":      "Usage: /test_follow_ups [YYYY-MM-DD|today] (defaults to yesterday)",
	"messages.history_usage":         "Usage: /history [N] (1-50)",
	"messages.show_config":           "⚙️ Standup configuration\nChannel: %s\nTimezone: %s\nStandup time: %02d:%02d\nFollow-up time: %02d:%02d",
	"messages.not_set":               "not set",
	"messages.no_channel":            "⚠️ No standup channel configured. Run /set_channel in the standup chat first.",
	"messages.no_commitments":        "No open commitments for %s.",
	"messages.commitments_header":    "📋 Open commitments for %s:",
	"messages.follow_ups_done":       "✅ Follow-up run for %s finished: %d sent, %d failed.",
	"messages.standup_sent":          "✅ Standup prompt sent.",
	"messages.standup_scheduled":     "⏰ Test standup scheduled for %s.",
	"messages.no_history":            "No standup responses recorded for you yet.",
	"messages.history_header":        "🗂 Your recent standups:",
	"messages.prompt_title":          "🌅 Daily Standup Time!",
	"messages.prompt_description":    "Good morning team! Time for our daily standup.",
	"messages.prompt_today":          "What did you work on today?",
	"messages.prompt_tomorrow":       "What will you commit to doing tomorrow?",
	"messages.prompt_how_to":         "Reply to this message, for example: Today I worked on X. Tomorrow I will do Y.",
	"messages.follow_up_title":       "📋 Accountability Check-in",
	"messages.follow_up_description": "Hey %s! Following up on your commitment from %s.",
	"messages.follow_up_status":      "Did you get this done? Reply with an update!",
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
