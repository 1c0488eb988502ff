package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment-driven settings for the dotion server.
// Values are read from the environment with envconfig; flags may override
// individual fields after Load.
type Config struct {
	// HTTP listeners
	ListenAddr  string `envconfig:"DOTION_LISTEN_ADDR" default:":3000"`
	MetricsAddr string `envconfig:"DOTION_METRICS_ADDR" default:":9090"`

	// Google OAuth and Calendar
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `envconfig:"GOOGLE_REDIRECT_URI"`
	GoogleCalendarID   string `envconfig:"GOOGLE_CALENDAR_ID"`
	GoogleTimeZone     string `envconfig:"GOOGLE_TIMEZONE" default:"UTC"`

	// OpenAI
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o"`

	// Prompt token budget for the model context window and the slice
	// reserved for the response.
	ContextTokens int `envconfig:"DOTION_CONTEXT_TOKENS" default:"16000"`
	ReserveTokens int `envconfig:"DOTION_RESERVE_TOKENS" default:"2000"`

	// App control (desktop variant). When disabled the manage_app tool
	// reports an unsupported-platform failure instead of shelling out.
	AppControlEnabled bool `envconfig:"DOTION_APP_CONTROL_ENABLED" default:"true"`

	// SecureCookies controls the Secure attribute on session cookies.
	// Disable only for plain-HTTP local development.
	SecureCookies bool `envconfig:"DOTION_SECURE_COOKIES" default:"false"`

	// Logging
	LogLevel  string `envconfig:"DOTION_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"DOTION_LOG_FORMAT" default:"text"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `envconfig:"DOTION_SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// ValidateServe checks the settings required to run the API server.
// OAuth credentials are optional at startup: without them the calendar
// panel simply stays signed out, matching the chat-only mode.
func (c *Config) ValidateServe() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.GoogleCalendarID == "" {
		return fmt.Errorf("GOOGLE_CALENDAR_ID is required")
	}
	if _, err := time.LoadLocation(c.GoogleTimeZone); err != nil {
		return fmt.Errorf("invalid GOOGLE_TIMEZONE %q: %w", c.GoogleTimeZone, err)
	}
	if c.ContextTokens <= c.ReserveTokens {
		return fmt.Errorf("DOTION_CONTEXT_TOKENS (%d) must exceed DOTION_RESERVE_TOKENS (%d)",
			c.ContextTokens, c.ReserveTokens)
	}
	return nil
}

// OAuthConfigured reports whether the Google OAuth flow can be offered.
func (c *Config) OAuthConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

// Location returns the configured timezone location. Call ValidateServe first;
// an invalid zone falls back to UTC here.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.GoogleTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
