package models

import "time"

// Config holds every tunable the bot reads at startup.
// It is built once by config.LoadConfig and never mutated afterwards.
type Config struct {
	Forum       string `mapstructure:"disqus_forum"`
	PublicKey   string `mapstructure:"disqus_public_key"`
	SecretKey   string `mapstructure:"disqus_secret_key"`
	AccessToken string `mapstructure:"disqus_access_token"`
	APIBase     string `mapstructure:"disqus_api_base"`

	PollInterval       time.Duration
	PostLimit          int `mapstructure:"post_limit"`
	ThreadPollInterval time.Duration
	ThreadLimit        int `mapstructure:"thread_limit"`

	WelcomeExisting bool   `mapstructure:"welcome_existing"`
	WelcomeText     string `mapstructure:"welcome_text"`
	DebugTriggers   bool   `mapstructure:"debug_triggers"`
	Debug           bool   `mapstructure:"debug"`

	ModCacheTTL    time.Duration
	HourlyMessages []string

	DBPath string `mapstructure:"db_path"`

	LLM LLMConfig `mapstructure:",squash"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint used for explanations.
type LLMConfig struct {
	APIKey  string `mapstructure:"groq_api_key"`
	Model   string `mapstructure:"groq_model"`
	BaseURL string `mapstructure:"groq_base_url"`
}
