package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"disqus-bot/models"
	"disqus-bot/services"
)

// ErrMissingCredentials is returned when the forum identity or credentials are not configured.
var ErrMissingCredentials = errors.New("missing forum credentials")

var defaults = map[string]any{
	"disqus_forum":          "",
	"disqus_public_key":     "",
	"disqus_secret_key":     "",
	"disqus_access_token":   "",
	"disqus_api_base":       "https://disqus.com/api/3.0",
	"poll_seconds":          4,
	"post_limit":            50,
	"thread_poll_seconds":   20,
	"thread_limit":          25,
	"welcome_existing":      false,
	"welcome_text":          "Hallo #{HEX}",
	"debug_triggers":        false,
	"debug":                 false,
	"mod_cache_ttl_seconds": 43200,
	"hourly_messages":       "",
	"db_path":               "disqus_state.db",
	"groq_api_key":          "",
	"groq_model":            services.DefaultLLMModel,
	"groq_base_url":         services.DefaultLLMBaseURL,
}

// LoadConfig builds the configuration from, in order of precedence:
// environment variables (including a .env file), config.yaml in the working
// directory, and built-in defaults.
func LoadConfig() (*models.Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*models.Config, error) {
	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Forum = strings.TrimSpace(cfg.Forum)
	cfg.PublicKey = strings.TrimSpace(cfg.PublicKey)
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)

	var missing []string
	for name, val := range map[string]string{
		"DISQUS_FORUM":        cfg.Forum,
		"DISQUS_PUBLIC_KEY":   cfg.PublicKey,
		"DISQUS_ACCESS_TOKEN": cfg.AccessToken,
	} {
		if val == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	cfg.PollInterval = seconds(v, "poll_seconds")
	cfg.ThreadPollInterval = seconds(v, "thread_poll_seconds")
	cfg.ModCacheTTL = seconds(v, "mod_cache_ttl_seconds")
	cfg.HourlyMessages = SplitMessages(v.GetString("hourly_messages"))

	if cfg.PostLimit <= 0 {
		cfg.PostLimit = defaults["post_limit"].(int)
	}
	if cfg.ThreadLimit <= 0 {
		cfg.ThreadLimit = defaults["thread_limit"].(int)
	}
	return &cfg, nil
}

func seconds(v *viper.Viper, key string) time.Duration {
	n := v.GetInt64(key)
	if n <= 0 {
		n = int64(defaults[key].(int))
	}
	return time.Duration(n) * time.Second
}

// SplitMessages splits a pipe-delimited message pool, dropping blank entries.
func SplitMessages(raw string) []string {
	var out []string
	for _, m := range strings.Split(raw, "|") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
