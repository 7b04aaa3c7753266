package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string
}

type TrelloConfig struct {
	APIKey      Secret
	APIToken    Secret
	BaseURL     string
	AppSecret   Secret
	CallbackURL string
	BoardIDs    []string
}

// RegistersWebhooks reports whether webhooks should be created at startup
// and removed at shutdown.
func (t TrelloConfig) RegistersWebhooks() bool {
	return t.CallbackURL != "" && len(t.BoardIDs) > 0
}

type MimecastConfig struct {
	BaseURL    string
	AppID      string
	SigningKey Secret
	Timeout    time.Duration
}

type EmailConfig struct {
	To       string
	ToName   string
	From     string
	FromName string
	Timezone string
	Location *time.Location
}

type OnboardingConfig struct {
	URL     string
	Timeout time.Duration
}

type Config struct {
	Server     ServerConfig
	Trello     TrelloConfig
	Mimecast   MimecastConfig
	Email      EmailConfig
	Onboarding OnboardingConfig
}

var envBindings = map[string][]string{
	"server.port":          {"PORT"},
	"trello.api_key":       {"TRELLO_API_KEY"},
	"trello.api_token":     {"TRELLO_API_TOKEN", "TRELLO_TOKEN"},
	"trello.base_url":      {"TRELLO_BASE_URL"},
	"trello.app_secret":    {"TRELLO_APP_SECRET"},
	"trello.callback_url":  {"TRELLO_CALLBACK_URL"},
	"trello.board_ids":     {"TRELLO_BOARD_IDS"},
	"mimecast.base_url":    {"MIMECAST_BASE_URL"},
	"mimecast.app_id":      {"MIMECAST_APP_ID"},
	"mimecast.signing_key": {"MIMECAST_SIGNING_KEY"},
	"mimecast.timeout":     {"MIMECAST_TIMEOUT"},
	"email.to":             {"EMAIL_TO"},
	"email.to_name":        {"EMAIL_TO_NAME"},
	"email.from":           {"EMAIL_FROM"},
	"email.from_name":      {"EMAIL_FROM_NAME"},
	"email.timezone":       {"EMAIL_TIMEZONE"},
	"onboarding.url":       {"ONBOARDING_URL"},
	"onboarding.timeout":   {"ONBOARDING_TIMEOUT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("trello.base_url", "https://api.trello.com/1")
	v.SetDefault("mimecast.base_url", "https://za-api.mimecast.com")
	v.SetDefault("mimecast.timeout", 10*time.Second)
	v.SetDefault("email.to_name", "Trello Notification")
	v.SetDefault("email.from", "noreply@kommunikasie.atkv.org.za")
	v.SetDefault("email.from_name", "ATKV Trello Bot")
	v.SetDefault("email.timezone", "Africa/Johannesburg")
	v.SetDefault("onboarding.timeout", 5*time.Second)
}

// Load reads config.toml from the working directory when present and
// overlays the environment on top of it. The result is validated.
func Load(v *viper.Viper) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Port: strings.TrimSpace(v.GetString("server.port")),
		},
		Trello: TrelloConfig{
			APIKey:      Secret(strings.TrimSpace(v.GetString("trello.api_key"))),
			APIToken:    Secret(strings.TrimSpace(v.GetString("trello.api_token"))),
			BaseURL:     strings.TrimRight(strings.TrimSpace(v.GetString("trello.base_url")), "/"),
			AppSecret:   Secret(strings.TrimSpace(v.GetString("trello.app_secret"))),
			CallbackURL: strings.TrimSpace(v.GetString("trello.callback_url")),
			BoardIDs:    splitList(v.GetStringSlice("trello.board_ids")),
		},
		Mimecast: MimecastConfig{
			BaseURL:    strings.TrimRight(strings.TrimSpace(v.GetString("mimecast.base_url")), "/"),
			AppID:      strings.TrimSpace(v.GetString("mimecast.app_id")),
			SigningKey: Secret(strings.TrimSpace(v.GetString("mimecast.signing_key"))),
			Timeout:    v.GetDuration("mimecast.timeout"),
		},
		Email: EmailConfig{
			To:       strings.TrimSpace(v.GetString("email.to")),
			ToName:   strings.TrimSpace(v.GetString("email.to_name")),
			From:     strings.TrimSpace(v.GetString("email.from")),
			FromName: strings.TrimSpace(v.GetString("email.from_name")),
			Timezone: strings.TrimSpace(v.GetString("email.timezone")),
		},
		Onboarding: OnboardingConfig{
			URL:     strings.TrimSpace(v.GetString("onboarding.url")),
			Timeout: v.GetDuration("onboarding.timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings and resolves the email timezone.
func (c *Config) Validate() error {
	var errs []error
	if c.Mimecast.SigningKey.IsZero() {
		errs = append(errs, errors.New("mimecast.signing_key is required"))
	}
	if c.Mimecast.AppID == "" {
		errs = append(errs, errors.New("mimecast.app_id is required"))
	}
	if c.Trello.APIKey.IsZero() || c.Trello.APIToken.IsZero() {
		errs = append(errs, errors.New("trello.api_key and trello.api_token are required"))
	}
	if c.Email.To == "" {
		errs = append(errs, errors.New("email.to is required"))
	}
	if c.Server.Port == "" {
		c.Server.Port = "3000"
	}
	if c.Mimecast.Timeout <= 0 {
		c.Mimecast.Timeout = 10 * time.Second
	}
	if c.Onboarding.Timeout <= 0 {
		c.Onboarding.Timeout = 5 * time.Second
	}
	if c.Email.Timezone == "" {
		c.Email.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(c.Email.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("email.timezone %q: %w", c.Email.Timezone, err))
	}
	c.Email.Location = loc
	return errors.Join(errs...)
}

func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
