package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	DefaultTenant string `mapstructure:"DEFAULT_TENANT"`

	// WhatsApp Cloud API webhook + outbound transport.
	WhatsAppVerifyToken string `mapstructure:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppAppSecret   string `mapstructure:"WHATSAPP_APP_SECRET"`
	WhatsAppToken       string `mapstructure:"WHATSAPP_TOKEN"`
	WhatsAppPhoneID     string `mapstructure:"WHATSAPP_PHONE_ID"`
	WhatsAppBaseURL     string `mapstructure:"WHATSAPP_BASE_URL"`

	// Risk classifier service.
	ClassifierURL     string        `mapstructure:"CLASSIFIER_URL"`
	ClassifierAPIKey  string        `mapstructure:"CLASSIFIER_API_KEY"`
	ClassifierTimeout time.Duration `mapstructure:"CLASSIFIER_TIMEOUT"`

	// Webhook rate limiting (sliding window per source IP).
	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	// Alert dispatch. When AMQP_URL is empty the in-process retry queue is used.
	AMQPURL             string `mapstructure:"AMQP_URL"`
	AlertQueueName      string `mapstructure:"ALERT_QUEUE_NAME"`
	AlertMaxRetries     int    `mapstructure:"ALERT_MAX_RETRIES"`
	AlertPhysicianPhone string `mapstructure:"ALERT_PHYSICIAN_PHONE"`

	// Clinician API auth.
	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL  string `mapstructure:"AUTH_JWKS_URL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com/v19.0")
	v.SetDefault("CLASSIFIER_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("ALERT_QUEUE_NAME", "physician_alerts")
	v.SetDefault("ALERT_MAX_RETRIES", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DEFAULT_TENANT",
		"WHATSAPP_VERIFY_TOKEN", "WHATSAPP_APP_SECRET", "WHATSAPP_TOKEN",
		"WHATSAPP_PHONE_ID", "WHATSAPP_BASE_URL",
		"CLASSIFIER_URL", "CLASSIFIER_API_KEY", "CLASSIFIER_TIMEOUT",
		"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
		"AMQP_URL", "ALERT_QUEUE_NAME", "ALERT_MAX_RETRIES", "ALERT_PHYSICIAN_PHONE",
		"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The webhook signing
// secret and verify token must be present outside development: an unset
// secret would otherwise silently disable signature validation, which is a
// startup error, not a per-request fallback.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.WhatsAppAppSecret == "" {
			return fmt.Errorf("WHATSAPP_APP_SECRET is required when ENV=%q; refusing to accept unsigned webhooks", c.Env)
		}
		if c.WhatsAppVerifyToken == "" {
			return fmt.Errorf("WHATSAPP_VERIFY_TOKEN is required when ENV=%q", c.Env)
		}
		if c.AuthIssuer == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf("AUTH_ISSUER or AUTH_JWKS_URL must be set when ENV=%q so the clinician API is authenticated", c.Env)
		}
	}

	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be positive, got %s", c.ClassifierTimeout)
	}

	return nil
}
