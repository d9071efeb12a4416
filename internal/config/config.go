package config

import (
	"context"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the FreeShare API.
type Config struct {
	Port     string `env:"PORT,default=8083"`
	AppEnv   string `env:"APP_ENV,default=development"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	DBDriver   string        `env:"DB_DRIVER,default=sqlite3"`
	DBDSN      string        `env:"DB_DSN,default=file:data/freeshare.db"`
	SessionTTL time.Duration `env:"SESSION_TTL,default=720h"`

	BaseURL          string `env:"BASE_URL,default=http://localhost:8083"`
	FrontendURL      string `env:"FRONTEND_URL,default=http://localhost:5173"`
	OAuthStateSecret string `env:"OAUTH_STATE_SECRET"`

	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
	AppleClientID        string `env:"APPLE_CLIENT_ID"`
	AppleClientSecret    string `env:"APPLE_CLIENT_SECRET"`

	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE,default=300"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE,default=freeshare.events"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3Region         string `env:"S3_REGION,default=us-east-1"`
	S3Bucket         string `env:"S3_BUCKET"`
	S3AccessKey      string `env:"S3_ACCESS_KEY"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3PublicURL      string `env:"S3_PUBLIC_URL"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE,default=false"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return cfg, nil
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Production reports whether the service runs with APP_ENV=production.
func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// S3Enabled reports whether image uploads are configured.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// ProviderCredentials returns the OAuth client id and secret for provider.
func (c Config) ProviderCredentials(provider string) (string, string) {
	switch provider {
	case "google":
		return c.GoogleClientID, c.GoogleClientSecret
	case "facebook":
		return c.FacebookClientID, c.FacebookClientSecret
	case "apple":
		return c.AppleClientID, c.AppleClientSecret
	}
	return "", ""
}

// OAuthEnabled reports whether provider has a client id configured.
func (c Config) OAuthEnabled(provider string) bool {
	id, _ := c.ProviderCredentials(provider)
	return id != ""
}
