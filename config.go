package starter

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is the concrete env-backed configuration. Call
// ConfigFromEnv after the process environment is ready (the server
// binary loads .env first).
type AppConfig struct {
	SigningKey      string
	TokenExpiration int
	ContextKey      string
	Issuer          string
	Audience        []string

	BaseURL     string
	DatabaseDSN string

	StripeSecretKey string

	GoogleClientID     string
	GoogleClientSecret string
	StateSecret        string

	Debug bool
}

var _ Config = (*AppConfig)(nil)

// ConfigFromEnv builds an AppConfig from process environment variables
func ConfigFromEnv() *AppConfig {
	cfg := &AppConfig{
		SigningKey:         os.Getenv("AUTH_SECRET"),
		TokenExpiration:    envInt("AUTH_TOKEN_EXPIRATION_HOURS", 72),
		ContextKey:         envDefault("AUTH_COOKIE_NAME", "session"),
		Issuer:             envDefault("AUTH_ISSUER", "go-saas-starter"),
		BaseURL:            envDefault("BASE_URL", "http://localhost:3000"),
		DatabaseDSN:        envDefault("DATABASE_URL", "file:starter.db?cache=shared&mode=rwc"),
		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		GoogleClientID:     os.Getenv("AUTH_GOOGLE_ID"),
		GoogleClientSecret: os.Getenv("AUTH_GOOGLE_SECRET"),
		StateSecret:        os.Getenv("AUTH_STATE_SECRET"),
		Debug:              envBool("DEBUG", false),
	}

	if aud := os.Getenv("AUTH_AUDIENCE"); aud != "" {
		for _, a := range strings.Split(aud, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.Audience = append(cfg.Audience, a)
			}
		}
	}

	if cfg.StateSecret == "" {
		cfg.StateSecret = cfg.SigningKey
	}

	return cfg
}

func (c *AppConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *AppConfig) GetContextKey() string {
	return c.ContextKey
}

func (c *AppConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c *AppConfig) GetIssuer() string {
	return c.Issuer
}

func (c *AppConfig) GetAudience() []string {
	return c.Audience
}

// PersistenceConfig adapts AppConfig to the getters the persistence
// client expects.
type PersistenceConfig struct {
	cfg *AppConfig
}

func NewPersistenceConfig(cfg *AppConfig) PersistenceConfig {
	return PersistenceConfig{cfg: cfg}
}

func (p PersistenceConfig) GetDebug() bool {
	return p.cfg.Debug
}

func (p PersistenceConfig) GetDriver() string {
	return "sqlite"
}

func (p PersistenceConfig) GetServer() string {
	return p.cfg.DatabaseDSN
}

func (p PersistenceConfig) GetDSN() string {
	return p.cfg.DatabaseDSN
}

func (p PersistenceConfig) GetOtelIdentifier() string {
	return ""
}

func (p PersistenceConfig) GetPingTimeout() time.Duration {
	return 30 * time.Second
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
