// Package config loads service configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	// DevActor is the identity used for every request when DevModeBypass is set.
	DevActor struct {
		ID    string `mapstructure:"id"`
		Email string `mapstructure:"email"`
		Role  string `mapstructure:"role"`
	} `mapstructure:"dev_actor"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		// InMemory replaces Postgres with the in-process store.
		InMemory bool `mapstructure:"in_memory"`
	} `mapstructure:"db"`
	Auth struct {
		OktaDomain   string `mapstructure:"okta_domain"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
		// SwaggerClientID is the public (PKCE) client used by the Swagger UI.
		SwaggerClientID string `mapstructure:"swagger_client_id"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
	Engine struct {
		BackfillConcurrency int `mapstructure:"backfill_concurrency"`
		BackfillPageSize    int `mapstructure:"backfill_page_size"`
	} `mapstructure:"engine"`
	Audit struct {
		WebhookURL string        `mapstructure:"webhook_url"`
		Timeout    time.Duration `mapstructure:"timeout"`
		BufferSize int           `mapstructure:"buffer_size"`
	} `mapstructure:"audit"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// setDefaults registers every key that may be supplied through the
// environment alone; AutomaticEnv only resolves keys viper knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("dev_mode_bypass", false)
	v.SetDefault("dev_actor.id", "dev-admin")
	v.SetDefault("dev_actor.email", "dev@localhost")
	v.SetDefault("dev_actor.role", "admin")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.in_memory", false)
	v.SetDefault("auth.okta_domain", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("engine.backfill_concurrency", 4)
	v.SetDefault("engine.backfill_page_size", 100)
	v.SetDefault("audit.webhook_url", "")
	v.SetDefault("audit.timeout", 5*time.Second)
	v.SetDefault("audit.buffer_size", 256)
}

// LoadConfig loads the configuration from a file and the environment. An
// empty path searches for config.yaml in . and ./config; a missing file is
// not an error when searching, so the service can run from the environment
// alone. Environment variables use _ for nesting, e.g. DB_HOST.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// normalize OKTA issuer url (strip trailing slash if any)
	config.Auth.OktaDomain = normalizeOktaIssuer(config.Auth.OktaDomain)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if !c.DevModeBypass && c.Auth.OktaDomain == "" {
		return errors.New("config: auth.okta_domain is required unless dev_mode_bypass is set")
	}
	if c.Engine.BackfillConcurrency < 1 {
		return fmt.Errorf("config: engine.backfill_concurrency must be positive, got %d", c.Engine.BackfillConcurrency)
	}
	if c.Engine.BackfillPageSize < 1 {
		return fmt.Errorf("config: engine.backfill_page_size must be positive, got %d", c.Engine.BackfillPageSize)
	}
	switch c.DevActor.Role {
	case "admin", "staff", "user":
	default:
		return fmt.Errorf("config: dev_actor.role %q is not a known role", c.DevActor.Role)
	}
	return nil
}

// normalizeOktaIssuer strips surrounding whitespace and any trailing slash so
// a URL pasted from the Okta admin console matches the token issuer.
func normalizeOktaIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
