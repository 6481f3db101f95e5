// Package config loads the dashboard settings.
//
// Values are resolved with priority: Env > File > Default. Environment
// variables use the AUTHDASH_ prefix and the first underscore after it
// separates the section from the key, e.g. AUTHDASH_AUTH_SIGNING_KEY maps
// to auth.signing_key.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-print"

	auth "github.com/goliatone/go-auth-dashboard"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// MinProductionKeyLength is the shortest signing key accepted in production
	MinProductionKeyLength = 32
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

var (
	ErrMissingSigningKey = errors.New("config: auth.signing_key is required")
	ErrShortSigningKey   = fmt.Errorf("config: auth.signing_key must be at least %d bytes in production", MinProductionKeyLength)
	ErrUnknownDriver     = errors.New("config: unknown store.driver")
	ErrWildcardOrigin    = errors.New("config: server.cors_origin cannot be * with credentials")
)

type Config struct {
	Server    ServerConfig    `koanf:"server" json:"server"`
	Store     StoreConfig     `koanf:"store" json:"store"`
	Auth      AuthConfig      `koanf:"auth" json:"auth"`
	Activity  ActivityConfig  `koanf:"activity" json:"activity"`
	RateLimit RateLimitConfig `koanf:"ratelimit" json:"ratelimit"`
	Log       LogConfig       `koanf:"log" json:"log"`
}

type ServerConfig struct {
	Port         int           `koanf:"port" json:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" json:"idle_timeout"`
	CORSOrigin   string        `koanf:"cors_origin" json:"cors_origin"`
	Environment  string        `koanf:"environment" json:"environment"`
	// ProxyHeader carries the client IP, honored only for requests whose
	// peer is listed in TrustedProxies
	ProxyHeader    string   `koanf:"proxy_header" json:"proxy_header"`
	TrustedProxies []string `koanf:"trusted_proxies" json:"trusted_proxies"`
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, EnvProduction)
}

type StoreConfig struct {
	Driver  string        `koanf:"driver" json:"driver"`
	DSN     string        `koanf:"dsn" json:"dsn"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
}

// AuthConfig implements auth.Config
type AuthConfig struct {
	SigningKey string `koanf:"signing_key" json:"signing_key"`
	KeyID      string `koanf:"key_id" json:"key_id"`
	// RetiredSecrets lists "kid:secret" pairs still accepted for validation
	RetiredSecrets []string      `koanf:"retired_secrets" json:"retired_secrets"`
	TokenTTL       time.Duration `koanf:"token_ttl" json:"token_ttl"`
	Issuer         string        `koanf:"issuer" json:"issuer"`
	Audience       []string      `koanf:"audience" json:"audience"`
	CookieName     string        `koanf:"cookie_name" json:"cookie_name"`
	CookieSecure   bool          `koanf:"cookie_secure" json:"cookie_secure"`
	BcryptCost     int           `koanf:"bcrypt_cost" json:"bcrypt_cost"`
}

var _ auth.Config = AuthConfig{}

func (a AuthConfig) GetSigningKey() string { return a.SigningKey }
func (a AuthConfig) GetKeyID() string { return a.KeyID }
func (a AuthConfig) GetTokenTTL() time.Duration { return a.TokenTTL }
func (a AuthConfig) GetIssuer() string { return a.Issuer }
func (a AuthConfig) GetAudience() []string { return a.Audience }
func (a AuthConfig) GetCookieName() string { return a.CookieName }
func (a AuthConfig) GetCookieSecure() bool { return a.CookieSecure }
func (a AuthConfig) GetBcryptCost() int { return a.BcryptCost }

// GetRetiredSecrets parses RetiredSecrets into a kid to secret map.
// Malformed entries are skipped, Validate reports them.
func (a AuthConfig) GetRetiredSecrets() map[string]string {
	out := make(map[string]string, len(a.RetiredSecrets))
	for _, entry := range a.RetiredSecrets {
		kid, secret, ok := splitRetired(entry)
		if !ok {
			continue
		}
		out[kid] = secret
	}
	return out
}

func splitRetired(entry string) (string, string, bool) {
	kid, secret, ok := strings.Cut(strings.TrimSpace(entry), ":")
	if !ok || kid == "" || secret == "" {
		return "", "", false
	}
	return kid, secret, true
}

type ActivityConfig struct {
	URL     string        `koanf:"url" json:"url"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
}

type RateLimitConfig struct {
	PerMinute int `koanf:"per_minute" json:"per_minute"`
	Burst     int `koanf:"burst" json:"burst"`
}

type LogConfig struct {
	Level string `koanf:"level" json:"level"`
	JSON  bool   `koanf:"json" json:"json"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3001,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigin:   "http://localhost:3000",
			Environment:  EnvDevelopment,
			ProxyHeader:  "X-Forwarded-For",
		},
		Store: StoreConfig{
			Driver:  DriverSQLite,
			DSN:     "file:authdash.db?cache=shared",
			Timeout: auth.DefaultStoreTimeout,
		},
		Auth: AuthConfig{
			KeyID:      auth.DefaultKeyID,
			TokenTTL:   auth.DefaultTokenTTL,
			CookieName: auth.DefaultCookieName,
			BcryptCost: auth.DefaultBcryptCost,
		},
		Activity: ActivityConfig{
			URL:     "https://bored-api.appbrewery.com/random",
			Timeout: 8 * time.Second,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 30,
			Burst:     10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports the first configuration problem found
func (c *Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return ErrMissingSigningKey
	}

	if c.Server.IsProduction() && len(c.Auth.SigningKey) < MinProductionKeyLength {
		return ErrShortSigningKey
	}

	for _, entry := range c.Auth.RetiredSecrets {
		if _, _, ok := splitRetired(entry); !ok {
			return fmt.Errorf("config: auth.retired_secrets entry %q must be kid:secret", entry)
		}
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres, DriverBadger:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Store.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	if strings.TrimSpace(c.Server.CORSOrigin) == "*" {
		return ErrWildcardOrigin
	}

	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: auth.token_ttl must be positive")
	}

	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	out := c
	if out.Auth.SigningKey != "" {
		out.Auth.SigningKey = "[redacted]"
	}
	if len(c.Auth.RetiredSecrets) > 0 {
		out.Auth.RetiredSecrets = make([]string, 0, len(c.Auth.RetiredSecrets))
		for _, entry := range c.Auth.RetiredSecrets {
			kid, _, _ := strings.Cut(entry, ":")
			out.Auth.RetiredSecrets = append(out.Auth.RetiredSecrets, kid+":[redacted]")
		}
	}
	if out.Store.DSN != "" && out.Store.Driver == DriverPostgres {
		out.Store.DSN = "[redacted]"
	}
	return out
}

// String renders the redacted config as JSON
func (c Config) String() string {
	return print.MaybePrettyJSON(c.Redacted())
}
