package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTHDASH_AUTH_SIGNING_KEY", testKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, ":3001", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigin)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "token", cfg.Auth.CookieName)
	assert.Equal(t, "primary", cfg.Auth.KeyID)
	assert.Equal(t, 8*time.Second, cfg.Activity.Timeout)
	assert.Equal(t, 30, cfg.RateLimit.PerMinute)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.False(t, cfg.Auth.CookieSecure, "development serves plain http")
	assert.Equal(t, "X-Forwarded-For", cfg.Server.ProxyHeader)
	assert.Empty(t, cfg.Server.TrustedProxies, "no proxy is trusted by default")
}

func TestLoadMissingSigningKey(t *testing.T) {
	t.Setenv("AUTHDASH_AUTH_SIGNING_KEY", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSigningKey)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: 8080
  read_timeout: 3s
  environment: production
  trusted_proxies:
    - 10.0.0.0/8
    - 127.0.0.1
store:
  driver: badger
  dsn: /tmp/authdash
auth:
  signing_key: `+testKey+`
  token_ttl: 2h
  retired_secrets:
    - old:previous-secret
log:
  level: debug
`)

	t.Setenv("AUTHDASH_SERVER_PORT", "9090")
	t.Setenv("AUTHDASH_RATELIMIT_PER_MINUTE", "5")

	cfg, err := Load(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout, "untouched keys keep defaults")
	assert.Equal(t, DriverBadger, cfg.Store.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Auth.GetTokenTTL())
	assert.Equal(t, map[string]string{"old": "previous-secret"}, cfg.Auth.GetRetiredSecrets())
	assert.Equal(t, 5, cfg.RateLimit.PerMinute)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Auth.GetCookieSecure(), "production defaults to secure cookies")
}

func TestLoadExplicitCookieSecure(t *testing.T) {
	t.Setenv("AUTHDASH_AUTH_SIGNING_KEY", testKey)
	t.Setenv("AUTHDASH_SERVER_ENVIRONMENT", "production")
	t.Setenv("AUTHDASH_AUTH_COOKIE_SECURE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Auth.CookieSecure)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("AUTHDASH_AUTH_SIGNING_KEY", testKey)

	_, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestEnvPrefix(t *testing.T) {
	t.Setenv("OTHER_AUTH_SIGNING_KEY", testKey)
	t.Setenv("OTHER_STORE_DRIVER", "postgres")

	cfg, err := Load(WithEnvPrefix("OTHER_"))
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
		substr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:   "short key in production",
			mutate: func(c *Config) { c.Auth.SigningKey = "short"; c.Server.Environment = EnvProduction },
			err:    ErrShortSigningKey,
		},
		{
			name:   "short key in development",
			mutate: func(c *Config) { c.Auth.SigningKey = "short" },
		},
		{
			name:   "unknown driver",
			mutate: func(c *Config) { c.Store.Driver = "mysql" },
			err:    ErrUnknownDriver,
		},
		{
			name:   "wildcard origin",
			mutate: func(c *Config) { c.Server.CORSOrigin = "*" },
			err:    ErrWildcardOrigin,
		},
		{
			name:   "bad retired secret",
			mutate: func(c *Config) { c.Auth.RetiredSecrets = []string{"nokid"} },
			substr: "kid:secret",
		},
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			substr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Auth.SigningKey = testKey
			tt.mutate(cfg)

			err := cfg.Validate()
			switch {
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
			case tt.substr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.substr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.SigningKey = testKey
	cfg.Auth.RetiredSecrets = []string{"old:previous-secret"}

	out := cfg.String()
	assert.NotContains(t, out, testKey)
	assert.NotContains(t, out, "previous-secret")
	assert.True(t, strings.Contains(out, "old:[redacted]"))
	assert.Equal(t, testKey, cfg.Auth.SigningKey, "redaction works on a copy")
}
