package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Driver: DriverPostgres, Host: "localhost", Name: "flow"},
		Session:  SessionConfig{Secret: "s3cret", TTL: time.Hour},
		Security: SecurityConfig{
			StrictLimit:   RateLimitPolicy{Requests: 5, Window: 10 * time.Second},
			ModerateLimit: RateLimitPolicy{Requests: 60, Window: time.Minute},
		},
		Invitations: InvitationsConfig{TTL: 24 * time.Hour},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"memory driver needs nothing", func(c *Config) { c.Database = DatabaseConfig{Driver: DriverMemory} }, ""},
		{"mongo needs uri", func(c *Config) { c.Database = DatabaseConfig{Driver: DriverMongo} }, "mongo uri"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "unsupported database driver"},
		{"postgres needs host", func(c *Config) { c.Database.Host = "" }, "database host"},
		{"placeholder secret", func(c *Config) { c.Session.Secret = placeholderSecret }, "session secret"},
		{"empty secret", func(c *Config) { c.Session.Secret = "" }, "session secret"},
		{"session ttl", func(c *Config) { c.Session.TTL = 0 }, "session ttl"},
		{"port range", func(c *Config) { c.Server.Port = 70000 }, "server port"},
		{"rate limit", func(c *Config) { c.Security.StrictLimit.Requests = 0 }, "strict rate limit"},
		{"invitation ttl", func(c *Config) { c.Invitations.TTL = -time.Second }, "invitation ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("SESSION_SECRET", "from-env")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATE_LIMIT_STRICT_REQUESTS", "7")
	t.Setenv("APP_URL", "https://flow.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.Session.Secret)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Security.StrictLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.Security.StrictLimit.Window)
	assert.Equal(t, "https://flow.example.com", cfg.App.PublicURL)
	assert.Equal(t, "session", cfg.Session.CookieName)
	assert.Equal(t, 168*time.Hour, cfg.Invitations.TTL)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadRejectsDefaultSecret(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverMemory)
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestConnectionStrings(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "flow", Password: "pw", Name: "flow", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=flow password=pw dbname=flow sslmode=disable", db.GetDSN())
	assert.Equal(t, "postgres://flow:pw@db:5432/flow?sslmode=disable", db.GetURL())

	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.GetAddr())
	assert.True(t, r.Enabled())
}
