package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const placeholderSecret = "change-me-session-secret"

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Session     SessionConfig     `mapstructure:"session"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Security    SecurityConfig    `mapstructure:"security"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Invitations InvitationsConfig `mapstructure:"invitations"`
	Templates   TemplatesConfig   `mapstructure:"templates"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	// PublicURL is the browser-facing base URL used in invitation links.
	PublicURL string `mapstructure:"public_url"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig selects the store and holds the settings for both drivers.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
}

// RedisConfig holds Redis configuration. An empty Host disables Redis.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig holds the signed session cookie settings
type SessionConfig struct {
	Secret          string        `mapstructure:"secret"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	CookieName      string        `mapstructure:"cookie_name"`
	Secure          bool          `mapstructure:"secure"`
	Issuer          string        `mapstructure:"issuer"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RateLimitPolicy is a request budget over a sliding window.
type RateLimitPolicy struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins string          `mapstructure:"cors_allowed_origins"`
	StrictLimit        RateLimitPolicy `mapstructure:"strict_limit"`
	ModerateLimit      RateLimitPolicy `mapstructure:"moderate_limit"`
	LocalLimiterCap    int             `mapstructure:"local_limiter_cap"`
}

// SMTPConfig holds outgoing mail settings. Without User and Password mail is
// written to the log instead.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Secure   bool   `mapstructure:"secure"`
	FromName string `mapstructure:"from_name"`
}

// InvitationsConfig holds invitation lifetime settings
type InvitationsConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// TemplatesConfig points at an optional YAML project template catalogue.
type TemplatesConfig struct {
	File string `mapstructure:"file"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Flow")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.public_url", "http://localhost:3000")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "flow")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "30s")
	v.SetDefault("database.migrations_path", "migrations")
	v.SetDefault("database.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo_database", "flow")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.secret", placeholderSecret)
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("session.refresh_interval", "24h")
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.issuer", "flow")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")

	v.SetDefault("security.cors_allowed_origins", "*")
	v.SetDefault("security.strict_limit.requests", 5)
	v.SetDefault("security.strict_limit.window", "10s")
	v.SetDefault("security.moderate_limit.requests", 60)
	v.SetDefault("security.moderate_limit.window", "60s")
	v.SetDefault("security.local_limiter_cap", 10000)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.secure", false)
	v.SetDefault("smtp.from_name", "Flow")

	v.SetDefault("invitations.ttl", "168h")
	v.SetDefault("invitations.sweep_interval", "1h")

	v.SetDefault("templates.file", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	bindings := map[string]string{
		"app.name":        "APP_NAME",
		"app.version":     "APP_VERSION",
		"app.environment": "APP_ENVIRONMENT",
		"app.debug":       "APP_DEBUG",
		"app.public_url":  "APP_URL",

		"server.port":            "SERVER_PORT",
		"server.host":            "SERVER_HOST",
		"server.read_timeout":    "SERVER_READ_TIMEOUT",
		"server.write_timeout":   "SERVER_WRITE_TIMEOUT",
		"server.idle_timeout":    "SERVER_IDLE_TIMEOUT",
		"server.request_timeout": "SERVER_REQUEST_TIMEOUT",

		"database.driver":             "DB_DRIVER",
		"database.host":               "DB_HOST",
		"database.port":               "DB_PORT",
		"database.name":               "DB_NAME",
		"database.user":               "DB_USER",
		"database.password":           "DB_PASSWORD",
		"database.ssl_mode":           "DB_SSL_MODE",
		"database.max_open_conns":     "DB_MAX_OPEN_CONNS",
		"database.max_idle_conns":     "DB_MAX_IDLE_CONNS",
		"database.conn_max_lifetime":  "DB_CONN_MAX_LIFETIME",
		"database.conn_max_idle_time": "DB_CONN_MAX_IDLE_TIME",
		"database.migrations_path":    "DB_MIGRATIONS_PATH",
		"database.mongo_uri":          "MONGODB_URI",
		"database.mongo_database":     "MONGODB_DATABASE",

		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		"session.secret":           "SESSION_SECRET",
		"session.ttl":              "SESSION_TTL",
		"session.refresh_interval": "SESSION_REFRESH_INTERVAL",
		"session.cookie_name":      "SESSION_COOKIE_NAME",
		"session.secure":           "SESSION_SECURE",
		"session.issuer":           "SESSION_ISSUER",

		"logger.level":  "LOG_LEVEL",
		"logger.format": "LOG_FORMAT",
		"logger.output": "LOG_OUTPUT",

		"security.cors_allowed_origins":    "CORS_ALLOWED_ORIGINS",
		"security.strict_limit.requests":   "RATE_LIMIT_STRICT_REQUESTS",
		"security.strict_limit.window":     "RATE_LIMIT_STRICT_WINDOW",
		"security.moderate_limit.requests": "RATE_LIMIT_MODERATE_REQUESTS",
		"security.moderate_limit.window":   "RATE_LIMIT_MODERATE_WINDOW",
		"security.local_limiter_cap":       "RATE_LIMIT_LOCAL_CAP",

		"smtp.host":      "SMTP_HOST",
		"smtp.port":      "SMTP_PORT",
		"smtp.user":      "SMTP_USER",
		"smtp.password":  "SMTP_PASS",
		"smtp.secure":    "SMTP_SECURE",
		"smtp.from_name": "SMTP_FROM_NAME",

		"invitations.ttl":            "INVITATION_TTL",
		"invitations.sweep_interval": "INVITATION_SWEEP_INTERVAL",

		"templates.file": "PROJECT_TEMPLATES_FILE",

		"metrics.enabled": "ENABLE_METRICS",
		"metrics.path":    "METRICS_PATH",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
	case DriverMongo:
		if cfg.Database.MongoURI == "" {
			return fmt.Errorf("mongo uri is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Session.Secret == "" || cfg.Session.Secret == placeholderSecret {
		return fmt.Errorf("session secret must be set and should not use default value")
	}

	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	for name, p := range map[string]RateLimitPolicy{
		"strict":   cfg.Security.StrictLimit,
		"moderate": cfg.Security.ModerateLimit,
	} {
		if p.Requests <= 0 || p.Window <= 0 {
			return fmt.Errorf("%s rate limit must have positive requests and window", name)
		}
	}

	if cfg.Invitations.TTL <= 0 {
		return fmt.Errorf("invitation ttl must be positive")
	}

	return nil
}

// GetDSN returns the postgres connection string
func (cfg *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

// GetURL returns the postgres URL form used by golang-migrate.
func (cfg *DatabaseConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
	)
}

// GetAddr returns the Redis address
func (cfg *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// Enabled reports whether a Redis host is configured.
func (cfg *RedisConfig) Enabled() bool {
	return cfg.Host != ""
}

// Enabled reports whether SMTP credentials are configured.
func (cfg *SMTPConfig) Enabled() bool {
	return cfg.User != "" && cfg.Password != ""
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
