package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DOGFINDER_DATASTORE_URL.
const EnvPrefix = "dogfinder"

type Config struct {
	Server        ServerConfig        `mapstructure:"server" split_words:"true"`
	Logging       LoggingConfig       `mapstructure:"logging" split_words:"true"`
	Datastore     DatastoreConfig     `mapstructure:"datastore" split_words:"true"`
	Session       SessionConfig       `mapstructure:"session" split_words:"true"`
	Redis         RedisConfig         `mapstructure:"redis" split_words:"true"`
	Realtime      RealtimeConfig      `mapstructure:"realtime" split_words:"true"`
	Email         EmailConfig         `mapstructure:"email" split_words:"true"`
	Notifications NotificationsConfig `mapstructure:"notifications" split_words:"true"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" split_words:"true"`
	CORS          CORSConfig          `mapstructure:"cors" split_words:"true"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring" split_words:"true"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" split_words:"true"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level" split_words:"true"`
	Console bool   `mapstructure:"console" split_words:"true"`
}

// DatastoreConfig selects how the hosted data service is reached: "rest"
// (PostgREST with the anon key), "postgres" (direct connection) or "memory".
type DatastoreConfig struct {
	Driver    string         `mapstructure:"driver" split_words:"true"`
	URL       string         `mapstructure:"url" split_words:"true"`
	AnonKey   string         `mapstructure:"anon_key" split_words:"true"`
	JWTSecret string         `mapstructure:"jwt_secret" split_words:"true"`
	Timeout   time.Duration  `mapstructure:"timeout" split_words:"true"`
	Database  DatabaseConfig `mapstructure:"database" split_words:"true"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" split_words:"true"`
	Port            int           `mapstructure:"port" split_words:"true"`
	User            string        `mapstructure:"user" split_words:"true"`
	Password        string        `mapstructure:"password" split_words:"true"`
	Name            string        `mapstructure:"name" split_words:"true"`
	SSLMode         string        `mapstructure:"sslmode" split_words:"true"`
	Schema          string        `mapstructure:"schema" split_words:"true"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

type SessionConfig struct {
	Driver       string        `mapstructure:"driver" split_words:"true"`
	TTL          time.Duration `mapstructure:"ttl" split_words:"true"`
	CookieName   string        `mapstructure:"cookie_name" split_words:"true"`
	CookieSecure bool          `mapstructure:"cookie_secure" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url" split_words:"true"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type RealtimeConfig struct {
	Driver string `mapstructure:"driver" split_words:"true"`
}

type EmailConfig struct {
	Driver   string         `mapstructure:"driver" split_words:"true"`
	Timeout  time.Duration  `mapstructure:"timeout" split_words:"true"`
	Function FunctionConfig `mapstructure:"function" split_words:"true"`
	SMTP     SMTPConfig     `mapstructure:"smtp" split_words:"true"`
}

type FunctionConfig struct {
	Endpoint       string        `mapstructure:"endpoint" split_words:"true"`
	MaxFailures    int           `mapstructure:"max_failures" split_words:"true"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout" split_words:"true"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" split_words:"true"`
	Port     int    `mapstructure:"port" split_words:"true"`
	Username string `mapstructure:"username" split_words:"true"`
	Password string `mapstructure:"password" split_words:"true"`
	From     string `mapstructure:"from" split_words:"true"`
}

type NotificationsConfig struct {
	Limit            int           `mapstructure:"limit" split_words:"true"`
	PollInterval     time.Duration `mapstructure:"poll_interval" split_words:"true"`
	Debounce         time.Duration `mapstructure:"debounce" split_words:"true"`
	CandidateColumns []string      `mapstructure:"candidate_columns" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" split_words:"true"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst" split_words:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" split_words:"true"`
	Namespace         string `mapstructure:"namespace" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)

	v.SetDefault("datastore.driver", "rest")
	v.SetDefault("datastore.timeout", "10s")
	v.SetDefault("datastore.database.port", 5432)
	v.SetDefault("datastore.database.sslmode", "require")
	v.SetDefault("datastore.database.schema", "public")

	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("session.cookie_name", "dogfinder_session")

	v.SetDefault("realtime.driver", "memory")

	v.SetDefault("email.driver", "function")
	v.SetDefault("email.timeout", "10s")
	v.SetDefault("email.function.max_failures", 5)
	v.SetDefault("email.function.breaker_timeout", "1m")
	v.SetDefault("email.smtp.port", 587)

	v.SetDefault("notifications.limit", 50)
	v.SetDefault("notifications.poll_interval", "30s")
	v.SetDefault("notifications.debounce", "200ms")
	v.SetDefault("notifications.candidate_columns", []string{"email", "contact", "applicant_email", "applicant_name"})

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.namespace", "dogfinder")
}

// LoadConfig reads .env, then config.yml from ., ./config or /app/config
// (or the file named by CONFIG_FILE), then applies DOGFINDER_* overrides.
// A missing config file leaves the defaults in place.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load reads file, or searches the usual locations when file is "".
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Datastore.Driver = strings.ToLower(strings.TrimSpace(c.Datastore.Driver))
	switch c.Datastore.Driver {
	case "rest":
		if c.Datastore.URL == "" || c.Datastore.AnonKey == "" {
			return errors.New("datastore.url and datastore.anon_key are required for the rest driver")
		}
	case "postgres":
		if c.Datastore.Database.Host == "" || c.Datastore.Database.Name == "" {
			return errors.New("datastore.database.host and datastore.database.name are required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown datastore driver %q", c.Datastore.Driver)
	}

	needsRedis := false
	switch c.Session.Driver {
	case "memory":
	case "redis":
		needsRedis = true
	default:
		return fmt.Errorf("unknown session driver %q", c.Session.Driver)
	}
	switch c.Realtime.Driver {
	case "memory":
	case "redis":
		needsRedis = true
	default:
		return fmt.Errorf("unknown realtime driver %q", c.Realtime.Driver)
	}
	if needsRedis && c.Redis.URL == "" {
		return errors.New("redis.url is required by the redis session or realtime driver")
	}

	switch c.Email.Driver {
	case "function", "smtp", "noop":
	default:
		return fmt.Errorf("unknown email driver %q", c.Email.Driver)
	}
	return nil
}
