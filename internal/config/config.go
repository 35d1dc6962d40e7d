package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers understood by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Bolt     BoltConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Mail     MailConfig
	Ticket   TicketConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	FrontendOrigin        string
}

// StoreConfig selects the complaint storage backend.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// BoltConfig points at the embedded database file.
type BoltConfig struct {
	Path string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled         bool
	Addr            string
	Password        string
	DB              int
	CacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Format      string
	Development bool
}

// MailConfig describes the outbound SMTP server. An empty Server means
// notifications are only logged.
type MailConfig struct {
	Server         string
	Port           int
	UseTLS         bool
	Username       string
	Password       string
	Sender         string
	TimeoutSeconds int
}

// TicketConfig controls ticket number generation.
type TicketConfig struct {
	Policy      string
	MaxAttempts int
}

// Load reads configuration from the given dotenv files (or .env when none
// are given) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	env := &envReader{}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres))
	if driver != StoreDriverPostgres && driver != StoreDriverBolt {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", driver)
	}

	username := os.Getenv("MAIL_USERNAME")
	appEnv := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-service"),
			Env:                   appEnv,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", getEnv("PORT", "8080")),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: env.int("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			FrontendOrigin:        getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
		},
		Store: StoreConfig{
			Driver: driver,
		},
		Postgres: PostgresConfig{
			DSN:            postgresDSN(),
			MaxConns:       int32(env.int("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(env.int("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  env.bool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(env.int("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(env.int("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Bolt: BoltConfig{
			Path: getEnv("BOLT_PATH", "complaints.db"),
		},
		Redis: RedisConfig{
			Enabled:         env.bool("REDIS_ENABLED", false),
			Addr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              env.int("REDIS_DB", 0),
			CacheTTLSeconds: env.int("REDIS_CACHE_TTL_SECONDS", 300),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Development: appEnv == "development",
		},
		Mail: MailConfig{
			Server:         os.Getenv("MAIL_SERVER"),
			Port:           env.int("MAIL_PORT", 587),
			UseTLS:         env.bool("MAIL_USE_TLS", false),
			Username:       username,
			Password:       os.Getenv("MAIL_PASSWORD"),
			Sender:         getEnv("MAIL_SENDER", username),
			TimeoutSeconds: env.int("MAIL_TIMEOUT_SECONDS", 15),
		},
		Ticket: TicketConfig{
			Policy:      getEnv("TICKET_POLICY", "alnum6"),
			MaxAttempts: env.int("TICKET_MAX_ATTEMPTS", 1),
		},
	}
	if err := env.err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached complaints live in Redis.
func (r RedisConfig) CacheTTL() time.Duration {
	if r.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// Timeout returns the SMTP dial/send timeout.
func (m MailConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// postgresDSN prefers POSTGRES_DSN and otherwise assembles a URL from the
// discrete DB_* variables.
func postgresDSN() string {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:   fmt.Sprintf("%s:%s", host, getEnv("DB_PORT", "5432")),
		Path:   "/" + os.Getenv("DB_NAME"),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// envReader parses typed variables and remembers every malformed value, so
// a typo fails Load instead of silently selecting the default.
type envReader struct {
	errs []error
}

func (r *envReader) int(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s %q: %w", key, val, err))
		return fallback
	}
	return parsed
}

func (r *envReader) bool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s %q: %w", key, val, err))
		return fallback
	}
	return parsed
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
