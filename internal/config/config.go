package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Turno        TurnoConfig
	QR           QRConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN switches the service
// to the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis and
// falls back to in-process code allocation and QR storage.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	AdminUsername         string
	AdminPassword         string
}

// TurnoConfig holds the operational constants of the turn lifecycle.
type TurnoConfig struct {
	TicketTTLSeconds     int
	SweepIntervalSeconds int
	PenaltyMinutes       int
	CodePrefix           string
}

// QRConfig controls the rotating cafeteria QR codes.
type QRConfig struct {
	TTLSeconds int
	Required   bool
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "turno-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminUsername:         getEnv("AUTH_ADMIN_USERNAME", ""),
			AdminPassword:         os.Getenv("AUTH_ADMIN_PASSWORD"),
		},
		Turno: TurnoConfig{
			TicketTTLSeconds:     getEnvAsInt("TURNO_TICKET_TTL_SECONDS", 30),
			SweepIntervalSeconds: getEnvAsInt("TURNO_SWEEP_INTERVAL_SECONDS", 5),
			PenaltyMinutes:       getEnvAsInt("TURNO_PENALTY_MINUTES", 15),
			CodePrefix:           getEnv("TURNO_CODE_PREFIX", "T"),
		},
		QR: QRConfig{
			TTLSeconds: getEnvAsInt("QR_TTL_SECONDS", 60),
			Required:   getEnvAsBool("QR_REQUIRED", false),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
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

// TicketTTL is the maximum time a ticket may remain pending before expiring.
func (t TurnoConfig) TicketTTL() time.Duration {
	if t.TicketTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.TicketTTLSeconds) * time.Second
}

// SweepInterval is the period of the background expiration pass.
func (t TurnoConfig) SweepInterval() time.Duration {
	if t.SweepIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.SweepIntervalSeconds) * time.Second
}

// PenaltyDuration is the advisory countdown shown to penalized users. The
// engine never auto-clears penalties.
func (t TurnoConfig) PenaltyDuration() time.Duration {
	if t.PenaltyMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(t.PenaltyMinutes) * time.Minute
}

// TTL is the rotation period of cafeteria QR codes.
func (q QRConfig) TTL() time.Duration {
	if q.TTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(q.TTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
