package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
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
	Notification NotificationConfig
	SLA          SLAConfig
	Assignment   AssignmentConfig
	Escalation   EscalationConfig
	Workflow     WorkflowConfig
	Anonymous    AnonymousConfig
	Analytics    AnalyticsConfig
	Lock         LockConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	StoreTimeoutSeconds   int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	JWTIssuer             string
	AccessTokenTTLMinutes int
}

// NotificationConfig configures outbound notification channels.
type NotificationConfig struct {
	EmailEnabled        bool
	EmailFrom           string
	EmailFallbackTo     string
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	SMTPUseTLS          bool
	WebhookURL          string
	TimeoutSeconds      int
	EscalationRecipient string
}

// SLAConfig controls the breach monitor.
type SLAConfig struct {
	MonitorEnabled       bool
	MonitorSchedule      string
	Workers              int
	BatchSize            int
	TicketTimeoutSeconds int
	TickTimeoutSeconds   int
}

// AssignmentConfig controls rule fallback.
type AssignmentConfig struct {
	DefaultAssignee string
}

// EscalationConfig makes the escalation cap explicit.
type EscalationConfig struct {
	MaxLevel      int
	CapAction     string
	CapRecipient  string
	ReassignOnSLA bool
}

// WorkflowConfig holds resolution and reopen policy.
type WorkflowConfig struct {
	ReopenGraceHours int
	AutoSurvey       bool
}

// AnonymousConfig configures lookup token hashing.
type AnonymousConfig struct {
	TokenPepper string
}

// AnalyticsConfig configures analytics caching.
type AnalyticsConfig struct {
	CacheTTLSeconds int
}

// LockConfig selects the per-ticket lock backend.
type LockConfig struct {
	Backend    string
	TTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "grievance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			StoreTimeoutSeconds:   getEnvAsInt("STORE_TIMEOUT_SECONDS", 5),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 0),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			JWTIssuer:             os.Getenv("AUTH_JWT_ISSUER"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailEnabled:        getEnvAsBool("NOTIFY_EMAIL_ENABLED", false),
			EmailFrom:           getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EmailFallbackTo:     os.Getenv("NOTIFY_EMAIL_FALLBACK_TO"),
			SMTPHost:            getEnv("NOTIFY_SMTP_HOST", "localhost"),
			SMTPPort:            getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			SMTPUsername:        os.Getenv("NOTIFY_SMTP_USERNAME"),
			SMTPPassword:        os.Getenv("NOTIFY_SMTP_PASSWORD"),
			SMTPUseTLS:          getEnvAsBool("NOTIFY_SMTP_TLS", false),
			WebhookURL:          getEnv("NOTIFY_WEBHOOK_URL", ""),
			TimeoutSeconds:      getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
			EscalationRecipient: getEnv("NOTIFY_ESCALATION_RECIPIENT", "grievance-supervisors"),
		},
		SLA: SLAConfig{
			MonitorEnabled:       getEnvAsBool("SLA_MONITOR_ENABLED", true),
			MonitorSchedule:      getEnv("SLA_MONITOR_SCHEDULE", "@every 1m"),
			Workers:              getEnvAsInt("SLA_MONITOR_WORKERS", 8),
			BatchSize:            getEnvAsInt("SLA_MONITOR_BATCH_SIZE", 200),
			TicketTimeoutSeconds: getEnvAsInt("SLA_MONITOR_TICKET_TIMEOUT_SECONDS", 5),
			TickTimeoutSeconds:   getEnvAsInt("SLA_MONITOR_TICK_TIMEOUT_SECONDS", 50),
		},
		Assignment: AssignmentConfig{
			DefaultAssignee: getEnv("ASSIGNMENT_DEFAULT_ASSIGNEE", "triage-queue"),
		},
		Escalation: EscalationConfig{
			MaxLevel:      getEnvAsInt("ESCALATION_MAX_LEVEL", 3),
			CapAction:     strings.ToLower(getEnv("ESCALATION_CAP_ACTION", "notify")),
			CapRecipient:  getEnv("ESCALATION_CAP_RECIPIENT", "grievance-admins"),
			ReassignOnSLA: getEnvAsBool("ESCALATION_REASSIGN_ON_SLA", true),
		},
		Workflow: WorkflowConfig{
			ReopenGraceHours: getEnvAsInt("WORKFLOW_REOPEN_GRACE_HOURS", 72),
			AutoSurvey:       getEnvAsBool("WORKFLOW_AUTO_SURVEY", true),
		},
		Anonymous: AnonymousConfig{
			TokenPepper: getEnv("ANON_TOKEN_PEPPER", "dev-pepper"),
		},
		Analytics: AnalyticsConfig{
			CacheTTLSeconds: getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 60),
		},
		Lock: LockConfig{
			Backend:    strings.ToLower(getEnv("LOCK_BACKEND", "local")),
			TTLSeconds: getEnvAsInt("LOCK_TTL_SECONDS", 30),
		},
	}

	if cfg.Escalation.CapAction != "reject" && cfg.Escalation.CapAction != "notify" {
		return nil, fmt.Errorf("invalid ESCALATION_CAP_ACTION %q", cfg.Escalation.CapAction)
	}
	if cfg.Lock.Backend != "local" && cfg.Lock.Backend != "redis" {
		return nil, fmt.Errorf("invalid LOCK_BACKEND %q", cfg.Lock.Backend)
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

// StoreTimeout bounds a single store round trip inside a mutation.
func (a AppConfig) StoreTimeout() time.Duration {
	return seconds(a.StoreTimeoutSeconds, 5)
}

// TicketTimeout bounds the evaluation of one ticket during a sweep.
func (s SLAConfig) TicketTimeout() time.Duration {
	return seconds(s.TicketTimeoutSeconds, 5)
}

// TickTimeout bounds one whole sweep.
func (s SLAConfig) TickTimeout() time.Duration {
	return seconds(s.TickTimeoutSeconds, 50)
}

// Timeout bounds one notification delivery.
func (n NotificationConfig) Timeout() time.Duration {
	return seconds(n.TimeoutSeconds, 10)
}

// ReopenGrace is the window after closure during which a ticket may be reopened.
func (w WorkflowConfig) ReopenGrace() time.Duration {
	if w.ReopenGraceHours <= 0 {
		return 0
	}
	return time.Duration(w.ReopenGraceHours) * time.Hour
}

// CacheTTL returns the analytics cache lifetime.
func (a AnalyticsConfig) CacheTTL() time.Duration {
	if a.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

// TTL returns the lock lease duration.
func (l LockConfig) TTL() time.Duration {
	return seconds(l.TTLSeconds, 30)
}

func seconds(val, fallback int) time.Duration {
	if val <= 0 {
		val = fallback
	}
	return time.Duration(val) * time.Second
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
