package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Admin             AdminConfig
	Xendit            XenditConfig
	Checkout          CheckoutConfig
	Payments          PaymentsConfig
	Jobs              JobsConfig
	Redis             RedisConfig
	PubSub            PubSubConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type AdminConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type XenditConfig struct {
	SecretKey       string
	CallbackToken   string
	BaseURL         string
	HTTPTimeout     time.Duration
	InvoiceDuration time.Duration
}

type CheckoutConfig struct {
	Currency           string
	SuccessRedirectURL string
	FailureRedirectURL string
}

type PaymentsConfig struct {
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
	EnrollmentAccess    time.Duration
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type PubSubConfig struct {
	ProjectID       string
	EnrollmentTopic string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "lms-payments-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
			TokenTTL:  getMinutesEnv("ADMIN_TOKEN_TTL_MINUTES", 60*time.Minute),
		},
		Xendit: XenditConfig{
			SecretKey:       getEnv("XENDIT_SECRET_KEY", ""),
			CallbackToken:   getEnv("XENDIT_CALLBACK_TOKEN", ""),
			BaseURL:         getEnv("XENDIT_BASE_URL", "https://api.xendit.co"),
			HTTPTimeout:     getSecondsEnv("XENDIT_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			InvoiceDuration: getSecondsEnv("XENDIT_INVOICE_DURATION_SECONDS", 24*time.Hour),
		},
		Checkout: CheckoutConfig{
			Currency:           getEnv("CHECKOUT_CURRENCY", "IDR"),
			SuccessRedirectURL: getEnv("CHECKOUT_SUCCESS_REDIRECT_URL", ""),
			FailureRedirectURL: getEnv("CHECKOUT_FAILURE_REDIRECT_URL", ""),
		},
		Payments: PaymentsConfig{
			PendingTimeout:      getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 24*time.Hour),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
			EnrollmentAccess:    getDaysEnv("ENROLLMENT_ACCESS_DAYS", 0),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("PAYMENTS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			IdempotencyTTL: getMinutesEnv("IDEMPOTENCY_TTL_MINUTES", 7*24*time.Hour),
		},
		PubSub: PubSubConfig{
			ProjectID:       getEnv("PUBSUB_PROJECT_ID", ""),
			EnrollmentTopic: getEnv("PUBSUB_ENROLLMENT_TOPIC", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getDaysEnv treats non-positive values as "no limit" and returns zero for them.
func getDaysEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if days, err := strconv.Atoi(value); err == nil {
			if days <= 0 {
				return 0
			}
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return defaultValue
}
