package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"spacebook/internal/pkg/errs"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"

	RazorpayLive = "live"
	RazorpayFake = "fake"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env           string        `envconfig:"APP_ENV" default:"dev"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTP          HTTPConfig
	Storage       StorageConfig
	Kafka         KafkaConfig
	Outbox        OutboxConfig
	Redis         RedisConfig
	Razorpay      RazorpayConfig
	SMTP          SMTPConfig
	Notifications NotificationConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Booking       BookingConfig
	Fixtures      FixtureConfig
}

type HTTPConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	AllowOrigins    []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
}

type StorageConfig struct {
	Driver         string        `envconfig:"STORAGE_DRIVER" default:"memory"`
	MongoURI       string        `envconfig:"MONGO_URI"`
	MongoDB        string        `envconfig:"MONGO_DB" default:"spacebook"`
	IdempotencyTTL time.Duration `envconfig:"IDEMP_TTL" default:"24h"`
}

type KafkaConfig struct {
	Brokers     []string      `envconfig:"KAFKA_BROKERS"`
	TopicPrefix string        `envconfig:"KAFKA_TOPIC_PREFIX"`
	ClientID    string        `envconfig:"KAFKA_CLIENT_ID" default:"spacebook"`
	MaxRetries  int           `envconfig:"KAFKA_MAX_RETRIES" default:"5"`
	Timeout     time.Duration `envconfig:"KAFKA_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	PollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	RetryBackoff []time.Duration `envconfig:"RETRY_BACKOFF" default:"1s,5s,30s"`
	Source       string          `envconfig:"OUTBOX_SOURCE" default:"app://spacebook"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	LockDB   int    `envconfig:"REDIS_LOCK_DB" default:"0"`
	QueueDB  int    `envconfig:"REDIS_QUEUE_DB" default:"1"`
}

// Enabled reports whether a redis address was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RazorpayConfig struct {
	Mode          string        `envconfig:"RAZORPAY_MODE" default:"fake"`
	KeyID         string        `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"RAZORPAY_TIMEOUT" default:"10s"`
}

type SMTPConfig struct {
	Host               string `envconfig:"SMTP_HOST"`
	Port               int    `envconfig:"SMTP_PORT" default:"587"`
	Username           string `envconfig:"SMTP_USER"`
	Password           string `envconfig:"SMTP_PASS"`
	From               string `envconfig:"SMTP_FROM" default:"Spacebook <no-reply@spacebook.local>"`
	InsecureSkipVerify bool   `envconfig:"SMTP_INSECURE_SKIP_VERIFY" default:"false"`
}

func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

type NotificationConfig struct {
	Queue       string `envconfig:"NOTIFY_QUEUE" default:"default"`
	MaxRetry    int    `envconfig:"NOTIFY_MAX_RETRY" default:"5"`
	Concurrency int    `envconfig:"NOTIFY_CONCURRENCY" default:"5"`
}

type AuthConfig struct {
	JWTSecret  string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	JWTIssuer  string        `envconfig:"JWT_ISSUER" default:"spacebook"`
	TokenTTL   time.Duration `envconfig:"JWT_TTL" default:"24h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`
}

type RateLimitConfig struct {
	RPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`
}

type BookingConfig struct {
	DefaultOpen  string        `envconfig:"BOOKING_DEFAULT_OPEN" default:"09:00"`
	DefaultClose string        `envconfig:"BOOKING_DEFAULT_CLOSE" default:"21:00"`
	LockTTL      time.Duration `envconfig:"BOOKING_LOCK_TTL" default:"15s"`
	LockWait     time.Duration `envconfig:"BOOKING_LOCK_WAIT" default:"5s"`
}

type FixtureConfig struct {
	SpacesPath string `envconfig:"FIXTURES_SPACES"`
	UsersPath  string `envconfig:"FIXTURES_USERS"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return Config{}, errs.Wrapf(err, "config: load %s", envFile)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errs.Wrap(err, "config: process env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageMongo:
		if c.Storage.MongoURI == "" {
			return errs.New("config: MONGO_URI is required for the mongo driver")
		}
	default:
		return errs.Newf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch strings.ToLower(c.Razorpay.Mode) {
	case RazorpayFake:
	case RazorpayLive:
		if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" || c.Razorpay.WebhookSecret == "" {
			return errs.New("config: RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET and RAZORPAY_WEBHOOK_SECRET are required")
		}
	default:
		return errs.Newf("config: unknown RAZORPAY_MODE %q", c.Razorpay.Mode)
	}
	if c.Env != "dev" && c.Auth.JWTSecret == "dev-secret-change-me" {
		return errs.New("config: JWT_SECRET must be set outside dev")
	}
	return nil
}
