package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/srgjo27/wellness_booking/internal/core/availability"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"wellness-booking"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DB    DB
	Redis Redis

	Booking Booking

	StripeSecretKey string `envconfig:"STRIPE_SECRET_KEY"`
	StripeBaseURL   string `envconfig:"STRIPE_BASE_URL"`
	Currency        string `envconfig:"STRIPE_CURRENCY" default:"usd"`

	KafkaBrokers     string `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPrefix string `envconfig:"KAFKA_TOPIC_PREFIX" default:"wellness"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	OTelEnabled     bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OTelEndpoint    string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	OTelSampleRatio float64 `envconfig:"OTEL_SAMPLING_RATIO" default:"1"`
}

type DB struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"wellness_booking"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
}

type Redis struct {
	Addr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	DB   int    `envconfig:"REDIS_DB" default:"0"`
}

type Booking struct {
	HorizonDays     int           `envconfig:"BOOKING_HORIZON_DAYS" default:"7"`
	SlotMinutes     int           `envconfig:"BOOKING_SLOT_MINUTES" default:"60"`
	Timezone        string        `envconfig:"BOOKING_TIMEZONE" default:"UTC"`
	CommitTimeout   time.Duration `envconfig:"BOOKING_COMMIT_TIMEOUT" default:"15s"`
	PendingTTL      time.Duration `envconfig:"BOOKING_PENDING_TTL" default:"15m"`
	SweepInterval   time.Duration `envconfig:"BOOKING_SWEEP_INTERVAL" default:"1m"`
	IdempotencyTTL  time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	CommitRateLimit int           `envconfig:"COMMIT_RATE_LIMIT" default:"30"`
}

// Load reads an optional .env file and then the process environment. Values already
// present in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}

	if _, err := c.Policy(); err != nil {
		return Config{}, err
	}
	if c.Booking.SweepInterval <= 0 {
		return Config{}, errors.New("BOOKING_SWEEP_INTERVAL must be positive")
	}

	return c, nil
}

// Policy builds the availability policy; it fails on a non-positive horizon or slot
// length and on an unknown timezone.
func (c Config) Policy() (availability.Policy, error) {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return availability.Policy{}, fmt.Errorf("BOOKING_TIMEZONE: %w", err)
	}

	p := availability.Policy{
		HorizonDays:  c.Booking.HorizonDays,
		SlotDuration: time.Duration(c.Booking.SlotMinutes) * time.Minute,
		Location:     loc,
	}
	if err := p.Validate(); err != nil {
		return availability.Policy{}, err
	}

	return p, nil
}

func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}
