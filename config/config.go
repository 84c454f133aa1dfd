package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	GatewayRazorpay = "razorpay"
	GatewayFake     = "fake"
)

type Config struct {
	Port           string   `validate:"required"`
	Store          string   `validate:"oneof=mongo memory"`
	MongoURI       string   `validate:"required"`
	MongoDatabase  string   `validate:"required"`
	JWTSecret      string   `validate:"required"`
	AllowedOrigins []string `validate:"min=1"`
	LogLevel       slog.Level

	PaymentGateway  string `validate:"oneof=razorpay fake"`
	RazorpayKeyID   string
	RazorpaySecret  string
	FakeSecret      string
	PaymentCurrency string `validate:"required,len=3"`

	NATSURL     string
	NATSSubject string `validate:"required"`
	RedisURL    string

	Timezone        *time.Location
	StockResetSpec  string `validate:"required"`
	LowStockSpec    string `validate:"required"`
	AutoAdvanceSpec string `validate:"required"`

	AdminEmail    string `validate:"omitempty,email"`
	AdminPassword string
}

var validate = validator.New()

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	tz, err := time.LoadLocation(getEnv("TZ_NAME", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		Store:           getEnv("STORE", StoreMongo),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "campus_cravings"),
		JWTSecret:       os.Getenv("SECRET_KEY"),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:        parseLevel(getEnv("LOG_LEVEL", "info")),
		PaymentGateway:  getEnv("PAYMENT_GATEWAY", GatewayRazorpay),
		RazorpayKeyID:   os.Getenv("RAZORPAY_KEY_ID"),
		RazorpaySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		FakeSecret:      os.Getenv("FAKE_PAYMENT_SECRET"),
		PaymentCurrency: getEnv("PAYMENT_CURRENCY", "INR"),
		NATSURL:         os.Getenv("NATS_URL"),
		NATSSubject:     getEnv("NATS_SUBJECT", "orders.events"),
		RedisURL:        os.Getenv("REDIS_URL"),
		Timezone:        tz,
		StockResetSpec:  getEnv("STOCK_RESET_SCHEDULE", "0 6 * * *"),
		LowStockSpec:    getEnv("LOW_STOCK_SCHEDULE", "@every 30m"),
		AutoAdvanceSpec: getEnv("AUTO_ADVANCE_SCHEDULE", "@every 1m"),
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.PaymentGateway == GatewayRazorpay && (cfg.RazorpayKeyID == "" || cfg.RazorpaySecret == "") {
		return nil, errors.New("invalid configuration: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required for the razorpay gateway")
	}
	if cfg.PaymentGateway == GatewayFake && cfg.FakeSecret == "" {
		cfg.FakeSecret = uuid.NewString()
	}
	return cfg, nil
}

// PaymentSecret is the key payment callbacks are signed with for the
// selected gateway.
func (c *Config) PaymentSecret() string {
	if c.PaymentGateway == GatewayFake {
		return c.FakeSecret
	}
	return c.RazorpaySecret
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}
