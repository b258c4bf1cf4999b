package config

import (
	"fmt"

	"github.com/caarlos0/env"
)

// Config holds every knob the service reads from the environment.
type Config struct {
	Address string `env:"RUN_ADDRESS" envDefault:":8080"`
	AppURL  string `env:"APP_URL" envDefault:"http://localhost:8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"storefront"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDisabled bool   `env:"REDIS_DISABLED" envDefault:"false"`

	RazorpayKeyID         string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`
	Currency              string `env:"PRODUCT_CURRENCY" envDefault:"INR"`

	SMTPHost   string `env:"SMTP_HOST"`
	SMTPPort   int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser   string `env:"SMTP_USER"`
	SMTPPass   string `env:"SMTP_PASS"`
	SMTPFrom   string `env:"SMTP_FROM" envDefault:"Rasoi Gadget <noreply@rasoigadget.com>"`
	SellerName string `env:"SELLER_NAME" envDefault:"Rasoi Gadget India"`

	JWTSecret      string `env:"JWT_SECRET"`
	AdminSecretKey string `env:"ADMIN_SECRET_KEY"`

	DefaultGSTPercent int `env:"GST_PERCENT" envDefault:"18"`
}

// New parses the environment into a Config. JWT and gateway secrets have no
// sane defaults and must be set.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("ENV JWT_SECRET must be set")
	}
	if cfg.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("ENV RAZORPAY_KEY_SECRET must be set")
	}

	return cfg, nil
}
