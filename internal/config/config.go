// Package config loads the service settings from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	// DefaultRequeueDelay is the grace period before a user whose partner
	// disconnected is put back into the waiting pool.
	DefaultRequeueDelay = 5 * time.Second

	// AnonTokenTTL is how long an anonymous id token stays valid.
	AnonTokenTTL = 72 * time.Hour
	// TokenIssuer is the "iss" claim of anonymous id tokens.
	TokenIssuer = "pairchat-service"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR,default=:8080"`
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`

	RedisAddr     string `env:"REDIS_ADDR,default=localhost:6380"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	JWTSecret        string `env:"JWT_SECRET,required=true"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"` // порожній = бот вимкнено

	RequeueDelay       time.Duration `env:"REQUEUE_DELAY,default=5s"`
	PreferenceCacheTTL time.Duration `env:"PREFERENCE_CACHE_TTL,default=10m"`
	MaxPictureBytes    int           `env:"MAX_PICTURE_BYTES,default=5242880"`
	SendBufferSize     int           `env:"SEND_BUFFER_SIZE,default=256"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()

	var c Config
	if _, err := env.UnmarshalFromEnviron(&c); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.RequeueDelay <= 0 {
		return fmt.Errorf("REQUEUE_DELAY must be positive, got %s", c.RequeueDelay)
	}
	if c.MaxPictureBytes <= 0 {
		return fmt.Errorf("MAX_PICTURE_BYTES must be positive, got %d", c.MaxPictureBytes)
	}
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("SEND_BUFFER_SIZE must be positive, got %d", c.SendBufferSize)
	}
	return nil
}
