package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds everything the server and the admin CLI read from the environment.
type Config struct {
	HTTPAddr       string
	DatabaseDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string
	JWTSecret      string
	TokenTTL       time.Duration
	TelegramToken  string
	LogLevel       string
	AppEnv         string
	PublicURL      string
	ChatRatePerSec float64
	ChatBurst      int
	LocalesDir     string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "tod:")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", 72*time.Hour)
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("CHAT_RATE_PER_SEC", 2.0)
	v.SetDefault("CHAT_BURST", 5)
	v.SetDefault("LOCALES_DIR", "internal/localization/locales")
	return v
}

// Load reads .env (if present) and the process environment for the server.
func Load() (*Config, error) {
	cfg, err := LoadTool()
	if err != nil {
		return nil, err
	}
	if err := cfg.requireSecret(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTool is Load for the operator CLI, which never issues tokens.
func LoadTool() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file loaded, using process environment only")
	}
	return fromViper(newViper())
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPAddr:       v.GetString("HTTP_ADDR"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		RedisKeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		TelegramToken:  v.GetString("TELEGRAM_BOT_TOKEN"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		AppEnv:         v.GetString("APP_ENV"),
		PublicURL:      strings.TrimSuffix(v.GetString("PUBLIC_URL"), "/"),
		ChatRatePerSec: v.GetFloat64("CHAT_RATE_PER_SEC"),
		ChatBurst:      v.GetInt("CHAT_BURST"),
		LocalesDir:     v.GetString("LOCALES_DIR"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) requireSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}

func (c *Config) validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must be set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL: %s", c.TokenTTL)
	}
	if c.ChatRatePerSec <= 0 || c.ChatBurst < 1 {
		return fmt.Errorf("chat rate limit must be positive (rate %v, burst %d)", c.ChatRatePerSec, c.ChatBurst)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using 'info'", c.LogLevel)
		c.LogLevel = "info"
	}
	return nil
}

// NewLogger builds the process logger the way APP_ENV asks for.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if c.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
