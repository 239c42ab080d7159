package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	DBDSN       string
	Environment string
	LogLevel    string
	HTTPAddr    string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	AMQPURL      string
	AMQPExchange string

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   getEnv("ENV", "development"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "lecture_booking.events"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	ttl, err := getInt("CACHE_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(ttl) * time.Second

	shutdown, err := getInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.ShutdownTimeout = time.Duration(shutdown) * time.Second

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if cfg.LogLevel != "" {
		if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) CacheEnabled() bool  { return c.RedisAddr != "" }
func (c *Config) EventsEnabled() bool { return c.AMQPURL != "" }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
