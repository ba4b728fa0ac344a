package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StoragePostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения. Kafka и Redis
// опциональны: без брокеров события уходят в no-op publisher, без Redis
// корзина читается напрямую из хранилища.
type Config struct {
	MetricsAddr string

	StorageDriver StorageDriver
	PostgresDSN   string

	KafkaBrokers []string

	RedisAddr     string
	RedisPassword string

	LogLevel string
}

// DefaultConfig возвращает конфигурацию для локальной разработки:
// in-memory хранилище, без Kafka и Redis.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:   ":9090",
		StorageDriver: StorageMemory,
		LogLevel:      "info",
	}
}

// LoadConfig читает конфигурацию из переменных окружения. Файл .env,
// если он есть, подгружается без перекрытия уже выставленных переменных.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v := os.Getenv("BCOMMERCE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("BCOMMERCE_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = StorageDriver(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("BCOMMERCE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("BCOMMERCE_KAFKA_BROKERS"); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	if v := os.Getenv("BCOMMERCE_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("BCOMMERCE_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("BCOMMERCE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}
