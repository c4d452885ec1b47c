package config

import (
	"os"
	"strconv"
)

type ComplianceServiceConfig struct {
	Port           string
	APIKey         string
	PostgresCfg    PostgresConfig
	RabbitMQCfg    RabbitMQConfig
	RedisCfg       RedisConfig
	MinioCfg       MinioConfig
	ForestWatchCfg ForestWatchConfig
	MobileMoneyCfg MobileMoneyConfig
	DPOCfg         DPOConfig
	PaymentCfg     PaymentConfig
}

type MinioConfig struct {
	MinioURL         string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioLocation    string
	MinioSecure      string
	MinioResourceURL string
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ForestWatchConfig points at the remote compliance data API that turns an
// uploaded polygon into a dataset-keyed raw report.
type ForestWatchConfig struct {
	BaseURL string
	APIKey  string
}

type MobileMoneyConfig struct {
	BaseURL string
	APIKey  string
}

type DPOConfig struct {
	BaseURL      string
	CompanyToken string
	RedirectURL  string
}

// PaymentConfig carries the confirmation-poll tuning knobs. Intervals are in
// seconds so they can come straight from the environment.
type PaymentConfig struct {
	PollIntervalSeconds    int
	MobileMoneyMaxAttempts int
	CardMaxAttempts        int
}

func New() *ComplianceServiceConfig {
	return &ComplianceServiceConfig{
		Port:   getEnvOrDefault("PORT", "8086"),
		APIKey: getEnvOrDefault("API_KEY", ""),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("POSTGRES_DB", "compliance_service"),
			Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       0,
		},
		MinioCfg: MinioConfig{
			MinioURL:         getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9407"),
			MinioAccessKey:   getEnvOrDefault("MINIO_ACCESS_KEY", "minio"),
			MinioSecretKey:   getEnvOrDefault("MINIO_SECRET_KEY", "minio123"),
			MinioLocation:    getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			MinioSecure:      getEnvOrDefault("MINIO_SECURE", "false"),
			MinioResourceURL: getEnvOrDefault("MINIO_RESOURCE_URL", "http://localhost:9407/"),
		},
		ForestWatchCfg: ForestWatchConfig{
			BaseURL: getEnvOrDefault("FORESTWATCH_BASE_URL", "https://data-api.globalforestwatch.org"),
			APIKey:  getEnvOrDefault("FORESTWATCH_API_KEY", ""),
		},
		MobileMoneyCfg: MobileMoneyConfig{
			BaseURL: getEnvOrDefault("MOMO_BASE_URL", "http://localhost:8090"),
			APIKey:  getEnvOrDefault("MOMO_API_KEY", ""),
		},
		DPOCfg: DPOConfig{
			BaseURL:      getEnvOrDefault("DPO_BASE_URL", "https://secure.3gdirectpay.com"),
			CompanyToken: getEnvOrDefault("DPO_COMPANY_TOKEN", ""),
			RedirectURL:  getEnvOrDefault("DPO_REDIRECT_URL", ""),
		},
		PaymentCfg: PaymentConfig{
			PollIntervalSeconds:    getEnvIntOrDefault("PAYMENT_POLL_INTERVAL_SECONDS", 3),
			MobileMoneyMaxAttempts: getEnvIntOrDefault("PAYMENT_MOMO_MAX_ATTEMPTS", 40),
			CardMaxAttempts:        getEnvIntOrDefault("PAYMENT_CARD_MAX_ATTEMPTS", 6000),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
