package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	DB       PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	PhonePe  PhonePeConfig
	PineLabs PineLabsConfig
	Rista    RistaConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Name string
	Env  string
}

type ServerConfig struct {
	Host string
	Port int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	CatalogTTL int // seconds
}

type KafkaConfig struct {
	Brokers        []string
	ReconcileTopic string
	ConsumerGroup  string
}

// PhonePeConfig holds the dynamic-QR wallet gateway credentials.
type PhonePeConfig struct {
	BaseURL             string
	QRInitEndpoint      string
	TransactionEndpoint string
	CallbackURL         string
	MerchantID          string
	SaltKey             string
	SaltKeyIndex        string
	StoreID             string
	TerminalID          string
	ProviderID          string
}

// PineLabsConfig holds the card terminal (EDC) gateway credentials.
type PineLabsConfig struct {
	BaseURL       string
	MerchantID    string
	ClientID      string
	StoreID       string
	SecurityToken string
	UserID        string
}

// RistaConfig holds the kitchen-display / ERP gateway credentials.
type RistaConfig struct {
	BaseURL    string
	APIKey     string
	SecretKey  string
	BranchCode string
}

type PaymentConfig struct {
	CashPIN string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "ktr-kiosk"),
			Env:  getEnv("APP_ENV", "local"),
		},
		Server: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnvAsInt("HTTP_PORT", 8040),
		},
		DB: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DBName:   getEnv("POSTGRES_DB", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			CatalogTTL: getEnvAsInt("REDIS_CATALOG_TTL_SECONDS", 3600),
		},
		Kafka: KafkaConfig{
			Brokers:        splitAndTrim(getEnv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")),
			ReconcileTopic: getEnv("KAFKA_RECONCILE_TOPIC", "payment_reconcile_commands"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "ktr-kiosk"),
		},
		PhonePe: PhonePeConfig{
			BaseURL:             getEnv("PHONEPE_BASE_URL", "https://api.phonepe.com/apis/hermes"),
			QRInitEndpoint:      getEnv("PHONEPE_QR_INIT_ENDPOINT", "/v3/qr/init"),
			TransactionEndpoint: getEnv("PHONEPE_TRANSACTION_ENDPOINT", "/v3/transaction"),
			CallbackURL:         getEnv("PHONEPE_CALLBACK_URL", ""),
			MerchantID:          getEnv("PHONEPE_MERCHANT_ID", ""),
			SaltKey:             getEnv("PHONEPE_SALT_KEY", ""),
			SaltKeyIndex:        getEnv("PHONEPE_SALT_KEY_INDEX", "1"),
			StoreID:             getEnv("PHONEPE_STORE_ID", ""),
			TerminalID:          getEnv("PHONEPE_TERMINAL_ID", ""),
			ProviderID:          getEnv("PHONEPE_PROVIDER_ID", ""),
		},
		PineLabs: PineLabsConfig{
			BaseURL:       getEnv("PINELABS_EDC_BASE_URL", "https://www.plutuscloudserviceuat.in:8201"),
			MerchantID:    getEnv("PINELABS_EDC_MERCHANT_ID", ""),
			ClientID:      getEnv("PINELABS_EDC_CLIENT_ID", ""),
			StoreID:       getEnv("PINELABS_STORE_ID", ""),
			SecurityToken: getEnv("PINELABS_EDC_SECURITY_TOKEN", ""),
			UserID:        getEnv("PINELABS_EDC_USER_ID", ""),
		},
		Rista: RistaConfig{
			BaseURL:    getEnv("RISTA_BASE_URL", "https://api.ristaapps.com/v1"),
			APIKey:     getEnv("RISTA_PI_KEY", ""),
			SecretKey:  getEnv("RISTA_SECRET_KEY", ""),
			BranchCode: getEnv("RISTA_BRANCH_CODE", ""),
		},
		Payment: PaymentConfig{
			CashPIN: getEnv("CASH_PAYMENT_PIN", "1234"),
		},
	}

	return cfg, cfg.validate()
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

/* ================= helpers ================= */

func (c *Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("HTTP_PORT is invalid")
	}
	if c.DB.Host == "" || c.DB.User == "" || c.DB.DBName == "" {
		return fmt.Errorf("database config is incomplete")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers is empty")
	}
	if c.Payment.CashPIN == "" {
		return fmt.Errorf("CASH_PAYMENT_PIN is empty")
	}
	// Provider credentials stay optional here so that local tooling and tests
	// can load the config without a full secret set.
	return nil
}

func getEnv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if val := strings.TrimSpace(p); val != "" {
			out = append(out, val)
		}
	}
	return out
}
