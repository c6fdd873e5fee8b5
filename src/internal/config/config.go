package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=transfer_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultHTTPAddr = ":8080"
const defaultServiceName = "transfer-orchestrator"
const defaultCustomerServiceURL = "http://localhost:5002"
const defaultExchangeRateServiceURL = "http://localhost:5012"
const defaultFraudServiceURL = "http://localhost:5010"

const (
	LedgerDriverMemory   = "memory"
	LedgerDriverPostgres = "postgres"
)

type Config struct {
	HTTPAddr                   string
	ServiceName                string
	LogLevel                   string
	TracingEnabled             bool
	LedgerDriver               string
	DatabaseDSN                string
	MigrationsDir              string
	DBMaxOpenConns             int
	DBMaxIdleConns             int
	DBConnMaxIdleTime          time.Duration
	DBConnMaxLifetime          time.Duration
	APIKeyHash                 string
	CustomerServiceURL         string
	CustomerServiceTimeout     time.Duration
	ExchangeRateServiceURL     string
	ExchangeRateServiceTimeout time.Duration
	FraudServiceURL            string
	FraudServiceTimeout        time.Duration
	ApprovalSweepInterval      time.Duration
}

func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	ledgerDriver := strings.ToLower(envOrDefault("LEDGER_DRIVER", LedgerDriverMemory))
	if ledgerDriver != LedgerDriverMemory && ledgerDriver != LedgerDriverPostgres {
		return Config{}, fmt.Errorf("LEDGER_DRIVER must be %q or %q, got %q", LedgerDriverMemory, LedgerDriverPostgres, ledgerDriver)
	}

	customerTimeout, err := durationOrDefault("CUSTOMER_SERVICE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	exchangeTimeout, err := durationOrDefault("EXCHANGE_RATE_SERVICE_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	fraudTimeout, err := durationOrDefault("FRAUD_SERVICE_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	sweepInterval, err := durationOrDefault("APPROVAL_SWEEP_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := intOrDefault("DB_MAX_OPEN_CONNS", 30)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intOrDefault("DB_MAX_IDLE_CONNS", 20)
	if err != nil {
		return Config{}, err
	}
	connMaxIdleTime, err := durationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationOrDefault("DB_CONN_MAX_LIFETIME", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}

	tracingEnabled := false
	if raw := strings.TrimSpace(os.Getenv("TRACING_ENABLED")); raw != "" {
		tracingEnabled, err = strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("TRACING_ENABLED: %w", err)
		}
	}

	return Config{
		HTTPAddr:                   envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		ServiceName:                envOrDefault("SERVICE_NAME", defaultServiceName),
		LogLevel:                   envOrDefault("LOG_LEVEL", "info"),
		TracingEnabled:             tracingEnabled,
		LedgerDriver:               ledgerDriver,
		DatabaseDSN:                normalizeConnectionString(envOrDefault("DATABASE_DSN", defaultConnectionString)),
		MigrationsDir:              envOrDefault("MIGRATIONS_DIR", filepath.Join("src", "migrations")),
		DBMaxOpenConns:             maxOpenConns,
		DBMaxIdleConns:             maxIdleConns,
		DBConnMaxIdleTime:          connMaxIdleTime,
		DBConnMaxLifetime:          connMaxLifetime,
		APIKeyHash:                 strings.TrimSpace(os.Getenv("API_KEY_HASH")),
		CustomerServiceURL:         strings.TrimRight(envOrDefault("CUSTOMER_SERVICE_URL", defaultCustomerServiceURL), "/"),
		CustomerServiceTimeout:     customerTimeout,
		ExchangeRateServiceURL:     strings.TrimRight(envOrDefault("EXCHANGE_RATE_SERVICE_URL", defaultExchangeRateServiceURL), "/"),
		ExchangeRateServiceTimeout: exchangeTimeout,
		FraudServiceURL:            strings.TrimRight(envOrDefault("FRAUD_SERVICE_URL", defaultFraudServiceURL), "/"),
		FraudServiceTimeout:        fraudTimeout,
		ApprovalSweepInterval:      sweepInterval,
	}, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}

func normalizeConnectionString(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
