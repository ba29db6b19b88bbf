package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds process-wide singletons shared across handlers
type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port           string
	Environment    string
	JWTSecret      string
	HTTPTimeout    time.Duration
	OrderStorePath string
	WalletStore    string // "sqlite" or "postgres"
	WalletDBPath   string
	WalletDSN      string

	// Backend order-creation endpoints, one per provider family
	CryptomusOrderURL string
	GatewayOrderURL   string
	WalletGenerateURL string
	WidgetSessionURL  string
	WidgetCompleteURL string

	// Audit trail (OpenSearch)
	EnableAudit    bool
	OpenSearchURL  string
	OpenSearchUser string
	OpenSearchPass string
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validator.New(),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:           GetEnv("APP_PORT", "9000"),
			Environment:    GetEnv("ENVIRONMENT", "development"),
			JWTSecret:      GetEnv("JWT_SECRET", ""),
			HTTPTimeout:    time.Duration(GetIntEnv("TOPUP_HTTP_TIMEOUT", 30)) * time.Second,
			OrderStorePath: GetEnv("ORDER_STORE_PATH", "data/orders.db"),
			WalletStore:    GetEnv("WALLET_STORE", "sqlite"),
			WalletDBPath:   GetEnv("WALLET_DB_PATH", "data/wallets.db"),
			WalletDSN:      GetEnv("WALLET_DSN", ""),

			CryptomusOrderURL: GetEnv("CRYPTOMUS_ORDER_URL", "http://localhost:8080/createCryptomusOrder"),
			GatewayOrderURL:   GetEnv("GATEWAY_ORDER_URL", "http://localhost:8080/createGatewayOrder"),
			WalletGenerateURL: GetEnv("WALLET_GENERATE_URL", "http://localhost:8080/generateWallets"),
			WidgetSessionURL:  GetEnv("WIDGET_SESSION_URL", "http://localhost:8080/createCheckoutSession"),
			WidgetCompleteURL: GetEnv("WIDGET_COMPLETE_URL", "http://localhost:8080/completeCheckout"),

			EnableAudit:    GetBoolEnv("ENABLE_AUDIT", false),
			OpenSearchURL:  GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser: GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass: GetEnv("OPENSEARCH_PASSWORD", ""),
		}
	}
	return appConfigInstance
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
