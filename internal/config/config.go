package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/core-coin/go-core/v2/common"
	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	// MockMode swaps the chain and social clients for deterministic fakes.
	MockMode bool
	// API configuration
	APIPort int
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Blockchain configuration
	ChainRPCURL       string
	LaunchpadAddress  string
	NetworkID         *big.Int
	FundingPrivateKey string
	// InitialLiquidity is the fixed value sent with every create call, in base units.
	InitialLiquidity *big.Int

	// Vault configuration
	VaultSecret string

	// Pipeline configuration
	PollingInterval int // seconds
	Concurrency     int // max intents in flight per stage per tick

	// Social platform configuration
	XClientID     string
	XClientSecret string
	XRedirectURL  string
	XBearerToken  string
	XHandle       string

	// Explorer link used in confirmation replies
	ExplorerURL string

	// Pinning configuration
	PinataJWT     string
	PinataGateway string

	// Ops alert configuration
	TelegramBotToken  string
	TelegramOpsChatID string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:       getEnvAsBool("DEVELOPMENT", false),
		MockMode:          getEnvAsBool("MOCK_MODE", false),
		APIPort:           getEnvAsInt("API_PORT", 5050),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:        getEnv("POSTGRES_DB", "launchbot"),
		ChainRPCURL:       getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
		LaunchpadAddress:  getEnv("LAUNCHPAD_ADDRESS", ""),
		NetworkID:         getEnvAsBigInt("NETWORK_ID", big.NewInt(1)),
		FundingPrivateKey: getEnv("FUNDING_PRIVATE_KEY", ""),
		InitialLiquidity:  getEnvAsBigInt("INITIAL_LIQUIDITY", new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)),
		VaultSecret:       getEnv("VAULT_SECRET", ""),
		PollingInterval:   getEnvAsInt("POLLING_INTERVAL", 5),
		Concurrency:       getEnvAsInt("CONCURRENCY", 5),
		XClientID:         getEnv("X_CLIENT_ID", ""),
		XClientSecret:     getEnv("X_CLIENT_SECRET", ""),
		XRedirectURL:      getEnv("X_REDIRECT_URL", ""),
		XBearerToken:      getEnv("X_BEARER_TOKEN", ""),
		XHandle:           getEnv("X_HANDLE", "coinlaunchnow"),
		ExplorerURL:       getEnv("EXPLORER_URL", "https://blockindex.net/address"),
		PinataJWT:         getEnv("PINATA_JWT", ""),
		PinataGateway:     getEnv("PINATA_GATEWAY", "https://gateway.pinata.cloud/ipfs"),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramOpsChatID: getEnv("TELEGRAM_OPS_CHAT_ID", ""),
	}

	// Set default network ID before validation (required for address validation)
	common.DefaultNetworkID = common.NetworkID(cfg.NetworkID.Int64())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set.
// Chain and social settings are allowed to be absent: the affected component
// reports itself unconfigured (or runs in mock mode) instead of failing here.
func (c *Config) Validate() error {
	if c.VaultSecret == "" && !c.MockMode {
		return fmt.Errorf("VAULT_SECRET is required")
	}

	if c.LaunchpadAddress != "" {
		if _, err := common.HexToAddress(c.LaunchpadAddress); err != nil {
			return fmt.Errorf("invalid LAUNCHPAD_ADDRESS format: %w", err)
		}
	}

	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	if c.PollingInterval <= 0 {
		return fmt.Errorf("POLLING_INTERVAL must be positive")
	}

	if c.Concurrency <= 0 {
		return fmt.Errorf("CONCURRENCY must be positive")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBigInt(name string, defaultValue *big.Int) *big.Int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, ok := new(big.Int).SetString(valueStr, 10); ok {
			return value
		}
	}
	return defaultValue
}
