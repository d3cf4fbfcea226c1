package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Registry backends selectable through REGISTRY_BACKEND.
const (
	RegistryBackendBolt   = "bolt"
	RegistryBackendDynamo = "dynamo"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AllowedOrigins []string // CORS allowed origins

	RegistryBackend string
	RegistryPath    string // bbolt file, used when RegistryBackend is "bolt"

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	LedgerRPCURL         string
	ContractArtifactPath string
	ContractAddress      string // overrides the artifact's network entry when set
	LedgerGasLimit       uint64
	LedgerTimeout        time.Duration
	LedgerPollInterval   time.Duration

	ModerationURL     string
	ModerationTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	TrustProxy     bool // take the client IP from X-Forwarded-For / X-Real-Ip
}

// DynamoTables holds the DynamoDB table names backing the account registry.
type DynamoTables struct {
	Users        string
	UserEmails   string
	UserSessions string
	Registry     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		RegistryBackend: strings.ToLower(getEnv("REGISTRY_BACKEND", RegistryBackendBolt)),
		RegistryPath:    getEnv("REGISTRY_PATH", "data/registry.db"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:        getEnv("DYNAMO_TABLE_USERS", "users"),
			UserEmails:   getEnv("DYNAMO_TABLE_USER_EMAILS", "user_emails"),
			UserSessions: getEnv("DYNAMO_TABLE_USER_SESSIONS", "user_sessions"),
			Registry:     getEnv("DYNAMO_TABLE_REGISTRY", "account_registry"),
		},

		LedgerRPCURL:         getEnv("LEDGER_RPC_URL", getEnv("GANACHE_URL", "http://127.0.0.1:7545")),
		ContractArtifactPath: getEnv("CONTRACT_ARTIFACT_PATH", "build/contracts/ReviewForum.json"),
		ContractAddress:      getEnv("CONTRACT_ADDRESS", ""),
		LedgerGasLimit:       getEnvUint64("LEDGER_GAS_LIMIT", 500000),
		LedgerTimeout:        getEnvDuration("LEDGER_TIMEOUT", 60*time.Second),
		LedgerPollInterval:   getEnvDuration("LEDGER_POLL_INTERVAL", 500*time.Millisecond),

		ModerationURL:     getEnv("AI_API_URL", "http://127.0.0.1:5000"),
		ModerationTimeout: getEnvDuration("MODERATION_TIMEOUT", 5*time.Second),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),
	}
}

// IsDevelopment reports whether the process runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvUint64 ignores values that are not positive integers.
func getEnvUint64(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("5s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
