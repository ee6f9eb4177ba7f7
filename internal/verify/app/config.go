package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer   string // Required: expected issuer of access tokens
	Audience string // Optional: expected audience of access tokens

	JWTAlgorithm     string // Optional: token verification algorithm (EdDSA, HS256) (default: EdDSA)
	JWTPublicKeyFile string // Path to PEM public key (EdDSA mode)
	JWTSecret        string // Shared secret (HS256 mode)

	DatabaseFile string // Optional: path to SQLite database file (default: ./verify.db)

	SessionTTL     time.Duration // Session lifetime (default: 10m)
	CodeTTL        time.Duration // Issued SMS code lifetime (default: 5m)
	ResendCooldown time.Duration // Cooldown between sends (default: 30s, 3s in demo mode)
	SendTimeout    time.Duration // Gateway round trip bound (default: 10s)
	VerifyTimeout  time.Duration // Verifier call bound (default: 10s)

	DemoMode bool // Demo mode: logging dispatcher + fixed "123456" verifier

	SMSGatewayURL  string // SMS provider send endpoint
	SMSAPIKey      string // SMS provider API key
	SMSSender      string // Optional sender id
	SMSMessageBody string // Message template; one %s verb takes the code

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 15m)
}

func LoadConfig() Config {
	demo := getEnvBoolOrDefault("VERIFY_DEMO_MODE", false)

	defaultCooldown := 30 * time.Second
	if demo {
		defaultCooldown = 3 * time.Second
	}

	cfg := Config{
		Issuer:           getEnvOrDefault("VERIFY_ISSUER", "nzassa-auth"),
		Audience:         os.Getenv("VERIFY_AUDIENCE"),
		JWTAlgorithm:     getEnvOrDefault("VERIFY_JWT_ALGORITHM", "EdDSA"),
		JWTPublicKeyFile: os.Getenv("VERIFY_JWT_PUBLIC_KEY_FILE"),
		JWTSecret:        os.Getenv("VERIFY_JWT_SECRET"),
		DatabaseFile:     getEnvOrDefault("VERIFY_DATABASE_FILE", "verify.db"),

		SessionTTL:     getEnvDurationOrDefault("VERIFY_SESSION_TTL", 10*time.Minute),
		CodeTTL:        getEnvDurationOrDefault("VERIFY_CODE_TTL", 5*time.Minute),
		ResendCooldown: getEnvDurationOrDefault("VERIFY_RESEND_COOLDOWN", defaultCooldown),
		SendTimeout:    getEnvDurationOrDefault("VERIFY_SEND_TIMEOUT", 10*time.Second),
		VerifyTimeout:  getEnvDurationOrDefault("VERIFY_VERIFY_TIMEOUT", 10*time.Second),

		DemoMode: demo,

		SMSGatewayURL:  os.Getenv("VERIFY_SMS_GATEWAY_URL"),
		SMSAPIKey:      os.Getenv("VERIFY_SMS_API_KEY"),
		SMSSender:      os.Getenv("VERIFY_SMS_SENDER"),
		SMSMessageBody: getEnvOrDefault("VERIFY_SMS_MESSAGE", "Nzassa code: %s"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 15*time.Minute),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers read as seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
