package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration (outcome notification publisher)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Gateway configuration
	PhonePeConfig PhonePeConfig

	// Session credential configuration
	Session SessionConfig

	// Redirect destinations
	Redirect RedirectConfig

	// Dev-only payment simulation endpoint
	SimulateSecretHash string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

// PhonePeConfig holds the merchant credentials for the PhonePe status API.
// It is passed to the gateway client at construction; nothing reads it from
// ambient state.
type PhonePeConfig struct {
	BaseURL    string `json:"baseUrl" mapstructure:"base_url"`
	MerchantID string `json:"merchantId" mapstructure:"merchant_id"`
	SaltKey    string `json:"saltKey" mapstructure:"salt_key"`
	SaltIndex  string `json:"saltIndex" mapstructure:"salt_index"`

	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// CallbackKey authenticates inbound callbacks. When set, the redirect
	// must carry an hmac query parameter over the transaction id.
	CallbackKey string `json:"callbackKey" mapstructure:"callback_key"`

	// Optional PubNub settlement push channel from the gateway side.
	PNSubKey    string `json:"pn_subkey" mapstructure:"pn_subkey"`
	PNSubSecret string `json:"pn_subsecret" mapstructure:"pn_subsecret"`
	PNUUID      string `json:"pn_uuid" mapstructure:"pn_uuid"`
	PNChannel   string `json:"pn_channel" mapstructure:"pn_channel"`
	PNCipherKey string `json:"pn_cipherKey" mapstructure:"pn_cipherkey"`
}

type SessionConfig struct {
	SigningKey string        `json:"signingKey" mapstructure:"signing_key"`
	TTL        time.Duration `json:"ttl" mapstructure:"ttl"`
	CookieName string        `json:"cookieName" mapstructure:"cookie_name"`
}

type RedirectConfig struct {
	// SuccessBase is the origin the success destination is built on,
	// e.g. "https://app.example.com". The user id is appended as a path
	// segment, never interpolated into the host.
	SuccessBase string `json:"successBase" mapstructure:"success_base"`

	// FailureURL is a fixed destination, no request-derived parts.
	FailureURL string `json:"failureUrl" mapstructure:"failure_url"`

	// AllowedHosts is the redirect host allowlist. Empty means only
	// relative destinations are accepted.
	AllowedHosts []string `json:"allowedHosts" mapstructure:"allowed_hosts"`
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// PhonePe
		PhonePeConfig: PhonePeConfig{
			BaseURL:    getEnv("PHONEPE_BASE_URL", "https://api.phonepe.com/apis/hermes"),
			MerchantID: getEnv("PHONEPE_MERCHANT_ID", ""),
			SaltKey:    getEnv("PHONEPE_SALT_KEY", ""),
			SaltIndex:  getEnv("PHONEPE_SALT_INDEX", "1"),
			Timeout:    getEnvAsDuration("PHONEPE_TIMEOUT", "10s"),

			CallbackKey: getEnv("PHONEPE_CALLBACK_KEY", ""),

			PNSubKey:    getEnv("PHONEPE_PN_SUBKEY", ""),
			PNSubSecret: getEnv("PHONEPE_PN_SUBSECRET", ""),
			PNUUID:      getEnv("PHONEPE_PN_UUID", ""),
			PNChannel:   getEnv("PHONEPE_PN_CHANNEL", ""),
			PNCipherKey: getEnv("PHONEPE_PN_CIPHERKEY", ""),
		},

		// Session
		Session: SessionConfig{
			SigningKey: getEnv("SESSION_SIGNING_KEY", ""),
			TTL:        getEnvAsDuration("SESSION_TTL", "600s"),
			CookieName: getEnv("SESSION_COOKIE_NAME", "authToken"),
		},

		// Redirects
		Redirect: RedirectConfig{
			SuccessBase:  getEnv("REDIRECT_SUCCESS_BASE", ""),
			FailureURL:   getEnv("REDIRECT_FAILURE_URL", "/failed"),
			AllowedHosts: getEnvAsSlice("REDIRECT_ALLOWED_HOSTS", nil),
		},

		SimulateSecretHash: getEnv("SIMULATE_SECRET_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
