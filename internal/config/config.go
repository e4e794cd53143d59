package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion        string
	SNSAdminTopicARN string // empty disables topic publishing

	SiteName       string
	AllowedOrigins []string // CORS allowed origins

	TierLimits map[string]int // tier -> max managed businesses

	RateLimits RateLimits
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Businesses        string
	Claims            string
	VerificationCodes string
	Profiles          string
	UserBusinesses    string
	Notifications     string
}

// RatePolicy is an externally configurable {window, maxAttempts} tuple.
type RatePolicy struct {
	Window      time.Duration
	MaxAttempts int
	BlockFor    time.Duration
}

// RateLimits holds the independent per-action policies.
type RateLimits struct {
	Submission   RatePolicy
	Verification RatePolicy
	Resend       RatePolicy
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Businesses:        getEnv("DYNAMO_TABLE_BUSINESSES", "businesses"),
			Claims:            getEnv("DYNAMO_TABLE_CLAIMS", "business_claims"),
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
			Profiles:          getEnv("DYNAMO_TABLE_PROFILES", "profiles"),
			UserBusinesses:    getEnv("DYNAMO_TABLE_USER_BUSINESSES", "user_businesses"),
			Notifications:     getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "claim-proofs"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:        getEnv("SNS_REGION", "us-east-1"),
		SNSAdminTopicARN: getEnv("SNS_ADMIN_TOPIC_ARN", ""),

		SiteName:       getEnv("SITE_NAME", "ClaimDesk"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		TierLimits: map[string]int{
			"standard": getEnvInt("TIER_LIMIT_STANDARD", 1),
			"growth":   getEnvInt("TIER_LIMIT_GROWTH", 3),
			"gold":     getEnvInt("TIER_LIMIT_GOLD", 10),
		},

		RateLimits: RateLimits{
			Submission:   loadPolicy("SUBMISSION", 60*60*1000, 3, 60*60*1000),
			Verification: loadPolicy("VERIFICATION", 15*60*1000, 5, 30*60*1000),
			Resend:       loadPolicy("RESEND", 15*60*1000, 3, 15*60*1000),
		},
	}
}

func loadPolicy(action string, windowMs, maxAttempts, blockMs int) RatePolicy {
	return RatePolicy{
		Window:      time.Duration(getEnvInt("RATE_LIMIT_"+action+"_WINDOW_MS", windowMs)) * time.Millisecond,
		MaxAttempts: getEnvInt("RATE_LIMIT_"+action+"_MAX_ATTEMPTS", maxAttempts),
		BlockFor:    time.Duration(getEnvInt("RATE_LIMIT_"+action+"_BLOCK_MS", blockMs)) * time.Millisecond,
	}
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
