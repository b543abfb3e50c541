package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env                string
	Port               string
	ServiceName        string
	PostgresUser       string
	PostgresPassword   string
	PostgresDB         string
	PostgresHost       string
	PostgresPort       string
	PostgresSSLMode    string
	PostgresTimeZone   string
	RedisURL           string
	CartTTL            time.Duration
	JWTSecret          string
	PaymentProvider    string // "razorpay" or "stripe"
	StoreName          string
	Currency           string
	RazorpayKeyID      string
	RazorpayKeySecret  string
	RazorpaySecretName string // Secrets Manager name holding the key secret
	RazorpaySecretTTL  time.Duration
	StripeSecretKey    string
	StripePublishable  string
	GatewayScriptURL   string
	GatewayCheckScript bool
	EventBus           string // "sns", "kafka" or "none"
	PaymentSNSTopicARN string
	KafkaBrokers       []string
	KafkaTopic         string
	AllowedOrigins     []string
	RateLimitRPS       float64
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
	// idle payment controls, shipping forms and undrained notices are
	// forgotten after SessionTTL
	SessionTTL time.Duration
}

// Load reads the service configuration from the environment. A .env file in
// the working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8088"),
		ServiceName:        getEnv("SERVICE_NAME", "checkout-service"),
		PostgresUser:       os.Getenv("POSTGRES_USER"),
		PostgresPassword:   os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:         os.Getenv("POSTGRES_DB"),
		PostgresHost:       getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:       getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:   getEnv("POSTGRES_TIMEZONE", "Asia/Kolkata"),
		RedisURL:           getEnv("REDIS_URL", "redis://redis:6379"),
		CartTTL:            getDuration("CART_TTL", time.Hour*24*7),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		PaymentProvider:    strings.ToLower(getEnv("PAYMENT_PROVIDER", "razorpay")),
		StoreName:          getEnv("STORE_NAME", "FitElite"),
		Currency:           strings.ToUpper(getEnv("PAYMENT_CURRENCY", "INR")),
		RazorpayKeyID:      os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:  os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpaySecretName: os.Getenv("RAZORPAY_SECRET_NAME"),
		RazorpaySecretTTL:  getDuration("RAZORPAY_SECRET_TTL", 15*time.Minute),
		StripeSecretKey:    os.Getenv("STRIPE_API_KEY"),
		StripePublishable:  os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		GatewayScriptURL:   getEnv("GATEWAY_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		GatewayCheckScript: getBool("GATEWAY_CHECK_SCRIPT", false),
		EventBus:           strings.ToLower(getEnv("EVENT_BUS", "sns")),
		PaymentSNSTopicARN: getEnv("PAYMENT_SNS_TOPIC_ARN", "arn:aws:sns:eu-west-2:000000000000:payment-events"),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "payment.events"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 20),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		SessionTTL:         getDuration("SESSION_TTL", 30*time.Minute),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	required := map[string]string{
		"POSTGRES_USER":     c.PostgresUser,
		"POSTGRES_PASSWORD": c.PostgresPassword,
		"POSTGRES_DB":       c.PostgresDB,
	}
	switch c.EventBus {
	case "sns", "kafka", "none":
	default:
		return fmt.Errorf("unsupported EVENT_BUS %q", c.EventBus)
	}

	switch c.PaymentProvider {
	case "razorpay":
		required["RAZORPAY_KEY_ID"] = c.RazorpayKeyID
		// the secret may come from Secrets Manager instead
		if c.RazorpaySecretName == "" {
			required["RAZORPAY_KEY_SECRET"] = c.RazorpayKeySecret
		}
	case "stripe":
		required["STRIPE_API_KEY"] = c.StripeSecretKey
		required["STRIPE_PUBLISHABLE_KEY"] = c.StripePublishable
	default:
		return fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.PaymentProvider)
	}

	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// PostgresDSN builds the gorm/pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
