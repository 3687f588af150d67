package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Dynamo   DynamoConfig
	Email    EmailConfig
	Secret   SecretConfig
	Payment  PaymentConfig
	Limit    RateLimitConfig
}

type AppConfig struct {
	Name       string
	Port       string
	Debug      bool
	LogPath    string
	Production bool
	Origin     string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type DynamoConfig struct {
	Region       string
	EndpointURL  string // LocalStack in dev, empty in prod
	AccessKeyID  string
	SecretKey    string
	SecretsTable string
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type SecretConfig struct {
	Store     string // postgres | dynamodb
	OTPTTL    time.Duration
	ResetTTL  time.Duration
	OTPLength int
	HashCost  int
}

type PaymentConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
	MinUnits      int64
	MaxUnits      int64
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
	// Forwarded headers are honoured only from these peers
	TrustedProxies []netip.Prefix
}

const (
	SecretStorePostgres = "postgres"
	SecretStoreDynamo   = "dynamodb"
)

func LoadConfig() (*Config, error) {
	return loadConfig(".env")
}

func loadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "toolcart")
	v.SetDefault("PORT", "8001")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("PRODUCTION", false)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("SECRET_STORE", SecretStorePostgres)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("DYNAMO_TABLE_SECRETS", "secrets")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("OTP_EXPIRATION_TIME", 120000)
	v.SetDefault("PASSWORD_RESET_EXPIRATION_TIME", 120000)
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("SECRET_HASH_COST", 10)
	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("GATEWAY_TIMEOUT_MS", 30000)
	v.SetDefault("PAYMENT_MIN_UNITS", 100)
	v.SetDefault("PAYMENT_MAX_UNITS", 1500000000)
	v.SetDefault("RATE_LIMIT_RPS", 1)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	// .env is optional, environment variables alone are enough
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	v.AutomaticEnv()

	trustedProxies, err := ParseTrustedProxies(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Name:       v.GetString("APP_NAME"),
			Port:       v.GetString("PORT"),
			Debug:      v.GetBool("DEBUG"),
			LogPath:    v.GetString("LOG_PATH"),
			Production: v.GetBool("PRODUCTION"),
			Origin:     v.GetString("ORIGIN"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Dynamo: DynamoConfig{
			Region:       v.GetString("AWS_REGION"),
			EndpointURL:  v.GetString("AWS_ENDPOINT_URL"),
			AccessKeyID:  v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey:    v.GetString("AWS_SECRET_ACCESS_KEY"),
			SecretsTable: v.GetString("DYNAMO_TABLE_SECRETS"),
		},
		Email: EmailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("EMAIL_FROM"),
		},
		Secret: SecretConfig{
			Store:     strings.ToLower(v.GetString("SECRET_STORE")),
			OTPTTL:    time.Duration(v.GetInt64("OTP_EXPIRATION_TIME")) * time.Millisecond,
			ResetTTL:  time.Duration(v.GetInt64("PASSWORD_RESET_EXPIRATION_TIME")) * time.Millisecond,
			OTPLength: v.GetInt("OTP_LENGTH"),
			HashCost:  v.GetInt("SECRET_HASH_COST"),
		},
		Payment: PaymentConfig{
			KeyID:         v.GetString("RAZORPAY_KEY_ID"),
			KeySecret:     v.GetString("RAZORPAY_KEY_SECRET"),
			WebhookSecret: v.GetString("RAZORPAY_WEBHOOK_SECRET"),
			BaseURL:       v.GetString("RAZORPAY_BASE_URL"),
			Timeout:       time.Duration(v.GetInt64("GATEWAY_TIMEOUT_MS")) * time.Millisecond,
			MinUnits:      v.GetInt64("PAYMENT_MIN_UNITS"),
			MaxUnits:      v.GetInt64("PAYMENT_MAX_UNITS"),
		},
		Limit: RateLimitConfig{
			RPS:            v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:          v.GetInt("RATE_LIMIT_BURST"),
			TrustedProxies: trustedProxies,
		},
	}

	return config, nil
}

// Validate collects every configuration violation so startup can report them together.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Origin != "" && !strings.HasPrefix(c.App.Origin, "http://") && !strings.HasPrefix(c.App.Origin, "https://") {
		errs = append(errs, errors.New("ORIGIN must start with http:// or https://"))
	}
	if !strings.HasPrefix(c.Payment.KeyID, "rzp_") {
		errs = append(errs, errors.New("RAZORPAY_KEY_ID must start with rzp_"))
	}
	if len(c.Payment.KeySecret) < 20 {
		errs = append(errs, errors.New("RAZORPAY_KEY_SECRET must be properly configured"))
	}
	if c.Payment.WebhookSecret == "" {
		errs = append(errs, errors.New("RAZORPAY_WEBHOOK_SECRET is required"))
	}
	if c.Payment.Timeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT_MS must be positive"))
	}
	if c.Payment.MinUnits <= 0 || c.Payment.MaxUnits < c.Payment.MinUnits {
		errs = append(errs, errors.New("PAYMENT_MIN_UNITS/PAYMENT_MAX_UNITS must form a positive range"))
	}
	if c.Secret.OTPTTL <= 0 || c.Secret.ResetTTL <= 0 {
		errs = append(errs, errors.New("OTP_EXPIRATION_TIME and PASSWORD_RESET_EXPIRATION_TIME must be positive"))
	}
	if c.Secret.OTPLength < 4 || c.Secret.OTPLength > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.Limit.RPS <= 0 || c.Limit.Burst < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	switch c.Secret.Store {
	case SecretStorePostgres, SecretStoreDynamo:
	default:
		errs = append(errs, fmt.Errorf("SECRET_STORE %q is not supported", c.Secret.Store))
	}

	return errors.Join(errs...)
}

// Warnings reports settings that are allowed but probably unintended.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.Secret.OTPTTL > 10*time.Minute {
		warnings = append(warnings, "OTP expiration time is longer than 10 minutes")
	}

	isTestKey := strings.Contains(c.Payment.KeyID, "test")
	if c.App.Production && isTestKey {
		warnings = append(warnings, "Production environment with Razorpay test keys detected")
	} else if !c.App.Production && c.Payment.KeyID != "" && !isTestKey {
		warnings = append(warnings, "Development environment with Razorpay live keys detected")
	}

	return warnings
}

// ParseTrustedProxies reads a comma separated list of CIDRs or bare IPs.
func ParseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
