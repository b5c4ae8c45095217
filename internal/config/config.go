package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the configuration loader.
const (
	EnvConfigPath          = "CONFIG_PATH"
	EnvDBConnection        = "DB_CONNECTION"
	EnvJWTSecret           = "JWT_SECRET"
	EnvJWTExpiry           = "JWT_EXPIRY"
	EnvEnvironment         = "APP_ENV"
	EnvStripeSecretKey     = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvMailchimpAPIKey     = "MAILCHIMP_API_KEY"
	EnvAdminEmails         = "ADMIN_EMAILS"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// StripeConfig holds Stripe API credentials and checkout settings.
type StripeConfig struct {
	SecretKey         string `yaml:"secret-key"`       // API secret key.
	WebhookSecret     string `yaml:"webhook-secret"`   // Webhook signing secret.
	PriceIDBasic      string `yaml:"price-basic"`      // Recurring price for the basic tier.
	PriceIDPro        string `yaml:"price-pro"`        // Recurring price for the pro tier.
	PriceIDEnterprise string `yaml:"price-enterprise"` // Recurring price for the enterprise tier.
	FrontendURL       string `yaml:"frontend-url"`     // Base URL for success/cancel redirects.
}

// AnalyzerConfig holds LLM provider settings for code analysis.
type AnalyzerConfig struct {
	OpenAIAPIKey string        `yaml:"openai-api-key"` // OpenAI API key, empty disables the LLM path.
	Model        string        `yaml:"model"`          // Chat model name.
	Timeout      time.Duration `yaml:"timeout"`        // Per-request deadline.
}

// MailchimpConfig holds MailChimp marketing API settings.
type MailchimpConfig struct {
	APIKey       string `yaml:"api-key"`       // API key in <key>-<dc> form.
	ServerPrefix string `yaml:"server-prefix"` // Datacenter prefix, e.g. "us12".
	AudienceID   string `yaml:"audience-id"`   // Default audience (list) ID.
	SenderName   string `yaml:"sender-name"`   // Display name used in email content.
	ReplyToEmail string `yaml:"reply-to"`      // Support reply address.
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Environment string   `yaml:"environment"`  // Deployment environment name.
	CORSOrigins []string `yaml:"cors-origins"` // Allowed CORS origins, empty means all.
	AdminEmails []string `yaml:"admin-emails"` // Emails granted the admin flag on registration.
}

// fileConfig maps the full YAML configuration file.
type fileConfig struct {
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Mailchimp MailchimpConfig `yaml:"mailchimp"`
	Server    ServerConfig    `yaml:"server"`
}

// readFileConfig parses the YAML config file, tolerating a missing file.
func readFileConfig(configPath string) (fileConfig, error) {
	var cfg fileConfig
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return cfg, nil
}

// LoadDatabaseDSN reads the database DSN from the environment or config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	cfg, errRead := readFileConfig(configPath)
	if errRead != nil {
		return "", errRead
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the config file with env overrides.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	result := JWTConfig{Expiry: defaultJWTExpiry}

	if cfg, errRead := readFileConfig(configPath); errRead == nil && (cfg.JWT.Secret != "" || cfg.JWT.Expiry > 0) {
		result = cfg.JWT
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LoadStripeConfig loads Stripe settings from the config file with env overrides.
func LoadStripeConfig(configPath string) (StripeConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil {
		return StripeConfig{}, errRead
	}
	result := cfg.Stripe
	if key := strings.TrimSpace(os.Getenv(EnvStripeSecretKey)); key != "" {
		result.SecretKey = key
	}
	if secret := strings.TrimSpace(os.Getenv(EnvStripeWebhookSecret)); secret != "" {
		result.WebhookSecret = secret
	}
	return result, nil
}

// defaultAnalyzerTimeout bounds LLM analysis calls when unconfigured.
const defaultAnalyzerTimeout = 60 * time.Second

// LoadAnalyzerConfig loads analyzer settings from the config file with env overrides.
func LoadAnalyzerConfig(configPath string) (AnalyzerConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil {
		return AnalyzerConfig{}, errRead
	}
	result := cfg.Analyzer
	if key := strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey)); key != "" {
		result.OpenAIAPIKey = key
	}
	if result.Timeout <= 0 {
		result.Timeout = defaultAnalyzerTimeout
	}
	return result, nil
}

// LoadMailchimpConfig loads MailChimp settings from the config file with env overrides.
func LoadMailchimpConfig(configPath string) (MailchimpConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil {
		return MailchimpConfig{}, errRead
	}
	result := cfg.Mailchimp
	if key := strings.TrimSpace(os.Getenv(EnvMailchimpAPIKey)); key != "" {
		result.APIKey = key
	}
	if result.ServerPrefix == "" {
		if _, dc, found := strings.Cut(result.APIKey, "-"); found && dc != "" {
			result.ServerPrefix = dc
		}
	}
	return result, nil
}

// LoadServerConfig loads server settings from the config file with env overrides.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil {
		return ServerConfig{}, errRead
	}
	result := cfg.Server
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		result.Environment = env
	}
	if result.Environment == "" {
		result.Environment = "production"
	}
	if raw := strings.TrimSpace(os.Getenv(EnvAdminEmails)); raw != "" {
		result.AdminEmails = splitCSV(raw)
	}
	return result, nil
}

// splitCSV splits a comma-separated value list, dropping empty entries.
func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
