package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDatabaseDSN_EnvOverride(t *testing.T) {
	t.Setenv(EnvDBConnection, "postgres://env-wins")
	path := writeConfigFile(t, "database-dsn: file:should-lose\n")

	dsn, err := LoadDatabaseDSN(path)
	if err != nil {
		t.Fatalf("LoadDatabaseDSN: %v", err)
	}
	if dsn != "postgres://env-wins" {
		t.Fatalf("dsn = %q, want env value", dsn)
	}
}

func TestLoadDatabaseDSN_FlatAndNestedKeys(t *testing.T) {
	t.Setenv(EnvDBConnection, "")

	flat := writeConfigFile(t, "database-dsn: file:flat.db\n")
	if dsn, err := LoadDatabaseDSN(flat); err != nil || dsn != "file:flat.db" {
		t.Fatalf("flat key: dsn=%q err=%v", dsn, err)
	}

	nested := writeConfigFile(t, "database:\n  dsn: file:nested.db\n")
	if dsn, err := LoadDatabaseDSN(nested); err != nil || dsn != "file:nested.db" {
		t.Fatalf("nested key: dsn=%q err=%v", dsn, err)
	}
}

func TestLoadDatabaseDSN_Missing(t *testing.T) {
	t.Setenv(EnvDBConnection, "")
	path := writeConfigFile(t, "jwt:\n  secret: abc\n")

	if _, err := LoadDatabaseDSN(path); !errors.Is(err, ErrMissingDatabaseDSN) {
		t.Fatalf("err = %v, want ErrMissingDatabaseDSN", err)
	}
}

func TestLoadJWTConfig_Defaults(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvJWTExpiry, "")

	cfg, err := LoadJWTConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadJWTConfig: %v", err)
	}
	if cfg.Expiry != defaultJWTExpiry {
		t.Fatalf("expiry = %v, want default %v", cfg.Expiry, defaultJWTExpiry)
	}
}

func TestLoadJWTConfig_EnvOverride(t *testing.T) {
	t.Setenv(EnvJWTSecret, "topsecret")
	t.Setenv(EnvJWTExpiry, "2h")
	path := writeConfigFile(t, "jwt:\n  secret: from-file\n  expiry: 1h\n")

	cfg, err := LoadJWTConfig(path)
	if err != nil {
		t.Fatalf("LoadJWTConfig: %v", err)
	}
	if cfg.Secret != "topsecret" {
		t.Fatalf("secret = %q, want env value", cfg.Secret)
	}
	if cfg.Expiry != 2*time.Hour {
		t.Fatalf("expiry = %v, want 2h", cfg.Expiry)
	}
}

func TestLoadStripeConfig_EnvOverride(t *testing.T) {
	t.Setenv(EnvStripeSecretKey, "sk_test_env")
	t.Setenv(EnvStripeWebhookSecret, "whsec_env")
	path := writeConfigFile(t, "stripe:\n  secret-key: sk_test_file\n  price-basic: price_basic\n")

	cfg, err := LoadStripeConfig(path)
	if err != nil {
		t.Fatalf("LoadStripeConfig: %v", err)
	}
	if cfg.SecretKey != "sk_test_env" {
		t.Fatalf("secret key = %q, want env value", cfg.SecretKey)
	}
	if cfg.WebhookSecret != "whsec_env" {
		t.Fatalf("webhook secret = %q, want env value", cfg.WebhookSecret)
	}
	if cfg.PriceIDBasic != "price_basic" {
		t.Fatalf("price basic = %q, want file value", cfg.PriceIDBasic)
	}
}

func TestLoadAnalyzerConfig_DefaultTimeout(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	path := writeConfigFile(t, "analyzer:\n  model: gpt-4\n")

	cfg, err := LoadAnalyzerConfig(path)
	if err != nil {
		t.Fatalf("LoadAnalyzerConfig: %v", err)
	}
	if cfg.Timeout != defaultAnalyzerTimeout {
		t.Fatalf("timeout = %v, want default", cfg.Timeout)
	}
	if cfg.Model != "gpt-4" {
		t.Fatalf("model = %q, want gpt-4", cfg.Model)
	}
}

func TestLoadMailchimpConfig_PrefixFromKey(t *testing.T) {
	t.Setenv(EnvMailchimpAPIKey, "abc123-us21")
	path := writeConfigFile(t, "mailchimp:\n  audience-id: list-1\n")

	cfg, err := LoadMailchimpConfig(path)
	if err != nil {
		t.Fatalf("LoadMailchimpConfig: %v", err)
	}
	if cfg.ServerPrefix != "us21" {
		t.Fatalf("server prefix = %q, want us21 derived from key", cfg.ServerPrefix)
	}
	if cfg.AudienceID != "list-1" {
		t.Fatalf("audience = %q, want list-1", cfg.AudienceID)
	}
}

func TestLoadServerConfig_AdminEmailsFromEnv(t *testing.T) {
	t.Setenv(EnvEnvironment, "staging")
	t.Setenv(EnvAdminEmails, "a@example.com, b@example.com,")
	path := writeConfigFile(t, "server:\n  environment: production\n")

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Fatalf("environment = %q, want staging", cfg.Environment)
	}
	if len(cfg.AdminEmails) != 2 || cfg.AdminEmails[0] != "a@example.com" || cfg.AdminEmails[1] != "b@example.com" {
		t.Fatalf("admin emails = %v", cfg.AdminEmails)
	}
}
