package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Auth:    AuthConfig{JWTSecret: "s3cret", TokenTTL: 24 * time.Hour},
		Ledger:  LedgerConfig{DailyBonus: 5, StartingCredits: 20, InsightPrice: 10},
		OpenAI:  OpenAIConfig{APIKey: "sk-test"},
		Billing: BillingConfig{WebhookSecret: "whsec"},
	}
}

func TestValidate_ListsAllMissingSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = ""
	cfg.OpenAI.APIKey = ""
	cfg.Billing.WebhookSecret = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error for missing secrets")
	}
	for _, name := range []string{"JWT_SECRET", "OPENAI_API_KEY", "PAYMENT_WEBHOOK_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestValidate_RejectsFreeInsights(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.InsightPrice = 0
	if cfg.Validate() == nil {
		t.Fatal("zero insight price must be rejected")
	}
}

func TestValidate_RejectsNegativeGrants(t *testing.T) {
	cfg := validConfig()
	cfg.Ledger.DailyBonus = -1
	if cfg.Validate() == nil {
		t.Fatal("negative daily bonus must be rejected")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Ledger.DailyBonus != 5 || cfg.Ledger.StartingCredits != 20 || cfg.Ledger.InsightPrice != 10 {
		t.Errorf("ledger defaults = %+v", cfg.Ledger)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.MaxTokens != 2000 {
		t.Errorf("openai defaults = %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.Timeout != 60*time.Second {
		t.Errorf("openai timeout = %s, want 60s", cfg.OpenAI.Timeout)
	}
}

func TestSplitEnv_TrimsAndDropsEmpty(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " http://a.example , ,http://b.example")
	origins := splitEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	if len(origins) != 2 || origins[0] != "http://a.example" || origins[1] != "http://b.example" {
		t.Fatalf("origins = %v", origins)
	}
}
