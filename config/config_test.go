package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ibreez3/ai-chat/chat"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-default")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-default" {
		t.Errorf("APIKey = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Server.Port != 8080 || cfg.Provider != ProviderOpenAI {
		t.Errorf("server/provider = %d/%s", cfg.Server.Port, cfg.Provider)
	}
	if got, want := cfg.GeneratorOptions(), chat.DefaultOptions(); !reflect.DeepEqual(got, want) {
		t.Errorf("GeneratorOptions() = %+v, want %+v", got, want)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	t.Setenv("MY_KEY", "sk-file")
	t.Setenv("GPT_TEMPERATURE", "1.0")
	t.Setenv("GPT_MAX_RETRIES", "2")
	p := writeConfig(t, `
server:
  port: 9090
openai:
  api_key_env: MY_KEY
  model: gpt-4o-mini
  max_tokens: 300
  temperature: 0.5
  max_retries: 7
  retry_base_delay_sec: 1
  retry_growth_factor: 3
  request_timeout_sec: 60
  transient_status: [502, 524]
log:
  level: debug
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Log.Level != "debug" {
		t.Errorf("port/log = %d/%s", cfg.Server.Port, cfg.Log.Level)
	}
	o := cfg.GeneratorOptions()
	if o.Model != "gpt-4o-mini" || o.MaxTokens != 300 {
		t.Errorf("model/tokens = %s/%d", o.Model, o.MaxTokens)
	}
	if o.Temperature != 1.0 {
		t.Errorf("Temperature = %v, want env override 1.0", o.Temperature)
	}
	if o.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want env override 2", o.MaxRetries)
	}
	if o.RetryBaseDelay != time.Second || o.RetryGrowthFactor != 3 || o.RequestTimeout != time.Minute {
		t.Errorf("backoff = %v/%v/%v", o.RetryBaseDelay, o.RetryGrowthFactor, o.RequestTimeout)
	}
	if !reflect.DeepEqual(o.TransientStatus, []int{502, 524}) {
		t.Errorf("TransientStatus = %v", o.TransientStatus)
	}
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk")
	t.Setenv("AICHAT_SERVER_PORT", "7070")
	t.Setenv("AICHAT_OPENAI_MODEL", "gpt-prefixed")
	cfg, err := Load(writeConfig(t, "openai:\n  model: gpt-file\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.OpenAI.Model != "gpt-prefixed" {
		t.Errorf("Model = %q", cfg.OpenAI.Model)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(writeConfig(t, "provider: openai\n")); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestLoadAzureWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	cfg, err := Load(writeConfig(t, "provider: azure\nazure:\n  endpoint: https://x.openai.azure.com\n  deployment: gpt4\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Azure.Deployment != "gpt4" || cfg.Azure.APIKey != "" {
		t.Errorf("azure = %+v", cfg.Azure)
	}
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk")
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "provider", body: "provider: bedrock\n", field: "provider"},
		{name: "max tokens", body: "openai:\n  max_tokens: 0\n", field: "max_tokens"},
		{name: "growth", body: "openai:\n  retry_growth_factor: 0\n", field: "retry_growth_factor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			var cfgErr *chat.ConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("Load = %v, want ConfigurationError on %s", err, tt.field)
			}
		})
	}
}
