package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ibreez3/ai-chat/chat"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

type Config struct {
	Server struct {
		Port              int `mapstructure:"port"`
		RequestTimeoutSec int `mapstructure:"request_timeout_sec"`
	} `mapstructure:"server"`
	Provider string `mapstructure:"provider"`
	OpenAI   struct {
		BaseURL           string  `mapstructure:"base_url"`
		APIKeyEnv         string  `mapstructure:"api_key_env"`
		APIKey            string  `mapstructure:"-"`
		Model             string  `mapstructure:"model"`
		MaxTokens         int     `mapstructure:"max_tokens"`
		Temperature       float64 `mapstructure:"temperature"`
		MaxRetries        int     `mapstructure:"max_retries"`
		RetryBaseDelaySec int     `mapstructure:"retry_base_delay_sec"`
		RetryGrowthFactor float64 `mapstructure:"retry_growth_factor"`
		RequestTimeoutSec int     `mapstructure:"request_timeout_sec"`
		TransientStatus   []int   `mapstructure:"transient_status"`
	} `mapstructure:"openai"`
	Azure struct {
		Endpoint   string `mapstructure:"endpoint"`
		Deployment string `mapstructure:"deployment"`
		APIKeyEnv  string `mapstructure:"api_key_env"`
		APIKey     string `mapstructure:"-"`
	} `mapstructure:"azure"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Telemetry struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"telemetry"`
}

// legacyEnv binds the GPT_* variables older deployments already export.
// They win over AICHAT_* variables and the config file.
var legacyEnv = map[string]string{
	"openai.model":                "GPT_MODEL",
	"openai.temperature":          "GPT_TEMPERATURE",
	"openai.max_tokens":           "GPT_MAX_TOKENS",
	"openai.max_retries":          "GPT_MAX_RETRIES",
	"openai.request_timeout_sec":  "GPT_REQUEST_TIMEOUT_SECONDS",
	"openai.retry_base_delay_sec": "GPT_RETRY_BASE_SECONDS",
	"openai.retry_growth_factor":  "GPT_RETRY_EXPONENT_SECONDS",
}

// Load reads path, or config.yaml from . and ./config when path is empty.
// Values resolve as environment > file > default.
func Load(path string) (Config, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AICHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, env, "AICHAT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return cfg, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Provider = strings.ToLower(cfg.Provider)
	cfg.OpenAI.APIKey = os.Getenv(cfg.OpenAI.APIKeyEnv)
	cfg.Azure.APIKey = os.Getenv(cfg.Azure.APIKeyEnv)
	if cfg.Provider == ProviderOpenAI && cfg.OpenAI.APIKey == "" {
		return cfg, fmt.Errorf("missing OpenAI API key in env %s", cfg.OpenAI.APIKeyEnv)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := chat.DefaultOptions()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_sec", 300)
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("openai.model", d.Model)
	v.SetDefault("openai.max_tokens", d.MaxTokens)
	v.SetDefault("openai.temperature", d.Temperature)
	v.SetDefault("openai.max_retries", d.MaxRetries)
	v.SetDefault("openai.retry_base_delay_sec", int(d.RetryBaseDelay/time.Second))
	v.SetDefault("openai.retry_growth_factor", d.RetryGrowthFactor)
	v.SetDefault("openai.request_timeout_sec", int(d.RequestTimeout/time.Second))
	v.SetDefault("openai.transient_status", d.TransientStatus)
	v.SetDefault("azure.endpoint", "")
	v.SetDefault("azure.deployment", "")
	v.SetDefault("azure.api_key_env", "AZURE_OPENAI_API_KEY")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.endpoint", "")
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAzure:
	default:
		return &chat.ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", c.Provider)}
	}
	return c.GeneratorOptions().Validate()
}

// GeneratorOptions is the chat.Options view of the openai section. The
// azure provider shares it; only the deployment replaces the model.
func (c Config) GeneratorOptions() chat.Options {
	return chat.Options{
		Model:             c.OpenAI.Model,
		MaxTokens:         c.OpenAI.MaxTokens,
		Temperature:       c.OpenAI.Temperature,
		MaxRetries:        c.OpenAI.MaxRetries,
		RetryBaseDelay:    time.Duration(c.OpenAI.RetryBaseDelaySec) * time.Second,
		RetryGrowthFactor: c.OpenAI.RetryGrowthFactor,
		RequestTimeout:    time.Duration(c.OpenAI.RequestTimeoutSec) * time.Second,
		TransientStatus:   c.OpenAI.TransientStatus,
	}
}
