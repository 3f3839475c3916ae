package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"infrachat/internal/infrastructure/llm"
)

var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY env variable is required")

type Config struct {
	Server    HTTPServerConfig `json:"server"`
	LLM       LLMConfig        `json:"llm"`
	Terraform TerraformConfig  `json:"terraform"`
	Log       LogConfig        `json:"log"`
}

type HTTPServerConfig struct {
	Host         string        `json:"host" default:"0.0.0.0"`
	Port         int           `json:"port" default:"8000"`
	ReadTimeout  time.Duration `json:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `json:"write_timeout" default:"5m"`
	StaticDir    string        `json:"static_dir" default:"./static"`
}

type LLMConfig struct {
	Provider         string        `json:"provider" default:"gemini"`
	APIKey           string        `json:"api_key" required:"true"`
	BaseURL          string        `json:"base_url" default:"https://api.openai.com/v1/chat/completions"`
	Model            string        `json:"model"`
	Temperature      float32       `json:"temperature" default:"0.05"`
	MaxTokens        int           `json:"max_tokens" default:"1024"`
	FoldSystemPrompt bool          `json:"fold_system_prompt" default:"true"`
	Timeout          time.Duration `json:"timeout" default:"2m"`
}

type TerraformConfig struct {
	Binary         string        `json:"binary" default:"terraform"`
	InitTimeout    time.Duration `json:"init_timeout" default:"20s"`
	PlanTimeout    time.Duration `json:"plan_timeout" default:"30s"`
	WorkDir        string        `json:"work_dir"`
	PluginCacheDir string        `json:"plugin_cache_dir"`
}

type LogConfig struct {
	Level slog.Level `json:"level"`
}

// Load reads .env (if present) and the process environment. Variables that are
// already set in the environment take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	provider := strings.ToLower(getEnv("LLM_PROVIDER", llm.ProviderGemini))
	cfg := &Config{
		Server: HTTPServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getInt("SERVER_PORT", 8000, &errs),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 30*time.Second, &errs),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute, &errs),
			StaticDir:    getEnv("STATIC_DIR", "./static"),
		},
		LLM: LLMConfig{
			Provider:         provider,
			APIKey:           getEnv("GOOGLE_API_KEY", os.Getenv("LLM_API_KEY")),
			BaseURL:          getEnv("LLM_BASE_URL", "https://api.openai.com/v1/chat/completions"),
			Model:            getEnv("LLM_MODEL", llm.DefaultModel(provider)),
			Temperature:      getFloat32("LLM_TEMPERATURE", 0.05, &errs),
			MaxTokens:        getInt("LLM_MAX_TOKENS", 1024, &errs),
			FoldSystemPrompt: getBool("LLM_FOLD_SYSTEM_PROMPT", true, &errs),
			Timeout:          getDuration("LLM_TIMEOUT", 2*time.Minute, &errs),
		},
		Terraform: TerraformConfig{
			Binary:         getEnv("TERRAFORM_BIN", "terraform"),
			InitTimeout:    getDuration("TERRAFORM_INIT_TIMEOUT", 20*time.Second, &errs),
			PlanTimeout:    getDuration("TERRAFORM_PLAN_TIMEOUT", 30*time.Second, &errs),
			WorkDir:        getEnv("TERRAFORM_WORKDIR", ""),
			PluginCacheDir: getEnv("TF_PLUGIN_CACHE_DIR", ""),
		},
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(lvl)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	switch cfg.LLM.Provider {
	case llm.ProviderGemini, llm.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER: unsupported provider %q", cfg.LLM.Provider))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

func getFloat32(key string, defaultValue float32, errs *[]error) float32 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return float32(f)
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
