package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
	R2        R2Config        `mapstructure:"r2"`
	LLM       LLMConfig       `mapstructure:"llm"`
	OpenAI    ModelConfig     `mapstructure:"openai"`
	Gemini    ModelConfig     `mapstructure:"gemini"`
	Claude    ModelConfig     `mapstructure:"claude"`
	Mistral   ModelConfig     `mapstructure:"mistral"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=8"`
}

type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name" validate:"required"`
	TTL        time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Secure     bool          `mapstructure:"secure"`
}

type StorageConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=r2 local"`
	LocalDir string `mapstructure:"local_dir"`
}

type R2Config struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	BucketName    string `mapstructure:"bucket_name"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type LLMConfig struct {
	Provider          string        `mapstructure:"provider" validate:"oneof=openai gemini claude"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type ModelConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type OCRConfig struct {
	Concurrency    int           `mapstructure:"concurrency" validate:"gte=1,lte=16"`
	WorkerInterval time.Duration `mapstructure:"worker_interval" validate:"gt=0"`
	WorkerEnabled  bool          `mapstructure:"worker_enabled"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gt=0"`
}

type SchedulerConfig struct {
	ReaperSchedule string        `mapstructure:"reaper_schedule" validate:"required"`
	StaleAfter     time.Duration `mapstructure:"stale_after" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// defaults also registers every key with viper so that AutomaticEnv
// overrides are picked up by Unmarshal.
var defaults = map[string]any{
	"server.port":                ":8000",
	"server.allowed_origins":     []string{"http://localhost:3000", "http://localhost:5173"},
	"database.url":               "",
	"jwt.secret":                 "",
	"session.cookie_name":        "hp_session",
	"session.ttl":                24 * time.Hour,
	"session.secure":             false,
	"storage.driver":             "local",
	"storage.local_dir":          "./data/uploads",
	"r2.endpoint":                "",
	"r2.access_key":              "",
	"r2.secret_key":              "",
	"r2.bucket_name":             "",
	"r2.public_base_url":         "",
	"llm.provider":               "openai",
	"llm.requests_per_second":    2.0,
	"llm.timeout":                90 * time.Second,
	"openai.api_key":             "",
	"openai.base_url":            "",
	"openai.model":               "gpt-4o-mini",
	"gemini.api_key":             "",
	"gemini.base_url":            "",
	"gemini.model":               "gemini-2.0-flash",
	"claude.api_key":             "",
	"claude.base_url":            "",
	"claude.model":               "claude-3-5-haiku-latest",
	"mistral.api_key":            "",
	"mistral.base_url":           "https://api.mistral.ai",
	"mistral.model":              "mistral-ocr-latest",
	"ocr.concurrency":            1,
	"ocr.worker_interval":        2 * time.Second,
	"ocr.worker_enabled":         true,
	"upload.max_bytes":           int64(100 << 20),
	"scheduler.reaper_schedule":  "@every 5m",
	"scheduler.stale_after":      15 * time.Minute,
	"log.level":                  "info",
	"log.format":                 "text",
}

// Load reads .env (outside production), an optional config.yaml and the
// environment. DATABASE_URL maps to database.url, R2_BUCKET_NAME to
// r2.bucket_name and so on.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Origins from the environment are comma separated and may carry spaces.
	cfg.Server.AllowedOrigins = splitList(strings.Join(cfg.Server.AllowedOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Storage.Driver == "r2" {
		missing := []string{}
		if c.R2.Endpoint == "" {
			missing = append(missing, "R2_ENDPOINT")
		}
		if c.R2.AccessKey == "" {
			missing = append(missing, "R2_ACCESS_KEY")
		}
		if c.R2.SecretKey == "" {
			missing = append(missing, "R2_SECRET_KEY")
		}
		if c.R2.BucketName == "" {
			missing = append(missing, "R2_BUCKET_NAME")
		}
		if len(missing) > 0 {
			return fmt.Errorf("invalid config: missing %s", strings.Join(missing, ", "))
		}
	}

	if c.Storage.Driver == "local" && c.Storage.LocalDir == "" {
		return fmt.Errorf("invalid config: storage.local_dir required for local driver")
	}

	return nil
}

// ActiveModel returns the model settings for the configured LLM provider.
func (c *Config) ActiveModel() ModelConfig {
	switch c.LLM.Provider {
	case "gemini":
		return c.Gemini
	case "claude":
		return c.Claude
	default:
		return c.OpenAI
	}
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
