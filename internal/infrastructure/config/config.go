package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig              `mapstructure:"app"`
	Server      ServerConfig           `mapstructure:"server"`
	AI          AIConfig               `mapstructure:"ai"`
	Gemini      ProviderConfig         `mapstructure:"gemini"`
	OpenRouter  ProviderConfig         `mapstructure:"openrouter"`
	Stages      map[string]StageConfig `mapstructure:"stages"`
	Tables      TablesConfig           `mapstructure:"tables"`
	Redis       RedisConfig            `mapstructure:"redis"`
	Recipe      RecipeConfig           `mapstructure:"recipe"`
	Prompts     PromptsConfig          `mapstructure:"prompts"`
	RateLimit   RateLimitConfig        `mapstructure:"rate_limit"`
	Image       ImageConfig            `mapstructure:"image"`
	DedupWindow time.Duration          `mapstructure:"dedup_window"`
	LogLevel    string                 `mapstructure:"log_level"`
	LogDir      string                 `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// AIConfig 生成呼叫轉接器設定
type AIConfig struct {
	Provider       string        `mapstructure:"provider"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
}

// ProviderConfig 單一提供者設定
type ProviderConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StageConfig 各階段模型設定，空值沿用提供者預設
type StageConfig struct {
	Model       string   `mapstructure:"model"`
	Temperature *float64 `mapstructure:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens"`
}

// TablesConfig 來源資料表設定
type TablesConfig struct {
	Source          string        `mapstructure:"source"` // file 或 redis
	Dir             string        `mapstructure:"dir"`
	Ext             string        `mapstructure:"ext"`
	CacheEnabled    bool          `mapstructure:"cache_enabled"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxSize    int           `mapstructure:"cache_max_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RecipeConfig 食譜管線設定
type RecipeConfig struct {
	ImagePath   string `mapstructure:"image_path"`
	ImageURL    string `mapstructure:"image_url"`
	StaticDir   string `mapstructure:"static_dir"`
	CriticGuard string `mapstructure:"critic_guard"` // log 或 revert
}

// PromptsConfig 提示詞目錄設定
type PromptsConfig struct {
	OverridePath string `mapstructure:"override_path"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// 管線階段名稱
var stageNames = []string{
	"profile_briefing",
	"recipe_options",
	"recipe_draft",
	"recipe_critic",
	"step_explanation",
	"chat_followup",
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return Load(viper.New())
}

// LoadRedisConfig 只載入 Redis 連線設定，不要求生成服務金鑰
func LoadRedisConfig() (*RedisConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return LoadRedis(viper.New())
}

// loadDotEnv .env 不存在時直接使用環境變數
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load 以指定的 viper 實例解析設定
func Load(v *viper.Viper) (*Config, error) {
	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadRedis 以指定的 viper 實例解析 Redis 設定，其餘區段不做檢查
func LoadRedis(v *viper.Viper) (*RedisConfig, error) {
	config, err := decode(v)
	if err != nil {
		return nil, err
	}
	if config.Redis.Addr == "" {
		return nil, fmt.Errorf("invalid config: redis addr is required")
	}
	return &config.Redis, nil
}

func decode(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func bindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"ai.provider":           "AI_PROVIDER",
		"ai.max_concurrency":    "AI_MAX_CONCURRENCY",
		"ai.max_retries":        "AI_MAX_RETRIES",
		"gemini.api_key":        "GEMINI_API_KEY",
		"gemini.model":          "GEMINI_MODEL",
		"openrouter.api_key":    "OPENROUTER_API_KEY",
		"openrouter.model":      "OPENROUTER_MODEL",
		"openrouter.max_tokens": "MODEL_MAX_TOKENS",
		"tables.source":         "TABLES_SOURCE",
		"tables.dir":            "TABLES_DIR",
		"tables.cache_enabled":  "TABLES_CACHE_ENABLED",
		"redis.addr":            "REDIS_ADDR",
		"redis.password":        "REDIS_PASSWORD",
		"recipe.critic_guard":   "CRITIC_GUARD",
		"recipe.image_path":     "RECIPE_IMAGE_PATH",
		"prompts.override_path": "PROMPTS_OVERRIDE_PATH",
		"rate_limit.enabled":    "RATE_LIMIT_ENABLED",
		"rate_limit.requests":   "RATE_LIMIT_REQUESTS",
		"rate_limit.window":     "RATE_LIMIT_WINDOW",
		"dedup_window":          "DEDUP_WINDOW",
		"log_level":             "LOG_LEVEL",
		"log_dir":               "LOG_DIR",
		"app.debug":             "APP_DEBUG",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

// Stage 取得階段設定，未設定時返回零值
func (c *Config) Stage(name string) StageConfig {
	if c.Stages == nil {
		return StageConfig{}
	}
	return c.Stages[name]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-agents")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "170s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// 生成呼叫
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.max_concurrency", 0)
	v.SetDefault("ai.max_retries", 0)
	v.SetDefault("ai.retry_backoff", "1s")

	v.SetDefault("gemini.model", "gemini-2.0-flash-exp")
	v.SetDefault("gemini.timeout", "60s")

	v.SetDefault("openrouter.model", "google/gemini-2.0-flash-exp:free")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.max_tokens", 4000)
	v.SetDefault("openrouter.timeout", "60s")

	// 各階段的溫度，設計與評審偏保守
	stageTemps := map[string]float64{
		"profile_briefing": 0.4,
		"recipe_options":   0.8,
		"recipe_draft":     0.7,
		"recipe_critic":    0.2,
		"step_explanation": 0.3,
		"chat_followup":    0.5,
	}
	for _, name := range stageNames {
		v.SetDefault("stages."+name+".model", "")
		v.SetDefault("stages."+name+".temperature", stageTemps[name])
		v.SetDefault("stages."+name+".max_tokens", 0)
	}

	// 來源資料表
	v.SetDefault("tables.source", "file")
	v.SetDefault("tables.dir", "data/tables")
	v.SetDefault("tables.ext", ".md")
	v.SetDefault("tables.cache_enabled", false)
	v.SetDefault("tables.cache_ttl", "5m")
	v.SetDefault("tables.cache_max_size", 32)
	v.SetDefault("tables.cleanup_interval", "10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "recipe:tables:")

	// 食譜
	v.SetDefault("recipe.image_path", "static/images/dish.png")
	v.SetDefault("recipe.image_url", "/static/images/dish.png")
	v.SetDefault("recipe.static_dir", "static/images")
	v.SetDefault("recipe.critic_guard", "log")

	v.SetDefault("prompts.override_path", "")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	switch strings.ToLower(config.AI.Provider) {
	case "gemini":
		if config.Gemini.APIKey == "" && config.App.Env != "test" {
			return fmt.Errorf("gemini api key is required")
		}
	case "openrouter":
		if config.OpenRouter.APIKey == "" && config.App.Env != "test" {
			return fmt.Errorf("openrouter api key is required")
		}
	default:
		return fmt.Errorf("unknown ai provider %q", config.AI.Provider)
	}
	if config.AI.MaxConcurrency < 0 {
		return fmt.Errorf("invalid ai max concurrency")
	}
	if config.AI.MaxRetries < 0 {
		return fmt.Errorf("invalid ai max retries")
	}

	switch config.Tables.Source {
	case "file":
		if config.Tables.Dir == "" {
			return fmt.Errorf("tables dir is required")
		}
	case "redis":
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required")
		}
	default:
		return fmt.Errorf("unknown tables source %q", config.Tables.Source)
	}

	if config.Tables.CacheEnabled {
		if config.Tables.CacheMaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Tables.CacheTTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Tables.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	switch config.Recipe.CriticGuard {
	case "log", "revert":
	default:
		return fmt.Errorf("critic guard must be log or revert, got %q", config.Recipe.CriticGuard)
	}

	return nil
}
