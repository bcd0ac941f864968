package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	LLM    LLMConfig    `mapstructure:"llm"`
	CORS   CORSConfig   `mapstructure:"cors"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// LLMConfig 描述推理网关：provider 决定用哪个 ChatModel 实现
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Models       []string      `mapstructure:"models"`
	DefaultModel string        `mapstructure:"default_model"`
	Temperature  float32       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File 非空时额外写入滚动日志文件
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderQwen   = "qwen"
	ProviderDoubao = "doubao"
)

// 每个 provider 的默认 base url 与 API key 环境变量
var (
	defaultBaseURLs = map[string]string{
		ProviderGroq:   "https://api.groq.com/openai/v1",
		ProviderOpenAI: "https://api.openai.com/v1",
		ProviderQwen:   "https://dashscope.aliyuncs.com/compatible-mode/v1",
	}
	apiKeyEnvVars = map[string][]string{
		ProviderGroq:   {"GROQ_API_KEY"},
		ProviderOpenAI: {"OPENAI_API_KEY"},
		ProviderQwen:   {"DASHSCOPE_API_KEY"},
		ProviderDoubao: {"DOUBAO_API_KEY", "ARK_API_KEY"},
	}
)

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("llm.provider", ProviderGroq)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.models", []string{"llama3-8b-8192", "llama3-70b-8192"})
	v.SetDefault("llm.default_model", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.debug_request", false)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept"})
	v.SetDefault("cors.exposed_headers", []string{"Content-Length"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_age_days", 28)
}

// Load 读取配置文件；文件不存在时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, err
	}

	loaded.LLM.Provider = strings.ToLower(strings.TrimSpace(loaded.LLM.Provider))
	if loaded.LLM.BaseURL == "" {
		loaded.LLM.BaseURL = defaultBaseURLs[loaded.LLM.Provider]
	}
	if loaded.LLM.DefaultModel == "" && len(loaded.LLM.Models) > 0 {
		loaded.LLM.DefaultModel = loaded.LLM.Models[0]
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	if loaded.LLM.APIKey == "" {
		for _, name := range apiKeyEnvVars[loaded.LLM.Provider] {
			if apiKey := os.Getenv(name); apiKey != "" {
				loaded.LLM.APIKey = apiKey
				break
			}
		}
	}

	cfg = loaded
	return cfg, nil
}

func Get() *Config {
	return cfg
}

// AllowsModel 判断模型是否在允许列表内
func (c LLMConfig) AllowsModel(name string) bool {
	for _, m := range c.Models {
		if m == name {
			return true
		}
	}
	return false
}
