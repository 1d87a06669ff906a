package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLMProvider        string `yaml:"llm_provider"`
	LLMModel           string `yaml:"llm_model"`
	AnthropicAPIKey    string `yaml:"anthropic_api_key"`
	OpenAIAPIKey       string `yaml:"openai_api_key"`
	LLMMaxAttempts     int    `yaml:"llm_max_attempts"`
	LLMRetryMinSeconds int    `yaml:"llm_retry_min_seconds"`
	LLMRetryMaxSeconds int    `yaml:"llm_retry_max_seconds"`

	MaxRetries int `yaml:"max_retries"`
	ChunkSize  int `yaml:"chunk_size"`

	DBPath  string `yaml:"db_path"`
	DataDir string `yaml:"data_dir"`

	Subreddits  []string `yaml:"subreddits"`
	ScrapeLimit int      `yaml:"scrape_limit"`
	UserAgent   string   `yaml:"user_agent"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	ProcessSchedule string `yaml:"process_schedule"`
	Timezone        string `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

func LoadConfig() Config {
	var cfg Config

	// A .env file is optional; real env vars still win below.
	_ = godotenv.Load()

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.LLMMaxAttempts, "LLM_MAX_ATTEMPTS")
	envOverrideInt(&cfg.LLMRetryMinSeconds, "LLM_RETRY_MIN_SECONDS")
	envOverrideInt(&cfg.LLMRetryMaxSeconds, "LLM_RETRY_MAX_SECONDS")
	envOverrideInt(&cfg.MaxRetries, "MAX_RETRIES")
	envOverrideInt(&cfg.ChunkSize, "CHUNK_SIZE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.DataDir, "DATA_DIR")
	envOverrideInt(&cfg.ScrapeLimit, "SCRAPE_LIMIT")
	envOverride(&cfg.UserAgent, "USER_AGENT")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.ProcessSchedule, "PROCESS_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if names := os.Getenv("SUBREDDITS"); names != "" {
		cfg.Subreddits = nil
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.Subreddits = append(cfg.Subreddits, name)
			}
		}
	}

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.LLMMaxAttempts == 0 {
		cfg.LLMMaxAttempts = 3
	}
	if cfg.LLMRetryMinSeconds == 0 {
		cfg.LLMRetryMinSeconds = 4
	}
	if cfg.LLMRetryMaxSeconds == 0 {
		cfg.LLMRetryMaxSeconds = 10
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./workreddit.db"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./reddit_data"
	}
	if len(cfg.Subreddits) == 0 {
		cfg.Subreddits = []string{"cybersecurity_help"}
	}
	if cfg.ScrapeLimit == 0 {
		cfg.ScrapeLimit = 100
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "workreddit-scraper/0.1"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = 30
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}

	if cfg.LLMMaxAttempts < 1 {
		log.Fatalf("invalid llm_max_attempts '%d': must be >= 1", cfg.LLMMaxAttempts)
	}
	if cfg.LLMRetryMinSeconds < 0 || cfg.LLMRetryMaxSeconds < cfg.LLMRetryMinSeconds {
		log.Fatalf("invalid llm retry bounds [%d, %d]: need 0 <= min <= max",
			cfg.LLMRetryMinSeconds, cfg.LLMRetryMaxSeconds)
	}
	if cfg.MaxRetries < 1 {
		log.Fatalf("invalid max_retries '%d': must be >= 1", cfg.MaxRetries)
	}
	if cfg.ChunkSize < 1 {
		log.Fatalf("invalid chunk_size '%d': must be >= 1", cfg.ChunkSize)
	}
	if cfg.ScrapeLimit < 1 {
		log.Fatalf("invalid scrape_limit '%d': must be >= 1", cfg.ScrapeLimit)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 1 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 1", cfg.ExternalHTTPTimeoutSeconds)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	externalHTTPClient.Timeout = time.Duration(cfg.ExternalHTTPTimeoutSeconds) * time.Second

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
