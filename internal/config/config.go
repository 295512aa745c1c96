package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	ProviderAuto      = "auto"
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

const (
	ScorerDice  = "dice"
	ScorerTFIDF = "tfidf"
)

type Config struct {
	CorpusPath  string `yaml:"corpus_path"`
	ClientsPath string `yaml:"clients_path"`
	DBPath      string `yaml:"db_path"`

	LLMProvider       string  `yaml:"llm_provider"`
	LLMModel          string  `yaml:"llm_model"`
	LLMTemperature    float64 `yaml:"llm_temperature"`
	LLMMaxTokens      int     `yaml:"llm_max_tokens"`
	LLMTimeoutSeconds int     `yaml:"llm_timeout_seconds"`
	AnthropicAPIKey   string  `yaml:"anthropic_api_key"`
	OpenAIAPIKey      string  `yaml:"openai_api_key"`
	OllamaHost        string  `yaml:"ollama_host"`
	DebugPrompt       bool    `yaml:"debug_prompt"`

	RetrievalScorer string `yaml:"retrieval_scorer"`
	RetrievalLimit  int    `yaml:"retrieval_limit"`

	HTTPAddr                   string `yaml:"http_addr"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	FeedbackWindow             int    `yaml:"feedback_window"`

	CorpusReloadSchedule string `yaml:"corpus_reload_schedule"`
	Timezone             string `yaml:"timezone"`

	SlackBotToken       string `yaml:"slack_bot_token"`
	SlackAppToken       string `yaml:"slack_app_token"`
	SlackAlertChannelID string `yaml:"slack_alert_channel_id"`
	DigestDay           string `yaml:"digest_day"`
	DigestTime          string `yaml:"digest_time"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// Load reads config.yaml (or CONFIG_PATH), applies env overrides and defaults,
// and validates the result.
func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.CorpusPath, "CORPUS_PATH")
	envOverride(&cfg.ClientsPath, "CLIENTS_PATH")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OllamaHost, "OLLAMA_HOST")
	envOverrideBool(&cfg.DebugPrompt, "DEBUG_PROMPT")
	envOverride(&cfg.RetrievalScorer, "RETRIEVAL_SCORER")
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	envOverrideAllowEmpty(&cfg.CorpusReloadSchedule, "CORPUS_RELOAD_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.SlackAlertChannelID, "SLACK_ALERT_CHANNEL_ID")
	envOverrideAllowEmpty(&cfg.DigestDay, "DIGEST_DAY")
	envOverride(&cfg.DigestTime, "DIGEST_TIME")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.LogFile, "LOG_FILE")

	if err := envOverrideFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE"); err != nil {
		return err
	}
	for key, field := range map[string]*int{
		"LLM_MAX_TOKENS":                &cfg.LLMMaxTokens,
		"LLM_TIMEOUT_SECONDS":           &cfg.LLMTimeoutSeconds,
		"RETRIEVAL_LIMIT":               &cfg.RetrievalLimit,
		"EXTERNAL_HTTP_TIMEOUT_SECONDS": &cfg.ExternalHTTPTimeoutSeconds,
		"FEEDBACK_WINDOW":               &cfg.FeedbackWindow,
	} {
		if err := envOverrideInt(field, key); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.CorpusPath == "" {
		cfg.CorpusPath = "./data/rag_corpus.json"
	}
	if cfg.ClientsPath == "" {
		cfg.ClientsPath = "./data/support_clients.json"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./supporttriage.db"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderAuto
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.LLMTemperature == 0 {
		cfg.LLMTemperature = 0.3
	}
	if cfg.LLMMaxTokens == 0 {
		cfg.LLMMaxTokens = 1024
	}
	if cfg.LLMTimeoutSeconds == 0 {
		cfg.LLMTimeoutSeconds = 60
	}
	if cfg.OllamaHost == "" {
		cfg.OllamaHost = "http://localhost:11434"
	}
	if cfg.RetrievalScorer == "" {
		cfg.RetrievalScorer = ScorerDice
	}
	if cfg.RetrievalLimit == 0 {
		cfg.RetrievalLimit = 6
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":4000"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.FeedbackWindow == 0 {
		cfg.FeedbackWindow = 20
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.DigestTime == "" {
		cfg.DigestTime = "10:00"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validate(cfg *Config) error {
	switch cfg.LLMProvider {
	case ProviderAuto, ProviderNone, ProviderOllama:
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("openai_api_key is required when llm_provider=openai")
		}
	default:
		return fmt.Errorf("llm_provider must be one of auto, none, anthropic, openai, ollama, got '%s'", cfg.LLMProvider)
	}

	switch cfg.RetrievalScorer {
	case ScorerDice, ScorerTFIDF:
	default:
		return fmt.Errorf("retrieval_scorer must be 'dice' or 'tfidf', got '%s'", cfg.RetrievalScorer)
	}

	if (cfg.SlackBotToken == "") != (cfg.SlackAppToken == "") {
		return fmt.Errorf("partial Slack config: slack_bot_token and slack_app_token are required together")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 1 {
		return fmt.Errorf("invalid llm_temperature '%f': must be between 0 and 1", cfg.LLMTemperature)
	}
	if cfg.LLMMaxTokens < 64 {
		return fmt.Errorf("invalid llm_max_tokens '%d': must be >= 64", cfg.LLMMaxTokens)
	}
	if cfg.LLMTimeoutSeconds < 1 {
		return fmt.Errorf("invalid llm_timeout_seconds '%d': must be >= 1", cfg.LLMTimeoutSeconds)
	}
	if cfg.RetrievalLimit < 1 {
		return fmt.Errorf("invalid retrieval_limit '%d': must be >= 1", cfg.RetrievalLimit)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.FeedbackWindow < 1 {
		return fmt.Errorf("invalid feedback_window '%d': must be >= 1", cfg.FeedbackWindow)
	}
	if schedule := strings.TrimSpace(cfg.CorpusReloadSchedule); schedule != "" {
		if _, err := ParseSchedule(schedule); err != nil {
			return fmt.Errorf("invalid corpus_reload_schedule '%s': %w", schedule, err)
		}
	}
	return nil
}

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(schedule string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(schedule)
}

// ResolvedProvider maps "auto" onto the first backend with credentials,
// or "none" when no backend is configured.
func (c Config) ResolvedProvider() string {
	if c.LLMProvider != ProviderAuto {
		return c.LLMProvider
	}
	switch {
	case c.AnthropicAPIKey != "":
		return ProviderAnthropic
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI
	default:
		return ProviderNone
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
