package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	for _, key := range []string{
		"LLM_PROVIDER", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "HTTP_ADDR", "PORT",
		"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "CORPUS_RELOAD_SCHEDULE", "RETRIEVAL_SCORER",
		"DIGEST_DAY", "DIGEST_TIME",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("TIMEZONE", "UTC")
}

func TestLoadConfigFromEnvWithDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.LLMProvider != ProviderAuto {
		t.Fatalf("unexpected provider default: %q", cfg.LLMProvider)
	}
	if cfg.ResolvedProvider() != ProviderNone {
		t.Fatalf("expected heuristic-only provider without keys, got %q", cfg.ResolvedProvider())
	}
	if cfg.CorpusPath != "./data/rag_corpus.json" {
		t.Fatalf("unexpected corpus path default: %q", cfg.CorpusPath)
	}
	if cfg.DBPath != "./supporttriage.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if cfg.LLMTemperature != 0.3 {
		t.Fatalf("unexpected temperature default: %f", cfg.LLMTemperature)
	}
	if cfg.RetrievalLimit != 6 {
		t.Fatalf("unexpected retrieval limit default: %d", cfg.RetrievalLimit)
	}
	if cfg.FeedbackWindow != 20 {
		t.Fatalf("unexpected feedback window default: %d", cfg.FeedbackWindow)
	}
	if cfg.HTTPAddr != ":4000" {
		t.Fatalf("unexpected http addr default: %q", cfg.HTTPAddr)
	}
	if cfg.ExternalHTTPTimeoutSeconds != int(defaultExternalHTTPTimeout/time.Second) {
		t.Fatalf("unexpected external HTTP timeout default: %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.LLMTimeout() != 60*time.Second {
		t.Fatalf("unexpected llm timeout: %s", cfg.LLMTimeout())
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
	if cfg.SlackConfigured() {
		t.Fatal("slack should not be configured without tokens")
	}
	if cfg.DigestDay != "" || cfg.DigestTime != "10:00" {
		t.Fatalf("unexpected digest defaults: day=%q time=%q", cfg.DigestDay, cfg.DigestTime)
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	clearProviderEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm_provider: "anthropic"
anthropic_api_key: "yaml-anthropic"
corpus_path: "/srv/data/corpus.json"
db_path: "/tmp/yaml.db"
retrieval_scorer: "tfidf"
feedback_window: 50
external_http_timeout_seconds: 75
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("PORT", "8080")
	t.Setenv("EXTERNAL_HTTP_TIMEOUT_SECONDS", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.LLMProvider != ProviderOpenAI {
		t.Fatalf("expected provider from env override, got %q", cfg.LLMProvider)
	}
	if cfg.AnthropicAPIKey != "yaml-anthropic" {
		t.Fatalf("expected anthropic key from yaml")
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("expected db path from env override, got %q", cfg.DBPath)
	}
	if cfg.CorpusPath != "/srv/data/corpus.json" {
		t.Fatalf("expected corpus path from yaml, got %q", cfg.CorpusPath)
	}
	if cfg.RetrievalScorer != ScorerTFIDF {
		t.Fatalf("expected tfidf scorer from yaml, got %q", cfg.RetrievalScorer)
	}
	if cfg.FeedbackWindow != 50 {
		t.Fatalf("expected feedback window from yaml, got %d", cfg.FeedbackWindow)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected http addr from PORT, got %q", cfg.HTTPAddr)
	}
	if cfg.ExternalHTTPTimeoutSeconds != 120 {
		t.Fatalf("expected external HTTP timeout from env override, got %d", cfg.ExternalHTTPTimeoutSeconds)
	}
}

func TestResolvedProviderAuto(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no keys", Config{LLMProvider: ProviderAuto}, ProviderNone},
		{"anthropic key", Config{LLMProvider: ProviderAuto, AnthropicAPIKey: "k"}, ProviderAnthropic},
		{"openai key", Config{LLMProvider: ProviderAuto, OpenAIAPIKey: "k"}, ProviderOpenAI},
		{"both keys prefer anthropic", Config{LLMProvider: ProviderAuto, AnthropicAPIKey: "a", OpenAIAPIKey: "o"}, ProviderAnthropic},
		{"explicit none", Config{LLMProvider: ProviderNone, OpenAIAPIKey: "k"}, ProviderNone},
		{"explicit ollama", Config{LLMProvider: ProviderOllama}, ProviderOllama},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ResolvedProvider(); got != tt.want {
				t.Fatalf("ResolvedProvider() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"openai without key", map[string]string{"LLM_PROVIDER": "openai"}, "openai_api_key is required"},
		{"anthropic without key", map[string]string{"LLM_PROVIDER": "anthropic"}, "anthropic_api_key is required"},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "bard"}, "llm_provider must be one of"},
		{"unknown scorer", map[string]string{"RETRIEVAL_SCORER": "bm25"}, "retrieval_scorer must be"},
		{"partial slack", map[string]string{"SLACK_BOT_TOKEN": "xoxb-test"}, "partial Slack config"},
		{"bad schedule", map[string]string{"CORPUS_RELOAD_SCHEDULE": "every hour"}, "invalid corpus_reload_schedule"},
		{"bad int", map[string]string{"RETRIEVAL_LIMIT": "six"}, "invalid RETRIEVAL_LIMIT"},
		{"temperature out of range", map[string]string{"LLM_TEMPERATURE": "1.5"}, "invalid llm_temperature"},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Colony"}, "invalid timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	s := "initial"
	t.Setenv("ST_TEST_STR", "value")
	envOverride(&s, "ST_TEST_STR")
	if s != "value" {
		t.Fatalf("envOverride failed, got %q", s)
	}

	i := 1
	t.Setenv("ST_TEST_INT", "42")
	if err := envOverrideInt(&i, "ST_TEST_INT"); err != nil || i != 42 {
		t.Fatalf("envOverrideInt failed, got %d err=%v", i, err)
	}

	f := 0.1
	t.Setenv("ST_TEST_FLOAT", "0.75")
	if err := envOverrideFloat(&f, "ST_TEST_FLOAT"); err != nil || f != 0.75 {
		t.Fatalf("envOverrideFloat failed, got %f err=%v", f, err)
	}

	b := false
	t.Setenv("ST_TEST_BOOL", "1")
	envOverrideBool(&b, "ST_TEST_BOOL")
	if !b {
		t.Fatalf("envOverrideBool failed, got %v", b)
	}

	empty := "keep"
	t.Setenv("ST_TEST_EMPTY", "")
	envOverrideAllowEmpty(&empty, "ST_TEST_EMPTY")
	if empty != "" {
		t.Fatalf("envOverrideAllowEmpty should clear the field, got %q", empty)
	}
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("0 3 * * *")
	if err != nil {
		t.Fatalf("ParseSchedule returned error: %v", err)
	}
	from := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	next := sched.Next(from)
	if next.Hour() != 3 || next.Day() != 2 {
		t.Fatalf("unexpected next run: %s", next)
	}
	if _, err := ParseSchedule("* * *"); err == nil {
		t.Fatal("expected ParseSchedule to fail for a 3-field expression")
	}
}
