package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const DefaultOllamaModel = "phi4"

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

type Config struct {
	LLMProvider          string  `yaml:"llm_provider"`
	LLMModel             string  `yaml:"llm_model"`
	LLMRequestsPerSecond float64 `yaml:"llm_requests_per_second"`
	OpenAIAPIKey         string  `yaml:"openai_api_key"`
	OpenAIBaseURL        string  `yaml:"openai_base_url"`
	AnthropicAPIKey      string  `yaml:"anthropic_api_key"`
	OllamaURL            string  `yaml:"ollama_url"`
	OllamaModel          string  `yaml:"ollama_model"`

	DataDir           string `yaml:"data_dir"`
	ResultsPath       string `yaml:"results_path"`
	FilteredListPath  string `yaml:"filtered_categories_path"`
	ChannelTablePath  string `yaml:"channel_table_path"`
	HistoryDBPath     string `yaml:"history_db_path"`
	TaxonomyRulesPath string `yaml:"taxonomy_rules_path"`
	ReportOutputDir   string `yaml:"report_output_dir"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	GoogleClientID         string  `yaml:"google_client_id"`
	GoogleClientSecret     string  `yaml:"google_client_secret"`
	RedirectURI            string  `yaml:"redirect_uri"`
	RefreshToken           string  `yaml:"refresh_token"`
	YouTubePlaylistPrefix  string  `yaml:"youtube_playlist_prefix"`
	YouTubePlaylistPrivacy string  `yaml:"youtube_playlist_privacy"`
	YouTubeInsertsPerSec   float64 `yaml:"youtube_inserts_per_second"`
	YouTubePlaylistPauseMS int     `yaml:"youtube_playlist_pause_ms"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	ClassifySchedule string `yaml:"classify_schedule"`
	Timezone         string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig reads config.yaml (or CONFIG_PATH), applies env overrides and
// defaults, and exits the process on invalid values.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("error parsing %s: %w", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	if err := envOverrideFloat(&cfg.LLMRequestsPerSecond, "LLM_REQUESTS_PER_SECOND"); err != nil {
		return cfg, err
	}
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OllamaURL, "OLLAMA_URL")
	envOverride(&cfg.OllamaModel, "OLLAMA_MODEL")
	envOverride(&cfg.DataDir, "DATA_DIR")
	envOverride(&cfg.ResultsPath, "RESULTS_PATH")
	envOverride(&cfg.FilteredListPath, "FILTERED_CATEGORIES_PATH")
	envOverride(&cfg.ChannelTablePath, "CHANNEL_TABLE_PATH")
	envOverride(&cfg.HistoryDBPath, "HISTORY_DB_PATH")
	envOverride(&cfg.TaxonomyRulesPath, "TAXONOMY_RULES_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	if err := envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"); err != nil {
		return cfg, err
	}
	envOverride(&cfg.GoogleClientID, "GOOGLE_CLIENT_ID")
	envOverride(&cfg.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	envOverride(&cfg.RedirectURI, "REDIRECT_URI")
	envOverride(&cfg.RefreshToken, "REFRESH_TOKEN")
	envOverrideAllowEmpty(&cfg.YouTubePlaylistPrefix, "YOUTUBE_PLAYLIST_PREFIX")
	envOverride(&cfg.YouTubePlaylistPrivacy, "YOUTUBE_PLAYLIST_PRIVACY")
	if err := envOverrideFloat(&cfg.YouTubeInsertsPerSec, "YOUTUBE_INSERTS_PER_SECOND"); err != nil {
		return cfg, err
	}
	if err := envOverrideInt(&cfg.YouTubePlaylistPauseMS, "YOUTUBE_PLAYLIST_PAUSE_MS"); err != nil {
		return cfg, err
	}
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.ClassifySchedule, "CLASSIFY_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLMProvider == "" {
		c.LLMProvider = ProviderOpenAI
	}
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if c.OllamaURL == "" {
		c.OllamaURL = "http://localhost:11434"
	}
	// llm_model names the Ollama model only when Ollama is the configured
	// provider; --ollama on top of a hosted provider falls back to phi4.
	if c.OllamaModel == "" && c.LLMProvider == ProviderOllama {
		c.OllamaModel = strings.TrimSpace(c.LLMModel)
	}
	if c.OllamaModel == "" {
		c.OllamaModel = DefaultOllamaModel
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.ResultsPath == "" {
		c.ResultsPath = filepath.Join(c.DataDir, "watchlistCategory.json")
	}
	if c.FilteredListPath == "" {
		c.FilteredListPath = filepath.Join(c.DataDir, "categoriesFiltered.txt")
	}
	if c.ChannelTablePath == "" {
		c.ChannelTablePath = filepath.Join(c.DataDir, "channelList.csv")
	}
	if c.HistoryDBPath == "" {
		c.HistoryDBPath = filepath.Join(c.DataDir, "history.db")
	}
	if c.ReportOutputDir == "" {
		c.ReportOutputDir = c.DataDir
	}
	if c.ExternalHTTPTimeoutSeconds == 0 {
		c.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if c.YouTubePlaylistPrivacy == "" {
		c.YouTubePlaylistPrivacy = "private"
	}
	if c.YouTubeInsertsPerSec == 0 {
		c.YouTubeInsertsPerSec = 5
	}
	if c.YouTubePlaylistPauseMS == 0 {
		c.YouTubePlaylistPauseMS = 5000
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

// Validate checks value ranges. Provider credentials are checked separately
// by RequireOracle because --render runs never talk to a model.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return fmt.Errorf("llm_provider must be 'openai', 'anthropic' or 'ollama', got '%s'", c.LLMProvider)
	}
	if c.LLMRequestsPerSecond < 0 {
		return fmt.Errorf("invalid llm_requests_per_second '%f': must be >= 0", c.LLMRequestsPerSecond)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds)
	}
	switch c.YouTubePlaylistPrivacy {
	case "private", "public", "unlisted":
	default:
		return fmt.Errorf("invalid youtube_playlist_privacy '%s': must be private, public or unlisted", c.YouTubePlaylistPrivacy)
	}
	if c.YouTubeInsertsPerSec < 0 {
		return fmt.Errorf("invalid youtube_inserts_per_second '%f': must be >= 0", c.YouTubeInsertsPerSec)
	}
	if c.YouTubePlaylistPauseMS < 0 {
		return fmt.Errorf("invalid youtube_playlist_pause_ms '%d': must be >= 0", c.YouTubePlaylistPauseMS)
	}
	if strings.TrimSpace(c.ClassifySchedule) != "" {
		if _, err := ParseSchedule(c.ClassifySchedule); err != nil {
			return fmt.Errorf("invalid classify_schedule '%s': %w", c.ClassifySchedule, err)
		}
	}
	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}
	return nil
}

// RequireOracle reports missing credentials for the selected provider.
func (c Config) RequireOracle() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("openai_api_key is required when llm_provider=openai")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return errors.New("anthropic_api_key is required when llm_provider=anthropic")
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			return errors.New("ollama_url is required when llm_provider=ollama")
		}
	}
	return nil
}

// RequireYouTube reports the first missing OAuth setting needed for playlists.
func (c Config) RequireYouTube() error {
	required := []struct {
		name string
		val  string
	}{
		{"google_client_id", c.GoogleClientID},
		{"google_client_secret", c.GoogleClientSecret},
		{"redirect_uri", c.RedirectURI},
		{"refresh_token", c.RefreshToken},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("required config '%s' is not set (via config.yaml or env var)", r.name)
		}
	}
	return nil
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

// ParseSchedule accepts a standard 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(expr))
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
