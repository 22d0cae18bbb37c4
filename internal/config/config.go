package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"tidereport/internal/schedule"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 30 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	DefaultTideURL    = "https://platform.activetrust.net:8000/api"
	DefaultDossierURL = "https://platform.activetrust.net:8000/api/services/intel/lookup/jobs?wait=true"
)

// Active failure policies decide what happens to category and country
// checks when the active lookup for an indicator failed.
const (
	PolicyEvaluate = "evaluate"
	PolicySkip     = "skip"
)

type Config struct {
	APIKey     string `yaml:"api_key"`
	TideURL    string `yaml:"tide_url"`
	DossierURL string `yaml:"dossier_url"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	BlockCategoriesPath string `yaml:"block_categories_path"`
	CountryCodesPath    string `yaml:"country_codes_path"`
	ActiveFailurePolicy string `yaml:"active_failure_policy"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
	Source   string         `yaml:"-"` // file the values came from, empty if none was read
}

// LoadConfig reads path (or CONFIG_PATH, or ./config.yaml), applies env
// overrides and defaults, and exits on invalid values.
func LoadConfig(path string) Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if path != "" {
		configPath = path
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		cfg.Source = configPath
	} else if path != "" {
		log.Fatalf("Error reading %s: %v", configPath, err)
	}

	envOverride(&cfg.APIKey, "TIDE_API_KEY")
	envOverride(&cfg.TideURL, "TIDE_URL")
	envOverride(&cfg.DossierURL, "TIDE_DOSSIER_URL")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.BlockCategoriesPath, "BLOCK_CATEGORIES_PATH")
	envOverride(&cfg.CountryCodesPath, "COUNTRY_CODES_PATH")
	envOverride(&cfg.ActiveFailurePolicy, "ACTIVE_FAILURE_POLICY")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverrideAllowEmpty(&cfg.Schedule, "SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")

	cfg.APIKey = strings.Trim(strings.TrimSpace(cfg.APIKey), `'"`)

	if cfg.TideURL == "" {
		cfg.TideURL = DefaultTideURL
	}
	if cfg.DossierURL == "" {
		cfg.DossierURL = DefaultDossierURL
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.BlockCategoriesPath == "" {
		cfg.BlockCategoriesPath = "block_categories"
	}
	if cfg.CountryCodesPath == "" {
		cfg.CountryCodesPath = "country_codes"
	}
	if cfg.ActiveFailurePolicy == "" {
		cfg.ActiveFailurePolicy = PolicyEvaluate
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	switch strings.ToLower(cfg.ActiveFailurePolicy) {
	case PolicyEvaluate, PolicySkip:
		cfg.ActiveFailurePolicy = strings.ToLower(cfg.ActiveFailurePolicy)
	default:
		log.Fatalf("active_failure_policy must be '%s' or '%s', got '%s'", PolicyEvaluate, PolicySkip, cfg.ActiveFailurePolicy)
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

	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.SlackChannelID != "" && cfg.SlackBotToken == "" {
		log.Fatalf("slack_channel_id is set but slack_bot_token is not")
	}
	if s := strings.TrimSpace(cfg.Schedule); s != "" {
		if _, err := schedule.Parse(s); err != nil {
			log.Fatalf("invalid schedule '%s': %v", s, err)
		}
		cfg.Schedule = s
	}

	return cfg
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

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

// SkipChecksOnActiveFailure reports whether category and country checks are
// skipped for indicators whose active lookup failed.
func (c Config) SkipChecksOnActiveFailure() bool {
	return c.ActiveFailurePolicy == PolicySkip
}
