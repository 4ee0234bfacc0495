package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsTranslator/internal/domain"
)

const (
	defaultTimezone = "Europe/Vienna"
	configPathEnv   = "NEWS_TRANSLATOR_CONFIG"

	defaultAnthropicModel = "claude-haiku-4-5"
	defaultMaxRetries     = 2

	apiKeyEnv              = "API_KEY"
	deeplAPIKeyEnv         = "DEEPL_API_KEY"
	databaseDriverEnv      = "DATABASE_DRIVER"
	databaseDSNEnv         = "DATABASE_DSN"
	redisAddrEnv           = "REDIS_ADDR"
	redisPasswordEnv       = "REDIS_PASSWORD"
	s3BucketEnv            = "S3_BUCKET"
	s3RegionEnv            = "S3_REGION"
	s3PrefixEnv            = "S3_PREFIX"
	telegramTokenEnv       = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv      = "TELEGRAM_CHAT_ID"
	translationProviderEnv = "TRANSLATION_PROVIDER"
	translationEnabledEnv  = "TRANSLATION_ENABLED"
	logLevelEnv            = "LOG_LEVEL"
	httpAddrEnv            = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Feeds         FeedsConfig        `yaml:"feeds"`
	Translation   TranslationConfig  `yaml:"translation"`
	Cache         CacheConfig        `yaml:"cache"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects verbosity and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig configures the status API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig describes the article store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when fetch-and-translate runs happen.
type SchedulerConfig struct {
	TriggerHours    []int          `yaml:"triggerHours"`
	Timezone        string         `yaml:"timezone"`
	AutoStart       *bool          `yaml:"autoStart"`
	Retention       time.Duration  `yaml:"retention"`
	ShutdownTimeout time.Duration  `yaml:"shutdownTimeout"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Schedule builds the validated recurrence policy.
func (s SchedulerConfig) Schedule() (domain.ScheduleConfig, error) {
	return domain.NewScheduleConfig(s.TriggerHours, s.Location())
}

// StartsAutomatically reports whether the loop starts with the process.
func (s SchedulerConfig) StartsAutomatically() bool {
	return s.AutoStart == nil || *s.AutoStart
}

// FeedsConfig bounds feed polling.
type FeedsConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxAge          time.Duration `yaml:"maxAge"`
	MaxItemsPerFeed int           `yaml:"maxItemsPerFeed"`
	Scrape          *bool         `yaml:"scrape"`
	UserAgent       string        `yaml:"userAgent"`
}

// ScrapeEnabled reports whether feed summaries are replaced by page bodies.
func (f FeedsConfig) ScrapeEnabled() bool {
	return f.Scrape != nil && *f.Scrape
}

// TranslationConfig selects and tunes the translation provider.
type TranslationConfig struct {
	Enabled        *bool         `yaml:"enabled"`
	Provider       string        `yaml:"provider"`
	LocalCompute   string        `yaml:"localCompute"`
	CallTimeout    time.Duration `yaml:"callTimeout"`
	MaxRetries     *int          `yaml:"maxRetries"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	Cloud          LLMConfig     `yaml:"cloud"`
	Local          LLMConfig     `yaml:"local"`
	DeepL          DeepLConfig   `yaml:"deepl"`
}

// IsEnabled reports whether runs translate items; unset means enabled.
func (t TranslationConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Retries returns the retry budget per provider call; unset means 2.
func (t TranslationConfig) Retries() int {
	if t.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *t.MaxRetries
}

// LLMConfig describes a chat-completion endpoint. API is "openai" for
// OpenAI-compatible servers (Together, Ollama) or "anthropic".
type LLMConfig struct {
	API          string   `yaml:"api"`
	Endpoint     string   `yaml:"endpoint"`
	Model        string   `yaml:"model"`
	APIKey       string   `yaml:"apiKey"`
	ContextLimit int      `yaml:"contextLimit"`
	Stop         []string `yaml:"stop"`
}

// DeepLConfig configures the machine translation API.
type DeepLConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIKey       string `yaml:"apiKey"`
	SourceLang   string `yaml:"sourceLang"`
	TargetLang   string `yaml:"targetLang"`
	ContextLimit int    `yaml:"contextLimit"`
}

// CacheConfig points at the Redis translation cache; empty Addr disables it.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ArchiveConfig points at the S3 archive; empty Bucket disables it.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken        string `yaml:"botToken"`
	ChatID          string `yaml:"chatId"`
	NotifyOnSuccess *bool  `yaml:"notifyOnSuccess"`
}

// ReportsSuccess reports whether clean runs are also sent to the chat.
func (t TelegramConfig) ReportsSuccess() bool {
	return t.NotifyOnSuccess != nil && *t.NotifyOnSuccess
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds one feed URL of a site.
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present), applies environment overrides
// and validates the result.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	cfg.Translation.applyProviderAlias()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the process cannot start with.
func (c Config) Validate() error {
	if _, err := c.Scheduler.Schedule(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if _, err := domain.ParseProviderKind(c.Translation.Provider); err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	switch c.Translation.LocalCompute {
	case "", "auto", "true", "false":
	default:
		return fmt.Errorf("translation: localCompute must be auto, true or false, got %q", c.Translation.LocalCompute)
	}
	for _, llm := range []LLMConfig{c.Translation.Cloud, c.Translation.Local} {
		switch llm.API {
		case "", "openai", "anthropic":
		default:
			return fmt.Errorf("translation: unknown api %q", llm.API)
		}
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Translation.Retries() < 0 {
		return fmt.Errorf("translation: maxRetries must not be negative")
	}
	for _, site := range c.Sites {
		if site.Scanner == "" {
			return fmt.Errorf("site %s: scanner is required", site.Name)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.Translation.Cloud.APIKey = v
	}
	if v := os.Getenv(deeplAPIKeyEnv); v != "" {
		c.Translation.DeepL.APIKey = v
	}
	if v := os.Getenv(translationProviderEnv); v != "" {
		c.Translation.Provider = v
	}
	if v := os.Getenv(translationEnabledEnv); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", translationEnabledEnv, err)
		}
		c.Translation.Enabled = &enabled
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Cache.Password = v
	}

	if v := os.Getenv(s3BucketEnv); v != "" {
		c.Archive.Bucket = v
	}
	if v := os.Getenv(s3RegionEnv); v != "" {
		c.Archive.Region = v
	}
	if v := os.Getenv(s3PrefixEnv); v != "" {
		c.Archive.Prefix = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	return nil
}

// applyProviderAlias lets provider "anthropic" switch the cloud endpoint to
// the Anthropic Messages API without spelling out the cloud block.
func (t *TranslationConfig) applyProviderAlias() {
	if !strings.EqualFold(strings.TrimSpace(t.Provider), "anthropic") || t.Cloud.API == "anthropic" {
		return
	}
	t.Cloud.API = "anthropic"
	t.Cloud.Endpoint = ""
	t.Cloud.Model = defaultAnthropicModel
	t.Cloud.ContextLimit = 200000
	t.Cloud.Stop = nil
}

func (c *Config) bindTimezone() error {
	tz := strings.TrimSpace(c.Scheduler.Timezone)
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler: unknown timezone %q: %w", tz, err)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.TriggerHours != nil {
		base.Scheduler.TriggerHours = override.Scheduler.TriggerHours
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.AutoStart != nil {
		base.Scheduler.AutoStart = override.Scheduler.AutoStart
	}
	if override.Scheduler.Retention != 0 {
		base.Scheduler.Retention = override.Scheduler.Retention
	}
	if override.Scheduler.ShutdownTimeout != 0 {
		base.Scheduler.ShutdownTimeout = override.Scheduler.ShutdownTimeout
	}

	if override.Feeds.Timeout != 0 {
		base.Feeds.Timeout = override.Feeds.Timeout
	}
	if override.Feeds.MaxAge != 0 {
		base.Feeds.MaxAge = override.Feeds.MaxAge
	}
	if override.Feeds.MaxItemsPerFeed != 0 {
		base.Feeds.MaxItemsPerFeed = override.Feeds.MaxItemsPerFeed
	}
	if override.Feeds.Scrape != nil {
		base.Feeds.Scrape = override.Feeds.Scrape
	}
	if override.Feeds.UserAgent != "" {
		base.Feeds.UserAgent = override.Feeds.UserAgent
	}

	base.Translation = mergeTranslation(base.Translation, override.Translation)

	if override.Cache.Addr != "" {
		base.Cache = override.Cache
	}
	if override.Archive.Bucket != "" {
		base.Archive = override.Archive
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.NotifyOnSuccess != nil {
		base.Notifications.Telegram.NotifyOnSuccess = override.Notifications.Telegram.NotifyOnSuccess
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func mergeTranslation(base, override TranslationConfig) TranslationConfig {
	if override.Enabled != nil {
		base.Enabled = override.Enabled
	}
	if override.Provider != "" {
		base.Provider = override.Provider
	}
	if override.LocalCompute != "" {
		base.LocalCompute = override.LocalCompute
	}
	if override.CallTimeout != 0 {
		base.CallTimeout = override.CallTimeout
	}
	if override.MaxRetries != nil {
		base.MaxRetries = override.MaxRetries
	}
	if override.InitialBackoff != 0 {
		base.InitialBackoff = override.InitialBackoff
	}
	if override.MaxBackoff != 0 {
		base.MaxBackoff = override.MaxBackoff
	}
	base.Cloud = mergeLLM(base.Cloud, override.Cloud)
	base.Local = mergeLLM(base.Local, override.Local)

	if override.DeepL.Endpoint != "" {
		base.DeepL.Endpoint = override.DeepL.Endpoint
	}
	if override.DeepL.APIKey != "" {
		base.DeepL.APIKey = override.DeepL.APIKey
	}
	if override.DeepL.SourceLang != "" {
		base.DeepL.SourceLang = override.DeepL.SourceLang
	}
	if override.DeepL.TargetLang != "" {
		base.DeepL.TargetLang = override.DeepL.TargetLang
	}
	if override.DeepL.ContextLimit != 0 {
		base.DeepL.ContextLimit = override.DeepL.ContextLimit
	}
	return base
}

func mergeLLM(base, override LLMConfig) LLMConfig {
	if override.API != "" {
		base.API = override.API
	}
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.ContextLimit != 0 {
		base.ContextLimit = override.ContextLimit
	}
	if override.Stop != nil {
		base.Stop = override.Stop
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:news.db?_pragma=busy_timeout(5000)"},
		Scheduler: SchedulerConfig{
			TriggerHours:    []int{6, 8, 10, 12},
			Timezone:        defaultTimezone,
			Retention:       7 * 24 * time.Hour,
			ShutdownTimeout: 2 * time.Minute,
		},
		Feeds: FeedsConfig{
			Timeout:         30 * time.Second,
			MaxAge:          24 * time.Hour,
			MaxItemsPerFeed: 50,
			UserAgent:       "NewsTranslator/1.0",
		},
		Translation: TranslationConfig{
			Provider:       string(domain.ProviderCloudLLM),
			LocalCompute:   "auto",
			CallTimeout:    30 * time.Second,
			InitialBackoff: time.Second,
			MaxBackoff:     10 * time.Second,
			Cloud: LLMConfig{
				API:          "openai",
				Endpoint:     "https://api.together.xyz/v1",
				Model:        "mistralai/Mistral-7B-Instruct-v0.2",
				ContextLimit: 32768,
				Stop:         []string{"</s>", "[/INST]"},
			},
			Local: LLMConfig{
				API:          "openai",
				Endpoint:     "http://localhost:11434/v1",
				Model:        "mistral",
				APIKey:       "ollama",
				ContextLimit: 32768,
				Stop:         []string{"</s>", "[/INST]"},
			},
			DeepL: DeepLConfig{
				Endpoint:     "https://api-free.deepl.com/v2/translate",
				SourceLang:   "DA",
				TargetLang:   "EN",
				ContextLimit: 32000,
			},
		},
		Cache: CacheConfig{TTL: 30 * 24 * time.Hour},
		Sites: []SiteConfig{
			{
				Name:       "borsen",
				Scanner:    "rss",
				Categories: borsenFeeds(),
			},
		},
	}
}

func borsenFeeds() []CategoryConfig {
	sections := []string{
		"", "breaking", "baeredygtig", "ejendomme", "finans", "investor",
		"ledelse", "longread", "markedsberetningen", "opinion", "pleasure",
		"politik", "tech", "utland", "virksomheder", "okonomi",
	}
	feeds := make([]CategoryConfig, 0, len(sections))
	for _, section := range sections {
		name, url := "forside", "https://borsen.dk/rss"
		if section != "" {
			name, url = section, "https://borsen.dk/rss/"+section
		}
		feeds = append(feeds, CategoryConfig{Name: name, URL: url})
	}
	return feeds
}
