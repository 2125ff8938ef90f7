package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "Europe/Berlin"
	configPathEnv    = "NEWSPAPER_SCRAPER_CONFIG"
	databasePathEnv  = "NEWSPAPER_SCRAPER_DB"
	usernameEnv      = "NEWSPAPER_USERNAME"
	passwordEnv      = "NEWSPAPER_PASSWORD"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Logging       LoggingConfig      `yaml:"logging"`
	HTTP          HTTPConfig         `yaml:"http"`
	Browser       BrowserConfig      `yaml:"browser"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Credentials   CredentialsConfig  `yaml:"credentials"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// DatabaseConfig describes the SQLite file location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// HTTPConfig tunes the plain-HTTP fetch layer.
type HTTPConfig struct {
	UserAgent      string `yaml:"userAgent"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	DelayMillis    int    `yaml:"delayMillis"`
	RespectRobots  bool   `yaml:"respectRobots"`
}

// BrowserConfig tunes the headless-browser session for premium scraping.
type BrowserConfig struct {
	Headless     bool `yaml:"headless"`
	WindowWidth  int  `yaml:"windowWidth"`
	WindowHeight int  `yaml:"windowHeight"`
}

// SchedulerConfig defines the optional recurring daily run.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send run summaries.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// CredentialsConfig carries the premium subscription login.
type CredentialsConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SiteConfig describes a single newspaper with its adapter strategy.
type SiteConfig struct {
	Name    string            `yaml:"name"`
	Adapter string            `yaml:"adapter"`
	Feeds   []string          `yaml:"feeds"`
	Options map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(usernameEnv); v != "" {
		c.Credentials.Username = v
	}

	if v := os.Getenv(passwordEnv); v != "" {
		c.Credentials.Password = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.HTTP.UserAgent != "" {
		base.HTTP.UserAgent = override.HTTP.UserAgent
	}
	if override.HTTP.TimeoutSeconds > 0 {
		base.HTTP.TimeoutSeconds = override.HTTP.TimeoutSeconds
	}
	if override.HTTP.DelayMillis > 0 {
		base.HTTP.DelayMillis = override.HTTP.DelayMillis
	}
	if override.HTTP.RespectRobots {
		base.HTTP.RespectRobots = true
	}

	if override.Browser.WindowWidth > 0 {
		base.Browser.WindowWidth = override.Browser.WindowWidth
	}
	if override.Browser.WindowHeight > 0 {
		base.Browser.WindowHeight = override.Browser.WindowHeight
	}
	base.Browser.Headless = base.Browser.Headless || override.Browser.Headless

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Credentials.Username != "" {
		base.Credentials.Username = override.Credentials.Username
	}
	if override.Credentials.Password != "" {
		base.Credentials.Password = override.Credentials.Password
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Path: "./articles.db"},
		Logging:  LoggingConfig{Level: "info"},
		HTTP: HTTPConfig{
			UserAgent:      "newspaperscraper/1.0",
			TimeoutSeconds: 20,
			DelayMillis:    500,
			RespectRobots:  true,
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: 24 * time.Hour,
			Timezone: defaultTimezone,
			location: tz,
		},
		Sites: []SiteConfig{
			{Name: "spiegel", Adapter: "spiegel"},
			{Name: "welt", Adapter: "welt"},
			{Name: "zeit", Adapter: "zeit"},
		},
	}
}
