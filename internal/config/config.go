package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "NEWSPOSTER_CONFIG"
	databasePathEnv = "NEWSPOSTER_DB_PATH"
	openAIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	grokKeyEnv      = "GROK_API_KEY"
	xAccessTokenEnv = "X_ACCESS_TOKEN"
)

// Config holds high-level settings required across the application.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Style    StyleConfig    `yaml:"style"`
	Sources  SourcesConfig  `yaml:"sources"`
	Strategy StrategyConfig `yaml:"strategy"`
	Database DatabaseConfig `yaml:"database"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Image    ImageConfig    `yaml:"image"`
	X        XConfig        `yaml:"x"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AppConfig defines scheduling and quota behavior.
// DryRun routes publishes to a no-op transport that returns synthetic post
// identifiers; dedup and quota recording still happen so a dry run rehearses
// future scheduling faithfully.
type AppConfig struct {
	Timezone      string         `yaml:"timezone"` // "local" or an IANA zone
	DryRun        bool           `yaml:"dryRun"`
	MaxDailyPosts int            `yaml:"maxDailyPosts"`
	PostTimes     []string       `yaml:"postTimes"` // HH:MM, local to Timezone
	TickSeconds   int            `yaml:"tickSeconds"`
	location      *time.Location `yaml:"-"`
}

// Location resolves the configured timezone string to a time.Location.
func (a AppConfig) Location() *time.Location {
	if a.location != nil {
		return a.location
	}
	return time.Local
}

// Tick returns the scheduler tick interval.
func (a AppConfig) Tick() time.Duration {
	if a.TickSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.TickSeconds) * time.Second
}

// StyleConfig shapes the voice of generated copy.
type StyleConfig struct {
	Tone            string   `yaml:"tone"` // professional|witty|hype|thought_leader
	UseEmojis       bool     `yaml:"useEmojis"`
	DefaultHashtags []string `yaml:"defaultHashtags"`
}

// SourcesConfig describes where candidates come from and which survive.
type SourcesConfig struct {
	RSSFeeds         []string `yaml:"rssFeeds"`
	MinRecencyHours  int      `yaml:"minRecencyHours"`
	AllowlistDomains []string `yaml:"allowlistDomains"`
}

// StrategyConfig controls content shape selection.
type StrategyConfig struct {
	ContentStrategy    string  `yaml:"contentStrategy"` // auto|short|long|thread|image
	EnableThreads      bool    `yaml:"enableThreads"`
	EnableImages       bool    `yaml:"enableImages"`
	ThreadMaxPosts     int     `yaml:"threadMaxPosts"`
	UsePremiumFeatures bool    `yaml:"usePremiumFeatures"`
	MaxPostLength      int     `yaml:"maxPostLength"`
	LongThreshold      float64 `yaml:"longThreshold"`
	ThreadThreshold    float64 `yaml:"threadThreshold"`
}

// ShortLimit returns the per-post ceiling for short posts and thread
// segments.
func (s StrategyConfig) ShortLimit() int {
	return 280
}

// LongLimit returns the ceiling for long-form posts.
func (s StrategyConfig) LongLimit() int {
	if s.UsePremiumFeatures && s.MaxPostLength > 280 {
		return s.MaxPostLength
	}
	return s.ShortLimit()
}

// DatabaseConfig points at the embedded SQLite database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// OpenAIConfig defines how to contact the chat-completions API.
type OpenAIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// ImageConfig defines the image generation API.
type ImageConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	Style    string `yaml:"style"`
}

// XConfig wires the publish transport.
type XConfig struct {
	APIBase           string `yaml:"apiBase"`
	UploadBase        string `yaml:"uploadBase"`
	AccessToken       string `yaml:"accessToken"`
	RequestsPerMinute int    `yaml:"requestsPerMinute"`
	MaxPublishRetries int    `yaml:"maxPublishRetries"`
	CallTimeoutSecs   int    `yaml:"callTimeoutSecs"`
}

// CallTimeout bounds each external publish call.
func (x XConfig) CallTimeout() time.Duration {
	if x.CallTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(x.CallTimeoutSecs) * time.Second
}

// LoggingConfig controls process logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) over defaults and applies
// environment overrides. A .env file in the working directory is loaded
// first, matching the deployment layout.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.normalize()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(grokKeyEnv); v != "" {
		c.Image.APIKey = v
	}

	if v := os.Getenv(xAccessTokenEnv); v != "" {
		c.X.AccessToken = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.App.Timezone
	if tz == "" || tz == "local" {
		c.App.location = time.Local
		return
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to local", tz)
		loc = time.Local
	}
	c.App.location = loc
}

func (c *Config) normalize() {
	times := c.App.PostTimes[:0]
	for _, t := range c.App.PostTimes {
		if _, err := time.Parse("15:04", t); err != nil {
			log.Printf("config: dropping malformed post time %q", t)
			continue
		}
		times = append(times, t)
	}
	c.App.PostTimes = times

	switch c.Strategy.ContentStrategy {
	case "auto", "short", "long", "thread", "image":
	default:
		log.Printf("config: unknown content strategy %q, using auto", c.Strategy.ContentStrategy)
		c.Strategy.ContentStrategy = "auto"
	}

	if c.Strategy.ThreadMaxPosts < 2 {
		c.Strategy.ThreadMaxPosts = 2
	}

	if c.App.MaxDailyPosts < 1 {
		c.App.MaxDailyPosts = 1
	}
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{
			Timezone:      "local",
			DryRun:        true,
			MaxDailyPosts: 2,
			PostTimes:     []string{"09:00", "15:00"},
			TickSeconds:   60,
		},
		Style: StyleConfig{
			Tone:            "professional",
			UseEmojis:       true,
			DefaultHashtags: []string{"#AI", "#Web3"},
		},
		Sources: SourcesConfig{
			MinRecencyHours: 36,
		},
		Strategy: StrategyConfig{
			ContentStrategy: "auto",
			EnableThreads:   true,
			EnableImages:    false,
			ThreadMaxPosts:  4,
			MaxPostLength:   25000,
			LongThreshold:   0.5,
			ThreadThreshold: 0.7,
		},
		Database: DatabaseConfig{Path: "newsposter.db"},
		OpenAI: OpenAIConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		Image: ImageConfig{
			Endpoint: "https://api.x.ai/v1/images/generations",
			Model:    "grok-2-image",
			Style:    "realistic",
		},
		X: XConfig{
			APIBase:           "https://api.x.com",
			UploadBase:        "https://upload.twitter.com",
			RequestsPerMinute: 10,
			MaxPublishRetries: 2,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
