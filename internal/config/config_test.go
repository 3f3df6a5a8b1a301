package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if !cfg.App.DryRun {
		t.Error("default must be dry run")
	}
	if cfg.App.MaxDailyPosts != 2 {
		t.Errorf("maxDailyPosts = %d, want 2", cfg.App.MaxDailyPosts)
	}
	if len(cfg.App.PostTimes) != 2 || cfg.App.PostTimes[0] != "09:00" || cfg.App.PostTimes[1] != "15:00" {
		t.Errorf("postTimes = %v", cfg.App.PostTimes)
	}
	if cfg.App.Tick() != time.Minute {
		t.Errorf("tick = %v, want 1m", cfg.App.Tick())
	}
	if cfg.Sources.MinRecencyHours != 36 {
		t.Errorf("minRecencyHours = %d, want 36", cfg.Sources.MinRecencyHours)
	}
	if cfg.Strategy.ContentStrategy != "auto" {
		t.Errorf("contentStrategy = %q, want auto", cfg.Strategy.ContentStrategy)
	}
	if cfg.Database.Path != "newsposter.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
app:
  timezone: America/New_York
  dryRun: false
  maxDailyPosts: 5
  postTimes: ["08:30", "12:00", "18:45"]
strategy:
  contentStrategy: thread
  threadMaxPosts: 6
x:
  requestsPerMinute: 30
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if cfg.App.DryRun {
		t.Error("dryRun override lost")
	}
	if cfg.App.MaxDailyPosts != 5 {
		t.Errorf("maxDailyPosts = %d, want 5", cfg.App.MaxDailyPosts)
	}
	if len(cfg.App.PostTimes) != 3 {
		t.Errorf("postTimes = %v", cfg.App.PostTimes)
	}
	if got := cfg.App.Location().String(); got != "America/New_York" {
		t.Errorf("location = %q", got)
	}
	if cfg.Strategy.ContentStrategy != "thread" {
		t.Errorf("contentStrategy = %q", cfg.Strategy.ContentStrategy)
	}
	if cfg.Strategy.ThreadMaxPosts != 6 {
		t.Errorf("threadMaxPosts = %d", cfg.Strategy.ThreadMaxPosts)
	}
	// Untouched sections keep their defaults.
	if cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("openai model = %q", cfg.OpenAI.Model)
	}
	if cfg.X.RequestsPerMinute != 30 {
		t.Errorf("requestsPerMinute = %d", cfg.X.RequestsPerMinute)
	}
}

func TestEnvOverridesWinOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  path: from-yaml.db
openai:
  apiKey: yaml-key
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databasePathEnv, "from-env.db")
	t.Setenv(openAIKeyEnv, "env-key")
	t.Setenv(xAccessTokenEnv, "env-token")

	cfg := Load()

	if cfg.Database.Path != "from-env.db" {
		t.Errorf("database path = %q, want env value", cfg.Database.Path)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("openai key = %q, want env value", cfg.OpenAI.APIKey)
	}
	if cfg.X.AccessToken != "env-token" {
		t.Errorf("access token = %q, want env value", cfg.X.AccessToken)
	}
}

func TestNormalizeDropsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
app:
  postTimes: ["09:00", "9am", "25:00", "15:30"]
  maxDailyPosts: 0
strategy:
  contentStrategy: carousel
  threadMaxPosts: 1
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()

	if len(cfg.App.PostTimes) != 2 || cfg.App.PostTimes[0] != "09:00" || cfg.App.PostTimes[1] != "15:30" {
		t.Errorf("postTimes = %v, want malformed entries dropped", cfg.App.PostTimes)
	}
	if cfg.App.MaxDailyPosts != 1 {
		t.Errorf("maxDailyPosts = %d, want floor of 1", cfg.App.MaxDailyPosts)
	}
	if cfg.Strategy.ContentStrategy != "auto" {
		t.Errorf("contentStrategy = %q, want auto fallback", cfg.Strategy.ContentStrategy)
	}
	if cfg.Strategy.ThreadMaxPosts != 2 {
		t.Errorf("threadMaxPosts = %d, want floor of 2", cfg.Strategy.ThreadMaxPosts)
	}
}

func TestUnknownTimezoneRevertsToLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  timezone: Mars/Olympus\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.App.Location() != time.Local {
		t.Errorf("location = %v, want local fallback", cfg.App.Location())
	}
}

func TestLongLimitRequiresPremium(t *testing.T) {
	t.Parallel()

	s := StrategyConfig{MaxPostLength: 25000}
	if got := s.LongLimit(); got != 280 {
		t.Errorf("non-premium long limit = %d, want 280", got)
	}

	s.UsePremiumFeatures = true
	if got := s.LongLimit(); got != 25000 {
		t.Errorf("premium long limit = %d, want 25000", got)
	}

	s.MaxPostLength = 100
	if got := s.LongLimit(); got != 280 {
		t.Errorf("premium with tiny ceiling = %d, want 280 floor", got)
	}
}
