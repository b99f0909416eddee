package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const (
	// Version is the current version of i18ncheck
	Version = "1"
	// AppName is the application name
	AppName = "i18ncheck"
	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "I18NCHECK"
)

// Config holds all configuration options for a verification run and the fixture server
type Config struct {
	// Target
	BaseURL string `mapstructure:"base_url"`

	Languages LanguageConfig `mapstructure:"languages"`
	Timeouts  TimeoutConfig  `mapstructure:"timeouts"`
	Browser   BrowserConfig  `mapstructure:"browser"`
	Artifacts ArtifactConfig `mapstructure:"artifacts"`
	Log       LogConfig      `mapstructure:"log"`
	Nats      NatsConfig     `mapstructure:"nats"`
	Fixture   FixtureConfig  `mapstructure:"fixture"`
}

// LanguageConfig describes the language pair and the labels expected for each
type LanguageConfig struct {
	Default        string `mapstructure:"default"`
	DefaultHeading string `mapstructure:"default_heading"`
	EmptyMessage   string `mapstructure:"empty_message"`
	Alternate      string `mapstructure:"alternate"`
	AltHeading     string `mapstructure:"alternate_heading"`
	ExactMatch     bool   `mapstructure:"exact_match"`
}

// TimeoutConfig holds the wait budgets of the run
type TimeoutConfig struct {
	Ready       time.Duration `mapstructure:"ready"`        // disjunctive readiness checkpoint
	Assert      time.Duration `mapstructure:"assert"`       // plain visibility assertions
	Action      time.Duration `mapstructure:"action"`       // resolving interactive controls
	Navigation  time.Duration `mapstructure:"navigation"`   // navigation + first network idle
	NetworkIdle time.Duration `mapstructure:"network_idle"` // quiescence window
	Run         time.Duration `mapstructure:"run"`          // whole run, 0 disables
}

// BrowserConfig holds Chrome launch settings
type BrowserConfig struct {
	Bin            string `mapstructure:"bin"`
	RemoteURL      string `mapstructure:"remote_url"`
	Headless       bool   `mapstructure:"headless"`
	NoSandbox      bool   `mapstructure:"no_sandbox"`
	InstallChrome  bool   `mapstructure:"install_chrome"`
	ChromeRevision int    `mapstructure:"chrome_revision"`
	WindowWidth    int    `mapstructure:"window_width"`
	WindowHeight   int    `mapstructure:"window_height"`
}

// ArtifactConfig controls where screenshots are written
type ArtifactConfig struct {
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// NatsConfig enables publication of run events. Empty URL disables it.
type NatsConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// FixtureConfig holds settings of the bundled storefront used by `serve`
type FixtureConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	SeedItems       int           `mapstructure:"seed_items"`
	DisableSwitcher bool          `mapstructure:"disable_switcher"`
	Latency         time.Duration `mapstructure:"latency"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:3000/",
		Languages: LanguageConfig{
			Default:        "ja",
			DefaultHeading: "商品一覧",
			EmptyMessage:   "商品はまだありません。",
			Alternate:      "en",
			AltHeading:     "Product List",
		},
		Timeouts: TimeoutConfig{
			Ready:       20 * time.Second,
			Assert:      5 * time.Second,
			Action:      30 * time.Second,
			Navigation:  30 * time.Second,
			NetworkIdle: 500 * time.Millisecond,
			Run:         3 * time.Minute,
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1280,
			WindowHeight: 720,
		},
		Artifacts: ArtifactConfig{
			Dir:    "verification",
			Prefix: "verification",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Nats: NatsConfig{
			SubjectPrefix: "i18ncheck.events",
		},
		Fixture: FixtureConfig{
			Host: "127.0.0.1",
			Port: 3000,
		},
	}
}

// SetDefaults registers every default value with viper so env vars and config
// files can override nested keys.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("base_url", d.BaseURL)

	v.SetDefault("languages.default", d.Languages.Default)
	v.SetDefault("languages.default_heading", d.Languages.DefaultHeading)
	v.SetDefault("languages.empty_message", d.Languages.EmptyMessage)
	v.SetDefault("languages.alternate", d.Languages.Alternate)
	v.SetDefault("languages.alternate_heading", d.Languages.AltHeading)
	v.SetDefault("languages.exact_match", d.Languages.ExactMatch)

	v.SetDefault("timeouts.ready", d.Timeouts.Ready)
	v.SetDefault("timeouts.assert", d.Timeouts.Assert)
	v.SetDefault("timeouts.action", d.Timeouts.Action)
	v.SetDefault("timeouts.navigation", d.Timeouts.Navigation)
	v.SetDefault("timeouts.network_idle", d.Timeouts.NetworkIdle)
	v.SetDefault("timeouts.run", d.Timeouts.Run)

	v.SetDefault("browser.bin", d.Browser.Bin)
	v.SetDefault("browser.remote_url", d.Browser.RemoteURL)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.no_sandbox", d.Browser.NoSandbox)
	v.SetDefault("browser.install_chrome", d.Browser.InstallChrome)
	v.SetDefault("browser.chrome_revision", d.Browser.ChromeRevision)
	v.SetDefault("browser.window_width", d.Browser.WindowWidth)
	v.SetDefault("browser.window_height", d.Browser.WindowHeight)

	v.SetDefault("artifacts.dir", d.Artifacts.Dir)
	v.SetDefault("artifacts.prefix", d.Artifacts.Prefix)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("nats.url", d.Nats.URL)
	v.SetDefault("nats.subject_prefix", d.Nats.SubjectPrefix)

	v.SetDefault("fixture.host", d.Fixture.Host)
	v.SetDefault("fixture.port", d.Fixture.Port)
	v.SetDefault("fixture.seed_items", d.Fixture.SeedItems)
	v.SetDefault("fixture.disable_switcher", d.Fixture.DisableSwitcher)
	v.SetDefault("fixture.latency", d.Fixture.Latency)
}

// flagKeys maps CLI flag names to viper keys
var flagKeys = map[string]string{
	"base-url":         "base_url",
	"default-lang":     "languages.default",
	"default-heading":  "languages.default_heading",
	"empty-message":    "languages.empty_message",
	"alt-lang":         "languages.alternate",
	"alt-heading":      "languages.alternate_heading",
	"exact":            "languages.exact_match",
	"ready-timeout":    "timeouts.ready",
	"assert-timeout":   "timeouts.assert",
	"action-timeout":   "timeouts.action",
	"nav-timeout":      "timeouts.navigation",
	"idle-window":      "timeouts.network_idle",
	"run-timeout":      "timeouts.run",
	"chrome-bin":       "browser.bin",
	"browser-url":      "browser.remote_url",
	"headless":         "browser.headless",
	"no-sandbox":       "browser.no_sandbox",
	"install-chrome":   "browser.install_chrome",
	"chrome-revision":  "browser.chrome_revision",
	"artifact-dir":     "artifacts.dir",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"nats-url":         "nats.url",
	"nats-subject":     "nats.subject_prefix",
	"host":             "fixture.host",
	"port":             "fixture.port",
	"seed-items":       "fixture.seed_items",
	"disable-switcher": "fixture.disable_switcher",
	"latency":          "fixture.latency",
}

// BindFlags binds every known flag present in fs to its viper key. Flags that
// are not defined on fs are skipped, so commands only declare what they use.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults, env overrides and the optional
// config file wired in.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// CHROME_BIN is the conventional override in container images
	if err := v.BindEnv("browser.bin", EnvPrefix+"_BROWSER_BIN", "CHROME_BIN"); err != nil {
		return nil, fmt.Errorf("failed to bind browser env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// Load unmarshals v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and normalizes values that have safe fallbacks
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: must be absolute", c.BaseURL)
	}

	if err := validateLang(c.Languages.Default); err != nil {
		return fmt.Errorf("invalid default language: %w", err)
	}
	if err := validateLang(c.Languages.Alternate); err != nil {
		return fmt.Errorf("invalid alternate language: %w", err)
	}
	if c.Languages.Default == c.Languages.Alternate {
		return fmt.Errorf("default and alternate language must differ, both are %q", c.Languages.Default)
	}
	if c.Languages.DefaultHeading == "" || c.Languages.AltHeading == "" {
		return errors.New("both heading labels are required")
	}
	if c.Languages.DefaultHeading == c.Languages.AltHeading {
		return errors.New("default and alternate heading labels must differ")
	}

	if c.Timeouts.Ready <= 0 || c.Timeouts.Assert <= 0 || c.Timeouts.Action <= 0 || c.Timeouts.Navigation <= 0 {
		return errors.New("ready, assert, action and navigation timeouts must be positive")
	}
	if c.Timeouts.NetworkIdle <= 0 {
		c.Timeouts.NetworkIdle = DefaultConfig().Timeouts.NetworkIdle
	}
	if c.Timeouts.Run < 0 {
		c.Timeouts.Run = 0
	}

	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "."
	}
	if c.Artifacts.Prefix == "" {
		c.Artifacts.Prefix = DefaultConfig().Artifacts.Prefix
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (console or json)", c.Log.Format)
	}

	if c.Fixture.Port < 0 || c.Fixture.Port > 65535 {
		return fmt.Errorf("invalid fixture port %d", c.Fixture.Port)
	}
	if c.Fixture.SeedItems < 0 {
		c.Fixture.SeedItems = 0
	}

	return nil
}

// ArtifactPath returns the screenshot path for a language code
func (c *Config) ArtifactPath(lang string) string {
	return filepath.Join(c.Artifacts.Dir, fmt.Sprintf("%s_%s.png", c.Artifacts.Prefix, lang))
}

func validateLang(code string) error {
	if code == "" {
		return errors.New("language code is empty")
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("%q is not a BCP 47 language tag: %w", code, err)
	}
	return nil
}
