// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing suite configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Timeouts() TimeoutConfig
	Sites() SitesConfig
	Filter() FilterConfig
	Report() ReportConfig

	// Browser Setters
	SetBrowserBackend(string)
	SetBrowserName(string)
	SetBrowserHeadless(bool)

	// Report Setters
	SetReportFormat(string)
	SetReportOutput(string)
}

// Config holds the entire suite configuration.
type Config struct {
	LoggerCfg   LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig `mapstructure:"browser" yaml:"browser"`
	TimeoutsCfg TimeoutConfig `mapstructure:"timeouts" yaml:"timeouts"`
	SitesCfg    SitesConfig   `mapstructure:"sites" yaml:"sites"`
	FilterCfg   FilterConfig  `mapstructure:"filter" yaml:"filter"`
	ReportCfg   ReportConfig  `mapstructure:"report" yaml:"report"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig    { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig  { return c.BrowserCfg }
func (c *Config) Timeouts() TimeoutConfig { return c.TimeoutsCfg }
func (c *Config) Sites() SitesConfig      { return c.SitesCfg }
func (c *Config) Filter() FilterConfig    { return c.FilterCfg }
func (c *Config) Report() ReportConfig    { return c.ReportCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserBackend(b string) { c.BrowserCfg.Backend = b }
func (c *Config) SetBrowserName(n string)    { c.BrowserCfg.Name = n }
func (c *Config) SetBrowserHeadless(b bool)  { c.BrowserCfg.Headless = b }
func (c *Config) SetReportFormat(f string)   { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string)   { c.ReportCfg.Output = o }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Backend names understood by the browser factory.
const (
	BackendChromedp   = "chromedp"
	BackendPlaywright = "playwright"
	BackendWebDriver  = "webdriver"
)

// Browser names.
const (
	BrowserChrome   = "chrome"
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

// BrowserConfig selects the automation backend and how the browser is launched.
type BrowserConfig struct {
	Backend         string   `mapstructure:"backend" yaml:"backend"`
	Name            string   `mapstructure:"name" yaml:"name"`
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	DisableCache    bool     `mapstructure:"disable_cache" yaml:"disable_cache"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug           bool     `mapstructure:"debug" yaml:"debug"`
	Args            []string `mapstructure:"args" yaml:"args"`
	// ExecPath overrides the browser binary located by the backend.
	ExecPath string         `mapstructure:"exec_path" yaml:"exec_path"`
	Viewport ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	// InstallPlaywright downloads the playwright driver and browsers before launch.
	InstallPlaywright bool            `mapstructure:"install_playwright" yaml:"install_playwright"`
	WebDriver         WebDriverConfig `mapstructure:"webdriver" yaml:"webdriver"`
}

// ViewportConfig is the fixed window size every session is resized to.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// WebDriverConfig configures the W3C WebDriver backend. When RemoteURL is set the
// backend connects to it; otherwise it starts a local driver service.
type WebDriverConfig struct {
	RemoteURL        string `mapstructure:"remote_url" yaml:"remote_url"`
	ChromeDriverPath string `mapstructure:"chromedriver_path" yaml:"chromedriver_path"`
	GeckoDriverPath  string `mapstructure:"geckodriver_path" yaml:"geckodriver_path"`
	Port             int    `mapstructure:"port" yaml:"port"`
}

// TimeoutConfig holds the bounded waits used by the scenarios.
type TimeoutConfig struct {
	FilterPopup  time.Duration `mapstructure:"filter_popup" yaml:"filter_popup"`
	Window       time.Duration `mapstructure:"window" yaml:"window"`
	Document     time.Duration `mapstructure:"document" yaml:"document"`
	Navigation   time.Duration `mapstructure:"navigation" yaml:"navigation"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// SitesConfig holds the URLs the scenarios visit. Overriding them points the
// same scenarios at a local fixture site.
type SitesConfig struct {
	Homepage           string `mapstructure:"homepage" yaml:"homepage"`
	CareersHref        string `mapstructure:"careers_href" yaml:"careers_href"`
	JobBoard           string `mapstructure:"job_board" yaml:"job_board"`
	FollowCanadianJobs bool   `mapstructure:"follow_canadian_jobs" yaml:"follow_canadian_jobs"`
}

// Filter match modes.
const (
	MatchTitle = "title"
	MatchExact = "exact"
)

// FilterConfig controls how the job board filter helper matches options.
type FilterConfig struct {
	Strict bool   `mapstructure:"strict" yaml:"strict"`
	Match  string `mapstructure:"match" yaml:"match"`
}

// Report formats.
const (
	FormatJSON  = "json"
	FormatJUnit = "junit"
)

// ReportConfig controls the run report written by the CLI.
type ReportConfig struct {
	Format              string `mapstructure:"format" yaml:"format"`
	Output              string `mapstructure:"output" yaml:"output"`
	ArtifactsDir        string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	ScreenshotOnFailure bool   `mapstructure:"screenshot_on_failure" yaml:"screenshot_on_failure"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "traderev")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.backend", BackendChromedp)
	v.SetDefault("browser.name", BrowserChrome)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_cache", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.viewport.width", 1366)
	v.SetDefault("browser.viewport.height", 768)
	v.SetDefault("browser.install_playwright", false)
	v.SetDefault("browser.webdriver.chromedriver_path", "chromedriver")
	v.SetDefault("browser.webdriver.geckodriver_path", "geckodriver")
	v.SetDefault("browser.webdriver.port", 9515)

	// -- Timeouts --
	v.SetDefault("timeouts.filter_popup", "10s")
	v.SetDefault("timeouts.window", "10s")
	v.SetDefault("timeouts.document", "5s")
	v.SetDefault("timeouts.navigation", "30s")
	v.SetDefault("timeouts.poll_interval", "250ms")

	// -- Sites --
	v.SetDefault("sites.homepage", "https://www.traderev.com/en-ca/")
	v.SetDefault("sites.careers_href", "https://work.traderev.com/")
	v.SetDefault("sites.job_board", "https://jobs.lever.co/traderev")
	v.SetDefault("sites.follow_canadian_jobs", true)

	// -- Filter --
	v.SetDefault("filter.strict", false)
	v.SetDefault("filter.match", MatchTitle)

	// -- Report --
	v.SetDefault("report.format", FormatJSON)
	v.SetDefault("report.output", "-")
	v.SetDefault("report.artifacts_dir", "results")
	v.SetDefault("report.screenshot_on_failure", true)
}

// NewConfigFromViper unmarshals a viper instance into a validated Config.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("browser.webdriver.remote_url", "TRADEREV_WEBDRIVER_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	dir, err := homedir.Expand(cfg.ReportCfg.ArtifactsDir)
	if err != nil {
		return nil, fmt.Errorf("could not expand report.artifacts_dir: %w", err)
	}
	cfg.ReportCfg.ArtifactsDir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return err
	}
	if err := c.TimeoutsCfg.Validate(); err != nil {
		return err
	}
	if c.SitesCfg.Homepage == "" || c.SitesCfg.JobBoard == "" {
		return fmt.Errorf("sites.homepage and sites.job_board are required")
	}
	switch c.FilterCfg.Match {
	case MatchTitle, MatchExact:
	default:
		return fmt.Errorf("filter.match must be one of %q or %q, got %q", MatchTitle, MatchExact, c.FilterCfg.Match)
	}
	switch strings.ToLower(c.ReportCfg.Format) {
	case FormatJSON, FormatJUnit:
	default:
		return fmt.Errorf("report.format must be one of %q or %q, got %q", FormatJSON, FormatJUnit, c.ReportCfg.Format)
	}
	return nil
}

// Validate checks the backend and browser pairing and the viewport.
func (b *BrowserConfig) Validate() error {
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport width and height must be positive integers")
	}
	switch b.Backend {
	case BackendChromedp:
		if b.Name != BrowserChrome && b.Name != BrowserChromium {
			return fmt.Errorf("backend %q only drives chrome, got browser %q", b.Backend, b.Name)
		}
	case BackendPlaywright:
		switch b.Name {
		case BrowserChrome, BrowserChromium, BrowserFirefox, BrowserWebKit:
		default:
			return fmt.Errorf("backend %q does not support browser %q", b.Backend, b.Name)
		}
	case BackendWebDriver:
		if b.Name != BrowserChrome && b.Name != BrowserFirefox {
			return fmt.Errorf("backend %q does not support browser %q", b.Backend, b.Name)
		}
	default:
		return fmt.Errorf("unknown browser.backend %q", b.Backend)
	}
	return nil
}

// Validate ensures every wait is bounded.
func (t *TimeoutConfig) Validate() error {
	if t.FilterPopup <= 0 || t.Window <= 0 || t.Document <= 0 || t.Navigation <= 0 {
		return fmt.Errorf("timeouts must be positive durations")
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("timeouts.poll_interval must be a positive duration")
	}
	return nil
}
