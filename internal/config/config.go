// Package config loads and validates the application configuration from a
// YAML file, environment variables (BROWSERPILOT_ prefix), and defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Relay   RelayConfig   `mapstructure:"relay" yaml:"relay"`
}

// LoggerConfig controls zap logger construction.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// BrowserConfig controls the automation driver's Chrome session.
type BrowserConfig struct {
	// ProfileDir persists cookies and login state across restarts. Its
	// existence on disk doubles as the "logged in" check.
	ProfileDir string `mapstructure:"profile_dir" yaml:"profile_dir"`
	// Headless is off by default: the session is user-visible by design so
	// the user can watch (and if needed rescue) the automation.
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	StepDelay         time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	CalendarURL       string        `mapstructure:"calendar_url" yaml:"calendar_url"`
	MailURL           string        `mapstructure:"mail_url" yaml:"mail_url"`
	LoginURL          string        `mapstructure:"login_url" yaml:"login_url"`
}

// LLMConfig configures the generative-language client used for email
// composition and agent planning.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
}

// AgentConfig bounds the tool-dispatch loop.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
}

// RelayConfig tunes relay-queue polling on both sides of the bridge.
type RelayConfig struct {
	// PollInterval is the sandboxed client's drain cadence.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// TabWait bounds how long tab-creation tools watch for completion before
	// returning anyway.
	TabWait time.Duration `mapstructure:"tab_wait" yaml:"tab_wait"`
	// ScreenshotAttempts * ScreenshotDelay bounds the screenshot wait.
	ScreenshotAttempts int           `mapstructure:"screenshot_attempts" yaml:"screenshot_attempts"`
	ScreenshotDelay    time.Duration `mapstructure:"screenshot_delay" yaml:"screenshot_delay"`
	// MinCaptureInterval rejects screenshot requests arriving faster than this.
	MinCaptureInterval time.Duration `mapstructure:"min_capture_interval" yaml:"min_capture_interval"`
	// ScreenshotDir is where the local fulfiller persists captures.
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "browserpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:3456")
	v.SetDefault("server.request_timeout", "120s")

	// -- Browser --
	v.SetDefault("browser.profile_dir", defaultProfileDir())
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.probe_timeout", "2s")
	v.SetDefault("browser.step_delay", "500ms")
	v.SetDefault("browser.calendar_url", "https://calendar.google.com/calendar/u/0/r")
	v.SetDefault("browser.mail_url", "https://mail.google.com/mail/u/0/")
	v.SetDefault("browser.login_url", "https://accounts.google.com/")

	// -- LLM --
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "30s")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.2)

	// -- Agent --
	v.SetDefault("agent.max_iterations", 2)

	// -- Relay --
	v.SetDefault("relay.poll_interval", "2s")
	v.SetDefault("relay.tab_wait", "1s")
	v.SetDefault("relay.screenshot_attempts", 10)
	v.SetDefault("relay.screenshot_delay", "500ms")
	v.SetDefault("relay.min_capture_interval", "3s")
	v.SetDefault("relay.screenshot_dir", defaultStateDir("screenshots"))
}

// New creates a validated configuration from a viper instance.
func New(v *viper.Viper) (*Config, error) {
	v.BindEnv("llm.api_key", "BROWSERPILOT_LLM_API_KEY", "GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Browser.ProfileDir == "" {
		return fmt.Errorf("browser.profile_dir is required")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be a positive integer")
	}
	if c.Relay.ScreenshotAttempts <= 0 {
		return fmt.Errorf("relay.screenshot_attempts must be a positive integer")
	}
	if c.Relay.PollInterval <= 0 {
		return fmt.Errorf("relay.poll_interval must be a positive duration")
	}
	if c.Relay.MinCaptureInterval < 0 {
		return fmt.Errorf("relay.min_capture_interval must not be negative")
	}
	return nil
}

func defaultProfileDir() string {
	return defaultStateDir("profile")
}

func defaultStateDir(name string) string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".", ".browserpilot", name)
	}
	return filepath.Join(home, ".browserpilot", name)
}
