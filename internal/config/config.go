// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
}

// ServerConfig holds the management API listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the host:port string for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless   bool     `mapstructure:"headless" yaml:"headless"`
	DisableGPU bool     `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	Args       []string `mapstructure:"args" yaml:"args"`
	// ExecPath overrides the Chrome binary location. Empty means auto-detect.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
}

// NetworkConfig governs page-level timing behavior.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// DefaultWaitTimeout applies to wait_for_selector calls that do not specify one.
	DefaultWaitTimeout time.Duration `mapstructure:"default_wait_timeout" yaml:"default_wait_timeout"`
}

// AgentConfig holds settings for the planner/executor loop.
type AgentConfig struct {
	// MaxSteps bounds the number of planning rounds per task.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
	// ParseErrorBudget is how many unparseable LLM responses the loop tolerates
	// before failing the task.
	ParseErrorBudget int `mapstructure:"parse_error_budget" yaml:"parse_error_budget"`
	// MaxConcurrentTasks bounds simultaneously running tasks.
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks" yaml:"max_concurrent_tasks"`
	// ScreenshotDir is where screenshot_page writes files.
	ScreenshotDir string          `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	LLM           LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
}

// StoreConfig configures optional task-history persistence. An empty DSN
// disables persistence entirely and the service runs in-memory.
type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGoogle LLMProvider = "google"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	TopK        int           `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// RequestsPerMinute rate-limits outbound generation calls. Zero disables limiting.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "agent-backend")
	v.SetDefault("logger.log_file", "agent-backend.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)

	// -- Network --
	v.SetDefault("network.navigation_timeout", "90s")
	v.SetDefault("network.default_wait_timeout", "10s")

	// -- Agent --
	v.SetDefault("agent.max_steps", 25)
	v.SetDefault("agent.parse_error_budget", 3)
	v.SetDefault("agent.max_concurrent_tasks", 4)
	v.SetDefault("agent.screenshot_dir", "screenshots")
	v.SetDefault("agent.llm.default_fast_model", "gemini-2.5-flash")
	v.SetDefault("agent.llm.default_powerful_model", "gemini-2.5-pro")
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("store.dsn", "AGENT_BACKEND_STORE_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// API keys come from the environment, never the config file. A per-model
	// override of the form AGENT_BACKEND_LLM_API_KEY applies to all models
	// with an empty key.
	if envKey := os.Getenv("AGENT_BACKEND_LLM_API_KEY"); envKey != "" {
		for name, m := range cfg.Agent.LLM.Models {
			if m.APIKey == "" {
				m.APIKey = envKey
				cfg.Agent.LLM.Models[name] = m
			}
		}
	}

	// Expand a leading ~ in filesystem paths.
	if expanded, err := homedir.Expand(cfg.Agent.ScreenshotDir); err == nil {
		cfg.Agent.ScreenshotDir = expanded
	}
	if expanded, err := homedir.Expand(cfg.Logger.LogFile); err == nil {
		cfg.Logger.LogFile = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.Agent.ParseErrorBudget < 0 {
		return fmt.Errorf("agent.parse_error_budget must not be negative")
	}
	if c.Agent.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("agent.max_concurrent_tasks must be a positive integer")
	}
	return nil
}
