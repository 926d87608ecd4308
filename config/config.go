// Package config provides configuration management for the mycroft agent.
// It supports loading configuration from YAML files, environment variables,
// and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
)

// Default configuration values.
const (
	DefaultPollInterval         = 60 * time.Second
	DefaultReasonerTimeout      = 120 * time.Second
	DefaultAutoApproveThreshold = 1.0 // disabled
	DefaultDailySendLimit       = 20
	DefaultAgentName            = "mycroft"
	DefaultConfigDir            = ".mycroft"
	DefaultConfigFile           = "config.yaml"
	DefaultVaultDir             = "vault"
	DefaultLogLevel             = "info"
)

// Config holds the agent configuration settings.
type Config struct {
	// VaultPath is the root of the shared markdown vault.
	VaultPath string `yaml:"vault_path"`

	// PollInterval is the sleep between pipeline cycles.
	PollInterval time.Duration `yaml:"-"`

	// AutoApproveThreshold gates unattended execution: plans with confidence
	// at or above it skip human review. 1.0 disables auto-approval.
	AutoApproveThreshold float64 `yaml:"auto_approve_threshold"`

	// DailySendLimit caps outbound replies per UTC day.
	DailySendLimit int `yaml:"daily_send_limit"`

	// VIPSenders always classify as high priority.
	VIPSenders []string `yaml:"vip_senders,omitempty"`

	// UrgentKeywords override the default urgency keyword list.
	UrgentKeywords []string `yaml:"urgent_keywords,omitempty"`

	// Model is the reasoner model identifier passed to the CLI.
	Model string `yaml:"model,omitempty"`

	// ReasonerTimeout bounds one reasoner invocation.
	ReasonerTimeout time.Duration `yaml:"-"`

	// AgentName identifies this agent in the claim-by-move protocol.
	AgentName string `yaml:"agent_name,omitempty"`

	// SyncEnabled turns on git-based vault synchronization.
	SyncEnabled bool `yaml:"sync_enabled,omitempty"`

	// GmailEnabled turns on the Gmail watcher and sender.
	GmailEnabled bool `yaml:"gmail_enabled,omitempty"`

	// GmailFilter overrides the default unread-message query.
	GmailFilter string `yaml:"gmail_filter,omitempty"`

	// FileWatchEnabled turns on the Incoming_Files watcher.
	FileWatchEnabled bool `yaml:"file_watch_enabled,omitempty"`

	// FileWatchDryRun logs detected files without creating work items.
	FileWatchDryRun bool `yaml:"file_watch_dry_run,omitempty"`

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9464").
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	// LogJSON switches log output from console format to JSON.
	LogJSON bool `yaml:"log_json,omitempty"`

	// LogFile additionally writes structured log entries to this file.
	LogFile string `yaml:"log_file,omitempty"`
}

// DefaultConfig returns a Config with default values. The vault defaults to
// ~/.mycroft/vault.
func DefaultConfig() *Config {
	vaultPath := DefaultVaultDir
	if dir, err := ConfigDir(); err == nil {
		vaultPath = filepath.Join(dir, DefaultVaultDir)
	}
	return &Config{
		VaultPath:            vaultPath,
		PollInterval:         DefaultPollInterval,
		AutoApproveThreshold: DefaultAutoApproveThreshold,
		DailySendLimit:       DefaultDailySendLimit,
		ReasonerTimeout:      DefaultReasonerTimeout,
		AgentName:            DefaultAgentName,
		LogLevel:             DefaultLogLevel,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MYCROFT_CONFIG_DIR if set, otherwise ~/.mycroft
func ConfigDir() (string, error) {
	if dir := os.Getenv("MYCROFT_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration. Sources are applied in order, later
// overriding earlier: defaults, the config file, MYCROFT_* environment
// variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// fileConfig mirrors Config with durations as strings for YAML.
type fileConfig struct {
	VaultPath            string   `yaml:"vault_path,omitempty"`
	PollInterval         string   `yaml:"poll_interval,omitempty"`
	AutoApproveThreshold *float64 `yaml:"auto_approve_threshold,omitempty"`
	DailySendLimit       *int     `yaml:"daily_send_limit,omitempty"`
	VIPSenders           []string `yaml:"vip_senders,omitempty"`
	UrgentKeywords       []string `yaml:"urgent_keywords,omitempty"`
	Model                string   `yaml:"model,omitempty"`
	ReasonerTimeout      string   `yaml:"reasoner_timeout,omitempty"`
	AgentName            string   `yaml:"agent_name,omitempty"`
	SyncEnabled          bool     `yaml:"sync_enabled,omitempty"`
	GmailEnabled         bool     `yaml:"gmail_enabled,omitempty"`
	GmailFilter          string   `yaml:"gmail_filter,omitempty"`
	FileWatchEnabled     bool     `yaml:"file_watch_enabled,omitempty"`
	FileWatchDryRun      bool     `yaml:"file_watch_dry_run,omitempty"`
	MetricsAddr          string   `yaml:"metrics_addr,omitempty"`
	LogLevel             string   `yaml:"log_level,omitempty"`
	LogJSON              bool     `yaml:"log_json,omitempty"`
	LogFile              string   `yaml:"log_file,omitempty"`
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg fileConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.VaultPath != "" {
		cfg.VaultPath = expandPath(fileCfg.VaultPath)
	}
	if fileCfg.PollInterval != "" {
		interval, err := time.ParseDuration(fileCfg.PollInterval)
		if err != nil {
			return fmt.Errorf("parsing poll_interval: %w", err)
		}
		cfg.PollInterval = interval
	}
	if fileCfg.AutoApproveThreshold != nil {
		cfg.AutoApproveThreshold = *fileCfg.AutoApproveThreshold
	}
	if fileCfg.DailySendLimit != nil {
		cfg.DailySendLimit = *fileCfg.DailySendLimit
	}
	if fileCfg.VIPSenders != nil {
		cfg.VIPSenders = fileCfg.VIPSenders
	}
	if fileCfg.UrgentKeywords != nil {
		cfg.UrgentKeywords = fileCfg.UrgentKeywords
	}
	if fileCfg.Model != "" {
		cfg.Model = fileCfg.Model
	}
	if fileCfg.ReasonerTimeout != "" {
		timeout, err := time.ParseDuration(fileCfg.ReasonerTimeout)
		if err != nil {
			return fmt.Errorf("parsing reasoner_timeout: %w", err)
		}
		cfg.ReasonerTimeout = timeout
	}
	if fileCfg.AgentName != "" {
		cfg.AgentName = fileCfg.AgentName
	}
	if fileCfg.GmailFilter != "" {
		cfg.GmailFilter = fileCfg.GmailFilter
	}
	if fileCfg.MetricsAddr != "" {
		cfg.MetricsAddr = fileCfg.MetricsAddr
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.LogFile != "" {
		cfg.LogFile = expandPath(fileCfg.LogFile)
	}
	cfg.SyncEnabled = fileCfg.SyncEnabled
	cfg.GmailEnabled = fileCfg.GmailEnabled
	cfg.FileWatchEnabled = fileCfg.FileWatchEnabled
	cfg.FileWatchDryRun = fileCfg.FileWatchDryRun
	cfg.LogJSON = fileCfg.LogJSON

	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("MYCROFT_VAULT_PATH"); v != "" {
		cfg.VaultPath = expandPath(v)
	}
	if v := os.Getenv("MYCROFT_POLL_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = interval
		}
	}
	if v := os.Getenv("MYCROFT_AUTO_APPROVE_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.AutoApproveThreshold = threshold
		}
	}
	if v := os.Getenv("MYCROFT_DAILY_SEND_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.DailySendLimit = limit
		}
	}
	if v := os.Getenv("MYCROFT_VIP_SENDERS"); v != "" {
		cfg.VIPSenders = splitList(v)
	}
	if v := os.Getenv("MYCROFT_URGENT_KEYWORDS"); v != "" {
		cfg.UrgentKeywords = splitList(v)
	}
	if v := os.Getenv("MYCROFT_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MYCROFT_REASONER_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.ReasonerTimeout = timeout
		}
	}
	if v := os.Getenv("MYCROFT_AGENT_NAME"); v != "" {
		cfg.AgentName = v
	}
	if v := os.Getenv("MYCROFT_SYNC_ENABLED"); v == "true" || v == "1" {
		cfg.SyncEnabled = true
	}
	if v := os.Getenv("MYCROFT_GMAIL_ENABLED"); v == "true" || v == "1" {
		cfg.GmailEnabled = true
	}
	if v := os.Getenv("MYCROFT_GMAIL_FILTER"); v != "" {
		cfg.GmailFilter = v
	}
	if v := os.Getenv("MYCROFT_FILE_WATCH_ENABLED"); v == "true" || v == "1" {
		cfg.FileWatchEnabled = true
	}
	if v := os.Getenv("MYCROFT_FILE_WATCH_DRY_RUN"); v == "true" || v == "1" {
		cfg.FileWatchDryRun = true
	}
	if v := os.Getenv("MYCROFT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("MYCROFT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MYCROFT_LOG_JSON"); v == "true" || v == "1" {
		cfg.LogJSON = true
	}
	if v := os.Getenv("MYCROFT_LOG_FILE"); v != "" {
		cfg.LogFile = expandPath(v)
	}
}

// Validate checks that the configuration is valid. Failures wrap
// mcerrors.ErrValidation so callers can distinguish bad settings from IO
// problems.
func (c *Config) Validate() error {
	if c.VaultPath == "" {
		return fmt.Errorf("vault_path is required: %w", mcerrors.ErrValidation)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive: %w", mcerrors.ErrValidation)
	}
	if c.AutoApproveThreshold < 0 || c.AutoApproveThreshold > 1 {
		return fmt.Errorf("auto_approve_threshold must be in [0, 1], got %v: %w", c.AutoApproveThreshold, mcerrors.ErrValidation)
	}
	if c.DailySendLimit < 0 {
		return fmt.Errorf("daily_send_limit must not be negative: %w", mcerrors.ErrValidation)
	}
	if c.ReasonerTimeout <= 0 {
		return fmt.Errorf("reasoner_timeout must be positive: %w", mcerrors.ErrValidation)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q (must be debug, info, warn, or error): %w", c.LogLevel, mcerrors.ErrValidation)
	}
	return nil
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *Config) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	threshold := cfg.AutoApproveThreshold
	limit := cfg.DailySendLimit
	fileCfg := fileConfig{
		VaultPath:            cfg.VaultPath,
		PollInterval:         cfg.PollInterval.String(),
		AutoApproveThreshold: &threshold,
		DailySendLimit:       &limit,
		VIPSenders:           cfg.VIPSenders,
		UrgentKeywords:       cfg.UrgentKeywords,
		Model:                cfg.Model,
		ReasonerTimeout:      cfg.ReasonerTimeout.String(),
		AgentName:            cfg.AgentName,
		SyncEnabled:          cfg.SyncEnabled,
		GmailEnabled:         cfg.GmailEnabled,
		GmailFilter:          cfg.GmailFilter,
		FileWatchEnabled:     cfg.FileWatchEnabled,
		FileWatchDryRun:      cfg.FileWatchDryRun,
		MetricsAddr:          cfg.MetricsAddr,
		LogLevel:             cfg.LogLevel,
		LogJSON:              cfg.LogJSON,
		LogFile:              cfg.LogFile,
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	configPath := filepath.Join(configDir, DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
