package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/markhive/markhive/pkg/api"
	"github.com/markhive/markhive/pkg/store"
)

// Config represents the Markhive configuration.
//
// This structure captures the static configuration of the indexing server:
//   - Logging configuration
//   - Server settings (shutdown timeout, metrics, API)
//   - Database connection (SQLite or PostgreSQL)
//   - Ingestion behavior (worker pool, exclusions, session retention)
//   - File type category lists feeding the converter registry
//   - Image provider chain and external converter commands
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (MARKHIVE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures document and ingest state persistence.
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains REST API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Ingest controls the ingestion pipeline
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`

	// FileTypes maps extensions to converter categories
	FileTypes FileTypesConfig `mapstructure:"file_types" yaml:"file_types"`

	// Image configures the image-to-markdown provider chain
	Image ImageConfig `mapstructure:"image" yaml:"image"`

	// Converters configures external conversion tooling
	Converters ConvertersConfig `mapstructure:"converters" yaml:"converters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// IngestConfig controls the ingestion pipeline.
type IngestConfig struct {
	// DownloadsRoot marks the scraper drop directory; files under its
	// immediate child folders inherit a per-folder source label.
	DownloadsRoot string `mapstructure:"downloads_root" yaml:"downloads_root,omitempty"`

	// WorkerPoolSize bounds concurrent converter calls across sessions.
	// Default: 4
	WorkerPoolSize int `mapstructure:"worker_pool_size" validate:"omitempty,min=1,max=64" yaml:"worker_pool_size"`

	// SessionHistoryCapacity bounds the per-session event replay ring.
	// Default: 1000
	SessionHistoryCapacity int `mapstructure:"session_history_capacity" validate:"omitempty,min=1" yaml:"session_history_capacity"`

	// SessionGraceSeconds is how long ended sessions stay queryable.
	// Default: 60
	SessionGraceSeconds int `mapstructure:"session_grace_seconds" validate:"omitempty,min=1" yaml:"session_grace_seconds"`

	// ExcludedDirs are glob patterns pruned during the scan.
	ExcludedDirs []string `mapstructure:"excluded_dirs" yaml:"excluded_dirs"`

	// ExcludedFileExtensions are filtered out during the scan.
	ExcludedFileExtensions []string `mapstructure:"excluded_file_extensions" yaml:"excluded_file_extensions"`
}

// FileTypesConfig lists the extensions handled by each converter
// category. Extensions are lowercase without the leading dot.
type FileTypesConfig struct {
	NativeMarkdown []string `mapstructure:"native_markdown_types" yaml:"native_markdown_types"`
	PlainText      []string `mapstructure:"plain_text_types" yaml:"plain_text_types"`
	Code           []string `mapstructure:"code_types" yaml:"code_types"`
	Structured     []string `mapstructure:"structured_types" yaml:"structured_types"`
	XMind          []string `mapstructure:"xmind_types" yaml:"xmind_types"`
	Image          []string `mapstructure:"image_types" yaml:"image_types"`
	Video          []string `mapstructure:"video_types" yaml:"video_types"`
	HTML           []string `mapstructure:"html_types" yaml:"html_types"`
	Diagram        []string `mapstructure:"diagram_types" yaml:"diagram_types"`
}

// ImageConfig configures the image-to-markdown provider chain.
type ImageConfig struct {
	// ProviderPrimary is the first provider tried for each image.
	// "local" is the built-in OCR provider; any other name is a remote
	// vision model reached through the OpenAI-compatible endpoint below.
	// Default: "local"
	ProviderPrimary string `mapstructure:"provider_primary" yaml:"provider_primary"`

	// ProviderChain lists the ordered fallbacks after the primary.
	ProviderChain []string `mapstructure:"provider_chain" yaml:"provider_chain"`

	// TesseractLang is the OCR language set passed to tesseract.
	// Default: "eng"
	TesseractLang string `mapstructure:"tesseract_lang" yaml:"tesseract_lang"`

	// EnableFrontMatter controls the YAML metadata block (hash,
	// dimensions, camera tags) prepended to image documents.
	// Default: true
	// Use a pointer to distinguish "not set" from "explicitly false"
	EnableFrontMatter *bool `mapstructure:"enable_front_matter" yaml:"enable_front_matter"`

	// LLMBaseURL is the OpenAI-compatible endpoint for remote providers.
	LLMBaseURL string `mapstructure:"llm_base_url" yaml:"llm_base_url,omitempty"`

	// LLMAPIKeyEnv names the environment variable holding the API key.
	// Default: "MARKHIVE_LLM_API_KEY"
	LLMAPIKeyEnv string `mapstructure:"llm_api_key_env" yaml:"llm_api_key_env"`

	// LLMModel overrides the model name sent to the endpoint; empty
	// means the provider's chain name is used.
	LLMModel string `mapstructure:"llm_model" yaml:"llm_model,omitempty"`

	// LLMTimeoutMs bounds each remote provider call.
	// Default: 60000
	LLMTimeoutMs int `mapstructure:"llm_timeout_ms" validate:"omitempty,min=1" yaml:"llm_timeout_ms"`
}

// FrontMatterEnabled returns whether image front matter is enabled.
// Defaults to true if not explicitly set.
func (c *ImageConfig) FrontMatterEnabled() bool {
	if c.EnableFrontMatter == nil {
		return true
	}
	return *c.EnableFrontMatter
}

// ConvertersConfig configures external conversion tooling.
type ConvertersConfig struct {
	// StructuredCommand is the external document-to-markdown converter
	// for office and rich-document formats. {input} is replaced with
	// the file path; stdout is taken as markdown.
	// Default: "markitdown {input}"
	StructuredCommand string `mapstructure:"structured_command" yaml:"structured_command"`

	// FFProbePath is the ffprobe binary used for video metadata.
	// Default: "ffprobe" (resolved on PATH)
	FFProbePath string `mapstructure:"ffprobe_path" yaml:"ffprobe_path"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (MARKHIVE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  markhive init\n\n"+
				"Or specify a custom config file:\n"+
				"  markhive <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  markhive init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use MARKHIVE_ prefix and underscores
	// Example: MARKHIVE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("MARKHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/markhive/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "markhive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "markhive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
