package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyShutdownTimeoutDefaults(cfg)
	cfg.Database.ApplyDefaults()
	applyMetricsDefaults(&cfg.Metrics)
	cfg.API.ApplyDefaults()
	applyIngestDefaults(&cfg.Ingest)
	applyFileTypeDefaults(&cfg.FileTypes)
	applyImageDefaults(&cfg.Image)
	applyConverterDefaults(&cfg.Converters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyIngestDefaults sets ingestion pipeline defaults.
func applyIngestDefaults(cfg *IngestConfig) {
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = 4
	}
	if cfg.SessionHistoryCapacity == 0 {
		cfg.SessionHistoryCapacity = 1000
	}
	if cfg.SessionGraceSeconds == 0 {
		cfg.SessionGraceSeconds = 60
	}
	if cfg.ExcludedDirs == nil {
		cfg.ExcludedDirs = []string{".git", ".svn", "node_modules", "__pycache__", ".venv", ".idea", "*.assets"}
	}
	if cfg.ExcludedFileExtensions == nil {
		cfg.ExcludedFileExtensions = []string{"tmp", "swp", "lock", "ds_store"}
	}
}

// applyFileTypeDefaults fills in the converter category lists.
func applyFileTypeDefaults(cfg *FileTypesConfig) {
	if cfg.NativeMarkdown == nil {
		cfg.NativeMarkdown = []string{"md", "markdown"}
	}
	if cfg.PlainText == nil {
		cfg.PlainText = []string{"txt", "log", "csv", "json", "ini", "conf", "cfg"}
	}
	if cfg.Code == nil {
		cfg.Code = []string{
			"py", "go", "js", "ts", "java", "c", "cpp", "h", "rs",
			"rb", "sh", "sql", "yaml", "yml", "toml", "xml",
		}
	}
	if cfg.Structured == nil {
		cfg.Structured = []string{"pdf", "docx", "doc", "xlsx", "xls", "pptx", "ppt", "epub"}
	}
	if cfg.XMind == nil {
		cfg.XMind = []string{"xmind"}
	}
	if cfg.Image == nil {
		cfg.Image = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp", "tiff"}
	}
	if cfg.Video == nil {
		cfg.Video = []string{"mp4", "mov", "avi", "mkv", "webm"}
	}
	if cfg.HTML == nil {
		cfg.HTML = []string{"html", "htm"}
	}
	if cfg.Diagram == nil {
		cfg.Diagram = []string{"drawio"}
	}
}

// applyImageDefaults sets image provider chain defaults.
func applyImageDefaults(cfg *ImageConfig) {
	if cfg.ProviderPrimary == "" {
		cfg.ProviderPrimary = "local"
	}
	if cfg.ProviderChain == nil {
		cfg.ProviderChain = []string{"local"}
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.LLMAPIKeyEnv == "" {
		cfg.LLMAPIKeyEnv = "MARKHIVE_LLM_API_KEY"
	}
	if cfg.LLMTimeoutMs == 0 {
		cfg.LLMTimeoutMs = 60000
	}
}

// applyConverterDefaults sets external converter defaults.
func applyConverterDefaults(cfg *ConvertersConfig) {
	if cfg.StructuredCommand == "" {
		cfg.StructuredCommand = "markitdown {input}"
	}
	if cfg.FFProbePath == "" {
		cfg.FFProbePath = "ffprobe"
	}
}

// GetDefaultConfig returns a fully populated default configuration.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
