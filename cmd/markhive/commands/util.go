package commands

import (
	"fmt"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// fileTypeMap flattens the configured category lists into the shape served
// by the config echo endpoint.
func fileTypeMap(cfg *config.Config) map[string][]string {
	return map[string][]string{
		"native_markdown_types": cfg.FileTypes.NativeMarkdown,
		"plain_text_types":      cfg.FileTypes.PlainText,
		"code_types":            cfg.FileTypes.Code,
		"structured_types":      cfg.FileTypes.Structured,
		"xmind_types":           cfg.FileTypes.XMind,
		"image_types":           cfg.FileTypes.Image,
		"video_types":           cfg.FileTypes.Video,
		"html_types":            cfg.FileTypes.HTML,
		"diagram_types":         cfg.FileTypes.Diagram,
	}
}
