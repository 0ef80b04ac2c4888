package config

import (
	"github.com/markhive/markhive/pkg/convert"
	"github.com/markhive/markhive/pkg/ingest"
)

// ConvertOptions projects the configuration into the converter registry's
// bootstrap options.
func (c *Config) ConvertOptions() convert.Options {
	return convert.Options{
		NativeMarkdownTypes:  c.FileTypes.NativeMarkdown,
		PlainTextTypes:       c.FileTypes.PlainText,
		CodeTypes:            c.FileTypes.Code,
		StructuredTypes:      c.FileTypes.Structured,
		XMindTypes:           c.FileTypes.XMind,
		ImageTypes:           c.FileTypes.Image,
		VideoTypes:           c.FileTypes.Video,
		HTMLTypes:            c.FileTypes.HTML,
		DiagramTypes:         c.FileTypes.Diagram,
		ImageProviderPrimary: c.Image.ProviderPrimary,
		ImageProviderChain:   c.Image.ProviderChain,
		TesseractLang:        c.Image.TesseractLang,
		EnableFrontMatter:    c.Image.FrontMatterEnabled(),
		LLMTimeout:           c.Image.LLMTimeoutMs,
		LLMBaseURL:           c.Image.LLMBaseURL,
		LLMAPIKeyEnv:         c.Image.LLMAPIKeyEnv,
		LLMModel:             c.Image.LLMModel,
		StructuredCommand:    c.Converters.StructuredCommand,
		FFProbePath:          c.Converters.FFProbePath,
	}
}

// IngestOptions projects the configuration into the coordinator's config.
func (c *Config) IngestOptions() ingest.Config {
	return ingest.Config{
		DownloadsRoot:      c.Ingest.DownloadsRoot,
		WorkerPoolSize:     int64(c.Ingest.WorkerPoolSize),
		ExcludedDirs:       c.Ingest.ExcludedDirs,
		ExcludedExtensions: c.Ingest.ExcludedFileExtensions,
	}
}
