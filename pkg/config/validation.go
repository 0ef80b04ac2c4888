package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against its struct validate tags plus
// the cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			msgs := make([]string, 0, len(errs))
			for _, fe := range errs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// A remote provider anywhere in the chain needs the endpoint.
	if needsRemote(cfg.Image) && cfg.Image.LLMBaseURL == "" {
		return fmt.Errorf("image: provider chain references a remote provider but llm_base_url is not set")
	}

	return nil
}

func needsRemote(cfg ImageConfig) bool {
	if cfg.ProviderPrimary != "" && cfg.ProviderPrimary != "local" {
		return true
	}
	for _, name := range cfg.ProviderChain {
		if name != "" && name != "local" {
			return true
		}
	}
	return false
}
