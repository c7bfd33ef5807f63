package runtime

import (
	"fmt"
	"log/slog"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pkg/config"
)

// Option is a functional option for configuring a Service.
type Option func(*Service) error

// WithConfigFile loads configuration from path, with environment overrides.
func WithConfigFile(path string) Option {
	return func(s *Service) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s.config = cfg
		return nil
	}
}

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		s.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithSessionStore sets the session store instead of opening session.storage.
// The service closes it on Shutdown.
func WithSessionStore(store ports.SessionStore) Option {
	return func(s *Service) error {
		s.sessions = store
		return nil
	}
}

// WithAssistant sets the dialogue backend instead of assistant.type.
func WithAssistant(assistant ports.Assistant) Option {
	return func(s *Service) error {
		s.assistant = assistant
		return nil
	}
}

// WithProcessorChain replaces the configured response processors.
func WithProcessorChain(chain ports.ProcessorChain) Option {
	return func(s *Service) error {
		s.chain = chain
		return nil
	}
}
