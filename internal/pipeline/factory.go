package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/pkg/config"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/platform"
)

// LightspeedName identifies the RHEL Lightspeed command resolver.
const LightspeedName = "rhel_lightspeed"

// lightspeedRetries is the number of retries after a failed inference call.
const lightspeedRetries = 2

// NewExecutorFromConfig creates the processor chain for this service.
// CombineEmpty always runs first; the Lightspeed resolver follows when
// enabled and needs a requester.
func NewExecutorFromConfig(cfg config.LightspeedConfig, requester platform.Requester, logger *slog.Logger) (*Executor, error) {
	stages := []StageConfig{{Order: 0, Processor: CombineEmpty{}}}

	if cfg.Enabled {
		if requester == nil {
			return nil, fmt.Errorf("stage %s: platform requester is required", LightspeedName)
		}
		stages = append(stages, StageConfig{
			Order: 10,
			Processor: NewCommandResolver(CommandResolverConfig{
				Name:    LightspeedName,
				Command: cfg.Command,
				Param:   cfg.Param,
				BaseURL: cfg.URL,
				Path:    LightspeedInferPath,
				Retries: lightspeedRetries,
				Logger:  logger,
			}, requester),
		})
	}

	return NewExecutor(ExecutorConfig{Stages: stages, Logger: logger}), nil
}
