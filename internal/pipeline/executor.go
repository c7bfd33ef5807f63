package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
)

// Executor runs response processors in order.
// The processor list is fixed once the executor is built.
type Executor struct {
	processors []ports.ResponseProcessor
	logger     *slog.Logger
}

// ExecutorConfig configures an executor from stage configurations.
type ExecutorConfig struct {
	Stages []StageConfig
	Logger *slog.Logger
}

// StageConfig is the configuration for a single stage.
type StageConfig struct {
	Order     int
	Processor ports.ResponseProcessor
}

// NewExecutor creates an executor from configuration.
func NewExecutor(cfg ExecutorConfig) *Executor {
	stages := make([]StageConfig, len(cfg.Stages))
	copy(stages, cfg.Stages)

	// Sort by order, keeping registration order for ties
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Order < stages[j].Order
	})

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Executor{
		processors: make([]ports.ResponseProcessor, len(stages)),
		logger:     logger,
	}
	for i, s := range stages {
		e.processors[i] = s.Processor
	}
	return e
}

// Run feeds entries through every processor in order and returns the
// final entries.
func (e *Executor) Run(ctx context.Context, entries []domain.Entry, query domain.Query) ([]domain.Entry, error) {
	current := entries
	for _, p := range e.processors {
		out, err := p.Process(ctx, current, query)
		if err != nil {
			return nil, &StageError{Stage: p.Name(), Err: err}
		}
		if len(out) != len(current) {
			e.logger.DebugContext(ctx, "processor changed entry count",
				slog.String("processor", p.Name()),
				slog.Int("before", len(current)),
				slog.Int("after", len(out)))
		}
		current = out
	}
	return current, nil
}

// Names returns the processor names in execution order.
func (e *Executor) Names() []string {
	names := make([]string, len(e.processors))
	for i, p := range e.processors {
		names[i] = p.Name()
	}
	return names
}

// StageError is returned when a processor fails.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s error: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStageError returns true if the error came from a processor.
func IsStageError(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}

// Ensure Executor implements the interface.
var _ ports.ProcessorChain = (*Executor)(nil)
