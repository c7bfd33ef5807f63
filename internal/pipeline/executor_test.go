package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
)

// mockProcessor is a test helper that records calls and returns configured responses.
type mockProcessor struct {
	name   string
	output []domain.Entry
	err    error
	calls  [][]domain.Entry
}

func (p *mockProcessor) Name() string { return p.name }

func (p *mockProcessor) Process(ctx context.Context, entries []domain.Entry, query domain.Query) ([]domain.Entry, error) {
	p.calls = append(p.calls, entries)
	if p.err != nil {
		return nil, p.err
	}
	if p.output != nil {
		return p.output, nil
	}
	return entries, nil
}

func TestExecutor_Run_Empty(t *testing.T) {
	e := NewExecutor(ExecutorConfig{})
	entries := []domain.Entry{&domain.TextEntry{Text: "hi"}}

	result, err := e.Run(context.Background(), entries, domain.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0] != entries[0] {
		t.Error("expected same entries when no processors")
	}
}

func TestExecutor_Run_FeedsOutputForward(t *testing.T) {
	replaced := []domain.Entry{&domain.TextEntry{Text: "rewritten"}}
	first := &mockProcessor{name: "first", output: replaced}
	second := &mockProcessor{name: "second"}

	e := NewExecutor(ExecutorConfig{
		Stages: []StageConfig{
			{Order: 1, Processor: first},
			{Order: 2, Processor: second},
		},
	})

	result, err := e.Run(context.Background(), []domain.Entry{&domain.TextEntry{Text: "original"}}, domain.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.calls) != 1 || second.calls[0][0] != replaced[0] {
		t.Error("second processor should receive the first processor's output")
	}
	if result[0].(*domain.TextEntry).Text != "rewritten" {
		t.Errorf("unexpected result: %+v", result[0])
	}
}

func TestExecutor_Run_OrderedExecution(t *testing.T) {
	var callOrder []string

	e := NewExecutor(ExecutorConfig{
		Stages: []StageConfig{
			{Order: 2, Processor: &orderTrackingProcessor{mockProcessor: &mockProcessor{name: "third"}, callOrder: &callOrder}},
			{Order: 1, Processor: &orderTrackingProcessor{mockProcessor: &mockProcessor{name: "first"}, callOrder: &callOrder}},
			{Order: 1, Processor: &orderTrackingProcessor{mockProcessor: &mockProcessor{name: "second"}, callOrder: &callOrder}},
		},
	})

	if _, err := e.Run(context.Background(), nil, domain.Query{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(callOrder) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(callOrder))
	}
	if callOrder[0] != "first" || callOrder[1] != "second" || callOrder[2] != "third" {
		t.Errorf("unexpected order: %v", callOrder)
	}

	names := e.Names()
	if len(names) != 3 || names[0] != "first" || names[2] != "third" {
		t.Errorf("Names() = %v", names)
	}
}

type orderTrackingProcessor struct {
	*mockProcessor
	callOrder *[]string
}

func (p *orderTrackingProcessor) Process(ctx context.Context, entries []domain.Entry, query domain.Query) ([]domain.Entry, error) {
	*p.callOrder = append(*p.callOrder, p.name)
	return p.mockProcessor.Process(ctx, entries, query)
}

func TestExecutor_Run_ErrorStopsChain(t *testing.T) {
	failing := &mockProcessor{name: "failing", err: domain.ErrProcessorFailure("upstream down")}
	after := &mockProcessor{name: "after"}

	e := NewExecutor(ExecutorConfig{
		Stages: []StageConfig{
			{Order: 1, Processor: failing},
			{Order: 2, Processor: after},
		},
	})

	_, err := e.Run(context.Background(), nil, domain.Query{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsStageError(err) {
		t.Errorf("expected StageError, got %T", err)
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) && stageErr.Stage != "failing" {
		t.Errorf("expected stage name 'failing', got %q", stageErr.Stage)
	}

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeProcessorFailure {
		t.Errorf("expected wrapped processor_failure, got %v", err)
	}
	if len(after.calls) != 0 {
		t.Error("processors after a failure must not run")
	}
}
