// Package pipeline runs purpose-specific analysis pipelines over assembled
// patient contexts: context aggregation, prompt compilation, model
// execution, and output validation, with per-phase timing.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/claritybh/clarity/internal/domain/aicontext"
)

// ModelClient invokes a language model. Real invocation lives outside this
// service; implementations are injected.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (*ModelResponse, error)
}

// ModelResponse is a single model completion.
type ModelResponse struct {
	Output     string
	ModelID    string
	TokensUsed int
	CacheHit   bool
}

// PhaseTimings records how long each pipeline phase took.
type PhaseTimings struct {
	ContextAggregationMs int64 `json:"context_aggregation_ms"`
	PromptCompilationMs  int64 `json:"prompt_compilation_ms"`
	ModelExecutionMs     int64 `json:"model_execution_ms"`
	ValidationMs         int64 `json:"validation_ms"`
}

// AnalysisResult is the outcome of one pipeline execution.
type AnalysisResult struct {
	ExecutionID uuid.UUID         `json:"execution_id"`
	Purpose     aicontext.Purpose `json:"purpose"`
	Success     bool              `json:"success"`
	Output      json.RawMessage   `json:"output,omitempty"`
	Error       string            `json:"error,omitempty"`
	ModelID     string            `json:"model_id,omitempty"`
	TokensUsed  int               `json:"tokens_used"`
	CacheHit    bool              `json:"cache_hit"`
	Phases      PhaseTimings      `json:"phases"`
}

// Executor wires the context assembler to a model client.
type Executor struct {
	assembler *aicontext.Service
	client    ModelClient
	logger    zerolog.Logger
}

func NewExecutor(assembler *aicontext.Service, client ModelClient, logger zerolog.Logger) *Executor {
	return &Executor{assembler: assembler, client: client, logger: logger}
}

// Run executes the pipeline for one patient and purpose. The sessionTranscript
// argument carries the transcript of the session under analysis (it may be
// empty) and vars are substituted into the prompt alongside the context.
// A nil result with a nil error means the patient was not found.
func (e *Executor) Run(ctx context.Context, purpose aicontext.Purpose, patientID uuid.UUID,
	sessionTranscript string, vars map[string]string) (*AnalysisResult, error) {

	executionID := uuid.New()
	logger := e.logger.With().
		Str("execution_id", executionID.String()).
		Str("purpose", string(purpose)).
		Logger()

	// Phase 1: context aggregation.
	pc, err := e.assembler.AssemblePatientContext(ctx, patientID, aicontext.Options{Purpose: purpose})
	if err != nil {
		return nil, fmt.Errorf("aggregate context: %w", err)
	}
	if pc == nil {
		return nil, nil
	}

	result := &AnalysisResult{
		ExecutionID: executionID,
		Purpose:     pc.Metadata.Purpose,
	}
	result.Phases.ContextAggregationMs = pc.Metadata.QueryDurationMs

	// Phase 2: prompt compilation.
	compileStart := time.Now()
	prompt, err := compilePrompt(pc, sessionTranscript, vars)
	result.Phases.PromptCompilationMs = time.Since(compileStart).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("compile prompt: %w", err)
	}

	// Phase 3: model execution.
	execStart := time.Now()
	resp, err := e.client.Complete(ctx, prompt)
	result.Phases.ModelExecutionMs = time.Since(execStart).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		logger.Error().Err(err).Msg("model execution failed")
		return result, nil
	}
	result.ModelID = resp.ModelID
	result.TokensUsed = resp.TokensUsed
	result.CacheHit = resp.CacheHit

	// Phase 4: validation. Model output must be a JSON object.
	validateStart := time.Now()
	validated, err := validateOutput(resp.Output)
	result.Phases.ValidationMs = time.Since(validateStart).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		logger.Error().Err(err).Msg("output validation failed")
		return result, nil
	}

	result.Success = true
	result.Output = validated

	logger.Info().
		Int64("context_aggregation_ms", result.Phases.ContextAggregationMs).
		Int64("prompt_compilation_ms", result.Phases.PromptCompilationMs).
		Int64("model_execution_ms", result.Phases.ModelExecutionMs).
		Int64("validation_ms", result.Phases.ValidationMs).
		Int("tokens_used", result.TokensUsed).
		Str("model_id", result.ModelID).
		Msg("pipeline complete")

	return result, nil
}

// compilePrompt renders the assembled context, the session transcript, and
// caller variables into a single prompt document.
func compilePrompt(pc *aicontext.PatientContext, sessionTranscript string, vars map[string]string) (string, error) {
	contextJSON, err := json.Marshal(pc)
	if err != nil {
		return "", fmt.Errorf("serialize context: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Purpose\n%s\n\n", pc.Metadata.Purpose)
	fmt.Fprintf(&b, "## Patient Context\n%s\n\n", contextJSON)
	if sessionTranscript != "" {
		fmt.Fprintf(&b, "## Session Transcript\n%s\n\n", sessionTranscript)
	}

	// Deterministic variable order keeps compiled prompts stable.
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "## %s\n%s\n\n", k, vars[k])
	}
	return b.String(), nil
}

func validateOutput(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, fmt.Errorf("model output is not a JSON object: %w", err)
	}
	return json.RawMessage(trimmed), nil
}
