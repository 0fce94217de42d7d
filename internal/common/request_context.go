// request_context.go - Request tracking and logging

package common

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// RequestContext tracks one receipt-processing request: step timings, token
// consumption, and request-scoped logging.
type RequestContext struct {
	RequestID        string
	Source           string // "api", "telegram"
	StartTime        time.Time
	Steps            []StepLog
	TotalTokens      TokenUsage
	currentStep      string
	currentStepStart time.Time
}

// StepLog records a single pipeline stage.
type StepLog struct {
	Name      string      `json:"name"`
	StartTime time.Time   `json:"start_time"`
	Duration  int64       `json:"duration_ms"`
	Status    string      `json:"status"` // "success", "failed", "skipped"
	Tokens    *TokenUsage `json:"tokens,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// TokenUsage tracks generation API token consumption.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates another usage sample.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.TotalTokens += other.TotalTokens
}

// NewRequestContext creates a new request tracking context.
func NewRequestContext(source string) *RequestContext {
	reqID := uuid.New().String()

	log.Printf("[%s] ▶ new receipt request | source: %s", reqID, source)

	return &RequestContext{
		RequestID: reqID,
		Source:    source,
		StartTime: time.Now(),
	}
}

// StartStep begins tracking a pipeline stage.
func (rc *RequestContext) StartStep(stepName string) {
	rc.currentStep = stepName
	rc.currentStepStart = time.Now()
	log.Printf("[%s] ┌── %s", rc.RequestID, stepName)
}

// EndStep completes the current stage and records its timing.
func (rc *RequestContext) EndStep(status string, tokens *TokenUsage, err error) {
	duration := time.Since(rc.currentStepStart).Milliseconds()

	stepLog := StepLog{
		Name:      rc.currentStep,
		StartTime: rc.currentStepStart,
		Duration:  duration,
		Status:    status,
		Tokens:    tokens,
	}

	if err != nil {
		stepLog.Error = err.Error()
		log.Printf("[%s] └── ✗ %s (%.2fs): %v", rc.RequestID, rc.currentStep, float64(duration)/1000, err)
	} else {
		msg := fmt.Sprintf("[%s] └── ✓ %s (%.2fs)", rc.RequestID, rc.currentStep, float64(duration)/1000)
		if tokens != nil {
			rc.TotalTokens.Add(*tokens)
			msg += fmt.Sprintf(" | tokens: %d in + %d out = %d",
				tokens.InputTokens, tokens.OutputTokens, tokens.TotalTokens)
		}
		log.Print(msg)
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.currentStep = ""
}

// Summary returns the final per-request breakdown.
func (rc *RequestContext) Summary() map[string]interface{} {
	totalDuration := time.Since(rc.StartTime).Milliseconds()

	stepBreakdown := make(map[string]int64, len(rc.Steps))
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] = step.Duration
	}

	log.Printf("[%s] ═ done in %.2fs | steps: %d | tokens: %d",
		rc.RequestID, float64(totalDuration)/1000, len(rc.Steps), rc.TotalTokens.TotalTokens)

	return map[string]interface{}{
		"request_id":        rc.RequestID,
		"total_duration_ms": totalDuration,
		"step_breakdown":    stepBreakdown,
		"token_usage":       rc.TotalTokens,
	}
}

// LogInfo logs an info-level message with the request ID prefix.
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	log.Printf("[%s] ℹ %s", rc.RequestID, fmt.Sprintf(format, args...))
}

// LogWarning logs a warning-level message with the request ID prefix.
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	log.Printf("[%s] ⚠ %s", rc.RequestID, fmt.Sprintf(format, args...))
}

// LogError logs an error-level message with the request ID prefix.
func (rc *RequestContext) LogError(format string, args ...interface{}) {
	log.Printf("[%s] ✗ %s", rc.RequestID, fmt.Sprintf(format, args...))
}
