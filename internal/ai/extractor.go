// extractor.go - Structured extraction from raw OCR text

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezapratama/strukparse/internal/common"
	"github.com/rezapratama/strukparse/internal/receipt"
)

// UnavailableError wraps a generation failure. The receipt ID is already
// assigned so failed attempts stay traceable in logs.
type UnavailableError struct {
	ReceiptID string
	Err       error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("extraction unavailable for receipt %s: %v", e.ReceiptID, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ParseError means the model answered but the answer was not usable JSON.
// Raw carries the offending response for diagnosis.
type ParseError struct {
	ReceiptID string
	Raw       string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable extraction for receipt %s: %v", e.ReceiptID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extractor turns raw OCR text into a structured receipt extraction through a
// Generator.
type Extractor struct {
	gen     Generator
	mode    Mode
	timeout time.Duration
}

// NewExtractor creates an Extractor. A non-positive timeout disables the
// per-call deadline.
func NewExtractor(gen Generator, mode Mode, timeout time.Duration) *Extractor {
	if mode != ModePlain {
		mode = ModeScored
	}
	return &Extractor{gen: gen, mode: mode, timeout: timeout}
}

// Mode reports the configured field shape.
func (e *Extractor) Mode() Mode {
	return e.mode
}

// Extract prompts the generator with the OCR text and parses the response
// into an Extraction. The receipt ID is assigned up front, before the model
// call, so it is stable across success and failure. Token usage is returned
// even when the response fails to parse.
func (e *Extractor) Extract(ctx context.Context, rawText, categoryHints string) (*receipt.Extraction, *common.TokenUsage, error) {
	receiptID := uuid.New().String()

	prompt := BuildExtractionPrompt(rawText, categoryHints, e.mode)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, usage, err := e.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, usage, &UnavailableError{ReceiptID: receiptID, Err: err}
	}

	payload := extractJSONBlock(raw)
	if payload == "" {
		return nil, usage, &ParseError{
			ReceiptID: receiptID,
			Raw:       raw,
			Err:       fmt.Errorf("no JSON object in response"),
		}
	}

	var ex receipt.Extraction
	if err := json.Unmarshal([]byte(payload), &ex); err != nil {
		return nil, usage, &ParseError{ReceiptID: receiptID, Raw: raw, Err: err}
	}

	ex.ReceiptID = receiptID
	return &ex, usage, nil
}

// extractJSONBlock pulls the JSON object out of a model response. Models
// occasionally wrap output in markdown fences or add prose despite
// instructions, so take everything from the first '{' to the last '}'.
func extractJSONBlock(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
