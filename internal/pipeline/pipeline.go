// pipeline.go - End-to-end receipt processing orchestration

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rezapratama/strukparse/internal/ai"
	"github.com/rezapratama/strukparse/internal/category"
	"github.com/rezapratama/strukparse/internal/common"
	"github.com/rezapratama/strukparse/internal/ocr"
	"github.com/rezapratama/strukparse/internal/receipt"
)

// FailureKind tags a terminal pipeline failure by the stage that caused it.
type FailureKind string

const (
	// FailureOCR covers OCR engine errors and plausibility-gate rejections.
	FailureOCR FailureKind = "OCR_FAILED"
	// FailureExtraction covers generation API failures.
	FailureExtraction FailureKind = "EXTRACTION_FAILED"
	// FailureParse covers responses that arrived but were not usable JSON.
	FailureParse FailureKind = "PARSE_FAILED"
)

// Error is a terminal pipeline failure. ReceiptID is set only for failures
// past the point where an ID was assigned.
type Error struct {
	Kind      FailureKind
	Reason    string
	ReceiptID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pipeline wires the stages together: preprocess, OCR, plausibility gate,
// category hinting, extraction, status resolution, record assembly. Stages
// run sequentially; each consumes only the previous stage's output.
type Pipeline struct {
	pre        Preprocessor
	adapter    *ocr.Adapter
	extractor  *ai.Extractor
	thresholds receipt.Thresholds
}

// Preprocessor is the image-preparation stage contract. A nil result means
// the bytes did not decode as an image; downstream treats that as no text.
type Preprocessor interface {
	Preprocess(data []byte) *image.Gray
}

// New creates a pipeline from its stage collaborators.
func New(pre Preprocessor, adapter *ocr.Adapter, extractor *ai.Extractor, thresholds receipt.Thresholds) *Pipeline {
	return &Pipeline{
		pre:        pre,
		adapter:    adapter,
		extractor:  extractor,
		thresholds: thresholds,
	}
}

// Process runs one receipt photo through the full pipeline and returns the
// terminal record. Every failure is mapped to a tagged *Error.
func (p *Pipeline) Process(ctx context.Context, imageData []byte, reqCtx *common.RequestContext) (*receipt.Record, error) {
	reqCtx.StartStep("preprocess image")
	img := p.pre.Preprocess(imageData)
	reqCtx.EndStep("success", nil, nil)
	if img == nil {
		reqCtx.LogWarning("image did not decode, treating as no text")
	}

	reqCtx.StartStep("ocr")
	rawText, err := p.adapter.Recognize(ctx, img)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, &Error{Kind: FailureOCR, Reason: "text recognition failed", Err: err}
	}
	reqCtx.EndStep("success", nil, nil)

	if ok, reason := ocr.PlausibleReceipt(rawText); !ok {
		reqCtx.LogWarning("plausibility gate rejected text: %s", reason)
		return nil, &Error{Kind: FailureOCR, Reason: reason}
	}

	hints := category.HintExamples(rawText)

	reqCtx.StartStep("extract structured data")
	ex, usage, err := p.extractor.Extract(ctx, rawText, hints)
	if err != nil {
		reqCtx.EndStep("failed", usage, err)
		return nil, mapExtractionError(err)
	}
	reqCtx.EndStep("success", usage, nil)

	res := receipt.ResolveStatus(ex, p.thresholds)
	record := receipt.Assemble(ex, res)

	reqCtx.LogInfo("receipt %s resolved as %s (%d flagged fields)",
		record.ReceiptID, record.Status, len(record.LowConfidenceFields))

	return record, nil
}

// mapExtractionError translates extractor errors into the failure taxonomy.
func mapExtractionError(err error) *Error {
	var parseErr *ai.ParseError
	if errors.As(err, &parseErr) {
		return &Error{
			Kind:      FailureParse,
			Reason:    "model response was not valid JSON",
			ReceiptID: parseErr.ReceiptID,
			Err:       err,
		}
	}

	var unavailErr *ai.UnavailableError
	if errors.As(err, &unavailErr) {
		return &Error{
			Kind:      FailureExtraction,
			Reason:    "generation backend unavailable",
			ReceiptID: unavailErr.ReceiptID,
			Err:       err,
		}
	}

	return &Error{Kind: FailureExtraction, Reason: "extraction failed", Err: err}
}
