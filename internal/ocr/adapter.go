// adapter.go - Runs the OCR engine off the accepting goroutine

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rezapratama/strukparse/internal/processor"
)

// NoTextFound is the sentinel for "the image decoded but carried no readable
// text". It is a valid result, not an error.
const NoTextFound = "No text found"

// Adapter bridges preprocessed images to an OCR engine. Recognition is
// CPU/IO-heavy, so concurrent calls are capped by a worker semaphore; one
// slow pass must not stall acceptance of new photos.
type Adapter struct {
	engine  Engine
	workers chan struct{}
	timeout time.Duration
}

// NewAdapter creates an adapter with the given concurrency cap and per-call
// timeout.
func NewAdapter(engine Engine, workers int, timeout time.Duration) *Adapter {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		engine:  engine,
		workers: make(chan struct{}, workers),
		timeout: timeout,
	}
}

// Recognize runs OCR over a preprocessed image and returns the newline-joined
// text. A nil image (decode failure upstream) or an engine returning zero
// spans yields the NoTextFound sentinel, never an error. Engine failures are
// returned for the caller to map to its failure taxonomy.
func (a *Adapter) Recognize(ctx context.Context, img *image.Gray) (string, error) {
	if img == nil {
		return NoTextFound, nil
	}

	select {
	case a.workers <- struct{}{}:
		defer func() { <-a.workers }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	data, err := processor.EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("encoding preprocessed image: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	spans, err := a.engine.Recognize(ctx, data, "image/png")
	if err != nil {
		return "", fmt.Errorf("%s ocr: %w", a.engine.Name(), err)
	}
	if len(spans) == 0 {
		return NoTextFound, nil
	}

	lines := make([]string, 0, len(spans))
	for _, span := range spans {
		lines = append(lines, span.Text)
	}
	return strings.Join(lines, "\n"), nil
}
