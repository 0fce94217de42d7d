// engine.go - OCR engine interface for supporting multiple providers

package ocr

import "context"

// Span is a single recognized run of text.
type Span struct {
	Text string `json:"text"`
}

// Engine defines the interface that all OCR engines must implement.
// This allows us to support multiple providers (Gemini, Mistral, ...) with
// the same call shape: given an image, return the recognized text spans.
type Engine interface {
	// Recognize extracts text spans from an encoded image. A receipt with no
	// readable text yields zero spans and a nil error.
	Recognize(ctx context.Context, imageData []byte, mimeType string) ([]Span, error)

	// Name returns the engine name (e.g. "gemini", "mistral").
	Name() string
}
