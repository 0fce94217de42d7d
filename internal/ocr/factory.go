// factory.go - OCR engine factory

package ocr

import (
	"context"
	"fmt"
	"log"

	"github.com/rezapratama/strukparse/configs"
)

// NewEngine creates an OCR engine based on configuration.
func NewEngine(ctx context.Context) (Engine, error) {
	switch configs.OCR_PROVIDER {
	case "gemini":
		log.Printf("Creating Gemini OCR engine (model: %s)", configs.OCR_MODEL_NAME)
		return NewGeminiEngine(ctx, configs.GEMINI_API_KEY, configs.OCR_MODEL_NAME)

	case "mistral":
		log.Printf("Creating Mistral OCR engine (model: %s)", configs.MISTRAL_MODEL_NAME)
		return NewMistralEngine(configs.MISTRAL_API_KEY, configs.MISTRAL_MODEL_NAME)

	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s (supported: gemini, mistral)", configs.OCR_PROVIDER)
	}
}
