// generator.go - Text-generation capability interface

package ai

import (
	"context"

	"github.com/rezapratama/strukparse/internal/common"
)

// Generator is the swappable text-generation capability: given a prompt it
// returns text constrained to syntactically valid JSON. Implementations are
// accessed over the network and must honor context deadlines.
type Generator interface {
	// GenerateJSON runs the prompt with deterministic-leaning sampling and a
	// JSON response format. Token usage is reported when the backend
	// provides it.
	GenerateJSON(ctx context.Context, prompt string) (string, *common.TokenUsage, error)

	// Close releases client resources.
	Close() error
}
