// gemini.go - Gemini-backed JSON generation client

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rezapratama/strukparse/internal/common"
	"github.com/rezapratama/strukparse/internal/ratelimit"
)

// GeminiGenerator implements Generator on top of the Gemini API with JSON
// response mode and deterministic-leaning sampling.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator creates a generation client. Sampling is pinned low
// (temperature 0.1, top_k 20, top_p 0.2) so the same receipt yields the same
// extraction across runs.
func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.SetTopK(20)
	model.SetTopP(0.2)
	model.SetMaxOutputTokens(1024)
	model.ResponseMIMEType = "application/json"

	return &GeminiGenerator{client: client, model: model}, nil
}

// GenerateJSON runs the prompt and returns the raw response text plus token
// usage. Failures are categorized before being returned.
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, prompt string) (string, *common.TokenUsage, error) {
	ratelimit.WaitForGemini()

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", nil, categorizeError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil, &GenerationError{
			Category: "empty_response",
			Message:  "no candidates returned",
		}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	var usage *common.TokenUsage
	if resp.UsageMetadata != nil {
		usage = &common.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return sb.String(), usage, nil
}

// Close closes the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}
