// gemini.go - Gemini vision OCR engine

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rezapratama/strukparse/internal/ratelimit"
)

// transcribePrompt asks for a faithful line-by-line transcription. The engine
// must not interpret the receipt; structure extraction happens later.
const transcribePrompt = `Transcribe ALL visible text from this receipt image.
Rules:
- Output one line of text per printed line, top to bottom.
- Keep the original characters exactly as printed, including numbers and separators.
- Do not translate, summarize, reorder, or add commentary.
- If the image contains no readable text, output nothing at all.`

// GeminiEngine implements Engine using a Gemini vision model.
type GeminiEngine struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiEngine creates a Gemini OCR engine.
func NewGeminiEngine(ctx context.Context, apiKey, modelName string) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	// Transcription should be reproducible, not creative.
	model.SetTemperature(0.0)

	return &GeminiEngine{client: client, model: model}, nil
}

// Name returns "gemini"
func (g *GeminiEngine) Name() string {
	return "gemini"
}

// Recognize sends the image to the vision model and splits the transcription
// into one span per line.
func (g *GeminiEngine) Recognize(ctx context.Context, imageData []byte, mimeType string) ([]Span, error) {
	ratelimit.WaitForGemini()

	// genai.ImageData wants the format suffix ("png"), not the MIME type.
	format := strings.TrimPrefix(mimeType, "image/")

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData(format, imageData),
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini ocr call: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	var spans []Span
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			spans = append(spans, Span{Text: line})
		}
	}
	return spans, nil
}

// Close closes the underlying client.
func (g *GeminiEngine) Close() error {
	return g.client.Close()
}
