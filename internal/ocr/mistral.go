// mistral.go - Mistral OCR engine over the REST API

package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const mistralOCREndpoint = "https://api.mistral.ai/v1/ocr"

// MistralEngine implements Engine using the Mistral OCR API.
type MistralEngine struct {
	apiKey    string
	modelName string
	client    *http.Client
}

// NewMistralEngine creates a Mistral OCR engine.
func NewMistralEngine(apiKey, modelName string) (*MistralEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("mistral api key is required")
	}
	if modelName == "" {
		modelName = "mistral-ocr-latest"
	}
	return &MistralEngine{
		apiKey:    apiKey,
		modelName: modelName,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Name returns "mistral"
func (m *MistralEngine) Name() string {
	return "mistral"
}

type mistralOCRDocument struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url,omitempty"`
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralOCRResponse struct {
	Model string           `json:"model"`
	Pages []mistralOCRPage `json:"pages"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Recognize sends the image as a base64 data URL and splits the returned
// page markdown into line spans.
func (m *MistralEngine) Recognize(ctx context.Context, imageData []byte, mimeType string) ([]Span, error) {
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	request := mistralOCRRequest{
		Model: m.modelName,
		Document: mistralOCRDocument{
			Type:     "image_url",
			ImageURL: imageURL,
		},
	}

	response, err := m.call(ctx, request)
	if err != nil {
		return nil, err
	}

	var spans []Span
	for _, page := range response.Pages {
		for _, line := range strings.Split(page.Markdown, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				spans = append(spans, Span{Text: line})
			}
		}
	}
	return spans, nil
}

func (m *MistralEngine) call(ctx context.Context, request mistralOCRRequest) (*mistralOCRResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mistralOCREndpoint, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp mistralErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("mistral OCR API error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		}
		return nil, fmt.Errorf("mistral OCR API error (%d): %s", resp.StatusCode, string(body))
	}

	var response mistralOCRResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}
	return &response, nil
}

// Close is a no-op; the engine holds no persistent connection.
func (m *MistralEngine) Close() error {
	return nil
}
